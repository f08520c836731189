// Package metrics keeps in-process counters for the in-call core. Nothing is
// exported over the network; the replay tool logs a snapshot on exit.
package metrics

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the core counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	primaryChanges     prometheus.Counter
	menuChanges        prometheus.Counter
	actions            *prometheus.CounterVec
	carrierRequests    *prometheus.CounterVec
	previewTransitions *prometheus.CounterVec
	cameraToggles      *prometheus.CounterVec
	orientationChanges *prometheus.CounterVec
	imageFetches       *prometheus.CounterVec
	capabilityChecks   *prometheus.CounterVec
}

// New creates counters on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		primaryChanges: factory.NewCounter(prometheus.CounterOpts{
			Name: "incall_primary_changes_total",
			Help: "Number of primary call identity changes",
		}),
		menuChanges: factory.NewCounter(prometheus.CounterOpts{
			Name: "incall_menu_changes_total",
			Help: "Number of action menu changes delivered to the view",
		}),
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "incall_actions_total",
			Help: "Selected menu actions, partitioned by action and outcome",
		}, []string{"action", "outcome"}),
		carrierRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "incall_carrier_requests_total",
			Help: "Carrier extension requests, partitioned by kind and result",
		}, []string{"kind", "result"}),
		previewTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "incall_preview_transitions_total",
			Help: "Preview surface state transitions",
		}, []string{"from", "to"}),
		cameraToggles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "incall_camera_toggles_total",
			Help: "Camera acquisitions and releases",
		}, []string{"op"}),
		orientationChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "incall_orientation_changes_total",
			Help: "Requested orientation changes",
		}, []string{"orientation"}),
		imageFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "incall_location_image_fetches_total",
			Help: "Location image fetches, partitioned by result",
		}, []string{"result"}),
		capabilityChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "incall_enriched_capability_checks_total",
			Help: "Enriched calling capability checks, partitioned by outcome",
		}, []string{"outcome"}),
	}
}

// Registry returns the backing registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) PrimaryChanged() {
	if m != nil {
		m.primaryChanges.Inc()
	}
}

func (m *Metrics) MenuChanged() {
	if m != nil {
		m.menuChanges.Inc()
	}
}

// Action records a menu selection outcome ("dispatched", "disabled", "failed", "skipped").
func (m *Metrics) Action(action, outcome string) {
	if m != nil {
		m.actions.WithLabelValues(action, outcome).Inc()
	}
}

// CarrierRequest records a carrier request result ("sent", "ok", "error", "timeout", "send_failed").
func (m *Metrics) CarrierRequest(kind, result string) {
	if m != nil {
		m.carrierRequests.WithLabelValues(kind, result).Inc()
	}
}

func (m *Metrics) PreviewTransition(from, to string) {
	if m != nil {
		m.previewTransitions.WithLabelValues(from, to).Inc()
	}
}

// Camera records "acquire" or "release".
func (m *Metrics) Camera(op string) {
	if m != nil {
		m.cameraToggles.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) OrientationChanged(orientation string) {
	if m != nil {
		m.orientationChanges.WithLabelValues(orientation).Inc()
	}
}

func (m *Metrics) ImageFetch(result string) {
	if m != nil {
		m.imageFetches.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) CapabilityCheck(outcome string) {
	if m != nil {
		m.capabilityChecks.WithLabelValues(outcome).Inc()
	}
}

// Snapshot flattens every non-zero counter into "name{label=value,...}" keys.
func (m *Metrics) Snapshot() (map[string]float64, error) {
	out := make(map[string]float64)
	if m == nil {
		return out, nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			c := metric.GetCounter()
			if c == nil || c.GetValue() == 0 {
				continue
			}
			var labels []string
			for _, lp := range metric.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			sort.Strings(labels)
			key := mf.GetName()
			if len(labels) > 0 {
				key += "{" + strings.Join(labels, ",") + "}"
			}
			out[key] = c.GetValue()
		}
	}
	return out, nil
}
