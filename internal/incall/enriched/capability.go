package enriched

import (
	"log/slog"
	"time"

	"github.com/sebas/incallcore/internal/incall/looper"
	"github.com/sebas/incallcore/internal/incall/metrics"
)

// DefaultCapabilityTimeout is how long a capability check waits for the
// carrier stack before the enriched affordance is disabled.
const DefaultCapabilityTimeout = 32 * time.Second

// CapabilityView shows the enriched-calling affordance.
type CapabilityView interface {
	SetEnrichedEnabled(enabled bool)
	ShowCheckProgress(show bool)
}

// CapabilityConfig configures a CapabilityCheck.
type CapabilityConfig struct {
	View      CapabilityView
	Scheduler looper.Scheduler
	Timeout   time.Duration
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// CapabilityCheck asks whether the peer supports enriched calling and falls
// back to disabled when no answer arrives in time.
type CapabilityCheck struct {
	view      CapabilityView
	scheduler looper.Scheduler
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics

	task    *looper.Task
	enabled bool
	number  string
}

// NewCapabilityCheck creates an idle check with the affordance disabled.
func NewCapabilityCheck(cfg CapabilityConfig) *CapabilityCheck {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCapabilityTimeout
	}
	return &CapabilityCheck{
		view:      cfg.View,
		scheduler: cfg.Scheduler,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
}

// Start begins a check for number. A check already in flight is restarted.
func (c *CapabilityCheck) Start(number string) {
	c.task.Cancel()
	c.number = number
	c.logger.Debug("[Enriched] Capability check started", "number", number, "timeout", c.timeout)
	if c.view != nil {
		c.view.ShowCheckProgress(true)
	}
	c.task = c.scheduler.PostDelayed(c.timeout, c.onTimeout)
}

// OnResult delivers the carrier's answer and cancels the timeout.
func (c *CapabilityCheck) OnResult(number string, capable bool) {
	if number != c.number {
		c.logger.Debug("[Enriched] Stale capability result", "number", number, "current", c.number)
		return
	}
	c.task.Cancel()
	c.task = nil
	outcome := "not_capable"
	if capable {
		outcome = "capable"
	}
	c.metrics.CapabilityCheck(outcome)
	c.finish(capable)
}

// OnNetworkFailure ends the check with the affordance disabled.
func (c *CapabilityCheck) OnNetworkFailure() {
	c.task.Cancel()
	c.task = nil
	c.logger.Warn("[Enriched] Capability check failed: network failure", "number", c.number)
	c.metrics.CapabilityCheck("network_failure")
	c.finish(false)
}

func (c *CapabilityCheck) onTimeout() {
	c.task = nil
	c.logger.Warn("[Enriched] Capability check timed out", "number", c.number, "timeout", c.timeout)
	c.metrics.CapabilityCheck("timeout")
	c.finish(false)
}

func (c *CapabilityCheck) finish(enabled bool) {
	c.enabled = enabled
	if c.view == nil {
		return
	}
	c.view.ShowCheckProgress(false)
	c.view.SetEnrichedEnabled(enabled)
}

// Pending reports whether a check awaits an answer.
func (c *CapabilityCheck) Pending() bool { return c.task.Pending() }

// Enabled reports the last outcome.
func (c *CapabilityCheck) Enabled() bool { return c.enabled }
