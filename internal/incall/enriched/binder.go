package enriched

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sebas/incallcore/internal/incall/call"
	"github.com/sebas/incallcore/internal/incall/looper"
	"github.com/sebas/incallcore/internal/incall/metrics"
	"github.com/sebas/incallcore/internal/incall/notify"
	"github.com/sebas/incallcore/internal/incall/permission"
)

// DefaultFetchTimeout bounds a single location image fetch.
const DefaultFetchTimeout = 30 * time.Second

// ImageFetcher renders a static map for a location. It runs off the core thread.
type ImageFetcher interface {
	FetchLocationImage(ctx context.Context, loc Location, width, height int) ([]byte, error)
}

// ImageFetcherFunc adapts a function to ImageFetcher.
type ImageFetcherFunc func(ctx context.Context, loc Location, width, height int) ([]byte, error)

func (f ImageFetcherFunc) FetchLocationImage(ctx context.Context, loc Location, width, height int) ([]byte, error) {
	return f(ctx, loc, width, height)
}

// Executor runs fn off the core thread.
type Executor func(fn func())

// GoExecutor runs each function on its own goroutine.
func GoExecutor(fn func()) { go fn() }

// PermissionStatus is the per-call outcome of the storage permission request.
type PermissionStatus int

const (
	PermissionUnknown PermissionStatus = iota
	PermissionGranted
	PermissionNotGranted
)

func (s PermissionStatus) String() string {
	switch s {
	case PermissionUnknown:
		return "UNKNOWN"
	case PermissionGranted:
		return "GRANTED"
	case PermissionNotGranted:
		return "NOT_GRANTED"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// Record is the enriched state kept for one live call.
type Record struct {
	CallID     string
	Call       *call.Call
	Image      []byte
	Requested  bool
	Permission PermissionStatus
}

// Data decodes the composer payload from the latest call snapshot.
func (r *Record) Data() *Data { return Read(r.Call) }

// HasImage reports whether location image bytes have arrived.
func (r *Record) HasImage() bool { return len(r.Image) > 0 }

// UpdateListener is told when a call's enriched record changes.
type UpdateListener interface {
	OnEnrichedUpdated(r *Record)
}

// UpdateListenerFunc adapts a function to UpdateListener.
type UpdateListenerFunc func(r *Record)

func (f UpdateListenerFunc) OnEnrichedUpdated(r *Record) { f(r) }

// BinderConfig configures a Binder.
type BinderConfig struct {
	Fetcher      ImageFetcher
	Executor     Executor
	Scheduler    looper.Scheduler
	Storage      *permission.StorageGate
	FetchTimeout time.Duration
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

// Binder keeps one Record per call in the call list. All methods except the
// fetch itself run on the core thread.
type Binder struct {
	fetcher   ImageFetcher
	executor  Executor
	scheduler looper.Scheduler
	storage   *permission.StorageGate
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics

	records   map[string]*Record
	fetches   singleflight.Group
	listeners *notify.List[UpdateListener]
}

// NewBinder creates an empty binder.
func NewBinder(cfg BinderConfig) *Binder {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Executor == nil {
		cfg.Executor = GoExecutor
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &Binder{
		fetcher:   cfg.Fetcher,
		executor:  cfg.Executor,
		scheduler: cfg.Scheduler,
		storage:   cfg.Storage,
		timeout:   cfg.FetchTimeout,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		records:   make(map[string]*Record),
		listeners: notify.NewList[UpdateListener]("enriched", cfg.Logger),
	}
}

func (b *Binder) AddListener(l UpdateListener) string { return b.listeners.Add(l) }

func (b *Binder) RemoveListener(id string) bool { return b.listeners.Remove(id) }

// OnCallListChange adds a record for every new call, refreshes the snapshot of
// known calls and drops records of calls that left the list. A disconnected
// call never gets a new record, so one already forgotten stays forgotten.
func (b *Binder) OnCallListChange(list *call.List) {
	seen := make(map[string]bool)
	for _, c := range list.Calls() {
		seen[c.ID] = true
		if r, ok := b.records[c.ID]; ok {
			r.Call = c
			continue
		}
		if c.State == call.StateDisconnected {
			continue
		}
		b.records[c.ID] = &Record{CallID: c.ID, Call: c}
		b.logger.Debug("[Enriched] Tracking call", "call", c.ID, "state", c.State)
	}
	for id := range b.records {
		if !seen[id] {
			b.drop(id)
		}
	}
}

// OnIncomingCall starts tracking an incoming call.
func (b *Binder) OnIncomingCall(c *call.Call) {
	if c == nil {
		return
	}
	if _, ok := b.records[c.ID]; ok {
		return
	}
	b.records[c.ID] = &Record{CallID: c.ID, Call: c}
	b.logger.Debug("[Enriched] Tracking incoming call", "call", c.ID)
}

// OnDetailsChanged refreshes the snapshot of a tracked call.
func (b *Binder) OnDetailsChanged(c *call.Call) {
	if c == nil {
		return
	}
	if r, ok := b.records[c.ID]; ok {
		r.Call = c
	}
}

// OnDisconnect forgets a call.
func (b *Binder) OnDisconnect(c *call.Call) {
	if c != nil {
		b.drop(c.ID)
	}
}

func (b *Binder) drop(id string) {
	if _, ok := b.records[id]; !ok {
		return
	}
	delete(b.records, id)
	b.logger.Debug("[Enriched] Forgetting call", "call", id)
}

// Len returns the number of tracked calls.
func (b *Binder) Len() int { return len(b.records) }

// Record returns the record of a tracked call, or nil.
func (b *Binder) Record(id string) *Record { return b.records[id] }

// Bind returns the composer data of c, or nil when c is not tracked or
// carries no enriched bundle.
func (b *Binder) Bind(c *call.Call) *Data {
	if c == nil {
		return nil
	}
	r, ok := b.records[c.ID]
	if !ok {
		b.logger.Debug("[Enriched] Bind for untracked call", "call", c.ID)
		return nil
	}
	r.Call = c
	return r.Data()
}

// CanRequestLocationImage reports whether a fetch would be started for c.
func (b *Binder) CanRequestLocationImage(c *call.Call) bool {
	r := b.recordOf(c)
	if r == nil || r.Requested || r.HasImage() {
		return false
	}
	d := r.Data()
	return d.IsValid() && d.IsValidLocation()
}

// RequestLocationImage fetches the map image for c's location. At most one
// fetch is started per call; later calls are no-ops once a fetch was started.
// A failed fetch is not retried.
func (b *Binder) RequestLocationImage(c *call.Call, width, height int) error {
	r := b.recordOf(c)
	if r == nil {
		return ErrUnknownCall
	}
	if r.Requested || r.HasImage() {
		b.logger.Debug("[Enriched] Location image already requested", "call", r.CallID, "has_image", r.HasImage())
		return nil
	}
	d := r.Data()
	if d == nil {
		return ErrNoData
	}
	if !d.IsValidLocation() {
		return ErrNoLocation
	}
	if width <= 0 || height <= 0 {
		return ErrNoViewSize
	}
	if b.fetcher == nil {
		return ErrNoFetcher
	}

	r.Requested = true
	loc := *d.Location
	id := r.CallID
	b.logger.Info("[Enriched] Requesting location image", "call", id, "width", width, "height", height)
	b.metrics.ImageFetch("requested")

	b.executor(func() {
		v, err, _ := b.fetches.Do(id, func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
			defer cancel()
			return b.fetcher.FetchLocationImage(ctx, loc, width, height)
		})
		img, _ := v.([]byte)
		b.post(func() { b.imageArrived(id, img, err) })
	})
	return nil
}

// ImageArrived attaches fetched bytes to a call and signals an update.
func (b *Binder) ImageArrived(id string, img []byte) {
	b.imageArrived(id, img, nil)
}

func (b *Binder) imageArrived(id string, img []byte, err error) {
	r, ok := b.records[id]
	if !ok {
		b.logger.Debug("[Enriched] Location image for a call that is gone", "call", id)
		b.metrics.ImageFetch("discarded")
		return
	}
	if err != nil {
		b.logger.Warn("[Enriched] Location image fetch failed", "call", id, "error", err)
		b.metrics.ImageFetch("failed")
		return
	}
	if len(img) == 0 {
		b.logger.Warn("[Enriched] Location image fetch returned no data", "call", id)
		b.metrics.ImageFetch("empty")
		return
	}
	r.Image = img
	b.metrics.ImageFetch("ok")
	b.logger.Debug("[Enriched] Location image attached", "call", id, "bytes", len(img))
	b.notify(r)
}

// CanRequestSharedImage reports whether the storage permission should be
// requested to display c's shared image. Without permission, ringing calls
// wait until answered; a per-call denial suppresses further requests.
func (b *Binder) CanRequestSharedImage(c *call.Call, foreground bool) bool {
	r := b.recordOf(c)
	if r == nil || b.storage == nil || !foreground {
		return false
	}
	d := r.Data()
	if !d.IsValid() || !d.IsValidSharedImage() {
		return false
	}
	if !b.storage.Granted() && c.State.IsIncoming() {
		return false
	}
	return !b.storage.Pending() && r.Permission != PermissionNotGranted
}

// RequestSharedImage runs the storage permission flow for c's shared image.
func (b *Binder) RequestSharedImage(c *call.Call) error {
	r := b.recordOf(c)
	if r == nil {
		return ErrUnknownCall
	}
	if !r.Data().IsValidSharedImage() {
		return ErrNoSharedImage
	}
	if b.storage == nil {
		return nil
	}
	id := r.CallID
	b.logger.Debug("[Enriched] Requesting storage permission for shared image", "call", id)
	b.storage.Request(context.Background(), func(granted bool) {
		b.onStoragePermission(id, granted)
	})
	return nil
}

func (b *Binder) onStoragePermission(id string, granted bool) {
	r, ok := b.records[id]
	if !ok {
		return
	}
	r.Permission = PermissionNotGranted
	if granted {
		r.Permission = PermissionGranted
	}
	b.logger.Info("[Enriched] Shared image permission", "call", id, "status", r.Permission)
	if granted {
		b.notify(r)
	}
}

func (b *Binder) recordOf(c *call.Call) *Record {
	if c == nil {
		return nil
	}
	r, ok := b.records[c.ID]
	if !ok {
		return nil
	}
	r.Call = c
	return r
}

func (b *Binder) notify(r *Record) {
	b.listeners.Each(func(l UpdateListener) { l.OnEnrichedUpdated(r) })
}

func (b *Binder) post(fn func()) {
	if b.scheduler == nil {
		fn()
		return
	}
	b.scheduler.Post(fn)
}
