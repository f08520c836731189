// Package permission runs the external-storage permission flow shared by the
// hide-me image and the enriched-call shared image.
package permission

import (
	"context"
	"log/slog"

	"github.com/sebas/incallcore/internal/incall/prefs"
)

// Host is the permission UI owned by the host activity.
type Host interface {
	HasReadStoragePermission() bool
	RequestReadStoragePermission()
	// ShowPermissionExplainer shows the one-time explainer dialog.
	ShowPermissionExplainer()
}

// StorageGateConfig configures a StorageGate.
type StorageGateConfig struct {
	Host   Host
	Prefs  prefs.Store
	Logger *slog.Logger
}

// StorageGate serializes storage permission requests. Callers queue a callback;
// the host is asked once, and every queued callback receives the result.
// It must only be used from the core thread.
type StorageGate struct {
	host    Host
	prefs   prefs.Store
	logger  *slog.Logger
	waiting []func(granted bool)
}

// NewStorageGate creates a gate.
func NewStorageGate(cfg StorageGateConfig) *StorageGate {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Prefs == nil {
		cfg.Prefs = prefs.NewMemory()
	}
	return &StorageGate{host: cfg.Host, prefs: cfg.Prefs, logger: cfg.Logger}
}

// Granted reports the current permission.
func (g *StorageGate) Granted() bool {
	return g.host != nil && g.host.HasReadStoragePermission()
}

// Pending reports whether a request is outstanding.
func (g *StorageGate) Pending() bool {
	return len(g.waiting) > 0
}

// Request calls onResult(true) immediately when permission is already held.
// Otherwise the callback is queued and, if no request is outstanding, the
// host is asked, preceded by the explainer the first time ever.
func (g *StorageGate) Request(ctx context.Context, onResult func(granted bool)) {
	if g.Granted() {
		onResult(true)
		return
	}
	g.waiting = append(g.waiting, onResult)
	if len(g.waiting) > 1 || g.host == nil {
		return
	}

	shown, err := g.prefs.Bool(ctx, prefs.KeyPermissionInfoDialogShown, false)
	if err != nil {
		g.logger.Warn("[Permission] Failed to read explainer flag", "error", err)
	}
	if !shown {
		g.host.ShowPermissionExplainer()
		if err := g.prefs.SetBool(ctx, prefs.KeyPermissionInfoDialogShown, true); err != nil {
			g.logger.Warn("[Permission] Failed to persist explainer flag", "error", err)
		}
	}
	g.logger.Debug("[Permission] Requesting read storage permission")
	g.host.RequestReadStoragePermission()
}

// OnResult delivers the host's answer to every queued callback.
func (g *StorageGate) OnResult(granted bool) {
	waiting := g.waiting
	g.waiting = nil
	g.logger.Info("[Permission] Read storage permission result", "granted", granted, "waiters", len(waiting))
	for _, fn := range waiting {
		fn(granted)
	}
}
