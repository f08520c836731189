package replay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sebas/incallcore/internal/incall/actionmenu"
	"github.com/sebas/incallcore/internal/incall/app"
	"github.com/sebas/incallcore/internal/incall/call"
	"github.com/sebas/incallcore/internal/incall/carrier"
	"github.com/sebas/incallcore/internal/incall/video"
)

// Step ops.
const (
	OpState             = "state"
	OpIncoming          = "incoming"
	OpDetails           = "details"
	OpDisconnect        = "disconnect"
	OpForeground        = "foreground"
	OpCameraPermission  = "camera_permission"
	OpStoragePermission = "storage_permission"
	OpSelect            = "select"
	OpTransfer          = "transfer"
	OpModify            = "modify"
	OpDismiss           = "dismiss"
	OpCarrierResponse   = "carrier_response"
	OpCameraDims        = "camera_dims"
	OpPeerDims          = "peer_dims"
	OpOrientation       = "orientation"
	OpSurface           = "surface"
	OpSessionEvent      = "session_event"
	OpPictureMode       = "picture_mode"
	OpInteraction       = "interaction"
	OpDialpad           = "dialpad"
	OpCapabilityCheck   = "capability_check"
	OpCapabilityResult  = "capability_result"
	OpMapClick          = "map_click"
	OpTouchExplore      = "touch_explore"
	OpSurfaceClick      = "surface_click"
	OpFullscreen        = "fullscreen"
	OpWait              = "wait"
)

// Dispatcher runs fn on the core thread and waits for it to finish.
// looper.Loop satisfies it.
type Dispatcher interface {
	Call(ctx context.Context, fn func()) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, fn func()) error

func (f DispatcherFunc) Call(ctx context.Context, fn func()) error { return f(ctx, fn) }

// Runner feeds scenario steps to a Core.
type Runner struct {
	Core       *app.Core
	Host       *Host
	Dispatcher Dispatcher
	PhoneID    int
	Logger     *slog.Logger
	// Wait blocks for d. Defaults to a context-aware sleep.
	Wait func(ctx context.Context, d time.Duration) error
}

// Run executes every step in order and stops at the first failing one.
// Rejected menu selections are logged and do not stop the run.
func (r *Runner) Run(ctx context.Context, sc *Scenario) error {
	logger := r.logger()
	logger.Info("[Replay] Starting scenario", "name", sc.Name, "steps", len(sc.Steps))
	for i, st := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Debug("[Replay] Step", "index", i, "op", st.Op)
		if err := r.step(ctx, st); err != nil {
			return &StepError{Index: i, Op: st.Op, Err: err}
		}
	}
	logger.Info("[Replay] Scenario finished", "name", sc.Name)
	return nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// onCore runs fn on the core thread and returns its error.
func (r *Runner) onCore(ctx context.Context, fn func() error) error {
	var err error
	if derr := r.Dispatcher.Call(ctx, func() { err = fn() }); derr != nil {
		return derr
	}
	return err
}

func (r *Runner) step(ctx context.Context, st Step) error {
	c := r.Core
	switch st.Op {
	case OpState:
		state, err := call.ParseGlobalState(st.State)
		if err != nil {
			return err
		}
		list, built, err := r.buildList(st.Calls)
		if err != nil {
			return err
		}
		return r.onCore(ctx, func() error {
			if err := c.OnStateChange(state, list); err != nil {
				return err
			}
			r.announcePeers(built)
			return nil
		})

	case OpIncoming:
		if st.Call == nil {
			return ErrMissingValue
		}
		b, err := st.Call.Build(r.PhoneID)
		if err != nil {
			return err
		}
		list, built, err := r.buildList(st.Calls)
		if err != nil {
			return err
		}
		if list.Get(b.Call.ID) == nil {
			list = call.NewList(append(list.Calls(), b.Call)...)
			built = append(built, b)
		}
		return r.onCore(ctx, func() error {
			if err := c.OnIncomingCall(b.Call, list); err != nil {
				return err
			}
			r.announcePeers(built)
			return nil
		})

	case OpDetails:
		if st.Call == nil {
			return ErrMissingValue
		}
		b, err := st.Call.Build(r.PhoneID)
		if err != nil {
			return err
		}
		return r.onCore(ctx, func() error {
			prev := c.List().Get(b.Call.ID)
			if prev != nil && prev.SessionModification != b.Call.SessionModification {
				c.OnSessionModificationStateChange(b.Call)
			} else {
				c.OnDetailsChanged(b.Call)
			}
			r.announcePeers([]Built{b})
			return nil
		})

	case OpDisconnect:
		return r.onCore(ctx, func() error {
			gone := c.List().Get(st.CallID)
			if gone == nil {
				return fmt.Errorf("%w: %q", ErrMissingCallID, st.CallID)
			}
			c.OnDisconnect(gone)
			return nil
		})

	case OpForeground, OpCameraPermission, OpStoragePermission, OpDialpad, OpTouchExplore, OpFullscreen:
		if st.Value == nil {
			return ErrMissingValue
		}
		v := *st.Value
		if st.Op == OpStoragePermission {
			r.Host.SetStoragePermission(v)
		}
		return r.onCore(ctx, func() error {
			switch st.Op {
			case OpForeground:
				c.OnUiShowing(v)
			case OpCameraPermission:
				c.SetCameraPermission(v)
			case OpStoragePermission:
				c.OnStoragePermissionResult(v)
			case OpDialpad:
				c.SetDialpadVisible(v)
			case OpTouchExplore:
				c.SetTouchExploration(v)
			case OpFullscreen:
				c.OnFullscreenModeChanged(v)
			}
			return nil
		})

	case OpSelect:
		id, err := actionmenu.ParseActionID(st.Action)
		if err != nil {
			return err
		}
		return r.onCore(ctx, func() error {
			r.rejected(st, c.SelectAction(id))
			return nil
		})

	case OpTransfer:
		t, err := call.ParseTransferType(strings.ToUpper(st.Transfer))
		if err != nil {
			return err
		}
		return r.onCore(ctx, func() error {
			r.rejected(st, c.SelectTransfer(t, st.Number))
			return nil
		})

	case OpModify:
		vs, err := call.ParseVideoState(st.Target)
		if err != nil {
			return err
		}
		return r.onCore(ctx, func() error {
			r.rejected(st, c.SelectModify(vs))
			return nil
		})

	case OpDismiss:
		return r.onCore(ctx, func() error {
			c.DismissOptions()
			return nil
		})

	case OpCarrierResponse:
		kind, err := carrier.ParseRequestKind(st.Kind)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnknownKind, err)
		}
		if err := r.Host.Respond(kind, st.Result); err != nil {
			return err
		}
		// Let the posted response run before the next step.
		return r.onCore(ctx, func() error { return nil })

	case OpCameraDims, OpPeerDims:
		return r.onCore(ctx, func() error {
			if st.Op == OpCameraDims {
				c.OnCameraDimensionsChanged(st.CallID, st.Width, st.Height)
			} else {
				c.OnPeerDimensionsChanged(st.CallID, st.Width, st.Height)
			}
			return nil
		})

	case OpOrientation:
		return r.onCore(ctx, func() error {
			c.OnDeviceOrientationChanged(st.Rotation)
			return nil
		})

	case OpSurface:
		return r.onCore(ctx, func() error {
			switch st.Surface {
			case "preview":
				c.OnPreviewSurfaceCreated(video.SurfaceID(st.ID))
			case "display":
				c.OnDisplaySurfaceCreated(video.SurfaceID(st.ID))
			case "preview_destroyed":
				c.OnPreviewSurfaceDestroyed(false)
			case "preview_changing":
				c.OnPreviewSurfaceDestroyed(true)
			case "preview_released":
				c.OnPreviewSurfaceReleased()
			case "display_released":
				c.OnDisplaySurfaceReleased()
			default:
				return fmt.Errorf("%w: surface %q", call.ErrUnknownValue, st.Surface)
			}
			return nil
		})

	case OpSessionEvent:
		ev, err := call.ParseSessionEvent(st.Event)
		if err != nil {
			return err
		}
		return r.onCore(ctx, func() error {
			c.OnSessionEvent(st.CallID, ev)
			return nil
		})

	case OpPictureMode:
		mode, err := video.ParsePictureMode(st.Mode)
		if err != nil {
			return err
		}
		return r.onCore(ctx, func() error { return c.SetPictureMode(mode) })

	case OpInteraction, OpSurfaceClick:
		return r.onCore(ctx, func() error {
			if st.Op == OpSurfaceClick {
				c.OnSurfaceClick()
			} else {
				c.OnUserInteraction()
			}
			return nil
		})

	case OpCapabilityCheck:
		return r.onCore(ctx, func() error {
			c.StartCapabilityCheck(st.Number)
			return nil
		})

	case OpCapabilityResult:
		return r.onCore(ctx, func() error {
			if st.Capable == nil {
				c.OnCapabilityNetworkFailure()
				return nil
			}
			c.OnCapabilityResult(st.Number, *st.Capable)
			return nil
		})

	case OpMapClick:
		return r.onCore(ctx, func() error {
			r.rejected(st, c.OnMapClicked())
			return nil
		})

	case OpWait:
		d, err := time.ParseDuration(st.Duration)
		if err != nil {
			return fmt.Errorf("wait duration: %w", err)
		}
		return r.wait(ctx, d)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, st.Op)
	}
}

func (r *Runner) buildList(specs []CallSpec) (*call.List, []Built, error) {
	built := make([]Built, 0, len(specs))
	calls := make([]*call.Call, 0, len(specs))
	for _, s := range specs {
		b, err := s.Build(r.PhoneID)
		if err != nil {
			return nil, nil, err
		}
		built = append(built, b)
		calls = append(calls, b.Call)
	}
	return call.NewList(calls...), built, nil
}

// announcePeers forwards the peer frame sizes carried by SDP bodies.
func (r *Runner) announcePeers(built []Built) {
	for _, b := range built {
		if b.PeerWidth > 0 && b.PeerHeight > 0 {
			r.Core.OnPeerDimensionsChanged(b.Call.ID, b.PeerWidth, b.PeerHeight)
		}
	}
}

func (r *Runner) rejected(st Step, err error) {
	if err != nil {
		r.logger().Warn("[Replay] Host action rejected", "op", st.Op, "error", err)
	}
}

func (r *Runner) wait(ctx context.Context, d time.Duration) error {
	if r.Wait != nil {
		return r.Wait(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
