package video

import (
	"github.com/sebas/incallcore/internal/incall/call"
	"github.com/sebas/incallcore/internal/incall/carrier"
)

// maybeAutoFullscreen schedules fullscreen entry for an active bidirectional
// video call. Any failed precondition cancels a pending entry.
func (v *Coordinator) maybeAutoFullscreen(current *call.Call) {
	if !v.settings.AutoFullscreen {
		return
	}
	if current == nil ||
		current.State != call.StateActive ||
		!current.VideoState.IsBidirectional() ||
		!v.videoMode ||
		v.fullscreen ||
		v.dialpadVisible ||
		v.touchExplore {
		v.CancelAutoFullscreen()
		return
	}
	if v.fullscreenTask.Pending() || v.scheduler == nil {
		return
	}
	delay := v.settings.AutoFullscreenDelay
	if delay <= 0 {
		delay = carrier.DefaultAutoFullscreenDelay
	}
	v.logger.Debug("[Video] Auto fullscreen scheduled", "call", current.ID, "delay", delay)
	v.fullscreenTask = v.scheduler.PostDelayed(delay, v.autoFullscreen)
}

func (v *Coordinator) autoFullscreen() {
	v.fullscreenTask = nil
	if v.dialpadVisible || !v.videoMode {
		v.logger.Debug("[Video] Skipping scheduled fullscreen")
		return
	}
	v.logger.Debug("[Video] Entering fullscreen")
	v.setFullscreen(true)
}

// CancelAutoFullscreen drops a pending auto-fullscreen entry.
func (v *Coordinator) CancelAutoFullscreen() {
	if !v.fullscreenTask.Pending() {
		return
	}
	v.logger.Debug("[Video] Auto fullscreen cancelled")
	v.fullscreenTask.Cancel()
	v.fullscreenTask = nil
}

// maybeExitFullscreen leaves fullscreen when the call in focus is not a
// video call or is ringing.
func (v *Coordinator) maybeExitFullscreen(current *call.Call) {
	if !current.IsVideoCall() || current.State == call.StateIncoming {
		v.setFullscreen(false)
	}
}

func (v *Coordinator) setFullscreen(on bool) {
	if v.fullscreen == on {
		return
	}
	v.fullscreen = on
	if v.screen != nil {
		v.screen.SetFullscreen(on)
	}
}

// OnFullscreenModeChanged records a fullscreen change made by the host.
func (v *Coordinator) OnFullscreenModeChanged(on bool) {
	v.CancelAutoFullscreen()
	v.fullscreen = on
	v.syncViews()
}

// OnUserInteraction cancels any pending auto-fullscreen.
func (v *Coordinator) OnUserInteraction() {
	v.CancelAutoFullscreen()
}

// OnSurfaceClick toggles fullscreen. Leaving fullscreen re-arms the timer.
func (v *Coordinator) OnSurfaceClick() {
	v.CancelAutoFullscreen()
	if !v.fullscreen {
		v.setFullscreen(true)
		return
	}
	v.setFullscreen(false)
	v.maybeAutoFullscreen(v.primary)
}

// SetDialpadVisible records dialpad visibility. Showing it cancels auto-fullscreen.
func (v *Coordinator) SetDialpadVisible(visible bool) {
	v.dialpadVisible = visible
	if visible {
		v.CancelAutoFullscreen()
		return
	}
	v.maybeAutoFullscreen(v.primary)
}

// SetTouchExploration records the accessibility touch-explore mode.
func (v *Coordinator) SetTouchExploration(enabled bool) {
	v.touchExplore = enabled
	if enabled {
		v.CancelAutoFullscreen()
	}
}

// ShowPictureModePicker opens the picture-mode picker.
func (v *Coordinator) ShowPictureModePicker() error {
	if !v.videoMode {
		return ErrNotVideoMode
	}
	v.pickerShowing = true
	v.logger.Info("[Video] Showing picture mode picker", "current", v.picture)
	if v.view != nil {
		v.view.ShowPictureModePicker(v.picture)
	}
	return nil
}

// SetPictureMode applies the user's picture-mode choice. The camera is not touched.
func (v *Coordinator) SetPictureMode(p PictureMode) error {
	if !p.Valid() {
		return ErrInvalidPictureMode
	}
	v.pickerShowing = false
	if p == v.picture {
		return nil
	}
	v.logger.Info("[Video] Picture mode changed", "from", v.picture, "to", p)
	v.picture = p
	v.syncViews()
	return nil
}

func (v *Coordinator) dismissPicker(reason string) {
	if !v.pickerShowing {
		return
	}
	v.pickerShowing = false
	v.logger.Debug("[Video] Dismissing picture mode picker", "reason", reason)
	if v.view != nil {
		v.view.DismissPictureModePicker()
	}
}
