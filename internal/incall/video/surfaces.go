package video

import "github.com/sebas/incallcore/internal/incall/call"

// OnCameraDimensionsChanged handles the camera capabilities report. It moves
// the preview machine forward and binds the preview surface when it exists.
func (v *Coordinator) OnCameraDimensionsChanged(id string, width, height int) {
	if !v.isPrimary(id) {
		v.logger.Debug("[Video] Camera dimensions for non-primary call", "call", id)
		return
	}
	if v.preview.State() == PreviewNone {
		v.logger.Warn("[Video] Camera dimensions discarded: camera is off", "call", id, "width", width, "height", height)
		return
	}
	v.cameraSize = Size{Width: width, Height: height}
	if v.preview.State() == PreviewCameraSet {
		v.preview.capabilities()
	}
	v.syncViews()
	v.maybeBindPreview()
}

// OnPeerDimensionsChanged adjusts the remote view to the peer's aspect ratio.
func (v *Coordinator) OnPeerDimensionsChanged(id string, width, height int) {
	if !v.isPrimary(id) {
		v.logger.Debug("[Video] Peer dimensions for non-primary call", "call", id)
		return
	}
	size := Size{Width: width, Height: height}
	if size.IsZero() || size == v.peerSize {
		return
	}
	v.peerSize = size
	v.logger.Debug("[Video] Peer dimensions changed", "call", id, "size", size)
	if v.view != nil {
		v.view.SetRemoteVideoSize(size)
	}
}

// OnDeviceOrientationChanged forwards the rotation in degrees and reshapes the preview.
func (v *Coordinator) OnDeviceOrientationChanged(rotation int) {
	if rotation == v.rotation {
		return
	}
	v.logger.Debug("[Video] Device orientation changed", "from", v.rotation, "to", rotation)
	v.rotation = rotation
	if !v.videoMode || v.primary == nil {
		return
	}
	v.host.SetDeviceOrientation(v.primary.ID, rotation)
	v.syncViews()
}

// OnPreviewSurfaceCreated records the local preview surface.
func (v *Coordinator) OnPreviewSurfaceCreated(s SurfaceID) {
	if s == v.previewSurface && v.preview.State() == PreviewSurfaceSet {
		// Retained across a configuration change.
		return
	}
	if v.preview.State() == PreviewSurfaceSet {
		// A different surface needs a fresh camera cycle.
		v.releaseCamera()
	}
	v.previewSurface = s
	if v.preview.State() == PreviewCapabilitiesReceived {
		v.maybeBindPreview()
		return
	}
	if v.preview.State() == PreviewNone {
		v.refresh()
	}
}

// OnPreviewSurfaceReleased unbinds the preview and closes the camera.
func (v *Coordinator) OnPreviewSurfaceReleased() {
	if v.primary != nil && v.previewSurface != "" {
		v.host.SetPreviewSurface(v.primary.ID, "")
	}
	v.previewSurface = ""
	v.releaseCamera()
}

// OnPreviewSurfaceDestroyed closes the camera unless the activity is only
// being recreated for a configuration change.
func (v *Coordinator) OnPreviewSurfaceDestroyed(changingConfigurations bool) {
	if changingConfigurations {
		v.logger.Info("[Video] Preview surface destroyed for configuration change, keeping camera")
		return
	}
	v.previewSurface = ""
	v.releaseCamera()
}

// OnDisplaySurfaceCreated binds the remote video surface.
func (v *Coordinator) OnDisplaySurfaceCreated(s SurfaceID) {
	v.displaySurface = s
	if v.primary != nil && v.videoMode {
		v.host.SetDisplaySurface(v.primary.ID, s)
	}
}

// OnDisplaySurfaceReleased unbinds the remote video surface.
func (v *Coordinator) OnDisplaySurfaceReleased() {
	if v.primary != nil && v.displaySurface != "" {
		v.host.SetDisplaySurface(v.primary.ID, "")
	}
	v.displaySurface = ""
}

func (v *Coordinator) maybeBindPreview() {
	if v.preview.State() != PreviewCapabilitiesReceived || v.previewSurface == "" {
		return
	}
	v.host.SetPreviewSurface(v.cameraCall, v.previewSurface)
	v.preview.surfaceSet()
}

// OnSessionEvent handles a call session event.
func (v *Coordinator) OnSessionEvent(id string, ev call.SessionEvent) {
	v.lastEvent = ev
	v.lastEventCall = id
	switch ev {
	case call.SessionEventRxPause, call.SessionEventRxResume:
		v.incomingAvailable = ev == call.SessionEventRxResume
		v.logger.Debug("[Video] Incoming video availability changed", "call", id, "available", v.incomingAvailable)
		if v.isPrimary(id) {
			v.syncViews()
		}
	case call.SessionEventCameraFailure:
		v.logger.Warn("[Video] Camera failure reported", "call", id, "camera", v.cameraID)
	case call.SessionEventCameraReady:
		v.logger.Info("[Video] Camera ready", "call", id, "camera", v.cameraID)
	default:
		v.logger.Debug("[Video] Session event", "call", id, "event", ev)
	}
	v.sessionListeners.Each(func(l SessionEventListener) {
		l.OnSessionEvent(id, ev)
	})
}

// AddSessionEventListener registers l and replays the last event to it.
func (v *Coordinator) AddSessionEventListener(l SessionEventListener) string {
	id := v.sessionListeners.Add(l)
	if v.lastEvent != call.SessionEventNone {
		l.OnSessionEvent(v.lastEventCall, v.lastEvent)
	}
	return id
}

// RemoveSessionEventListener unregisters a listener.
func (v *Coordinator) RemoveSessionEventListener(id string) bool {
	return v.sessionListeners.Remove(id)
}
