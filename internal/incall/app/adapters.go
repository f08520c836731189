package app

import (
	"github.com/sebas/incallcore/internal/incall/actionmenu"
	"github.com/sebas/incallcore/internal/incall/call"
	"github.com/sebas/incallcore/internal/incall/orientation"
)

// commands routes the picture-mode picker to the video coordinator and
// everything else to the host.
type commands struct {
	core *Core
	actionmenu.Commands
}

func (c commands) ShowPipPicker() {
	if err := c.core.video.ShowPictureModePicker(); err != nil {
		c.core.logger.Warn("[Core] Picture mode picker unavailable", "error", err)
	}
}

// menuView forwards menu changes to the host view and publishes them.
type menuView struct {
	core *Core
	view actionmenu.View
}

func (v menuView) OnMenuChanged(menu actionmenu.Menu, showMore bool) {
	if v.view != nil {
		v.view.OnMenuChanged(menu, showMore)
	}
	enabled, disabled := menu.Names()
	v.core.publish(v.core.events.MenuChanged(idOf(v.core.tracker.Primary()), enabled, disabled))
}

func (v menuView) ShowTransferOptions(callID string, options []call.TransferType) {
	if v.view != nil {
		v.view.ShowTransferOptions(callID, options)
	}
}

func (v menuView) ShowModifyOptions(callID string, options []call.VideoState) {
	if v.view != nil {
		v.view.ShowModifyOptions(callID, options)
	}
}

func (v menuView) DismissOptions() {
	if v.view != nil {
		v.view.DismissOptions()
	}
}

func (v menuView) ShowNotice(n actionmenu.Notice) {
	if v.view != nil {
		v.view.ShowNotice(n)
	}
}

type orientationSink struct {
	core *Core
	sink orientation.Sink
}

func (s orientationSink) SetInCallAllowsOrientationChange(o orientation.Orientation) {
	if s.sink != nil {
		s.sink.SetInCallAllowsOrientationChange(o)
	}
	s.core.publish(s.core.events.OrientationChanged(idOf(s.core.tracker.Primary()), o.String()))
}
