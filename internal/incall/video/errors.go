package video

import "errors"

var (
	ErrInvalidPictureMode = errors.New("invalid picture mode")
	ErrInvalidSize        = errors.New("invalid size, want WxH")
	ErrNotVideoMode       = errors.New("not in video mode")
)
