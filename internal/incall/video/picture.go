package video

import (
	"fmt"
	"strconv"
	"strings"
)

// PictureMode selects which video views are shown. At least one is always on.
type PictureMode struct {
	ShowPreview  bool
	ShowIncoming bool
}

var (
	PictureModePip          = PictureMode{ShowPreview: true, ShowIncoming: true}
	PictureModePreviewOnly  = PictureMode{ShowPreview: true}
	PictureModeIncomingOnly = PictureMode{ShowIncoming: true}
)

// Valid reports whether at least one view is shown.
func (p PictureMode) Valid() bool { return p.ShowPreview || p.ShowIncoming }

// IsPip reports whether both views are shown.
func (p PictureMode) IsPip() bool { return p.ShowPreview && p.ShowIncoming }

func (p PictureMode) String() string {
	switch p {
	case PictureModePip:
		return "PIP"
	case PictureModePreviewOnly:
		return "PREVIEW_ONLY"
	case PictureModeIncomingOnly:
		return "INCOMING_ONLY"
	default:
		return "NONE"
	}
}

// ParsePictureMode converts a name back to a PictureMode.
func ParsePictureMode(s string) (PictureMode, error) {
	for _, p := range []PictureMode{PictureModePip, PictureModePreviewOnly, PictureModeIncomingOnly} {
		if strings.EqualFold(p.String(), s) {
			return p, nil
		}
	}
	return PictureMode{}, fmt.Errorf("%w: %q", ErrInvalidPictureMode, s)
}

// Size is a width and height in pixels.
type Size struct {
	Width  int
	Height int
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// IsZero reports whether either dimension is unset.
func (s Size) IsZero() bool { return s.Width <= 0 || s.Height <= 0 }

// Oriented returns s with the longer side horizontal in landscape and vertical in portrait.
func (s Size) Oriented(landscape bool) Size {
	if (s.Width > s.Height) != landscape && s.Width != s.Height {
		return Size{Width: s.Height, Height: s.Width}
	}
	return s
}

// ParseSize parses a "WxH" setting.
func ParseSize(s string) (Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Size{}, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return Size{}, fmt.Errorf("%w: %q: %v", ErrInvalidSize, s, err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return Size{}, fmt.Errorf("%w: %q: %v", ErrInvalidSize, s, err)
	}
	size := Size{Width: width, Height: height}
	if size.IsZero() {
		return Size{}, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}
	return size, nil
}

// LayoutKind is how the preview view is shaped.
type LayoutKind int

const (
	// LayoutPip is the small circular overlay over the remote video.
	LayoutPip LayoutKind = iota
	LayoutFullscreen
)

func (k LayoutKind) String() string {
	switch k {
	case LayoutPip:
		return "PIP"
	case LayoutFullscreen:
		return "FULLSCREEN"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Layout describes the preview view. MatchParent means the view fills its
// container and Size is ignored.
type Layout struct {
	Kind        LayoutKind
	Size        Size
	MatchParent bool
}

func (l Layout) String() string {
	if l.MatchParent {
		return l.Kind.String() + "(match_parent)"
	}
	return l.Kind.String() + "(" + l.Size.String() + ")"
}

// PreviewLayout shapes the preview for a picture mode. camera is the last
// reported camera size; fixed is the optional configured preview size.
func PreviewLayout(mode PictureMode, camera Size, fixed *Size, landscape bool) Layout {
	if mode.IsPip() {
		size := camera
		if fixed != nil {
			size = clamp(size, *fixed)
		}
		return Layout{Kind: LayoutPip, Size: size.Oriented(landscape)}
	}
	if fixed != nil {
		return Layout{Kind: LayoutFullscreen, Size: fixed.Oriented(landscape)}
	}
	return Layout{Kind: LayoutFullscreen, MatchParent: true}
}

// clamp bounds s by max, ignoring orientation. An unset s takes max.
func clamp(s, max Size) Size {
	if s.IsZero() {
		return max
	}
	long, short := s.Width, s.Height
	if short > long {
		long, short = short, long
	}
	maxLong, maxShort := max.Width, max.Height
	if maxShort > maxLong {
		maxLong, maxShort = maxShort, maxLong
	}
	if long > maxLong {
		long = maxLong
	}
	if short > maxShort {
		short = maxShort
	}
	return Size{Width: long, Height: short}
}
