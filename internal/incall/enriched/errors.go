package enriched

import "errors"

var (
	ErrUnknownCall   = errors.New("call has no enriched record")
	ErrNoData        = errors.New("call carries no enriched data")
	ErrNoLocation    = errors.New("enriched data has no valid location")
	ErrNoSharedImage = errors.New("enriched data has no shared image")
	ErrNoViewSize    = errors.New("map view has no size")
	ErrNoFetcher     = errors.New("no location image fetcher configured")
)
