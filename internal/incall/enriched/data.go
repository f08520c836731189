// Package enriched binds out-of-band call composer data (subject, priority,
// location, shared image) to live calls and drives its presentation.
package enriched

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/sebas/incallcore/internal/incall/call"
)

// Keys inside the enriched-call extras bundle.
const (
	KeySubject   = "subject"
	KeyPriority  = "priority"
	KeyLatitude  = "latitude"
	KeyLongitude = "longitude"
	KeyImageURI  = "image_uri"
	KeyCallState = "call_state"
)

// Priority is the caller-chosen urgency.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityNormal:
		return "NORMAL"
	case PriorityHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

func parsePriority(e call.Extras) Priority {
	if strings.EqualFold(e.String(KeyPriority), PriorityHigh.String()) {
		return PriorityHigh
	}
	if Priority(e.Int(KeyPriority, int(PriorityNormal))) == PriorityHigh {
		return PriorityHigh
	}
	return PriorityNormal
}

// Status is the enriched session outcome reported by the carrier stack.
type Status int

const (
	StatusOK Status = iota
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// Location is a WGS84 position.
type Location struct {
	Lat float64
	Lon float64
}

// Valid reports whether the coordinates are in range.
func (l Location) Valid() bool {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lon) {
		return false
	}
	return l.Lat >= -90 && l.Lat <= 90 && l.Lon >= -180 && l.Lon <= 180
}

// Data is the call composer payload of one call.
type Data struct {
	Subject  string
	Priority Priority
	Location *Location
	ImageURI string
	Status   Status
}

// IsValid reports whether there is anything to show.
func (d *Data) IsValid() bool {
	if d == nil {
		return false
	}
	return strings.TrimSpace(d.Subject) != "" || d.IsValidLocation() || d.IsValidSharedImage()
}

// IsValidLocation reports whether a usable location is present.
func (d *Data) IsValidLocation() bool {
	return d != nil && d.Location != nil && d.Location.Valid()
}

// IsValidSharedImage reports whether the shared image reference is a usable URI.
func (d *Data) IsValidSharedImage() bool {
	if d == nil || d.ImageURI == "" {
		return false
	}
	u, err := url.Parse(d.ImageURI)
	return err == nil && (u.Scheme != "" || u.Path != "")
}

// Equal compares two payloads field by field.
func (d *Data) Equal(o *Data) bool {
	if d == nil || o == nil {
		return d == o
	}
	if (d.Location == nil) != (o.Location == nil) {
		return false
	}
	if d.Location != nil && *d.Location != *o.Location {
		return false
	}
	return d.Subject == o.Subject &&
		d.Priority == o.Priority &&
		d.ImageURI == o.ImageURI &&
		d.Status == o.Status
}

// FromExtras decodes a composer bundle.
func FromExtras(e call.Extras) *Data {
	d := &Data{
		Subject:  e.String(KeySubject),
		Priority: parsePriority(e),
		ImageURI: strings.TrimSpace(e.String(KeyImageURI)),
	}
	if strings.EqualFold(e.String(KeyCallState), StatusFailed.String()) ||
		Status(e.Int(KeyCallState, int(StatusOK))) == StatusFailed {
		d.Status = StatusFailed
	}
	lat, latOK := e.Float(KeyLatitude)
	lon, lonOK := e.Float(KeyLongitude)
	if latOK && lonOK {
		d.Location = &Location{Lat: lat, Lon: lon}
	}
	return d
}

// Read returns the composer data of c. The call extras are consulted first,
// then the extras of the intent that placed the call. It returns nil when
// neither carries the bundle.
func Read(c *call.Call) *Data {
	if c == nil {
		return nil
	}
	if b, ok := c.Extras.Bundle(call.ExtraEnrichedCall); ok {
		return FromExtras(b)
	}
	if b, ok := c.IntentExtras.Bundle(call.ExtraEnrichedCall); ok {
		return FromExtras(b)
	}
	return nil
}

// GeoURI builds the map link opened when the location image is clicked.
func GeoURI(l Location) string {
	return fmt.Sprintf("geo:%f,%f?q=%f,%f", l.Lat, l.Lon, l.Lat, l.Lon)
}

// FileURI rewrites a shared image reference to a file URI for the image
// viewer, keeping its scheme-specific part.
func FileURI(ref string) string {
	if strings.HasPrefix(ref, "file") {
		return ref
	}
	if scheme, rest, ok := strings.Cut(ref, ":"); ok && scheme != "" && !strings.Contains(scheme, "/") {
		ref = rest
	}
	return "file://" + ref
}
