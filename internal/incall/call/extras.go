package call

import (
	"fmt"
	"strconv"
)

// Well-known extras keys set by the carrier stack.
const (
	ExtraPhoneID              = "phoneId"
	ExtraTransferCapabilities = "transferCapabilities"
	ExtraOrientationMode      = "OrientationMode"
	ExtraEnrichedCall         = "enrich_call_intent_extra"
)

// OrientationMode is the carrier-provided orientation hint.
type OrientationMode int

const (
	OrientationModeUnspecified OrientationMode = -1
	OrientationModeLandscape   OrientationMode = 1
	OrientationModePortrait    OrientationMode = 2
	OrientationModeDynamic     OrientationMode = 3
)

func (m OrientationMode) String() string {
	switch m {
	case OrientationModeUnspecified:
		return "UNSPECIFIED"
	case OrientationModeLandscape:
		return "LANDSCAPE"
	case OrientationModePortrait:
		return "PORTRAIT"
	case OrientationModeDynamic:
		return "DYNAMIC"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// TransferType is a single call-transfer variant. The transfer-capabilities
// extra is a bitmask of these.
type TransferType int

const (
	TransferBlind        TransferType = 1
	TransferAssured      TransferType = 2
	TransferConsultative TransferType = 4
)

func (t TransferType) String() string {
	switch t {
	case TransferBlind:
		return "BLIND"
	case TransferAssured:
		return "ASSURED"
	case TransferConsultative:
		return "CONSULTATIVE"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// ParseTransferType converts a name back to a TransferType.
func ParseTransferType(s string) (TransferType, error) {
	for _, t := range []TransferType{TransferBlind, TransferAssured, TransferConsultative} {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: transfer type %q", ErrUnknownValue, s)
}

// Extras is the carrier-specific key/value bag attached to a call.
// Values are whatever the host decoded: strings, numbers, booleans or nested Extras.
type Extras map[string]any

// Int returns the integer value for key, or def when absent or not numeric.
func (e Extras) Int(key string, def int) int {
	v, ok := e[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return def
}

// Float returns the float value for key.
func (e Extras) Float(key string) (float64, bool) {
	v, ok := e[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// String returns the string value for key, or "" if absent.
func (e Extras) String(key string) string {
	if s, ok := e[key].(string); ok {
		return s
	}
	return ""
}

// Bundle returns a nested extras bag stored under key.
func (e Extras) Bundle(key string) (Extras, bool) {
	switch b := e[key].(type) {
	case Extras:
		return b, true
	case map[string]any:
		return Extras(b), true
	}
	return nil, false
}

// Equal compares two extras bags by their printed values.
func (e Extras) Equal(other Extras) bool {
	if len(e) != len(other) {
		return false
	}
	for k, v := range e {
		ov, ok := other[k]
		if !ok {
			return false
		}
		if ob, isBundle := ov.(map[string]any); isBundle {
			ov = Extras(ob)
		}
		if vb, isBundle := v.(map[string]any); isBundle {
			v = Extras(vb)
		}
		if vb, isBundle := v.(Extras); isBundle {
			ob, ok := ov.(Extras)
			if !ok || !vb.Equal(ob) {
				return false
			}
			continue
		}
		if fmt.Sprint(v) != fmt.Sprint(ov) {
			return false
		}
	}
	return true
}
