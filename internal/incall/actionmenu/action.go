// Package actionmenu derives the overflow action menu for the primary call and
// dispatches the user's selections to the host and carrier.
package actionmenu

import (
	"fmt"
	"strings"
)

// ActionID identifies a menu entry. Display labels are kept separate from identity.
type ActionID int

const (
	ActionAddParticipant ActionID = iota
	ActionDeflect
	ActionTransfer
	ActionManageConference
	ActionHideMe
	ActionShowMe
	ActionDialpad
	ActionAcceptAsVideoTx
	ActionAcceptAsVideoRx
	ActionModifyCall
	ActionPipMode
	ActionCancelModifyCall
)

var actionNames = map[ActionID]string{
	ActionAddParticipant:   "ADD_PARTICIPANT",
	ActionDeflect:          "DEFLECT",
	ActionTransfer:         "TRANSFER",
	ActionManageConference: "MANAGE_CONFERENCE",
	ActionHideMe:           "HIDE_ME",
	ActionShowMe:           "SHOW_ME",
	ActionDialpad:          "DIALPAD",
	ActionAcceptAsVideoTx:  "ACCEPT_AS_VIDEO_TX",
	ActionAcceptAsVideoRx:  "ACCEPT_AS_VIDEO_RX",
	ActionModifyCall:       "MODIFY_CALL",
	ActionPipMode:          "PIP_MODE",
	ActionCancelModifyCall: "CANCEL_MODIFY_CALL",
}

var actionLabels = map[ActionID]string{
	ActionAddParticipant:   "Add participant",
	ActionDeflect:          "Deflect call",
	ActionTransfer:         "Transfer call",
	ActionManageConference: "Manage conference",
	ActionHideMe:           "Hide me",
	ActionShowMe:           "Show me",
	ActionDialpad:          "Dialpad",
	ActionAcceptAsVideoTx:  "Accept as video (send only)",
	ActionAcceptAsVideoRx:  "Accept as video (receive only)",
	ActionModifyCall:       "Modify call",
	ActionPipMode:          "Picture mode",
	ActionCancelModifyCall: "Cancel upgrade",
}

func (a ActionID) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return fmt.Sprintf("Unknown(%d)", a)
}

// Label returns the user-facing text for the action.
func (a ActionID) Label() string {
	return actionLabels[a]
}

// ParseActionID converts a name back to an ActionID.
func ParseActionID(s string) (ActionID, error) {
	for id, n := range actionNames {
		if strings.EqualFold(n, s) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Entry is one menu row.
type Entry struct {
	ID      ActionID
	Enabled bool
}

// Menu is the ordered action menu. Every entry is present; disabled entries
// stay in place.
type Menu []Entry

// Lookup returns whether id is present and enabled.
func (m Menu) Lookup(id ActionID) (enabled, present bool) {
	for _, e := range m {
		if e.ID == id {
			return e.Enabled, true
		}
	}
	return false, false
}

// IsEnabled returns true if id is present and enabled.
func (m Menu) IsEnabled(id ActionID) bool {
	enabled, _ := m.Lookup(id)
	return enabled
}

// Equal compares two menus entry by entry.
func (m Menu) Equal(other Menu) bool {
	if len(m) != len(other) {
		return false
	}
	for i := range m {
		if m[i] != other[i] {
			return false
		}
	}
	return true
}

// EnabledIDs returns the enabled actions in menu order.
func (m Menu) EnabledIDs() []ActionID {
	var out []ActionID
	for _, e := range m {
		if e.Enabled {
			out = append(out, e.ID)
		}
	}
	return out
}

// Names returns enabled and disabled action names, for logging.
func (m Menu) Names() (enabled, disabled []string) {
	for _, e := range m {
		if e.Enabled {
			enabled = append(enabled, e.ID.String())
		} else {
			disabled = append(disabled, e.ID.String())
		}
	}
	return enabled, disabled
}

// OptionsPerRow is how many options the bottom sheet lays out per row.
const OptionsPerRow = 4

// Rows groups the enabled entries into rows of perRow for the bottom sheet.
func (m Menu) Rows(perRow int) [][]ActionID {
	if perRow <= 0 {
		perRow = OptionsPerRow
	}
	var rows [][]ActionID
	var row []ActionID
	for _, id := range m.EnabledIDs() {
		row = append(row, id)
		if len(row) == perRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}
