package events

import "fmt"

// Subject naming.
//
// Hierarchy:
//   incall.calls.<call_id>.<event_type>   - Per-call events
//   incall.core.<event_type>              - Events without a call (primary cleared, menu emptied)

const (
	// SubjectPrefix is the root of all in-call subjects
	SubjectPrefix = "incall"

	SubjectCalls = SubjectPrefix + ".calls"
	SubjectCore  = SubjectPrefix + ".core"
)

// CallSubject builds a subject for an event.
// Example: CallSubject("c1", PrimaryChanged) => "incall.calls.c1.primary.changed"
func CallSubject(callID string, eventType EventType) string {
	if callID == "" {
		return fmt.Sprintf("%s.%s", SubjectCore, eventType)
	}
	return fmt.Sprintf("%s.%s.%s", SubjectCalls, callID, eventType)
}
