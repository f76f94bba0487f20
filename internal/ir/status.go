package ir

import "fmt"

// Status is the validation status of a control.
type Status int

const (
	// StatusUnknown is the zero value, projected when no node is bound.
	StatusUnknown Status = iota
	StatusValid
	StatusInvalid
	StatusPending
	StatusDisabled
)

var statusNames = map[Status]string{
	StatusUnknown:  "",
	StatusValid:    "VALID",
	StatusInvalid:  "INVALID",
	StatusPending:  "PENDING",
	StatusDisabled: "DISABLED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus parses the upper-case status name. The empty string parses
// as StatusUnknown.
func ParseStatus(s string) (Status, error) {
	for st, name := range statusNames {
		if name == s {
			return st, nil
		}
	}
	return StatusUnknown, fmt.Errorf("unknown status %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	st, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Kind tags the three node shapes.
type Kind int

const (
	KindLeaf Kind = iota
	KindGroup
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindGroup:
		return "group"
	case KindList:
		return "list"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind parses "leaf", "group" or "list".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "leaf", "":
		return KindLeaf, nil
	case "group":
		return KindGroup, nil
	case "list":
		return KindList, nil
	}
	return KindLeaf, fmt.Errorf("unknown kind %q", s)
}

// Composite reports whether the kind has children.
func (k Kind) Composite() bool {
	return k == KindGroup || k == KindList
}

// EventKind identifies which axis of a node changed.
type EventKind uint8

const (
	EventValue EventKind = 1 << iota
	EventStatus
	EventTouched
	EventPristine
)

// EventMask selects a set of event kinds for a subscription.
type EventMask = EventKind

// EventAll matches every event kind.
const EventAll EventMask = EventValue | EventStatus | EventTouched | EventPristine

func (k EventKind) String() string {
	switch k {
	case EventValue:
		return "value"
	case EventStatus:
		return "status"
	case EventTouched:
		return "touched"
	case EventPristine:
		return "pristine"
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// Event is a change notification emitted by a node.
// Source is the node where the change originated; ancestors re-emit the
// same event to their own subscribers.
type Event struct {
	Kind   EventKind
	Source Node
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
