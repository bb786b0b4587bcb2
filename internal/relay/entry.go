package relay

import "time"

// Tag classifies an entry for display.
type Tag string

const (
	TagInfo    Tag = "info"
	TagSuccess Tag = "success"
	TagError   Tag = "error"
)

// Kind names the call that produced an entry.
type Kind string

const (
	KindRegister Kind = "register"
	KindFault    Kind = "fault"
)

// Entry is one human-readable outcome line destined for the event log.
type Entry struct {
	Seq  uint64
	ID   string
	Kind Kind
	Tag  Tag
	Text string
	Time time.Time
}

// IsOutcome reports whether the entry is a terminal result of a call rather
// than an informational line.
func (e Entry) IsOutcome() bool {
	return e.Tag == TagSuccess || e.Tag == TagError
}
