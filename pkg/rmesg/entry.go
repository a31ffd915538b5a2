package rmesg

import (
	"time"

	"github.com/starlab-io/rmesg/internal/model"
)

// Entry is one kernel log message.
type Entry struct {
	// Facility is the syslog category name ("kern", "user", ...), or
	// "facility(N)" for values outside the named range.
	Facility string
	// Level is the severity name ("emerg" through "debug").
	Level string
	// Priority is the raw combined field the kernel emitted:
	// facility<<3 | level.
	Priority int

	// SinceBoot is the monotonic offset stamped by the klogctl backend;
	// nil for /dev/kmsg entries.
	SinceBoot *time.Duration
	// Time is the wall-clock timestamp resolved by the /dev/kmsg backend;
	// nil for klogctl entries.
	Time *time.Time
	// Seq is the kernel sequence number; only /dev/kmsg provides one.
	Seq *uint64

	Message string
	// Continuation holds KEY=value metadata attached to a /dev/kmsg
	// record (SUBSYSTEM, DEVICE, ...).
	Continuation map[string]string
	// Raw is the unparsed primary line.
	Raw string
}

// Gap reports that the kernel discarded Missed messages between sequence
// numbers Before and After.
type Gap struct {
	Missed uint64
	Before uint64
	After  uint64
}

// Item is one element of a streamed log: exactly one of Entry, Gap or Err
// is set. An Err item is always the last before the channel closes.
type Item struct {
	Entry *Entry
	Gap   *Gap
	Err   error
}

func entryFromModel(e *model.Entry) *Entry {
	return &Entry{
		Facility:     e.Facility.String(),
		Level:        e.Level.String(),
		Priority:     model.Priority(e.Facility, e.Level),
		SinceBoot:    e.SinceBoot,
		Time:         e.Time,
		Seq:          e.Seq,
		Message:      e.Message,
		Continuation: e.Continuation,
		Raw:          e.Raw,
	}
}

func gapFromModel(g *model.Gap) *Gap {
	return &Gap{Missed: g.Missed, Before: g.Before, After: g.After}
}
