package model

import "time"

// Entry is one parsed kernel log message.
//
// The two kernel interfaces stamp time against different references: the
// klogctl buffer carries an offset since boot, /dev/kmsg records resolve to
// wall-clock time once anchored at open. Whichever the backend provided is
// set; the other stays nil. They are never converted into each other here.
type Entry struct {
	Facility Facility
	Level    Level

	// SinceBoot is the monotonic offset from the klogctl line prefix.
	SinceBoot *time.Duration
	// Time is the wall-clock timestamp of a /dev/kmsg record.
	Time *time.Time
	// Seq is the kernel sequence number; only /dev/kmsg provides one.
	Seq *uint64
	// SeqEnd is the highest sequence number folded into the entry. Set
	// only when fragment records were merged; the merged entry keeps the
	// first record's Seq but every absorbed record still counts as
	// observed for gap accounting.
	SeqEnd *uint64

	Message string
	// Continuation holds KEY=value metadata lines attached to a /dev/kmsg
	// record (SUBSYSTEM, DEVICE, ...). Nil for klogctl entries.
	Continuation map[string]string
	// Raw is the unparsed primary line, kept for diagnostics. Fragment
	// merges append each absorbed record's line, newline-joined.
	Raw string
}

// Gap reports that the kernel discarded Missed messages between sequence
// numbers Before and After because the ring buffer overflowed. It is a
// stream event of its own, not an Entry.
type Gap struct {
	Missed uint64
	Before uint64
	After  uint64
}
