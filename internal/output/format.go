package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/starlab-io/rmesg/internal/model"
	"github.com/starlab-io/rmesg/internal/stream"
)

// Text renders one item the way dmesg would: a boot-offset prefix for
// klogctl entries, a wall-clock prefix for /dev/kmsg entries, and a marker
// line for gaps. Continuation metadata is listed indented under its entry,
// mirroring the device format.
func Text(item stream.Item) string {
	if item.Gap != nil {
		return fmt.Sprintf("** %d kernel messages dropped **", item.Gap.Missed)
	}
	e := item.Entry
	if e == nil {
		return ""
	}

	var b strings.Builder
	switch {
	case e.SinceBoot != nil:
		us := e.SinceBoot.Microseconds()
		fmt.Fprintf(&b, "[%5d.%06d] ", us/1e6, us%1e6)
	case e.Time != nil:
		b.WriteString(e.Time.Format(time.RFC3339Nano))
		b.WriteByte(' ')
	}
	b.WriteString(e.Message)

	if len(e.Continuation) > 0 {
		keys := make([]string, 0, len(e.Continuation))
		for k := range e.Continuation {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n  %s=%s", k, e.Continuation[k])
		}
	}
	return b.String()
}

// Record is the JSON shape of one item. Exactly one of Message (entry) or
// Dropped (gap) carries the payload.
type Record struct {
	Facility     string            `json:"facility,omitempty"`
	Level        string            `json:"level,omitempty"`
	Priority     *int              `json:"priority,omitempty"`
	SinceBootUs  *int64            `json:"since_boot_us,omitempty"`
	Time         *time.Time        `json:"time,omitempty"`
	Seq          *uint64           `json:"seq,omitempty"`
	Message      string            `json:"message,omitempty"`
	Continuation map[string]string `json:"continuation,omitempty"`
	Dropped      *uint64           `json:"dropped,omitempty"`
}

// ToRecord converts an item for JSON encoding.
func ToRecord(item stream.Item) Record {
	if item.Gap != nil {
		missed := item.Gap.Missed
		return Record{Dropped: &missed}
	}
	e := item.Entry
	if e == nil {
		return Record{}
	}
	pri := model.Priority(e.Facility, e.Level)
	rec := Record{
		Facility:     e.Facility.String(),
		Level:        e.Level.String(),
		Priority:     &pri,
		Time:         e.Time,
		Seq:          e.Seq,
		Message:      e.Message,
		Continuation: e.Continuation,
	}
	if e.SinceBoot != nil {
		us := e.SinceBoot.Microseconds()
		rec.SinceBootUs = &us
	}
	return rec
}
