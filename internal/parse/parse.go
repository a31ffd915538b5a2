// Package parse turns raw kernel log bytes into model entries. Each backend
// wire format has its own parser; both are line-fed accumulators because a
// logical message can span several physical lines (embedded newlines in the
// klogctl buffer, continuation and fragment lines on /dev/kmsg).
package parse

import "github.com/starlab-io/rmesg/internal/model"

// Parser accumulates lines into entries. Feed returns the entry sealed by
// this line, if the line completed one; Flush seals and returns whatever is
// pending when the input is known to be at a record boundary (end of a
// dump, or the device reported no more data).
type Parser interface {
	Feed(line string) *model.Entry
	Flush() *model.Entry
	// Dropped counts lines that could not be parsed or attached and were
	// discarded (their raw text goes to the debug log).
	Dropped() int
}
