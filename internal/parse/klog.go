package parse

import (
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/starlab-io/rmesg/internal/model"
)

// klogLine matches the klogctl buffer format: <pri>[secs.usecs] message.
// The timestamp block is absent when the kernel's printk time option is
// off, so it is optional here.
var klogLine = regexp.MustCompile(`^\s*<(\d+)>(?:\[\s*(\d+)\.(\d+)\])?\s?(.*)$`)

// Klog parses lines read from the klogctl syscall buffer. A line that does
// not carry a priority prefix is an embedded newline in the previous
// message and is appended to it; if there is no previous message the line
// is dropped.
type Klog struct {
	pending *model.Entry
	dropped int
}

func NewKlog() *Klog {
	return &Klog{}
}

func (p *Klog) Feed(line string) *model.Entry {
	m := klogLine.FindStringSubmatch(line)
	if m == nil {
		if p.pending == nil {
			p.dropped++
			slog.Debug("dropping kernel log line with no entry to attach to", "raw", line)
			return nil
		}
		p.pending.Message += "\n" + line
		return nil
	}

	sealed := p.pending

	pri, _ := strconv.Atoi(m[1])
	facility, level := model.DecodePriority(pri)

	e := &model.Entry{
		Facility: facility,
		Level:    level,
		Message:  m[4],
		Raw:      line,
	}
	if m[2] != "" {
		since := bootOffset(m[2], m[3])
		e.SinceBoot = &since
	}
	p.pending = e

	return sealed
}

func (p *Klog) Flush() *model.Entry {
	sealed := p.pending
	p.pending = nil
	return sealed
}

func (p *Klog) Dropped() int {
	return p.dropped
}

// bootOffset converts "secs" and a fractional-second field to a duration.
// The kernel prints exactly six fractional digits; tolerate fewer or more.
func bootOffset(secs, frac string) time.Duration {
	s, _ := strconv.ParseInt(secs, 10, 64)
	if len(frac) > 6 {
		frac = frac[:6]
	}
	for len(frac) < 6 {
		frac += "0"
	}
	us, _ := strconv.ParseInt(frac, 10, 64)
	return time.Duration(s)*time.Second + time.Duration(us)*time.Microsecond
}
