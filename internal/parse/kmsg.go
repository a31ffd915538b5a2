package parse

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/starlab-io/rmesg/internal/model"
)

// kmsgPrefix matches the /dev/kmsg record prefix up to the terminating
// semicolon: pri,seq,usec,flags[,...];message. Extra comma-separated fields
// after the flags are reserved by the kernel and ignored.
var kmsgPrefix = regexp.MustCompile(`^\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*,([^;]*);(.*)$`)

var contKV = regexp.MustCompile(`^(\w+)=(.*)$`)

// Kmsg parses /dev/kmsg records. Primary lines open an entry; lines
// prefixed with a single space fold into the pending entry, either as
// KEY=value continuation metadata or as extra message text. A primary line
// whose flags mark it a fragment ('c') stays open and the next primary
// line's message is concatenated onto it, so the pair resolves as one
// entry.
type Kmsg struct {
	ref     time.Time
	pending *model.Entry
	frag    bool
	dropped int
}

// NewKmsg creates a parser whose record timestamps (microseconds on the
// device's clock) are resolved against ref.
func NewKmsg(ref time.Time) *Kmsg {
	return &Kmsg{ref: ref}
}

func (p *Kmsg) Feed(line string) *model.Entry {
	if strings.HasPrefix(line, " ") {
		p.continuation(line[1:])
		return nil
	}

	m := kmsgPrefix.FindStringSubmatch(line)
	if m == nil {
		p.dropped++
		slog.Debug("skipping malformed kmsg record", "raw", line)
		return nil
	}

	pri, _ := strconv.Atoi(m[1])
	seq, _ := strconv.ParseUint(m[2], 10, 64)
	usec, _ := strconv.ParseUint(m[3], 10, 63)
	flags := strings.TrimSpace(strings.SplitN(m[4], ",", 2)[0])
	msg := decodeEscapes(m[5])

	if p.frag && p.pending != nil {
		// Fragment still open: this record carries the rest of the same
		// message. The first record's header wins, but the absorbed
		// sequence still counts as observed and the raw line is kept.
		p.pending.Message += msg
		p.pending.Raw += "\n" + line
		end := seq
		p.pending.SeqEnd = &end
		p.frag = flags == "c"
		return nil
	}

	sealed := p.pending

	facility, level := model.DecodePriority(pri)
	t := p.ref.Add(time.Duration(usec) * time.Microsecond)
	s := seq
	p.pending = &model.Entry{
		Facility: facility,
		Level:    level,
		Time:     &t,
		Seq:      &s,
		Message:  msg,
		Raw:      line,
	}
	p.frag = flags == "c"

	return sealed
}

func (p *Kmsg) Flush() *model.Entry {
	sealed := p.pending
	p.pending = nil
	p.frag = false
	return sealed
}

func (p *Kmsg) Dropped() int {
	return p.dropped
}

func (p *Kmsg) continuation(body string) {
	if p.pending == nil {
		p.dropped++
		slog.Debug("skipping kmsg continuation line with no record to attach to", "raw", body)
		return
	}
	if kv := contKV.FindStringSubmatch(body); kv != nil {
		if p.pending.Continuation == nil {
			p.pending.Continuation = make(map[string]string)
		}
		p.pending.Continuation[kv[1]] = decodeEscapes(kv[2])
		return
	}
	p.pending.Message += "\n" + decodeEscapes(body)
}

// decodeEscapes expands the \xHH sequences the kernel uses for control
// characters and non-printable bytes in /dev/kmsg output.
func decodeEscapes(s string) string {
	if !strings.Contains(s, `\x`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] == '\\' && i+3 < len(s) && s[i+1] == 'x' {
			if v, err := strconv.ParseUint(s[i+2:i+4], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 4
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}
