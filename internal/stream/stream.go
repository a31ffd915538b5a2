// Package stream drives a backend reader through a one-shot drain or a
// follow loop and yields parsed entries and gap events in order. The
// coordinator is a single sequential loop over one exclusively-owned
// reader; callers consume its channel concurrently with other work.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bitdabbler/backoff"

	"github.com/starlab-io/rmesg/internal/backend"
	"github.com/starlab-io/rmesg/internal/model"
	"github.com/starlab-io/rmesg/internal/parse"
)

// State is the coordinator's lifecycle phase.
type State int

const (
	// Draining pulls records until the reader reports no more data.
	Draining State = iota
	// Following waits out no-data conditions and keeps yielding.
	Following
	// Closed is terminal; the reader handle has been released.
	Closed
)

func (s State) String() string {
	switch s {
	case Draining:
		return "draining"
	case Following:
		return "following"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Item is one element of the output stream: exactly one of Entry, Gap or
// Err is set. An Err item is always the last one before the channel
// closes.
type Item struct {
	Entry *model.Entry
	Gap   *model.Gap
	Err   error
}

// Config carries per-session coordinator settings.
type Config struct {
	// Follow keeps the stream open after the initial drain.
	Follow bool
	// Raw skips parsing and yields each line as an entry verbatim.
	Raw bool
	// PollInterval paces follow-mode re-polls for backends without native
	// non-blocking reads. Defaults to DefaultPollInterval.
	PollInterval time.Duration
}

// DefaultPollInterval is the klogctl re-poll cadence. It is a tunable,
// not a contract; one second keeps CPU cost negligible while staying
// close to live.
const DefaultPollInterval = time.Second

// Coordinator owns a reader and its parser for the lifetime of one
// stream.
type Coordinator struct {
	reader backend.Reader
	parser parse.Parser
	cfg    Config

	mu      sync.Mutex
	state   State
	lastSeq *uint64
}

// New wraps a reader. The coordinator takes ownership: the reader is
// closed exactly once when the stream reaches Closed, error exits
// included.
func New(r backend.Reader, cfg Config) *Coordinator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Coordinator{
		reader: r,
		parser: r.Parser(),
		cfg:    cfg,
	}
}

// State reports the current lifecycle phase.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Items starts the coordinator loop and returns its output channel. The
// channel closes when the stream ends: after the drain in one-shot mode,
// or on cancellation or a fatal reader error in follow mode.
func (c *Coordinator) Items(ctx context.Context) <-chan Item {
	ch := make(chan Item, 64)
	go c.run(ctx, ch)
	return ch
}

func (c *Coordinator) run(ctx context.Context, ch chan<- Item) {
	defer close(ch)
	defer func() {
		if err := c.reader.Close(); err != nil {
			slog.Warn("closing backend reader", "backend", c.reader.Name(), "error", err)
		}
		c.setState(Closed)
	}()

	for {
		data, err := c.reader.Next(ctx)
		if err != nil {
			if errors.Is(err, backend.ErrNoData) {
				break
			}
			if ctx.Err() != nil {
				return
			}
			c.fail(ctx, ch, err)
			return
		}
		if !c.emitChunk(ctx, ch, data) {
			return
		}
	}
	if !c.emitFlush(ctx, ch) {
		return
	}
	if !c.cfg.Follow {
		return
	}

	c.setState(Following)
	var pace *backoff.Backoff
	for {
		if ctx.Err() != nil {
			return
		}
		data, err := c.reader.Next(ctx)
		switch {
		case errors.Is(err, backend.ErrNoData):
			if !c.emitFlush(ctx, ch) {
				return
			}
			if !c.wait(ctx, &pace) {
				return
			}
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			c.fail(ctx, ch, err)
			return
		default:
			pace = nil
			if !c.emitChunk(ctx, ch, data) {
				return
			}
		}
	}
}

// wait suspends until the next read attempt: a bounded exponential backoff
// for native-follow backends, the fixed poll interval for emulated ones.
// Neither path spins; both notice cancellation within one interval.
func (c *Coordinator) wait(ctx context.Context, pace **backoff.Backoff) bool {
	if c.reader.NativeFollow() {
		if *pace == nil {
			b, err := backoff.New(
				backoff.WithInitialDelay(10*time.Millisecond),
				backoff.WithExponentialLimit(time.Second),
			)
			if err == nil {
				*pace = b
			}
		}
		if *pace != nil {
			(*pace).Sleep()
			return ctx.Err() == nil
		}
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.cfg.PollInterval):
		return true
	}
}

// emitChunk feeds a chunk of complete lines through the parser and sends
// whatever entries it seals. The chunk in hand is always parsed fully;
// cancellation only stops delivery, never truncates a record into a
// partial entry.
func (c *Coordinator) emitChunk(ctx context.Context, ch chan<- Item, data []byte) bool {
	lines := strings.Split(string(data), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for _, line := range lines {
		if c.cfg.Raw {
			e := &model.Entry{Message: line, Raw: line}
			if !c.send(ctx, ch, Item{Entry: e}) {
				return false
			}
			continue
		}
		if e := c.parser.Feed(line); e != nil {
			if !c.emitEntry(ctx, ch, e) {
				return false
			}
		}
	}
	return true
}

// emitFlush seals the pending entry at a record boundary.
func (c *Coordinator) emitFlush(ctx context.Context, ch chan<- Item) bool {
	if c.cfg.Raw {
		return true
	}
	if e := c.parser.Flush(); e != nil {
		return c.emitEntry(ctx, ch, e)
	}
	return true
}

// emitEntry surfaces a sequence gap, if any, before the entry that
// revealed it, and tracks the highest sequence seen. A merged fragment
// entry keeps the first record's Seq but spans up to SeqEnd; tracking
// the span end keeps absorbed records from reading as skips.
func (c *Coordinator) emitEntry(ctx context.Context, ch chan<- Item, e *model.Entry) bool {
	if e.Seq != nil {
		if c.lastSeq != nil && *e.Seq > *c.lastSeq+1 {
			gap := &model.Gap{
				Missed: *e.Seq - *c.lastSeq - 1,
				Before: *c.lastSeq,
				After:  *e.Seq,
			}
			if !c.send(ctx, ch, Item{Gap: gap}) {
				return false
			}
		}
		end := *e.Seq
		if e.SeqEnd != nil && *e.SeqEnd > end {
			end = *e.SeqEnd
		}
		if c.lastSeq == nil || end > *c.lastSeq {
			seq := end
			c.lastSeq = &seq
		}
	}
	return c.send(ctx, ch, Item{Entry: e})
}

func (c *Coordinator) fail(ctx context.Context, ch chan<- Item, err error) {
	c.emitFlush(ctx, ch)
	c.send(ctx, ch, Item{Err: err})
}

// send delivers the item, trying a non-blocking send first so an item in
// hand reaches the channel even after cancellation; blocking on a full
// channel is what cancellation interrupts.
func (c *Coordinator) send(ctx context.Context, ch chan<- Item, item Item) bool {
	select {
	case ch <- item:
		return true
	default:
	}
	select {
	case ch <- item:
		return true
	case <-ctx.Done():
		return false
	}
}
