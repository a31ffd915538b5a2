package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starlab-io/rmesg/internal/backend"
	"github.com/starlab-io/rmesg/internal/parse"
)

type step struct {
	data []byte
	err  error
}

// scriptReader plays back a canned sequence of Next results. When the
// script runs out it reports no data and, if set, fires onDrained so
// follow-mode tests can cancel the stream.
type scriptReader struct {
	steps     []step
	native    bool
	closes    int
	onDrained func()
}

func (r *scriptReader) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(r.steps) == 0 {
		if r.onDrained != nil {
			r.onDrained()
		}
		return nil, backend.ErrNoData
	}
	s := r.steps[0]
	r.steps = r.steps[1:]
	return s.data, s.err
}

func (r *scriptReader) Name() string         { return "script" }
func (r *scriptReader) NativeFollow() bool   { return r.native }
func (r *scriptReader) Parser() parse.Parser { return parse.NewKmsg(time.Time{}) }
func (r *scriptReader) Close() error {
	r.closes++
	return nil
}

func collect(t *testing.T, ch <-chan Item) []Item {
	t.Helper()
	var items []Item
	timeout := time.After(5 * time.Second)
	for {
		select {
		case item, ok := <-ch:
			if !ok {
				return items
			}
			items = append(items, item)
		case <-timeout:
			t.Fatal("stream did not finish in time")
		}
	}
}

func TestOneShotDrain(t *testing.T) {
	r := &scriptReader{steps: []step{
		{data: []byte("6,1,0,-;first\n6,2,0,-;second\n")},
	}}
	c := New(r, Config{})

	items := collect(t, c.Items(context.Background()))
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}
	if items[0].Entry == nil || items[0].Entry.Message != "first" {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[1].Entry == nil || items[1].Entry.Message != "second" {
		t.Fatalf("unexpected second item: %+v", items[1])
	}
	if c.State() != Closed {
		t.Fatalf("expected Closed after channel close, got %v", c.State())
	}
	if r.closes != 1 {
		t.Fatalf("reader must be closed exactly once, got %d", r.closes)
	}
}

func TestOneShotFlushesPendingEntry(t *testing.T) {
	r := &scriptReader{steps: []step{
		{data: []byte("6,1,0,-;message\n SUBSYSTEM=usb\n")},
	}}
	c := New(r, Config{})

	items := collect(t, c.Items(context.Background()))
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	e := items[0].Entry
	if e == nil || e.Message != "message" {
		t.Fatalf("unexpected item: %+v", items[0])
	}
	if e.Continuation["SUBSYSTEM"] != "usb" {
		t.Fatalf("expected continuation sealed at drain end, got %v", e.Continuation)
	}
}

func TestGapEmittedBeforeEntry(t *testing.T) {
	r := &scriptReader{steps: []step{
		{data: []byte("6,1,0,-;a\n6,5,0,-;b\n")},
	}}
	c := New(r, Config{})

	items := collect(t, c.Items(context.Background()))
	if len(items) != 3 {
		t.Fatalf("expected entry, gap, entry; got %d items: %+v", len(items), items)
	}
	gap := items[1].Gap
	if gap == nil {
		t.Fatalf("expected a gap as second item, got %+v", items[1])
	}
	if gap.Missed != 3 || gap.Before != 1 || gap.After != 5 {
		t.Fatalf("unexpected gap: %+v", gap)
	}
	if items[2].Entry == nil || items[2].Entry.Seq == nil || *items[2].Entry.Seq != 5 {
		t.Fatalf("expected the revealing entry after the gap, got %+v", items[2])
	}
}

func TestFragmentMergeNoFalseGap(t *testing.T) {
	r := &scriptReader{steps: []step{
		{data: []byte("4,10,0,c;first \n4,11,0,-;rest\n6,12,0,-;next\n")},
	}}
	c := New(r, Config{})

	items := collect(t, c.Items(context.Background()))
	if len(items) != 2 {
		t.Fatalf("expected 2 entries, got %d items: %+v", len(items), items)
	}
	for _, item := range items {
		if item.Gap != nil {
			t.Fatalf("absorbed fragment sequence must not read as a skip, got gap %+v", item.Gap)
		}
	}
	if items[0].Entry.Message != "first rest" || items[1].Entry.Message != "next" {
		t.Fatalf("unexpected entries: %+v", items)
	}
}

func TestGapAfterFragmentMerge(t *testing.T) {
	r := &scriptReader{steps: []step{
		{data: []byte("4,10,0,c;first \n4,11,0,-;rest\n6,15,0,-;later\n")},
	}}
	c := New(r, Config{})

	items := collect(t, c.Items(context.Background()))
	if len(items) != 3 {
		t.Fatalf("expected entry, gap, entry; got %d items: %+v", len(items), items)
	}
	gap := items[1].Gap
	if gap == nil {
		t.Fatalf("expected a gap as second item, got %+v", items[1])
	}
	if gap.Missed != 3 || gap.Before != 11 || gap.After != 15 {
		t.Fatalf("gap must count from the absorbed sequence, got %+v", gap)
	}
}

func TestConsecutiveSequencesNoGap(t *testing.T) {
	r := &scriptReader{steps: []step{
		{data: []byte("6,1,0,-;a\n6,2,0,-;b\n6,3,0,-;c\n")},
	}}
	c := New(r, Config{})

	for _, item := range collect(t, c.Items(context.Background())) {
		if item.Gap != nil {
			t.Fatalf("unexpected gap: %+v", item.Gap)
		}
	}
}

func TestFollowDeliversAfterWouldBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &scriptReader{
		native: true,
		steps: []step{
			{data: []byte("6,1,0,-;backlog\n")},
			{err: backend.ErrNoData},
			{data: []byte("6,2,0,-;live\n")},
		},
		onDrained: cancel,
	}
	c := New(r, Config{Follow: true})

	items := collect(t, c.Items(ctx))
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}
	if items[0].Entry.Message != "backlog" || items[1].Entry.Message != "live" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if c.State() != Closed {
		t.Fatalf("expected Closed, got %v", c.State())
	}
	if r.closes != 1 {
		t.Fatalf("reader must be closed exactly once, got %d", r.closes)
	}
}

func TestFollowEmulatedPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &scriptReader{
		steps: []step{
			{err: backend.ErrNoData},
			{data: []byte("6,1,0,-;polled\n")},
		},
		onDrained: cancel,
	}
	c := New(r, Config{Follow: true, PollInterval: time.Millisecond})

	items := collect(t, c.Items(ctx))
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d: %+v", len(items), items)
	}
	if items[0].Entry.Message != "polled" {
		t.Fatalf("unexpected item: %+v", items[0])
	}
}

func TestFatalErrorFlushesThenFails(t *testing.T) {
	boom := errors.New("boom")
	r := &scriptReader{steps: []step{
		{data: []byte("6,1,0,-;kept\n EXTRA=1\n")},
		{err: boom},
	}}
	c := New(r, Config{})

	items := collect(t, c.Items(context.Background()))
	if len(items) != 2 {
		t.Fatalf("expected entry then error, got %d items: %+v", len(items), items)
	}
	if items[0].Entry == nil || items[0].Entry.Message != "kept" {
		t.Fatalf("expected the pending entry flushed first, got %+v", items[0])
	}
	if !errors.Is(items[1].Err, boom) {
		t.Fatalf("expected the reader error last, got %+v", items[1])
	}
	if c.State() != Closed {
		t.Fatalf("expected Closed, got %v", c.State())
	}
}

func TestCancellationDeliversRecordInHand(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The reader cancels the stream the moment it runs dry, so the entry
	// read just before must still come out on every run.
	r := &scriptReader{
		native:    true,
		steps:     []step{{data: []byte("6,1,0,-;held\n")}},
		onDrained: cancel,
	}
	c := New(r, Config{Follow: true})

	items := collect(t, c.Items(ctx))
	if len(items) != 1 {
		t.Fatalf("expected the fully read record delivered, got %d items: %+v", len(items), items)
	}
	if items[0].Entry == nil || items[0].Entry.Message != "held" {
		t.Fatalf("unexpected item: %+v", items[0])
	}
	if c.State() != Closed {
		t.Fatalf("expected Closed, got %v", c.State())
	}
}

func TestCancelledContextEndsQuietly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &scriptReader{steps: []step{
		{data: []byte("6,1,0,-;never delivered\n")},
	}}
	c := New(r, Config{Follow: true})

	items := collect(t, c.Items(ctx))
	for _, item := range items {
		if item.Err != nil {
			t.Fatalf("cancellation must not surface as a stream error, got %v", item.Err)
		}
	}
	if c.State() != Closed {
		t.Fatalf("expected Closed, got %v", c.State())
	}
}

func TestRawModeBypassesParsing(t *testing.T) {
	r := &scriptReader{steps: []step{
		{data: []byte("6,1,0,-;verbatim\nnot a record\n")},
	}}
	c := New(r, Config{Raw: true})

	items := collect(t, c.Items(context.Background()))
	if len(items) != 2 {
		t.Fatalf("expected 2 raw items, got %d", len(items))
	}
	if items[0].Entry.Raw != "6,1,0,-;verbatim" || items[0].Entry.Message != "6,1,0,-;verbatim" {
		t.Fatalf("unexpected raw item: %+v", items[0].Entry)
	}
	if items[1].Entry.Raw != "not a record" {
		t.Fatalf("unexpected raw item: %+v", items[1].Entry)
	}
}

func TestStateString(t *testing.T) {
	pairs := map[State]string{
		Draining:  "draining",
		Following: "following",
		Closed:    "closed",
		State(9):  "unknown",
	}
	for s, want := range pairs {
		if got := s.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
