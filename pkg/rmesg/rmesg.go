package rmesg

import (
	"context"
	"errors"
	"strings"

	"github.com/starlab-io/rmesg/internal/backend"
	"github.com/starlab-io/rmesg/internal/stream"

	// Register backend implementations.
	_ "github.com/starlab-io/rmesg/internal/backend/klog"
	_ "github.com/starlab-io/rmesg/internal/backend/kmsg"
)

// Backends lists the available backend identifiers.
func Backends() []string {
	return backend.Names()
}

// Stream opens a kernel log stream and returns its item channel. The
// sequence is finite for one-shot mode (the default) and runs until ctx
// is cancelled or a fatal reader error occurs in follow mode
// (WithFollow). The channel closes once the stream is done; entries
// already read when cancellation hits are finished, never truncated.
func Stream(ctx context.Context, opts ...Option) (<-chan Item, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r, err := backend.Open(o.backend, backend.Options{
		KmsgPath: o.kmsgPath,
		Follow:   o.follow,
	})
	if err != nil {
		return nil, err
	}

	coord := stream.New(r, stream.Config{
		Follow:       o.follow,
		Raw:          o.raw,
		PollInterval: o.pollInterval,
	})

	items := coord.Items(ctx)
	out := make(chan Item, 64)
	go func() {
		defer close(out)
		for item := range items {
			pub := Item{Err: item.Err}
			if item.Entry != nil {
				pub.Entry = entryFromModel(item.Entry)
			}
			if item.Gap != nil {
				pub.Gap = gapFromModel(item.Gap)
			}
			// Non-blocking first so items already in hand are delivered
			// even after cancellation.
			select {
			case out <- pub:
				continue
			default:
			}
			select {
			case out <- pub:
			case <-ctx.Done():
				// Drain so the coordinator can wind down and release the
				// kernel handle.
				for range items {
				}
				return
			}
		}
	}()
	return out, nil
}

// Entries dumps everything currently buffered and returns it parsed, in
// order. A malformed record never aborts the dump; a fatal reader error
// returns the entries collected so far alongside the error.
func Entries(ctx context.Context, opts ...Option) ([]Entry, error) {
	items, err := Stream(ctx, append(opts, withOneShot())...)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for item := range items {
		switch {
		case item.Err != nil:
			return entries, item.Err
		case item.Entry != nil:
			entries = append(entries, *item.Entry)
		}
	}
	return entries, nil
}

// Raw dumps the current buffer unparsed. Line boundaries and record
// prefixes come back exactly as the kernel produced them.
func Raw(ctx context.Context, opts ...Option) (string, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r, err := backend.Open(o.backend, backend.Options{KmsgPath: o.kmsgPath})
	if err != nil {
		return "", err
	}
	defer r.Close()

	var b strings.Builder
	for {
		data, err := r.Next(ctx)
		if err != nil {
			if errors.Is(err, backend.ErrNoData) {
				return b.String(), nil
			}
			return b.String(), err
		}
		b.Write(data)
	}
}

// withOneShot forces follow off regardless of caller options.
func withOneShot() Option {
	return func(o *options) { o.follow = false }
}
