package stdout

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/starlab-io/rmesg/internal/output"
	"github.com/starlab-io/rmesg/internal/stream"
)

// Output writes entries to a stream, one per line: dmesg-style text or
// NDJSON depending on the configured format.
type Output struct {
	w    *bufio.Writer
	enc  *json.Encoder
	json bool
}

// New creates an Output writing to w. Format "json" selects NDJSON;
// anything else renders text.
func New(w io.Writer, format string) *Output {
	bw := bufio.NewWriter(w)
	return &Output{
		w:    bw,
		enc:  json.NewEncoder(bw),
		json: format == "json",
	}
}

func (o *Output) Write(_ context.Context, item stream.Item) error {
	if o.json {
		if err := o.enc.Encode(output.ToRecord(item)); err != nil {
			return fmt.Errorf("stdout output: %w", err)
		}
	} else {
		if _, err := fmt.Fprintln(o.w, output.Text(item)); err != nil {
			return fmt.Errorf("stdout output: %w", err)
		}
	}
	// Flush per item: follow mode can sit idle for a long time and a
	// buffered line would look like a missing one.
	if err := o.w.Flush(); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return o.w.Flush()
}
