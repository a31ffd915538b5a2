package multi

import (
	"context"
	"errors"

	"github.com/starlab-io/rmesg/internal/output"
	"github.com/starlab-io/rmesg/internal/stream"
)

// Multi fans out items to multiple output.Output implementations. Each
// Write delivers the item to every wrapped output sequentially; one
// output failing does not keep the item from the rest.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi that fans out to the given outputs.
func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

// Write delivers the item to every wrapped output, collecting errors.
func (m *Multi) Write(ctx context.Context, item stream.Item) error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Write(ctx, item); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on every wrapped output, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
