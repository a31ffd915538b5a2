package output

import (
	"context"

	"github.com/starlab-io/rmesg/internal/stream"
)

// Output defines the interface for entry-stream destinations. Write
// receives entry and gap items; error items never reach an output.
type Output interface {
	Write(ctx context.Context, item stream.Item) error
	Close() error
}
