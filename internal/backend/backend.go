// Package backend abstracts the two kernel interfaces that expose the log
// buffer: the legacy klogctl syscall and the /dev/kmsg device file. Both
// are presented as a Reader producing chunks of complete raw lines; the
// paired parser and the stream coordinator turn those into entries.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/starlab-io/rmesg/internal/parse"
)

// Backend identifiers, as accepted by Open and reported by Reader.Name.
const (
	Auto = "auto"
	Klog = "klog"
	Kmsg = "kmsg"
)

// ErrNoData means nothing is buffered right now. It is a flow-control
// signal, not a failure: one-shot mode treats it as the end of the dump,
// follow mode as a cue to wait and retry.
var ErrNoData = errors.New("no data available")

// Reader is the capability set a kernel log backend exposes. A Reader owns
// its kernel handle exclusively; it is not safe for concurrent use and is
// closed exactly once by the coordinator.
type Reader interface {
	// Next returns the next chunk of raw data, always cut at a line
	// boundary: a partial trailing record is held back and prefixed onto
	// the following read. Returns ErrNoData when the kernel has nothing
	// buffered.
	Next(ctx context.Context) ([]byte, error)

	// Name reports the backend identifier.
	Name() string

	// NativeFollow reports whether the backend supports consuming
	// non-blocking reads (true for /dev/kmsg) or follow mode has to be
	// emulated by timed re-polls (klogctl).
	NativeFollow() bool

	// Parser returns a fresh parser for this backend's wire format.
	Parser() parse.Parser

	Close() error
}

// Options carries backend construction settings.
type Options struct {
	// KmsgPath overrides the device path, mainly for tests and containers
	// that bind-mount the device elsewhere. Empty means /dev/kmsg.
	KmsgPath string
	// Follow declares that the session will tail the log. The klogctl
	// backend refuses follow mode when kernel timestamps are disabled,
	// since its re-poll diffing depends on them to keep lines unique.
	Follow bool
}

// PermissionError reports that the kernel refused access to a backend.
// Retrying cannot help, so the selector never falls back past one.
type PermissionError struct {
	Backend string
	Op      string
	Err     error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s: %s: permission denied: %v", e.Backend, e.Op, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// UnavailableError reports that a backend cannot be used on this system
// (device missing, syscall unsupported). The selector treats it as a cue
// to try the other backend.
type UnavailableError struct {
	Backend string
	Err     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: backend unavailable: %v", e.Backend, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
