// Package kmsg reads the kernel log through the /dev/kmsg device file,
// opened non-blocking. Each read on the real device returns one complete
// record; EAGAIN means the buffer is drained and EPIPE means the reader
// was overtaken by the kernel discarding records, which later shows up as
// a sequence gap.
package kmsg

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/starlab-io/rmesg/internal/backend"
	"github.com/starlab-io/rmesg/internal/parse"
)

const defaultPath = "/dev/kmsg"

// readBufSize is comfortably above the kernel's per-record limit.
const readBufSize = 8192

func init() {
	backend.Register(backend.Kmsg, New)
}

// Reader owns the non-blocking device descriptor for the session.
type Reader struct {
	fd      int
	path    string
	ref     time.Time
	pending []byte
}

// New opens the device (or the configured override path) read-only and
// non-blocking, and anchors the device's boot-relative microsecond clock
// to wall-clock time once, so records resolve to absolute timestamps.
func New(opts backend.Options) (backend.Reader, error) {
	path := opts.KmsgPath
	if path == "" {
		path = defaultPath
	}

	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, classifyOpen(path, err)
	}

	return &Reader{fd: fd, path: path, ref: bootTime()}, nil
}

func (r *Reader) Next(ctx context.Context) ([]byte, error) {
	buf := make([]byte, readBufSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := unix.Read(r.fd, buf)
		switch err {
		case nil:
		case unix.EAGAIN:
			return nil, backend.ErrNoData
		case unix.EPIPE:
			// Overtaken: the next read continues at the next available
			// record. The loss surfaces as a sequence gap.
			continue
		case unix.EINTR:
			continue
		case unix.EPERM, unix.EACCES:
			return nil, &backend.PermissionError{Backend: backend.Kmsg, Op: "read " + r.path, Err: err}
		default:
			return nil, fmt.Errorf("kmsg: read %s: %w", r.path, err)
		}

		if n == 0 {
			// End of a regular-file override. A final unterminated record
			// is complete now, so hand it over.
			if len(r.pending) > 0 {
				out := append(r.pending, '\n')
				r.pending = nil
				return out, nil
			}
			return nil, backend.ErrNoData
		}

		data := append(r.pending, buf[:n]...)
		i := bytes.LastIndexByte(data, '\n')
		if i < 0 {
			// No complete line yet; keep buffering. Partial records are
			// never handed to the parser.
			r.pending = data
			continue
		}
		r.pending = append([]byte(nil), data[i+1:]...)
		if len(r.pending) == 0 {
			r.pending = nil
		}
		return data[:i+1], nil
	}
}

func (r *Reader) Name() string { return backend.Kmsg }

// NativeFollow is true: the descriptor stays open and consuming reads pick
// up new records as the kernel commits them.
func (r *Reader) NativeFollow() bool { return true }

func (r *Reader) Parser() parse.Parser { return parse.NewKmsg(r.ref) }

func (r *Reader) Close() error {
	if r.fd < 0 {
		return nil
	}
	err := unix.Close(r.fd)
	r.fd = -1
	if err != nil {
		return fmt.Errorf("kmsg: close %s: %w", r.path, err)
	}
	return nil
}

// bootTime returns the wall-clock instant the boot clock started. Record
// timestamps are offsets on that clock.
func bootTime() time.Time {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_BOOTTIME, &ts); err != nil {
		return time.Time{}
	}
	return time.Now().Add(-time.Duration(ts.Nano()))
}

func classifyOpen(path string, err error) error {
	switch err {
	case unix.EPERM, unix.EACCES:
		return &backend.PermissionError{Backend: backend.Kmsg, Op: "open " + path, Err: err}
	}
	return &backend.UnavailableError{Backend: backend.Kmsg, Err: fmt.Errorf("open %s: %w", path, err)}
}
