// Package klog reads the kernel ring buffer through the klogctl (syslog)
// syscall. The syscall offers no incremental read that is safe to repeat
// across polls, so follow mode is emulated: re-read the whole buffer and
// forward only what comes after the last line of the previous poll.
package klog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/starlab-io/rmesg/internal/backend"
	"github.com/starlab-io/rmesg/internal/parse"
)

const timestampsParam = "/sys/module/printk/parameters/time"

// defaultBufSize is used when the kernel will not report its buffer size.
const defaultBufSize = 1 << 20

func init() {
	backend.Register(backend.Klog, New)
}

// Reader polls the ring buffer with SYSLOG_ACTION_READ_ALL. The buffer is
// never cleared, so one-shot and follow semantics stay uniform across
// repeated calls.
type Reader struct {
	bufSize int
	follow  bool
	primed  bool
	anchor  []byte
}

// New probes the buffer size and, for follow sessions, verifies that
// kernel timestamps are enabled (the re-poll diff relies on them to keep
// lines unique).
func New(opts backend.Options) (backend.Reader, error) {
	if opts.Follow {
		if err := followSupported(timestampsParam); err != nil {
			return nil, err
		}
	}

	size, err := unix.Klogctl(unix.SYSLOG_ACTION_SIZE_BUFFER, nil)
	if err != nil {
		return nil, classify("SYSLOG_ACTION_SIZE_BUFFER", err)
	}
	if size <= 0 {
		size = defaultBufSize
	}
	return &Reader{bufSize: size, follow: opts.Follow}, nil
}

func (r *Reader) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf := make([]byte, r.bufSize)
	n, err := unix.Klogctl(unix.SYSLOG_ACTION_READ_ALL, buf)
	if err != nil {
		return nil, classify("SYSLOG_ACTION_READ_ALL", err)
	}

	novel := r.novel(buf[:n])
	if len(novel) == 0 {
		return nil, backend.ErrNoData
	}
	r.setAnchor(novel)
	return novel, nil
}

func (r *Reader) Name() string { return backend.Klog }

// NativeFollow is false: the syscall has no non-blocking mode, so the
// coordinator paces follow mode with timed re-polls.
func (r *Reader) NativeFollow() bool { return false }

func (r *Reader) Parser() parse.Parser { return parse.NewKlog() }

// Close is a no-op; the syscall holds no descriptor between calls.
func (r *Reader) Close() error { return nil }

// novel cuts the current dump down to the lines not yet forwarded. The
// first poll forwards everything. Later polls locate the last line of the
// previous poll and forward what follows it; when the anchor has scrolled
// out of the ring entirely, the whole dump is new. In follow mode a
// trailing line without a newline is held for the next poll so a message
// still being appended to is never forwarded half-written.
func (r *Reader) novel(dump []byte) []byte {
	if r.follow {
		if i := bytes.LastIndexByte(dump, '\n'); i >= 0 {
			dump = dump[:i+1]
		} else {
			return nil
		}
	}

	if !r.primed {
		r.primed = true
		return dump
	}
	if len(r.anchor) == 0 {
		return dump
	}

	i := lastLineIndex(dump, r.anchor)
	if i < 0 {
		return dump
	}
	rest := dump[i+len(r.anchor):]
	if len(rest) > 0 && rest[0] == '\n' {
		rest = rest[1:]
	}
	return rest
}

// lastLineIndex finds the last occurrence of line in dump that spans a
// whole line (bounded by newlines or the buffer edges).
func lastLineIndex(dump, line []byte) int {
	end := len(dump)
	for end > 0 {
		i := bytes.LastIndex(dump[:end], line)
		if i < 0 {
			return -1
		}
		startOK := i == 0 || dump[i-1] == '\n'
		stop := i + len(line)
		endOK := stop == len(dump) || dump[stop] == '\n'
		if startOK && endOK {
			return i
		}
		end = i + len(line) - 1
	}
	return -1
}

// setAnchor remembers the last complete line of what was just forwarded.
func (r *Reader) setAnchor(out []byte) {
	trimmed := bytes.TrimRight(out, "\n")
	if len(trimmed) == 0 {
		return
	}
	if i := bytes.LastIndexByte(trimmed, '\n'); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	r.anchor = append(r.anchor[:0], trimmed...)
}

// followSupported reads the printk time parameter and rejects follow mode
// when timestamps are off. A missing parameter file is not conclusive, so
// it does not block.
func followSupported(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	if strings.TrimSpace(string(content)) == "Y" {
		return nil
	}
	return fmt.Errorf("klog: kernel log timestamps are disabled; following requires them (enable with: echo Y > %s)", path)
}

func classify(op string, err error) error {
	switch err {
	case unix.EPERM, unix.EACCES:
		return &backend.PermissionError{Backend: backend.Klog, Op: op, Err: err}
	case unix.ENOSYS, unix.ENOTSUP:
		return &backend.UnavailableError{Backend: backend.Klog, Err: err}
	}
	return fmt.Errorf("klog: %s: %w", op, err)
}
