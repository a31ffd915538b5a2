package backend

import (
	"errors"
	"fmt"
	"log/slog"
)

// Open selects and constructs a backend. An explicit preference is honored
// as-is. Auto prefers /dev/kmsg (sequence numbers, true non-blocking
// follow, finer timestamps) and falls back to klogctl when the device
// cannot be opened. A permission failure is surfaced immediately instead;
// a fallback cannot fix it. Selection happens once per session; there is
// no mid-stream switching.
func Open(preference string, opts Options) (Reader, error) {
	switch preference {
	case "", Auto:
	default:
		ctor, err := Get(preference)
		if err != nil {
			return nil, err
		}
		return ctor(opts)
	}

	kmsgCtor, err := Get(Kmsg)
	if err != nil {
		return nil, err
	}
	r, kmsgErr := kmsgCtor(opts)
	if kmsgErr == nil {
		return r, nil
	}
	var pe *PermissionError
	if errors.As(kmsgErr, &pe) {
		return nil, kmsgErr
	}
	slog.Warn("falling back from /dev/kmsg to the klogctl syscall", "error", kmsgErr)

	klogCtor, err := Get(Klog)
	if err != nil {
		return nil, err
	}
	r, klogErr := klogCtor(opts)
	if klogErr != nil {
		return nil, fmt.Errorf("no backend available: kmsg: %v; klog: %w", kmsgErr, klogErr)
	}
	return r, nil
}
