package rmesg

import "time"

// Backend identifiers accepted by WithBackend.
const (
	BackendAuto = "auto"
	BackendKlog = "klog"
	BackendKmsg = "kmsg"
)

type options struct {
	backend      string
	follow       bool
	raw          bool
	pollInterval time.Duration
	kmsgPath     string
}

// Option configures a stream.
type Option func(*options)

// WithBackend pins the backend: BackendKlog or BackendKmsg. The default,
// BackendAuto, probes /dev/kmsg and falls back to the klogctl syscall
// when the device cannot be opened.
func WithBackend(name string) Option {
	return func(o *options) { o.backend = name }
}

// WithFollow keeps the stream open after the initial dump, yielding new
// entries as the kernel logs them, until the context is cancelled.
func WithFollow() Option {
	return func(o *options) { o.follow = true }
}

// WithRaw disables parsing: every line comes back verbatim in the
// Message field. Applies to Stream only.
func WithRaw() Option {
	return func(o *options) { o.raw = true }
}

// WithPollInterval sets the re-poll cadence for the klogctl backend's
// emulated follow mode. Default: 1s.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}

// WithKmsgPath overrides the /dev/kmsg device path. Useful in tests and
// in containers that mount the device elsewhere.
func WithKmsgPath(path string) Option {
	return func(o *options) { o.kmsgPath = path }
}

func defaultOptions() options {
	return options{
		backend:      BackendAuto,
		pollInterval: time.Second,
	}
}
