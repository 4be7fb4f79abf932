package zebr0

import (
	"time"

	"github.com/zebr0/zebr0-go/internal/config"
	"github.com/zebr0/zebr0-go/internal/filesys"
	"github.com/zebr0/zebr0-go/internal/transport"
)

// DefaultMaxDepth bounds the nesting of template lookups.
const DefaultMaxDepth = 50

type options struct {
	override   config.Configuration
	configFile string
	fetcher    transport.Fetcher
	timeout    time.Duration
	maxDepth   int
	fs         filesys.ReadWriteFS
}

func defaultOptions() options {
	return options{
		configFile: config.DefaultPath,
		timeout:    transport.DefaultTimeout,
		maxDepth:   DefaultMaxDepth,
		fs:         filesys.OS(),
	}
}

// Option configures a Client.
//
// URL, levels and cache given as options take precedence over the
// configuration file, except when empty or zero: an unset value never
// overrides the file.
type Option func(o *options)

// WithURL sets the base URL of the key-value server.
func WithURL(url string) Option {
	return func(o *options) {
		o.override.URL = url
	}
}

// WithLevels sets the levels, root first.
func WithLevels(levels ...string) Option {
	return func(o *options) {
		o.override.Levels = append([]string{}, levels...)
	}
}

// WithCache sets for how many seconds responses are kept.
func WithCache(seconds int) Option {
	return func(o *options) {
		o.override.Cache = seconds
	}
}

// WithConfigurationFile sets the configuration file read by New.
// An empty path skips the file entirely.
func WithConfigurationFile(path string) Option {
	return func(o *options) {
		o.configFile = path
	}
}

// WithTransport replaces the HTTP transport, WithTimeout is then ignored.
func WithTransport(f transport.Fetcher) Option {
	return func(o *options) {
		o.fetcher = f
	}
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithMaxDepth bounds how deeply templates may nest lookups of other keys.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		o.maxDepth = n
	}
}

// WithFS sets the filesystem used for the configuration file and the read
// template filter.
func WithFS(fs filesys.ReadWriteFS) Option {
	return func(o *options) {
		o.fs = fs
	}
}

type getOptions struct {
	fallback string
	template bool
	strip    bool
}

func newGetOptions(opts []GetOption) getOptions {
	o := getOptions{template: true, strip: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// GetOption tunes a single Get.
type GetOption func(o *getOptions)

// WithDefault sets the value returned when the key exists at no level.
func WithDefault(value string) GetOption {
	return func(o *getOptions) {
		o.fallback = value
	}
}

// WithTemplate turns rendering of the value on or off. On by default.
func WithTemplate(enabled bool) GetOption {
	return func(o *getOptions) {
		o.template = enabled
	}
}

// WithStrip turns trimming of surrounding whitespace on or off. On by default.
func WithStrip(enabled bool) GetOption {
	return func(o *getOptions) {
		o.strip = enabled
	}
}
