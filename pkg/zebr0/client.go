package zebr0

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/zebr0/zebr0-go/internal/cache"
	"github.com/zebr0/zebr0-go/internal/config"
	"github.com/zebr0/zebr0-go/internal/filesys"
	"github.com/zebr0/zebr0-go/internal/log"
	"github.com/zebr0/zebr0-go/internal/render"
	"github.com/zebr0/zebr0-go/internal/resolver"
	"github.com/zebr0/zebr0-go/internal/transport"
)

var (
	// ErrCycleDetected is returned when templates nest lookups deeper than
	// the configured bound, typically because a value refers to itself.
	ErrCycleDetected = errors.New("template lookups nested too deeply, cycle suspected")
	// ErrTransport is wrapped by errors reporting an unreachable server.
	ErrTransport = transport.ErrTransport
	// ErrIncomplete is wrapped by errors reporting that a value was rendered
	// with the defaults of unreachable lookups.
	ErrIncomplete = render.ErrIncomplete
	// ErrInvalidConfig is returned by New for an unusable configuration.
	ErrInvalidConfig = config.ErrInvalidConfig
)

// Configuration is the effective setup of a Client.
type Configuration = config.Configuration

// Stats reports cache usage.
type Stats = cache.Stats

// Client looks keys up on a zebr0 server.
type Client struct {
	cfg      config.Configuration
	fs       filesys.ReadWriteFS
	cache    *cache.Cache
	resolver *resolver.Resolver
	renderer *render.Renderer
	maxDepth int
}

// New creates a client. An unreadable or malformed configuration file is
// logged and ignored, in which case the defaults apply.
func New(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxDepth < 1 {
		return nil, fmt.Errorf("%w: max depth must be at least 1, got %d", ErrInvalidConfig, o.maxDepth)
	}

	base, err := config.NewWithPath(o.fs, o.configFile).Load()
	if err != nil {
		log.Warn("ignoring configuration file", "path", o.configFile, "error", err)
	}
	cfg := config.Merge(base, o.override)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = transport.New(o.timeout)
	}
	c := &Client{
		cfg:      cfg,
		fs:       o.fs,
		cache:    cache.New(fetcher, time.Duration(cfg.Cache)*time.Second),
		renderer: render.New(render.WithFS(o.fs)),
		maxDepth: o.maxDepth,
	}
	c.resolver = resolver.New(c.cache, cfg.URL, cfg.Levels)

	log.Debug("client ready", "url", cfg.URL, "levels", cfg.Levels, "cache", cfg.Cache)
	return c, nil
}

// Get returns the value of key from the deepest level holding it, rendered
// and stripped unless told otherwise.
//
// A key found at no level yields the default, "" unless WithDefault is given.
// If in addition some requests could not reach the server, the default comes
// with an error wrapping ErrTransport. The same goes for template lookups of
// other keys: an unreachable one renders as its default, and the rendered
// value comes with an error wrapping both ErrTransport and ErrIncomplete.
func (c *Client) Get(ctx context.Context, key string, opts ...GetOption) (string, error) {
	return c.get(ctx, key, newGetOptions(opts), 0, uuid.NewString())
}

func (c *Client) get(ctx context.Context, key string, o getOptions, depth int, id string) (string, error) {
	if depth > c.maxDepth {
		return "", fmt.Errorf("%w: %q reached depth %d", ErrCycleDetected, key, depth)
	}
	log.Debug("get", "lookup", id, "key", key, "depth", depth)

	res, err := c.resolver.Resolve(ctx, key)
	value := res.Value
	if !res.Found {
		value = o.fallback
	}

	if o.template {
		rendered, rerr := c.renderer.Render(ctx, value, c.renderContext(depth+1, id))
		switch {
		case rerr == nil:
		case errors.Is(rerr, render.ErrIncomplete):
			err = multierr.Append(err, fmt.Errorf("render %q: %w", key, rerr))
		case errors.Is(rerr, ErrCycleDetected):
			return "", rerr
		default:
			// hard failures are returned without the transport failures
			// collected so far
			return "", fmt.Errorf("render %q: %w", key, rerr)
		}
		value = rendered
	}
	if o.strip {
		value = strings.TrimSpace(value)
	}
	return value, err
}

func (c *Client) renderContext(depth int, id string) render.Context {
	return render.Context{
		URL:    c.cfg.URL,
		Levels: append([]string{}, c.cfg.Levels...),
		Lookup: nestedLookup{client: c, depth: depth, id: id},
	}
}

// nestedLookup serves the get template filter, one level deeper than the
// value being rendered.
type nestedLookup struct {
	client *Client
	depth  int
	id     string
}

func (l nestedLookup) Get(ctx context.Context, key string, opts render.LookupOptions) (string, error) {
	o := getOptions{fallback: opts.Default, template: opts.Template, strip: opts.Strip}
	return l.client.get(ctx, key, o, l.depth, l.id)
}

// Lookup returns the raw value of key, neither rendered nor stripped, and
// whether any level holds it.
func (c *Client) Lookup(ctx context.Context, key string) (string, bool, error) {
	res, err := c.resolver.Resolve(ctx, key)
	return res.Value, res.Found, err
}

// Candidates returns the URLs tried for key, in lookup order.
func (c *Client) Candidates(key string) []string {
	return c.resolver.Candidates(key)
}

// Configuration returns a copy of the effective configuration.
func (c *Client) Configuration() Configuration {
	return config.Merge(c.cfg, config.Configuration{})
}

// SaveConfiguration writes the effective configuration to path, so that a
// client created from that file alone ends up with the same one.
func (c *Client) SaveConfiguration(path string) error {
	return config.NewWithPath(c.fs, path).Save(c.cfg)
}

// ClearCache drops every cached response, so the next lookups reach the
// server again.
func (c *Client) ClearCache() {
	c.cache.Purge()
}

// Stats returns cache hits, requests sent to the server so far and the
// number of cached responses.
func (c *Client) Stats() Stats {
	return c.cache.Stats()
}
