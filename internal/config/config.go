package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zebr0/zebr0-go/internal/filesys"
)

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoConfig is returned when the configuration file is not found.
	ErrNoConfig = errors.New("configuration file not found")
)

const (
	// DefaultURL is the key-value server used when nothing else is configured.
	DefaultURL = "https://hub.zebr0.io"
	// DefaultCache is the default duration, in seconds, of the response cache.
	DefaultCache = 300
	// DefaultPath is the system-wide configuration file.
	DefaultPath = "/etc/zebr0.conf"
)

// Configuration is what a client needs to reach the key-value server.
// Levels are ordered from the root to the most specific one.
type Configuration struct {
	URL    string   `json:"url"`
	Levels []string `json:"levels"`
	Cache  int      `json:"cache"`
}

// Provider defines the interface for loading and saving configuration.
type Provider interface {
	Load() (Configuration, error)
	Save(Configuration) error
}

// FSProvider implements Provider using a JSON file.
type FSProvider struct {
	fs   filesys.ReadWriteFS
	path string
}

// Verify FSProvider implements Provider interface.
var _ Provider = (*FSProvider)(nil)

// New creates a provider backed by the OS filesystem.
func New(path string) *FSProvider {
	return NewWithPath(filesys.OS(), path)
}

// NewWithPath creates a new provider with a specific filesystem and path.
func NewWithPath(fs filesys.ReadWriteFS, path string) *FSProvider {
	return &FSProvider{
		fs:   fs,
		path: path,
	}
}

// Path returns the file the provider reads and writes.
func (p *FSProvider) Path() string { return p.path }

// Default returns the built-in configuration.
func Default() Configuration {
	return Configuration{
		URL:    DefaultURL,
		Levels: []string{},
		Cache:  DefaultCache,
	}
}

// Load reads the configuration file. Keys missing from the file keep their
// default value. A missing file is not an error. On any other failure the
// defaults are returned together with the error, so callers may choose to
// carry on with them.
func (p *FSProvider) Load() (Configuration, error) {
	cfg, err := p.loadAndParse()
	if err != nil {
		if errors.Is(err, ErrNoConfig) {
			return Default(), nil
		}
		return Default(), err
	}

	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Save writes cfg to the provider's path, replacing any previous file.
func (p *FSProvider) Save(cfg Configuration) error {
	if strings.TrimSpace(p.path) == "" {
		return errors.New("configuration file path cannot be empty")
	}
	data, err := cfg.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding config file: %w", err)
	}
	if err := filesys.AtomicWrite(p.fs, p.path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks the configuration to ensure all required fields are set.
func (c Configuration) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("url cannot be empty")
	}
	if c.Cache < 0 {
		return errors.New("cache duration cannot be negative")
	}
	return nil
}

// MarshalJSON always emits levels as an array, even when empty.
func (c Configuration) MarshalJSON() ([]byte, error) {
	type plain Configuration
	out := plain(c)
	if out.Levels == nil {
		out.Levels = []string{}
	}
	return json.Marshal(out)
}

// Merge returns base with every set field of override applied on top of it.
// A field is set when it is non-empty (URL, Levels) or non-zero (Cache).
func Merge(base, override Configuration) Configuration {
	out := Configuration{
		URL:    base.URL,
		Levels: append([]string{}, base.Levels...),
		Cache:  base.Cache,
	}
	if override.URL != "" {
		out.URL = override.URL
	}
	if len(override.Levels) > 0 {
		out.Levels = append([]string{}, override.Levels...)
	}
	if override.Cache != 0 {
		out.Cache = override.Cache
	}
	return out
}

func (p *FSProvider) loadAndParse() (Configuration, error) {
	if strings.TrimSpace(p.path) == "" {
		return Configuration{}, ErrNoConfig
	}
	data, err := p.fs.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Configuration{}, ErrNoConfig
		}
		return Configuration{}, fmt.Errorf("reading config file: %w", err)
	}

	// pointers tell an absent key from a zero value
	var raw struct {
		URL    *string   `json:"url"`
		Levels *[]string `json:"levels"`
		Cache  *int      `json:"cache"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Configuration{}, fmt.Errorf("%w: decoding config file: %v", ErrInvalidConfig, err)
	}

	cfg := Default()
	if raw.URL != nil {
		cfg.URL = *raw.URL
	}
	if raw.Levels != nil && *raw.Levels != nil {
		cfg.Levels = *raw.Levels
	}
	if raw.Cache != nil {
		cfg.Cache = *raw.Cache
	}
	return cfg, nil
}
