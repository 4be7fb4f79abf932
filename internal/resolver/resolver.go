// Package resolver implements the level-fallback lookup: a key is searched
// from the most specific level up to the root and the first hit wins.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/zebr0/zebr0-go/internal/log"
	"github.com/zebr0/zebr0-go/internal/transport"
)

// Result is the outcome of a resolution.
type Result struct {
	Value string
	Found bool
	// URL is the candidate the value came from, empty when not found.
	URL string
}

// Resolver looks keys up under a base URL and an ordered list of levels.
type Resolver struct {
	fetcher transport.Fetcher
	url     string
	levels  []string
}

// New returns a Resolver. Levels are ordered root first, leaf last.
func New(fetcher transport.Fetcher, url string, levels []string) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		url:     strings.TrimRight(url, "/"),
		levels:  append([]string{}, levels...),
	}
}

// Candidates returns the URLs tried for key, deepest level first.
func (r *Resolver) Candidates(key string) []string {
	out := make([]string, 0, len(r.levels)+1)
	for i := len(r.levels); i >= 0; i-- {
		segments := make([]string, 0, i+2)
		segments = append(segments, r.url)
		segments = append(segments, r.levels[:i]...)
		segments = append(segments, key)
		out = append(out, strings.Join(segments, "/"))
	}
	return out
}

// Resolve returns the value of key at the deepest level holding it.
//
// A candidate whose request fails at the transport level is skipped like a
// missing one. If nothing is found and some candidates failed that way, the
// failures are returned, each wrapping transport.ErrTransport, so callers can
// tell an unreachable server from a key that does not exist.
func (r *Resolver) Resolve(ctx context.Context, key string) (Result, error) {
	var errs error
	for _, candidate := range r.Candidates(key) {
		log.Debug("looking up candidate", "url", candidate)

		resp, err := r.fetcher.Fetch(ctx, candidate)
		if err != nil {
			log.Warn("candidate unreachable", "url", candidate, "error", err)
			errs = multierr.Append(errs, err)
			continue
		}
		if resp.Found {
			return Result{Value: resp.Body, Found: true, URL: candidate}, nil
		}
	}

	if errs != nil {
		return Result{}, fmt.Errorf("resolve %q: %w", key, errs)
	}
	return Result{}, nil
}
