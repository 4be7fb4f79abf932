package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zebr0/zebr0-go/internal/filesys"
)

// ErrIncomplete is wrapped by the error Render returns when some get
// lookups could not reach the server. The output is complete, with the
// defaults of those lookups substituted.
var ErrIncomplete = errors.New("rendered with unreachable lookups")

// LookupOptions are the arguments of a get filter.
type LookupOptions struct {
	// Default is returned when the key does not exist.
	Default string
	// Template renders the value found.
	Template bool
	// Strip trims surrounding whitespace from the value.
	Strip bool
}

// Lookup resolves another key on behalf of the get filter.
//
// An error wrapping transport.ErrTransport is not fatal: the returned value
// is used, normally the default, and rendering goes on. Any other error
// aborts the render.
type Lookup interface {
	Get(ctx context.Context, key string, opts LookupOptions) (string, error)
}

// Context is the read-only view a template is rendered against.
type Context struct {
	URL    string
	Levels []string
	Lookup Lookup
}

const (
	defaultShell          = "/bin/sh"
	defaultCommandTimeout = 30 * time.Second
)

// Renderer evaluates templates.
type Renderer struct {
	fs             filesys.ReadFS
	shell          string
	commandTimeout time.Duration
}

// Opt is a function option for configuring the Renderer.
type Opt func(r *Renderer)

// WithFS sets the filesystem used by the read filter.
func WithFS(fs filesys.ReadFS) Opt {
	return func(r *Renderer) {
		r.fs = fs
	}
}

// WithShell sets the shell the sh filter runs commands with.
func WithShell(path string) Opt {
	return func(r *Renderer) {
		r.shell = path
	}
}

// WithCommandTimeout bounds each command run by the sh filter.
func WithCommandTimeout(d time.Duration) Opt {
	return func(r *Renderer) {
		r.commandTimeout = d
	}
}

// New creates a Renderer reading files from the OS filesystem and running
// commands with /bin/sh.
func New(opts ...Opt) *Renderer {
	r := &Renderer{
		fs:             filesys.OS(),
		shell:          defaultShell,
		commandTimeout: defaultCommandTimeout,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Render parses src and executes it against tc.
//
// When the error wraps ErrIncomplete the output is usable and the error
// reports which lookups failed. On any other error the output is empty.
func (r *Renderer) Render(ctx context.Context, src string, tc Context) (string, error) {
	if !strings.Contains(src, "{") {
		return src, nil
	}
	t, err := Parse(src)
	if err != nil {
		return "", err
	}
	return r.Execute(ctx, t, tc)
}

// Execute renders an already parsed template.
func (r *Renderer) Execute(ctx context.Context, t *Template, tc Context) (string, error) {
	st := &state{ctx: ctx, r: r, tc: tc, src: t.src}
	var b strings.Builder
	for _, n := range t.nodes {
		switch n := n.(type) {
		case textNode:
			b.WriteString(string(n))
		case exprNode:
			v, err := st.eval(n.expr)
			if err != nil {
				return "", err
			}
			b.WriteString(toString(v))
		default:
			return "", fmt.Errorf("unexpected node %T", n)
		}
	}
	if st.unreachable != nil {
		return b.String(), fmt.Errorf("%w: %w", ErrIncomplete, st.unreachable)
	}
	return b.String(), nil
}
