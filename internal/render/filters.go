package render

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"os/exec"
	"strings"

	"go.uber.org/multierr"

	"github.com/zebr0/zebr0-go/internal/log"
	"github.com/zebr0/zebr0-go/internal/transport"
)

var (
	// ErrJSON is returned when the json filter gets invalid input.
	ErrJSON = errors.New("invalid json")
	// ErrCommand is returned when a command run by the sh filter fails.
	ErrCommand = errors.New("command failed")
	// ErrHash is returned for an unsupported hash algorithm.
	ErrHash = errors.New("unsupported hash algorithm")
)

var hashes = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha224": sha256.New224,
	"sha256": sha256.New,
	"sha384": sha512.New384,
	"sha512": sha512.New,
}

func (s *state) filter(e filterExpr, input any, args arguments) (any, error) {
	switch e.name {
	case "get":
		return s.get(e, input, args)
	case "read":
		return s.read(toString(input)), nil
	case "json":
		return parseJSON(toString(input))
	case "sh":
		return s.sh(toString(input))
	case "hash":
		return digest(toString(input), args.text(0, "md5"))
	}
	return nil, s.fail(e, "unknown filter %q", e.name)
}

// get renders another key, through the same client and levels.
// get(default='', template=true, strip=true)
func (s *state) get(e filterExpr, input any, args arguments) (any, error) {
	if s.tc.Lookup == nil {
		return nil, s.fail(e, "get is not available in this context")
	}
	opts := LookupOptions{
		Default:  args.text(0, ""),
		Template: args.flag(1, true),
		Strip:    args.flag(2, true),
	}
	value, err := s.tc.Lookup.Get(s.ctx, toString(input), opts)
	if err != nil {
		if !errors.Is(err, transport.ErrTransport) {
			return nil, err
		}
		log.Debug("get filter: key unreachable, using its default", "key", toString(input), "error", err)
		s.unreachable = multierr.Append(s.unreachable, err)
	}
	return value, nil
}

// read returns the content of a local file, or an empty string when it
// cannot be read.
func (s *state) read(path string) string {
	data, err := s.r.fs.ReadFile(path)
	if err != nil {
		log.Debug("read filter: file unreadable", "path", path, "error", err)
		return ""
	}
	return string(data)
}

func parseJSON(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJSON, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after value", ErrJSON)
	}
	return v, nil
}

// sh runs command with the renderer's shell and returns its trimmed stdout.
func (s *state) sh(command string) (string, error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.r.commandTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.r.shell, "-c", command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %q: %v: %s", ErrCommand, command, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func digest(text, algorithm string) (string, error) {
	newHash, ok := hashes[strings.ToLower(algorithm)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrHash, algorithm)
	}
	h := newHash()
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil)), nil
}
