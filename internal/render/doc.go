// Package render implements the small templating language values can use
// to refer to the client configuration and to other keys.
//
// Text outside of blocks is copied as is, including trailing newlines.
// Expression blocks look like:
//
//	{{ url }}                          base URL of the key-value server
//	{{ levels[0] }}                    first level, undefined if out of range
//	{{ levels[-1] }}                   last level, negative indexes count from the end
//	{{ 'answer' | get }}               fully resolved and rendered value of another key
//	{{ 'port' | get('8080') }}         same, with a default
//	{{ 'motd' | get('', true, false) }} default, template and strip flags
//	{{ 'motd' | get(strip=false) }}    arguments can also be given by name
//	{{ '/etc/hostname' | read }}       file content, empty when unreadable
//	{{ 'config' | get | json }}        parsed JSON, see indexing below
//	{{ ('config' | get | json).db }}   attribute and index access: x.name, x['k'], x[0]
//	{{ 'hostname -f' | sh }}           trimmed stdout of a shell command
//	{{ 'secret' | get | hash('sha256') }}
//	{{ 'db-' ~ levels[0] }}            concatenation
//
// {# comments #} are dropped, and a dash inside the braces ({{- or -}})
// trims the whitespace on that side of the block.
//
// The get filter goes through the Lookup of the render Context, so nested
// lookups share the caller's levels and cache. When the server cannot be
// reached the default is rendered instead, and Render reports the failure
// with ErrIncomplete next to the output. The renderer itself does not bound
// recursion; the Lookup implementation is expected to.
package render
