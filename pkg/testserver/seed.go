package testserver

import (
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/zebr0/zebr0-go/internal/filesys"
)

// ErrInvalidSeed is returned for a seed file that is not a mapping of keys
// to scalar values.
var ErrInvalidSeed = errors.New("invalid seed data")

// LoadSeed reads a YAML file of keys and values. Nested mappings are
// flattened with "/" so that
//
//	what: memes
//	star_wars:
//	  what: droids
//
// yields {"what": "memes", "star_wars/what": "droids"}.
func LoadSeed(fs filesys.ReadFS, path string) (map[string]string, error) {
	raw, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	return ParseSeed(raw)
}

// ParseSeed decodes YAML seed data, see LoadSeed.
func ParseSeed(raw []byte) (map[string]string, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	data := make(map[string]string)
	if err := flatten(data, "", doc); err != nil {
		return nil, err
	}
	return data, nil
}

func flatten(dst map[string]string, prefix string, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "/" + k
		}
		switch v := m[k].(type) {
		case nil:
			// an empty value is the same as no value
		case map[string]any:
			if err := flatten(dst, key, v); err != nil {
				return err
			}
		case []any:
			return fmt.Errorf("%w: %q holds a list", ErrInvalidSeed, key)
		default:
			dst[key] = fmt.Sprint(v)
		}
	}
	return nil
}
