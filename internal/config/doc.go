// Package config provides configuration management for the zebr0 client.
//
// The package uses a Provider interface to abstract configuration loading and
// saving, with the primary implementation being a JSON file on the local
// filesystem.
//
// # Configuration Structure
//
// The file is a flat JSON object:
//
//	{"url": "https://hub.zebr0.io", "levels": ["mattermost", "production"], "cache": 300}
//
//   - url: base URL of the key-value server
//   - levels: levels of specialization, from the root to the most specific one
//   - cache: duration in seconds of the response cache, 0 disables it
//
// Any key missing from the file keeps its built-in default. The default file
// location is /etc/zebr0.conf, for a system-wide configuration.
//
// # Precedence
//
// A client's configuration is assembled from, in increasing priority:
//
//  1. Default()
//  2. the configuration file, if present and readable
//  3. explicit values from the caller
//
// Merge applies the third layer on top of the second: only non-empty URL and
// levels and a non-zero cache override what is below them.
//
// # Basic Usage
//
//	provider := config.New(config.DefaultPath)
//	cfg, err := provider.Load()
//	if err != nil {
//		log.Printf("ignoring configuration file: %v", err)
//	}
//	cfg = config.Merge(cfg, config.Configuration{URL: "http://localhost:8000"})
//
// # Error Handling
//
// Load reports, with the defaults as its result:
//   - ErrInvalidConfig wrapped errors for malformed JSON or failed validation
//   - read errors other than a missing file
//
// A missing file is not an error.
package config
