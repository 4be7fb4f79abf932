// Package zebr0 is a client for a hierarchical key-value configuration
// server reached over plain HTTP GET requests.
//
// A client is configured with the server URL and an ordered list of levels,
// e.g. ["my-project", "production"]. A key is looked up from the most
// specific level up to the root and the first hit wins:
//
//	<url>/my-project/production/<key>
//	<url>/my-project/<key>
//	<url>/<key>
//
// Values can be templates referring to the configuration and to other keys,
// see the render package for the language. Responses are cached per URL for
// the configured number of seconds.
//
// Configuration comes, by increasing priority, from built-in defaults, the
// JSON file /etc/zebr0.conf and the options given to New:
//
//	client, err := zebr0.New(
//		zebr0.WithURL("http://127.0.0.1:8000"),
//		zebr0.WithLevels("my-project", "production"),
//	)
//	...
//	value, err := client.Get(ctx, "database/host", zebr0.WithDefault("localhost"))
//
// A Client is safe for concurrent use.
package zebr0
