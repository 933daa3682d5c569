// Package confstack merges layered configuration sources into one
// hierarchical view with priority-ordered lookups, per-key merge
// strategies and bidirectional value converters.
//
// Quick Start:
//
//	defaults, _ := confstack.NewMapSource(map[string]any{
//	    "host": "localhost",
//	    "db":   map[string]any{"port": 5432},
//	})
//	env, _ := confstack.New(sourceenv.New(sourceenv.Options{Prefix: "APP"}))
//
//	config, _ := confstack.NewStack(confstack.WithSources(defaults, env))
//
//	host, _ := config.String("host") // env APP_HOST overrides the default
//	db, _ := config.Section("db")
//	port, _ := db.Int("port")        // env APP_DB_PORT overrides the default
//
// Sources given later outrank the ones before them. Values read from
// untyped sources such as environment variables or INI files are
// coerced to the type a typed source declares for the same key.
//
// See example_test.go and examples/basic for detailed usage.
package confstack
