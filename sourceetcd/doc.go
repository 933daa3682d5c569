// Package sourceetcd loads configuration from an etcd v2 key-value
// store. Directories map to subsections, values arrive as strings.
//
// Example:
//
//	provider := sourceetcd.New("http://127.0.0.1:2379", sourceetcd.Options{Prefix: "/myapp"})
//	source, err := confstack.New(provider)
package sourceetcd
