// Package sourcefile loads configuration from YAML, JSON, JSONC or
// TOML files.
//
// Format is auto-detected from the extension (.yaml, .json, .jsonc,
// .toml). Files keep their nested structure and their decoder's
// native scalar types, so sources built on this package report
// IsTyped true.
//
// Example:
//
//	source, err := confstack.New(sourcefile.New("config.yaml", sourcefile.Options{Required: true}))
package sourcefile
