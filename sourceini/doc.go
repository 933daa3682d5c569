// Package sourceini loads configuration from INI files.
//
// Top-level keys live in the reserved [__root__] section. A
// subsection token turns dotted section names into nested levels:
// with token ".", [db.primary] becomes db → primary.
//
// Example:
//
//	source, err := confstack.New(sourceini.New("app.ini", sourceini.Options{SubsectionToken: "."}))
package sourceini
