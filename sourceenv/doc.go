// Package sourceenv loads configuration from environment variables
// or dotenv files.
//
// Variable names split on the separator into nested levels:
// APP_DB_HOST under prefix APP becomes db → host.
//
// Example:
//
//	source, err := confstack.New(sourceenv.New(sourceenv.Options{Prefix: "APP"}))
package sourceenv
