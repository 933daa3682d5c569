package sourceenv

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/confstack/confstack"
)

// DotenvOptions configures a dotenv file provider.
type DotenvOptions struct {
	// Options apply to the variable names in the file the same way
	// they apply to process variables.
	Options

	// Required makes Read fail when the file is missing. The default
	// treats a missing file as an empty environment.
	Required bool
}

type dotenvProvider struct {
	path string
	opts DotenvOptions
}

// FromFile creates a provider over a dotenv file. Reads parse the
// file on every call; writes merge the flattened tree back into the
// file, keeping variables outside the written tree intact.
func FromFile(path string, opts DotenvOptions) confstack.WritableProvider {
	return &dotenvProvider{path: path, opts: opts}
}

func (p *dotenvProvider) Read() (map[string]any, error) {
	vars, err := godotenv.Read(p.path)
	if errors.Is(err, fs.ErrNotExist) && !p.opts.Required {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}

	result := make(map[string]any)
	for name, value := range vars {
		key, ok := p.opts.trimPrefix(name)
		if !ok {
			continue
		}
		segments := splitKey(key, p.opts.separator())
		if len(segments) == 0 {
			continue
		}
		insert(result, segments, value)
	}
	return result, nil
}

func (p *dotenvProvider) Write(data map[string]any) error {
	existing, err := godotenv.Read(p.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if existing == nil {
		existing = make(map[string]string)
	}

	flatten(existing, nil, data, p.opts.Options)
	return godotenv.Write(existing, p.path)
}

func (p *dotenvProvider) Typed() bool { return false }

func (p *dotenvProvider) Name() string {
	return "dotenv:" + filepath.Base(p.path)
}
