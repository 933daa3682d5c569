package sourcefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/confstack/confstack"
	"github.com/confstack/confstack/internal/atomicfile"
)

// Options configures a file provider.
type Options struct {
	// Format: "yaml", "json", "jsonc" or "toml". Auto-detected from
	// the extension if empty.
	Format string

	// Required: if true, missing files cause an error. Default: false
	// (a missing file reads as an empty map).
	Required bool
}

type fileProvider struct {
	path string
	opts Options
}

// New creates a provider over a configuration file. Reads parse the
// file on every call and keep its nested structure; writes replace
// the whole file atomically via a temporary file in the same
// directory. Scalar types follow the format's decoder: JSON numbers
// arrive as float64, TOML integers as int64.
func New(path string, opts Options) confstack.WritableProvider {
	return &fileProvider{path: path, opts: opts}
}

func (f *fileProvider) Read() (map[string]any, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			if f.opts.Required {
				return nil, fmt.Errorf("required config file not found: %s: %w", f.path, err)
			}
			return make(map[string]any), nil
		}
		return nil, fmt.Errorf("read config file %s: %w", f.path, err)
	}

	format, err := f.format()
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse YAML file %s: %w", f.path, err)
		}
	case "json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse JSON file %s: %w", f.path, err)
		}
	case "jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
			return nil, fmt.Errorf("parse JSONC file %s: %w", f.path, err)
		}
	case "toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse TOML file %s: %w", f.path, err)
		}
	}

	if raw == nil {
		raw = make(map[string]any)
	}
	normalizeSection(raw)
	return raw, nil
}

// Write persists the full snapshot. Comments in JSONC files are not
// preserved; the data is written back as plain JSON.
func (f *fileProvider) Write(data map[string]any) error {
	format, err := f.format()
	if err != nil {
		return err
	}

	var encoded []byte
	switch format {
	case "yaml":
		encoded, err = yaml.Marshal(data)
	case "json", "jsonc":
		encoded, err = json.MarshalIndent(data, "", "  ")
	case "toml":
		encoded, err = toml.Marshal(data)
	}
	if err != nil {
		return fmt.Errorf("encode config file %s: %w", f.path, err)
	}

	return atomicfile.WriteFile(f.path, encoded)
}

func (f *fileProvider) Typed() bool { return true }

func (f *fileProvider) Name() string {
	return "file:" + filepath.Base(f.path)
}

func (f *fileProvider) format() (string, error) {
	format := f.opts.Format
	if format == "" {
		format = inferFormat(f.path)
	}
	switch format {
	case "yaml", "yml":
		return "yaml", nil
	case "json", "jsonc", "toml":
		return format, nil
	}
	return "", fmt.Errorf("unsupported file format: %s (supported: yaml, json, jsonc, toml)", format)
}

func inferFormat(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	case ".jsonc":
		return "jsonc"
	case ".toml":
		return "toml"
	default:
		return ""
	}
}

// normalizeSection rewrites decoder-specific map kinds in place so the
// whole tree consists of map[string]any sections. Non-string keys are
// dropped.
func normalizeSection(section map[string]any) {
	for key, value := range section {
		section[key] = normalizeValue(value)
	}
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		normalizeSection(v)
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			s, ok := key.(string)
			if !ok {
				continue
			}
			out[s] = normalizeValue(val)
		}
		return out
	case []any:
		for i, val := range v {
			v[i] = normalizeValue(val)
		}
		return v
	default:
		return value
	}
}

