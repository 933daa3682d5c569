package sourceenv

import (
	"fmt"
	"os"
	"strings"

	"github.com/confstack/confstack"
)

// Options configures the environment provider.
type Options struct {
	// Prefix filters variables starting with prefix, which is stripped
	// before the name is split into levels. Empty loads all variables.
	// Prefix matching behavior is controlled by CaseSensitive.
	Prefix string

	// Separator splits a variable name into nested levels. With the
	// default "_", APP_DB_HOST under prefix APP becomes db → host.
	Separator string

	// CaseSensitive controls prefix matching (default: false).
	// Keys are always normalized to lowercase after prefix stripping.
	CaseSensitive bool
}

func (o Options) separator() string {
	if o.Separator == "" {
		return "_"
	}
	return o.Separator
}

type envProvider struct {
	opts Options
}

// New creates a provider over the process environment. Leaf values
// are plain strings, so sources built on it report IsTyped false and
// rely on stack-level type inference.
func New(opts Options) confstack.WritableProvider {
	return &envProvider{opts: opts}
}

// Read scans the environment, filters by prefix and builds a nested
// mapping from the separator-split variable names.
func (p *envProvider) Read() (map[string]any, error) {
	result := make(map[string]any)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key, ok := p.opts.trimPrefix(parts[0])
		if !ok {
			continue
		}
		segments := splitKey(key, p.opts.separator())
		if len(segments) == 0 {
			continue
		}
		insert(result, segments, parts[1])
	}

	return result, nil
}

// Write sets one variable per leaf, joining the keychain with the
// separator and upper-casing it under the prefix. Variables outside
// the written tree stay untouched.
func (p *envProvider) Write(data map[string]any) error {
	flat := make(map[string]string)
	flatten(flat, nil, data, p.opts)
	for name, value := range flat {
		if err := os.Setenv(name, value); err != nil {
			return err
		}
	}
	return nil
}

func (p *envProvider) Typed() bool { return false }

func (p *envProvider) Name() string { return "env" }

func (o Options) trimPrefix(key string) (string, bool) {
	if o.Prefix == "" {
		return key, true
	}
	var match bool
	if o.CaseSensitive {
		match = strings.HasPrefix(key, o.Prefix)
	} else {
		match = strings.HasPrefix(strings.ToUpper(key), strings.ToUpper(o.Prefix))
	}
	if !match {
		return "", false
	}
	return strings.TrimPrefix(key[len(o.Prefix):], o.separator()), true
}

// variable renders a keychain back into a variable name.
func (o Options) variable(keychain []string) string {
	name := strings.ToUpper(strings.Join(keychain, o.separator()))
	if o.Prefix == "" {
		return name
	}
	prefix := strings.ToUpper(o.Prefix)
	if !strings.HasSuffix(prefix, o.separator()) {
		prefix += o.separator()
	}
	return prefix + name
}

func splitKey(key, separator string) []string {
	var segments []string
	for _, segment := range strings.Split(strings.ToLower(key), separator) {
		if segment == "" {
			continue
		}
		segments = append(segments, segment)
	}
	return segments
}

func insert(tree map[string]any, segments []string, value string) {
	node := tree
	last := len(segments) - 1
	for _, segment := range segments[:last] {
		sub, ok := node[segment].(map[string]any)
		if !ok {
			sub = make(map[string]any)
			node[segment] = sub
		}
		node = sub
	}
	node[segments[last]] = value
}

func flatten(flat map[string]string, keychain []string, section map[string]any, opts Options) {
	for key, value := range section {
		chain := append(append([]string(nil), keychain...), key)
		if sub, ok := value.(map[string]any); ok {
			flatten(flat, chain, sub, opts)
			continue
		}
		flat[opts.variable(chain)] = fmt.Sprint(value)
	}
}
