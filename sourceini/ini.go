package sourceini

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/confstack/confstack"
	"github.com/confstack/confstack/internal/atomicfile"
)

// RootSection holds the top-level keys, which INI files cannot
// express outside a section.
const RootSection = "__root__"

// Options configures an INI provider.
type Options struct {
	// SubsectionToken splits section names into nested levels, "."
	// turning [db.primary] into db → primary. Empty keeps section
	// names as single levels and limits writes to one level of
	// nesting.
	SubsectionToken string
}

type iniProvider struct {
	path string
	opts Options
}

// New creates a provider over an INI file. Leaf values are plain
// strings, so sources built on it report IsTyped false and rely on
// stack-level type inference.
func New(path string, opts Options) confstack.WritableProvider {
	return &iniProvider{path: path, opts: opts}
}

func (p *iniProvider) Read() (map[string]any, error) {
	file, err := ini.Load(p.path)
	if err != nil {
		return nil, fmt.Errorf("parse INI file %s: %w", p.path, err)
	}
	return p.decode(file), nil
}

// Write persists the full snapshot, replacing the file contents.
func (p *iniProvider) Write(data map[string]any) error {
	file := ini.Empty()
	if err := p.encode(file, nil, data); err != nil {
		return err
	}

	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return err
	}
	return atomicfile.WriteFile(p.path, buf.Bytes())
}

func (p *iniProvider) Typed() bool { return false }

func (p *iniProvider) Name() string {
	return "ini:" + filepath.Base(p.path)
}

func (p *iniProvider) decode(file *ini.File) map[string]any {
	data := make(map[string]any)
	for _, section := range file.Sections() {
		keys := section.KeysHash()
		if len(keys) == 0 {
			continue
		}

		target := data
		switch name := section.Name(); {
		case name == ini.DefaultSection || name == RootSection:
		case p.opts.SubsectionToken != "":
			target = subsection(data, strings.Split(name, p.opts.SubsectionToken))
		default:
			target = subsection(data, []string{name})
		}

		for key, value := range keys {
			target[key] = value
		}
	}
	return data
}

func subsection(data map[string]any, keys []string) map[string]any {
	node := data
	for _, key := range keys {
		sub, ok := node[key].(map[string]any)
		if !ok {
			sub = make(map[string]any)
			node[key] = sub
		}
		node = sub
	}
	return node
}

func (p *iniProvider) encode(file *ini.File, keychain []string, data map[string]any) error {
	name := RootSection
	if len(keychain) > 0 {
		if len(keychain) > 1 && p.opts.SubsectionToken == "" {
			return fmt.Errorf("ini: a subsection token is required to persist sections nested below %q", keychain[0])
		}
		name = strings.Join(keychain, p.opts.SubsectionToken)
	}

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var section *ini.Section
	for _, key := range keys {
		if sub, ok := data[key].(map[string]any); ok {
			if err := p.encode(file, append(append([]string(nil), keychain...), key), sub); err != nil {
				return err
			}
			continue
		}

		if section == nil {
			var err error
			if section, err = file.NewSection(name); err != nil {
				return err
			}
		}
		if _, err := section.NewKey(key, fmt.Sprint(data[key])); err != nil {
			return err
		}
	}
	return nil
}
