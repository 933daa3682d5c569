package sourcevault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/confstack/confstack"
)

// KV is the subset of the Vault KV v2 interface the provider depends
// on.
type KV interface {
	Get(ctx context.Context, path string) (*vaultapi.KVSecret, error)
	Put(ctx context.Context, path string, data map[string]any, opts ...vaultapi.KVOption) (*vaultapi.KVSecret, error)
}

// Options configures a Vault provider.
type Options struct {
	// Context applies to every Vault round trip issued by Read and
	// Write. Defaults to context.Background().
	Context context.Context
}

type vaultProvider struct {
	kv   KV
	path string
	ctx  context.Context
}

// New creates a provider over the secret at path in a Vault KV v2
// mount. The secret's data map becomes the configuration tree. JSON
// scalars keep their native types, numbers arriving as int64 or
// float64, so sources built on it report IsTyped true.
func New(kv KV, path string, opts Options) (confstack.WritableProvider, error) {
	if kv == nil {
		return nil, errors.New("vault: KV accessor is required")
	}
	if path == "" {
		return nil, errors.New("vault: secret path cannot be empty")
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &vaultProvider{kv: kv, path: path, ctx: ctx}, nil
}

// FromClient is a convenience helper that derives a KV accessor from
// a Vault client and mount path, defaulting to the standard "secret"
// mount.
func FromClient(client *vaultapi.Client, mountPath, path string, opts Options) (confstack.WritableProvider, error) {
	if client == nil {
		return nil, errors.New("vault: client is required")
	}
	if mountPath == "" {
		mountPath = "secret"
	}
	return New(client.KVv2(mountPath), path, opts)
}

// Read fetches the secret. A missing secret reads as an empty map so
// a Vault layer can exist before anything was stored.
func (p *vaultProvider) Read() (map[string]any, error) {
	secret, err := p.kv.Get(p.ctx, p.path)
	if err != nil {
		if errors.Is(err, vaultapi.ErrSecretNotFound) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return map[string]any{}, nil
	}

	data := make(map[string]any, len(secret.Data))
	for key, value := range secret.Data {
		data[key] = normalizeValue(value)
	}
	return data, nil
}

// Write stores the full snapshot as the next version of the secret.
func (p *vaultProvider) Write(data map[string]any) error {
	if _, err := p.kv.Put(p.ctx, p.path, data); err != nil {
		return fmt.Errorf("vault: %w", err)
	}
	return nil
}

func (p *vaultProvider) Typed() bool { return true }

func (p *vaultProvider) Name() string {
	return "vault:" + p.path
}

// normalizeValue resolves the json.Number values the Vault client
// produces into native Go numbers.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]any:
		for key, val := range v {
			v[key] = normalizeValue(val)
		}
		return v
	case []any:
		for i, val := range v {
			v[i] = normalizeValue(val)
		}
		return v
	default:
		return value
	}
}
