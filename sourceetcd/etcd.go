package sourceetcd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/confstack/confstack"
)

// Options configures an etcd provider.
type Options struct {
	// Prefix roots the configuration below this key. Defaults to "/".
	Prefix string

	// Client overrides the HTTP client. The default client uses a
	// 10 second timeout.
	Client *http.Client
}

type etcdProvider struct {
	endpoint string
	prefix   string
	client   *http.Client
}

// New creates a provider over an etcd v2 keys endpoint, such as
// "http://127.0.0.1:2379". Directories map to subsections and leaf
// values are plain strings, so sources built on it report IsTyped
// false and rely on stack-level type inference.
func New(endpoint string, opts Options) confstack.WritableProvider {
	prefix := "/" + strings.Trim(opts.Prefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &etcdProvider{
		endpoint: strings.TrimRight(endpoint, "/"),
		prefix:   prefix,
		client:   client,
	}
}

// wire format of the etcd v2 keys API
type etcdNode struct {
	Key   string     `json:"key"`
	Value string     `json:"value"`
	Dir   bool       `json:"dir"`
	Nodes []etcdNode `json:"nodes"`
}

type etcdResponse struct {
	Node      *etcdNode `json:"node"`
	ErrorCode int       `json:"errorCode"`
	Message   string    `json:"message"`
}

const errorCodeKeyNotFound = 100

func (p *etcdProvider) Read() (map[string]any, error) {
	resp, err := p.client.Get(p.keyURL(nil) + "?recursive=true")
	if err != nil {
		return nil, fmt.Errorf("etcd read %s: %w", p.prefix, err)
	}
	defer resp.Body.Close()

	var decoded etcdResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("etcd read %s: decode response: %w", p.prefix, err)
	}

	// A missing prefix means nothing was stored yet.
	if decoded.ErrorCode == errorCodeKeyNotFound {
		return map[string]any{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("etcd read %s: %s (code %d)", p.prefix, decoded.Message, decoded.ErrorCode)
	}
	if decoded.Node == nil {
		return map[string]any{}, nil
	}

	data := make(map[string]any)
	for _, child := range decoded.Node.Nodes {
		insertNode(data, child)
	}
	return data, nil
}

func insertNode(section map[string]any, n etcdNode) {
	name := n.Key
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return
	}
	if !n.Dir {
		section[name] = n.Value
		return
	}
	sub := make(map[string]any, len(n.Nodes))
	for _, child := range n.Nodes {
		insertNode(sub, child)
	}
	section[name] = sub
}

// Write sets one key per leaf below the prefix. Keys outside the
// written tree are left in place.
func (p *etcdProvider) Write(data map[string]any) error {
	return p.writeSection(nil, data)
}

func (p *etcdProvider) writeSection(keychain []string, section map[string]any) error {
	for key, value := range section {
		chain := append(append([]string(nil), keychain...), key)
		if sub, ok := value.(map[string]any); ok {
			if err := p.writeSection(chain, sub); err != nil {
				return err
			}
			continue
		}
		if err := p.put(chain, fmt.Sprint(value)); err != nil {
			return err
		}
	}
	return nil
}

func (p *etcdProvider) put(keychain []string, value string) error {
	form := url.Values{"value": {value}}
	req, err := http.NewRequest(http.MethodPut, p.keyURL(keychain), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("etcd write %s: %w", strings.Join(keychain, "."), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var decoded etcdResponse
		_ = json.NewDecoder(resp.Body).Decode(&decoded)
		return fmt.Errorf("etcd write %s: %s (code %d)", strings.Join(keychain, "."), decoded.Message, decoded.ErrorCode)
	}
	return nil
}

func (p *etcdProvider) keyURL(keychain []string) string {
	var sb strings.Builder
	sb.WriteString(p.endpoint)
	sb.WriteString("/v2/keys")
	sb.WriteString(p.prefix)
	for _, key := range keychain {
		sb.WriteByte('/')
		sb.WriteString(url.PathEscape(key))
	}
	return sb.String()
}

func (p *etcdProvider) Typed() bool { return false }

func (p *etcdProvider) Name() string {
	if p.prefix == "" {
		return "etcd:/"
	}
	return "etcd:" + p.prefix
}
