// Package sourcevault loads configuration from a secret in a Vault
// KV v2 mount.
//
// Example:
//
//	client, _ := vaultapi.NewClient(vaultapi.DefaultConfig())
//	provider, err := sourcevault.FromClient(client, "secret", "myapp/config", sourcevault.Options{})
//	source, err := confstack.New(provider)
package sourcevault
