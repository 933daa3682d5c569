// Package atomicfile replaces files through a temporary sibling and a
// rename, so readers never observe a partially written file.
package atomicfile

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
)

// WriteFile writes data to path via a uniquely named temporary file
// in the same directory, creating parent directories as needed. The
// temporary file is removed when any step fails.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}

	tempPath, err := tempName(path)
	if err != nil {
		return err
	}

	var tempCreated bool
	defer func() {
		if tempCreated {
			_ = os.Remove(tempPath)
		}
	}()

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return err
	}
	tempCreated = true

	if err := os.Rename(tempPath, path); err != nil {
		return err
	}
	tempCreated = false
	return nil
}

func tempName(targetPath string) (string, error) {
	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	return targetPath + ".tmp." + hex.EncodeToString(randomBytes), nil
}
