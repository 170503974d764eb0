package docker

import (
	"os"
	"path/filepath"
	"strings"
)

// appendKnownHostsEntry appends a single known_hosts line, creating the file
// (and its parent directory) if necessary. Strict host-key checking on
// GetConnector depends on this file holding every container's host key
// (spec.md §6).
func appendKnownHostsEntry(path, entry string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if strings.Contains(string(existing), strings.TrimSpace(entry)) {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(entry)
	return err
}
