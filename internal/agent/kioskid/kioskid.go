// Package kioskid manages the kiosk node's identity: an opaque id generated once on first boot
// and persisted to a single local file, never regenerated afterwards. Losing the file
// means losing the identity: a fresh id is generated and the kiosk starts over as a stranger to
// the coordinator.
package kioskid

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileMode is the permission the id file is created with; it must never be
// group- or world-readable since the id is the only credential a kiosk presents.
const FileMode = 0o600

// LoadOrCreate reads the kiosk id from path, generating and persisting a new one if the file does
// not yet exist. It is safe to call on every agent boot.
func LoadOrCreate(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(raw))
		if id == "" {
			return "", fmt.Errorf("kiosk id file %s is empty", path)
		}
		return id, nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("reading kiosk id file %s: %w", path, err)
	}

	id := uuid.NewString()
	if err := persist(path, id); err != nil {
		return "", err
	}
	return id, nil
}

func persist(path, id string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating directory for kiosk id file %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, []byte(id+"\n"), FileMode); err != nil {
		return fmt.Errorf("writing kiosk id file %s: %w", path, err)
	}
	return nil
}
