package securestore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// WriteSnapshot marshals and writes a store snapshot. An empty passphrase
// writes plaintext; otherwise the snapshot is sealed before it touches disk.
func WriteSnapshot(path, passphrase string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if passphrase != "" {
		data, err = Seal(passphrase, data)
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ReadSnapshot loads a snapshot written by WriteSnapshot. A missing file
// is not an error: ok is false and v is left untouched.
func ReadSnapshot(path, passphrase string, v any) (ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if passphrase != "" {
		data, err = Open(passphrase, data)
		if err != nil {
			return false, err
		}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}
