package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rfenaux/ctm/internal/models"
)

// WriteAtomicJSON implements spec §4.1's Persistent Store contract: marshal
// v, write it to a temp file in destDir, read it back and run validate
// against the round-tripped bytes, then rename over path. On any failure the
// temp file is removed and path is left untouched; rename is the commit
// point. validate may be nil when there is nothing to cross-check (e.g. the
// scheduler/index documents, which carry no identity field to confirm).
func WriteAtomicJSON(path string, v any, validate func(roundTripped []byte) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &models.WriteFailedError{Path: path, Err: err}
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &models.WriteFailedError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &models.WriteFailedError{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return &models.WriteFailedError{Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return &models.WriteFailedError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &models.WriteFailedError{Path: path, Err: err}
	}

	roundTripped, err := os.ReadFile(tmpName)
	if err != nil {
		cleanup()
		return &models.WriteFailedError{Path: path, Err: fmt.Errorf("round-trip read: %w", err)}
	}
	if validate != nil {
		if err := validate(roundTripped); err != nil {
			cleanup()
			return &models.WriteFailedError{Path: path, Err: fmt.Errorf("round-trip validation: %w", err)}
		}
	}

	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return &models.WriteFailedError{Path: path, Err: err}
	}
	return nil
}

// ReadJSON reads and parses the JSON document at path into v. It returns
// os.ErrNotExist (unwrapped via os.IsNotExist) when the file is missing, and
// a models.CorruptStoreError when the read succeeds but parsing fails.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &models.CorruptStoreError{Path: path, Err: err}
	}
	return nil
}
