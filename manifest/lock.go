package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// DigestLock records the trace digest of every class in a project, so a
// later run can tell which classes changed meaning.
type DigestLock struct {
	Classes []LockedClass `toml:"class"`
}

// LockedClass is one entry of a digest lock.
type LockedClass struct {
	Name   string `toml:"name"`
	Path   string `toml:"path"`
	Digest string `toml:"digest"`
}

// ReadLock reads a digest lock. A missing file yields nil, nil.
func ReadLock(path string) (*DigestLock, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var lf DigestLock
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return &lf, nil
}

// WriteLock writes a digest lock, sorted by class name, creating the parent
// directory if needed.
func WriteLock(path string, lf *DigestLock) error {
	sort.Slice(lf.Classes, func(i, j int) bool { return lf.Classes[i].Name < lf.Classes[j].Name })
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString("# Generated by classkit digest. Do not edit.\n\n"); err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(lf); err != nil {
		return fmt.Errorf("cannot encode %s: %w", path, err)
	}
	return f.Close()
}

// Find returns the entry for the named class, or nil.
func (lf *DigestLock) Find(name string) *LockedClass {
	for i := range lf.Classes {
		if lf.Classes[i].Name == name {
			return &lf.Classes[i]
		}
	}
	return nil
}
