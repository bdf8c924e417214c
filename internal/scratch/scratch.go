// Package scratch manages the per-run temporary directory that holds
// synthesized clips until they are embedded.
package scratch

import (
	"fmt"
	"os"
	"path/filepath"
)

// Dir is a uniquely named temporary directory owned by one run
type Dir struct {
	path     string
	released bool
}

// AcquireIn creates a fresh directory under parent, or the OS temp dir when parent is empty
func AcquireIn(parent, prefix string) (*Dir, error) {
	path, err := os.MkdirTemp(parent, prefix+"-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	return &Dir{path: path}, nil
}

// Path returns the directory path
func (d *Dir) Path() string {
	return d.path
}

// ClipPath returns the clip file path for the slide at index
func (d *Dir) ClipPath(index int) string {
	return filepath.Join(d.path, fmt.Sprintf("out%d.wav", index))
}

// Release removes the directory and everything under it. It may be called
// more than once; later calls are no-ops.
func (d *Dir) Release() error {
	if d.released {
		return nil
	}
	if err := os.RemoveAll(d.path); err != nil {
		return fmt.Errorf("remove scratch directory %s: %w", d.path, err)
	}
	d.released = true
	return nil
}
