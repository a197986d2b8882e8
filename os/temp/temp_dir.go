// Package temp makes hierarchical temporary directories
// it offers the same interface as ioutil, but recursive.
// Task sandboxes are FixedDirs named after the task id under one root TempDir.
package temp

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"strings"
)

const defaultPrefix = "batchd-tmp-"

// Create a new TempDir in directory dir with prefix string.
func NewTempDir(dir, prefix string) (*TempDir, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0777); err != nil {
			return nil, err
		}
	}
	p, err := ioutil.TempDir(dir, prefix)
	if err != nil {
		return nil, err
	}
	return &TempDir{Dir: p}, nil
}

// TempDir is a temporary directory, that may live under other temporary directories.
type TempDir struct {
	Dir string
}

// Create a new directory with a fixed name (this lets us structure our temp files)
func (d *TempDir) FixedDir(name string) (*TempDir, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, os.PathSeparator) {
		return nil, fmt.Errorf("temp.TempDir.FixedDir: Invalid name %q", name)
	}
	p := path.Join(d.Dir, name)
	if err := os.MkdirAll(p, 0777); err != nil {
		return nil, err
	}
	return &TempDir{p}, nil
}

// Create a new temporary directory under d
func (d *TempDir) TempDir(prefix string) (*TempDir, error) {
	p, err := ioutil.TempDir(d.Dir, prefix)
	if err != nil {
		return nil, err
	}
	return &TempDir{Dir: p}, nil
}

// Create a new temporary file under d
func (d *TempDir) TempFile(prefix string) (*os.File, error) {
	return ioutil.TempFile(d.Dir, prefix)
}

// Path joins name onto d.
func (d *TempDir) Path(name string) string {
	return path.Join(d.Dir, name)
}

// Remove deletes d and everything under it.
func (d *TempDir) Remove() error {
	return os.RemoveAll(d.Dir)
}

// TempDirDefault creates a TempDir rooted in the default temp dir
func TempDirDefault() (*TempDir, error) {
	tmpDir, err := ioutil.TempDir("", defaultPrefix)
	if err != nil {
		return nil, fmt.Errorf("temp.TempDirDefault: couldn't ioutil.TempDir: %v", err)
	}
	return &TempDir{tmpDir}, err
}

// TempDirIn creates a TempDir under dir, or under the default temp dir when dir is empty.
func TempDirIn(dir string) (*TempDir, error) {
	if dir == "" {
		return TempDirDefault()
	}
	return NewTempDir(dir, defaultPrefix)
}
