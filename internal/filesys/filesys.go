// Package filesys provides file system abstractions for zebr0.
// The configuration provider and the template renderer's read filter go
// through these interfaces so tests can substitute an in-memory or mocked FS.
package filesys

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zebr0/zebr0-go/internal/log"
)

// ReadFS is the surface the template renderer needs for the read filter.
type ReadFS interface {
	ReadFile(string) ([]byte, error)
}

// ReadWriteFS is what the configuration provider needs: reading the file and
// replacing it atomically.
type ReadWriteFS interface {
	ReadFS
	FileOps
}

// FileOps is the set of calls AtomicWrite relies on.
type FileOps interface {
	Open(string) (*os.File, error)
	MkdirAll(string, os.FileMode) error
	CreateTemp(string, string) (*os.File, error)
	Rename(string, string) error
	Remove(string) error
	Chmod(string, os.FileMode) error
}

// OS returns a file system implementation that delegates to the standard library.
func OS() OsFS {
	return OsFS{}
}

// OsFS implements ReadWriteFS against the local disk.
type OsFS struct{}

func (OsFS) ReadFile(p string) ([]byte, error)            { return os.ReadFile(p) }
func (OsFS) Open(p string) (*os.File, error)              { return os.Open(p) }
func (OsFS) MkdirAll(p string, m os.FileMode) error       { return os.MkdirAll(p, m) }
func (OsFS) CreateTemp(dir, pat string) (*os.File, error) { return os.CreateTemp(dir, pat) }
func (OsFS) Rename(old, newName string) error             { return os.Rename(old, newName) }
func (OsFS) Remove(p string) error                        { return os.Remove(p) }
func (OsFS) Chmod(p string, m os.FileMode) error          { return os.Chmod(p, m) }

var (
	_ ReadFS      = OsFS{}
	_ ReadWriteFS = OsFS{}
)

// AtomicWrite persists data to dst with the provided file mode.
// The write is crash-safe on local filesystems:
//
//  1. temp file in the same dir
//  2. fsync(temp) + close
//  3. chmod(temp, perm)
//  4. rename(temp, dst)
//  5. fsync(dir)
//
// A reader of dst sees either the previous content or the new one, never a
// truncated file.
func AtomicWrite(fs FileOps, dst string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(dst)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := fs.CreateTemp(dir, ".zebr0-*")
	if err != nil {
		return err
	}
	if _, err = tmp.Write(data); err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = fs.Chmod(tmp.Name(), perm)
	}
	if err == nil {
		err = fs.Rename(tmp.Name(), dst)
	}
	if err != nil {
		if removeErr := fs.Remove(tmp.Name()); removeErr != nil {
			log.Warn("failed to remove temp file", "path", tmp.Name(), "error", removeErr)
		}
		return err
	}
	if d, err := fs.Open(dir); err == nil {
		if syncErr := d.Sync(); syncErr != nil {
			log.Debug("failed to sync directory", "path", dir, "error", syncErr)
		}
		_ = d.Close()
	}
	return nil
}
