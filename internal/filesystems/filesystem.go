package filesystems

import (
	"io"
	"io/fs"
	"iter"
	"time"
)

// FileSystem abstracts the read-only filesystem operations the hunter needs
// from its different backends
type FileSystem interface {
	// Open opens the named file for streaming reads
	Open(name string) (io.ReadCloser, error)

	// ReadDir reads the named directory and returns an iterator over directory entries
	ReadDir(name string) iter.Seq2[DirEntry, error]

	// Lstat returns file info for the named entry without following symbolic links
	Lstat(name string) (FileInfo, error)

	// Join joins path elements into a single path
	Join(elem ...string) string
}

// Cleaner is implemented by backends that hold temporary resources
// (downloaded archives, clones) which must be released after a run
type Cleaner interface {
	Cleanup() error
}

// DirEntry provides information about a directory entry
type DirEntry interface {
	Name() string
	IsDir() bool
	Type() fs.FileMode
}

// FileInfo provides information about a file
type FileInfo interface {
	Name() string
	Size() int64
	Mode() fs.FileMode
	ModTime() time.Time
	IsDir() bool
	Sys() interface{}
}

// Cleanup releases the resources held by filesystem, if any
func Cleanup(filesystem FileSystem) error {
	if c, ok := filesystem.(Cleaner); ok {
		return c.Cleanup()
	}
	return nil
}
