package filesystems

import (
	"fmt"
	"io"
	"io/fs"
	"iter"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
)

// BillyFS implements FileSystem on top of a go-billy filesystem
type BillyFS struct {
	fs billy.Filesystem
}

// NewBillyFS wraps an existing billy filesystem
func NewBillyFS(bfs billy.Filesystem) *BillyFS {
	return &BillyFS{fs: bfs}
}

// NewMemBillyFS creates a BillyFS backed by an empty in-memory filesystem
func NewMemBillyFS() *BillyFS {
	return NewBillyFS(memfs.New())
}

// NewOSBillyFS creates a BillyFS rooted at the given local directory
func NewOSBillyFS(root string) *BillyFS {
	return NewBillyFS(osfs.New(root))
}

// Underlying returns the wrapped billy filesystem
func (b *BillyFS) Underlying() billy.Filesystem {
	return b.fs
}

func (b *BillyFS) Open(name string) (io.ReadCloser, error) {
	f, err := b.fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("billy: open %q: %w", name, err)
	}
	return f, nil
}

func (b *BillyFS) ReadDir(name string) iter.Seq2[DirEntry, error] {
	return func(yield func(DirEntry, error) bool) {
		infos, err := b.fs.ReadDir(name)
		if err != nil {
			yield(nil, fmt.Errorf("billy: readdir %q: %w", name, err))
			return
		}

		for _, info := range infos {
			if !yield(fs.FileInfoToDirEntry(info), nil) {
				return
			}
		}
	}
}

func (b *BillyFS) Lstat(name string) (FileInfo, error) {
	info, err := b.fs.Lstat(name)
	if err != nil {
		return nil, fmt.Errorf("billy: lstat %q: %w", name, err)
	}
	return info, nil
}

func (b *BillyFS) Join(elem ...string) string {
	return b.fs.Join(elem...)
}
