package filesystems

import (
	"bytes"
	"io"
	"io/fs"
	"iter"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryFS implements FileSystem for in-memory filesystem operations.
// Symlinks are recorded but never resolved, matching how the hunter treats them.
type MemoryFS struct {
	mu         sync.RWMutex
	files      map[string][]byte
	dirs       map[string]bool
	symlinks   map[string]string
	unreadable map[string]bool
}

// NewMemoryFS creates a new MemoryFS instance
func NewMemoryFS() *MemoryFS {
	return &MemoryFS{
		files:      make(map[string][]byte),
		dirs:       make(map[string]bool),
		symlinks:   make(map[string]string),
		unreadable: make(map[string]bool),
	}
}

// AddFile adds a file to the memory filesystem
func (mfs *MemoryFS) AddFile(name string, content []byte) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	mfs.files[path.Clean(name)] = content
	mfs.addParents(name)
}

// AddDir adds a directory to the memory filesystem
func (mfs *MemoryFS) AddDir(name string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	mfs.dirs[path.Clean(name)] = true
	mfs.addParents(name)
}

// AddSymlink records a symbolic link named name pointing at target
func (mfs *MemoryFS) AddSymlink(name, target string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	mfs.symlinks[path.Clean(name)] = target
	mfs.addParents(name)
}

// SetUnreadable makes Open, ReadDir and Lstat fail for name, simulating
// permission errors
func (mfs *MemoryFS) SetUnreadable(name string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	mfs.unreadable[path.Clean(name)] = true
}

// Ensure parent directories exist
func (mfs *MemoryFS) addParents(name string) {
	dir := path.Dir(path.Clean(name))
	for dir != "." && dir != "/" {
		mfs.dirs[dir] = true
		dir = path.Dir(dir)
	}
}

func (mfs *MemoryFS) Open(name string) (io.ReadCloser, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	cleanName := path.Clean(name)
	if mfs.unreadable[cleanName] {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	content, exists := mfs.files[cleanName]
	if !exists {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (mfs *MemoryFS) ReadDir(name string) iter.Seq2[DirEntry, error] {
	return func(yield func(DirEntry, error) bool) {
		entries, err := mfs.children(name)
		if err != nil {
			yield(nil, err)
			return
		}

		for _, entry := range entries {
			if !yield(entry, nil) {
				return
			}
		}
	}
}

// children snapshots the direct children of name so the lock is not held
// while the caller consumes the iterator
func (mfs *MemoryFS) children(name string) ([]DirEntry, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	cleanName := path.Clean(name)
	if mfs.unreadable[cleanName] {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrPermission}
	}

	// Check if directory exists
	if cleanName != "." && !mfs.dirs[cleanName] {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}

	prefix := cleanName + "/"
	if cleanName == "." {
		prefix = ""
	}

	// Collect direct children
	seen := make(map[string]bool)
	names := make([]string, 0)
	collect := func(p string) {
		if !strings.HasPrefix(p, prefix) {
			return
		}
		remainder := strings.TrimPrefix(p, prefix)
		if remainder == "" {
			return
		}
		childName := strings.SplitN(remainder, "/", 2)[0]
		if !seen[childName] {
			seen[childName] = true
			names = append(names, childName)
		}
	}

	for p := range mfs.files {
		collect(p)
	}
	for p := range mfs.dirs {
		collect(p)
	}
	for p := range mfs.symlinks {
		collect(p)
	}

	sort.Strings(names)

	entries := make([]DirEntry, 0, len(names))
	for _, childName := range names {
		fullPath := path.Join(cleanName, childName)
		entries = append(entries, &memoryDirEntry{
			name: childName,
			mode: mfs.modeOf(fullPath),
		})
	}
	return entries, nil
}

// modeOf must be called with the read lock held
func (mfs *MemoryFS) modeOf(p string) fs.FileMode {
	switch {
	case mfs.symlinks[p] != "":
		return fs.ModeSymlink | 0777
	case mfs.dirs[p]:
		return fs.ModeDir | 0755
	default:
		return 0644
	}
}

func (mfs *MemoryFS) Lstat(name string) (FileInfo, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	cleanName := path.Clean(name)
	if mfs.unreadable[cleanName] {
		return nil, &fs.PathError{Op: "lstat", Path: name, Err: fs.ErrPermission}
	}

	info := &memoryFileInfo{
		name:    path.Base(cleanName),
		mode:    mfs.modeOf(cleanName),
		modTime: time.Now(),
	}

	switch {
	case cleanName == "." || mfs.dirs[cleanName]:
		info.mode = fs.ModeDir | 0755
	case mfs.symlinks[cleanName] != "":
		info.size = int64(len(mfs.symlinks[cleanName]))
	default:
		content, exists := mfs.files[cleanName]
		if !exists {
			return nil, &fs.PathError{Op: "lstat", Path: name, Err: fs.ErrNotExist}
		}
		info.size = int64(len(content))
	}

	return info, nil
}

func (mfs *MemoryFS) Join(elem ...string) string {
	return path.Join(elem...)
}

// memoryDirEntry implements DirEntry for memory filesystem
type memoryDirEntry struct {
	name string
	mode fs.FileMode
}

func (e *memoryDirEntry) Name() string {
	return e.name
}

func (e *memoryDirEntry) IsDir() bool {
	return e.mode.IsDir()
}

func (e *memoryDirEntry) Type() fs.FileMode {
	return e.mode.Type()
}

// memoryFileInfo implements FileInfo for memory filesystem
type memoryFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

func (fi *memoryFileInfo) Name() string {
	return fi.name
}

func (fi *memoryFileInfo) Size() int64 {
	return fi.size
}

func (fi *memoryFileInfo) Mode() fs.FileMode {
	return fi.mode
}

func (fi *memoryFileInfo) ModTime() time.Time {
	return fi.modTime
}

func (fi *memoryFileInfo) IsDir() bool {
	return fi.mode.IsDir()
}

func (fi *memoryFileInfo) Sys() interface{} {
	return nil
}
