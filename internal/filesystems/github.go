package filesystems

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"
)

// GitHubFS implements FileSystem using downloaded GitHub repository archive
type GitHubFS struct {
	ctx        context.Context
	owner      string
	repo       string
	ref        string
	basePath   string
	repoPrefix string
	token      string
	initErr    error

	client    *github.Client
	zipReader *zip.ReadCloser
	files     map[string]*zip.File
	pathIndex map[string][]string

	once sync.Once
}

// NewGitHubFSWithPath creates a new GitHubFS instance with a base path
func NewGitHubFSWithPath(ctx context.Context, owner, repo, ref, basePath string, token string) *GitHubFS {
	var client *github.Client

	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		tc := oauth2.NewClient(ctx, ts)
		client = github.NewClient(tc)
	} else {
		client = github.NewClient(nil)
	}

	if ref == "" {
		// Detect the actual default branch
		repository, _, err := client.Repositories.Get(ctx, owner, repo)
		if err != nil {
			// Fallback to "main" if we can't detect
			ref = "main"
		} else {
			ref = repository.GetDefaultBranch()
		}
	}

	return &GitHubFS{
		client:    client,
		ctx:       ctx,
		owner:     owner,
		repo:      repo,
		ref:       ref,
		basePath:  strings.Trim(basePath, "/"),
		token:     token,
		files:     make(map[string]*zip.File),
		pathIndex: make(map[string][]string),
	}
}

// openGitHubArchive builds a GitHubFS over an already downloaded zipball
func openGitHubArchive(archivePath, basePath string) (*GitHubFS, error) {
	gfs := &GitHubFS{
		ctx:       context.Background(),
		basePath:  strings.Trim(basePath, "/"),
		files:     make(map[string]*zip.File),
		pathIndex: make(map[string][]string),
	}
	gfs.once.Do(func() {
		gfs.initErr = gfs.openArchive(archivePath)
	})
	if gfs.initErr != nil {
		return nil, gfs.initErr
	}
	return gfs, nil
}

// ensureInitialized downloads the GitHub repository archive once and indexes it
func (gfs *GitHubFS) ensureInitialized() error {
	gfs.once.Do(func() {
		gfs.initErr = gfs.downloadAndIndex()
	})
	return gfs.initErr
}

// downloadAndIndex downloads the repository as a zipball and indexes its contents
func (gfs *GitHubFS) downloadAndIndex() error {
	// Create temporary file for zip
	tempFile, err := os.CreateTemp("", fmt.Sprintf("ctfhunter-github-%s-%s-*.zip", gfs.owner, gfs.repo))
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tempFile.Name())

	if err := gfs.downloadZipball(tempFile); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to download repository: %w", err)
	}
	tempFile.Close()

	// The zip reader keeps its own descriptor, so removing the name is safe on unix
	return gfs.openArchive(tempFile.Name())
}

// openArchive opens the zip at archivePath and indexes its entries
func (gfs *GitHubFS) openArchive(archivePath string) error {
	zipReader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open zip: %w", err)
	}
	gfs.zipReader = zipReader

	gfs.findRepoPrefix()
	gfs.buildPathIndex()
	return nil
}

// downloadZipball downloads the repository zipball
func (gfs *GitHubFS) downloadZipball(file *os.File) error {
	var url string

	if gfs.token != "" {
		// Use GitHub API endpoint for authenticated requests
		url = fmt.Sprintf("https://api.github.com/repos/%s/%s/zipball/%s", gfs.owner, gfs.repo, gfs.ref)
	} else {
		// For unauthenticated requests use codeload directly
		url = fmt.Sprintf("https://codeload.github.com/%s/%s/zip/%s", gfs.owner, gfs.repo, gfs.ref)
	}

	req, err := http.NewRequestWithContext(gfs.ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	if gfs.token != "" {
		req.Header.Set("Authorization", "Bearer "+gfs.token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// url never carries the token, it travels in the header
		return fmt.Errorf("failed to download archive: HTTP %d %s for %s", resp.StatusCode, http.StatusText(resp.StatusCode), url)
	}

	_, err = io.Copy(file, resp.Body)
	return err
}

// findRepoPrefix determines the prefix GitHub adds to zip entries
func (gfs *GitHubFS) findRepoPrefix() {
	for _, f := range gfs.zipReader.File {
		parts := strings.SplitN(strings.Trim(f.Name, "/"), "/", 2)
		if f.FileInfo().IsDir() && len(parts) > 0 {
			gfs.repoPrefix = parts[0] + "/"
			return
		}
	}
}

// buildPathIndex maps every directory to its children and every file to its zip entry
func (gfs *GitHubFS) buildPathIndex() {
	gfs.pathIndex[""] = nil

	for _, f := range gfs.zipReader.File {
		cleanPath := strings.TrimPrefix(f.Name, gfs.repoPrefix)
		cleanPath = filepath.ToSlash(strings.Trim(cleanPath, "/"))
		if cleanPath == "" {
			continue // Skip root
		}

		if f.FileInfo().IsDir() {
			if _, exists := gfs.pathIndex[cleanPath]; !exists {
				gfs.pathIndex[cleanPath] = nil
			}
		} else {
			gfs.files[cleanPath] = f
		}

		// Link every ancestor so directories without their own zip entry still resolve
		child := cleanPath
		for child != "" {
			parentDir := path.Dir(child)
			if parentDir == "." {
				parentDir = ""
			}
			gfs.addChild(parentDir, path.Base(child))
			child = parentDir
		}
	}
}

func (gfs *GitHubFS) addChild(dir, name string) {
	for _, existing := range gfs.pathIndex[dir] {
		if existing == name {
			return
		}
	}
	gfs.pathIndex[dir] = append(gfs.pathIndex[dir], name)
}

// Cleanup closes the downloaded archive
func (gfs *GitHubFS) Cleanup() error {
	if gfs.zipReader != nil {
		return gfs.zipReader.Close()
	}
	return nil
}

// validatePath ensures the path is safe and within bounds
func (gfs *GitHubFS) validatePath(p string) error {
	p = path.Clean(strings.TrimPrefix(p, "/"))

	if p == ".." || strings.HasPrefix(p, "../") {
		return fmt.Errorf("parent directory access not allowed: %s", p)
	}
	return nil
}

// resolvePath maps a walk path onto an archive path, honouring the base path
func (gfs *GitHubFS) resolvePath(p string) (string, error) {
	if err := gfs.validatePath(p); err != nil {
		return "", err
	}

	p = path.Clean(strings.TrimPrefix(p, "/"))
	if p == "." {
		p = ""
	}

	if gfs.basePath != "" {
		if p == "" {
			return gfs.basePath, nil
		}
		return gfs.basePath + "/" + p, nil
	}
	return p, nil
}

func (gfs *GitHubFS) Open(name string) (io.ReadCloser, error) {
	if err := gfs.ensureInitialized(); err != nil {
		return nil, err
	}

	resolved, err := gfs.resolvePath(name)
	if err != nil {
		return nil, err
	}

	f, exists := gfs.files[resolved]
	if !exists {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return f.Open()
}

func (gfs *GitHubFS) ReadDir(name string) iter.Seq2[DirEntry, error] {
	return func(yield func(DirEntry, error) bool) {
		if err := gfs.ensureInitialized(); err != nil {
			yield(nil, err)
			return
		}

		resolved, err := gfs.resolvePath(name)
		if err != nil {
			yield(nil, err)
			return
		}

		children, exists := gfs.pathIndex[resolved]
		if !exists {
			yield(nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist})
			return
		}

		// Yield lightweight DirEntry objects without allocating slice
		for _, childName := range children {
			childPath := path.Join(resolved, childName)

			var mode fs.FileMode
			if _, isDir := gfs.pathIndex[childPath]; isDir {
				mode = fs.ModeDir
			} else if f, ok := gfs.files[childPath]; ok {
				mode = f.Mode().Type()
			}

			if !yield(&lightweightDirEntry{name: childName, mode: mode}, nil) {
				return // Consumer stopped iteration
			}
		}
	}
}

func (gfs *GitHubFS) Lstat(name string) (FileInfo, error) {
	if err := gfs.ensureInitialized(); err != nil {
		return nil, err
	}

	resolved, err := gfs.resolvePath(name)
	if err != nil {
		return nil, err
	}

	if _, isDir := gfs.pathIndex[resolved]; isDir {
		return &zipFileInfo{name: path.Base(name), isDir: true}, nil
	}
	if f, ok := gfs.files[resolved]; ok {
		return &zipFileInfo{File: f, name: path.Base(resolved)}, nil
	}
	return nil, &fs.PathError{Op: "lstat", Path: name, Err: fs.ErrNotExist}
}

func (gfs *GitHubFS) Join(elem ...string) string {
	return path.Join(elem...)
}

// lightweightDirEntry implements DirEntry without holding zip.File references
type lightweightDirEntry struct {
	name string
	mode fs.FileMode
}

func (e *lightweightDirEntry) Name() string      { return e.name }
func (e *lightweightDirEntry) IsDir() bool       { return e.mode.IsDir() }
func (e *lightweightDirEntry) Type() fs.FileMode { return e.mode }

// zipFileInfo wraps zip.File to implement FileInfo
type zipFileInfo struct {
	*zip.File
	name  string
	isDir bool
}

func (fi *zipFileInfo) Name() string {
	return fi.name
}

func (fi *zipFileInfo) Size() int64 {
	if fi.File != nil {
		return int64(fi.File.UncompressedSize64)
	}
	return 0
}

func (fi *zipFileInfo) Mode() fs.FileMode {
	if fi.isDir {
		return fs.ModeDir | 0755
	}
	if fi.File != nil {
		return fi.File.Mode()
	}
	return 0644
}

func (fi *zipFileInfo) ModTime() time.Time {
	if fi.File != nil {
		return fi.File.Modified
	}
	return time.Time{}
}

func (fi *zipFileInfo) IsDir() bool {
	return fi.isDir
}

func (fi *zipFileInfo) Sys() interface{} {
	return fi.File
}
