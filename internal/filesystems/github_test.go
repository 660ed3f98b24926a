package filesystems

import (
	"archive/zip"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeZipball lays entries out the way GitHub zipballs do, under a
// single owner-repo-sha directory. Names ending in "/" are directories.
func writeZipball(t *testing.T, entries map[string]string, order []string) string {
	t.Helper()
	archivePath := filepath.Join(t.TempDir(), "repo.zip")
	f, err := os.Create(archivePath)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	for _, name := range order {
		w, err := zw.Create("acme-ctf-1a2b3c/" + name)
		require.NoError(t, err)
		if content, ok := entries[name]; ok {
			_, err = w.Write([]byte(content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return archivePath
}

func testArchive(t *testing.T, basePath string) *GitHubFS {
	t.Helper()
	archivePath := writeZipball(t, map[string]string{
		"README.md":                "# writeups",
		"boxes/lame/user.txt":      "HTB{user}",
		"boxes/lame/notes.txt":     "creds: htb{reused}",
		"boxes/deep/nested/x.conf": "k=v",
	}, []string{
		"",
		"README.md",
		"boxes/",
		"boxes/lame/",
		"boxes/lame/user.txt",
		"boxes/lame/notes.txt",
		// no explicit entries for boxes/deep or boxes/deep/nested
		"boxes/deep/nested/x.conf",
	})

	gfs, err := openGitHubArchive(archivePath, basePath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = gfs.Cleanup() })
	return gfs
}

func TestGitHubFS_ReadDirRoot(t *testing.T) {
	gfs := testArchive(t, "")

	assert.ElementsMatch(t, []string{"README.md", "boxes"}, dirNames(t, gfs, "."))
	assert.ElementsMatch(t, []string{"lame", "deep"}, dirNames(t, gfs, "boxes"))
	assert.Equal(t, []string{"nested"}, dirNames(t, gfs, "boxes/deep"))
	assert.Equal(t, []string{"x.conf"}, dirNames(t, gfs, "boxes/deep/nested"))
}

func TestGitHubFS_EntryTypes(t *testing.T) {
	gfs := testArchive(t, "")

	types := make(map[string]fs.FileMode)
	for entry, err := range gfs.ReadDir("boxes") {
		require.NoError(t, err)
		types[entry.Name()] = entry.Type()
	}
	assert.True(t, types["lame"].IsDir())
	assert.True(t, types["deep"].IsDir())

	info, err := gfs.Lstat("boxes/lame/user.txt")
	require.NoError(t, err)
	assert.Equal(t, "user.txt", info.Name())
	assert.Equal(t, int64(len("HTB{user}")), info.Size())
	assert.False(t, info.IsDir())
	assert.True(t, info.Mode().IsRegular())

	info, err = gfs.Lstat("boxes/deep")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	info, err = gfs.Lstat(".")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestGitHubFS_Open(t *testing.T) {
	gfs := testArchive(t, "")

	assert.Equal(t, "HTB{user}", readAll(t, gfs, gfs.Join("boxes", "lame", "user.txt")))
	assert.Equal(t, "# writeups", readAll(t, gfs, "/README.md"))

	_, err := gfs.Open("boxes/lame/missing.txt")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = gfs.Open("boxes")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestGitHubFS_BasePath(t *testing.T) {
	gfs := testArchive(t, "/boxes/lame/")

	assert.ElementsMatch(t, []string{"user.txt", "notes.txt"}, dirNames(t, gfs, "."))
	assert.Equal(t, "creds: htb{reused}", readAll(t, gfs, "notes.txt"))

	_, err := gfs.Lstat("README.md")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestGitHubFS_RejectsParentTraversal(t *testing.T) {
	gfs := testArchive(t, "boxes")

	_, err := gfs.Open("../README.md")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parent directory access not allowed")

	for _, err := range gfs.ReadDir("lame/../../..") {
		require.Error(t, err)
	}

	_, err = gfs.Lstat("..")
	assert.Error(t, err)
}

func TestGitHubFS_ReadDirMissing(t *testing.T) {
	gfs := testArchive(t, "")

	var errs []error
	for _, err := range gfs.ReadDir("nope") {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], fs.ErrNotExist)
}

func TestGitHubFS_CorruptArchive(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(archivePath, []byte("not a zip"), 0o644))

	_, err := openGitHubArchive(archivePath, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open zip")
}

func TestGitHubFS_Cleanup(t *testing.T) {
	gfs := testArchive(t, "")
	assert.NoError(t, Cleanup(gfs))

	assert.NoError(t, (&GitHubFS{}).Cleanup())
}
