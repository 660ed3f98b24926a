package hunter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/railwayapp/ctfhunter/internal/filesystems"
	"github.com/railwayapp/ctfhunter/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flagReport struct {
	path     string
	contents string
	openErr  error
}

type recordingReporter struct {
	mu        sync.Mutex
	flags     []flagReport
	matches   []string
	failAfter int
}

func (r *recordingReporter) FlagFile(path string, open func() (io.ReadCloser, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := flagReport{path: path}
	f, err := open()
	if err != nil {
		report.openErr = err
	} else {
		data, _ := io.ReadAll(f)
		f.Close()
		report.contents = string(data)
	}
	r.flags = append(r.flags, report)
	return nil
}

func (r *recordingReporter) StringMatch(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failAfter > 0 && len(r.matches) >= r.failAfter {
		return errors.New("stdout closed")
	}
	r.matches = append(r.matches, path)
	return nil
}

func (r *recordingReporter) sortedMatches() []string {
	out := append([]string(nil), r.matches...)
	sort.Strings(out)
	return out
}

func scenarioFS() *filesystems.MemoryFS {
	mfs := filesystems.NewMemoryFS()
	mfs.AddFile("sub/flag.txt", []byte("HTB{abc}"))
	mfs.AddFile("sub/notes.txt", []byte("the flag is HTB{abc} here"))
	return mfs
}

func TestRun_FlagAndContentScenario(t *testing.T) {
	rep := &recordingReporter{}
	h := New(scenarioFS(), rep, nil, Options{Needle: "HTB{"})

	summary, err := h.Run(context.Background(), ".")
	require.NoError(t, err)

	require.Len(t, rep.flags, 1)
	assert.Equal(t, "sub/flag.txt", rep.flags[0].path)
	assert.Equal(t, "HTB{abc}", rep.flags[0].contents)

	assert.Equal(t, []string{"sub/flag.txt", "sub/notes.txt"}, rep.sortedMatches())

	assert.Equal(t, int64(2), summary.Files)
	assert.Equal(t, int64(2), summary.Directories)
	assert.Equal(t, int64(1), summary.FlagFiles)
	assert.Equal(t, int64(2), summary.StringMatches)
}

func TestRun_EmptyTree(t *testing.T) {
	rep := &recordingReporter{}
	h := New(filesystems.NewMemoryFS(), rep, nil, Options{Needle: "x"})

	summary, err := h.Run(context.Background(), ".")
	require.NoError(t, err)
	assert.Empty(t, rep.flags)
	assert.Empty(t, rep.matches)
	assert.Equal(t, int64(0), summary.Files)
}

func TestRun_ReportedPathsAreCleaned(t *testing.T) {
	for _, root := range []string{".", "./", "sub/.."} {
		rep := &recordingReporter{}
		h := New(scenarioFS(), rep, nil, Options{Needle: "HTB{"})

		_, err := h.Run(context.Background(), root)
		require.NoError(t, err)
		assert.Equal(t, []string{"sub/flag.txt", "sub/notes.txt"}, rep.sortedMatches(), root)
	}
}

func TestRun_InaccessibleRoot(t *testing.T) {
	rep := &recordingReporter{}
	h := New(filesystems.NewMemoryFS(), rep, nil, Options{Needle: "x"})

	summary, err := h.Run(context.Background(), "does/not/exist")
	require.NoError(t, err)
	assert.Empty(t, rep.matches)
	assert.Equal(t, int64(1), summary.Skipped)
}

func TestRun_InaccessibleRootWarnsOnlyForRoot(t *testing.T) {
	mfs := filesystems.NewMemoryFS()
	mfs.AddFile("root/locked/secret.txt", []byte("x"))
	mfs.SetUnreadable("root/locked")

	var buf bytes.Buffer
	h := New(mfs, &recordingReporter{}, logger.NewConsoleLogger(&buf, "warn"), Options{Needle: "x"})

	_, err := h.Run(context.Background(), "root")
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	_, err = h.Run(context.Background(), "root/locked")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "[WARN] cannot read start directory root/locked")
}

func TestRun_CaseInsensitiveNeedle(t *testing.T) {
	for _, needle := range []string{"htb{", "HTB{", "hTb{"} {
		rep := &recordingReporter{}
		h := New(scenarioFS(), rep, nil, Options{Needle: needle, ChunkSize: 3})

		_, err := h.Run(context.Background(), ".")
		require.NoError(t, err)
		assert.Equal(t, []string{"sub/flag.txt", "sub/notes.txt"}, rep.sortedMatches(), needle)
	}
}

func TestRun_EmptyNeedleMatchesEveryFile(t *testing.T) {
	mfs := filesystems.NewMemoryFS()
	mfs.AddFile("a.txt", []byte("a"))
	mfs.AddFile("empty.bin", nil)
	mfs.AddFile("d1/d2/d3/deep.txt", []byte("deep"))
	mfs.AddDir("d1/emptydir")

	rep := &recordingReporter{}
	h := New(mfs, rep, nil, Options{Needle: ""})

	_, err := h.Run(context.Background(), ".")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "d1/d2/d3/deep.txt", "empty.bin"}, rep.sortedMatches())
}

func TestRun_SymlinksAreNeverFollowedOrReported(t *testing.T) {
	mfs := filesystems.NewMemoryFS()
	mfs.AddFile("real/data.txt", []byte("HTB{real}"))
	mfs.AddSymlink("flag.txt", "real/data.txt")
	mfs.AddSymlink("loop", ".")

	rep := &recordingReporter{}
	h := New(mfs, rep, nil, Options{Needle: "htb{"})

	summary, err := h.Run(context.Background(), ".")
	require.NoError(t, err)
	assert.Empty(t, rep.flags)
	assert.Equal(t, []string{"real/data.txt"}, rep.matches)
	assert.Equal(t, int64(2), summary.Skipped)
}

func TestRun_UnreadableEntriesAreSkipped(t *testing.T) {
	mfs := filesystems.NewMemoryFS()
	mfs.AddFile("locked/secret.txt", []byte("HTB{hidden}"))
	mfs.AddFile("open/visible.txt", []byte("HTB{visible}"))
	mfs.AddFile("open/broken.txt", []byte("HTB{broken}"))
	mfs.SetUnreadable("locked")
	mfs.SetUnreadable("open/broken.txt")

	rep := &recordingReporter{}
	h := New(mfs, rep, nil, Options{Needle: "htb{"})

	_, err := h.Run(context.Background(), ".")
	require.NoError(t, err)
	assert.Equal(t, []string{"open/visible.txt"}, rep.matches)
}

func TestRun_UnreadableFlagFileStillReported(t *testing.T) {
	mfs := filesystems.NewMemoryFS()
	mfs.AddFile("home/user.txt", []byte("HTB{user}"))

	// Lstat succeeds but open fails, the way a mode 000 file behaves
	locked := &openFailFS{MemoryFS: mfs, fail: "home/user.txt"}

	rep := &recordingReporter{}
	h := New(locked, rep, nil, Options{Needle: "htb{"})

	_, err := h.Run(context.Background(), ".")
	require.NoError(t, err)
	require.Len(t, rep.flags, 1)
	assert.Error(t, rep.flags[0].openErr)
	assert.Empty(t, rep.matches)
}

type openFailFS struct {
	*filesystems.MemoryFS
	fail string
}

func (o *openFailFS) Open(name string) (io.ReadCloser, error) {
	if name == o.fail {
		return nil, os.ErrPermission
	}
	return o.MemoryFS.Open(name)
}

func TestRun_VisitsEveryFileOnceWithWorkers(t *testing.T) {
	mfs := filesystems.NewMemoryFS()
	var want []string
	for _, dir := range []string{"a", "a/b", "c", "c/d/e"} {
		for _, name := range []string{"one.txt", "two.txt", "FLAG.TXT"} {
			p := dir + "/" + name
			mfs.AddFile(p, []byte("xx HTB{"+p+"} xx"))
			want = append(want, p)
		}
	}
	sort.Strings(want)

	for _, workers := range []int{1, 4} {
		rep := &recordingReporter{}
		h := New(mfs, rep, nil, Options{Needle: "htb{", Workers: workers, ChunkSize: 5})

		summary, err := h.Run(context.Background(), ".")
		require.NoError(t, err)
		assert.Equal(t, want, rep.sortedMatches(), "workers=%d", workers)
		assert.Len(t, rep.flags, 4, "workers=%d", workers)
		assert.Equal(t, int64(len(want)), summary.Files)
	}
}

func TestRun_ReporterFailureStopsRun(t *testing.T) {
	mfs := filesystems.NewMemoryFS()
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		mfs.AddFile(name, []byte("HTB{x}"))
	}

	for _, workers := range []int{1, 3} {
		rep := &recordingReporter{failAfter: 1}
		h := New(mfs, rep, nil, Options{Needle: "htb{", Workers: workers})

		_, err := h.Run(context.Background(), ".")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stdout closed")
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := New(scenarioFS(), &recordingReporter{}, nil, Options{Needle: "x"})
	_, err := h.Run(ctx, ".")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_LocalFilesystem(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "Flag.Txt"), []byte("HTB{abc}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "notes.txt"), []byte("the flag is HTB{abc} here"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "myflag.txt"), []byte("nothing"), 0o644))

	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "root.txt"), []byte("HTB{outside}"), 0o644))
	if err := os.Symlink(filepath.Join(outside, "root.txt"), filepath.Join(root, "root.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "linked-dir")))

	rep := &recordingReporter{}
	h := New(filesystems.NewLocalFS(), rep, nil, Options{Needle: "HTB{"})

	_, err := h.Run(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, rep.flags, 1)
	assert.Equal(t, filepath.Join(root, "sub", "Flag.Txt"), rep.flags[0].path)
	assert.Equal(t, []string{
		filepath.Join(root, "sub", "Flag.Txt"),
		filepath.Join(root, "sub", "notes.txt"),
	}, rep.sortedMatches())
}
