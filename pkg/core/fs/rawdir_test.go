package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetFileThenGetFileRoundTrips(t *testing.T) {
	d := NewRawDir()
	require.NoError(t, d.SetFile("a/b/c.txt", []byte("hi")))

	got, err := d.GetFile("a/b/c.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("hi"), got)
}

func TestSetFileCreatesIntermediateDirectories(t *testing.T) {
	d := NewRawDir()
	require.NoError(t, d.SetFile("a/b/c.txt", []byte("hi")))

	files := d.FilesRecursive()
	require.Len(t, files, 1)
	require.Equal(t, "a/b/c.txt", files[0].Path)
	require.Equal(t, []byte("hi"), files[0].Contents)
}

func TestSetFileAlreadyExists(t *testing.T) {
	d := NewRawDir()
	require.NoError(t, d.SetFile("a.txt", []byte("one")))

	err := d.SetFile("a.txt", []byte("two"))
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestSetFileAbsolutePath(t *testing.T) {
	d := NewRawDir()
	err := d.SetFile("/a.txt", []byte("x"))
	require.ErrorIs(t, err, ErrAbsolutePath)
}

func TestSetFileEmptyFileName(t *testing.T) {
	d := NewRawDir()
	err := d.SetFile("", []byte("x"))
	require.ErrorIs(t, err, ErrEmptyFileName)
}

func TestSetFileDirectoryPathRejected(t *testing.T) {
	d := NewRawDir()
	// "." at the end forces the path to name a directory, not a file.
	err := d.SetFile("a/.", []byte("x"))
	require.ErrorIs(t, err, ErrIsDirectory)
}

func TestSetFileOutsideDirEscape(t *testing.T) {
	d := NewRawDir()
	err := d.SetFile("../a.txt", []byte("x"))
	require.ErrorIs(t, err, ErrOutsideDir)
}

func TestSetFileDotDotStaysWithinDir(t *testing.T) {
	d := NewRawDir()
	// a/../b.txt lexically resolves to b.txt, which is still inside d.
	require.NoError(t, d.SetFile("a/../b.txt", []byte("x")))

	got, err := d.GetFile("b.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("x"), got)
}

func TestSetFileUnderFile(t *testing.T) {
	d := NewRawDir()
	require.NoError(t, d.SetFile("a", []byte("not a dir")))

	err := d.SetFile("a/b.txt", []byte("x"))
	require.ErrorIs(t, err, ErrUnderFile)
}

func TestGetFileDoesNotExist(t *testing.T) {
	d := NewRawDir()
	_, err := d.GetFile("missing.txt")
	require.ErrorIs(t, err, ErrDoesNotExist)
}

func TestGetFileEmptyFileNameIsDoesNotExist(t *testing.T) {
	d := NewRawDir()
	// An empty file name is reported as "does not exist" rather than the
	// raw ErrEmptyFileName, matching GetFile's translation of splitPath's
	// error.
	_, err := d.GetFile("")
	require.ErrorIs(t, err, ErrDoesNotExist)
}

func TestGetFileOnDirectoryPath(t *testing.T) {
	d := NewRawDir()
	require.NoError(t, d.SetFile("a/b.txt", []byte("x")))

	_, err := d.GetFile("a")
	require.ErrorIs(t, err, ErrIsDirectory)
}

func TestGetFileUnderFile(t *testing.T) {
	d := NewRawDir()
	require.NoError(t, d.SetFile("a", []byte("not a dir")))

	_, err := d.GetFile("a/b.txt")
	require.ErrorIs(t, err, ErrUnderFile)
}

func TestFilesRecursiveOrderingAndPaths(t *testing.T) {
	d := NewRawDir()
	require.NoError(t, d.SetFile("b.txt", []byte("b")))
	require.NoError(t, d.SetFile("a/z.txt", []byte("z")))
	require.NoError(t, d.SetFile("a/y.txt", []byte("y")))

	files := d.FilesRecursive()
	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	require.Equal(t, []string{"a/y.txt", "a/z.txt", "b.txt"}, paths)
}

func TestDisplayListsDirsBeforeFilesWithSizes(t *testing.T) {
	d := NewRawDir()
	require.NoError(t, d.SetFile("b.txt", []byte("hi")))
	require.NoError(t, d.SetFile("a/inner.txt", []byte("x")))

	out := d.Display(0)
	require.Equal(t, "a\n  inner.txt (1B)\nb.txt (2B)\n", out)
}

func TestPopulateFromRealDirectory(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "top.txt"), []byte("top"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "nested", "inner.txt"), []byte("inner"), 0o644))

	dir, numDirs, numFiles, err := PopulateFrom(tmp)
	require.NoError(t, err)
	require.Equal(t, 1, numDirs)
	require.Equal(t, 2, numFiles)

	got, err := dir.GetFile("nested/inner.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("inner"), got)
}
