// Package fs implements a frozen, in-memory representation of a
// filesystem directory tree (RawDir/RawEntry), ported from the original
// core/src/fs.rs. Tools that load source trees into the IR, or that
// generate one to materialize to disk, build and consume RawDir values
// rather than touching the real filesystem directly until Materialize.
package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RawEntry is one entry of a RawDir: either a subdirectory or a file's
// raw bytes.
type RawEntry struct {
	Dir  *RawDir
	File []byte
}

func dirEntry(d *RawDir) RawEntry  { return RawEntry{Dir: d} }
func fileEntry(b []byte) RawEntry  { return RawEntry{File: b} }
func (e RawEntry) isDir() bool     { return e.Dir != nil }
func (e RawEntry) isFile() bool    { return e.Dir == nil }

// RawDir is an in-memory directory tree: a name-ordered map from entry
// name to RawEntry.
type RawDir struct {
	entries map[string]RawEntry
}

// NewRawDir returns an empty directory.
func NewRawDir() *RawDir {
	return &RawDir{entries: map[string]RawEntry{}}
}

// PopulateFrom walks a real filesystem directory at path and returns
// the equivalent RawDir, along with the number of subdirectories and
// files encountered (ported from RawDir::populate_from).
func PopulateFrom(path string) (dir *RawDir, numDirs, numFiles int, err error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, 0, 0, err
	}

	result := &RawDir{entries: map[string]RawEntry{}}
	for _, ent := range entries {
		full := filepath.Join(path, ent.Name())
		info, err := ent.Info()
		if err != nil {
			return nil, 0, 0, err
		}
		switch {
		case info.IsDir():
			sub, dirs, files, err := PopulateFrom(full)
			if err != nil {
				return nil, 0, 0, err
			}
			numDirs += dirs + 1
			numFiles += files
			result.entries[ent.Name()] = dirEntry(sub)
		case info.Mode().IsRegular():
			contents, err := os.ReadFile(full)
			if err != nil {
				return nil, 0, 0, err
			}
			result.entries[ent.Name()] = fileEntry(contents)
			numFiles++
		default:
			return nil, 0, 0, fmt.Errorf("fs: unsupported entry kind at %s", full)
		}
	}
	return result, numDirs, numFiles, nil
}

func (d *RawDir) sortedNames() []string {
	names := make([]string, 0, len(d.entries))
	for n := range d.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Display renders the directory tree the way RawDir::display does:
// subdirectories first (recursively), then files annotated with their
// byte size, indented two spaces per level.
func (d *RawDir) Display(level int) string {
	var b strings.Builder
	pad := strings.Repeat("  ", level)
	for _, name := range d.sortedNames() {
		if e := d.entries[name]; e.isDir() {
			fmt.Fprintf(&b, "%s%s\n", pad, name)
			b.WriteString(e.Dir.Display(level + 1))
		}
	}
	for _, name := range d.sortedNames() {
		if e := d.entries[name]; e.isFile() {
			fmt.Fprintf(&b, "%s%s (%dB)\n", pad, name, len(e.File))
		}
	}
	return b.String()
}

// FileEntry is one (relative path, contents) pair yielded by
// FilesRecursive.
type FileEntry struct {
	Path     string
	Contents []byte
}

// FilesRecursive returns every file in this directory and its
// subdirectories, with paths relative to this directory, using
// slash-separated path segments regardless of OS.
func (d *RawDir) FilesRecursive() []FileEntry {
	var out []FileEntry
	var recurse func(prefix string, dir *RawDir)
	recurse = func(prefix string, dir *RawDir) {
		for _, name := range dir.sortedNames() {
			e := dir.entries[name]
			full := name
			if prefix != "" {
				full = prefix + "/" + name
			}
			if e.isDir() {
				recurse(full, e.Dir)
			} else {
				out = append(out, FileEntry{Path: full, Contents: e.File})
			}
		}
	}
	recurse("", d)
	return out
}

// Errors returned by GetFile/SetFile, ported from GetFileError/SetFileError.
var (
	ErrAbsolutePath = errors.New("fs: absolute path")
	ErrAlreadyExists = errors.New("fs: file already exists")
	ErrIsDirectory   = errors.New("fs: path names a directory")
	ErrOutsideDir    = errors.New("fs: path escapes this directory")
	ErrUnderFile     = errors.New("fs: path descends through a file")
	ErrEmptyFileName = errors.New("fs: empty file name")
	ErrDoesNotExist  = errors.New("fs: does not exist")
)

// splitPath resolves a slash-separated relative path into the directory
// segments to descend through plus a final file-name segment, applying
// ".." lexically (popping the previous segment) the way the original
// does, since RawDir never contains symlinks. A path whose last
// non-empty component is "." or ".." names a directory, not a file
// (last_can_be_file = false), and yields ErrIsDirectory.
func splitPath(path string) (segments []string, fileName string, err error) {
	if strings.HasPrefix(path, "/") {
		return nil, "", ErrAbsolutePath
	}
	lastCanBeFile := true
	var stack []string
	for _, part := range strings.Split(path, "/") {
		switch part {
		case "":
			continue
		case ".":
			lastCanBeFile = false
		case "..":
			if len(stack) == 0 {
				return nil, "", ErrOutsideDir
			}
			stack = stack[:len(stack)-1]
			lastCanBeFile = false
		default:
			stack = append(stack, part)
			lastCanBeFile = true
		}
	}
	if !lastCanBeFile {
		return nil, "", ErrIsDirectory
	}
	if len(stack) == 0 {
		return nil, "", ErrEmptyFileName
	}
	return stack[:len(stack)-1], stack[len(stack)-1], nil
}

// GetFile returns the contents of the file at path, which must be
// relative.
func (d *RawDir) GetFile(path string) ([]byte, error) {
	segments, fileName, err := splitPath(path)
	if err != nil {
		if errors.Is(err, ErrEmptyFileName) {
			return nil, ErrDoesNotExist
		}
		return nil, err
	}

	cur := d
	for _, seg := range segments {
		e, ok := cur.entries[seg]
		if !ok {
			return nil, ErrDoesNotExist
		}
		if !e.isDir() {
			return nil, ErrUnderFile
		}
		cur = e.Dir
	}
	e, ok := cur.entries[fileName]
	if !ok {
		return nil, ErrDoesNotExist
	}
	if e.isDir() {
		return nil, ErrIsDirectory
	}
	return e.File, nil
}

// SetFile creates a new file at path (which must not already exist),
// creating intermediate directories as needed, and returns an error if
// the path is malformed or already occupied.
func (d *RawDir) SetFile(path string, contents []byte) error {
	segments, fileName, err := splitPath(path)
	if err != nil {
		return err
	}

	cur := d
	for _, seg := range segments {
		e, ok := cur.entries[seg]
		if !ok {
			sub := NewRawDir()
			cur.entries[seg] = dirEntry(sub)
			cur = sub
			continue
		}
		if !e.isDir() {
			return ErrUnderFile
		}
		cur = e.Dir
	}
	if _, exists := cur.entries[fileName]; exists {
		return ErrAlreadyExists
	}
	cur.entries[fileName] = fileEntry(contents)
	return nil
}

// Materialize writes this directory tree to basePath on the real
// filesystem. basePath should be empty or non-existent.
func (d *RawDir) Materialize(basePath string) error {
	for _, f := range d.FilesRecursive() {
		full := filepath.Join(basePath, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(full, f.Contents, 0o644); err != nil {
			return err
		}
	}
	return nil
}
