package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

func (f *memoryFileInfo) Name() string       { return f.name }
func (f *memoryFileInfo) Size() int64        { return f.size }
func (f *memoryFileInfo) Mode() fs.FileMode  { return f.mode }
func (f *memoryFileInfo) ModTime() time.Time { return f.modTime }
func (f *memoryFileInfo) IsDir() bool        { return f.mode.IsDir() }
func (f *memoryFileInfo) Sys() interface{}   { return nil }

type memoryEntry struct {
	absPath string
	content []byte
	info    *memoryFileInfo
}

type memoryFile struct {
	absPath string
	relPath string
	info    FileInfo
}

func (f *memoryFile) Path() string         { return f.absPath }
func (f *memoryFile) RelativePath() string { return f.relPath }
func (f *memoryFile) Info() FileInfo       { return f.info }

type memoryDirectory struct {
	absPath string
	fs      *MemoryFileSystem
}

func (d *memoryDirectory) Path() string { return d.absPath }

// Walk visits entries sorted by path, like filepath.WalkDir. A directory
// registered with FailWalk is visited, then reported a second time with its
// error, and its contents are skipped.
func (d *memoryDirectory) Walk(fn func(File, error) error) error {
	var skipped []string
	for _, entry := range d.fs.entriesUnder(d.absPath) {
		if underAny(entry.absPath, skipped) {
			continue
		}

		rel := strings.TrimPrefix(strings.TrimPrefix(entry.absPath, d.absPath), "/")
		if rel == "" {
			rel = "."
		}
		file := &memoryFile{absPath: entry.absPath, relPath: rel, info: entry.info}

		err := callWalkFn(fn, file, nil)
		if err == nil && entry.info.IsDir() {
			if walkErr := d.fs.walkError(entry.absPath); walkErr != nil {
				err = callWalkFn(fn, &memoryFile{absPath: entry.absPath, relPath: rel}, walkErr)
				if err == nil {
					err = fs.SkipDir
				}
			}
		}
		if err != nil {
			if errors.Is(err, fs.SkipDir) {
				if entry.info.IsDir() {
					skipped = append(skipped, entry.absPath)
				} else {
					skipped = append(skipped, path.Dir(entry.absPath))
				}
				continue
			}
			return err
		}
	}
	return nil
}

func underAny(p string, dirs []string) bool {
	for _, dir := range dirs {
		if strings.HasPrefix(p, strings.TrimSuffix(dir, "/")+"/") {
			return true
		}
	}
	return false
}

func callWalkFn(fn func(File, error) error, file *memoryFile, walkErr error) (callbackErr error) {
	defer func() {
		if r := recover(); r != nil {
			callbackErr = fmt.Errorf("walk callback panicked at %s: %v", file.absPath, r)
		}
	}()
	return fn(file, walkErr)
}

// MemoryFileSystem implements FileSystemProvider in memory.
// Paths are slash-separated; relative paths resolve against the root.
// Safe for concurrent use.
type MemoryFileSystem struct {
	mu         sync.RWMutex
	root       string
	entries    map[string]*memoryEntry
	readErrors map[string]error
	walkErrors map[string]error
}

func NewMemoryFileSystem(root string) *MemoryFileSystem {
	mfs := &MemoryFileSystem{
		root:       path.Clean(filepath.ToSlash(root)),
		entries:    make(map[string]*memoryEntry),
		readErrors: make(map[string]error),
		walkErrors: make(map[string]error),
	}
	mfs.addDir(mfs.root)
	return mfs
}

// Root returns the directory relative paths resolve against.
func (mfs *MemoryFileSystem) Root() string { return mfs.root }

func (mfs *MemoryFileSystem) resolve(p string) string {
	p = filepath.ToSlash(p)
	switch {
	case p == "" || p == ".":
		return mfs.root
	case path.IsAbs(p):
		return path.Clean(p)
	default:
		return path.Join(mfs.root, p)
	}
}

// AddFile adds a file and any missing parent directories.
func (mfs *MemoryFileSystem) AddFile(filePath string, content string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	absPath := mfs.resolve(filePath)
	mfs.entries[absPath] = &memoryEntry{
		absPath: absPath,
		content: []byte(content),
		info: &memoryFileInfo{
			name:    path.Base(absPath),
			size:    int64(len(content)),
			mode:    0644,
			modTime: time.Now(),
		},
	}
	for dir := path.Dir(absPath); dir != "/" && dir != "."; dir = path.Dir(dir) {
		if _, ok := mfs.entries[dir]; ok {
			break
		}
		mfs.addDir(dir)
	}
}

// AddDir adds an empty directory.
func (mfs *MemoryFileSystem) AddDir(dirPath string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.addDir(mfs.resolve(dirPath))
}

func (mfs *MemoryFileSystem) addDir(absPath string) {
	mfs.entries[absPath] = &memoryEntry{
		absPath: absPath,
		info: &memoryFileInfo{
			name:    path.Base(absPath),
			mode:    0755 | fs.ModeDir,
			modTime: time.Now(),
		},
	}
}

// FailRead makes every ReadFile of filePath return err.
func (mfs *MemoryFileSystem) FailRead(filePath string, err error) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.readErrors[mfs.resolve(filePath)] = err
}

// FailWalk makes Walk report err for dirPath and skip its contents.
func (mfs *MemoryFileSystem) FailWalk(dirPath string, err error) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.walkErrors[mfs.resolve(dirPath)] = err
}

func (mfs *MemoryFileSystem) walkError(absPath string) error {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	return mfs.walkErrors[absPath]
}

func (mfs *MemoryFileSystem) entriesUnder(base string) []*memoryEntry {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	var out []*memoryEntry
	for p, entry := range mfs.entries {
		if p == base || strings.HasPrefix(p, strings.TrimSuffix(base, "/")+"/") {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].absPath < out[j].absPath })
	return out
}

func (mfs *MemoryFileSystem) lookup(p string) (*memoryEntry, string, bool) {
	absPath := mfs.resolve(p)
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	entry, ok := mfs.entries[absPath]
	return entry, absPath, ok
}

func (mfs *MemoryFileSystem) Open(dirPath string) (Directory, error) {
	entry, absPath, ok := mfs.lookup(dirPath)
	if !ok {
		return nil, fmt.Errorf("failed to access path %s: %w", dirPath, fs.ErrNotExist)
	}
	if !entry.info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dirPath)
	}
	return &memoryDirectory{absPath: absPath, fs: mfs}, nil
}

func (mfs *MemoryFileSystem) ReadFile(filePath string) ([]byte, error) {
	entry, absPath, ok := mfs.lookup(filePath)
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: filePath, Err: fs.ErrNotExist}
	}
	if entry.info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	mfs.mu.RLock()
	injected := mfs.readErrors[absPath]
	mfs.mu.RUnlock()
	if injected != nil {
		return nil, &fs.PathError{Op: "read", Path: filePath, Err: injected}
	}
	return append([]byte(nil), entry.content...), nil
}

func (mfs *MemoryFileSystem) Stat(statPath string) (FileInfo, error) {
	entry, _, ok := mfs.lookup(statPath)
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: statPath, Err: fs.ErrNotExist}
	}
	return entry.info, nil
}

var (
	_ FileSystemProvider = (*MemoryFileSystem)(nil)
	_ FileSystemProvider = (*OSFileSystem)(nil)
)
