package filesystem

import (
	"io/fs"
)

// FileInfo is an alias for fs.FileInfo.
type FileInfo = fs.FileInfo

// File is one entry visited by Directory.Walk.
type File interface {
	// Path returns the absolute path to the entry.
	Path() string

	// RelativePath returns the path relative to the walked root, slash-separated.
	RelativePath() string

	Info() FileInfo
}

// Directory is a directory tree that can be traversed.
type Directory interface {
	Path() string

	// Walk visits the root and every entry under it. If fn returns an
	// error, walking stops and Walk returns that error.
	//
	// When an entry cannot be read, fn is called with that entry and the
	// error; Info is nil in that call. Returning nil continues the walk
	// past what could not be read.
	Walk(fn func(File, error) error) error
}

// FileSystemProvider opens directories and reads files.
type FileSystemProvider interface {
	Open(path string) (Directory, error)
	ReadFile(path string) ([]byte, error)
	Stat(path string) (FileInfo, error)
}
