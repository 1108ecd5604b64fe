package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/vvka-141/sparkload/internal/files/filesystem"
	"github.com/vvka-141/sparkload/pkg/sparkload"
)

// Scanner finds the documents of one dataset.
// Safe for concurrent use when the provider is.
type Scanner struct {
	fsProvider filesystem.FileSystemProvider
	extension  string
}

// New creates a Scanner that accepts sparkload.DocumentExtension files.
// Panics if fsProvider is nil.
func New(fsProvider filesystem.FileSystemProvider) *Scanner {
	if fsProvider == nil {
		panic("fsProvider cannot be nil")
	}
	return &Scanner{
		fsProvider: fsProvider,
		extension:  sparkload.DocumentExtension,
	}
}

// Discovery is the result of walking one dataset root.
type Discovery struct {
	// Paths lists the documents found, in traversal order.
	Paths []string

	// Skipped lists the entries below the root that could not be read.
	// Their readable siblings are still in Paths.
	Skipped []sparkload.FileFailure
}

// Discover returns the absolute paths of all regular files under root whose
// extension is exactly ".json", in traversal order.
//
// A missing root yields no paths and no error. A root that is a file or
// cannot be read is an error. An unreadable entry below the root is
// recorded in Skipped and the walk continues.
func (s *Scanner) Discover(root string) (Discovery, error) {
	found := Discovery{Paths: []string{}}

	info, err := s.fsProvider.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return found, nil
		}
		return Discovery{}, fmt.Errorf("failed to access %s: %w", root, err)
	}
	if !info.IsDir() {
		return Discovery{}, fmt.Errorf("data root is not a directory: %s", root)
	}

	dir, err := s.fsProvider.Open(root)
	if err != nil {
		return Discovery{}, fmt.Errorf("failed to open directory: %w", err)
	}

	err = dir.Walk(func(file filesystem.File, err error) error {
		if err != nil {
			if file == nil || file.RelativePath() == "." {
				return fmt.Errorf("error walking %s: %w", root, err)
			}
			found.Skipped = append(found.Skipped, sparkload.FileFailure{
				Path: file.Path(),
				Err:  fmt.Errorf("failed to read directory entry: %w", err),
			})
			return nil
		}
		if !file.Info().Mode().IsRegular() {
			return nil
		}
		// Extensions are compared on the slash form so the memory and OS
		// providers agree.
		if path.Ext(file.RelativePath()) != s.extension {
			return nil
		}
		found.Paths = append(found.Paths, file.Path())
		return nil
	})
	if err != nil {
		return Discovery{}, err
	}
	return found, nil
}
