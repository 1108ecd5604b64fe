// Package filesystem abstracts the directory tree that holds dataset documents.
//
// Key interfaces:
//   - FileSystemProvider: opens directories, reads files, stats paths
//   - Directory: a tree that can be walked
//   - File: one walked entry with its metadata
//
// Implementations:
//   - OSFileSystem: the operating system filesystem
//   - MemoryFileSystem: an in-memory tree with read-fault injection, for tests
//
// Missing paths are reported with errors that satisfy errors.Is(err, fs.ErrNotExist)
// in both implementations.
package filesystem
