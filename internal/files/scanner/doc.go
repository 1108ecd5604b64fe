// Package scanner discovers dataset documents under a root directory.
//
// The scanner is filesystem-agnostic through filesystem.FileSystemProvider,
// so discovery runs against the OS filesystem in production and against an
// in-memory tree in tests.
package scanner
