// Package storage defines the tree file-system abstraction.
package storage

import "io"

// Provider is the interface for tree file operations. Paths are relative
// to the provider root.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// List returns every eligible file under the root in walk order.
	List() ([]File, error)
	// Open opens the file at path for reading.
	Open(path string) (io.ReadCloser, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// WriteIfChanged writes content unless path already holds the same bytes.
	WriteIfChanged(path string, content []byte) (bool, error)
}

// File is one eligible file found by List.
type File struct {
	// Path is relative to the provider root.
	Path string
	// AbsPath is the absolute location on disk.
	AbsPath string
}
