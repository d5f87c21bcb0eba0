// Package storage defines the file-system abstraction behind the family file.
package storage

// Provider is the interface for reading and rewriting files under one root
// directory. Names are relative to that root.
type Provider interface {
	// Read returns the raw bytes of the named file. A missing file yields an
	// error satisfying errors.Is(err, os.ErrNotExist).
	Read(name string) ([]byte, error)
	// Write atomically replaces the named file with content.
	Write(name string, content []byte) error
	// Abs resolves name to an absolute path inside the root.
	Abs(name string) (string, error)
}
