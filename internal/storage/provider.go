// Package storage defines the journal vault file-system abstraction.
//
// The vault holds plan documents (Markdown) and uploaded lab reports.
package storage

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/starford/laguz/internal/models"
)

// Provider is the interface for journal vault file operations.
// All paths are relative to the vault root.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path.
	Write(path string, content []byte) error
	// Create writes a new file and fails with os.ErrExist if path is taken.
	Create(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}

// Checksum returns the hex-encoded SHA-256 digest of data. It is the
// value clients send back in If-Match.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
