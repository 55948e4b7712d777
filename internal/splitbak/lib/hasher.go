// Package lib contains the core, reusable services for the splitbak application.
package lib

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// HashAlgorithm names a content hash used by the integrity report.
type HashAlgorithm string

const (
	SHA256 HashAlgorithm = "sha256"
	MD5    HashAlgorithm = "md5"
	BLAKE3 HashAlgorithm = "blake3"
)

// DefaultHashAlgorithm is used when no algorithm is configured.
const DefaultHashAlgorithm = SHA256

// ParseHashAlgorithm validates a user-supplied algorithm name.
func ParseHashAlgorithm(name string) (HashAlgorithm, error) {
	switch algo := HashAlgorithm(name); algo {
	case SHA256, MD5, BLAKE3:
		return algo, nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm %q (want sha256, md5 or blake3)", name)
	}
}

// NewHash returns a fresh hash.Hash for algo.
func NewHash(algo HashAlgorithm) (hash.Hash, error) {
	switch algo {
	case SHA256:
		return sha256.New(), nil
	case MD5:
		return md5.New(), nil
	case BLAKE3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algo)
	}
}

// GetHash hashes an in-memory byte slice and returns it as a lowercase
// hex-encoded string.
func GetHash(algo HashAlgorithm, content []byte) (string, error) {
	hasher, err := NewHash(algo)
	if err != nil {
		return "", err
	}
	hasher.Write(content)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// GetFileHash hashes a file's contents by streaming it from disk.
// It returns the lowercase hex-encoded hash string and an error if any file
// operation fails.
func GetFileHash(algo HashAlgorithm, filePath string) (string, error) {
	hasher, err := NewHash(algo)
	if err != nil {
		return "", err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
