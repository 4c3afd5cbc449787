package store

import (
	"crypto/sha1"
	"encoding/hex"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// HashSize is the size in bytes of the content hashes used by the
// object store.
const HashSize = 20

// Hash is a 20-byte content hash identifying an object in the backing
// store. The zero value refers to the null object.
type Hash [HashSize]byte

// NewHashFromBytes creates a Hash from a raw 20-byte slice.
func NewHashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, status.Errorf(codes.InvalidArgument, "Hash is %d bytes in size, while %d bytes were expected", len(b), HashSize)
	}
	copy(h[:], b)
	return h, nil
}

// NewHashFromString creates a Hash from a 40-character hexadecimal
// string.
func NewHashFromString(s string) (Hash, error) {
	var h Hash
	if len(s) != 2*HashSize {
		return h, status.Errorf(codes.InvalidArgument, "Hash is %d characters in size, while %d characters were expected", len(s), 2*HashSize)
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, status.Errorf(codes.InvalidArgument, "Hash has invalid characters: %s", err)
	}
	return h, nil
}

// SHA1OfBytes computes the SHA-1 content hash of a byte slice.
func SHA1OfBytes(b []byte) Hash {
	return Hash(sha1.Sum(b))
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}
