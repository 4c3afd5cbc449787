package proxyhash

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/buildbarn/bb-virtual-checkout/pkg/store"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// TypeHgIDNoPath is the type marker of an embedded proxy hash that
// carries a revision hash with no associated path.
const TypeHgIDNoPath byte = 0x01

// EmptySHA1 is the SHA-1 of the empty proxy hash, i.e. the record for
// the zero revision hash paired with the empty path.
var EmptySHA1 = mustHashFromString("d3399b7262fb56cb9ed053d68db9291c410839c4")

func mustHashFromString(s string) store.Hash {
	h, err := store.NewHashFromString(s)
	if err != nil {
		panic(err)
	}
	return h
}

// ObjectID identifies a blob as handed out to the rest of the system.
// It is either a plain 20-byte content hash referring to a legacy
// record in the local store, or an embedded form consisting of a type
// marker followed by the revision hash.
type ObjectID []byte

// ProxyHash pairs a repository-relative path with the 20-byte revision
// hash of the blob at that path. The zero value denotes the zero
// revision hash with an empty path.
//
// The in-memory representation is the serialized record itself:
// hash_bytes(20) || path_length(uint32 big-endian) || path_bytes.
type ProxyHash struct {
	value []byte
}

// New creates a ProxyHash from its constituent parts.
func New(path string, revHash store.Hash) ProxyHash {
	if uint64(len(path)) > math.MaxUint32 {
		panic("path too large")
	}
	value := make([]byte, 0, store.HashSize+4+len(path))
	value = append(value, revHash[:]...)
	value = binary.BigEndian.AppendUint32(value, uint32(len(path)))
	value = append(value, path...)
	return ProxyHash{value: value}
}

// MakeEmbeddedObjectID returns the object identifier for a revision
// hash that has no associated path. No record needs to be written to
// the local store to make such an identifier loadable.
func MakeEmbeddedObjectID(revHash store.Hash) ObjectID {
	id := make(ObjectID, 0, store.HashSize+1)
	id = append(id, TypeHgIDNoPath)
	id = append(id, revHash[:]...)
	return id
}

// tryParseEmbedded recognizes embedded object identifiers. It returns
// false for identifiers that refer to legacy records, and an error for
// identifiers that are longer than a bare hash but do not carry a known
// type marker.
func tryParseEmbedded(id ObjectID) (ProxyHash, bool, error) {
	if len(id) <= store.HashSize {
		return ProxyHash{}, false, nil
	}
	if len(id) != store.HashSize+1 || id[0] != TypeHgIDNoPath {
		return ProxyHash{}, false, status.Errorf(codes.InvalidArgument, "Unknown proxy hash type: size %d, type %d", len(id), id[0])
	}
	revHash, err := store.NewHashFromBytes(id[1:])
	if err != nil {
		return ProxyHash{}, false, err
	}
	return New("", revHash), true, nil
}

// parseRecord validates and adopts a serialized legacy record.
func parseRecord(id ObjectID, value []byte) (ProxyHash, error) {
	if len(value) < store.HashSize+4 {
		return ProxyHash{}, status.Errorf(codes.InvalidArgument, "Proxy hash record for %#x is too short (%d bytes)", []byte(id), len(value))
	}
	if pathLength := binary.BigEndian.Uint32(value[store.HashSize:]); uint64(pathLength) != uint64(len(value)-store.HashSize-4) {
		return ProxyHash{}, status.Errorf(codes.InvalidArgument, "Proxy hash record for %#x has inconsistent path length", []byte(id))
	}
	return ProxyHash{value: append([]byte(nil), value...)}, nil
}

// Load resolves a single object identifier to a ProxyHash, consulting
// the local store for legacy records.
func Load(ctx context.Context, localStore LegacyStore, id ObjectID) (ProxyHash, error) {
	if ph, ok, err := tryParseEmbedded(id); err != nil {
		return ProxyHash{}, err
	} else if ok {
		return ph, nil
	}
	value, err := localStore.Get(ctx, id)
	if err != nil {
		return ProxyHash{}, util.StatusWrapf(err, "Failed to load proxy hash record for %#x", []byte(id))
	}
	return parseRecord(id, value)
}

// Store writes the legacy record for a (path, revision hash) pair to
// the local store and returns the object identifier under which it was
// stored.
func Store(ctx context.Context, localStore LegacyStore, path string, revHash store.Hash) (ObjectID, error) {
	ph := New(path, revHash)
	sha1 := ph.SHA1()
	id := ObjectID(append([]byte(nil), sha1[:]...))
	if err := localStore.Put(ctx, id, ph.value); err != nil {
		return nil, util.StatusWrapf(err, "Failed to store proxy hash record for path %#v", path)
	}
	return id, nil
}

// GetBatch resolves a list of object identifiers. Embedded identifiers
// are resolved locally; the remaining ones are fetched from the local
// store in a single batch. The returned list preserves the order of the
// input.
func GetBatch(ctx context.Context, localStore LegacyStore, ids []ObjectID) ([]ProxyHash, error) {
	// Partition into embedded and legacy identifiers, remembering
	// where each result belongs.
	results := make([]ProxyHash, len(ids))
	var legacyIDs []ObjectID
	var legacyIndices []int
	for i, id := range ids {
		if ph, ok, err := tryParseEmbedded(id); err != nil {
			return nil, err
		} else if ok {
			results[i] = ph
		} else {
			legacyIDs = append(legacyIDs, id)
			legacyIndices = append(legacyIndices, i)
		}
	}
	if len(legacyIDs) == 0 {
		return results, nil
	}

	values, err := localStore.GetBatch(ctx, legacyIDs)
	if err != nil {
		return nil, err
	}
	for i, value := range values {
		ph, err := parseRecord(legacyIDs[i], value)
		if err != nil {
			return nil, err
		}
		results[legacyIndices[i]] = ph
	}
	return results, nil
}

// Path returns the repository-relative path stored in the record.
func (ph ProxyHash) Path() string {
	if len(ph.value) == 0 {
		return ""
	}
	return string(ph.value[store.HashSize+4:])
}

// RevHash returns the revision hash stored in the record.
func (ph ProxyHash) RevHash() store.Hash {
	var h store.Hash
	if len(ph.value) > 0 {
		copy(h[:], ph.value)
	}
	return h
}

// SHA1 returns the content hash of the serialized record. For the zero
// value this is a known constant.
func (ph ProxyHash) SHA1() store.Hash {
	if len(ph.value) == 0 {
		return EmptySHA1
	}
	return store.SHA1OfBytes(ph.value)
}

// Bytes returns the serialized record.
func (ph ProxyHash) Bytes() []byte {
	return ph.value
}
