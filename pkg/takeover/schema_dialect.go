package takeover

import (
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/fxamacker/cbor/v2"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// schemaMount is the structured form of a mount's takeover state.
// Field numbers are part of the wire format and must never be reused.
type schemaMount struct {
	MountPath          string   `cbor:"1,keyasint"`
	StateDirectoryPath string   `cbor:"2,keyasint"`
	BindMountPaths     []string `cbor:"3,keyasint,omitempty"`
	ConnInfo           []byte   `cbor:"4,keyasint"`
	InodeMap           []byte   `cbor:"5,keyasint"`
}

type schemaRecord struct {
	Version     uint32        `cbor:"1,keyasint"`
	Mounts      []schemaMount `cbor:"2,keyasint,omitempty"`
	ErrorReason *string       `cbor:"3,keyasint,omitempty"`
}

// advertisedVersion returns the version number embedded in a schema
// record. Version four records declare themselves as version three, so
// that rolling back to a release that only understands version three
// remains possible.
func advertisedVersion(version uint32) uint32 {
	if version == VersionFour {
		return VersionThree
	}
	return version
}

// serializeSchema encodes takeover data as a structured record,
// prefixed with the negotiated protocol version.
func serializeSchema(version uint32, data *Data) ([]byte, error) {
	record := schemaRecord{Version: advertisedVersion(version)}
	for _, mount := range data.Mounts {
		record.Mounts = append(record.Mounts, schemaMount{
			MountPath:          mount.MountPath,
			StateDirectoryPath: mount.StateDirectoryPath,
			BindMountPaths:     mount.BindMountPaths,
			ConnInfo:           append([]byte(nil), mount.ConnInfo[:]...),
			InodeMap:           mount.InodeMap,
		})
	}
	body, err := cbor.Marshal(&record)
	if err != nil {
		return nil, util.StatusWrap(err, "Failed to serialize takeover data")
	}
	return append(appendUint32(nil, version), body...), nil
}

// serializeSchemaError encodes an error reason as a structured record.
func serializeSchemaError(version uint32, reason string) ([]byte, error) {
	record := schemaRecord{
		Version:     advertisedVersion(version),
		ErrorReason: &reason,
	}
	body, err := cbor.Marshal(&record)
	if err != nil {
		return nil, util.StatusWrap(err, "Failed to serialize takeover error")
	}
	return append(appendUint32(nil, version), body...), nil
}

// deserializeSchema decodes a structured record. The version word has
// already been consumed by protocol detection.
func deserializeSchema(body []byte) (*Data, error) {
	var record schemaRecord
	if err := cbor.Unmarshal(body, &record); err != nil {
		return nil, util.StatusWrap(err, "Failed to deserialize takeover data")
	}
	if record.ErrorReason != nil {
		return nil, status.Errorf(codes.Unavailable, "Takeover failed: %s", *record.ErrorReason)
	}

	result := &Data{}
	for i, mount := range record.Mounts {
		if len(mount.ConnInfo) != ConnInfoSize {
			return nil, status.Errorf(codes.InvalidArgument, "Connection info for mount %d is %d bytes in size, while %d bytes were expected", i, len(mount.ConnInfo), ConnInfoSize)
		}
		m := Mount{
			MountPath:          mount.MountPath,
			StateDirectoryPath: mount.StateDirectoryPath,
			BindMountPaths:     mount.BindMountPaths,
			InodeMap:           mount.InodeMap,
		}
		copy(m.ConnInfo[:], mount.ConnInfo)
		result.Mounts = append(result.Mounts, m)
	}
	return result, nil
}
