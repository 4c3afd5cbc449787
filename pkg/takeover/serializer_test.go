package takeover_test

import (
	"encoding/binary"
	"testing"

	"github.com/buildbarn/bb-storage/pkg/testutil"
	"github.com/buildbarn/bb-virtual-checkout/pkg/takeover"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestCapabilities(t *testing.T) {
	t.Run("ForVersion", func(t *testing.T) {
		c, err := takeover.CapabilitiesForVersion(takeover.VersionThree)
		require.NoError(t, err)
		require.Equal(t, takeover.CapabilityCustomSerialization, c)

		c, err = takeover.CapabilitiesForVersion(takeover.VersionFour)
		require.NoError(t, err)
		require.Equal(t, takeover.CapabilitySchemaSerialization, c)

		c, err = takeover.CapabilitiesForVersion(takeover.VersionFive)
		require.NoError(t, err)
		require.Equal(t, takeover.CapabilitySchemaSerialization|takeover.CapabilityPing, c)
	})

	t.Run("ForVersionUnsupported", func(t *testing.T) {
		_, err := takeover.CapabilitiesForVersion(2)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Unsupported takeover protocol version 2"), err)
	})

	t.Run("ForCapabilities", func(t *testing.T) {
		// The two mappings must be each other's inverse for every
		// supported version.
		for _, version := range []uint32{takeover.VersionThree, takeover.VersionFour, takeover.VersionFive} {
			c, err := takeover.CapabilitiesForVersion(version)
			require.NoError(t, err)
			v, err := takeover.VersionForCapabilities(c)
			require.NoError(t, err)
			require.Equal(t, version, v)
		}
	})

	t.Run("ForCapabilitiesUnmatched", func(t *testing.T) {
		_, err := takeover.VersionForCapabilities(takeover.CapabilityCustomSerialization | takeover.CapabilityPing)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Capability set 0x5 does not correspond to a takeover protocol version"), err)
	})
}

var exampleMount = takeover.Mount{
	MountPath:          "/m",
	StateDirectoryPath: "/s",
	InodeMap:           []byte("X"),
}

func TestCustomDialect(t *testing.T) {
	t.Run("ExactFraming", func(t *testing.T) {
		// A single mount with no bind mounts and an all-zero
		// connection info block has a fixed, fully predictable
		// encoding.
		data, err := takeover.Serialize(takeover.VersionThree, &takeover.Data{
			Mounts: []takeover.Mount{exampleMount},
		})
		require.NoError(t, err)

		expected := []byte{
			0x00, 0x00, 0x00, 0x02, // Message type MOUNTS.
			0x00, 0x00, 0x00, 0x01, // One mount.
			0x00, 0x00, 0x00, 0x02, '/', 'm',
			0x00, 0x00, 0x00, 0x02, '/', 's',
			0x00, 0x00, 0x00, 0x00, // No bind mounts.
		}
		expected = append(expected, make([]byte, takeover.ConnInfoSize)...)
		expected = append(expected,
			0x00, 0x00, 0x00, 0x00, // Reserved.
			0x00, 0x00, 0x00, 0x01, 'X')
		require.Equal(t, expected, data)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		original := &takeover.Data{
			Mounts: []takeover.Mount{
				{
					MountPath:          "/checkout/fbsource",
					StateDirectoryPath: "/var/lib/checkouts/fbsource",
					BindMountPaths:     []string{"/checkout/fbsource/buck-out", "/checkout/fbsource/out"},
					ConnInfo:           [takeover.ConnInfoSize]byte{1, 2, 3, 4, 5},
					InodeMap:           []byte("serialized inode map"),
				},
				{
					MountPath:          "/checkout/www",
					StateDirectoryPath: "/var/lib/checkouts/www",
					InodeMap:           []byte{},
				},
			},
		}
		data, err := takeover.Serialize(takeover.VersionThree, original)
		require.NoError(t, err)

		decoded, err := takeover.Deserialize(data)
		require.NoError(t, err)
		require.Equal(t, original, decoded)
	})

	t.Run("RoundTripNoMounts", func(t *testing.T) {
		data, err := takeover.Serialize(takeover.VersionThree, &takeover.Data{})
		require.NoError(t, err)

		decoded, err := takeover.Deserialize(data)
		require.NoError(t, err)
		require.Empty(t, decoded.Mounts)
	})

	t.Run("ErrorRoundTrip", func(t *testing.T) {
		data, err := takeover.SerializeError(takeover.VersionThree, "Graceful restart was aborted")
		require.NoError(t, err)

		_, err = takeover.Deserialize(data)
		testutil.RequireEqualStatus(t, status.Error(codes.Unavailable, "Takeover failed: Graceful restart was aborted"), err)
	})

	t.Run("Truncated", func(t *testing.T) {
		data, err := takeover.Serialize(takeover.VersionThree, &takeover.Data{
			Mounts: []takeover.Mount{exampleMount},
		})
		require.NoError(t, err)

		_, err = takeover.Deserialize(data[:len(data)-3])
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Invalid inode map for mount 0: Takeover message is truncated"), err)
	})

	t.Run("NonZeroReservedField", func(t *testing.T) {
		data, err := takeover.Serialize(takeover.VersionThree, &takeover.Data{
			Mounts: []takeover.Mount{exampleMount},
		})
		require.NoError(t, err)
		data[len(data)-6] = 0x01

		_, err = takeover.Deserialize(data)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Reserved field for mount 0 is 1, while zero was expected"), err)
	})

	t.Run("TrailingGarbage", func(t *testing.T) {
		data, err := takeover.Serialize(takeover.VersionThree, &takeover.Data{})
		require.NoError(t, err)
		data = append(data, 0xde, 0xad)

		_, err = takeover.Deserialize(data)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Takeover message has 2 bytes of trailing garbage"), err)
	})
}

// schemaTestRecord mirrors the structured record's framing, so that the
// advertised version can be inspected and malformed records can be
// constructed.
type schemaTestRecord struct {
	Version     uint32            `cbor:"1,keyasint"`
	Mounts      []schemaTestMount `cbor:"2,keyasint,omitempty"`
	ErrorReason *string           `cbor:"3,keyasint,omitempty"`
}

type schemaTestMount struct {
	MountPath          string   `cbor:"1,keyasint"`
	StateDirectoryPath string   `cbor:"2,keyasint"`
	BindMountPaths     []string `cbor:"3,keyasint,omitempty"`
	ConnInfo           []byte   `cbor:"4,keyasint"`
	InodeMap           []byte   `cbor:"5,keyasint"`
}

func TestSchemaDialect(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		original := &takeover.Data{
			Mounts: []takeover.Mount{
				{
					MountPath:          "/checkout/fbsource",
					StateDirectoryPath: "/var/lib/checkouts/fbsource",
					BindMountPaths:     []string{"/checkout/fbsource/buck-out"},
					ConnInfo:           [takeover.ConnInfoSize]byte{0xff, 0xee},
					InodeMap:           []byte("serialized inode map"),
				},
			},
		}
		for _, version := range []uint32{takeover.VersionFour, takeover.VersionFive} {
			data, err := takeover.Serialize(version, original)
			require.NoError(t, err)

			decoded, err := takeover.Deserialize(data)
			require.NoError(t, err)
			require.Equal(t, original, decoded)
		}
	})

	t.Run("VersionFourAdvertisesThree", func(t *testing.T) {
		// The record of a version four message declares itself as
		// version three, so that a rollback to a release that only
		// speaks version three can still consume it. The stream
		// prefix carries the real version.
		data, err := takeover.Serialize(takeover.VersionFour, &takeover.Data{})
		require.NoError(t, err)
		require.Equal(t, takeover.VersionFour, binary.BigEndian.Uint32(data))

		var record schemaTestRecord
		require.NoError(t, cbor.Unmarshal(data[4:], &record))
		require.Equal(t, takeover.VersionThree, record.Version)
	})

	t.Run("VersionFiveAdvertisesItself", func(t *testing.T) {
		data, err := takeover.Serialize(takeover.VersionFive, &takeover.Data{})
		require.NoError(t, err)
		require.Equal(t, takeover.VersionFive, binary.BigEndian.Uint32(data))

		var record schemaTestRecord
		require.NoError(t, cbor.Unmarshal(data[4:], &record))
		require.Equal(t, takeover.VersionFive, record.Version)
	})

	t.Run("ErrorRoundTrip", func(t *testing.T) {
		data, err := takeover.SerializeError(takeover.VersionFive, "Graceful restart was aborted")
		require.NoError(t, err)

		_, err = takeover.Deserialize(data)
		testutil.RequireEqualStatus(t, status.Error(codes.Unavailable, "Takeover failed: Graceful restart was aborted"), err)
	})

	t.Run("InvalidConnInfoSize", func(t *testing.T) {
		body, err := cbor.Marshal(&schemaTestRecord{
			Version: takeover.VersionThree,
			Mounts: []schemaTestMount{
				{
					MountPath:          "/m",
					StateDirectoryPath: "/s",
					ConnInfo:           make([]byte, 39),
					InodeMap:           []byte("X"),
				},
			},
		})
		require.NoError(t, err)
		data := append(binary.BigEndian.AppendUint32(nil, takeover.VersionFour), body...)

		_, err = takeover.Deserialize(data)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Connection info for mount 0 is 39 bytes in size, while 40 bytes were expected"), err)
	})
}

func TestDeserializeDetection(t *testing.T) {
	t.Run("TooShort", func(t *testing.T) {
		_, err := takeover.Deserialize([]byte{0x00, 0x00})
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Takeover message is truncated"), err)
	})

	t.Run("UnknownVersion", func(t *testing.T) {
		_, err := takeover.Deserialize(binary.BigEndian.AppendUint32(nil, 9))
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Unsupported takeover protocol version 9"), err)
	})
}

func TestPing(t *testing.T) {
	ping := takeover.NewPing()
	require.Len(t, ping, 4)
	require.True(t, takeover.IsPing(ping))

	// The ping tag must never collide with a supported version or
	// another message type, as all three share the first word of the
	// stream.
	_, err := takeover.CapabilitiesForVersion(binary.BigEndian.Uint32(ping))
	require.Error(t, err)

	data, err := takeover.Serialize(takeover.VersionThree, &takeover.Data{})
	require.NoError(t, err)
	require.False(t, takeover.IsPing(data))
	require.False(t, takeover.IsPing(nil))
}
