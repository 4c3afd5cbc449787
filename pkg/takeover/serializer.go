package takeover

import (
	"encoding/binary"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Serialize encodes takeover data for transfer to the new process,
// using the dialect implied by the negotiated protocol version.
func Serialize(version uint32, data *Data) ([]byte, error) {
	capabilities, err := CapabilitiesForVersion(version)
	if err != nil {
		return nil, err
	}
	if capabilities&CapabilitySchemaSerialization != 0 {
		return serializeSchema(version, data)
	}
	return serializeCustom(data)
}

// SerializeError encodes a takeover failure, so that the new process
// learns why no state will be arriving.
func SerializeError(version uint32, reason string) ([]byte, error) {
	capabilities, err := CapabilitiesForVersion(version)
	if err != nil {
		return nil, err
	}
	if capabilities&CapabilitySchemaSerialization != 0 {
		return serializeSchemaError(version, reason)
	}
	return serializeCustomError(reason), nil
}

// Deserialize decodes a takeover message of either dialect. The
// dialect is detected from the first word of the stream: custom
// message types keep the word as part of the message, while schema
// versions act as a prefix that is consumed. A message carrying an
// error reason is reported as an Unavailable error.
func Deserialize(data []byte) (*Data, error) {
	if len(data) < 4 {
		return nil, status.Error(codes.InvalidArgument, "Takeover message is truncated")
	}
	switch word := binary.BigEndian.Uint32(data); word {
	case messageTypeError, messageTypeMounts:
		return deserializeCustom(data)
	default:
		if _, err := CapabilitiesForVersion(word); err != nil {
			return nil, err
		}
		return deserializeSchema(data[4:])
	}
}

// NewPing returns the probe message sent to the receiving process when
// CapabilityPing has been negotiated.
func NewPing() []byte {
	return appendUint32(nil, messageTypePing)
}

// IsPing returns whether a message is a ping probe.
func IsPing(data []byte) bool {
	return len(data) == 4 && binary.BigEndian.Uint32(data) == messageTypePing
}
