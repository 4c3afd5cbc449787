package takeover

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Message types of the custom dialect. Their values must stay disjoint
// from the supported protocol versions, as protocol detection uses the
// first word of the stream to tell the two dialects apart.
const (
	messageTypeError  uint32 = 1
	messageTypeMounts uint32 = 2
	messageTypePing   uint32 = 6
)

func appendUint32(b []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(b, v)
}

func appendLengthPrefixed(b, data []byte) ([]byte, error) {
	if uint64(len(data)) > math.MaxUint32 {
		return nil, status.Errorf(codes.InvalidArgument, "Field of %d bytes does not fit in a length prefix", len(data))
	}
	b = appendUint32(b, uint32(len(data)))
	return append(b, data...), nil
}

// serializeCustom frames takeover data with the length-prefixed
// encoding used by protocol version three.
func serializeCustom(data *Data) ([]byte, error) {
	b := appendUint32(nil, messageTypeMounts)
	b = appendUint32(b, uint32(len(data.Mounts)))
	for _, mount := range data.Mounts {
		var err error
		if b, err = appendLengthPrefixed(b, []byte(mount.MountPath)); err != nil {
			return nil, err
		}
		if b, err = appendLengthPrefixed(b, []byte(mount.StateDirectoryPath)); err != nil {
			return nil, err
		}
		b = appendUint32(b, uint32(len(mount.BindMountPaths)))
		for _, bindMountPath := range mount.BindMountPaths {
			if b, err = appendLengthPrefixed(b, []byte(bindMountPath)); err != nil {
				return nil, err
			}
		}
		b = append(b, mount.ConnInfo[:]...)
		b = appendUint32(b, 0)
		if b, err = appendLengthPrefixed(b, mount.InodeMap); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// serializeCustomError frames an error reason with the length-prefixed
// encoding.
func serializeCustomError(reason string) []byte {
	b := appendUint32(nil, messageTypeError)
	b = appendUint32(b, uint32(len(reason)))
	return append(b, reason...)
}

type customReader struct {
	b *bytes.Reader
}

func (r *customReader) uint32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r.b, buf[:]); err != nil {
		return 0, status.Error(codes.InvalidArgument, "Takeover message is truncated")
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func (r *customReader) bytes(length uint32) ([]byte, error) {
	if uint64(length) > uint64(r.b.Len()) {
		return nil, status.Error(codes.InvalidArgument, "Takeover message is truncated")
	}
	buf := make([]byte, length)
	r.b.Read(buf)
	return buf, nil
}

func (r *customReader) lengthPrefixed() ([]byte, error) {
	length, err := r.uint32()
	if err != nil {
		return nil, err
	}
	return r.bytes(length)
}

// deserializeCustom decodes a message framed with the custom dialect.
// The message type word is still part of the input, as protocol
// detection does not consume it for this dialect.
func deserializeCustom(data []byte) (*Data, error) {
	r := customReader{b: bytes.NewReader(data)}
	messageType, err := r.uint32()
	if err != nil {
		return nil, err
	}
	switch messageType {
	case messageTypeError:
		reason, err := r.lengthPrefixed()
		if err != nil {
			return nil, err
		}
		return nil, status.Errorf(codes.Unavailable, "Takeover failed: %s", string(reason))
	case messageTypeMounts:
	default:
		return nil, status.Errorf(codes.InvalidArgument, "Unknown takeover message type %d", messageType)
	}

	mountCount, err := r.uint32()
	if err != nil {
		return nil, err
	}
	result := &Data{}
	for i := uint32(0); i < mountCount; i++ {
		var mount Mount
		mountPath, err := r.lengthPrefixed()
		if err != nil {
			return nil, util.StatusWrapf(err, "Invalid mount path for mount %d", i)
		}
		mount.MountPath = string(mountPath)
		stateDirectoryPath, err := r.lengthPrefixed()
		if err != nil {
			return nil, util.StatusWrapf(err, "Invalid state directory path for mount %d", i)
		}
		mount.StateDirectoryPath = string(stateDirectoryPath)
		bindMountCount, err := r.uint32()
		if err != nil {
			return nil, util.StatusWrapf(err, "Invalid bind mount count for mount %d", i)
		}
		for j := uint32(0); j < bindMountCount; j++ {
			bindMountPath, err := r.lengthPrefixed()
			if err != nil {
				return nil, util.StatusWrapf(err, "Invalid bind mount path %d for mount %d", j, i)
			}
			mount.BindMountPaths = append(mount.BindMountPaths, string(bindMountPath))
		}
		connInfo, err := r.bytes(ConnInfoSize)
		if err != nil {
			return nil, util.StatusWrapf(err, "Invalid connection info for mount %d", i)
		}
		copy(mount.ConnInfo[:], connInfo)
		if reserved, err := r.uint32(); err != nil {
			return nil, util.StatusWrapf(err, "Invalid reserved field for mount %d", i)
		} else if reserved != 0 {
			return nil, status.Errorf(codes.InvalidArgument, "Reserved field for mount %d is %d, while zero was expected", i, reserved)
		}
		if mount.InodeMap, err = r.lengthPrefixed(); err != nil {
			return nil, util.StatusWrapf(err, "Invalid inode map for mount %d", i)
		}
		result.Mounts = append(result.Mounts, mount)
	}
	if r.b.Len() != 0 {
		return nil, status.Errorf(codes.InvalidArgument, "Takeover message has %d bytes of trailing garbage", r.b.Len())
	}
	return result, nil
}
