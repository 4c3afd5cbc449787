package takeover

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Capabilities is the bitset of takeover protocol features negotiated
// between the old and the new process. On the wire a legacy integer
// version is carried instead of the bitset, as older releases predate
// capability negotiation.
type Capabilities uint64

const (
	// CapabilityCustomSerialization indicates that takeover data is
	// framed with the hand-rolled length-prefixed encoding.
	CapabilityCustomSerialization Capabilities = 1 << iota
	// CapabilitySchemaSerialization indicates that takeover data is
	// carried as a structured record with a version prefix.
	CapabilitySchemaSerialization
	// CapabilityPing indicates that the sender probes the receiver
	// with a ping message before transferring state, so that a hung
	// receiver is detected before the state is handed off.
	CapabilityPing
)

// Protocol versions that can be carried on the wire. Versions one and
// two predate this implementation and are no longer supported.
const (
	VersionThree uint32 = 3
	VersionFour  uint32 = 4
	VersionFive  uint32 = 5
)

var versionCapabilities = map[uint32]Capabilities{
	VersionThree: CapabilityCustomSerialization,
	VersionFour:  CapabilitySchemaSerialization,
	VersionFive:  CapabilitySchemaSerialization | CapabilityPing,
}

// CapabilitiesForVersion expands a legacy version number into the
// capability bitset it stands for.
func CapabilitiesForVersion(version uint32) (Capabilities, error) {
	capabilities, ok := versionCapabilities[version]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "Unsupported takeover protocol version %d", version)
	}
	return capabilities, nil
}

// VersionForCapabilities derives the legacy version number for a
// capability bitset. Only bitsets corresponding to a supported version
// can be expressed.
func VersionForCapabilities(capabilities Capabilities) (uint32, error) {
	for version, c := range versionCapabilities {
		if c == capabilities {
			return version, nil
		}
	}
	return 0, status.Errorf(codes.InvalidArgument, "Capability set %#x does not correspond to a takeover protocol version", uint64(capabilities))
}

// ComputeCompatibleVersion negotiates the protocol version used for a
// handoff between two processes that may run different releases. The
// result is the highest version whose features both sides support.
func ComputeCompatibleVersion(a, b Capabilities) (uint32, error) {
	common := a & b
	bestVersion := uint32(0)
	found := false
	for version, c := range versionCapabilities {
		if c&common == c && (!found || version > bestVersion) {
			bestVersion = version
			found = true
		}
	}
	if !found {
		return 0, status.Errorf(codes.InvalidArgument, "Capability sets %#x and %#x share no takeover protocol version", uint64(a), uint64(b))
	}
	return bestVersion, nil
}
