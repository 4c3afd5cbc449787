package takeover

// ConnInfoSize is the size of the opaque connection descriptor that is
// carried per mount. Its layout is owned by the virtualization layer;
// the takeover serializer transfers it verbatim.
const ConnInfoSize = 40

// Mount is the takeover state of a single mount: where it is mounted,
// where its state directory lives, which bind mounts hang off it, the
// opaque descriptor needed to resume the virtualization session, and
// the serialized inode map.
type Mount struct {
	MountPath          string
	StateDirectoryPath string
	BindMountPaths     []string
	ConnInfo           [ConnInfoSize]byte
	InodeMap           []byte
}

// Data is the full state handed from the old process to the new one.
type Data struct {
	Mounts []Mount
}
