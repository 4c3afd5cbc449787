package main

import (
	"github.com/buildbarn/bb-virtual-checkout/pkg/filesystem/projection"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// newVirtualizationInstance returns the handle through which the
// projection channel talks to the operating system's projection
// service. No Go binding for ProjectedFSLib exists at this time, so
// this always fails and the daemon exits during startup.
//
// TODO: Bind to ProjectedFSLib so that the daemon can register mounts.
func newVirtualizationInstance() (projection.VirtualizationInstance, error) {
	return nil, status.Error(codes.Unimplemented, "This build does not include a projection service binding")
}
