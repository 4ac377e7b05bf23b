package scaffold

import "strings"

// ImageResolver turns a profile's base image name into either a pullable
// registry reference or a local Dockerfile build. The implementation is
// chosen once at startup; generation code never branches on a mode string.
type ImageResolver interface {
	// Resolve returns the image reference and whether the environment
	// should build it locally from a generated Dockerfile.
	Resolve(image string) (ref string, buildLocally bool)
}

// RegistryResolver maps profile images onto a container registry.
type RegistryResolver struct {
	Registry string
}

// Resolve prefixes the configured registry unless the image already names
// a registry or namespace of its own.
func (r RegistryResolver) Resolve(image string) (string, bool) {
	if r.Registry == "" || strings.Contains(image, "/") {
		return image, false
	}
	return r.Registry + "/" + image, false
}

// LocalBuildResolver keeps the image name as a Dockerfile base, for
// environments that cannot pull prebuilt devcontainer images.
type LocalBuildResolver struct{}

// Resolve returns the image unchanged and requests a local build.
func (LocalBuildResolver) Resolve(image string) (string, bool) {
	return image, true
}
