package update

import (
	"fmt"
	"runtime"
)

// Platform describes the current system platform.
type Platform struct {
	OS   string
	Arch string
}

// DetectPlatform returns the current platform.
func DetectPlatform() Platform {
	return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// ArtifactName returns the release archive name for this platform,
// e.g. "devc_linux_amd64.tar.gz". The archive contains a complete runtime
// tree: the binary, bundled templates, and the version manifest.
func (p Platform) ArtifactName() string {
	return fmt.Sprintf("devc_%s_%s.tar.gz", p.OS, p.Arch)
}

// IsSupported returns true if release artifacts are published for this
// platform.
func (p Platform) IsSupported() bool {
	switch p.OS {
	case "darwin", "linux":
		return p.Arch == "amd64" || p.Arch == "arm64"
	default:
		return false
	}
}

func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}
