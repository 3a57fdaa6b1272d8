package buildkit

import (
	"fmt"
	"runtime"

	specs "github.com/opencontainers/image-spec/specs-go/v1"
)

// BuildPlatform is the target platform a provisioned image is built for
type BuildPlatform struct {
	OS           string
	Architecture string
	Variant      string
}

var (
	PlatformLinuxAMD64 = BuildPlatform{
		OS:           "linux",
		Architecture: "amd64",
	}
	PlatformLinuxARM64 = BuildPlatform{
		OS:           "linux",
		Architecture: "arm64",
		Variant:      "v8",
	}
)

// ParseBuildPlatform parses an os/arch flag value. An empty value selects
// the host platform.
func ParseBuildPlatform(value string) (BuildPlatform, error) {
	switch value {
	case "":
		return DetermineBuildPlatformFromHost(), nil
	case "linux/amd64":
		return PlatformLinuxAMD64, nil
	case "linux/arm64":
		return PlatformLinuxARM64, nil
	}
	return BuildPlatform{}, fmt.Errorf("unsupported platform %q", value)
}

func DetermineBuildPlatformFromHost() BuildPlatform {
	if runtime.GOARCH == "arm64" {
		return PlatformLinuxARM64
	}
	return PlatformLinuxAMD64
}

func (p BuildPlatform) String() string {
	return fmt.Sprintf("%s/%s", p.OS, p.Architecture)
}

func (p BuildPlatform) ToPlatform() specs.Platform {
	return specs.Platform{
		OS:           p.OS,
		Architecture: p.Architecture,
		Variant:      p.Variant,
	}
}
