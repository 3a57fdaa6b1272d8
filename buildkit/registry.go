package buildkit

import (
	"github.com/docker/cli/cli/config/configfile"
	"github.com/docker/cli/cli/config/types"
	"github.com/moby/buildkit/session"
	"github.com/moby/buildkit/session/auth/authprovider"
)

// RegistryOptions configures registry export and authentication for a build.
// When UseRegistryExport is false the image is exported as a docker tarball
// and only the auth fields matter.
type RegistryOptions struct {
	UseRegistryExport bool
	RegistryURL       string
	RegistryUser      string
	RegistryPassword  string
	RegistryPush      bool
}

// createAuthProvider builds a session attachable that answers BuildKit's
// credential requests for the given registry from an in-memory docker config
func createAuthProvider(registryURL, username, password string) session.Attachable {
	configFile := configfile.New("")
	configFile.AuthConfigs = map[string]types.AuthConfig{
		registryURL: {
			Username: username,
			Password: password,
		},
	}

	return authprovider.NewDockerAuthProvider(authprovider.DockerAuthProviderConfig{
		ConfigFile: configFile,
	})
}
