package buildkit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/basefab/basefab/core/plan"
	"github.com/charmbracelet/log"
	"github.com/moby/buildkit/client"
	_ "github.com/moby/buildkit/client/connhelper/dockercontainer"
	_ "github.com/moby/buildkit/client/connhelper/nerdctlcontainer"
	"github.com/moby/buildkit/client/llb"
	"github.com/moby/buildkit/session"
	"github.com/moby/buildkit/session/filesync"
	"github.com/moby/buildkit/util/appcontext"
	_ "github.com/moby/buildkit/util/grpcutil/encoding/proto"
	"github.com/tonistiigi/fsutil"
)

type BuildWithBuildkitClientOptions struct {
	ImageName  string
	OutputFile string
	Platform   BuildPlatform
	Registry   RegistryOptions
}

// BuildWithBuildkitClient provisions an image by solving the plan against a
// BuildKit daemon. contextDir is the local directory copy steps read from.
// The image is exported as a docker tarball, or pushed when registry export
// is configured.
func BuildWithBuildkitClient(contextDir string, p *plan.ProvisionPlan, opts BuildWithBuildkitClientOptions) error {
	ctx := appcontext.Context()

	buildkitHost := os.Getenv("BUILDKIT_HOST")
	if buildkitHost == "" {
		return fmt.Errorf("BUILDKIT_HOST environment variable is not set")
	}

	log.Debugf("Connecting to buildkit host: %s", buildkitHost)

	c, err := client.New(ctx, buildkitHost)
	if err != nil {
		return fmt.Errorf("failed to connect to buildkit: %w", err)
	}
	defer c.Close()

	info, err := c.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get buildkit info: %w", err)
	}

	log.Debugf("Buildkit version: %s", info.BuildkitVersion.Version)

	llbState, image, err := ConvertPlanToLLB(p, ConvertOptions{Platform: opts.Platform})
	if err != nil {
		return fmt.Errorf("error converting plan to LLB: %w", err)
	}

	imageBytes, err := json.Marshal(image)
	if err != nil {
		return fmt.Errorf("error marshalling image config: %w", err)
	}

	def, err := llbState.Marshal(ctx, llb.Platform(image.Platform))
	if err != nil {
		return fmt.Errorf("error marshaling LLB state: %w", err)
	}

	imageName := opts.ImageName
	if imageName == "" {
		imageName = getImageName(contextDir)
	}

	contextFS, err := fsutil.NewFS(contextDir)
	if err != nil {
		return fmt.Errorf("error creating context FS: %w", err)
	}

	attachables := []session.Attachable{
		filesync.NewFSSyncProvider(filesync.StaticDirSource{
			"context": contextFS,
		}),
	}

	if opts.Registry.RegistryURL != "" && opts.Registry.RegistryUser != "" {
		attachables = append(attachables,
			createAuthProvider(opts.Registry.RegistryURL, opts.Registry.RegistryUser, opts.Registry.RegistryPassword))
	}

	export, err := exportEntry(imageName, string(imageBytes), opts)
	if err != nil {
		return err
	}

	_, err = c.Solve(ctx, def, client.SolveOpt{
		Exports: []client.ExportEntry{export},
		Session: attachables,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to solve: %w", err)
	}

	log.Infof("Provisioned image %s", imageName)

	return nil
}

func exportEntry(imageName, imageConfig string, opts BuildWithBuildkitClientOptions) (client.ExportEntry, error) {
	if opts.Registry.UseRegistryExport {
		attrs := map[string]string{
			"name":                  imageName,
			"containerimage.config": imageConfig,
		}
		if opts.Registry.RegistryPush {
			attrs["push"] = "true"
		}

		return client.ExportEntry{
			Type:  client.ExporterImage,
			Attrs: attrs,
		}, nil
	}

	output := func(_ map[string]string) (io.WriteCloser, error) {
		if opts.OutputFile == "" {
			return os.Stdout, nil
		}
		return os.Create(opts.OutputFile)
	}

	return client.ExportEntry{
		Type: client.ExporterDocker,
		Attrs: map[string]string{
			"name":                  imageName,
			"containerimage.config": imageConfig,
		},
		Output: output,
	}, nil
}

func getImageName(contextDir string) string {
	name := filepath.Base(contextDir)
	if name == "" || name == "." || name == string(os.PathSeparator) {
		name = "basefab-image"
	}
	return name
}
