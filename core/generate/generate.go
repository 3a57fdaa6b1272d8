package generate

import (
	"fmt"
	"net/url"
	"path"

	"github.com/basefab/basefab/core/plan"
	"github.com/basefab/basefab/core/spec"
	"github.com/basefab/basefab/core/utils"
	"github.com/moby/buildkit/util/system"
)

const (
	// DownloadDir is where installer payloads land inside the image
	DownloadDir = "/tmp/basefab"
)

// GenerateOptions tweak planning without editing the spec file
type GenerateOptions struct {
	// BaseImage overrides the spec's base image
	BaseImage string
}

// GeneratePlan turns an ImageSpec into the ordered step sequence of a
// provisioning run:
//
//  1. pull the base image
//  2. refresh the package index and install the OS packages, in order
//  3. download the runtime installer
//  4. execute the installer non-interactively against its install prefix
//  5. apply the environment mutation (PATH prepends, variables)
//  6. self-update the runtime's package manager (non-fatal)
//
// followed by any copies and extra steps the spec declares. The BASEFAB_*
// variables of env are merged over the spec before planning.
func GeneratePlan(imageSpec *spec.ImageSpec, env *spec.Environment, options *GenerateOptions) (*plan.ProvisionPlan, error) {
	if options == nil {
		options = &GenerateOptions{}
	}

	merged := imageSpec.Merge(spec.SpecFromEnvironment(env))
	if options.BaseImage != "" {
		merged.BaseImage = options.BaseImage
	}

	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("invalid spec: %w", err)
	}

	p := plan.NewProvisionPlan()
	p.BaseImage = merged.BaseImage
	p.PathBase = merged.PathBase
	if p.PathBase == "" {
		p.PathBase = system.DefaultPathEnvUnix
	}

	p.AddStep(plan.NewPullImageStep(merged.BaseImage))

	// Order of the package list is kept as given. It only affects install
	// determinism and log reproducibility, not semantics.
	if len(merged.Packages) > 0 {
		p.AddStep(plan.NewInstallPackagesStep(merged.Packages))
	}

	if merged.Installer != nil {
		dest, err := installerDest(merged.Installer.URL)
		if err != nil {
			return nil, err
		}

		p.AddStep(plan.NewDownloadFileStep(merged.Installer.URL, dest, merged.Installer.SHA256))
		p.AddStep(plan.NewRunInstallerStep(dest, merged.Installer.Path))
	}

	for _, dir := range utils.RemoveDuplicates(merged.PathPrepend) {
		p.AddStep(plan.NewPathStep(dir))
	}

	for _, name := range utils.SortedKeys(merged.Variables) {
		p.AddStep(plan.NewVariableStep(name, merged.Variables[name]))
	}

	if merged.Installer != nil && merged.Installer.SelfUpdateCmd != "" {
		p.AddStep(plan.NewRunCommandStep(merged.Installer.SelfUpdateCmd, plan.RunOptions{
			NonFatal:   true,
			CustomName: "self-update runtime package manager",
		}))
	}

	for _, copySpec := range merged.Copies {
		p.AddStep(plan.NewCopyStep(copySpec.Src, copySpec.Dest, copySpec.Include, copySpec.Exclude))
	}

	for _, shorthand := range merged.Steps {
		step, err := plan.UnmarshalStringStep(shorthand)
		if err != nil {
			return nil, fmt.Errorf("invalid step %q: %w", shorthand, err)
		}
		p.AddStep(step)
	}

	return p, nil
}

// installerDest is the deterministic in-image path the installer payload is
// downloaded to
func installerDest(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid installer url %q: %w", rawURL, err)
	}

	name := path.Base(parsed.Path)
	if name == "" || name == "." || name == "/" {
		name = "installer.sh"
	}

	return path.Join(DownloadDir, name), nil
}
