package buildkit

import (
	"fmt"
	"path"
	"strings"

	"github.com/basefab/basefab/core/plan"
	"github.com/basefab/basefab/core/utils"
	"github.com/moby/buildkit/client/llb"
	"github.com/moby/buildkit/util/system"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
)

type ConvertOptions struct {
	Platform BuildPlatform
}

// ConvertPlanToLLB compiles a provisioning plan into a BuildKit LLB state
// plus the OCI image config of the resulting image. Steps become a linear
// chain of exec ops in plan order, so BuildKit executes them with the same
// fail-fast semantics as the local runner.
func ConvertPlanToLLB(p *plan.ProvisionPlan, opts ConvertOptions) (*llb.State, *Image, error) {
	platform := opts.Platform
	if platform.OS == "" {
		platform = DetermineBuildPlatformFromHost()
	}

	pathBase := p.PathBase
	if pathBase == "" {
		pathBase = system.DefaultPathEnvUnix
	}

	env := plan.NewEnv()
	state := llb.Image(p.BaseImage, llb.Platform(platform.ToPlatform()))
	state = state.AddEnv("PATH", pathBase)

	curlReady := false
	for i, step := range p.Steps {
		switch step := step.(type) {
		case plan.PullImageStep:
			// A mid-plan pull would discard every layer built so far
			if i > 0 {
				return nil, nil, fmt.Errorf("pullImage at step %d: only valid as the first step", i)
			}
			state = llb.Image(step.Image, llb.Platform(platform.ToPlatform())).
				AddEnv("PATH", pathBase)

		case plan.InstallPackagesStep:
			state = convertInstallPackages(state, step)

		case plan.DownloadFileStep:
			if !curlReady {
				state = state.Run(
					llb.Shlex(ensureCurlCommand()),
					llb.WithCustomName("ensure curl"),
				).Root()
				curlReady = true
			}
			state = state.Run(
				llb.Shlex(downloadCommand(step)),
				llb.WithCustomName(fmt.Sprintf("download %s", step.URL)),
			).Root()

		case plan.RunInstallerStep:
			state = state.Run(
				llb.Shlex(installerCommand(step)),
				llb.WithCustomName(fmt.Sprintf("install into %s", step.Target)),
			).Root()

		case plan.SetEnvStep:
			if step.IsPath() {
				env.AddPath(step.Path)
				state = state.AddEnv("PATH", env.EffectivePath(pathBase))
			} else {
				env.SetVar(step.Name, step.Value)
				state = state.AddEnv(step.Name, step.Value)
			}

		case plan.CopyStep:
			src := llb.Local("context")
			state = state.File(llb.Copy(src, step.Src, step.Dest, &llb.CopyInfo{
				CopyDirContentsOnly: true,
				CreateDestPath:      true,
				IncludePatterns:     step.Include,
				ExcludePatterns:     step.Exclude,
			}))

		case plan.RunCommandStep:
			state = convertRunCommand(state, step)

		default:
			return nil, nil, fmt.Errorf("cannot convert step type %q to LLB", step.StepType())
		}
	}

	image := &Image{
		Image: specs.Image{
			Platform: platform.ToPlatform(),
		},
		Config: specs.ImageConfig{
			Env:        imageEnv(env, pathBase),
			WorkingDir: "/",
		},
	}

	return &state, image, nil
}

func convertInstallPackages(state llb.State, step plan.InstallPackagesStep) llb.State {
	packages := strings.Join(step.Packages, " ")

	return state.
		AddEnv("DEBIAN_FRONTEND", "noninteractive").
		Run(llb.Shlex("apt-get update"), llb.WithCustomName("refresh package index")).
		Run(
			llb.Shlex(fmt.Sprintf("apt-get install -y --no-install-recommends %s", packages)),
			llb.WithCustomName(fmt.Sprintf("install %s", packages)),
		).
		Run(llb.Shlex("rm -rf /var/lib/apt/lists/*")).
		Root()
}

func convertRunCommand(state llb.State, step plan.RunCommandStep) llb.State {
	name := step.CustomName
	if name == "" {
		name = step.Cmd
	}

	cmd := step.Cmd
	if !step.Fatal() {
		// A failing non-fatal command must not fail the layer
		cmd = fmt.Sprintf("%s || echo 'warning: %s failed' >&2", step.Cmd, step.Cmd)
	}

	return state.Run(
		llb.Shlexf("sh -c %q", cmd),
		llb.WithCustomName(name),
	).Root()
}

// ensureCurlCommand installs curl when the base image ships without it.
// Slim and distroless-ish bases do not carry curl, so the first download
// layer cannot assume it.
func ensureCurlCommand() string {
	cmd := "command -v curl >/dev/null 2>&1 || " +
		"(apt-get update && apt-get install -y --no-install-recommends curl ca-certificates && rm -rf /var/lib/apt/lists/*)"

	return fmt.Sprintf("sh -c %q", cmd)
}

func downloadCommand(step plan.DownloadFileStep) string {
	cmd := fmt.Sprintf("mkdir -p %s && curl -fsSL -o %s %s && chmod +x %s",
		path.Dir(step.Dest), step.Dest, step.URL, step.Dest)

	if step.SHA256 != "" {
		cmd += fmt.Sprintf(" && echo '%s  %s' | sha256sum -c -", step.SHA256, step.Dest)
	}

	return fmt.Sprintf("sh -c %q", cmd)
}

// installerCommand guards the install prefix before executing the installer.
// An existing prefix fails the layer instead of being overwritten.
func installerCommand(step plan.RunInstallerStep) string {
	cmd := fmt.Sprintf(
		"if [ -e %[1]s ]; then echo 'install target %[1]s already exists' >&2; exit 1; fi; sh %[2]s -b -p %[1]s",
		step.Target, step.Script)

	return fmt.Sprintf("sh -c %q", cmd)
}

// imageEnv is the environment baked into the final image config
func imageEnv(env plan.Env, pathBase string) []string {
	result := []string{"PATH=" + env.EffectivePath(pathBase)}
	for _, name := range utils.SortedKeys(env.Vars) {
		result = append(result, name+"="+env.Vars[name])
	}
	return result
}
