package generate

import (
	"testing"

	"github.com/basefab/basefab/core/plan"
	"github.com/basefab/basefab/core/spec"
	"github.com/stretchr/testify/require"
)

func testSpec() *spec.ImageSpec {
	return &spec.ImageSpec{
		BaseImage: "ubuntu:24.04",
		Packages:  []string{"wget", "git"},
		Installer: &spec.Installer{
			URL:           "https://example.com/installer.sh",
			Path:          "/opt/runtime",
			SelfUpdateCmd: "runtime-pkg update",
		},
		PathPrepend: []string{"/opt/runtime/bin"},
		PathBase:    "/usr/bin:/bin",
	}
}

func TestGeneratePlanSequence(t *testing.T) {
	p, err := GeneratePlan(testSpec(), spec.NewEnvironment(nil), nil)
	require.NoError(t, err)

	types := make([]string, len(p.Steps))
	for i, step := range p.Steps {
		types[i] = step.StepType()
	}

	require.Equal(t, []string{
		"pullImage",
		"installPackages",
		"downloadFile",
		"runInstaller",
		"setEnv",
		"runCommand",
	}, types)

	download := p.Steps[2].(plan.DownloadFileStep)
	require.Equal(t, "/tmp/basefab/installer.sh", download.Dest)

	installer := p.Steps[3].(plan.RunInstallerStep)
	require.Equal(t, download.Dest, installer.Script)
	require.Equal(t, "/opt/runtime", installer.Target)

	selfUpdate := p.Steps[5].(plan.RunCommandStep)
	require.True(t, selfUpdate.NonFatal)
	require.Equal(t, "runtime-pkg update", selfUpdate.Cmd)
}

func TestGeneratePlanEffectivePath(t *testing.T) {
	p, err := GeneratePlan(testSpec(), spec.NewEnvironment(nil), nil)
	require.NoError(t, err)

	require.Equal(t, "/opt/runtime/bin:/usr/bin:/bin", p.EffectivePath())
}

func TestGeneratePlanPackageOrderKept(t *testing.T) {
	s := testSpec()
	s.Packages = []string{"zlib1g-dev", "wget", "git", "build-essential"}

	p, err := GeneratePlan(s, spec.NewEnvironment(nil), nil)
	require.NoError(t, err)

	install := p.Steps[1].(plan.InstallPackagesStep)
	require.Equal(t, s.Packages, install.Packages)
}

func TestGeneratePlanInvalidSpec(t *testing.T) {
	s := testSpec()
	s.Packages = []string{"wget", "wget"}

	_, err := GeneratePlan(s, spec.NewEnvironment(nil), nil)
	require.ErrorContains(t, err, "listed more than once")
}

func TestGeneratePlanEnvironmentOverride(t *testing.T) {
	env := spec.NewEnvironment(&map[string]string{
		"BASEFAB_BASE_IMAGE": "debian:12",
	})

	p, err := GeneratePlan(testSpec(), env, nil)
	require.NoError(t, err)
	require.Equal(t, "debian:12", p.BaseImage)

	pull := p.Steps[0].(plan.PullImageStep)
	require.Equal(t, "debian:12", pull.Image)
}

func TestGeneratePlanEnvOverlayPackageOverlap(t *testing.T) {
	env := spec.NewEnvironment(&map[string]string{
		"BASEFAB_PACKAGES": "wget curl",
	})

	p, err := GeneratePlan(testSpec(), env, nil)
	require.NoError(t, err)

	install := p.Steps[1].(plan.InstallPackagesStep)
	require.Equal(t, []string{"wget", "git", "curl"}, install.Packages)
}

func TestGeneratePlanExtraSteps(t *testing.T) {
	s := testSpec()
	s.Steps = []string{"RUN:apt-get clean", "RUN?:optional-cleanup"}

	p, err := GeneratePlan(s, spec.NewEnvironment(nil), nil)
	require.NoError(t, err)

	last := p.Steps[len(p.Steps)-1].(plan.RunCommandStep)
	require.True(t, last.NonFatal)
	require.Equal(t, "optional-cleanup", last.Cmd)
}

func TestGeneratePlanDefaultPathBase(t *testing.T) {
	s := testSpec()
	s.PathBase = ""

	p, err := GeneratePlan(s, spec.NewEnvironment(nil), nil)
	require.NoError(t, err)
	require.NotEmpty(t, p.PathBase)
}
