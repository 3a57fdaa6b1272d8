package buildkit

import (
	"testing"

	"github.com/basefab/basefab/core/plan"
	"github.com/stretchr/testify/require"
)

func testPlan() *plan.ProvisionPlan {
	p := plan.NewProvisionPlan()
	p.BaseImage = "ubuntu:24.04"
	p.PathBase = "/usr/bin:/bin"
	p.AddStep(plan.NewPullImageStep("ubuntu:24.04"))
	p.AddStep(plan.NewInstallPackagesStep([]string{"wget", "git"}))
	p.AddStep(plan.NewDownloadFileStep("https://example/installer.sh", "/tmp/basefab/installer.sh", ""))
	p.AddStep(plan.NewRunInstallerStep("/tmp/basefab/installer.sh", "/opt/runtime"))
	p.AddStep(plan.NewPathStep("/opt/runtime/bin"))
	p.AddStep(plan.NewVariableStep("LANG", "C.UTF-8"))
	return p
}

func TestConvertPlanToLLB(t *testing.T) {
	state, image, err := ConvertPlanToLLB(testPlan(), ConvertOptions{Platform: PlatformLinuxAMD64})
	require.NoError(t, err)
	require.NotNil(t, state)

	require.Equal(t, "linux", image.Platform.OS)
	require.Equal(t, "amd64", image.Platform.Architecture)
	require.Equal(t, []string{
		"PATH=/opt/runtime/bin:/usr/bin:/bin",
		"LANG=C.UTF-8",
	}, image.Config.Env)
}

func TestConvertPlanDefaultPathBase(t *testing.T) {
	p := plan.NewProvisionPlan()
	p.BaseImage = "debian:bookworm-slim"
	p.AddStep(plan.NewPullImageStep("debian:bookworm-slim"))

	_, image, err := ConvertPlanToLLB(p, ConvertOptions{Platform: PlatformLinuxAMD64})
	require.NoError(t, err)
	require.Equal(t, []string{
		"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin",
	}, image.Config.Env)
}

func TestConvertPlanRejectsMidPlanPull(t *testing.T) {
	p := testPlan()
	p.AddStep(plan.NewPullImageStep("alpine:3.20"))

	_, _, err := ConvertPlanToLLB(p, ConvertOptions{Platform: PlatformLinuxAMD64})
	require.ErrorContains(t, err, "only valid as the first step")
}

func TestEnsureCurlCommand(t *testing.T) {
	cmd := ensureCurlCommand()

	require.Contains(t, cmd, "command -v curl")
	require.Contains(t, cmd, "apt-get install -y --no-install-recommends curl ca-certificates")
	require.Contains(t, cmd, "rm -rf /var/lib/apt/lists/*")
}

func TestDownloadCommand(t *testing.T) {
	cmd := downloadCommand(plan.DownloadFileStep{
		URL:  "https://example/installer.sh",
		Dest: "/tmp/basefab/installer.sh",
	})

	require.Contains(t, cmd, "mkdir -p /tmp/basefab")
	require.Contains(t, cmd, "curl -fsSL -o /tmp/basefab/installer.sh https://example/installer.sh")
	require.Contains(t, cmd, "chmod +x /tmp/basefab/installer.sh")
	require.NotContains(t, cmd, "sha256sum")
}

func TestDownloadCommandWithChecksum(t *testing.T) {
	cmd := downloadCommand(plan.DownloadFileStep{
		URL:    "https://example/installer.sh",
		Dest:   "/tmp/basefab/installer.sh",
		SHA256: "deadbeef",
	})

	require.Contains(t, cmd, "echo 'deadbeef  /tmp/basefab/installer.sh' | sha256sum -c -")
}

func TestInstallerCommandGuardsTarget(t *testing.T) {
	cmd := installerCommand(plan.RunInstallerStep{
		Script: "/tmp/basefab/installer.sh",
		Target: "/opt/runtime",
	})

	require.Contains(t, cmd, "if [ -e /opt/runtime ]")
	require.Contains(t, cmd, "exit 1")
	require.Contains(t, cmd, "sh /tmp/basefab/installer.sh -b -p /opt/runtime")
}

func TestGetImageName(t *testing.T) {
	require.Equal(t, "my-env", getImageName("/work/my-env"))
	require.Equal(t, "basefab-image", getImageName("."))
}
