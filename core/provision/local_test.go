package provision

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/basefab/basefab/core/plan"
	"github.com/stretchr/testify/require"
)

func TestEnvironSlice(t *testing.T) {
	env := plan.NewEnv()
	env.SetVar("PATH", "/usr/bin:/bin")
	env.SetVar("LANG", "C.UTF-8")
	env.SetVar("DEBIAN_FRONTEND", "noninteractive")
	env.AddPath("/opt/runtime/bin")

	require.Equal(t, []string{
		"DEBIAN_FRONTEND=noninteractive",
		"LANG=C.UTF-8",
		"PATH=/opt/runtime/bin:/usr/bin:/bin",
	}, environSlice(env))
}

func TestEnvironSliceNoPrepends(t *testing.T) {
	env := plan.NewEnv()
	env.SetVar("PATH", "/usr/bin:/bin")

	require.Equal(t, []string{"PATH=/usr/bin:/bin"}, environSlice(env))
}

func TestMatchesPatterns(t *testing.T) {
	tests := []struct {
		rel     string
		include []string
		exclude []string
		want    bool
	}{
		{"main.go", nil, nil, true},
		{"main.go", []string{"*.go"}, nil, true},
		{"main.txt", []string{"*.go"}, nil, false},
		{"vendor/lib.go", []string{"**/*.go"}, nil, true},
		{"main.go", nil, []string{"*.go"}, false},
		{"docs/readme.md", []string{"**/*"}, []string{"docs/**"}, false},
		{"src/app.py", []string{"**/*"}, []string{"docs/**"}, true},
	}

	for _, test := range tests {
		require.Equal(t, test.want, matchesPatterns(test.rel, test.include, test.exclude),
			"rel=%s include=%v exclude=%v", test.rel, test.include, test.exclude)
	}
}

func TestLocalRunnerPullImageEmptyRef(t *testing.T) {
	runner := NewLocalRunner(LocalRunnerOptions{})

	err := runner.PullImage(context.Background(), plan.PullImageStep{})

	var imgErr *BaseImageUnavailableError
	require.True(t, errors.As(err, &imgErr))
}

func TestLocalRunnerInstallPackagesIndexFailure(t *testing.T) {
	runner := NewLocalRunner(LocalRunnerOptions{
		IndexCmd:   []string{"false"},
		InstallCmd: []string{"true"},
	})

	err := runner.InstallPackages(context.Background(), plan.InstallPackagesStep{Packages: []string{"wget"}}, hostEnv())

	var pkgErr *PackageInstallError
	require.True(t, errors.As(err, &pkgErr))
	require.Empty(t, pkgErr.Package)
}

func TestLocalRunnerInstallPackagesNamesFailingPackage(t *testing.T) {
	runner := NewLocalRunner(LocalRunnerOptions{
		IndexCmd:   []string{"true"},
		InstallCmd: []string{"false"},
	})

	err := runner.InstallPackages(context.Background(), plan.InstallPackagesStep{Packages: []string{"wget", "git"}}, hostEnv())

	var pkgErr *PackageInstallError
	require.True(t, errors.As(err, &pkgErr))
	require.Equal(t, "wget", pkgErr.Package)
}

func TestLocalRunnerDownloadFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("#!/bin/sh\n"))
	}))
	defer server.Close()

	runner := NewLocalRunner(LocalRunnerOptions{})
	dest := filepath.Join(t.TempDir(), "installer.sh")

	step := plan.DownloadFileStep{URL: server.URL, Dest: dest}
	require.NoError(t, runner.DownloadFile(context.Background(), step, hostEnv()))
	require.FileExists(t, dest)
}

func TestLocalRunnerDownloadFileNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	runner := NewLocalRunner(LocalRunnerOptions{})
	dest := filepath.Join(t.TempDir(), "installer.sh")

	err := runner.DownloadFile(context.Background(), plan.DownloadFileStep{URL: server.URL, Dest: dest}, hostEnv())

	var dlErr *DownloadError
	require.True(t, errors.As(err, &dlErr))
	require.Equal(t, http.StatusNotFound, dlErr.Status)
}

func TestLocalRunnerRunInstaller(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "installer.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nmkdir -p \"$3/bin\"\n"), 0755))

	runner := NewLocalRunner(LocalRunnerOptions{})
	target := filepath.Join(dir, "runtime")

	step := plan.RunInstallerStep{Script: script, Target: target}
	require.NoError(t, runner.RunInstaller(context.Background(), step, hostEnv()))
	require.DirExists(t, filepath.Join(target, "bin"))
}

func TestLocalRunnerRunInstallerTargetExists(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "runtime")
	require.NoError(t, os.MkdirAll(target, 0755))

	runner := NewLocalRunner(LocalRunnerOptions{})

	err := runner.RunInstaller(context.Background(), plan.RunInstallerStep{Script: "/nonexistent.sh", Target: target}, hostEnv())

	var instErr *InstallerExecutionError
	require.True(t, errors.As(err, &instErr))
	require.True(t, instErr.TargetExists)
}

func TestLocalRunnerRunInstallerNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "installer.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexit 3\n"), 0755))

	runner := NewLocalRunner(LocalRunnerOptions{})

	err := runner.RunInstaller(context.Background(), plan.RunInstallerStep{Script: script, Target: filepath.Join(dir, "runtime")}, hostEnv())

	var instErr *InstallerExecutionError
	require.True(t, errors.As(err, &instErr))
	require.Equal(t, 3, instErr.ExitCode)
}

func TestLocalRunnerRunCommandSeesEffectivePath(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "path.txt")

	runner := NewLocalRunner(LocalRunnerOptions{})

	env := hostEnv()
	env.AddPath("/opt/runtime/bin")

	step := plan.RunCommandStep{Cmd: "printf '%s' \"$PATH\" > " + out}
	require.NoError(t, runner.RunCommand(context.Background(), step, env))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "/opt/runtime/bin:/usr/bin:/bin", string(got))
}

func TestLocalRunnerCopy(t *testing.T) {
	contextDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(contextDir, "src", "docs"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(contextDir, "src", "app.py"), []byte("print()\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(contextDir, "src", "docs", "readme.md"), []byte("docs\n"), 0644))

	runner := NewLocalRunner(LocalRunnerOptions{ContextDir: contextDir})
	dest := t.TempDir()

	step := plan.CopyStep{Src: "src", Dest: dest, Exclude: []string{"docs/**"}}
	require.NoError(t, runner.Copy(context.Background(), step))

	require.FileExists(t, filepath.Join(dest, "app.py"))
	require.NoFileExists(t, filepath.Join(dest, "docs", "readme.md"))
}

func hostEnv() plan.Env {
	env := plan.NewEnv()
	env.SetVar("PATH", "/usr/bin:/bin")
	return env
}
