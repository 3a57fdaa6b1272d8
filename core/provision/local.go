package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/basefab/basefab/core/fetch"
	"github.com/basefab/basefab/core/plan"
	"github.com/basefab/basefab/core/utils"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
)

// LocalRunner interprets provisioning steps directly against the local
// filesystem and process table. It is meant to run inside a container or
// throwaway machine that already matches the plan's base image; the pull
// step only validates the reference.
type LocalRunner struct {
	// ContextDir is the source directory copy steps read from
	ContextDir string

	// IndexCmd refreshes the package index before installs
	IndexCmd []string

	// InstallCmd installs a single package when the package name is appended
	InstallCmd []string
}

type LocalRunnerOptions struct {
	ContextDir string
	IndexCmd   []string
	InstallCmd []string
}

func NewLocalRunner(options LocalRunnerOptions) *LocalRunner {
	runner := &LocalRunner{
		ContextDir: options.ContextDir,
		IndexCmd:   options.IndexCmd,
		InstallCmd: options.InstallCmd,
	}

	if len(runner.IndexCmd) == 0 {
		runner.IndexCmd = []string{"apt-get", "update"}
	}
	if len(runner.InstallCmd) == 0 {
		runner.InstallCmd = []string{"apt-get", "install", "-y"}
	}
	if runner.ContextDir == "" {
		runner.ContextDir = "."
	}

	return runner
}

func (r *LocalRunner) PullImage(ctx context.Context, step plan.PullImageStep) error {
	if step.Image == "" {
		return &BaseImageUnavailableError{Ref: step.Image, Err: errors.New("empty image reference")}
	}

	// The local runner executes against the machine it runs on, so there is
	// nothing to pull. The base image is the invoker's responsibility.
	log.Debugf("Local run assumes the current filesystem matches %s", step.Image)
	return nil
}

// InstallPackages refreshes the index once, then installs packages
// one-by-one in the order given so the first failure names its package
func (r *LocalRunner) InstallPackages(ctx context.Context, step plan.InstallPackagesStep, env plan.Env) error {
	if err := r.execute(ctx, r.IndexCmd, env); err != nil {
		return &PackageInstallError{Err: err}
	}

	for _, pkg := range step.Packages {
		installCmd := append(append([]string{}, r.InstallCmd...), pkg)
		if err := r.execute(ctx, installCmd, env); err != nil {
			return &PackageInstallError{Package: pkg, Err: err}
		}
	}

	return nil
}

func (r *LocalRunner) DownloadFile(ctx context.Context, step plan.DownloadFileStep, env plan.Env) error {
	if err := fetch.Download(ctx, step.URL, step.Dest, step.SHA256); err != nil {
		var statusErr *fetch.HTTPStatusError
		if errors.As(err, &statusErr) {
			return &DownloadError{URL: step.URL, Status: statusErr.Status, Err: err}
		}
		return &DownloadError{URL: step.URL, Err: err}
	}
	return nil
}

// RunInstaller executes the installer script non-interactively against its
// install prefix. An existing prefix fails the step instead of being
// silently overwritten; repeated runs must start from a clean base.
func (r *LocalRunner) RunInstaller(ctx context.Context, step plan.RunInstallerStep, env plan.Env) error {
	if _, err := os.Stat(step.Target); err == nil {
		return &InstallerExecutionError{Target: step.Target, TargetExists: true}
	}

	// -b -p is the batch-mode convention of self-extracting runtime
	// installers: no prompts, install into the given prefix
	cmd := []string{"sh", step.Script, "-b", "-p", step.Target}
	if err := r.execute(ctx, cmd, env); err != nil {
		return &InstallerExecutionError{Target: step.Target, ExitCode: exitCode(err), Err: err}
	}

	return nil
}

func (r *LocalRunner) Copy(ctx context.Context, step plan.CopyStep) error {
	srcRoot := filepath.Join(r.ContextDir, step.Src)

	return filepath.Walk(srcRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(srcRoot, path)
		if err != nil {
			return err
		}

		if !matchesPatterns(rel, step.Include, step.Exclude) {
			return nil
		}

		dest := filepath.Join(step.Dest, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}

		return copyFile(path, dest, info.Mode())
	})
}

func (r *LocalRunner) RunCommand(ctx context.Context, step plan.RunCommandStep, env plan.Env) error {
	return r.execute(ctx, []string{"sh", "-c", step.Cmd}, env)
}

// execute runs a command with the threaded environment only. The PATH it
// sees is the plan's effective PATH, not the invoking process's.
func (r *LocalRunner) execute(ctx context.Context, argv []string, env plan.Env) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = environSlice(env)

	output, err := cmd.CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(output))
		if trimmed != "" {
			return fmt.Errorf("%s: %w: %s", argv[0], err, trimmed)
		}
		return fmt.Errorf("%s: %w", argv[0], err)
	}

	return nil
}

// environSlice flattens the threaded env into KEY=VALUE pairs, applying the
// PATH prepends to the base PATH carried in the env
func environSlice(env plan.Env) []string {
	environ := []string{}
	for _, k := range utils.SortedKeys(env.Vars) {
		if k == "PATH" {
			continue
		}
		environ = append(environ, k+"="+env.Vars[k])
	}

	environ = append(environ, "PATH="+env.EffectivePath(env.Vars["PATH"]))
	return environ
}

func matchesPatterns(rel string, include, exclude []string) bool {
	included := len(include) == 0
	for _, pattern := range include {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}

	for _, pattern := range exclude {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return false
		}
	}
	return true
}

func copyFile(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
