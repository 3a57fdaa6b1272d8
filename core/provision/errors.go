package provision

import "fmt"

// The provisioning error taxonomy. Every error except SelfUpdateError aborts
// the run immediately; there is no partial continuation or in-component
// retry. The caller restarts from a clean base image if it wants another
// attempt.

// BaseImageUnavailableError is returned when the base image reference cannot
// be resolved or pulled
type BaseImageUnavailableError struct {
	Ref string
	Err error
}

func (e *BaseImageUnavailableError) Error() string {
	return fmt.Sprintf("base image %q unavailable: %v", e.Ref, e.Err)
}

func (e *BaseImageUnavailableError) Unwrap() error { return e.Err }

// PackageInstallError identifies the first package that failed to resolve or
// install. No rollback is attempted; the run as a whole is failed.
type PackageInstallError struct {
	Package string
	Err     error
}

func (e *PackageInstallError) Error() string {
	if e.Package == "" {
		return fmt.Sprintf("failed to refresh package index: %v", e.Err)
	}
	return fmt.Sprintf("failed to install package %q: %v", e.Package, e.Err)
}

func (e *PackageInstallError) Unwrap() error { return e.Err }

// DownloadError is returned on network failure or a non-2xx response while
// fetching the installer payload
type DownloadError struct {
	URL    string
	Status int
	Err    error
}

func (e *DownloadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("failed to download %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("failed to download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// InstallerExecutionError is returned when the installer exits non-zero, or
// when its install target already exists. The target precondition fails
// loudly instead of silently overwriting an earlier install.
type InstallerExecutionError struct {
	Target       string
	ExitCode     int
	TargetExists bool
	Err          error
}

func (e *InstallerExecutionError) Error() string {
	if e.TargetExists {
		return fmt.Sprintf("install target %q already exists; refusing to overwrite", e.Target)
	}
	return fmt.Sprintf("installer for %q exited with code %d: %v", e.Target, e.ExitCode, e.Err)
}

func (e *InstallerExecutionError) Unwrap() error { return e.Err }

// SelfUpdateError records the failure of a non-fatal command, canonically the
// runtime package-manager self-update. It is surfaced as a warning on the run
// result and never flips the run to failure.
type SelfUpdateError struct {
	Cmd string
	Err error
}

func (e *SelfUpdateError) Error() string {
	return fmt.Sprintf("non-fatal command %q failed: %v", e.Cmd, e.Err)
}

func (e *SelfUpdateError) Unwrap() error { return e.Err }
