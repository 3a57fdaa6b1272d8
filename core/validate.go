package core

import (
	"strings"

	"github.com/basefab/basefab/core/logger"
	"github.com/basefab/basefab/core/plan"
)

// ValidatePlan checks a plan for problems a run would only hit midway
// through. Failures are reported on the logger so the CLI can show all of
// them at once.
func ValidatePlan(p *plan.ProvisionPlan, logger *logger.Logger) bool {
	valid := validateBaseImage(p, logger)

	for i, step := range p.Steps {
		if !validateStep(i, step, logger) {
			valid = false
		}
	}

	return valid
}

// validateBaseImage checks that the plan starts from a pulled base image
func validateBaseImage(p *plan.ProvisionPlan, logger *logger.Logger) bool {
	if p.BaseImage == "" {
		logger.LogError("plan has no base image")
		return false
	}

	if len(p.Steps) == 0 {
		logger.LogError("plan has no steps")
		return false
	}

	if _, ok := p.Steps[0].(plan.PullImageStep); !ok {
		logger.LogError("the first step must pull the base image, got %s", p.Steps[0].StepType())
		return false
	}

	return true
}

func validateStep(index int, step plan.Step, logger *logger.Logger) bool {
	switch step := step.(type) {
	case plan.PullImageStep:
		if index > 0 {
			logger.LogError("step %d: pullImage is only valid as the first step", index)
			return false
		}
		if step.Image == "" {
			logger.LogError("step %d: pullImage has an empty image reference", index)
			return false
		}

	case plan.InstallPackagesStep:
		if len(step.Packages) == 0 {
			logger.LogError("step %d: installPackages has no packages", index)
			return false
		}
		for _, pkg := range step.Packages {
			if strings.TrimSpace(pkg) == "" {
				logger.LogError("step %d: installPackages has an empty package name", index)
				return false
			}
		}

	case plan.DownloadFileStep:
		if step.URL == "" || step.Dest == "" {
			logger.LogError("step %d: downloadFile needs both a url and a dest", index)
			return false
		}

	case plan.RunInstallerStep:
		if step.Script == "" || step.Target == "" {
			logger.LogError("step %d: runInstaller needs both a script and a target", index)
			return false
		}

	case plan.SetEnvStep:
		if step.Path == "" && step.Name == "" {
			logger.LogError("step %d: setEnv must set either a path or a variable", index)
			return false
		}
		if step.Path != "" && step.Name != "" {
			logger.LogError("step %d: setEnv cannot set a path and a variable at once", index)
			return false
		}

	case plan.CopyStep:
		if step.Src == "" || step.Dest == "" {
			logger.LogError("step %d: copy needs both a src and a dest", index)
			return false
		}

	case plan.RunCommandStep:
		if strings.TrimSpace(step.Cmd) == "" {
			logger.LogError("step %d: runCommand has an empty command", index)
			return false
		}
	}

	return true
}
