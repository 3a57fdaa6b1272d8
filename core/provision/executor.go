package provision

import (
	"context"
	"fmt"

	"github.com/basefab/basefab/core/logger"
	"github.com/basefab/basefab/core/plan"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Runner is the port the executor interprets steps against. The local runner
// provisions the host filesystem; the buildkit backend compiles the same plan
// to LLB instead of going through this interface.
type Runner interface {
	PullImage(ctx context.Context, step plan.PullImageStep) error
	InstallPackages(ctx context.Context, step plan.InstallPackagesStep, env plan.Env) error
	DownloadFile(ctx context.Context, step plan.DownloadFileStep, env plan.Env) error
	RunInstaller(ctx context.Context, step plan.RunInstallerStep, env plan.Env) error
	Copy(ctx context.Context, step plan.CopyStep) error
	RunCommand(ctx context.Context, step plan.RunCommandStep, env plan.Env) error
}

// Result describes a finished provisioning run
type Result struct {
	RunID   string `json:"run_id"`
	Success bool   `json:"success"`
	Path    string `json:"path"`

	// Warnings collects non-fatal step failures
	Warnings []string `json:"warnings,omitempty"`

	// StepsRun lists the step types executed, in order
	StepsRun []string `json:"steps_run"`
}

// Provision interprets the plan's steps strictly in order on a single
// goroutine. The first fatal step failure aborts the run; non-fatal failures
// are logged and recorded as warnings. The environment is threaded through
// the steps as a value, so each step sees exactly the PATH prepends and
// variables applied before it.
func Provision(ctx context.Context, p *plan.ProvisionPlan, runner Runner, runLogger *logger.Logger) (*Result, error) {
	result := &Result{
		RunID:    uuid.New().String(),
		StepsRun: []string{},
		Warnings: []string{},
	}

	env := plan.NewEnv()
	// PATH prepends apply to the plan's base path, which is threaded into
	// the env so the runner never consults ambient process state.
	env.SetVar("PATH", p.PathBase)

	log.Debugf("Starting provisioning run %s (%d steps)", result.RunID, len(p.Steps))

	for _, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("provisioning run %s cancelled: %w", result.RunID, err)
		}

		err := executeStep(ctx, step, &env, runner)
		result.StepsRun = append(result.StepsRun, step.StepType())

		if err != nil {
			if step.Fatal() {
				runLogger.LogError("step %s failed: %v", step.StepType(), err)
				return result, err
			}

			// Non-fatal failures are common and transient (package-manager
			// self-updates); record and move on.
			runLogger.LogWarn("%v", err)
			result.Warnings = append(result.Warnings, err.Error())
		}
	}

	result.Success = true
	result.Path = env.EffectivePath(p.PathBase)

	runLogger.LogInfo("provisioned environment with PATH=%s", result.Path)

	return result, nil
}

func executeStep(ctx context.Context, step plan.Step, env *plan.Env, runner Runner) error {
	switch step := step.(type) {
	case plan.PullImageStep:
		return runner.PullImage(ctx, step)

	case plan.InstallPackagesStep:
		return runner.InstallPackages(ctx, step, *env)

	case plan.DownloadFileStep:
		return runner.DownloadFile(ctx, step, *env)

	case plan.RunInstallerStep:
		return runner.RunInstaller(ctx, step, *env)

	case plan.SetEnvStep:
		// Pure environment mutation, interpreted by the executor itself
		if step.IsPath() {
			env.AddPath(step.Path)
		} else {
			env.SetVar(step.Name, step.Value)
		}
		return nil

	case plan.CopyStep:
		return runner.Copy(ctx, step)

	case plan.RunCommandStep:
		if err := runner.RunCommand(ctx, step, *env); err != nil {
			if step.Fatal() {
				return err
			}
			return &SelfUpdateError{Cmd: step.Cmd, Err: err}
		}
		return nil

	default:
		return fmt.Errorf("unknown step type %q", step.StepType())
	}
}
