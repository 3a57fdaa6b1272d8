package core

import (
	"fmt"

	"github.com/basefab/basefab/core/generate"
	"github.com/basefab/basefab/core/plan"
	"github.com/basefab/basefab/core/spec"
	"github.com/charmbracelet/log"
)

const Version = "0.1.0"

type GeneratePlanOptions struct {
	// BaseImage overrides the spec's base image
	BaseImage string
}

// PlanResult pairs a generated plan with where its spec came from and the
// PATH the provisioned environment ends up with
type PlanResult struct {
	Plan     *plan.ProvisionPlan `json:"plan"`
	SpecPath string              `json:"spec_path"`
	Path     string              `json:"path"`
}

// GenerateProvisionPlan loads the spec at specPath (a file or a directory
// containing a basefab spec file), merges the BASEFAB_* overrides from env,
// and generates the ordered provisioning plan.
func GenerateProvisionPlan(specPath string, env *spec.Environment, options *GeneratePlanOptions) (*PlanResult, error) {
	if options == nil {
		options = &GeneratePlanOptions{}
	}

	imageSpec, resolvedPath, err := spec.LoadSpec(specPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load spec: %w", err)
	}

	log.Debugf("Loaded spec from %s", resolvedPath)

	p, err := generate.GeneratePlan(imageSpec, env, &generate.GenerateOptions{
		BaseImage: options.BaseImage,
	})
	if err != nil {
		return nil, err
	}

	return &PlanResult{
		Plan:     p,
		SpecPath: resolvedPath,
		Path:     p.EffectivePath(),
	}, nil
}
