package plan

import "encoding/json"

// ProvisionPlan is the ordered list of typed steps produced from an
// ImageSpec. The fail-fast / non-fatal distinction is a declared property of
// each step rather than implicit control flow.
type ProvisionPlan struct {
	BaseImage string `json:"baseImage,omitempty"`

	Steps []Step `json:"steps,omitempty"`

	// PathBase is the PATH value that prepends are applied to
	PathBase string `json:"pathBase,omitempty"`
}

func NewProvisionPlan() *ProvisionPlan {
	return &ProvisionPlan{
		Steps: []Step{},
	}
}

func (p *ProvisionPlan) AddStep(step Step) {
	p.Steps = append(p.Steps, step)
}

// Environment folds every SetEnvStep of the plan into a single Env value
func (p *ProvisionPlan) Environment() Env {
	env := NewEnv()
	for _, step := range p.Steps {
		if envStep, ok := step.(SetEnvStep); ok {
			if envStep.IsPath() {
				env.AddPath(envStep.Path)
			} else {
				env.SetVar(envStep.Name, envStep.Value)
			}
		}
	}
	return env
}

// EffectivePath is the PATH the provisioned image ends up with
func (p *ProvisionPlan) EffectivePath() string {
	env := p.Environment()
	return env.EffectivePath(p.PathBase)
}

func (p *ProvisionPlan) UnmarshalJSON(data []byte) error {
	type Alias ProvisionPlan
	aux := &struct {
		Steps []json.RawMessage `json:"steps"`
		*Alias
	}{
		Alias: (*Alias)(p),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	p.Steps = []Step{}
	for _, rawStep := range aux.Steps {
		step, err := UnmarshalStep(rawStep)
		if err != nil {
			return err
		}
		p.Steps = append(p.Steps, step)
	}

	return nil
}
