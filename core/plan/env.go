package plan

import "strings"

// Env is the environment threaded through the provisioning steps. It is
// passed by value between steps so that the ordering of PATH prepends is
// explicit rather than hidden in ambient process state.
type Env struct {
	PathList []string          `json:"paths,omitempty"`
	Vars     map[string]string `json:"vars,omitempty"`
}

func NewEnv() Env {
	return Env{
		PathList: make([]string, 0),
		Vars:     make(map[string]string),
	}
}

// AddPath prepend-registers a directory. Duplicates are ignored, order of
// first appearance is kept.
func (e *Env) AddPath(path string) {
	for _, existingPath := range e.PathList {
		if existingPath == path {
			return
		}
	}
	e.PathList = append(e.PathList, path)
}

func (e *Env) SetVar(key, value string) {
	if e.Vars == nil {
		e.Vars = make(map[string]string)
	}
	e.Vars[key] = value
}

// Merge merges the other environment into the current environment
func (e *Env) Merge(other Env) {
	for _, path := range other.PathList {
		e.AddPath(path)
	}
	for k, v := range other.Vars {
		e.SetVar(k, v)
	}
}

// EffectivePath computes the PATH value after applying all registered
// prepends to the given base: join(prepends, ":") + ":" + base.
func (e Env) EffectivePath(base string) string {
	if len(e.PathList) == 0 {
		return base
	}
	return strings.Join(e.PathList, ":") + ":" + base
}
