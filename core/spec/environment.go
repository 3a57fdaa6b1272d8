package spec

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Environment holds the variables a provisioning run was invoked with. It is
// an explicit value so nothing in the pipeline reads ambient process state.
type Environment struct {
	Variables map[string]string
}

func NewEnvironment(variables *map[string]string) *Environment {
	if variables == nil {
		variables = &map[string]string{}
	}

	return &Environment{Variables: *variables}
}

// FromEnvs collects variables from the given KEY=VALUE pairs. A bare KEY
// pulls the value from the current process environment.
func FromEnvs(envs []string) (*Environment, error) {
	env := NewEnvironment(nil)
	re := regexp.MustCompile(`([A-Za-z0-9_-]*)(?:=?)(.*)`)

	for _, e := range envs {
		matches := re.FindStringSubmatch(e)
		if len(matches) < 3 {
			continue
		}

		name := matches[1]
		value := matches[2]

		if value == "" {
			if v, ok := os.LookupEnv(name); ok {
				env.SetVariable(name, v)
			}
		} else {
			env.SetVariable(name, value)
		}
	}

	return env, nil
}

func (e *Environment) GetVariable(name string) string {
	return e.Variables[name]
}

func (e *Environment) SetVariable(name, value string) {
	e.Variables[name] = value
}

// ConfigVariable returns the BASEFAB_ prefixed version of a variable name
func (e *Environment) ConfigVariable(name string) string {
	return fmt.Sprintf("BASEFAB_%s", name)
}

// GetConfigVariable returns the value of a BASEFAB_ prefixed variable with
// surrounding whitespace removed
func (e *Environment) GetConfigVariable(name string) string {
	if val, exists := e.Variables[e.ConfigVariable(name)]; exists {
		return strings.TrimSpace(val)
	}
	return ""
}

// SpecFromEnvironment builds a spec overlay out of BASEFAB_ prefixed
// variables. The overlay is merged on top of the spec file so invocations can
// override the base image or add packages without editing the file.
func SpecFromEnvironment(env *Environment) *ImageSpec {
	overlay := EmptySpec()

	if baseImage := env.GetConfigVariable("BASE_IMAGE"); baseImage != "" {
		overlay.BaseImage = baseImage
	}

	if packages := env.GetConfigVariable("PACKAGES"); packages != "" {
		overlay.Packages = strings.Fields(packages)
	}

	if installerURL := env.GetConfigVariable("INSTALLER_URL"); installerURL != "" {
		overlay.Installer = &Installer{URL: installerURL}
	}

	if pathPrepend := env.GetConfigVariable("PATH_PREPEND"); pathPrepend != "" {
		overlay.PathPrepend = strings.Split(pathPrepend, ":")
	}

	return overlay
}
