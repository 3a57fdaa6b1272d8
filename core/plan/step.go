package plan

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// Step is a single provisioning operation. Steps are interpreted strictly in
// order by the executor; a step reporting Fatal() == false may fail without
// aborting the run.
type Step interface {
	StepType() string
	Fatal() bool
}

// PullImageStep resolves and pulls the base image that all later steps
// build upon
type PullImageStep struct {
	Image string `json:"image" jsonschema:"description=Reference of the base image to pull (e.g. 'ubuntu:24.04')"`
}

// InstallPackagesStep refreshes the OS package index and installs the given
// packages in order
type InstallPackagesStep struct {
	Packages []string `json:"packages" jsonschema:"description=OS packages to install, in order"`
}

// DownloadFileStep fetches a file over HTTP(S) into a destination path
type DownloadFileStep struct {
	URL    string `json:"url" jsonschema:"description=HTTP(S) URL to download"`
	Dest   string `json:"dest" jsonschema:"description=Destination path for the downloaded file"`
	SHA256 string `json:"sha256,omitempty" jsonschema:"description=Optional hex-encoded SHA-256 checksum of the payload"`
}

// RunInstallerStep executes a downloaded installer script non-interactively,
// targeting an install prefix. The target must not exist beforehand; the step
// fails loudly instead of overwriting.
type RunInstallerStep struct {
	Script string `json:"script" jsonschema:"description=Path of the installer script to execute"`
	Target string `json:"target" jsonschema:"description=Install prefix the installer writes into. Must not already exist"`
}

// SetEnvStep mutates the environment threaded through the remaining steps.
// Either Path is set (a PATH prepend) or Name/Value are set (a variable).
type SetEnvStep struct {
	Path  string `json:"path,omitempty" jsonschema:"description=Directory to prepend to PATH for all subsequent steps and the final image"`
	Name  string `json:"name,omitempty" jsonschema:"description=Name of the environment variable to set"`
	Value string `json:"value,omitempty" jsonschema:"description=Value of the environment variable"`
}

// CopyStep copies files from the local context into the image
type CopyStep struct {
	Src     string   `json:"src" jsonschema:"description=Source path in the local context"`
	Dest    string   `json:"dest" jsonschema:"description=Destination path in the image"`
	Include []string `json:"include,omitempty" jsonschema:"description=Glob patterns of paths to include"`
	Exclude []string `json:"exclude,omitempty" jsonschema:"description=Glob patterns of paths to exclude"`
}

// RunCommandStep runs an arbitrary shell command. NonFatal marks commands
// whose failure is logged but does not abort the run (package-manager
// self-updates are the canonical case).
type RunCommandStep struct {
	Cmd        string `json:"cmd" jsonschema:"description=The shell command to execute"`
	NonFatal   bool   `json:"nonFatal,omitempty" jsonschema:"description=When true a failure is logged but does not fail the provisioning run"`
	CustomName string `json:"customName,omitempty" jsonschema:"description=Optional custom name to display for this command in build output"`
}

func (s PullImageStep) StepType() string       { return "pullImage" }
func (s InstallPackagesStep) StepType() string { return "installPackages" }
func (s DownloadFileStep) StepType() string    { return "downloadFile" }
func (s RunInstallerStep) StepType() string    { return "runInstaller" }
func (s SetEnvStep) StepType() string          { return "setEnv" }
func (s CopyStep) StepType() string            { return "copy" }
func (s RunCommandStep) StepType() string      { return "runCommand" }

func (s PullImageStep) Fatal() bool       { return true }
func (s InstallPackagesStep) Fatal() bool { return true }
func (s DownloadFileStep) Fatal() bool    { return true }
func (s RunInstallerStep) Fatal() bool    { return true }
func (s SetEnvStep) Fatal() bool          { return true }
func (s CopyStep) Fatal() bool            { return true }
func (s RunCommandStep) Fatal() bool      { return !s.NonFatal }

// IsPath reports whether this step is a PATH prepend rather than a variable
func (s SetEnvStep) IsPath() bool { return s.Path != "" }

type RunOptions struct {
	NonFatal   bool
	CustomName string
}

func NewPullImageStep(image string) Step {
	return PullImageStep{Image: image}
}

func NewInstallPackagesStep(packages []string) Step {
	return InstallPackagesStep{Packages: packages}
}

func NewDownloadFileStep(url, dest, sha256 string) Step {
	return DownloadFileStep{URL: url, Dest: dest, SHA256: sha256}
}

func NewRunInstallerStep(script, target string) Step {
	return RunInstallerStep{Script: script, Target: target}
}

func NewCopyStep(src, dest string, patterns ...[]string) Step {
	copyStep := CopyStep{Src: src, Dest: dest}
	if len(patterns) > 0 {
		copyStep.Include = patterns[0]
	}
	if len(patterns) > 1 {
		copyStep.Exclude = patterns[1]
	}
	return copyStep
}

func NewPathStep(path string) Step {
	return SetEnvStep{Path: path}
}

func NewVariableStep(name, value string) Step {
	return SetEnvStep{Name: name, Value: value}
}

func NewRunCommandStep(cmd string, options ...RunOptions) Step {
	run := RunCommandStep{Cmd: cmd}
	if len(options) > 0 {
		run.NonFatal = options[0].NonFatal
		run.CustomName = options[0].CustomName
	}
	return run
}

func UnmarshalStep(data []byte) (Step, error) {
	// First try to unmarshal as a JSON object
	if step, err := UnmarshalJsonStep(data); err == nil {
		return step, nil
	}

	// If that fails, parse the string shorthand into a step
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return nil, fmt.Errorf("step is neither an object nor a string: %s", string(data))
	}
	return UnmarshalStringStep(str)
}

func UnmarshalJsonStep(data []byte) (Step, error) {
	var rawMap map[string]interface{}
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return nil, err
	}

	// Determine step type based on the fields present
	if _, ok := rawMap["image"]; ok {
		var step PullImageStep
		if err := json.Unmarshal(data, &step); err != nil {
			return nil, err
		}
		return step, nil
	}
	if _, ok := rawMap["packages"]; ok {
		var step InstallPackagesStep
		if err := json.Unmarshal(data, &step); err != nil {
			return nil, err
		}
		return step, nil
	}
	if _, ok := rawMap["url"]; ok {
		var step DownloadFileStep
		if err := json.Unmarshal(data, &step); err != nil {
			return nil, err
		}
		return step, nil
	}
	if _, ok := rawMap["script"]; ok {
		var step RunInstallerStep
		if err := json.Unmarshal(data, &step); err != nil {
			return nil, err
		}
		return step, nil
	}
	if _, ok := rawMap["src"]; ok {
		var step CopyStep
		if err := json.Unmarshal(data, &step); err != nil {
			return nil, err
		}
		return step, nil
	}
	if _, ok := rawMap["cmd"]; ok {
		var step RunCommandStep
		if err := json.Unmarshal(data, &step); err != nil {
			return nil, err
		}
		return step, nil
	}
	_, hasPath := rawMap["path"]
	_, hasName := rawMap["name"]
	if hasPath || hasName {
		var step SetEnvStep
		if err := json.Unmarshal(data, &step); err != nil {
			return nil, err
		}
		return step, nil
	}

	return nil, fmt.Errorf("unknown step type: %v", rawMap)
}

// UnmarshalStringStep parses the string shorthand form of a step:
//
//	PULL:ubuntu:24.04
//	APT:wget git
//	GET:https://example/installer.sh /tmp/installer.sh
//	INSTALL:/tmp/installer.sh /opt/runtime
//	COPY:./workload /srv/workload
//	PATH:/opt/runtime/bin
//	ENV:NAME=value
//	RUN:some command
//	RUN?:tolerated command   (failure logged, run continues)
//
// A string without a recognized prefix is treated as a fatal RUN step.
func UnmarshalStringStep(str string) (Step, error) {
	parts := strings.SplitN(str, ":", 2)
	if len(parts) != 2 {
		return NewRunCommandStep(str), nil
	}

	prefix := parts[0]
	payload := parts[1]

	// Split prefix into step type and custom name
	prefixParts := strings.SplitN(prefix, "#", 2)
	stepType := prefixParts[0]
	customName := ""
	if len(prefixParts) > 1 {
		customName = prefixParts[1]
	}

	switch stepType {
	case "PULL":
		return NewPullImageStep(payload), nil
	case "APT":
		return NewInstallPackagesStep(strings.Fields(payload)), nil
	case "GET":
		getParts := strings.Fields(payload)
		if len(getParts) != 2 {
			return nil, fmt.Errorf("invalid GET format: %s", payload)
		}
		return NewDownloadFileStep(getParts[0], getParts[1], ""), nil
	case "INSTALL":
		installParts := strings.Fields(payload)
		if len(installParts) != 2 {
			return nil, fmt.Errorf("invalid INSTALL format: %s", payload)
		}
		return NewRunInstallerStep(installParts[0], installParts[1]), nil
	case "COPY":
		copyParts := strings.Fields(payload)
		if len(copyParts) != 2 {
			return nil, fmt.Errorf("invalid COPY format: %s", payload)
		}
		return NewCopyStep(copyParts[0], copyParts[1]), nil
	case "PATH":
		return NewPathStep(payload), nil
	case "ENV":
		envParts := strings.SplitN(payload, "=", 2)
		if len(envParts) != 2 {
			return nil, fmt.Errorf("invalid ENV format: %s", payload)
		}
		return NewVariableStep(envParts[0], envParts[1]), nil
	case "RUN":
		return NewRunCommandStep(payload, RunOptions{CustomName: customName}), nil
	case "RUN?":
		return NewRunCommandStep(payload, RunOptions{NonFatal: true, CustomName: customName}), nil
	}

	// fallback: the colon belonged to the command itself
	return NewRunCommandStep(str, RunOptions{CustomName: customName}), nil
}

func StepsSchema() *jsonschema.Schema {
	pullSchema := generateSchemaWithComments(PullImageStep{})
	packagesSchema := generateSchemaWithComments(InstallPackagesStep{})
	downloadSchema := generateSchemaWithComments(DownloadFileStep{})
	installerSchema := generateSchemaWithComments(RunInstallerStep{})
	envSchema := generateSchemaWithComments(SetEnvStep{})
	copySchema := generateSchemaWithComments(CopyStep{})
	runSchema := generateSchemaWithComments(RunCommandStep{})

	availableSteps := []*jsonschema.Schema{
		pullSchema, packagesSchema, downloadSchema, installerSchema, envSchema, copySchema, runSchema,
	}

	// A plain string is parsed with the step shorthand grammar
	stringSchema := &jsonschema.Schema{
		Type:        "string",
		Description: "Strings are parsed with the step shorthand grammar (PULL:, APT:, GET:, INSTALL:, PATH:, ENV:, RUN:, RUN?:)",
	}
	availableSteps = append([]*jsonschema.Schema{stringSchema}, availableSteps...)

	return &jsonschema.Schema{
		OneOf: availableSteps,
	}
}

func generateSchemaWithComments(v any) *jsonschema.Schema {
	r := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	return r.Reflect(v)
}
