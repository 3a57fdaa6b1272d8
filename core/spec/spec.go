package spec

import (
	"fmt"
	"slices"

	"github.com/basefab/basefab/core/utils"
	"github.com/invopop/jsonschema"
)

// ImageSpec is the declarative input of a provisioning run: what base image
// to start from, which OS packages to install, which runtime installer to
// fetch and execute, and how the environment of the final image looks.
type ImageSpec struct {
	// The base image the provisioned environment is built on
	BaseImage string `json:"baseImage,omitempty" toml:"baseImage" yaml:"baseImage" jsonschema:"description=The base image the provisioned environment is built on"`

	// OS packages to install, in order. Order affects install determinism
	// only, not semantics. Names must be unique.
	Packages []string `json:"packages,omitempty" toml:"packages" yaml:"packages" jsonschema:"description=OS packages to install, in order. Names must be unique"`

	// The runtime installer to download and execute
	Installer *Installer `json:"installer,omitempty" toml:"installer" yaml:"installer" jsonschema:"description=The runtime installer to download and execute"`

	// Directories prepended to PATH, in order
	PathPrepend []string `json:"pathPrepend,omitempty" toml:"pathPrepend" yaml:"pathPrepend" jsonschema:"description=Directories prepended to PATH, in order"`

	// The PATH value prepends are applied to. Defaults to the standard Unix path.
	PathBase string `json:"pathBase,omitempty" toml:"pathBase" yaml:"pathBase" jsonschema:"description=The PATH value prepends are applied to"`

	// Extra environment variables set in the image
	Variables map[string]string `json:"variables,omitempty" toml:"variables" yaml:"variables" jsonschema:"description=Extra environment variables set in the image"`

	// Local files copied into the image after provisioning
	Copies []Copy `json:"copies,omitempty" toml:"copies" yaml:"copies" jsonschema:"description=Local files copied into the image after provisioning"`

	// Extra steps appended after the provisioning sequence, in step
	// shorthand form (RUN:, RUN?:, ENV:, PATH:, ...)
	Steps []string `json:"steps,omitempty" toml:"steps" yaml:"steps" jsonschema:"description=Extra steps appended after the provisioning sequence, in step shorthand form"`
}

// Installer describes the runtime installer payload
type Installer struct {
	// URL the installer script is downloaded from
	URL string `json:"url" toml:"url" yaml:"url" jsonschema:"description=URL the installer script is downloaded from"`

	// Path the installer installs into. Must not exist prior to the run.
	Path string `json:"path" toml:"path" yaml:"path" jsonschema:"description=Install prefix. Must not exist prior to the run"`

	// Optional hex-encoded SHA-256 checksum of the installer payload
	SHA256 string `json:"sha256,omitempty" toml:"sha256" yaml:"sha256" jsonschema:"description=Optional hex-encoded SHA-256 checksum of the installer payload"`

	// Command that self-updates the installed runtime's package manager.
	// Failures are logged but do not fail the run.
	SelfUpdateCmd string `json:"selfUpdateCmd,omitempty" toml:"selfUpdateCmd" yaml:"selfUpdateCmd" jsonschema:"description=Command that self-updates the installed runtime's package manager. Failures are logged but do not fail the run"`
}

// Copy describes a local file or directory copied into the image
type Copy struct {
	Src     string   `json:"src" toml:"src" yaml:"src" jsonschema:"description=Source path relative to the spec file"`
	Dest    string   `json:"dest" toml:"dest" yaml:"dest" jsonschema:"description=Destination path in the image"`
	Include []string `json:"include,omitempty" toml:"include" yaml:"include" jsonschema:"description=Glob patterns of paths to include"`
	Exclude []string `json:"exclude,omitempty" toml:"exclude" yaml:"exclude" jsonschema:"description=Glob patterns of paths to exclude"`
}

func EmptySpec() *ImageSpec {
	return &ImageSpec{
		Packages:    []string{},
		PathPrepend: []string{},
		Variables:   map[string]string{},
	}
}

// Validate checks the spec invariants before any step runs
func (s *ImageSpec) Validate() error {
	if s.BaseImage == "" {
		return fmt.Errorf("spec has no base image")
	}

	if dup, found := utils.FindDuplicate(s.Packages); found {
		return fmt.Errorf("package %q is listed more than once", dup)
	}

	if s.Installer != nil {
		if s.Installer.URL == "" {
			return fmt.Errorf("installer has no url")
		}
		if s.Installer.Path == "" {
			return fmt.Errorf("installer has no install path")
		}
	}

	for _, copy := range s.Copies {
		if copy.Src == "" || copy.Dest == "" {
			return fmt.Errorf("copy entries need both src and dest")
		}
	}

	return nil
}

// Merge combines two specs where:
// - For strings (BaseImage, PathBase), the last non-empty value wins
// - For maps (Variables), entries are merged with last value winning
// - For arrays (Packages, PathPrepend, Copies, Steps), arrays are extended.
//   Overlay entries already present are skipped so an overlay can re-list a
//   package, but entries duplicated within one spec are kept for Validate to
//   reject.
func (s *ImageSpec) Merge(other *ImageSpec) *ImageSpec {
	result := EmptySpec()

	result.BaseImage = s.BaseImage
	if other.BaseImage != "" {
		result.BaseImage = other.BaseImage
	}

	result.PathBase = s.PathBase
	if other.PathBase != "" {
		result.PathBase = other.PathBase
	}

	result.Installer = mergeInstaller(s.Installer, other.Installer)

	result.Packages = append(result.Packages, s.Packages...)
	for _, pkg := range other.Packages {
		if !slices.Contains(result.Packages, pkg) {
			result.Packages = append(result.Packages, pkg)
		}
	}

	result.PathPrepend = append(result.PathPrepend, s.PathPrepend...)
	for _, dir := range other.PathPrepend {
		if !slices.Contains(result.PathPrepend, dir) {
			result.PathPrepend = append(result.PathPrepend, dir)
		}
	}

	for k, v := range s.Variables {
		result.Variables[k] = v
	}
	for k, v := range other.Variables {
		result.Variables[k] = v
	}

	result.Copies = append(result.Copies, s.Copies...)
	result.Copies = append(result.Copies, other.Copies...)

	result.Steps = append(result.Steps, s.Steps...)
	result.Steps = append(result.Steps, other.Steps...)

	return result
}

// mergeInstaller merges two installers field-wise, last non-empty value wins
func mergeInstaller(a, b *Installer) *Installer {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}

	merged := *a
	if b.URL != "" {
		merged.URL = b.URL
	}
	if b.Path != "" {
		merged.Path = b.Path
	}
	if b.SHA256 != "" {
		merged.SHA256 = b.SHA256
	}
	if b.SelfUpdateCmd != "" {
		merged.SelfUpdateCmd = b.SelfUpdateCmd
	}
	return &merged
}

func (ImageSpec) JSONSchemaExtend(schema *jsonschema.Schema) {
	schema.Properties.Set("$schema", &jsonschema.Schema{
		Type:        "string",
		Description: "The schema for this spec file",
	})
}

func GetJsonSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		DoNotReference: true,
		Anonymous:      true,
	}

	schema := r.Reflect(&ImageSpec{})
	return schema
}
