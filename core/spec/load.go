package spec

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v2"
)

// Spec file names probed, in priority order, when a directory is given
var specFileNames = []string{
	"basefab.toml",
	"basefab.json",
	"basefab.jsonc",
	"basefab.yaml",
	"basefab.yml",
}

// LoadSpec reads a spec from a file or, if the path is a directory, from the
// first basefab spec file found in it. The format is picked by extension.
func LoadSpec(path string) (*ImageSpec, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%s does not exist", path)
		}
		return nil, "", fmt.Errorf("failed to check %s: %w", path, err)
	}

	specPath := path
	if info.IsDir() {
		specPath, err = findSpecFile(path)
		if err != nil {
			return nil, "", err
		}
	}

	data, err := os.ReadFile(specPath)
	if err != nil {
		return nil, "", errors.Wrapf(err, "error reading %s", specPath)
	}

	contents := strings.ReplaceAll(string(data), "\r\n", "\n")

	imageSpec := EmptySpec()
	switch strings.ToLower(filepath.Ext(specPath)) {
	case ".toml":
		if err := toml.Unmarshal([]byte(contents), imageSpec); err != nil {
			return nil, "", errors.Wrapf(err, "error reading %s as TOML", specPath)
		}
	case ".json", ".jsonc":
		jsonBytes, err := standardizeJSON([]byte(contents))
		if err != nil {
			return nil, "", errors.Wrapf(err, "error reading %s as JSON", specPath)
		}
		if err := json.Unmarshal(jsonBytes, imageSpec); err != nil {
			return nil, "", errors.Wrapf(err, "error reading %s as JSON", specPath)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(contents), imageSpec); err != nil {
			return nil, "", errors.Wrapf(err, "error reading %s as YAML", specPath)
		}
	default:
		return nil, "", fmt.Errorf("unsupported spec format: %s", specPath)
	}

	return imageSpec, specPath, nil
}

// findSpecFile locates a spec file within a directory
func findSpecFile(dir string) (string, error) {
	for _, name := range specFileNames {
		matches, err := doublestar.Glob(os.DirFS(dir), name)
		if err != nil {
			continue
		}
		if len(matches) > 0 {
			return filepath.Join(dir, matches[0]), nil
		}
	}
	return "", fmt.Errorf("no basefab spec file found in %s", dir)
}

// standardizeJSON strips comments and trailing commas so JSONC spec files parse
func standardizeJSON(b []byte) ([]byte, error) {
	ast, err := hujson.Parse(b)
	if err != nil {
		return b, err
	}
	ast.Standardize()
	return ast.Pack(), nil
}
