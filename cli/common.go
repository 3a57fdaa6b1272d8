package cli

import (
	"fmt"

	"github.com/basefab/basefab/core"
	"github.com/basefab/basefab/core/spec"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "env",
			Usage: "environment variables to set. format: KEY=VALUE",
		},
		&cli.StringFlag{
			Name:  "base-image",
			Usage: "base image to build on, overriding the spec",
		},
	}
}

// GeneratePlanResultForCommand loads the spec named by the command's first
// argument (a spec file or a directory containing one, defaulting to the
// current directory) and generates its provisioning plan
func GeneratePlanResultForCommand(cmd *cli.Command) (*core.PlanResult, *spec.Environment, error) {
	specPath := cmd.Args().First()
	if specPath == "" {
		specPath = "."
	}

	envArgs := cmd.StringSlice("env")

	env, err := spec.FromEnvs(envArgs)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating env: %w", err)
	}

	options := &core.GeneratePlanOptions{
		BaseImage: cmd.String("base-image"),
	}

	result, err := core.GenerateProvisionPlan(specPath, env, options)
	if err != nil {
		return nil, nil, fmt.Errorf("error generating plan: %w", err)
	}

	log.Debugf("Generated plan from %s", result.SpecPath)

	return result, env, nil
}
