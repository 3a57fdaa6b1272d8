package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/basefab/basefab/buildkit"
	"github.com/basefab/basefab/core"
	"github.com/basefab/basefab/core/logger"
	"github.com/urfave/cli/v3"
)

var BuildCommand = &cli.Command{
	Name:                  "build",
	Aliases:               []string{"b"},
	Usage:                 "build a provisioned image with BuildKit",
	ArgsUsage:             "SPEC",
	EnableShellCompletion: true,
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "name",
			Usage: "name of the image to build",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output file for the image tarball. Defaults to stdout",
		},
		&cli.StringFlag{
			Name:  "platform",
			Usage: "platform to build for. one of: linux/amd64, linux/arm64",
		},
		&cli.BoolFlag{
			Name:  "llb",
			Usage: "output the LLB definition to stdout instead of building the image",
			Value: false,
		},
		&cli.BoolFlag{
			Name:  "push",
			Usage: "push the image to the registry instead of exporting a tarball",
			Value: false,
		},
		&cli.StringFlag{
			Name:  "registry-url",
			Usage: "registry to authenticate against",
		},
		&cli.StringFlag{
			Name:  "registry-user",
			Usage: "registry username",
		},
		&cli.StringFlag{
			Name:  "registry-password",
			Usage: "registry password",
		},
	}, commonFlags()...),
	Action: func(ctx context.Context, cmd *cli.Command) error {
		result, _, err := GeneratePlanResultForCommand(cmd)
		if err != nil {
			return cli.Exit(err, 1)
		}

		planLogger := logger.NewLogger()
		if !core.ValidatePlan(result.Plan, planLogger) {
			for _, msg := range planLogger.Logs {
				fmt.Fprintln(os.Stderr, msg.Msg)
			}
			return cli.Exit("invalid plan", 1)
		}

		platform, err := buildkit.ParseBuildPlatform(cmd.String("platform"))
		if err != nil {
			return cli.Exit(err, 1)
		}

		if cmd.Bool("llb") {
			if err := buildkit.WriteLLB(result.Plan, os.Stdout, buildkit.ConvertOptions{Platform: platform}); err != nil {
				return cli.Exit(err, 1)
			}
			return nil
		}

		contextDir := filepath.Dir(result.SpecPath)

		err = buildkit.BuildWithBuildkitClient(contextDir, result.Plan, buildkit.BuildWithBuildkitClientOptions{
			ImageName:  cmd.String("name"),
			OutputFile: cmd.String("output"),
			Platform:   platform,
			Registry: buildkit.RegistryOptions{
				UseRegistryExport: cmd.Bool("push"),
				RegistryPush:      cmd.Bool("push"),
				RegistryURL:       cmd.String("registry-url"),
				RegistryUser:      cmd.String("registry-user"),
				RegistryPassword:  cmd.String("registry-password"),
			},
		})
		if err != nil {
			return cli.Exit(err, 1)
		}

		return nil
	},
}
