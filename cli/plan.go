package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/basefab/basefab/core"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

var PlanCommand = &cli.Command{
	Name:                  "plan",
	Aliases:               []string{"p"},
	Usage:                 "generate a provisioning plan for a spec",
	ArgsUsage:             "SPEC",
	EnableShellCompletion: true,
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "output file name",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "output format. one of: pretty, json",
			Value: "pretty",
		},
	}, commonFlags()...),
	Action: func(ctx context.Context, cmd *cli.Command) error {
		result, _, err := GeneratePlanResultForCommand(cmd)
		if err != nil {
			return cli.Exit(err, 1)
		}

		format := cmd.String("format")

		var resultString string
		if format == "pretty" {
			resultString = core.FormatPlanResult(result)
		} else {
			serializedPlan, err := json.MarshalIndent(result.Plan, "", "  ")
			if err != nil {
				return cli.Exit(err, 1)
			}
			resultString = string(serializedPlan)
		}

		output := cmd.String("out")
		if output == "" {
			// Write to stdout if no output file specified
			os.Stdout.Write([]byte(resultString))
			os.Stdout.Write([]byte("\n"))
			return nil
		}

		if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
			return cli.Exit(err, 1)
		}

		if err := os.WriteFile(output, []byte(resultString), 0644); err != nil {
			return cli.Exit(err, 1)
		}

		log.Infof("Plan written to %s", output)

		return nil
	},
}
