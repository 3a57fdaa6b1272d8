package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/basefab/basefab/core"
	"github.com/basefab/basefab/core/logger"
	"github.com/basefab/basefab/core/provision"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

var ProvisionCommand = &cli.Command{
	Name:                  "provision",
	Usage:                 "run the provisioning plan against the local machine",
	ArgsUsage:             "SPEC",
	EnableShellCompletion: true,
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "result-out",
			Usage: "output file for the JSON serialized run result",
		},
	}, commonFlags()...),
	Action: func(ctx context.Context, cmd *cli.Command) error {
		planResult, _, err := GeneratePlanResultForCommand(cmd)
		if err != nil {
			return cli.Exit(err, 1)
		}

		runLogger := logger.NewLogger()
		if !core.ValidatePlan(planResult.Plan, runLogger) {
			printLogs(runLogger)
			return cli.Exit("invalid plan", 1)
		}

		runner := provision.NewLocalRunner(provision.LocalRunnerOptions{
			ContextDir: filepath.Dir(planResult.SpecPath),
		})

		result, runErr := provision.Provision(ctx, planResult.Plan, runner, runLogger)
		printLogs(runLogger)

		if resultOut := cmd.String("result-out"); resultOut != "" && result != nil {
			if err := writeJSONFile(resultOut, result, "Run result written to %s"); err != nil {
				return cli.Exit(err, 1)
			}
		}

		if runErr != nil {
			return cli.Exit(runErr, 1)
		}

		log.Infof("Provisioned environment with PATH=%s", result.Path)

		return nil
	},
}

func printLogs(runLogger *logger.Logger) {
	for _, msg := range runLogger.Logs {
		switch msg.Level {
		case logger.Error:
			log.Error(msg.Msg)
		case logger.Warn:
			log.Warn(msg.Msg)
		default:
			log.Info(msg.Msg)
		}
	}
}

func writeJSONFile(path string, data interface{}, logMessage string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	serialized, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, serialized, 0644); err != nil {
		return err
	}

	log.Debugf(logMessage, path)
	return nil
}
