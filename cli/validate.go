package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/basefab/basefab/core"
	"github.com/basefab/basefab/core/logger"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

var ValidateCommand = &cli.Command{
	Name:                  "validate",
	Usage:                 "check a spec and its generated plan for problems",
	ArgsUsage:             "SPEC",
	EnableShellCompletion: true,
	Flags:                 commonFlags(),
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

		log.Infof("%s is valid (%d steps)", result.SpecPath, len(result.Plan.Steps))

		return nil
	},
}
