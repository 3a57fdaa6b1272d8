package core

import (
	"fmt"
	"strings"

	"github.com/basefab/basefab/core/plan"
	"github.com/basefab/basefab/core/utils"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Define styles
var (
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}

	headerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(highlight).
			MarginTop(1).
			Padding(0, 1)

	sectionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Width(12).
				MarginLeft(1).
				MarginTop(2).
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("238")).
				BorderBottom(true)

	packageStyle = lipgloss.NewStyle().
			MarginLeft(1).
			Foreground(lipgloss.Color("13"))

	stepHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("13"))

	commandPrefixStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				MarginLeft(2)

	commandStyle = lipgloss.NewStyle().
			Bold(true)

	pathStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Bold(true)

	variableNameStyle = lipgloss.NewStyle().
				MarginLeft(2).
				Foreground(lipgloss.Color("14"))
)

func PrettyPrintPlanResult(result *PlanResult) {
	fmt.Print(FormatPlanResult(result))
}

// FormatPlanResult renders a plan for terminal display. Output degrades to
// plain text when the terminal does not support color.
func FormatPlanResult(result *PlanResult) string {
	lipgloss.SetColorProfile(termenv.EnvColorProfile())

	var output strings.Builder

	header := fmt.Sprintf("Basefab v%s", Version)
	output.WriteString(headerStyle.Render(header))
	output.WriteString("\n")

	p := result.Plan
	if p == nil {
		return output.String()
	}

	if p.BaseImage != "" {
		output.WriteString(sectionHeaderStyle.MarginTop(1).Render("Image"))
		output.WriteString("\n")
		output.WriteString(pathStyle.Render(p.BaseImage))
		output.WriteString("\n")
	}

	for _, step := range p.Steps {
		if pkgStep, ok := step.(plan.InstallPackagesStep); ok && len(pkgStep.Packages) > 0 {
			output.WriteString(sectionHeaderStyle.Render("Packages"))
			output.WriteString("\n")
			for _, pkg := range pkgStep.Packages {
				output.WriteString(packageStyle.Render(pkg))
				output.WriteString("\n")
			}
		}
	}

	if commands := formatCommands(p); len(commands) > 0 {
		output.WriteString(sectionHeaderStyle.Render("Steps"))
		output.WriteString("\n")
		for i, cmd := range commands {
			customStepHeaderStyle := stepHeaderStyle
			if i > 0 {
				customStepHeaderStyle = customStepHeaderStyle.MarginTop(1)
			}
			output.WriteString(customStepHeaderStyle.Render(fmt.Sprintf("▸ %s", cmd.name)))
			output.WriteString("\n")
			output.WriteString(fmt.Sprintf("%s %s", commandPrefixStyle.Render("$"), commandStyle.Render(cmd.cmd)))
			output.WriteString("\n")
		}
	}

	env := p.Environment()
	output.WriteString(sectionHeaderStyle.Render("Environment"))
	output.WriteString("\n")
	output.WriteString(pathStyle.Render(fmt.Sprintf("PATH=%s", result.Path)))
	output.WriteString("\n")
	for _, name := range utils.SortedKeys(env.Vars) {
		output.WriteString(fmt.Sprintf("%s=%s", variableNameStyle.Render(name), env.Vars[name]))
		output.WriteString("\n")
	}

	output.WriteString("\n")
	return output.String()
}

type displayCommand struct {
	name string
	cmd  string
}

func formatCommands(p *plan.ProvisionPlan) []displayCommand {
	commands := []displayCommand{}
	for _, step := range p.Steps {
		switch step := step.(type) {
		case plan.DownloadFileStep:
			commands = append(commands, displayCommand{
				name: "download installer",
				cmd:  fmt.Sprintf("curl -o %s %s", step.Dest, step.URL),
			})
		case plan.RunInstallerStep:
			commands = append(commands, displayCommand{
				name: "run installer",
				cmd:  fmt.Sprintf("sh %s -b -p %s", step.Script, step.Target),
			})
		case plan.RunCommandStep:
			name := step.CustomName
			if name == "" {
				name = "run"
			}
			if !step.Fatal() {
				name += " (non-fatal)"
			}
			commands = append(commands, displayCommand{name: name, cmd: step.Cmd})
		}
	}
	return commands
}
