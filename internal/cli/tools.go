package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the built-in tools",
	RunE:  runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer env.Close()

	registry, err := buildRegistry(env.cfg.Sandbox, newConsolePrompter(cmd.InOrStdin(), cmd.OutOrStdout()))
	if err != nil {
		return err
	}

	enabled := map[string]bool{}
	for _, name := range env.cfg.Agent.Tools {
		enabled[name] = true
	}

	out := cmd.OutOrStdout()
	for _, name := range registry.Names() {
		desc, err := registry.Describe(name)
		if err != nil {
			return err
		}
		mark := " "
		if len(enabled) == 0 || enabled[name] {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %-20s %s", mark, name, desc.Description)
		if req := desc.Required(); len(req) > 0 {
			fmt.Fprintf(out, " (requires: %s)", strings.Join(req, ", "))
		}
		fmt.Fprintln(out)
	}
	return nil
}
