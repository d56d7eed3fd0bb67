package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var exclusionsCmd = &cobra.Command{
	Use:   "exclusions",
	Short: "Manage senders and domains no rule may match",
}

var exclusionsAddCmd = &cobra.Command{
	Use:   "add <pattern>",
	Short: "Exclude a sender address or @domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, false, func(e *env) error {
			added, err := e.service.AddExclusion(e.ctx, args[0])
			if err != nil {
				return err
			}
			if !added {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already excluded\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Excluded %s\n", args[0])
			return nil
		})
	},
}

var exclusionsRemoveCmd = &cobra.Command{
	Use:     "remove <pattern>",
	Aliases: []string{"rm"},
	Short:   "Lift an exclusion",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, false, func(e *env) error {
			removed, err := e.service.RemoveExclusion(e.ctx, args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("%s is not excluded", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed exclusion %s\n", args[0])
			return nil
		})
	},
}

var exclusionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List exclusions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, false, func(e *env) error {
			exclusions, err := e.service.ListExclusions(e.ctx)
			if err != nil {
				return err
			}
			return e.printer.PrintStrings("exclusions", "Pattern", exclusions)
		})
	},
}

func init() {
	exclusionsCmd.AddCommand(exclusionsAddCmd, exclusionsRemoveCmd, exclusionsListCmd)
	rootCmd.AddCommand(exclusionsCmd)
}
