package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Manage subject and sender keyword rules",
}

var keywordsAddCmd = &cobra.Command{
	Use:   "add <keyword> <label>",
	Short: "Add or update a keyword rule",
	Long: `Keyword rules match when the keyword occurs in the subject, ignoring
case. They are checked after sender and domain rules, in the order they were
added.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, false, func(e *env) error {
			if err := e.service.AddKeyword(e.ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Keyword %q → %s\n", args[0], args[1])
			return nil
		})
	},
}

var keywordsRemoveCmd = &cobra.Command{
	Use:     "remove <keyword>",
	Aliases: []string{"rm"},
	Short:   "Remove a keyword rule",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, false, func(e *env) error {
			removed, err := e.service.RemoveKeyword(e.ctx, args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("keyword %q not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed keyword %q\n", args[0])
			return nil
		})
	},
}

var keywordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List keyword rules in evaluation order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, false, func(e *env) error {
			rules, err := e.service.ListKeywords(e.ctx)
			if err != nil {
				return err
			}
			return e.printer.PrintKeywords(rules)
		})
	},
}

func init() {
	keywordsCmd.AddCommand(keywordsAddCmd, keywordsRemoveCmd, keywordsListCmd)
	rootCmd.AddCommand(keywordsCmd)
}
