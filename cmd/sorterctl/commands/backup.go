package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a backup of rules, exclusions and keywords",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, false, func(e *env) error {
			name, err := e.service.Export(e.ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s\n", name)
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <name>",
	Short: "Merge a backup into the current rules",
	Long: `Read a backup written by export, or a flat {"pattern": "label"} object,
and merge it into the current rules. Imported values win on conflict.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, false, func(e *env) error {
			result := e.service.Import(e.ctx, args[0])
			if err := e.printer.PrintImport(result); err != nil {
				return err
			}
			if !result.Success {
				return errors.New(result.Message)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)
}
