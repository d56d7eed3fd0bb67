package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mikey/mail-sorter/internal/core"
)

var (
	addNoFile      bool
	addConsolidate bool
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage sender and domain rules",
}

var rulesAddCmd = &cobra.Command{
	Use:   "add <pattern> <label>",
	Short: "Add or update a rule",
	Long: `Map a sender address or @domain to a category label. Unless --no-file is
given, messages waiting in the inbox from senders the rule covers are filed
immediately.

Examples:
  sorterctl rules add alice@example.com Friends
  sorterctl rules add @newsletter.com News/Weekly --no-file`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, !addNoFile, func(e *env) error {
			opts := core.AddOptions{
				AutoConsolidate: addConsolidate || e.service.AutoConsolidate(),
			}
			if !addNoFile {
				pending, err := e.service.PendingBatch(e.ctx)
				if err != nil {
					return err
				}
				opts.Pending = pending
			}

			result, err := e.service.AddOrUpdate(e.ctx, args[0], args[1], opts)
			if err != nil {
				return err
			}
			return e.printer.PrintAddResult(result)
		})
	},
}

var rulesDeleteCmd = &cobra.Command{
	Use:     "delete <pattern>",
	Aliases: []string{"rm"},
	Short:   "Delete a rule",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, false, func(e *env) error {
			removed, err := e.service.Delete(e.ctx, args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("%w: %s", core.ErrRuleNotFound, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		})
	},
}

var rulesListCmd = &cobra.Command{
	Use:   "list [term]",
	Short: "List rules, optionally filtered by pattern or label",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		term := ""
		if len(args) == 1 {
			term = args[0]
		}
		return withService(cmd, false, func(e *env) error {
			entries, err := e.service.Search(e.ctx, term)
			if err != nil {
				return err
			}
			return e.printer.PrintRules(entries)
		})
	},
}

var rulesStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count rules per family",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, false, func(e *env) error {
			stats, err := e.service.Stats(e.ctx)
			if err != nil {
				return err
			}
			return e.printer.PrintRuleStats(stats)
		})
	},
}

var rulesFileCmd = &cobra.Command{
	Use:   "file <pattern>",
	Short: "File inbox messages covered by an existing rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, true, func(e *env) error {
			filed, err := e.service.FileInbound(e.ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Filed %d messages\n", filed)
			return nil
		})
	},
}

var rulesResolveCmd = &cobra.Command{
	Use:   "resolve <sender> [subject]",
	Short: "Show which rule a sender and subject resolve to",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		subject := ""
		if len(args) == 2 {
			subject = args[1]
		}
		return withService(cmd, false, func(e *env) error {
			match, ok, err := e.service.Resolve(e.ctx, args[0], subject)
			if err != nil {
				return err
			}
			c := &core.Classification{
				Sender:  core.ExtractAddress(args[0]),
				Subject: subject,
				Matched: ok,
				Label:   match.Label,
				RuleKey: match.RuleKey,
			}
			return e.printer.PrintClassification(c)
		})
	},
}

func init() {
	rulesAddCmd.Flags().BoolVar(&addNoFile, "no-file", false, "Do not file waiting inbox messages")
	rulesAddCmd.Flags().BoolVar(&addConsolidate, "consolidate", false, "Run consolidation after adding")

	rulesCmd.AddCommand(rulesAddCmd, rulesDeleteCmd, rulesListCmd, rulesStatsCmd, rulesFileCmd, rulesResolveCmd)
	rootCmd.AddCommand(rulesCmd)
}
