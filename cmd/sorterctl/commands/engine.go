package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mikey/mail-sorter/internal/core"
)

var (
	sweepDryRun      bool
	discoverLimit    int
	discoverBudget   time.Duration
	consolidateApply bool
	statsReset       bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "File inbox messages according to the rules",
	Long: `Resolve every message in the inbox batch against the rules and file the
matches. With --dry-run nothing is filed and the would-be filings are listed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, true, func(e *env) error {
			result, err := e.service.Sweep(e.ctx, sweepDryRun)
			if err != nil {
				return err
			}
			return e.printer.PrintSweep(result)
		})
	},
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Learn sender rules from already categorised mail",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, true, func(e *env) error {
			result, err := e.service.Discover(e.ctx, discoverLimit, discoverBudget)
			if err != nil {
				return err
			}
			return e.printer.PrintDiscovery(result)
		})
	},
}

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Find redundant or mergeable rules",
	Long: `List rules that are redundant with a domain rule, subdomain rules that
could collapse into their parent domain, and groups of sender rules that could
become one domain rule. With --apply the changes are written.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, false, func(e *env) error {
			if consolidateApply {
				result, err := e.service.Consolidate(e.ctx)
				if err != nil {
					return err
				}
				return e.printer.PrintConsolidation(result)
			}
			opportunities, err := e.service.FindOpportunities(e.ctx)
			if err != nil {
				return err
			}
			return e.printer.PrintConsolidation(&core.ConsolidationResult{Opportunities: opportunities})
		})
	},
}

var filingStatsCmd = &cobra.Command{
	Use:   "filing-stats",
	Short: "Show how many messages each rule has filed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, false, func(e *env) error {
			if statsReset {
				if err := e.service.ResetFilingStats(e.ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Filing stats reset")
				return nil
			}
			stats, err := e.service.GetFilingStats(e.ctx)
			if err != nil {
				return err
			}
			return e.printer.PrintFilingStats(stats)
		})
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "List what would be filed without filing")
	discoverCmd.Flags().IntVar(&discoverLimit, "limit", 0, "Messages to scan per category (default from config)")
	discoverCmd.Flags().DurationVar(&discoverBudget, "budget", 0, "Wall-clock budget (default from config)")
	consolidateCmd.Flags().BoolVar(&consolidateApply, "apply", false, "Apply the changes")
	filingStatsCmd.Flags().BoolVar(&statsReset, "reset", false, "Reset every counter to zero")

	rootCmd.AddCommand(sweepCmd, discoverCmd, consolidateCmd, filingStatsCmd)
}
