package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mikey/mail-sorter/internal/adapters/filter"
	"github.com/mikey/mail-sorter/internal/cli"
)

var (
	classifyFile string
	suggestLimit int
	suggestApply bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Show how a raw message would be categorised",
	Long: `Read one RFC 5322 message from --file or stdin and resolve it against the
rules. Nothing is filed and no rule or counter changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, false, func(e *env) error {
			cf, ok := e.filter.(*filter.CliFilter)
			if !ok {
				return fmt.Errorf("classifier front-end unavailable")
			}

			var in io.Reader = os.Stdin
			if classifyFile != "" {
				f, err := os.Open(classifyFile)
				if err != nil {
					return fmt.Errorf("failed to open input file: %w", err)
				}
				defer f.Close()
				in = f
			}

			if format == string(cli.FormatTable) {
				_, err := cf.ClassifyReader(e.ctx, in)
				return err
			}
			cf.SetOutput(io.Discard)
			c, err := cf.ClassifyReader(e.ctx, in)
			if err != nil {
				return err
			}
			return e.printer.PrintClassification(c)
		})
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Ask the configured model to categorise unmatched inbox senders",
	Long: `For inbox messages no rule matches, ask the configured LLM provider to
pick one of the existing categories. With --apply each suggestion becomes a
sender rule.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, true, func(e *env) error {
			suggestions, err := e.service.Suggest(e.ctx, suggestLimit)
			if err != nil {
				return err
			}
			if err := e.printer.PrintSuggestions(suggestions); err != nil {
				return err
			}
			if !suggestApply || len(suggestions) == 0 {
				return nil
			}
			results, err := e.service.ApplySuggestions(e.ctx, suggestions)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Applied %d suggestions\n", len(results))
			return nil
		})
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyFile, "file", "", "Input message file (stdin if not specified)")
	suggestCmd.Flags().IntVar(&suggestLimit, "limit", 20, "Maximum senders to ask about")
	suggestCmd.Flags().BoolVar(&suggestApply, "apply", false, "Turn suggestions into sender rules")

	rootCmd.AddCommand(classifyCmd, suggestCmd)
}
