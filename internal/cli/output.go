package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/mikey/mail-sorter/internal/core"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// ParseFormat validates a --format value
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Printer renders command results
type Printer struct {
	out    io.Writer
	format OutputFormat
}

// NewPrinter creates a printer writing to out
func NewPrinter(out io.Writer, format OutputFormat) *Printer {
	return &Printer{out: out, format: format}
}

// Print writes data as json or yaml, or as the given table
func (p *Printer) Print(data interface{}, header []string, rows [][]string) error {
	switch p.format {
	case FormatJSON:
		return p.printJSON(data)
	case FormatYAML:
		return p.printYAML(data)
	case FormatTable:
		return p.printTable(header, rows)
	default:
		return fmt.Errorf("unsupported format: %s", p.format)
	}
}

func (p *Printer) printJSON(data interface{}) error {
	encoder := json.NewEncoder(p.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (p *Printer) printYAML(data interface{}) error {
	encoder := yaml.NewEncoder(p.out)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func (p *Printer) printTable(header []string, rows [][]string) error {
	table := tablewriter.NewWriter(p.out)
	table.Header(toAny(header)...)
	for _, row := range rows {
		if err := table.Append(toAny(row)...); err != nil {
			return err
		}
	}
	return table.Render()
}

func toAny(cells []string) []interface{} {
	out := make([]interface{}, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}

// PrintRules prints rule entries
func (p *Printer) PrintRules(entries []core.RuleEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Pattern, e.Label})
	}
	return p.Print(map[string][]core.RuleEntry{"rules": entries}, []string{"Pattern", "Label"}, rows)
}

// PrintRuleStats prints rule counts per family
func (p *Printer) PrintRuleStats(stats *core.RuleStats) error {
	rows := [][]string{
		{"total", strconv.Itoa(stats.Total)},
		{"exact", strconv.Itoa(stats.Exact)},
		{"domain", strconv.Itoa(stats.Domain)},
		{"exclusions", strconv.Itoa(stats.Exclusions)},
		{"keywords", strconv.Itoa(stats.Keywords)},
	}
	return p.Print(stats, []string{"Family", "Count"}, rows)
}

// PrintAddResult prints the outcome of adding a rule
func (p *Printer) PrintAddResult(r *core.AddResult) error {
	rows := [][]string{{
		r.Pattern,
		r.Label,
		r.PreviousLabel,
		strconv.FormatBool(r.Excluded),
		strconv.Itoa(r.Filed),
		strconv.Itoa(r.Failed),
		strconv.Itoa(r.Consolidated),
	}}
	return p.Print(r, []string{"Pattern", "Label", "Previous", "Excluded", "Filed", "Failed", "Consolidated"}, rows)
}

// PrintStrings prints a single-column list under key
func (p *Printer) PrintStrings(key, title string, values []string) error {
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		rows = append(rows, []string{v})
	}
	return p.Print(map[string][]string{key: values}, []string{title}, rows)
}

// PrintKeywords prints keyword rules in evaluation order
func (p *Printer) PrintKeywords(rules []core.KeywordRule) error {
	rows := make([][]string, 0, len(rules))
	for i, r := range rules {
		rows = append(rows, []string{strconv.Itoa(i + 1), r.Keyword, r.Label})
	}
	return p.Print(map[string][]core.KeywordRule{"keywords": rules}, []string{"#", "Keyword", "Label"}, rows)
}

// PrintFilingStats prints counters sorted by count, highest first
func (p *Printer) PrintFilingStats(stats core.FilingStats) error {
	keys := make([]core.RuleKey, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if stats[keys[i]] != stats[keys[j]] {
			return stats[keys[i]] > stats[keys[j]]
		}
		return keys[i] < keys[j]
	})

	rows := make([][]string, 0, len(keys)+1)
	for _, k := range keys {
		rows = append(rows, []string{string(k), strconv.FormatInt(stats[k], 10)})
	}
	rows = append(rows, []string{"(total)", strconv.FormatInt(stats.Total(), 10)})
	return p.Print(map[string]core.FilingStats{"filingStats": stats}, []string{"Rule", "Filed"}, rows)
}

// PrintSweep prints a sweep summary and, for dry runs, what would be filed
func (p *Printer) PrintSweep(r *core.SweepResult) error {
	header := []string{"Sender", "Subject", "Label", "Rule"}
	rows := make([][]string, 0, len(r.Matches)+1)
	for _, m := range r.Matches {
		rows = append(rows, []string{m.Sender, truncate(m.Subject, 40), m.Label, string(m.RuleKey)})
	}
	rows = append(rows, []string{
		fmt.Sprintf("scanned %d", r.Scanned),
		fmt.Sprintf("matched %d", r.Matched),
		fmt.Sprintf("filed %d", r.Filed),
		fmt.Sprintf("failed %d", r.Failed),
	})
	return p.Print(r, header, rows)
}

// PrintDiscovery prints a discovery summary
func (p *Printer) PrintDiscovery(r *core.DiscoveryResult) error {
	rows := [][]string{
		{"run", r.RunID},
		{"categories scanned", strconv.Itoa(r.CategoriesScanned)},
		{"categories skipped", strconv.Itoa(r.CategoriesSkipped)},
		{"rules added", strconv.Itoa(r.RulesAdded)},
		{"rules reassigned", strconv.Itoa(r.RulesReassigned)},
		{"timed out", strconv.FormatBool(r.TimedOut)},
		{"elapsed", r.Elapsed.String()},
	}
	return p.Print(r, []string{"Field", "Value"}, rows)
}

// PrintConsolidation prints opportunities and how many rules were removed
func (p *Printer) PrintConsolidation(r *core.ConsolidationResult) error {
	rows := make([][]string, 0, len(r.Opportunities))
	for _, o := range r.Opportunities {
		rows = append(rows, []string{o.Kind.String(), o.Label, o.Describe()})
	}
	return p.Print(r, []string{"Kind", "Label", "Change"}, rows)
}

// PrintImport prints an import result
func (p *Printer) PrintImport(r *core.ImportResult) error {
	rows := [][]string{{strconv.FormatBool(r.Success), strconv.Itoa(r.Count), r.Message}}
	return p.Print(r, []string{"Success", "Rules", "Message"}, rows)
}

// PrintSuggestions prints category suggestions
func (p *Printer) PrintSuggestions(suggestions []core.Suggestion) error {
	rows := make([][]string, 0, len(suggestions))
	for _, s := range suggestions {
		rows = append(rows, []string{
			s.Sender,
			truncate(s.Subject, 40),
			s.Category,
			strconv.FormatFloat(s.Confidence, 'f', 2, 64),
			truncate(s.Explanation, 50),
		})
	}
	return p.Print(map[string][]core.Suggestion{"suggestions": suggestions},
		[]string{"Sender", "Subject", "Category", "Confidence", "Reason"}, rows)
}

// PrintClassification prints how one message resolves
func (p *Printer) PrintClassification(c *core.Classification) error {
	result := "unmatched"
	switch {
	case c.Matched:
		result = "matched"
	case c.Excluded:
		result = "excluded"
	}
	suggested := ""
	if c.Suggested != nil {
		suggested = fmt.Sprintf("%s (%.2f)", c.Suggested.Category, c.Suggested.Confidence)
	}
	rows := [][]string{{c.Sender, truncate(c.Subject, 40), result, c.Label, string(c.RuleKey), suggested}}
	return p.Print(c, []string{"Sender", "Subject", "Result", "Label", "Rule", "Suggested"}, rows)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
