package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mikey/mail-sorter/internal/core"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("yaml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestPrintRulesJSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatJSON)
	require.NoError(t, p.PrintRules([]core.RuleEntry{{Pattern: "@example.com", Label: "Work"}}))

	var out map[string][]core.RuleEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "Work", out["rules"][0].Label)
}

func TestPrintConsolidationYAML(t *testing.T) {
	add := core.DomainPattern("example.com")
	result := &core.ConsolidationResult{
		Opportunities: []core.Opportunity{{
			Kind:          core.DomainMerge,
			RulesToRemove: []core.Pattern{core.DomainPattern("a.example.com"), core.DomainPattern("b.example.com")},
			RuleToAdd:     &add,
			Label:         "Work",
		}},
		Removed: 2,
	}

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatYAML).PrintConsolidation(result))

	var out map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, 2, out["removed"])
	assert.Contains(t, buf.String(), "@a.example.com")
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatTable)
	require.NoError(t, p.PrintFilingStats(core.FilingStats{"@example.com": 3, "keyword:invoice": 5}))

	out := buf.String()
	assert.Contains(t, out, "keyword:invoice")
	assert.Contains(t, out, "(total)")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("keyword:invoice")), bytes.Index(buf.Bytes(), []byte("@example.com")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
