package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ruleSetOf(pairs map[string]string) *RuleSet {
	rs := NewRuleSet()
	for k, v := range pairs {
		rs.Set(patternFromKey(k), v)
	}
	return rs
}

func TestFindOpportunitiesRedundant(t *testing.T) {
	rules := ruleSetOf(map[string]string{"alice@co.com": "W", "@co.com": "W"})

	opps := FindOpportunities(rules)
	require.Len(t, opps, 1)
	assert.Equal(t, Redundant, opps[0].Kind)
	assert.Equal(t, []Pattern{ExactPattern("alice@co.com")}, opps[0].RulesToRemove)
	assert.Nil(t, opps[0].RuleToAdd)
	assert.Equal(t, "W", opps[0].Label)
}

func TestFindOpportunitiesSubdomainMerge(t *testing.T) {
	rules := ruleSetOf(map[string]string{"@a.x.com": "P", "@b.x.com": "P"})

	opps := FindOpportunities(rules)
	require.Len(t, opps, 1)
	assert.Equal(t, DomainMerge, opps[0].Kind)
	assert.Equal(t, []Pattern{DomainPattern("a.x.com"), DomainPattern("b.x.com")}, opps[0].RulesToRemove)
	require.NotNil(t, opps[0].RuleToAdd)
	assert.Equal(t, "@x.com", opps[0].RuleToAdd.Key())
}

func TestFindOpportunitiesExactMerge(t *testing.T) {
	rules := ruleSetOf(map[string]string{"a@co.com": "P", "b@co.com": "P", "c@co.com": "P"})

	opps := FindOpportunities(rules)
	require.Len(t, opps, 1)
	assert.Equal(t, DomainMerge, opps[0].Kind)
	assert.Len(t, opps[0].RulesToRemove, 3)
	assert.Equal(t, "@co.com", opps[0].RuleToAdd.Key())
}

func TestFindOpportunitiesNone(t *testing.T) {
	tests := map[string]map[string]string{
		"different labels":       {"alice@co.com": "A", "@co.com": "B"},
		"two exact only":         {"a@co.com": "P", "b@co.com": "P"},
		"parent already present": {"@a.x.com": "P", "@b.x.com": "P", "@x.com": "P"},
		"single rule":            {"@co.com": "P"},
		"empty":                  {},
	}

	for name, pairs := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, FindOpportunities(ruleSetOf(pairs)))
		})
	}
}

func TestFindOpportunitiesDeterministic(t *testing.T) {
	rules := ruleSetOf(map[string]string{
		"a@co.com": "P", "b@co.com": "P", "c@co.com": "P", "x@co.com": "Q",
		"@co.com": "Q", "@a.y.org": "R", "@b.y.org": "R",
	})
	first := FindOpportunities(rules)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, FindOpportunities(rules))
	}
	require.Len(t, first, 3)
	assert.Equal(t, "P", first[0].Label)
	assert.Equal(t, "Q", first[1].Label)
	assert.Equal(t, "R", first[2].Label)
}

func TestApplyOpportunities(t *testing.T) {
	rules := ruleSetOf(map[string]string{
		"a@co.com": "P", "b@co.com": "P", "c@co.com": "P",
		"@a.x.com": "S", "@b.x.com": "S",
	})

	opps := FindOpportunities(rules)
	removed := ApplyOpportunities(opps, rules)
	assert.Equal(t, 5, removed)
	assert.Equal(t, []RuleEntry{
		{Pattern: "@co.com", Label: "P"},
		{Pattern: "@x.com", Label: "S"},
	}, rules.Entries())

	assert.Equal(t, 0, ApplyOpportunities(opps, rules))
}

func TestConsolidationIsIdempotent(t *testing.T) {
	rules := ruleSetOf(map[string]string{
		"alice@co.com": "W", "@co.com": "W",
		"a@shop.com": "S", "b@shop.com": "S", "c@shop.com": "S",
		"@a.news.net": "N", "@b.news.net": "N",
	})

	ApplyOpportunities(FindOpportunities(rules), rules)
	assert.Empty(t, FindOpportunities(rules))
}

func TestApplyRedundantThenMerge(t *testing.T) {
	rules := ruleSetOf(map[string]string{
		"a@mail.co.com": "P", "b@mail.co.com": "P", "c@mail.co.com": "P",
		"@mail.co.com": "P", "@web.co.com": "P",
	})

	opps := FindOpportunities(rules)
	removed := ApplyOpportunities(opps, rules)
	assert.Equal(t, 5, removed)
	assert.Equal(t, []RuleEntry{{Pattern: "@co.com", Label: "P"}}, rules.Entries())
	assert.Empty(t, FindOpportunities(rules))
}
