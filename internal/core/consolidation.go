package core

import (
	"sort"
	"strings"
)

// minExactForMerge is the number of exact senders at one domain that makes
// a domain rule worthwhile
const minExactForMerge = 3

// FindOpportunities groups rules by label and proposes removals and merges
// within each group. Proposals are independent; applying one may make
// another moot. Output order is deterministic.
func FindOpportunities(rules *RuleSet) []Opportunity {
	groups := make(map[string][]Pattern)
	for _, entry := range rules.Entries() {
		groups[entry.Label] = append(groups[entry.Label], patternFromKey(entry.Pattern))
	}

	labels := make([]string, 0, len(groups))
	for label, patterns := range groups {
		if len(patterns) >= 2 {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)

	var opportunities []Opportunity
	for _, label := range labels {
		opportunities = append(opportunities, groupOpportunities(label, groups[label])...)
	}
	return opportunities
}

func groupOpportunities(label string, patterns []Pattern) []Opportunity {
	domains := make(map[string]struct{})
	var exacts, wildcards []Pattern
	for _, p := range patterns {
		if p.IsDomain() {
			domains[p.Domain()] = struct{}{}
			wildcards = append(wildcards, p)
		} else {
			exacts = append(exacts, p)
		}
	}

	var out []Opportunity

	for _, p := range exacts {
		if _, covered := domains[p.Domain()]; covered {
			out = append(out, Opportunity{
				Kind:          Redundant,
				RulesToRemove: []Pattern{p},
				Label:         label,
			})
		}
	}

	byParent := make(map[string][]Pattern)
	for _, p := range wildcards {
		if parent := parentDomain(p.Domain()); parent != "" {
			byParent[parent] = append(byParent[parent], p)
		}
	}
	for _, parent := range sortedKeys(byParent) {
		subdomains := byParent[parent]
		if len(subdomains) < 2 {
			continue
		}
		if _, exists := domains[parent]; exists {
			continue
		}
		add := DomainPattern(parent)
		out = append(out, Opportunity{
			Kind:          DomainMerge,
			RulesToRemove: subdomains,
			RuleToAdd:     &add,
			Label:         label,
		})
	}

	byDomain := make(map[string][]Pattern)
	for _, p := range exacts {
		if d := p.Domain(); d != "" {
			byDomain[d] = append(byDomain[d], p)
		}
	}
	for _, domain := range sortedKeys(byDomain) {
		senders := byDomain[domain]
		if len(senders) < minExactForMerge {
			continue
		}
		if _, exists := domains[domain]; exists {
			continue
		}
		add := DomainPattern(domain)
		out = append(out, Opportunity{
			Kind:          DomainMerge,
			RulesToRemove: senders,
			RuleToAdd:     &add,
			Label:         label,
		})
	}

	return out
}

// ApplyOpportunities mutates rules in place and returns how many patterns
// were removed. Patterns already gone are skipped silently.
func ApplyOpportunities(opportunities []Opportunity, rules *RuleSet) int {
	removed := 0
	for _, opp := range opportunities {
		for _, p := range opp.RulesToRemove {
			if rules.Delete(p) {
				removed++
			}
		}
		if opp.RuleToAdd != nil {
			rules.Set(*opp.RuleToAdd, opp.Label)
		}
	}
	return removed
}

// Describe renders an opportunity for operators
func (o Opportunity) Describe() string {
	keys := make([]string, len(o.RulesToRemove))
	for i, p := range o.RulesToRemove {
		keys[i] = p.Key()
	}
	if o.RuleToAdd == nil {
		return "remove " + strings.Join(keys, ", ") + " → " + o.Label
	}
	return "merge " + strings.Join(keys, ", ") + " into " + o.RuleToAdd.Key() + " → " + o.Label
}

func sortedKeys(m map[string][]Pattern) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
