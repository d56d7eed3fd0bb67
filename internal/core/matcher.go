package core

import (
	"strings"

	"github.com/mikey/mail-sorter/internal/metrics"
)

// Resolve finds the single rule applying to a message. Families are checked
// in strict order: exclusions, exact sender, domain wildcard, keyword.
// The exclusion check ignores case; the exact lookup uses the sender as
// received. Nil sets are treated as empty.
func Resolve(rules *RuleSet, exclusions *ExclusionSet, keywords *KeywordRuleSet, sender, subject string) (Match, bool) {
	m, result := resolve(rules, exclusions, keywords, sender, subject)
	return m, result == metrics.ResultMatched
}

func resolve(rules *RuleSet, exclusions *ExclusionSet, keywords *KeywordRuleSet, sender, subject string) (Match, string) {
	if exclusions.Excludes(sender) {
		return Match{}, metrics.ResultExcluded
	}

	if label, ok := rules.lookup(sender); ok {
		return Match{Label: label, RuleKey: RuleKey(sender)}, metrics.ResultMatched
	}

	if at := strings.LastIndex(sender, domainSigil); at >= 0 {
		// the domain as received first, then its lowercase form
		asReceived := sender[at:]
		for _, domainKey := range []string{asReceived, strings.ToLower(asReceived)} {
			if label, ok := rules.lookup(domainKey); ok {
				return Match{Label: label, RuleKey: RuleKey(domainKey)}, metrics.ResultMatched
			}
		}
	}

	if subject != "" && keywords.Len() > 0 {
		lowered := strings.ToLower(subject)
		for _, kw := range keywords.Rules() {
			if kw.Keyword == "" {
				continue
			}
			if strings.Contains(lowered, strings.ToLower(kw.Keyword)) {
				return Match{Label: kw.Label, RuleKey: KeywordRuleKey(kw.Keyword)}, metrics.ResultMatched
			}
		}
	}

	return Match{}, metrics.ResultUnmatched
}

// matcherSnapshot holds one load of the three rule families
type matcherSnapshot struct {
	rules      *RuleSet
	exclusions *ExclusionSet
	keywords   *KeywordRuleSet
}

func (s *matcherSnapshot) resolve(sender, subject string) (Match, bool) {
	m, result := resolve(s.rules, s.exclusions, s.keywords, sender, subject)
	metrics.Resolutions.WithLabelValues(result).Inc()
	return m, result == metrics.ResultMatched
}
