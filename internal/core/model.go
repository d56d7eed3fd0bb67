package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrInvalidPattern is returned when a sender pattern cannot be parsed
	ErrInvalidPattern = errors.New("invalid sender pattern")
	// ErrEmptyLabel is returned when a rule is written without a category label
	ErrEmptyLabel = errors.New("category label must not be empty")
	// ErrInvalidKeyword is returned when a keyword rule has an empty keyword
	ErrInvalidKeyword = errors.New("keyword must not be empty")
)

const (
	domainSigil      = "@"
	keywordKeyPrefix = "keyword:"
)

// PatternKind distinguishes the two sender pattern shapes
type PatternKind int

const (
	// ExactSender matches one address
	ExactSender PatternKind = iota
	// DomainWildcard matches any sender at a domain
	DomainWildcard
)

func (k PatternKind) String() string {
	switch k {
	case ExactSender:
		return "exact"
	case DomainWildcard:
		return "domain"
	default:
		return fmt.Sprintf("PatternKind(%d)", int(k))
	}
}

// Pattern is a key in the rule set. Value holds the address for exact
// patterns and the bare domain (without sigil) for domain wildcards.
type Pattern struct {
	Kind  PatternKind
	Value string
}

// ExactPattern builds an exact-sender pattern without normalising it
func ExactPattern(address string) Pattern {
	return Pattern{Kind: ExactSender, Value: address}
}

// DomainPattern builds a domain-wildcard pattern; a leading sigil is tolerated
func DomainPattern(domain string) Pattern {
	return Pattern{Kind: DomainWildcard, Value: strings.TrimPrefix(domain, domainSigil)}
}

// ParsePattern parses user input into a normalised (lowercase) pattern.
// Input starting with "@" is a domain wildcard, anything else an address.
func ParsePattern(raw string) (Pattern, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" || strings.ContainsAny(s, " \t\r\n<>") {
		return Pattern{}, fmt.Errorf("%w: %q", ErrInvalidPattern, raw)
	}

	if strings.HasPrefix(s, domainSigil) {
		domain := s[len(domainSigil):]
		if domain == "" || strings.Contains(domain, domainSigil) {
			return Pattern{}, fmt.Errorf("%w: %q", ErrInvalidPattern, raw)
		}
		return DomainPattern(domain), nil
	}

	at := strings.LastIndex(s, domainSigil)
	if at <= 0 || at == len(s)-1 {
		return Pattern{}, fmt.Errorf("%w: %q", ErrInvalidPattern, raw)
	}
	return ExactPattern(s), nil
}

// patternFromKey interprets a stored key as-is, without normalisation
func patternFromKey(key string) Pattern {
	if strings.HasPrefix(key, domainSigil) {
		return DomainPattern(key)
	}
	return ExactPattern(key)
}

// normalisedKey parses a key written elsewhere into its normalised form,
// keeping keys that do not parse as they are
func normalisedKey(key string) Pattern {
	if p, err := ParsePattern(key); err == nil {
		return p
	}
	return patternFromKey(strings.TrimSpace(key))
}

// Key returns the persisted form of the pattern
func (p Pattern) Key() string {
	if p.Kind == DomainWildcard {
		return domainSigil + p.Value
	}
	return p.Value
}

func (p Pattern) String() string {
	return p.Key()
}

// MarshalText encodes the pattern as its key
func (p Pattern) MarshalText() ([]byte, error) {
	return []byte(p.Key()), nil
}

// IsDomain reports whether the pattern is a domain wildcard
func (p Pattern) IsDomain() bool {
	return p.Kind == DomainWildcard
}

// Domain returns the lowercase domain the pattern refers to
func (p Pattern) Domain() string {
	if p.Kind == DomainWildcard {
		return strings.ToLower(p.Value)
	}
	return domainOf(p.Value)
}

// RuleKey identifies the rule a message was filed under, for stats attribution
type RuleKey string

// PatternRuleKey returns the stats key of a sender pattern
func PatternRuleKey(p Pattern) RuleKey {
	return RuleKey(p.Key())
}

// KeywordRuleKey returns the stats key of a keyword rule
func KeywordRuleKey(keyword string) RuleKey {
	return RuleKey(keywordKeyPrefix + keyword)
}

// RuleEntry is one pattern→label pair
type RuleEntry struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Label   string `json:"label" yaml:"label"`
}

// RuleSet maps sender patterns to category labels. Last write wins.
type RuleSet struct {
	rules map[string]string
}

// NewRuleSet returns an empty rule set
func NewRuleSet() *RuleSet {
	return &RuleSet{rules: make(map[string]string)}
}

// Len returns the number of rules
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Get returns the label stored for a pattern
func (rs *RuleSet) Get(p Pattern) (string, bool) {
	return rs.lookup(p.Key())
}

func (rs *RuleSet) lookup(key string) (string, bool) {
	if rs == nil {
		return "", false
	}
	label, ok := rs.rules[key]
	return label, ok
}

// Has reports whether a pattern is stored
func (rs *RuleSet) Has(p Pattern) bool {
	_, ok := rs.Get(p)
	return ok
}

// Set writes a pattern→label mapping, replacing any previous label
func (rs *RuleSet) Set(p Pattern, label string) {
	if rs.rules == nil {
		rs.rules = make(map[string]string)
	}
	rs.rules[p.Key()] = label
}

// Delete removes a pattern and reports whether it was present
func (rs *RuleSet) Delete(p Pattern) bool {
	if rs == nil {
		return false
	}
	if _, ok := rs.rules[p.Key()]; !ok {
		return false
	}
	delete(rs.rules, p.Key())
	return true
}

// Patterns returns every pattern sorted by key
func (rs *RuleSet) Patterns() []Pattern {
	keys := rs.sortedKeys()
	patterns := make([]Pattern, len(keys))
	for i, k := range keys {
		patterns[i] = patternFromKey(k)
	}
	return patterns
}

// Entries returns every rule sorted by pattern
func (rs *RuleSet) Entries() []RuleEntry {
	keys := rs.sortedKeys()
	entries := make([]RuleEntry, len(keys))
	for i, k := range keys {
		entries[i] = RuleEntry{Pattern: k, Label: rs.rules[k]}
	}
	return entries
}

func (rs *RuleSet) sortedKeys() []string {
	if rs == nil {
		return nil
	}
	keys := make([]string, 0, len(rs.rules))
	for k := range rs.rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy
func (rs *RuleSet) Clone() *RuleSet {
	c := NewRuleSet()
	if rs == nil {
		return c
	}
	for k, v := range rs.rules {
		c.rules[k] = v
	}
	return c
}

// MarshalJSON encodes the rule set as a pattern→label object
func (rs *RuleSet) MarshalJSON() ([]byte, error) {
	if rs == nil || rs.rules == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(rs.rules)
}

// UnmarshalJSON decodes a pattern→label object
func (rs *RuleSet) UnmarshalJSON(data []byte) error {
	rules := make(map[string]string)
	if err := json.Unmarshal(data, &rules); err != nil {
		return err
	}
	rs.rules = rules
	return nil
}

// ExclusionSet holds patterns that are never matched. Document order and
// stored casing are kept; lookups ignore case.
type ExclusionSet struct {
	order []string
	index map[string]string
}

// NewExclusionSet returns an empty exclusion set
func NewExclusionSet() *ExclusionSet {
	return &ExclusionSet{index: make(map[string]string)}
}

// Len returns the number of exclusions
func (es *ExclusionSet) Len() int {
	if es == nil {
		return 0
	}
	return len(es.order)
}

// Add excludes a pattern and reports whether it was newly added
func (es *ExclusionSet) Add(p Pattern) bool {
	return es.add(p.Key())
}

func (es *ExclusionSet) add(key string) bool {
	if es.index == nil {
		es.index = make(map[string]string)
	}
	folded := strings.ToLower(key)
	if _, ok := es.index[folded]; ok {
		return false
	}
	es.index[folded] = key
	es.order = append(es.order, key)
	return true
}

// Remove lifts an exclusion and reports whether it was present
func (es *ExclusionSet) Remove(p Pattern) bool {
	if es == nil {
		return false
	}
	folded := strings.ToLower(p.Key())
	stored, ok := es.index[folded]
	if !ok {
		return false
	}
	delete(es.index, folded)
	for i, k := range es.order {
		if k == stored {
			es.order = append(es.order[:i], es.order[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether the pattern is excluded, ignoring case
func (es *ExclusionSet) Contains(p Pattern) bool {
	return es.containsKey(p.Key())
}

func (es *ExclusionSet) containsKey(key string) bool {
	if es == nil {
		return false
	}
	_, ok := es.index[strings.ToLower(key)]
	return ok
}

// Excludes reports whether a sender address is excluded either directly
// or through its domain.
func (es *ExclusionSet) Excludes(address string) bool {
	lower := strings.ToLower(address)
	if es.containsKey(lower) {
		return true
	}
	if domain := domainOf(lower); domain != "" {
		return es.containsKey(domainSigil + domain)
	}
	return false
}

// Patterns returns the exclusions in document order
func (es *ExclusionSet) Patterns() []Pattern {
	if es == nil {
		return nil
	}
	patterns := make([]Pattern, len(es.order))
	for i, k := range es.order {
		patterns[i] = patternFromKey(k)
	}
	return patterns
}

// MarshalJSON encodes the set as an array of pattern strings
func (es *ExclusionSet) MarshalJSON() ([]byte, error) {
	if es == nil || es.order == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(es.order)
}

// UnmarshalJSON decodes an array of pattern strings
func (es *ExclusionSet) UnmarshalJSON(data []byte) error {
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	es.order = nil
	es.index = make(map[string]string, len(keys))
	for _, k := range keys {
		es.add(k)
	}
	return nil
}

// KeywordRule maps a lowercase subject substring to a label
type KeywordRule struct {
	Keyword string `json:"keyword" yaml:"keyword"`
	Label   string `json:"label" yaml:"label"`
}

// KeywordRuleSet is an insertion-ordered keyword→label mapping.
// Matching walks it in order so results are stable for a fixed set.
type KeywordRuleSet struct {
	order  []string
	labels map[string]string
}

// NewKeywordRuleSet returns an empty keyword rule set
func NewKeywordRuleSet() *KeywordRuleSet {
	return &KeywordRuleSet{labels: make(map[string]string)}
}

// Len returns the number of keyword rules
func (ks *KeywordRuleSet) Len() int {
	if ks == nil {
		return 0
	}
	return len(ks.order)
}

// Set writes a keyword rule. Updating an existing keyword keeps its position.
func (ks *KeywordRuleSet) Set(keyword, label string) {
	if ks.labels == nil {
		ks.labels = make(map[string]string)
	}
	if _, ok := ks.labels[keyword]; !ok {
		ks.order = append(ks.order, keyword)
	}
	ks.labels[keyword] = label
}

// Get returns the label of a keyword
func (ks *KeywordRuleSet) Get(keyword string) (string, bool) {
	if ks == nil {
		return "", false
	}
	label, ok := ks.labels[keyword]
	return label, ok
}

// Delete removes a keyword and reports whether it was present
func (ks *KeywordRuleSet) Delete(keyword string) bool {
	if ks == nil {
		return false
	}
	if _, ok := ks.labels[keyword]; !ok {
		return false
	}
	delete(ks.labels, keyword)
	for i, k := range ks.order {
		if k == keyword {
			ks.order = append(ks.order[:i], ks.order[i+1:]...)
			break
		}
	}
	return true
}

// Rules returns the keyword rules in insertion order
func (ks *KeywordRuleSet) Rules() []KeywordRule {
	if ks == nil {
		return nil
	}
	rules := make([]KeywordRule, len(ks.order))
	for i, k := range ks.order {
		rules[i] = KeywordRule{Keyword: k, Label: ks.labels[k]}
	}
	return rules
}

// MarshalJSON encodes the rules as an object, keeping insertion order
func (ks *KeywordRuleSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if ks != nil {
		for i, k := range ks.order {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			value, err := json.Marshal(ks.labels[k])
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a keyword→label object in document order
func (ks *KeywordRuleSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("keyword rules: expected object, got %v", tok)
	}

	ks.order = nil
	ks.labels = make(map[string]string)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("keyword rules: unexpected key %v", keyTok)
		}
		valueTok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := valueTok.(string)
		if !ok {
			return fmt.Errorf("keyword rules: label for %q is not a string", key)
		}
		ks.Set(key, label)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// FilingStats counts messages filed per rule key
type FilingStats map[RuleKey]int64

// NewFilingStats returns empty filing stats
func NewFilingStats() FilingStats {
	return make(FilingStats)
}

// Add increments a counter; non-positive increments are ignored
func (fs FilingStats) Add(key RuleKey, n int64) {
	if n <= 0 {
		return
	}
	fs[key] += n
}

// Merge adds a batch of counts
func (fs FilingStats) Merge(batch map[RuleKey]int64) {
	for k, n := range batch {
		fs.Add(k, n)
	}
}

// Reset zeroes every counter
func (fs FilingStats) Reset() {
	for k := range fs {
		fs[k] = 0
	}
}

// Total returns the sum of all counters
func (fs FilingStats) Total() int64 {
	var total int64
	for _, n := range fs {
		total += n
	}
	return total
}

// UnmarshalJSON rejects negative counters
func (fs *FilingStats) UnmarshalJSON(data []byte) error {
	raw := make(map[RuleKey]int64)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, n := range raw {
		if n < 0 {
			return fmt.Errorf("filing stats: negative count for %q", k)
		}
	}
	*fs = raw
	return nil
}

// Match is the outcome of resolving a message against the rules
type Match struct {
	Label   string
	RuleKey RuleKey
}

// MatchRecord describes one message a sweep would file
type MatchRecord struct {
	Sender  string  `json:"sender" yaml:"sender"`
	Subject string  `json:"subject" yaml:"subject"`
	Label   string  `json:"label" yaml:"label"`
	RuleKey RuleKey `json:"ruleKey" yaml:"ruleKey"`
}

// OpportunityKind classifies a consolidation proposal
type OpportunityKind int

const (
	// Redundant marks an exact rule already covered by a domain rule
	Redundant OpportunityKind = iota
	// DomainMerge replaces several rules with one broader domain rule
	DomainMerge
)

func (k OpportunityKind) String() string {
	switch k {
	case Redundant:
		return "redundant"
	case DomainMerge:
		return "domain_merge"
	default:
		return fmt.Sprintf("OpportunityKind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name
func (k OpportunityKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Opportunity is a proposed rule set mutation
type Opportunity struct {
	Kind          OpportunityKind `json:"kind" yaml:"kind"`
	RulesToRemove []Pattern       `json:"rulesToRemove" yaml:"rulesToRemove"`
	RuleToAdd     *Pattern        `json:"ruleToAdd,omitempty" yaml:"ruleToAdd,omitempty"`
	Label         string          `json:"label" yaml:"label"`
}

// Category is a named message collection exposed by the provider
type Category struct {
	Name     string
	IsSystem bool
}

// MessageRef is an opaque handle to a provider message or thread
type MessageRef struct {
	ID string
}

// Email represents an email message
type Email struct {
	From    string
	To      []string
	Subject string
	Body    string
	Headers map[string][]string
}

// CategorySuggestion is a suggester's pick for an unmatched message
type CategorySuggestion struct {
	Category    string    `json:"category" yaml:"category"`
	Confidence  float64   `json:"confidence" yaml:"confidence"`
	Explanation string    `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	SuggestedAt time.Time `json:"suggestedAt" yaml:"suggestedAt"`
	ModelUsed   string    `json:"model,omitempty" yaml:"model,omitempty"`
}
