package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePattern(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Pattern
		wantErr bool
	}{
		{name: "exact", raw: "Alice@Example.com", want: ExactPattern("alice@example.com")},
		{name: "domain", raw: " @Example.COM ", want: DomainPattern("example.com")},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "bare sigil", raw: "@", wantErr: true},
		{name: "no at", raw: "alice", wantErr: true},
		{name: "trailing at", raw: "alice@", wantErr: true},
		{name: "domain with at", raw: "@a@b.com", wantErr: true},
		{name: "whitespace", raw: "a b@c.com", wantErr: true},
		{name: "brackets", raw: "<a@b.com>", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePattern(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPattern)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPatternKeys(t *testing.T) {
	d := DomainPattern("@co.com")
	assert.Equal(t, "@co.com", d.Key())
	assert.True(t, d.IsDomain())
	assert.Equal(t, "co.com", d.Domain())

	e := ExactPattern("bob@Co.com")
	assert.Equal(t, "bob@Co.com", e.Key())
	assert.False(t, e.IsDomain())
	assert.Equal(t, "co.com", e.Domain())

	assert.Equal(t, RuleKey("keyword:invoice"), KeywordRuleKey("invoice"))
}

func TestRuleSetLastWriteWins(t *testing.T) {
	rs := NewRuleSet()
	rs.Set(ExactPattern("a@x.com"), "A")
	rs.Set(ExactPattern("a@x.com"), "B")

	label, ok := rs.Get(ExactPattern("a@x.com"))
	require.True(t, ok)
	assert.Equal(t, "B", label)
	assert.Equal(t, 1, rs.Len())

	assert.True(t, rs.Delete(ExactPattern("a@x.com")))
	assert.False(t, rs.Delete(ExactPattern("a@x.com")))
}

func TestRuleSetEntriesSorted(t *testing.T) {
	rs := NewRuleSet()
	rs.Set(ExactPattern("z@x.com"), "Z")
	rs.Set(DomainPattern("x.com"), "X")
	rs.Set(ExactPattern("a@x.com"), "A")

	assert.Equal(t, []RuleEntry{
		{Pattern: "@x.com", Label: "X"},
		{Pattern: "a@x.com", Label: "A"},
		{Pattern: "z@x.com", Label: "Z"},
	}, rs.Entries())
}

func TestNilSetsAreEmpty(t *testing.T) {
	var rs *RuleSet
	var es *ExclusionSet
	var ks *KeywordRuleSet

	assert.Equal(t, 0, rs.Len())
	assert.Equal(t, 0, es.Len())
	assert.Equal(t, 0, ks.Len())
	assert.False(t, es.Excludes("a@b.com"))
	_, ok := rs.Get(ExactPattern("a@b.com"))
	assert.False(t, ok)
}

func TestExclusionSetIgnoresCase(t *testing.T) {
	es := NewExclusionSet()
	assert.True(t, es.Add(ExactPattern("Boss@Co.com")))
	assert.False(t, es.Add(ExactPattern("boss@co.com")))

	assert.True(t, es.Contains(ExactPattern("BOSS@CO.COM")))
	assert.True(t, es.Excludes("boss@co.com"))
	assert.False(t, es.Excludes("other@co.com"))

	es.Add(DomainPattern("Spam.org"))
	assert.True(t, es.Excludes("anyone@SPAM.org"))

	assert.True(t, es.Remove(ExactPattern("boss@co.com")))
	assert.False(t, es.Excludes("boss@co.com"))
	assert.Equal(t, []Pattern{DomainPattern("Spam.org")}, es.Patterns())
}

func TestExclusionSetJSONKeepsOrderAndCase(t *testing.T) {
	doc := `["Zed@x.com","@a.com","b@c.com"]`
	es := NewExclusionSet()
	require.NoError(t, json.Unmarshal([]byte(doc), es))

	out, err := json.Marshal(es)
	require.NoError(t, err)
	assert.Equal(t, doc, string(out))
}

func TestKeywordRuleSetOrder(t *testing.T) {
	ks := NewKeywordRuleSet()
	ks.Set("receipt", "Finance")
	ks.Set("invoice", "Finance")
	ks.Set("receipt", "Shopping")

	assert.Equal(t, []KeywordRule{
		{Keyword: "receipt", Label: "Shopping"},
		{Keyword: "invoice", Label: "Finance"},
	}, ks.Rules())

	out, err := json.Marshal(ks)
	require.NoError(t, err)
	assert.Equal(t, `{"receipt":"Shopping","invoice":"Finance"}`, string(out))

	decoded := NewKeywordRuleSet()
	require.NoError(t, json.Unmarshal([]byte(`{"zeta":"Z","alpha":"A"}`), decoded))
	assert.Equal(t, "zeta", decoded.Rules()[0].Keyword)

	assert.True(t, ks.Delete("receipt"))
	assert.False(t, ks.Delete("receipt"))
	assert.Equal(t, 1, ks.Len())
}

func TestKeywordRuleSetRejectsNonObject(t *testing.T) {
	ks := NewKeywordRuleSet()
	assert.Error(t, json.Unmarshal([]byte(`["a"]`), ks))
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), ks))
}

func TestFilingStats(t *testing.T) {
	fs := NewFilingStats()
	fs.Add("a@x.com", 2)
	fs.Add("a@x.com", 0)
	fs.Add("a@x.com", -5)
	fs.Merge(map[RuleKey]int64{"a@x.com": 1, "keyword:sale": 4})

	assert.Equal(t, int64(3), fs["a@x.com"])
	assert.Equal(t, int64(7), fs.Total())

	fs.Reset()
	assert.Equal(t, int64(0), fs["a@x.com"])
	assert.Len(t, fs, 2)

	var decoded FilingStats
	assert.Error(t, json.Unmarshal([]byte(`{"a@x.com":-1}`), &decoded))
}

func TestExtractAddress(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "Alice Smith <alice@example.com>", want: "alice@example.com"},
		{raw: "<Bob@Example.com>", want: "Bob@Example.com"},
		{raw: "  carol@example.com ", want: "carol@example.com"},
		{raw: "\"A <b>\" <real@x.com>", want: "b"},
		{raw: "Broken <open@x.com", want: "Broken <open@x.com"},
		{raw: "", want: ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractAddress(tt.raw), tt.raw)
	}
}

func TestParentDomain(t *testing.T) {
	assert.Equal(t, "example.com", parentDomain("a.example.com"))
	assert.Equal(t, "example.com", parentDomain("x.y.example.com"))
	assert.Equal(t, "", parentDomain("example.com"))
	assert.Equal(t, "", parentDomain("a..com"))
}
