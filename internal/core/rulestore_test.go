package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRuleStoreEmptyWhenAbsent(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	rules, err := store.LoadRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, rules.Len())

	stats, err := store.LoadFilingStats(ctx)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestRuleStoreMalformedDocumentsAreEmpty(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore()

	require.NoError(t, kv.Put(ctx, RulesKey, []byte(`{not json`)))
	require.NoError(t, kv.Put(ctx, ExclusionsKey, []byte(`{"a":"b"}`)))
	require.NoError(t, kv.Put(ctx, KeywordsKey, []byte(`[1,2]`)))
	require.NoError(t, kv.Put(ctx, FilingStatsKey, []byte(`{"a@x.com":-3}`)))

	rules, err := store.LoadRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, rules.Len())

	exclusions, err := store.LoadExclusions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, exclusions.Len())

	keywords, err := store.LoadKeywords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, keywords.Len())

	stats, err := store.LoadFilingStats(ctx)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestRuleStoreSurfacesBackendErrors(t *testing.T) {
	store := NewRuleStore(failingKV{}, zap.NewNop())
	_, err := store.LoadRules(context.Background())
	assert.Error(t, err)
	assert.Error(t, store.SaveRules(context.Background(), NewRuleSet()))
}

func TestRuleStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore()

	docs := map[string]string{
		RulesKey:       `{"@co.com":"Work","alice@x.com":"Friends/Close"}`,
		ExclusionsKey:  `["Boss@co.com","@spam.org"]`,
		KeywordsKey:    `{"sale":"Deals","invoice":"Finance"}`,
		FilingStatsKey: `{"@co.com":4,"keyword:sale":0}`,
	}
	for key, doc := range docs {
		require.NoError(t, kv.Put(ctx, key, []byte(doc)))
	}

	rules, err := store.LoadRules(ctx)
	require.NoError(t, err)
	require.NoError(t, store.SaveRules(ctx, rules))

	exclusions, err := store.LoadExclusions(ctx)
	require.NoError(t, err)
	require.NoError(t, store.SaveExclusions(ctx, exclusions))

	keywords, err := store.LoadKeywords(ctx)
	require.NoError(t, err)
	require.NoError(t, store.SaveKeywords(ctx, keywords))

	stats, err := store.LoadFilingStats(ctx)
	require.NoError(t, err)
	require.NoError(t, store.SaveFilingStats(ctx, stats))

	for key, doc := range docs {
		got, ok, err := kv.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, doc, string(got), key)
	}

	raw, _, _ := kv.Get(ctx, ExclusionsKey)
	assert.Equal(t, docs[ExclusionsKey], string(raw))
	raw, _, _ = kv.Get(ctx, KeywordsKey)
	assert.Equal(t, docs[KeywordsKey], string(raw))
}

func TestFilingStatsMonotonicUntilReset(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	require.NoError(t, store.AddFilingCounts(ctx, map[RuleKey]int64{"a@x.com": 2}))
	require.NoError(t, store.AddFilingCounts(ctx, map[RuleKey]int64{"a@x.com": 3, "@y.com": 1}))

	stats, err := store.LoadFilingStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats["a@x.com"])
	assert.Equal(t, int64(1), stats["@y.com"])

	require.NoError(t, store.ResetFilingStats(ctx))
	stats, err = store.LoadFilingStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, FilingStats{"a@x.com": 0, "@y.com": 0}, stats)
}
