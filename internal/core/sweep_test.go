package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedSweepRules(t *testing.T, store *RuleStore) {
	t.Helper()
	ctx := context.Background()

	rules := NewRuleSet()
	rules.Set(ExactPattern("alice@x.com"), "Friends")
	rules.Set(DomainPattern("shop.com"), "Shopping")
	rules.Set(ExactPattern("boss@co.com"), "VIP")
	require.NoError(t, store.SaveRules(ctx, rules))

	exclusions := NewExclusionSet()
	exclusions.Add(ExactPattern("boss@co.com"))
	require.NoError(t, store.SaveExclusions(ctx, exclusions))

	keywords := NewKeywordRuleSet()
	keywords.Set("invoice", "Finance")
	require.NoError(t, store.SaveKeywords(ctx, keywords))
}

func seedInbound(p *fakeProvider) []MessageRef {
	p.addCategory("Friends", false)
	p.addInbound("m1", "Alice <alice@x.com>", "hi")
	p.addInbound("m2", "deals@shop.com", "50% off")
	p.addInbound("m3", "Boss <boss@co.com>", "invoice")
	p.addInbound("m4", "billing@utility.com", "Your invoice")
	p.addInbound("m5", "nobody@nowhere.com", "hello")
	return p.inbound
}

func TestSweepDryRunHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore()
	seedSweepRules(t, store)
	provider := newFakeProvider()
	messages := seedInbound(provider)

	engine := NewSweepEngine(store, provider, zap.NewNop())
	result, err := engine.Sweep(ctx, messages, true)
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 5, result.Scanned)
	assert.Equal(t, 3, result.Matched)
	assert.Equal(t, 0, result.Filed)
	assert.Equal(t, []MatchRecord{
		{Sender: "alice@x.com", Subject: "hi", Label: "Friends", RuleKey: "alice@x.com"},
		{Sender: "deals@shop.com", Subject: "50% off", Label: "Shopping", RuleKey: "@shop.com"},
		{Sender: "billing@utility.com", Subject: "Your invoice", Label: "Finance", RuleKey: "keyword:invoice"},
	}, result.Matches)

	assert.Empty(t, provider.applied)
	assert.Empty(t, provider.archived)
	assert.Empty(t, provider.created)
	_, ok, err := kv.Get(ctx, FilingStatsKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSweepDryRunMatchesLiveRun(t *testing.T) {
	ctx := context.Background()

	dryStore, _ := newTestStore()
	seedSweepRules(t, dryStore)
	dryProvider := newFakeProvider()
	dryResult, err := NewSweepEngine(dryStore, dryProvider, zap.NewNop()).Sweep(ctx, seedInbound(dryProvider), true)
	require.NoError(t, err)

	liveStore, _ := newTestStore()
	seedSweepRules(t, liveStore)
	liveProvider := newFakeProvider()
	liveResult, err := NewSweepEngine(liveStore, liveProvider, zap.NewNop()).Sweep(ctx, seedInbound(liveProvider), false)
	require.NoError(t, err)

	expected := make(map[string]string)
	for _, m := range dryResult.Matches {
		expected[m.Sender] = m.Label
	}

	actual := make(map[string]string)
	for id, label := range liveProvider.filed() {
		actual[ExtractAddress(liveProvider.messages[id].from)] = label
	}
	assert.Equal(t, expected, actual)
	assert.Equal(t, dryResult.Matched, liveResult.Filed)
	assert.Nil(t, liveResult.Matches)
}

func TestSweepLiveFilesArchivesAndCounts(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	seedSweepRules(t, store)
	provider := newFakeProvider()
	messages := seedInbound(provider)

	result, err := NewSweepEngine(store, provider, zap.NewNop()).Sweep(ctx, messages, false)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Filed)
	assert.ElementsMatch(t, []string{"m1", "m2", "m4"}, provider.archived)
	assert.ElementsMatch(t, []string{"Shopping", "Finance"}, provider.created)

	stats, err := store.LoadFilingStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, FilingStats{"alice@x.com": 1, "@shop.com": 1, "keyword:invoice": 1}, stats)
}

func TestSweepContinuesAfterFilingFailure(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	seedSweepRules(t, store)
	provider := newFakeProvider()
	messages := seedInbound(provider)
	provider.failApply["m1"] = true

	result, err := NewSweepEngine(store, provider, zap.NewNop()).Sweep(ctx, messages, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Filed)

	stats, err := store.LoadFilingStats(ctx)
	require.NoError(t, err)
	assert.NotContains(t, stats, RuleKey("alice@x.com"))
}

func TestSweepWithCorruptRulesFilesNothing(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore()
	require.NoError(t, kv.Put(ctx, RulesKey, []byte("garbage")))
	provider := newFakeProvider()
	messages := seedInbound(provider)

	result, err := NewSweepEngine(store, provider, zap.NewNop()).Sweep(ctx, messages, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Matched)
}
