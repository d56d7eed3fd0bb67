package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestDiscoverMapsSendersToCategories(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	provider := newFakeProvider()
	provider.addCategory("Work", false)
	provider.addCategory("TRASH", false)
	provider.addCategory("INBOX", true)
	provider.addItem("Work", "w1", "Boss <Boss@Co.com>")
	provider.addItem("Work", "w2", "peer@co.com")
	provider.addItem("Work", "w3", "peer@co.com")
	provider.addItem("TRASH", "t1", "junk@spam.org")
	provider.addItem("INBOX", "i1", "someone@x.com")

	engine := NewDiscoveryEngine(store, provider, []string{"trash"}, zap.NewNop())
	result, err := engine.Discover(ctx, 10, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 1, result.CategoriesScanned)
	assert.Equal(t, 2, result.CategoriesSkipped)
	assert.Equal(t, 2, result.RulesAdded)
	assert.False(t, result.TimedOut)

	rules, err := store.LoadRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, []RuleEntry{
		{Pattern: "boss@co.com", Label: "Work"},
		{Pattern: "peer@co.com", Label: "Work"},
	}, rules.Entries())
}

func TestDiscoverRespectsPerLabelLimit(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	provider := newFakeProvider()
	provider.addCategory("News", false)
	provider.addItem("News", "n1", "a@news.com")
	provider.addItem("News", "n2", "b@news.com")
	provider.addItem("News", "n3", "c@news.com")

	result, err := NewDiscoveryEngine(store, provider, nil, zap.NewNop()).Discover(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RulesAdded)
}

func TestDiscoverLastCategoryWins(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	rules := NewRuleSet()
	rules.Set(ExactPattern("shared@x.com"), "Old")
	require.NoError(t, store.SaveRules(ctx, rules))

	provider := newFakeProvider()
	provider.addCategory("First", false)
	provider.addCategory("Second", false)
	provider.addItem("First", "f1", "shared@x.com")
	provider.addItem("Second", "s1", "shared@x.com")

	result, err := NewDiscoveryEngine(store, provider, nil, zap.NewNop()).Discover(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RulesReassigned)

	rules, err = store.LoadRules(ctx)
	require.NoError(t, err)
	label, _ := rules.Get(ExactPattern("shared@x.com"))
	assert.Equal(t, "Second", label)
}

func TestDiscoverStopsAtBudgetAndKeepsProgress(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	provider := newFakeProvider()
	for _, name := range []string{"A", "B", "C"} {
		provider.addCategory(name, false)
	}
	provider.addItem("A", "a1", "a@a.com")
	provider.addItem("B", "b1", "b@b.com")
	provider.addItem("C", "c1", "c@c.com")

	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	provider.onGetItems = func(string) { clock.advance(40 * time.Second) }

	engine := NewDiscoveryEngine(store, provider, nil, zap.NewNop())
	engine.now = clock.Now

	result, err := engine.Discover(ctx, 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.TimedOut)
	assert.Equal(t, 2, result.CategoriesScanned)

	rules, err := store.LoadRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rules.Len())
	_, ok := rules.Get(ExactPattern("c@c.com"))
	assert.False(t, ok)
}

func TestDiscoverSkipsUnreadableCategory(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	provider := newFakeProvider()
	provider.addCategory("Broken", false)
	provider.addCategory("Fine", false)
	provider.failItems["Broken"] = true
	provider.addItem("Fine", "f1", "ok@fine.com")

	result, err := NewDiscoveryEngine(store, provider, nil, zap.NewNop()).Discover(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RulesAdded)
}
