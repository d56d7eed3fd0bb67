package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClassify(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore()
	suggester := &fakeSuggester{picks: map[string]*CategorySuggestion{
		"new@shop.com": {Category: "shopping", Confidence: 0.9},
	}}
	svc := NewRuleService(store, nil, nil, nil, suggester, testConfig(), zap.NewNop())

	_, err := svc.AddOrUpdate(ctx, "@news.com", "News", AddOptions{})
	require.NoError(t, err)
	_, err = svc.AddOrUpdate(ctx, "old@shop.com", "Shopping", AddOptions{})
	require.NoError(t, err)
	_, err = svc.AddExclusion(ctx, "@blocked.org")
	require.NoError(t, err)
	before, _, _ := kv.Get(ctx, RulesKey)

	c, err := svc.Classify(ctx, &Email{From: "Daily <daily@news.com>", Subject: "Today"})
	require.NoError(t, err)
	assert.True(t, c.Matched)
	assert.Equal(t, "News", c.Label)
	assert.Equal(t, RuleKey("@news.com"), c.RuleKey)
	assert.Nil(t, c.Suggested)

	c, err = svc.Classify(ctx, &Email{From: "new@shop.com", Subject: "Deal"})
	require.NoError(t, err)
	assert.False(t, c.Matched)
	require.NotNil(t, c.Suggested)
	assert.Equal(t, "Shopping", c.Suggested.Category)

	c, err = svc.Classify(ctx, &Email{From: "x@blocked.org"})
	require.NoError(t, err)
	assert.True(t, c.Excluded)
	assert.Nil(t, c.Suggested)

	after, _, _ := kv.Get(ctx, RulesKey)
	assert.Equal(t, before, after)
	stats, err := svc.GetFilingStats(ctx)
	require.NoError(t, err)
	assert.Empty(t, stats)
}
