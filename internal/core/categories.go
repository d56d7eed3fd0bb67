package core

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// categoryIndex remembers which categories exist during one operation so
// that missing ones are created once before the first filing.
type categoryIndex struct {
	provider MessageProvider
	logger   *zap.Logger
	known    map[string]struct{}
}

func newCategoryIndex(provider MessageProvider, logger *zap.Logger) *categoryIndex {
	return &categoryIndex{provider: provider, logger: logger}
}

func (c *categoryIndex) load(ctx context.Context) {
	c.known = make(map[string]struct{})
	categories, err := c.provider.ListCategories(ctx)
	if err != nil {
		c.logger.Warn("Failed to list categories", zap.Error(err))
		return
	}
	for _, cat := range categories {
		c.known[cat.Name] = struct{}{}
	}
}

// ensure creates the category when the provider does not list it yet
func (c *categoryIndex) ensure(ctx context.Context, name string) error {
	if c.known == nil {
		c.load(ctx)
	}
	if _, ok := c.known[name]; ok {
		return nil
	}
	if _, err := c.provider.CreateCategory(ctx, name); err != nil {
		return err
	}
	c.logger.Info("Created category", zap.String("category", name))
	c.known[name] = struct{}{}
	return nil
}

// isReserved reports whether a category must never be scanned or suggested
func isReserved(cat Category, reserved map[string]struct{}) bool {
	if cat.IsSystem {
		return true
	}
	_, ok := reserved[strings.ToLower(cat.Name)]
	return ok
}

func reservedSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}
	return set
}

// fileMessage applies a category to one message and archives it
func fileMessage(ctx context.Context, provider MessageProvider, categories *categoryIndex, ref MessageRef, label string) error {
	if err := categories.ensure(ctx, label); err != nil {
		return err
	}
	refs := []MessageRef{ref}
	if err := provider.ApplyCategory(ctx, refs, label); err != nil {
		return err
	}
	return provider.Archive(ctx, refs)
}
