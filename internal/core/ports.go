package core

import (
	"context"
	"time"
)

// KVStore is the durable key-value store rule documents live in.
// Implementations scope keys per installation.
type KVStore interface {
	// Get returns the blob stored under key; ok is false when absent
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Put replaces the blob stored under key
	Put(ctx context.Context, key string, value []byte) error
}

// MessageProvider exposes the mailbox's categories and messages
type MessageProvider interface {
	// ListCategories returns every category, flagging provider-reserved ones
	ListCategories(ctx context.Context) ([]Category, error)

	// GetItems returns up to limit of the most recent items in a category
	GetItems(ctx context.Context, category string, limit int) ([]MessageRef, error)

	// GetInbound returns up to limit items from the inbound queue
	GetInbound(ctx context.Context, limit int) ([]MessageRef, error)

	// GetSender returns the raw From header of an item's first message
	GetSender(ctx context.Context, ref MessageRef) (string, error)

	// GetSubject returns the subject of an item
	GetSubject(ctx context.Context, ref MessageRef) (string, error)

	// ApplyCategory files items under a category
	ApplyCategory(ctx context.Context, refs []MessageRef, name string) error

	// Archive removes items from the inbound queue
	Archive(ctx context.Context, refs []MessageRef) error

	// CreateCategory creates a category and returns its provider handle
	CreateCategory(ctx context.Context, name string) (string, error)
}

// BlobStore keeps export/import backups
type BlobStore interface {
	// ReadByName returns the named blob; ok is false when absent
	ReadByName(ctx context.Context, name string) (data []byte, ok bool, err error)

	// WriteNew stores a new blob under name
	WriteNew(ctx context.Context, name string, data []byte) error
}

// ScheduledHandler describes one registered trigger
type ScheduledHandler struct {
	HandlerName string
	Interval    time.Duration
}

// Scheduler runs named handlers periodically
type Scheduler interface {
	ListScheduled(ctx context.Context) ([]ScheduledHandler, error)
	Schedule(ctx context.Context, handlerName string, interval time.Duration) error
	Unschedule(ctx context.Context, handlerName string) error
}

// CategorySuggester picks a category for a message no rule matched
type CategorySuggester interface {
	// SuggestCategory chooses one of categories, or returns an empty Category
	SuggestCategory(ctx context.Context, email *Email, categories []string) (*CategorySuggestion, error)
}
