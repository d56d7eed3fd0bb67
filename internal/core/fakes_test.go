package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-sorter/internal/adapters/kvstore"
)

type fakeMessage struct {
	from    string
	subject string
}

// fakeProvider is an in-memory mailbox
type fakeProvider struct {
	mu         sync.Mutex
	categories []Category
	items      map[string][]MessageRef
	messages   map[string]fakeMessage
	inbound    []MessageRef
	applied    map[string][]string
	archived   []string
	created    []string
	failApply  map[string]bool
	failItems  map[string]bool
	onGetItems func(category string)
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		items:     make(map[string][]MessageRef),
		messages:  make(map[string]fakeMessage),
		applied:   make(map[string][]string),
		failApply: make(map[string]bool),
		failItems: make(map[string]bool),
	}
}

func (p *fakeProvider) addCategory(name string, system bool) {
	p.categories = append(p.categories, Category{Name: name, IsSystem: system})
}

func (p *fakeProvider) addInbound(id, from, subject string) MessageRef {
	ref := MessageRef{ID: id}
	p.messages[id] = fakeMessage{from: from, subject: subject}
	p.inbound = append(p.inbound, ref)
	return ref
}

func (p *fakeProvider) addItem(category, id, from string) {
	p.messages[id] = fakeMessage{from: from}
	p.items[category] = append(p.items[category], MessageRef{ID: id})
}

func (p *fakeProvider) ListCategories(ctx context.Context) ([]Category, error) {
	return append([]Category(nil), p.categories...), nil
}

func (p *fakeProvider) GetItems(ctx context.Context, category string, limit int) ([]MessageRef, error) {
	if p.onGetItems != nil {
		p.onGetItems(category)
	}
	if p.failItems[category] {
		return nil, errors.New("items unavailable")
	}
	items := p.items[category]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (p *fakeProvider) GetInbound(ctx context.Context, limit int) ([]MessageRef, error) {
	items := p.inbound
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return append([]MessageRef(nil), items...), nil
}

func (p *fakeProvider) GetSender(ctx context.Context, ref MessageRef) (string, error) {
	m, ok := p.messages[ref.ID]
	if !ok {
		return "", fmt.Errorf("unknown message %s", ref.ID)
	}
	return m.from, nil
}

func (p *fakeProvider) GetSubject(ctx context.Context, ref MessageRef) (string, error) {
	return p.messages[ref.ID].subject, nil
}

func (p *fakeProvider) ApplyCategory(ctx context.Context, refs []MessageRef, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range refs {
		if p.failApply[r.ID] {
			return errors.New("apply failed")
		}
		p.applied[name] = append(p.applied[name], r.ID)
	}
	return nil
}

func (p *fakeProvider) Archive(ctx context.Context, refs []MessageRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range refs {
		p.archived = append(p.archived, r.ID)
	}
	return nil
}

func (p *fakeProvider) CreateCategory(ctx context.Context, name string) (string, error) {
	p.created = append(p.created, name)
	p.addCategory(name, false)
	return "id-" + name, nil
}

// filed returns message id → label for every applied category
func (p *fakeProvider) filed() map[string]string {
	out := make(map[string]string)
	for label, ids := range p.applied {
		for _, id := range ids {
			out[id] = label
		}
	}
	return out
}

type fakeBlobs struct {
	blobs map[string][]byte
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{blobs: make(map[string][]byte)}
}

func (b *fakeBlobs) ReadByName(ctx context.Context, name string) ([]byte, bool, error) {
	data, ok := b.blobs[name]
	return data, ok, nil
}

func (b *fakeBlobs) WriteNew(ctx context.Context, name string, data []byte) error {
	if _, exists := b.blobs[name]; exists {
		return fmt.Errorf("%s already exists", name)
	}
	b.blobs[name] = data
	return nil
}

func (b *fakeBlobs) names() []string {
	names := make([]string, 0, len(b.blobs))
	for n := range b.blobs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type fakeScheduler struct {
	handlers map[string]time.Duration
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{handlers: make(map[string]time.Duration)}
}

func (s *fakeScheduler) ListScheduled(ctx context.Context) ([]ScheduledHandler, error) {
	var out []ScheduledHandler
	for name, interval := range s.handlers {
		out = append(out, ScheduledHandler{HandlerName: name, Interval: interval})
	}
	return out, nil
}

func (s *fakeScheduler) Schedule(ctx context.Context, name string, interval time.Duration) error {
	s.handlers[name] = interval
	return nil
}

func (s *fakeScheduler) Unschedule(ctx context.Context, name string) error {
	delete(s.handlers, name)
	return nil
}

type fakeSuggester struct {
	picks map[string]*CategorySuggestion
	calls []string
}

func (f *fakeSuggester) SuggestCategory(ctx context.Context, email *Email, categories []string) (*CategorySuggestion, error) {
	f.calls = append(f.calls, email.From)
	pick, ok := f.picks[email.From]
	if !ok {
		return &CategorySuggestion{}, nil
	}
	return pick, nil
}

// failingKV fails every operation
type failingKV struct{}

func (failingKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("store offline")
}

func (failingKV) Put(ctx context.Context, key string, value []byte) error {
	return errors.New("store offline")
}

func newTestStore() (*RuleStore, *kvstore.MemoryStore) {
	kv := kvstore.NewMemoryStore("test", zap.NewNop())
	return NewRuleStore(kv, zap.NewNop()), kv
}

func testConfig() ServiceConfig {
	return ServiceConfig{
		BatchSize:          100,
		PerLabelLimit:      50,
		TimeBudget:         time.Minute,
		ReservedCategories: []string{"trash", "spam"},
		MinConfidence:      0.8,
	}
}
