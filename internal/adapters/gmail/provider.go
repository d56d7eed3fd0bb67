package gmail

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	gmailv1 "google.golang.org/api/gmail/v1"

	"github.com/mikey/mail-sorter/internal/core"
)

const (
	user         = "me"
	inboxLabel   = "INBOX"
	systemType   = "system"
	fetchWorkers = 8
)

type threadMeta struct {
	from    string
	subject string
}

// Provider files Gmail threads using labels. A MessageRef is a thread id.
type Provider struct {
	svc    *gmailv1.Service
	logger *zap.Logger

	mu     sync.Mutex
	labels map[string]string
	meta   map[string]threadMeta
}

// NewProvider wraps an authenticated Gmail service
func NewProvider(svc *gmailv1.Service, logger *zap.Logger) *Provider {
	return &Provider{
		svc:    svc,
		logger: logger,
		meta:   make(map[string]threadMeta),
	}
}

// ListCategories lists user and system labels
func (p *Provider) ListCategories(ctx context.Context) ([]core.Category, error) {
	resp, err := p.svc.Users.Labels.List(user).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}

	labels := make(map[string]string, len(resp.Labels))
	categories := make([]core.Category, 0, len(resp.Labels))
	for _, l := range resp.Labels {
		labels[l.Name] = l.Id
		categories = append(categories, core.Category{Name: l.Name, IsSystem: l.Type == systemType})
	}

	p.mu.Lock()
	p.labels = labels
	p.mu.Unlock()
	return categories, nil
}

// GetItems returns the most recent threads carrying a label
func (p *Provider) GetItems(ctx context.Context, category string, limit int) ([]core.MessageRef, error) {
	id, err := p.labelID(ctx, category)
	if err != nil {
		return nil, err
	}
	return p.listThreads(ctx, id, limit)
}

// GetInbound returns threads in the inbox
func (p *Provider) GetInbound(ctx context.Context, limit int) ([]core.MessageRef, error) {
	return p.listThreads(ctx, inboxLabel, limit)
}

func (p *Provider) listThreads(ctx context.Context, labelID string, limit int) ([]core.MessageRef, error) {
	call := p.svc.Users.Threads.List(user).LabelIds(labelID).Context(ctx)
	if limit > 0 {
		call = call.MaxResults(int64(limit))
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("list threads for %s: %w", labelID, err)
	}

	refs := make([]core.MessageRef, 0, len(resp.Threads))
	for _, t := range resp.Threads {
		refs = append(refs, core.MessageRef{ID: t.Id})
	}
	if err := p.prefetch(ctx, refs); err != nil {
		p.logger.Warn("Failed to prefetch thread metadata", zap.String("label", labelID), zap.Error(err))
	}
	return refs, nil
}

// prefetch loads the first-message headers of every thread concurrently
func (p *Provider) prefetch(ctx context.Context, refs []core.MessageRef) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchWorkers)
	for _, ref := range refs {
		if p.cached(ref.ID) {
			continue
		}
		id := ref.ID
		g.Go(func() error {
			_, err := p.metadata(ctx, id)
			return err
		})
	}
	return g.Wait()
}

func (p *Provider) cached(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.meta[id]
	return ok
}

func (p *Provider) metadata(ctx context.Context, threadID string) (threadMeta, error) {
	p.mu.Lock()
	m, ok := p.meta[threadID]
	p.mu.Unlock()
	if ok {
		return m, nil
	}

	thread, err := p.svc.Users.Threads.Get(user, threadID).
		Format("metadata").
		MetadataHeaders("From", "Subject").
		Context(ctx).
		Do()
	if err != nil {
		return threadMeta{}, fmt.Errorf("get thread %s: %w", threadID, err)
	}
	if len(thread.Messages) > 0 && thread.Messages[0].Payload != nil {
		for _, h := range thread.Messages[0].Payload.Headers {
			switch strings.ToLower(h.Name) {
			case "from":
				m.from = h.Value
			case "subject":
				m.subject = h.Value
			}
		}
	}

	p.mu.Lock()
	p.meta[threadID] = m
	p.mu.Unlock()
	return m, nil
}

// GetSender returns the From header of the thread's first message
func (p *Provider) GetSender(ctx context.Context, ref core.MessageRef) (string, error) {
	m, err := p.metadata(ctx, ref.ID)
	if err != nil {
		return "", err
	}
	return m.from, nil
}

// GetSubject returns the subject of the thread's first message
func (p *Provider) GetSubject(ctx context.Context, ref core.MessageRef) (string, error) {
	m, err := p.metadata(ctx, ref.ID)
	if err != nil {
		return "", err
	}
	return m.subject, nil
}

// ApplyCategory adds a label to threads
func (p *Provider) ApplyCategory(ctx context.Context, refs []core.MessageRef, name string) error {
	id, err := p.labelID(ctx, name)
	if err != nil {
		return err
	}
	return p.modify(ctx, refs, &gmailv1.ModifyThreadRequest{AddLabelIds: []string{id}})
}

// Archive removes threads from the inbox
func (p *Provider) Archive(ctx context.Context, refs []core.MessageRef) error {
	return p.modify(ctx, refs, &gmailv1.ModifyThreadRequest{RemoveLabelIds: []string{inboxLabel}})
}

func (p *Provider) modify(ctx context.Context, refs []core.MessageRef, req *gmailv1.ModifyThreadRequest) error {
	for _, ref := range refs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := p.svc.Users.Threads.Modify(user, ref.ID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("modify thread %s: %w", ref.ID, err)
		}
	}
	return nil
}

// CreateCategory creates a visible user label and returns its id
func (p *Provider) CreateCategory(ctx context.Context, name string) (string, error) {
	label, err := p.svc.Users.Labels.Create(user, &gmailv1.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create label %s: %w", name, err)
	}

	p.mu.Lock()
	if p.labels != nil {
		p.labels[name] = label.Id
	}
	p.mu.Unlock()
	p.logger.Info("Created Gmail label", zap.String("label", name), zap.String("id", label.Id))
	return label.Id, nil
}

func (p *Provider) labelID(ctx context.Context, name string) (string, error) {
	p.mu.Lock()
	id, ok := p.labels[name]
	loaded := p.labels != nil
	p.mu.Unlock()
	if ok {
		return id, nil
	}
	if !loaded {
		if _, err := p.ListCategories(ctx); err != nil {
			return "", err
		}
		p.mu.Lock()
		id, ok = p.labels[name]
		p.mu.Unlock()
		if ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("label %q not found", name)
}
