package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	imap "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"github.com/mikey/mail-sorter/internal/core"
)

// Config holds the IMAP connection settings
type Config struct {
	Address  string
	Username string
	Password string
	Inbox    string
	Insecure bool
}

type envelope struct {
	from    string
	subject string
}

// Provider files messages by copying them into mailboxes. A MessageRef
// id is "<mailbox>/<uid>". The client is not safe for concurrent use so
// every command runs under one lock.
type Provider struct {
	client *imapclient.Client
	inbox  string
	logger *zap.Logger

	mu       sync.Mutex
	selected string
	meta     map[string]envelope
}

// NewProvider connects over TLS and logs in
func NewProvider(cfg Config, logger *zap.Logger) (*Provider, error) {
	client, err := imapclient.DialTLS(cfg.Address, &imapclient.Options{
		TLSConfig: &tls.Config{InsecureSkipVerify: cfg.Insecure},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial IMAP server %s: %w", cfg.Address, err)
	}
	if err := client.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		client.Close()
		return nil, fmt.Errorf("IMAP login failed: %w", err)
	}

	inbox := cfg.Inbox
	if inbox == "" {
		inbox = "INBOX"
	}
	logger.Info("Connected to IMAP server", zap.String("address", cfg.Address), zap.String("user", cfg.Username))
	return &Provider{
		client: client,
		inbox:  inbox,
		logger: logger,
		meta:   make(map[string]envelope),
	}, nil
}

// Close logs out and closes the connection
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.client.Logout().Wait(); err != nil {
		p.logger.Debug("IMAP logout failed", zap.Error(err))
	}
	return p.client.Close()
}

// ListCategories lists selectable mailboxes. The inbox and special-use
// mailboxes are reported as system categories.
func (p *Provider) ListCategories(ctx context.Context) ([]core.Category, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mailboxes, err := p.client.List("", "*", nil).Collect()
	if err != nil {
		return nil, fmt.Errorf("list mailboxes: %w", err)
	}

	categories := make([]core.Category, 0, len(mailboxes))
	for _, mb := range mailboxes {
		if hasAttr(mb.Attrs, imap.MailboxAttrNoSelect) {
			continue
		}
		categories = append(categories, core.Category{
			Name:     mb.Mailbox,
			IsSystem: p.isSystem(mb.Mailbox, mb.Attrs),
		})
	}
	return categories, nil
}

var systemAttrs = []imap.MailboxAttr{
	imap.MailboxAttrTrash,
	imap.MailboxAttrJunk,
	imap.MailboxAttrDrafts,
	imap.MailboxAttrSent,
	imap.MailboxAttrAll,
	imap.MailboxAttrArchive,
}

func (p *Provider) isSystem(name string, attrs []imap.MailboxAttr) bool {
	if strings.EqualFold(name, p.inbox) || strings.EqualFold(name, "INBOX") {
		return true
	}
	for _, a := range systemAttrs {
		if hasAttr(attrs, a) {
			return true
		}
	}
	return false
}

func hasAttr(attrs []imap.MailboxAttr, want imap.MailboxAttr) bool {
	for _, a := range attrs {
		if strings.EqualFold(string(a), string(want)) {
			return true
		}
	}
	return false
}

// GetItems returns the newest messages in a mailbox
func (p *Provider) GetItems(ctx context.Context, category string, limit int) ([]core.MessageRef, error) {
	return p.recent(category, limit)
}

// GetInbound returns the newest messages in the inbox
func (p *Provider) GetInbound(ctx context.Context, limit int) ([]core.MessageRef, error) {
	return p.recent(p.inbox, limit)
}

func (p *Provider) recent(mailbox string, limit int) ([]core.MessageRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.selectMailbox(mailbox); err != nil {
		return nil, err
	}
	data, err := p.client.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagDeleted},
	}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", mailbox, err)
	}
	uids := newest(data.AllUIDs(), limit)
	if len(uids) == 0 {
		return nil, nil
	}

	msgs, err := p.client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:      true,
		Envelope: true,
	}).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetch envelopes from %s: %w", mailbox, err)
	}

	refs := make([]core.MessageRef, 0, len(msgs))
	for _, msg := range msgs {
		id := refID(mailbox, msg.UID)
		if msg.Envelope != nil {
			p.meta[id] = envelope{
				from:    formatFrom(msg.Envelope.From),
				subject: msg.Envelope.Subject,
			}
		}
		refs = append(refs, core.MessageRef{ID: id})
	}
	return refs, nil
}

// newest returns the limit highest uids, newest first
func newest(uids []imap.UID, limit int) []imap.UID {
	sorted := append([]imap.UID(nil), uids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func formatFrom(addrs []imap.Address) string {
	if len(addrs) == 0 {
		return ""
	}
	a := addrs[0]
	if a.Name == "" {
		return a.Addr()
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Addr())
}

// GetSender returns the first From address of a fetched message
func (p *Provider) GetSender(ctx context.Context, ref core.MessageRef) (string, error) {
	m, err := p.envelope(ref)
	return m.from, err
}

// GetSubject returns the subject of a fetched message
func (p *Provider) GetSubject(ctx context.Context, ref core.MessageRef) (string, error) {
	m, err := p.envelope(ref)
	return m.subject, err
}

func (p *Provider) envelope(ref core.MessageRef) (envelope, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if m, ok := p.meta[ref.ID]; ok {
		return m, nil
	}
	mailbox, uid, err := parseRef(ref.ID)
	if err != nil {
		return envelope{}, err
	}
	if err := p.selectMailbox(mailbox); err != nil {
		return envelope{}, err
	}
	msgs, err := p.client.Fetch(imap.UIDSetNum(uid), &imap.FetchOptions{UID: true, Envelope: true}).Collect()
	if err != nil {
		return envelope{}, fmt.Errorf("fetch envelope %s: %w", ref.ID, err)
	}
	if len(msgs) == 0 || msgs[0].Envelope == nil {
		return envelope{}, fmt.Errorf("message %s not found", ref.ID)
	}
	m := envelope{from: formatFrom(msgs[0].Envelope.From), subject: msgs[0].Envelope.Subject}
	p.meta[ref.ID] = m
	return m, nil
}

// ApplyCategory copies messages into the named mailbox
func (p *Provider) ApplyCategory(ctx context.Context, refs []core.MessageRef, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for mailbox, uids := range groupRefs(refs) {
		if err := p.selectMailbox(mailbox); err != nil {
			return err
		}
		if _, err := p.client.Copy(imap.UIDSetNum(uids...), name).Wait(); err != nil {
			return fmt.Errorf("copy to %s: %w", name, err)
		}
	}
	return nil
}

// Archive removes messages from their current mailbox
func (p *Provider) Archive(ctx context.Context, refs []core.MessageRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for mailbox, uids := range groupRefs(refs) {
		if err := p.selectMailbox(mailbox); err != nil {
			return err
		}
		set := imap.UIDSetNum(uids...)
		if err := p.client.Store(set, &imap.StoreFlags{
			Op:     imap.StoreFlagsAdd,
			Silent: true,
			Flags:  []imap.Flag{imap.FlagDeleted},
		}, nil).Close(); err != nil {
			return fmt.Errorf("flag messages in %s: %w", mailbox, err)
		}
		if err := p.client.UIDExpunge(set).Close(); err != nil {
			return fmt.Errorf("expunge %s: %w", mailbox, err)
		}
		for _, uid := range uids {
			delete(p.meta, refID(mailbox, uid))
		}
	}
	return nil
}

// CreateCategory creates a mailbox; its name is its handle
func (p *Provider) CreateCategory(ctx context.Context, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.client.Create(name, nil).Wait(); err != nil {
		return "", fmt.Errorf("create mailbox %s: %w", name, err)
	}
	p.logger.Info("Created IMAP mailbox", zap.String("mailbox", name))
	return name, nil
}

func (p *Provider) selectMailbox(name string) error {
	if p.selected == name {
		return nil
	}
	if _, err := p.client.Select(name, nil).Wait(); err != nil {
		return fmt.Errorf("select %s: %w", name, err)
	}
	p.selected = name
	return nil
}

func refID(mailbox string, uid imap.UID) string {
	return mailbox + "/" + strconv.FormatUint(uint64(uid), 10)
}

func parseRef(id string) (string, imap.UID, error) {
	i := strings.LastIndex(id, "/")
	if i <= 0 || i == len(id)-1 {
		return "", 0, fmt.Errorf("invalid message ref %q", id)
	}
	n, err := strconv.ParseUint(id[i+1:], 10, 32)
	if err != nil || n == 0 {
		return "", 0, fmt.Errorf("invalid message ref %q", id)
	}
	return id[:i], imap.UID(n), nil
}

func groupRefs(refs []core.MessageRef) map[string][]imap.UID {
	groups := make(map[string][]imap.UID)
	for _, ref := range refs {
		mailbox, uid, err := parseRef(ref.ID)
		if err != nil {
			continue
		}
		groups[mailbox] = append(groups[mailbox], uid)
	}
	return groups
}
