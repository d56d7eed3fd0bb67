package filter

import (
	"context"
	"io"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/mail-sorter/internal/core"
)

// HeaderNames are the headers the filter adds
type HeaderNames struct {
	Category  string
	Rule      string
	Suggested string
}

// Classifier resolves a message without side effects
type Classifier interface {
	Classify(ctx context.Context, email *core.Email) (*core.Classification, error)
}

// PostfixFilter is a Postfix content filter that tags messages with their
// category and hands them back to Postfix. Without a relay the tagged
// message is dropped.
type PostfixFilter struct {
	classifier Classifier
	logger     *zap.Logger
	listenAddr string
	server     *smtp.Server
	headers    HeaderNames
	relay      *relay
	timeout    time.Duration
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(
	classifier Classifier,
	logger *zap.Logger,
	listenAddr string,
	headers HeaderNames,
	postfixAddr string,
	postfixPort int,
	postfixEnabled bool,
) *PostfixFilter {
	f := &PostfixFilter{
		classifier: classifier,
		logger:     logger,
		listenAddr: listenAddr,
		headers:    headers,
		timeout:    10 * time.Second,
	}
	if postfixEnabled {
		f.relay = newRelay(postfixAddr, postfixPort, logger)
	}
	return f
}

// Start starts the SMTP listener
func (f *PostfixFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})
	f.server.Addr = f.listenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024
	f.server.MaxRecipients = 50

	f.logger.Info("Postfix filter starting", zap.String("address", f.listenAddr))

	go func() {
		if err := f.server.ListenAndServe(); err != nil && err != smtp.ErrServerClosed {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop stops the SMTP listener
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail classifies one message
func (f *PostfixFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.Classification, error) {
	return f.classifier.Classify(ctx, email)
}

// filterMessage classifies raw message data and returns it with headers added.
// A classification failure passes the message through untouched.
func (f *PostfixFilter) filterMessage(ctx context.Context, raw []byte, sender string, recipients []string) []byte {
	email, err := parseMessage(raw, sender, recipients)
	if err != nil {
		f.logger.Warn("Failed to parse message, passing through", zap.String("sender", sender), zap.Error(err))
		return raw
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	c, err := f.ProcessEmail(ctx, email)
	if err != nil {
		f.logger.Error("Failed to classify message", zap.String("sender", email.From), zap.Error(err))
		return raw
	}

	f.logger.Info("Processed message",
		zap.String("sender", c.Sender),
		zap.Bool("matched", c.Matched),
		zap.String("label", c.Label),
		zap.String("rule", string(c.RuleKey)))
	return prependHeaders(raw, classificationHeaders(c, f.headers))
}

type smtpBackend struct {
	filter *PostfixFilter
}

func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	out := s.filter.filterMessage(context.Background(), raw, s.sender, s.recipients)

	if s.filter.relay == nil {
		s.filter.logger.Warn("Postfix forwarding disabled, message dropped after classification",
			zap.String("sender", s.sender))
		return nil
	}
	accepted, err := s.filter.relay.deliver(s.sender, s.recipients, out)
	if err != nil {
		s.filter.logger.Error("Failed to hand message back to Postfix",
			zap.String("sender", s.sender),
			zap.Error(err))
		return err
	}
	s.filter.logger.Debug("Message re-injected",
		zap.String("sender", s.sender),
		zap.Int("recipients", accepted))
	return nil
}

func (s *smtpSession) Logout() error {
	return nil
}
