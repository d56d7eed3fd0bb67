package filter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"
)

var errNoRecipients = errors.New("all recipients were rejected")

// relay hands filtered messages back to the MTA's re-injection port
type relay struct {
	addr        string
	logger      *zap.Logger
	dialTimeout time.Duration
	ioTimeout   time.Duration
}

func newRelay(host string, port int, logger *zap.Logger) *relay {
	return &relay{
		addr:        net.JoinHostPort(host, fmt.Sprint(port)),
		logger:      logger,
		dialTimeout: 10 * time.Second,
		ioTimeout:   30 * time.Second,
	}
}

// deliver sends one message. Recipients the MTA refuses are logged and
// skipped; delivery fails only when none is accepted. It returns the
// number of accepted recipients.
func (r *relay) deliver(sender string, recipients []string, data []byte) (int, error) {
	conn, err := net.DialTimeout("tcp", r.addr, r.dialTimeout)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to %s: %w", r.addr, err)
	}
	if err := conn.SetDeadline(time.Now().Add(r.ioTimeout)); err != nil {
		conn.Close()
		return 0, fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(heloName()); err != nil {
		return 0, fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return 0, fmt.Errorf("MAIL FROM failed: %w", err)
	}

	accepted := 0
	for _, rcpt := range recipients {
		if err := c.Rcpt(rcpt, nil); err != nil {
			r.logger.Warn("Recipient refused by relay", zap.String("recipient", rcpt), zap.Error(err))
			continue
		}
		accepted++
	}
	if accepted == 0 {
		return 0, errNoRecipients
	}

	wc, err := c.Data()
	if err != nil {
		return 0, fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := io.Copy(wc, bytes.NewReader(data)); err != nil {
		wc.Close()
		return 0, fmt.Errorf("failed to write message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return 0, fmt.Errorf("message rejected by relay: %w", err)
	}

	if err := c.Quit(); err != nil {
		r.logger.Debug("QUIT failed", zap.Error(err))
	}
	return accepted, nil
}

func heloName() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "localhost"
}
