package filter

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captured struct {
	mu   sync.Mutex
	from string
	to   []string
	data string
}

type captureBackend struct{ got *captured }

func (b *captureBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &captureSession{got: b.got}, nil
}

type captureSession struct {
	got  *captured
	from string
	to   []string
}

func (s *captureSession) Reset()        {}
func (s *captureSession) Logout() error { return nil }

func (s *captureSession) Mail(from string, _ *smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *captureSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	if strings.HasPrefix(to, "nobody@") {
		return errors.New("unknown user")
	}
	s.to = append(s.to, to)
	return nil
}

func (s *captureSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.got.mu.Lock()
	defer s.got.mu.Unlock()
	s.got.from, s.got.to, s.got.data = s.from, s.to, string(data)
	return nil
}

func startCapture(t *testing.T) (*relay, *captured) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	got := &captured{}
	srv := smtp.NewServer(&captureBackend{got: got})
	srv.Domain = "localhost"
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	addr := ln.Addr().(*net.TCPAddr)
	return newRelay("127.0.0.1", addr.Port, zap.NewNop()), got
}

func TestRelayDeliver(t *testing.T) {
	r, got := startCapture(t)

	msg := "X-Mail-Category: Work\r\nFrom: a@co.com\r\nSubject: hi\r\n\r\nbody\r\n"
	accepted, err := r.deliver("a@co.com", []string{"me@home.net", "nobody@home.net"}, []byte(msg))
	require.NoError(t, err)
	assert.Equal(t, 1, accepted)

	got.mu.Lock()
	defer got.mu.Unlock()
	assert.Equal(t, "a@co.com", got.from)
	assert.Equal(t, []string{"me@home.net"}, got.to)
	assert.Contains(t, got.data, "X-Mail-Category: Work")
}

func TestRelayAllRecipientsRefused(t *testing.T) {
	r, _ := startCapture(t)

	_, err := r.deliver("a@co.com", []string{"nobody@home.net"}, []byte("Subject: x\r\n\r\n"))
	assert.ErrorIs(t, err, errNoRecipients)
}

func TestRelayUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	_, err = newRelay("127.0.0.1", port, zap.NewNop()).deliver("a@co.com", []string{"me@home.net"}, nil)
	assert.Error(t, err)
}
