package filter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/mikey/mail-sorter/internal/core"
)

// maxBodyBytes caps how much text is collected from a message body
const maxBodyBytes = 64 * 1024

// parseMessage reads an RFC 5322 message into an Email. The From header
// wins over the envelope sender when present.
func parseMessage(raw []byte, envelopeFrom string, recipients []string) (*core.Email, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && mr == nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	defer mr.Close()

	email := &core.Email{
		From:    envelopeFrom,
		To:      recipients,
		Headers: make(map[string][]string),
	}

	fields := mr.Header.Fields()
	for fields.Next() {
		key := fields.Key()
		email.Headers[key] = append(email.Headers[key], fields.Value())
	}

	if from, err := decodedHeader(mr.Header, "From"); err == nil && from != "" {
		email.From = from
	}
	if subject, err := mr.Header.Subject(); err == nil {
		email.Subject = subject
	} else {
		email.Subject = mr.Header.Get("Subject")
	}

	body, err := readText(mr)
	if err != nil {
		return email, nil
	}
	email.Body = body
	return email, nil
}

func decodedHeader(h mail.Header, key string) (string, error) {
	addrs, err := h.AddressList(key)
	if err != nil || len(addrs) == 0 {
		return h.Text(key)
	}
	return addrs[0].String(), nil
}

// readText collects the text/plain parts, falling back to any text part
func readText(mr *mail.Reader) (string, error) {
	var plain, other strings.Builder
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if plain.Len()+other.Len() > 0 {
				break
			}
			return "", err
		}

		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		mediaType, _, err := mime.ParseMediaType(inline.Get("Content-Type"))
		if err != nil {
			mediaType = "text/plain"
		}
		if !strings.HasPrefix(mediaType, "text/") {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(part.Body, maxBodyBytes))
		if err != nil {
			continue
		}
		if mediaType == "text/plain" {
			plain.Write(data)
		} else {
			other.Write(data)
		}
	}
	if plain.Len() > 0 {
		return plain.String(), nil
	}
	return other.String(), nil
}

// prependHeaders returns raw with extra header lines inserted at the top
func prependHeaders(raw []byte, headers [][2]string) []byte {
	var buf bytes.Buffer
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h[0], sanitizeHeaderValue(h[1]))
	}
	buf.Write(raw)
	return buf.Bytes()
}

func sanitizeHeaderValue(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

// classificationHeaders builds the header lines describing a verdict
func classificationHeaders(c *core.Classification, names HeaderNames) [][2]string {
	switch {
	case c.Matched:
		return [][2]string{
			{names.Category, c.Label},
			{names.Rule, string(c.RuleKey)},
		}
	case c.Suggested != nil:
		return [][2]string{
			{names.Suggested, fmt.Sprintf("%s; confidence=%.2f", c.Suggested.Category, c.Suggested.Confidence)},
		}
	default:
		return nil
	}
}
