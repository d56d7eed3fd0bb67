package filter

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/mail-sorter/internal/core"
)

const plainMessage = "From: Alice Example <alice@example.com>\r\n" +
	"To: bob@example.org\r\n" +
	"Subject: =?UTF-8?Q?Caf=C3=A9_invoice?=\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hello Bob\r\n"

const multipartMessage = "From: news@letters.com\r\n" +
	"Subject: Weekly\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/html\r\n" +
	"\r\n" +
	"<p>html</p>\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"plain text\r\n" +
	"--XYZ--\r\n"

type stubClassifier struct {
	result *core.Classification
	seen   *core.Email
}

func (s *stubClassifier) Classify(ctx context.Context, email *core.Email) (*core.Classification, error) {
	s.seen = email
	return s.result, nil
}

func TestParseMessage(t *testing.T) {
	email, err := parseMessage([]byte(plainMessage), "bounce@example.com", []string{"bob@example.org"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", core.ExtractAddress(email.From))
	assert.Equal(t, "Café invoice", email.Subject)
	assert.Contains(t, email.Body, "Hello Bob")
	assert.Equal(t, []string{"bob@example.org"}, email.To)
	assert.NotEmpty(t, email.Headers["Subject"])
}

func TestParseMultipartPrefersPlain(t *testing.T) {
	email, err := parseMessage([]byte(multipartMessage), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "news@letters.com", core.ExtractAddress(email.From))
	assert.Contains(t, email.Body, "plain text")
	assert.NotContains(t, email.Body, "<p>")
}

func TestFilterMessageAddsHeaders(t *testing.T) {
	names := HeaderNames{Category: "X-Mail-Category", Rule: "X-Mail-Category-Rule", Suggested: "X-Mail-Category-Suggested"}
	classifier := &stubClassifier{result: &core.Classification{Matched: true, Label: "Finance", RuleKey: "keyword:invoice"}}
	f := NewPostfixFilter(classifier, zap.NewNop(), "127.0.0.1:0", names, "127.0.0.1", 10026, false)

	out := f.filterMessage(context.Background(), []byte(plainMessage), "bounce@example.com", nil)
	assert.True(t, strings.HasPrefix(string(out), "X-Mail-Category: Finance\r\nX-Mail-Category-Rule: keyword:invoice\r\nFrom:"))
	assert.True(t, strings.HasSuffix(string(out), plainMessage))

	classifier.result = &core.Classification{Suggested: &core.CategorySuggestion{Category: "News", Confidence: 0.91}}
	out = f.filterMessage(context.Background(), []byte(plainMessage), "", nil)
	assert.True(t, strings.HasPrefix(string(out), "X-Mail-Category-Suggested: News; confidence=0.91\r\n"))

	classifier.result = &core.Classification{}
	out = f.filterMessage(context.Background(), []byte(plainMessage), "", nil)
	assert.Equal(t, plainMessage, string(out))
}

func TestSanitizeHeaderValue(t *testing.T) {
	assert.Equal(t, "a  b", sanitizeHeaderValue("a\r\nb"))
}

func TestCliFilterPrintsVerdict(t *testing.T) {
	classifier := &stubClassifier{result: &core.Classification{Sender: "alice@example.com", Matched: true, Label: "Friends", RuleKey: "alice@example.com"}}
	f := NewCliFilter(classifier, zap.NewNop(), false)
	var buf bytes.Buffer
	f.out = &buf

	c, err := f.ClassifyReader(context.Background(), strings.NewReader(plainMessage))
	require.NoError(t, err)
	assert.Equal(t, "Friends", c.Label)
	assert.Contains(t, buf.String(), "Category: Friends")
	assert.Equal(t, "Café invoice", classifier.seen.Subject)
}
