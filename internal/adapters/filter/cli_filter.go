package filter

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/mikey/mail-sorter/internal/core"
)

// CliFilter classifies a single message from a file or stdin and prints
// the verdict
type CliFilter struct {
	classifier Classifier
	logger     *zap.Logger
	out        io.Writer
	verbose    bool
}

// NewCliFilter creates a new CLI filter
func NewCliFilter(classifier Classifier, logger *zap.Logger, verbose bool) *CliFilter {
	return &CliFilter{
		classifier: classifier,
		logger:     logger,
		out:        os.Stdout,
		verbose:    verbose,
	}
}

// SetOutput redirects the printed verdict
func (f *CliFilter) SetOutput(w io.Writer) {
	f.out = w
}

// ClassifyReader parses a raw message and classifies it
func (f *CliFilter) ClassifyReader(ctx context.Context, r io.Reader) (*core.Classification, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	email, err := parseMessage(raw, "", nil)
	if err != nil {
		return nil, err
	}
	return f.ProcessEmail(ctx, email)
}

// ProcessEmail classifies a message and prints the verdict
func (f *CliFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.Classification, error) {
	f.logger.Debug("Classifying message", zap.String("sender", email.From))

	c, err := f.classifier.Classify(ctx, email)
	if err != nil {
		f.logger.Error("Failed to classify message", zap.Error(err))
		return nil, err
	}

	fmt.Fprintf(f.out, "From: %s\n", c.Sender)
	fmt.Fprintf(f.out, "Subject: %s\n", c.Subject)
	if f.verbose {
		fmt.Fprintf(f.out, "Body length: %d bytes\n", len(email.Body))
	}
	switch {
	case c.Matched:
		fmt.Fprintf(f.out, "Category: %s\n", c.Label)
		fmt.Fprintf(f.out, "Rule: %s\n", c.RuleKey)
	case c.Excluded:
		fmt.Fprintln(f.out, "Category: (excluded)")
	default:
		fmt.Fprintln(f.out, "Category: (no rule)")
	}
	if c.Suggested != nil {
		fmt.Fprintf(f.out, "Suggested: %s (confidence %.2f)\n", c.Suggested.Category, c.Suggested.Confidence)
		if f.verbose && c.Suggested.Explanation != "" {
			fmt.Fprintf(f.out, "Reason: %s\n", c.Suggested.Explanation)
		}
	}
	return c, nil
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
