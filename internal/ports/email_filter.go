package ports

import (
	"context"

	"github.com/mikey/mail-sorter/internal/core"
)

// EmailFilter is a front-end that classifies messages as they arrive
type EmailFilter interface {
	// ProcessEmail classifies one message
	ProcessEmail(ctx context.Context, email *core.Email) (*core.Classification, error)

	// Start starts the filter service
	Start() error

	// Stop stops the filter service
	Stop() error
}
