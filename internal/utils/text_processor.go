package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// Fold returns the case-folded form of s for case-insensitive comparison
func Fold(s string) string {
	return folder.String(s)
}

// FoldContains reports whether substr occurs in s, ignoring case
func FoldContains(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}

// TextProcessor prepares message text before it is handed to a suggester
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateText cuts text to at most maxSize bytes. Only a rune split by
// the cut is dropped; invalid bytes earlier in the text are left alone.
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for i := len(truncated) - 1; i >= 0 && i > len(truncated)-utf8.UTFMax; i-- {
		if utf8.RuneStart(truncated[i]) {
			if !utf8.FullRuneInString(truncated[i:]) {
				truncated = truncated[:i]
			}
			break
		}
	}

	tp.logger.Debug("Message body truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + "\n[... truncated ...]"
}

// SanitizeUTF8 drops invalid UTF-8 bytes
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	sanitized := strings.ToValidUTF8(text, "")
	tp.logger.Debug("Message body sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(sanitized)))
	return sanitized
}

// ProcessText sanitizes and then truncates text
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return tp.TruncateText(tp.SanitizeUTF8(text), maxSize)
}
