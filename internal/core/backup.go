package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrNoBlobStore is returned by export when no backup store is configured
var ErrNoBlobStore = errors.New("no backup store configured")

const (
	backupVersion    = 1
	backupNamePrefix = "mail-sorter-backup-"
	backupTimeLayout = "20060102T150405.000Z"
)

// Backup is the exported document
type Backup struct {
	Version    int             `json:"version"`
	ExportedAt time.Time       `json:"exportedAt"`
	Rules      *RuleSet        `json:"rules"`
	Exclusions *ExclusionSet   `json:"exclusions"`
	Keywords   *KeywordRuleSet `json:"keywords"`
}

// ImportResult reports the outcome of an import. Import never fails with
// an error for bad input; it reports it here instead.
type ImportResult struct {
	Success bool   `json:"success" yaml:"success"`
	Message string `json:"message" yaml:"message"`
	Count   int    `json:"count" yaml:"count"`
}

// Export writes the rules, exclusions and keyword rules to a new backup
// blob and returns its name.
func (s *RuleService) Export(ctx context.Context) (string, error) {
	if s.blobs == nil {
		return "", ErrNoBlobStore
	}
	snapshot, err := s.store.loadSnapshot(ctx)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	doc := Backup{
		Version:    backupVersion,
		ExportedAt: now,
		Rules:      snapshot.rules,
		Exclusions: snapshot.exclusions,
		Keywords:   snapshot.keywords,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode backup: %w", err)
	}

	name := backupNamePrefix + now.Format(backupTimeLayout) + ".json"
	if err := s.blobs.WriteNew(ctx, name, data); err != nil {
		return "", fmt.Errorf("failed to write backup %s: %w", name, err)
	}
	s.logger.Info("Backup exported",
		zap.String("name", name),
		zap.Int("rules", snapshot.rules.Len()),
		zap.Int("exclusions", snapshot.exclusions.Len()),
		zap.Int("keywords", snapshot.keywords.Len()))
	return name, nil
}

// Import merges a backup into the stored rules; imported values win.
// Both a full backup document and a flat pattern→label object are accepted.
func (s *RuleService) Import(ctx context.Context, name string) *ImportResult {
	if s.blobs == nil {
		return importFailure(ErrNoBlobStore.Error())
	}
	data, ok, err := s.blobs.ReadByName(ctx, name)
	if err != nil {
		s.logger.Error("Failed to read backup", zap.String("name", name), zap.Error(err))
		return importFailure(fmt.Sprintf("failed to read %s: %v", name, err))
	}
	if !ok {
		return importFailure(fmt.Sprintf("backup %s not found", name))
	}

	doc, err := parseBackup(data)
	if err != nil {
		s.logger.Warn("Rejected backup", zap.String("name", name), zap.Error(err))
		return importFailure(err.Error())
	}

	rules, err := s.store.LoadRules(ctx)
	if err != nil {
		return importFailure(err.Error())
	}
	for _, e := range doc.Rules.Entries() {
		rules.Set(normalisedKey(e.Pattern), e.Label)
	}
	if err := s.store.SaveRules(ctx, rules); err != nil {
		return importFailure(err.Error())
	}

	if doc.Exclusions.Len() > 0 {
		exclusions, err := s.store.LoadExclusions(ctx)
		if err != nil {
			return importFailure(err.Error())
		}
		for _, p := range doc.Exclusions.Patterns() {
			exclusions.Add(normalisedKey(p.Key()))
		}
		if err := s.store.SaveExclusions(ctx, exclusions); err != nil {
			return importFailure(err.Error())
		}
	}

	if doc.Keywords.Len() > 0 {
		keywords, err := s.store.LoadKeywords(ctx)
		if err != nil {
			return importFailure(err.Error())
		}
		for _, kw := range doc.Keywords.Rules() {
			keywords.Set(kw.Keyword, kw.Label)
		}
		if err := s.store.SaveKeywords(ctx, keywords); err != nil {
			return importFailure(err.Error())
		}
	}

	count := doc.Rules.Len()
	s.logger.Info("Backup imported", zap.String("name", name), zap.Int("rules", count))
	return &ImportResult{
		Success: true,
		Message: fmt.Sprintf("imported %d rules from %s", count, name),
		Count:   count,
	}
}

func importFailure(message string) *ImportResult {
	return &ImportResult{Success: false, Message: message}
}

// parseBackup accepts a full backup or a flat rule object
func parseBackup(data []byte) (*Backup, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("backup content is not an object")
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("backup content is not valid JSON: %w", err)
	}

	if raw, ok := probe["rules"]; ok && isObject(raw) {
		doc := &Backup{}
		if err := json.Unmarshal(trimmed, doc); err != nil {
			return nil, fmt.Errorf("malformed backup: %w", err)
		}
		if doc.Rules == nil {
			doc.Rules = NewRuleSet()
		}
		return doc, nil
	}

	rules := NewRuleSet()
	if err := json.Unmarshal(trimmed, rules); err != nil {
		return nil, fmt.Errorf("backup rules must map patterns to labels: %w", err)
	}
	return &Backup{Rules: rules}, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
