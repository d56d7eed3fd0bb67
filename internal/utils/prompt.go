package utils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SystemPrompt is sent ahead of the category prompt where a model supports it
const SystemPrompt = "You are a mail sorting assistant. Respond only with JSON."

const categoryPromptFormat = `You are a mail sorting assistant. Choose the category the following email belongs in.
The category must be exactly one of:
%s

If none of them fits, use an empty string.
Respond with a JSON object containing:
- category: string (one of the categories above, or "")
- confidence: number between 0 and 1 (how confident you are in the choice)
- explanation: string (brief reason for the choice)

Email:
From: %s
To: %s
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`

// CategoryResponse is the structured reply a model gives to the category prompt
type CategoryResponse struct {
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// BuildCategoryPrompt renders the prompt asking a model to pick one of categories
func BuildCategoryPrompt(from string, to []string, subject, body string, categories []string) string {
	recipient := ""
	if len(to) > 0 {
		recipient = to[0]
		if len(to) > 1 {
			recipient += fmt.Sprintf(" and %d others", len(to)-1)
		}
	}

	var list strings.Builder
	for _, c := range categories {
		list.WriteString("- ")
		list.WriteString(c)
		list.WriteString("\n")
	}

	return fmt.Sprintf(categoryPromptFormat, strings.TrimRight(list.String(), "\n"), from, recipient, subject, body)
}

// ParseCategoryResponse decodes a model reply, tolerating prose around the
// JSON object
func ParseCategoryResponse(text string) (*CategoryResponse, error) {
	var resp CategoryResponse
	if err := json.Unmarshal([]byte(text), &resp); err == nil {
		return &resp, nil
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("failed to extract JSON from LLM response")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
	}
	return &resp, nil
}
