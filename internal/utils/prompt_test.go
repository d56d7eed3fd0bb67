package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCategoryPrompt(t *testing.T) {
	prompt := BuildCategoryPrompt("alice@example.com", []string{"a@x.com", "b@x.com", "c@x.com"},
		"Invoice", "Please pay", []string{"Finance", "Friends"})

	assert.Contains(t, prompt, "- Finance\n- Friends\n")
	assert.Contains(t, prompt, "To: a@x.com and 2 others")
	assert.Contains(t, prompt, "Subject: Invoice")
	assert.Contains(t, prompt, "Please pay")
}

func TestParseCategoryResponse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{name: "plain json", text: `{"category":"Finance","confidence":0.9,"explanation":"bill"}`, want: "Finance"},
		{name: "wrapped in prose", text: "Sure.\n```json\n{\"category\":\"News\",\"confidence\":0.7}\n```", want: "News"},
		{name: "empty category", text: `{"category":"","confidence":0}`, want: ""},
		{name: "no json", text: "I cannot decide", wantErr: true},
		{name: "broken json", text: "{category: }", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseCategoryResponse(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Category)
		})
	}
}
