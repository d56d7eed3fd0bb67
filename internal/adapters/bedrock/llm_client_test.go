package bedrock

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/mail-sorter/internal/core"
	"github.com/mikey/mail-sorter/internal/utils"
)

type stubInvoker struct {
	request  map[string]interface{}
	response []byte
}

func (s *stubInvoker) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	if err := json.Unmarshal(params.Body, &s.request); err != nil {
		return nil, err
	}
	return &bedrockruntime.InvokeModelOutput{Body: s.response}, nil
}

func newTestClient(invoker InvokeAPI, modelID string) *BedrockClient {
	logger := zap.NewNop()
	return NewBedrockClient(invoker, modelID, 200, 0.1, 0.9, 1000, logger, utils.NewTextProcessor(logger))
}

var testEmail = &core.Email{From: "billing@shop.com", Subject: "Your invoice", Body: "Amount due"}

func TestSuggestCategoryClaude(t *testing.T) {
	invoker := &stubInvoker{response: []byte(`{"content":[{"type":"text","text":"{\"category\":\"Finance\",\"confidence\":0.93,\"explanation\":\"invoice\"}"}]}`)}
	client := newTestClient(invoker, "anthropic.claude-3-haiku-20240307-v1:0")

	s, err := client.SuggestCategory(context.Background(), testEmail, []string{"Finance", "News"})
	require.NoError(t, err)
	assert.Equal(t, "Finance", s.Category)
	assert.InDelta(t, 0.93, s.Confidence, 1e-9)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", s.ModelUsed)

	assert.Equal(t, anthropicVersion, invoker.request["anthropic_version"])
	messages, ok := invoker.request["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, messages, 1)
}

func TestSuggestCategoryTitan(t *testing.T) {
	invoker := &stubInvoker{response: []byte(`{"results":[{"outputText":"Answer: {\"category\":\"News\",\"confidence\":0.8}"}]}`)}
	client := newTestClient(invoker, "amazon.titan-text-express-v1")

	s, err := client.SuggestCategory(context.Background(), testEmail, []string{"Finance", "News"})
	require.NoError(t, err)
	assert.Equal(t, "News", s.Category)
	assert.Contains(t, invoker.request, "inputText")
}

func TestSuggestCategoryEmptyTitanResponse(t *testing.T) {
	invoker := &stubInvoker{response: []byte(`{"results":[]}`)}
	client := newTestClient(invoker, "amazon.titan-text-express-v1")

	_, err := client.SuggestCategory(context.Background(), testEmail, []string{"Finance"})
	assert.Error(t, err)
}

func TestSuggestCategoryGeneric(t *testing.T) {
	invoker := &stubInvoker{response: []byte(`{"output":"{\"category\":\"\",\"confidence\":0.1}"}`)}
	client := newTestClient(invoker, "meta.llama3-8b-instruct-v1:0")

	s, err := client.SuggestCategory(context.Background(), testEmail, []string{"Finance"})
	require.NoError(t, err)
	assert.Empty(t, s.Category)
	assert.Contains(t, invoker.request, "prompt")
}
