package enrich

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"cityvibe/internal/config"
)

// OpenAIEmbedder produces embedding vectors through the OpenAI API or
// any compatible endpoint when a base URL override is configured.
type OpenAIEmbedder struct {
	client   openai.Client
	model    string
	maxChars int
}

func NewOpenAIEmbedder(cfg config.EmbeddingConfig) *OpenAIEmbedder {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = 8000
	}
	return &OpenAIEmbedder{
		client:   openai.NewClient(opts...),
		model:    model,
		maxChars: maxChars,
	}
}

// Embed returns the vector for text, truncated on a rune boundary to
// the configured input limit.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty embedding input")
	}
	if runes := []rune(text); len(runes) > e.maxChars {
		text = string(runes[:e.maxChars])
	}
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}
