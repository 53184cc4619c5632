package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini translates with a Gemini text model
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a Gemini translator
func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)

	return &Gemini{client: client, model: model}, nil
}

// Translate implements Translator
func (g *Gemini) Translate(ctx context.Context, text string) (Result, error) {
	prompt := fmt.Sprintf("Translate this product name to Traditional Chinese: %q. Return only the translation.", text)
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Result{}, fmt.Errorf("generating translation: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Result{}, ErrEmptyTranslation
	}

	part, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok || strings.TrimSpace(string(part)) == "" {
		return Result{}, ErrEmptyTranslation
	}
	return Result{Chinese: strings.Trim(strings.TrimSpace(string(part)), `"「」`), Source: SourceGemini}, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
