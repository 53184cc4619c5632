package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/zombor/travel-inventory/internal/interpret"
)

// DefaultGeminiModel is used when no model name is configured
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini implements the Scanner interface using Google Gemini
type Gemini struct {
	client      *genai.Client
	model       *genai.GenerativeModel
	interpreter *interpret.Interpreter
}

// NewGemini creates a new Gemini Scanner instance
func NewGemini(apiKey, modelName string, interpreter *interpret.Interpreter) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client:      client,
		model:       client.GenerativeModel(modelName),
		interpreter: interpreter,
	}, nil
}

// ScanReceipt sends the receipt image to Gemini and decodes its JSON reply
func (g *Gemini) ScanReceipt(imageData []byte, contentType string) (*interpret.ParsedReceipt, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pngData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, err
	}

	// genai.ImageData takes the format suffix, not the MIME type
	resp, err := g.model.GenerateContent(ctx,
		genai.ImageData("png", pngData),
		genai.Text(interpret.AIPrompt),
	)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("no response from gemini: %w", interpret.ErrNoStructure)
	}

	receipt, err := g.interpreter.DecodeAIReceipt(text, "")
	if err != nil {
		return nil, fmt.Errorf("parsing receipt data: %w", err)
	}
	return receipt, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}

// responseText joins the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String())
}
