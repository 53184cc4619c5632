package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zombor/travel-inventory/internal/interpret"
)

// Ollama implements the Scanner interface using Ollama
type Ollama struct {
	baseURL     string
	model       string
	client      *http.Client
	interpreter *interpret.Interpreter
}

// NewOllama creates a new Ollama Scanner instance
// Recommended models for receipt scanning:
//   - qwen2.5vl (reads CJK receipts well)
//   - llava:1.6
//   - llava-phi3 (smaller, faster, but less accurate)
func NewOllama(baseURL, modelName string, interpreter *interpret.Interpreter) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llava"
	}

	return &Ollama{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       modelName,
		interpreter: interpreter,
		client: &http.Client{
			Timeout: 120 * time.Second, // vision models are slow on CPU
		},
	}
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// ScanReceipt sends the receipt image to Ollama's chat API and decodes its reply
func (o *Ollama) ScanReceipt(imageData []byte, contentType string) (*interpret.ParsedReceipt, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	pngData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, err
	}

	reqBody := ollamaChatRequest{
		Model:  o.model,
		Stream: false,
		Format: "json",
		Messages: []ollamaMessage{
			{
				Role:    "system",
				Content: "You read receipts from shops in Asia and report their contents as JSON.",
			},
			{
				Role:    "user",
				Content: interpret.AIPrompt,
				Images:  []string{base64.StdEncoding.EncodeToString(pngData)},
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	receipt, err := o.interpreter.DecodeAIReceipt(chatResp.Message.Content, "")
	if err != nil {
		return nil, fmt.Errorf("parsing receipt data: %w", err)
	}
	return receipt, nil
}

// Close is a no-op for the HTTP client
func (o *Ollama) Close() error {
	return nil
}
