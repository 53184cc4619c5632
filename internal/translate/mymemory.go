package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultMyMemoryURL is the free MyMemory translation endpoint
const DefaultMyMemoryURL = "https://api.mymemory.translated.net/get"

// MyMemory translates English to Traditional Chinese with the MyMemory API
type MyMemory struct {
	endpoint string
	langPair string
	client   *http.Client
}

// NewMyMemory creates a MyMemory translator. An empty endpoint uses
// DefaultMyMemoryURL.
func NewMyMemory(endpoint string) *MyMemory {
	if endpoint == "" {
		endpoint = DefaultMyMemoryURL
	}
	return &MyMemory{
		endpoint: endpoint,
		langPair: "en|zh-TW",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus  json.Number `json:"responseStatus"`
	ResponseDetails string      `json:"responseDetails"`
}

// Translate implements Translator
func (m *MyMemory) Translate(ctx context.Context, text string) (Result, error) {
	query := url.Values{}
	query.Set("q", text)
	query.Set("langpair", m.langPair)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("calling mymemory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("mymemory returned status %d", resp.StatusCode)
	}

	var data myMemoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Result{}, fmt.Errorf("decoding mymemory response: %w", err)
	}

	if status := data.ResponseStatus.String(); status != "" && status != "200" {
		return Result{}, fmt.Errorf("mymemory status %s: %s", status, data.ResponseDetails)
	}
	// quota and usage warnings are returned as the translation itself
	translated := strings.TrimSpace(data.ResponseData.TranslatedText)
	if translated == "" || strings.HasPrefix(strings.ToUpper(translated), "MYMEMORY WARNING") {
		return Result{}, ErrEmptyTranslation
	}
	return Result{Chinese: translated, Source: SourceMyMemory}, nil
}
