// Package translate fills in Traditional Chinese product names.
package translate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Source names the service a translation came from
type Source string

const (
	// SourceMyMemory is the free MyMemory API.
	SourceMyMemory Source = "mymemory"
	// SourceGemini is a Gemini text model.
	SourceGemini Source = "gemini"
	// SourceManual means no service produced a translation and the user has to
	// type one in.
	SourceManual Source = "manual"
)

// ErrEmptyTranslation is returned by a Translator that answered with nothing
var ErrEmptyTranslation = errors.New("empty translation")

// Result is a translated product name
type Result struct {
	Chinese string `json:"chinese"`
	Source  Source `json:"source"`
}

// Translator translates a product name to Traditional Chinese
type Translator interface {
	Translate(ctx context.Context, text string) (Result, error)
}

// Chain tries each translator in order and returns the first non-empty
// result. It never fails: when every translator fails the result is empty
// with SourceManual.
type Chain []Translator

// Translate implements Translator
func (c Chain) Translate(ctx context.Context, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Source: SourceManual}, nil
	}

	for _, t := range c {
		if t == nil {
			continue
		}
		res, err := t.Translate(ctx, text)
		if err != nil {
			slog.Warn("translation failed", "text", text, "error", err)
			continue
		}
		if res.Chinese = strings.TrimSpace(res.Chinese); res.Chinese != "" {
			return res, nil
		}
	}
	return Result{Source: SourceManual}, nil
}
