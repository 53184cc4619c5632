package scanning

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/zombor/travel-inventory/internal/interpret"
)

// DefaultLanguages covers the receipts the tracker sees most: English,
// Traditional Chinese and Korean.
var DefaultLanguages = []string{"eng", "chi_tra", "kor"}

// OCREngine is the part of a gosseract client the Tesseract scanner uses
type OCREngine interface {
	SetImageFromBytes(data []byte) error
	Text() (string, error)
	Close() error
}

// Tesseract implements the Scanner interface with local OCR followed by the
// heuristic interpreter. It never calls out to a network service.
type Tesseract struct {
	mu          sync.Mutex
	engine      OCREngine
	interpreter *interpret.Interpreter
}

// NewTesseract creates a Tesseract scanner using a gosseract client
func NewTesseract(interpreter *interpret.Interpreter, languages ...string) (*Tesseract, error) {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting OCR languages: %w", err)
	}
	// PSM 6 = Assume a single uniform block of text
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting page segmentation mode: %w", err)
	}

	return NewTesseractWithEngine(client, interpreter), nil
}

// NewTesseractWithEngine creates a Tesseract scanner around an existing engine
func NewTesseractWithEngine(engine OCREngine, interpreter *interpret.Interpreter) *Tesseract {
	return &Tesseract{engine: engine, interpreter: interpreter}
}

// Recognize preprocesses the image and returns the raw OCR text
func (t *Tesseract) Recognize(imageData []byte, contentType string) (string, error) {
	img, err := decodeImage(imageData, normalizeMimeType(contentType))
	if err != nil {
		return "", err
	}
	pngData, err := encodePNG(Preprocess(img))
	if err != nil {
		return "", err
	}

	// a gosseract client holds one image at a time
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.engine.SetImageFromBytes(pngData); err != nil {
		return "", fmt.Errorf("setting OCR image: %w", err)
	}
	text, err := t.engine.Text()
	if err != nil {
		return "", fmt.Errorf("extracting text: %w", err)
	}
	return text, nil
}

// ScanReceipt runs OCR and interprets the recognized text
func (t *Tesseract) ScanReceipt(imageData []byte, contentType string) (*interpret.ParsedReceipt, error) {
	text, err := t.Recognize(imageData, contentType)
	if err != nil {
		return nil, err
	}
	slog.Debug("recognized receipt text", "chars", len(text))
	return t.interpreter.Interpret(text, ""), nil
}

// Close releases the OCR engine
func (t *Tesseract) Close() error {
	return t.engine.Close()
}
