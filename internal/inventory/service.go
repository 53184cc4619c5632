package inventory

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/travel-inventory/internal/interpret"
	"github.com/zombor/travel-inventory/internal/money"
	"github.com/zombor/travel-inventory/internal/scanning"
	"github.com/zombor/travel-inventory/internal/translate"
)

// IDGenerator generates unique IDs for records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type systemTime struct{}

func (systemTime) Now() time.Time {
	return time.Now()
}

// Service handles inventory operations
type Service struct {
	db           DB
	scanner      scanning.Scanner
	storage      Storage
	interpreter  *interpret.Interpreter
	translator   translate.Translator
	homeCurrency string
	idGenerator  IDGenerator
	timeSource   TimeSource
}

// Deps are the collaborators of a Service. Scanner and Translator may be nil
// when no recognizer or translation service is configured.
type Deps struct {
	DB          DB
	Scanner     scanning.Scanner
	Storage     Storage
	Interpreter *interpret.Interpreter
	Translator  translate.Translator
	// HomeCurrency is used until the user saves a home currency setting
	HomeCurrency string
	IDGenerator  IDGenerator
	TimeSource   TimeSource
}

// NewService creates a new Service. Missing ID generators and clocks default
// to random UUIDs and the system clock.
func NewService(deps Deps) *Service {
	s := &Service{
		db:           deps.DB,
		scanner:      deps.Scanner,
		storage:      deps.Storage,
		interpreter:  deps.Interpreter,
		translator:   deps.Translator,
		homeCurrency: deps.HomeCurrency,
		idGenerator:  deps.IDGenerator,
		timeSource:   deps.TimeSource,
	}
	if s.idGenerator == nil {
		s.idGenerator = uuidGenerator{}
	}
	if s.timeSource == nil {
		s.timeSource = systemTime{}
	}
	if s.interpreter == nil {
		s.interpreter = interpret.New(interpret.DefaultConfig(), s.timeSource)
	}
	if s.homeCurrency == "" {
		s.homeCurrency = interpret.DefaultConfig().HomeCurrency
	}
	return s
}

func (s *Service) today() string {
	return s.timeSource.Now().Format(dateLayout)
}

var (
	filenameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	filenameSpaces = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = filenameUnsafe.ReplaceAllString(base, "")
	base = strings.TrimSpace(filenameSpaces.ReplaceAllString(base, "_"))

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	if filenameUnsafe.MatchString(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	return base + ext
}

// contentTypeFor guesses the MIME type of a stored receipt from its extension
func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// ScanReceipt stores the uploaded image, runs the configured scanner on it and
// returns the result as a draft for review. Nothing is saved to the database.
func (s *Service) ScanReceipt(filename string, data []byte, contentType string) (*Draft, error) {
	if s.scanner == nil {
		return nil, fmt.Errorf("no receipt scanner configured: %w", ErrInvalid)
	}

	key := fmt.Sprintf("%s_%s", s.idGenerator.Generate(), sanitizeFilename(filename))
	savedKey, err := s.storage.Save(key, data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	receipt, err := s.scanner.ScanReceipt(data, contentType)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.discardFile(savedKey)
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	if err := s.applyHomeCurrency(receipt); err != nil {
		s.discardFile(savedKey)
		return nil, err
	}

	return &Draft{Receipt: receipt, ReceiptFile: savedKey, ContentType: contentType}, nil
}

// discardFile removes a stored upload that will never be referenced
func (s *Service) discardFile(key string) {
	if err := s.storage.Delete(key); err != nil {
		slog.Warn("Failed to delete file", "filename", key, "error", err)
	}
}

// InterpretText interprets text recognized elsewhere, e.g. by the phone's own
// OCR, using the home currency setting as the currency default.
func (s *Service) InterpretText(text string) (*interpret.ParsedReceipt, error) {
	settings, err := s.GetSettings()
	if err != nil {
		return nil, err
	}
	return s.interpreter.Interpret(text, settings.HomeCurrency), nil
}

// applyHomeCurrency replaces a defaulted currency with the user's setting
func (s *Service) applyHomeCurrency(receipt *interpret.ParsedReceipt) error {
	if receipt.Sources.Currency != interpret.Defaulted {
		return nil
	}
	settings, err := s.GetSettings()
	if err != nil {
		return err
	}
	receipt.Currency = settings.HomeCurrency
	return nil
}

// GetReceiptFile retrieves a stored receipt image
func (s *Service) GetReceiptFile(key string) ([]byte, string, error) {
	data, err := s.storage.Get(key)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}
	return data, contentTypeFor(key), nil
}

// GetSettings returns the stored settings merged over the defaults
func (s *Service) GetSettings() (Settings, error) {
	settings := DefaultSettings(s.homeCurrency)

	fields := map[string]any{
		settingHomeCurrency:  &settings.HomeCurrency,
		settingGeminiModel:   &settings.GeminiModel,
		settingExchangeRates: &settings.ExchangeRates,
	}
	for key, dst := range fields {
		if err := s.db.GetSetting(key, dst); err != nil && !errors.Is(err, ErrNotFound) {
			return Settings{}, fmt.Errorf("getting settings: %w", err)
		}
	}

	if settings.HomeCurrency == "" {
		settings.HomeCurrency = money.Code(s.homeCurrency)
	}
	if settings.ExchangeRates == nil {
		settings.ExchangeRates = money.Rates{}
	}
	return settings, nil
}

// UpdateSettings validates and stores the settings
func (s *Service) UpdateSettings(settings Settings) (Settings, error) {
	settings.HomeCurrency = money.Code(settings.HomeCurrency)
	if len(settings.HomeCurrency) != 3 {
		return Settings{}, fmt.Errorf("home currency must be a 3-letter code: %w", ErrInvalid)
	}
	settings.GeminiModel = strings.TrimSpace(settings.GeminiModel)
	settings.ExchangeRates = settings.ExchangeRates.Normalize()

	values := map[string]any{
		settingHomeCurrency:  settings.HomeCurrency,
		settingGeminiModel:   settings.GeminiModel,
		settingExchangeRates: settings.ExchangeRates,
	}
	for key, v := range values {
		if err := s.db.SetSetting(key, v); err != nil {
			return Settings{}, fmt.Errorf("saving setting %s: %w", key, err)
		}
	}
	return settings, nil
}
