package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/travel-inventory/internal/interpret"
	"github.com/zombor/travel-inventory/internal/inventory"
	"github.com/zombor/travel-inventory/internal/scanning"
	"github.com/zombor/travel-inventory/internal/translate"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	fs := ff.NewFlagSet("travel-inventory")
	var (
		port         = fs.IntLong("port", 8080, "HTTP server port")
		dbPath       = fs.StringLong("db", "travel-inventory.db", "Database file path")
		storageType  = fs.StringLong("storage", "local", "Receipt image storage: 'local' or 's3'")
		storagePath  = fs.StringLong("storage-dir", "./receipts", "Storage directory path for local storage")
		s3Endpoint   = fs.StringLong("s3-endpoint", "localhost:9000", "S3 endpoint host:port")
		s3AccessKey  = fs.StringLong("s3-access-key", "", "S3 access key")
		s3SecretKey  = fs.StringLong("s3-secret-key", "", "S3 secret key")
		s3Bucket     = fs.StringLong("s3-bucket", "receipts", "S3 bucket name")
		s3Region     = fs.StringLong("s3-region", "us-east-1", "S3 region")
		s3Prefix     = fs.StringLong("s3-prefix", "", "Prefix for object names")
		s3SSL        = fs.BoolLong("s3-ssl", "Use TLS for S3")
		scannerType  = fs.StringLong("scanner", "tesseract", "Scanner type: 'tesseract', 'gemini' or 'ollama'")
		ocrLangs     = fs.StringLong("ocr-langs", strings.Join(scanning.DefaultLanguages, ","), "Comma-separated Tesseract languages")
		geminiKey    = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel  = fs.StringLong("gemini-model", scanning.DefaultGeminiModel, "Google Gemini model name")
		ollamaURL    = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel  = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, qwen2-vl)")
		myMemoryURL  = fs.StringLong("mymemory-url", translate.DefaultMyMemoryURL, "MyMemory translation endpoint, empty to disable")
		keywords     = fs.StringLong("keywords", "", "YAML file extending the receipt keyword tables")
		homeCurrency = fs.StringLong("home-currency", "HKD", "Home currency used until one is saved in settings")
		authUser     = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass     = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion  = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("TRAVEL_INVENTORY"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	ctx := context.Background()

	cfg, err := interpret.LoadConfig(*keywords)
	if err != nil {
		slog.Error("Failed to load keyword tables", "path", *keywords, "error", err)
		os.Exit(1)
	}
	cfg = cfg.Merge(interpret.Config{HomeCurrency: *homeCurrency})
	interpreter := interpret.New(cfg, nil)

	slog.Info("Initializing database...")
	db, err := inventory.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	apiKey := *geminiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}

	var scanner scanning.Scanner
	switch *scannerType {
	case "tesseract":
		var langs []string
		for _, lang := range strings.Split(*ocrLangs, ",") {
			if lang = strings.TrimSpace(lang); lang != "" {
				langs = append(langs, lang)
			}
		}
		slog.Info("Initializing Tesseract scanner...", "languages", langs)
		scanner, err = scanning.NewTesseract(interpreter, langs...)
		if err != nil {
			slog.Error("Failed to initialize Tesseract", "error", err)
			os.Exit(1)
		}
	case "gemini":
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini scanner...", "model", *geminiModel)
		scanner, err = scanning.NewGemini(apiKey, *geminiModel, interpreter)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", *ollamaURL, "model", *ollamaModel)
		scanner = scanning.NewOllama(*ollamaURL, *ollamaModel, interpreter)
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "tesseract, gemini or ollama")
		os.Exit(1)
	}
	defer scanner.Close()

	var translators translate.Chain
	if *myMemoryURL != "" {
		translators = append(translators, translate.NewMyMemory(*myMemoryURL))
	}
	if apiKey != "" {
		gemini, err := translate.NewGemini(ctx, apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini translator", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		translators = append(translators, gemini)
	}

	slog.Info("Initializing storage...", "type", *storageType)
	var store inventory.Storage
	switch *storageType {
	case "local":
		store, err = inventory.NewLocalStorage(*storagePath)
	case "s3":
		store, err = inventory.NewS3Storage(ctx, inventory.S3Config{
			Endpoint:  *s3Endpoint,
			AccessKey: *s3AccessKey,
			SecretKey: *s3SecretKey,
			Bucket:    *s3Bucket,
			Region:    *s3Region,
			UseSSL:    *s3SSL,
			Prefix:    *s3Prefix,
		})
	default:
		err = fmt.Errorf("unknown storage type %q", *storageType)
	}
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	service := inventory.NewService(inventory.Deps{
		DB:           db,
		Scanner:      scanner,
		Storage:      store,
		Interpreter:  interpreter,
		Translator:   translators,
		HomeCurrency: cfg.HomeCurrency,
	})

	server := inventory.NewServer(service, inventory.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	})

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
