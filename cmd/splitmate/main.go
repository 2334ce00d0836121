package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/splitmate/internal/analysis"
	"github.com/zombor/splitmate/internal/llm"
	"github.com/zombor/splitmate/internal/scanning"
	"github.com/zombor/splitmate/internal/split"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

const shutdownTimeout = 10 * time.Second

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	fs := ff.NewFlagSet("splitmate")
	var (
		port           = fs.IntLong("port", 8000, "HTTP server port")
		dbPath         = fs.StringLong("db", "splitmate.db", "Database file path")
		storagePath    = fs.StringLong("storage", "./uploads", "Upload storage directory path")
		ocrType        = fs.StringLong("ocr", "tesseract", "OCR engine: 'tesseract' or 'gemini'")
		tessdataPrefix = fs.StringLong("tessdata-prefix", "", "Tesseract tessdata directory (defaults to TESSDATA_PREFIX)")
		ocrLanguages   = fs.StringLong("ocr-languages", "eng", "Tesseract languages joined with '+', e.g. eng+deu")
		generatorType  = fs.StringLong("generator", "huggingface", "Fallback model: 'huggingface', 'gemini', 'ollama' or 'none'")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "llama3.1", "Ollama model name")
		hfToken        = fs.StringLong("hf-token", "", "Hugging Face API token (or set HUGGINGFACE_HUB_TOKEN env var)")
		hfURL          = fs.StringLong("hf-url", "", "Hugging Face inference base URL")
		hfModel        = fs.StringLong("hf-model", "HuggingFaceH4/zephyr-7b-beta", "Hugging Face model name")
		maxUploadMB    = fs.IntLong("max-upload-mb", 50, "Maximum upload size in megabytes")
		_              = fs.StringLong("config", "", "Config file (optional)")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SPLITMATE"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithConfigAllowMissingFile(),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	slog.Info("Initializing database...")
	db, err := analysis.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("Initializing storage...")
	store, err := analysis.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	apiKey := *geminiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}

	var ocr scanning.TextDetector
	switch *ocrType {
	case "tesseract":
		languages := strings.Split(*ocrLanguages, "+")
		slog.Info("Initializing Tesseract OCR...", "languages", languages)
		ocr = scanning.NewTesseract(*tessdataPrefix, languages...)
	case "gemini":
		slog.Info("Initializing Gemini OCR...", "model", *geminiModel)
		ocr, err = scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini OCR. Set --gemini-key flag or GEMINI_API_KEY environment variable", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid OCR engine", "type", *ocrType, "valid", "tesseract or gemini")
		os.Exit(1)
	}
	detector := scanning.NewPDFText(ocr)
	defer detector.Close()

	var generator llm.Generator
	switch *generatorType {
	case "huggingface":
		token := *hfToken
		if token == "" {
			token = os.Getenv("HUGGINGFACE_HUB_TOKEN")
		}
		slog.Info("Initializing Hugging Face generator...", "model", *hfModel)
		generator, err = llm.NewHuggingFace(token, *hfURL, *hfModel)
		if err != nil {
			slog.Error("Failed to initialize Hugging Face. Set --hf-token flag or HUGGINGFACE_HUB_TOKEN environment variable", "error", err)
			os.Exit(1)
		}
	case "gemini":
		slog.Info("Initializing Gemini generator...", "model", *geminiModel)
		generator, err = llm.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini generator", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama generator...", "url", *ollamaURL, "model", *ollamaModel)
		generator, err = llm.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	case "none":
		slog.Warn("No fallback generator; only explicit percent instructions can be split")
	default:
		slog.Error("Invalid generator", "type", *generatorType, "valid", "huggingface, gemini, ollama or none")
		os.Exit(1)
	}
	if generator != nil {
		defer generator.Close()
	}

	service := analysis.NewService(db, detector, split.NewAllocator(generator), store)
	server := analysis.NewServer(service, int64(*maxUploadMB)<<20)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", httpServer.Addr), "version", version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Failed to shut down cleanly", "error", err)
	}
}
