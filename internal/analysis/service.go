package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/splitmate/internal/receipt"
	"github.com/zombor/splitmate/internal/scanning"
	"github.com/zombor/splitmate/internal/split"
)

// ErrNoParticipants is returned when a split is requested without any names
var ErrNoParticipants = errors.New("at least one name is required")

// Suggester proposes a split of a parsed receipt
type Suggester interface {
	Suggest(ctx context.Context, parsed receipt.ParsedReceipt, instruction string, names []string) (*split.Suggestion, error)
}

// IDGenerator generates unique IDs for analyses
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now().UTC()
}

// Service runs uploads through OCR, parsing and splitting, and keeps the results
type Service struct {
	db          DB
	detector    scanning.TextDetector
	suggester   Suggester
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, detector scanning.TextDetector, suggester Suggester, storage Storage) *Service {
	return NewServiceWithDeps(db, detector, suggester, storage, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, detector scanning.TextDetector, suggester Suggester, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		detector:    detector,
		suggester:   suggester,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters and shortens long phone-generated names
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	ext := strings.ToLower(unsafeFilenameChars.ReplaceAllString(filepath.Ext(filename), ""))
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = strings.TrimSpace(repeatedSpaces.ReplaceAllString(base, " "))

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	if ext != "" {
		ext = "." + ext
	}

	return base + ext
}

// Analyze stores the upload, reads its text, parses it and suggests a split.
// The stored upload is removed again if any later step fails.
func (s *Service) Analyze(ctx context.Context, filename string, data []byte, contentType, instruction string, names []string) (*Analysis, error) {
	if len(names) == 0 {
		return nil, ErrNoParticipants
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	key, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	text, err := s.detector.DetectText(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to detect text",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.removeUpload(key)
		if errors.Is(err, scanning.ErrUnreadableImage) {
			return nil, err
		}
		return nil, &UpstreamError{Stage: "detecting text", Err: err}
	}

	parsed := receipt.Parse(text)

	suggestion, err := s.Suggest(ctx, parsed, instruction, names)
	if err != nil {
		s.removeUpload(key)
		return nil, err
	}

	analysis := &Analysis{
		ID:          id,
		Filename:    key,
		ContentType: contentType,
		Instruction: instruction,
		Names:       names,
		Text:        text,
		Parsed:      parsed,
		Suggestion:  suggestion,
		CreatedAt:   now,
	}

	if err := s.db.SaveAnalysis(analysis); err != nil {
		s.removeUpload(key)
		return nil, fmt.Errorf("saving analysis to database: %w", err)
	}

	slog.Info("Analyzed receipt",
		"id", id,
		"items", len(parsed.Items),
		"total", parsed.Total.StringFixed(2),
		"source", suggestion.Source,
	)

	return analysis, nil
}

// ParseText parses OCR text without storing anything
func (s *Service) ParseText(text string) receipt.ParsedReceipt {
	return receipt.Parse(text)
}

// Suggest proposes a split for an already parsed receipt
func (s *Service) Suggest(ctx context.Context, parsed receipt.ParsedReceipt, instruction string, names []string) (*split.Suggestion, error) {
	if len(names) == 0 {
		return nil, ErrNoParticipants
	}

	suggestion, err := s.suggester.Suggest(ctx, parsed, instruction, names)
	if err != nil {
		slog.Error("Failed to suggest split", "participants", len(names), "error", err)
		return nil, &UpstreamError{Stage: "suggesting split", Err: err}
	}
	return suggestion, nil
}

// GetAnalysis retrieves an analysis by ID
func (s *Service) GetAnalysis(id string) (*Analysis, error) {
	analysis, err := s.db.GetAnalysis(id)
	if err != nil {
		return nil, fmt.Errorf("getting analysis: %w", err)
	}
	return analysis, nil
}

// ListAnalyses returns all analyses, newest first
func (s *Service) ListAnalyses() ([]*Analysis, error) {
	analyses, err := s.db.ListAnalyses()
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	slices.SortStableFunc(analyses, func(a, b *Analysis) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return analyses, nil
}

// DeleteAnalysis removes an analysis and its upload
func (s *Service) DeleteAnalysis(id string) error {
	analysis, err := s.db.GetAnalysis(id)
	if err != nil {
		return fmt.Errorf("getting analysis for deletion: %w", err)
	}

	if err := s.storage.Delete(analysis.Filename); err != nil {
		slog.Warn("Failed to delete file", "filename", analysis.Filename, "error", err)
	}

	if err := s.db.DeleteAnalysis(id); err != nil {
		return fmt.Errorf("deleting analysis from database: %w", err)
	}
	return nil
}

// GetAnalysisFile returns the original upload and its content type
func (s *Service) GetAnalysisFile(id string) ([]byte, string, error) {
	analysis, err := s.db.GetAnalysis(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting analysis: %w", err)
	}

	data, err := s.storage.Get(analysis.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting analysis file: %w", err)
	}

	return data, analysis.ContentType, nil
}

func (s *Service) removeUpload(key string) {
	if err := s.storage.Delete(key); err != nil {
		slog.Warn("Failed to remove upload", "filename", key, "error", err)
	}
}
