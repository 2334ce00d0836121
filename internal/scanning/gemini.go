package scanning

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// transcribePrompt asks for plain OCR output, not interpretation
const transcribePrompt = `Transcribe all text in this receipt or invoice image exactly as printed.

Rules:
- Output one printed row per line, top to bottom
- Keep an item name and its price on the same line when they are printed on the same row
- Keep prices exactly as printed, including the decimal point and any minus sign
- Do not summarize, translate, correct, or add any text of your own
- Do not use markdown
- If there is no text, output nothing`

// Gemini implements the TextDetector interface using a Google Gemini vision model
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini TextDetector instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// DetectText transcribes the receipt text
func (g *Gemini) DetectText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	pngData, err := preparePNG(imageData, contentType)
	if err != nil {
		return "", err
	}

	// genai.ImageData expects the format suffix ("png"), not the MIME type
	resp, err := g.model.GenerateContent(ctx,
		genai.ImageData("png", pngData),
		genai.Text(transcribePrompt),
	)
	if err != nil {
		return "", &OCRError{Engine: "gemini", Message: err.Error()}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	return stripCodeFence(text.String()), nil
}

// stripCodeFence removes a markdown fence the model may add despite the prompt
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimSuffix(text, "```")
	if _, rest, found := strings.Cut(text, "\n"); found {
		return strings.TrimSpace(rest)
	}
	return ""
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
