package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultHuggingFaceURL   = "https://router.huggingface.co/hf-inference/models"
	defaultHuggingFaceModel = "HuggingFaceH4/zephyr-7b-beta"
)

// HuggingFace implements the Generator interface using the Hugging Face Inference API
type HuggingFace struct {
	token   string
	baseURL string
	model   string
	client  *http.Client
}

// NewHuggingFace creates a new HuggingFace Generator instance. baseURL may be
// empty to use the hosted inference router.
func NewHuggingFace(token, baseURL, modelName string) (*HuggingFace, error) {
	if token == "" {
		return nil, fmt.Errorf("hugging face token is required")
	}
	if baseURL == "" {
		baseURL = defaultHuggingFaceURL
	}
	if modelName == "" {
		modelName = defaultHuggingFaceModel
	}

	return &HuggingFace{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   modelName,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens   int  `json:"max_new_tokens"`
	ReturnFullText bool `json:"return_full_text"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

// Generate runs text generation and returns the generated continuation only
func (h *HuggingFace) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(hfRequest{
		Inputs: prompt,
		Parameters: hfParameters{
			MaxNewTokens:   maxNewTokens,
			ReturnFullText: false,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/%s", h.baseURL, h.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling hugging face API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("hugging face API error (status %d): %s", resp.StatusCode, string(body))
	}

	var generations []hfGeneration
	if err := json.Unmarshal(body, &generations); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(generations) == 0 {
		return "", fmt.Errorf("empty hugging face response")
	}

	return generations[0].GeneratedText, nil
}

// Close is a no-op for the HTTP client
func (h *HuggingFace) Close() error {
	return nil
}
