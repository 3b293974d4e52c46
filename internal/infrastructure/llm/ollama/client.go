package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
	"github.com/kirillkom/doc-classifier/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model string) *Client {
	return NewWithExecutor(baseURL, model, nil)
}

func NewWithExecutor(baseURL, model string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// Classifier asks the generation model to pick one of the fixed categories.
type Classifier struct {
	client *Client
}

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

func (c *Classifier) Predict(ctx context.Context, features domain.Features) (domain.Prediction, error) {
	if strings.TrimSpace(features.Text) == "" {
		return domain.Prediction{}, domain.WrapError(domain.ErrInference, "ollama classify", fmt.Errorf("empty text"))
	}

	respText, err := c.client.generateJSON(ctx, buildClassificationPrompt(features.Text))
	if err != nil {
		return domain.Prediction{}, domain.WrapError(domain.ErrInference, "ollama classify", err)
	}

	var result struct {
		Category   string   `json:"category"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &result); err != nil {
		return domain.Prediction{}, domain.WrapError(domain.ErrInference, "ollama classify", fmt.Errorf("parse classification json: %w", err))
	}
	return domain.Prediction{Label: result.Category, Confidence: result.Confidence}, nil
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}

	var response struct {
		Response string `json:"response"`
	}
	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/api/generate", reqBody, &response, "generate")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.generate", call, classifyError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", resilience.MarkTemporary("ollama generate", err, classifyError)
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
