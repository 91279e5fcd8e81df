package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/protocol"
)

// WebhookFactory creates webhook steps.
type WebhookFactory struct{}

func NewWebhookFactory() *WebhookFactory {
	return &WebhookFactory{}
}

func (f *WebhookFactory) ID() string {
	return string(models.StepTypeWebhook)
}

func (f *WebhookFactory) Name() string {
	return "Webhook"
}

func (f *WebhookFactory) Description() string {
	return "POSTs a standard envelope with the execution's identity and a payload to a URL."
}

func (f *WebhookFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Webhook URL. Supports {{name}} placeholders.",
			},
			"payload": map[string]any{
				"description": "Arbitrary payload included in the envelope.",
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "Extra headers to send.",
				"additionalProperties": map[string]any{
					"type": "string",
				},
			},
			"timeout": map[string]any{
				"type":        "integer",
				"description": "Request timeout in seconds.",
				"default":     30,
				"minimum":     1,
			},
		},
		"required":             []string{"url"},
		"additionalProperties": false,
	}
}

func (f *WebhookFactory) Create(config map[string]any) (protocol.Step, error) {
	url, ok := config["url"].(string)
	if !ok || url == "" {
		return nil, fmt.Errorf("missing or invalid 'url' in configuration")
	}

	headers := make(map[string]string)

	if headersConfig, exists := config["headers"]; exists {
		if headersMap, ok := headersConfig.(map[string]any); ok {
			for key, value := range headersMap {
				if strValue, ok := value.(string); ok {
					headers[key] = strValue
				}
			}
		}
	}

	timeout := defaultRequestTimeout
	if seconds, ok := config["timeout"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	return &WebhookStep{
		url:     url,
		payload: config["payload"],
		headers: headers,
		timeout: timeout,
	}, nil
}

// WebhookStep is http-request specialized to POST a fixed envelope carrying
// the execution id, workflow id, payload and timestamp.
type WebhookStep struct {
	url     string
	payload any
	headers map[string]string
	timeout time.Duration
}

func (s *WebhookStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	logger = logger.With("module", "webhook_step")
	logger.InfoContext(ctx, "Delivering webhook", "url", s.url)

	envelope := map[string]any{
		"execution_id": executionCtx.ExecutionID,
		"workflow_id":  executionCtx.WorkflowID,
		"payload":      s.payload,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return models.Failure(fmt.Sprintf("failed to marshal webhook envelope: %v", err)), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return models.Failure(fmt.Sprintf("failed to create webhook request: %v", err)), nil
	}

	req.Header.Set("Content-Type", "application/json")

	for key, value := range s.headers {
		req.Header.Set(key, value)
	}

	client := &http.Client{Timeout: s.timeout}

	resp, err := client.Do(req)
	if err != nil {
		return models.Failure(fmt.Sprintf("webhook delivery failed: %v", err)), nil
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return models.Failure(fmt.Sprintf("webhook endpoint answered with status %d", resp.StatusCode)), nil
	}

	return &models.StepOutput{
		Success: true,
		Result:  map[string]any{"status_code": resp.StatusCode},
	}, nil
}
