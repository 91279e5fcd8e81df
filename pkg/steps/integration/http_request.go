// Package integration provides the outbound integration step family:
// http-request, webhook and send-email.
package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/protocol"
)

const defaultRequestTimeout = 30 * time.Second

// ErrHTTPServerError is returned internally when the server answers with a
// 5xx status and attempts remain.
var ErrHTTPServerError = errors.New("server error during HTTP request")

// RetryConfig defines retry behavior for HTTP requests.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// HTTPRequestFactory creates http-request steps.
type HTTPRequestFactory struct{}

func NewHTTPRequestFactory() *HTTPRequestFactory {
	return &HTTPRequestFactory{}
}

func (f *HTTPRequestFactory) ID() string {
	return string(models.StepTypeHTTPRequest)
}

func (f *HTTPRequestFactory) Name() string {
	return "HTTP Request"
}

func (f *HTTPRequestFactory) Description() string {
	return "Performs an HTTP request and stores the decoded body and status code in variables."
}

func (f *HTTPRequestFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Request URL. Supports {{name}} placeholders.",
				"examples":    []string{"https://api.example.com/users", "{{api_base}}/orders/{{order_id}}"},
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method.",
				"default":     "GET",
				"enum":        []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"},
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "Headers to send. Values support {{name}} placeholders.",
				"additionalProperties": map[string]any{
					"type": "string",
				},
			},
			"body": map[string]any{
				"type":        "string",
				"format":      "code",
				"description": "Request body content.",
			},
			"response_variable": map[string]any{
				"type":        "string",
				"description": "Variable name the decoded response body is stored under.",
				"default":     "response",
			},
			"status_variable": map[string]any{
				"type":        "string",
				"description": "Variable name the response status code is stored under.",
				"default":     "response_status",
			},
			"timeout": map[string]any{
				"type":        "integer",
				"description": "Request timeout in seconds.",
				"default":     30,
				"minimum":     1,
			},
			"retry": map[string]any{
				"type":        "object",
				"description": "Retry configuration for failed requests.",
				"properties": map[string]any{
					"attempts": map[string]any{
						"type":    "integer",
						"minimum": 1,
						"maximum": 5,
					},
					"delay": map[string]any{
						"type":        "integer",
						"description": "Delay between attempts in seconds.",
						"minimum":     0,
					},
				},
			},
		},
		"required":             []string{"url"},
		"additionalProperties": false,
	}
}

func (f *HTTPRequestFactory) Create(config map[string]any) (protocol.Step, error) {
	return newHTTPRequestStep(config)
}

// HTTPRequestStep performs the call with retry on transport errors and 5xx
// responses, attempts JSON decoding of the body with a text fallback, and
// stores the payload and status code under caller-specified variable names.
type HTTPRequestStep struct {
	url              string
	method           string
	headers          map[string]string
	body             string
	responseVariable string
	statusVariable   string
	timeout          time.Duration
	retry            RetryConfig
}

func newHTTPRequestStep(config map[string]any) (*HTTPRequestStep, error) {
	url, ok := config["url"].(string)
	if !ok || url == "" {
		return nil, fmt.Errorf("missing or invalid 'url' in configuration")
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodGet
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

	body, _ := config["body"].(string)

	responseVariable, _ := config["response_variable"].(string)
	if responseVariable == "" {
		responseVariable = "response"
	}

	statusVariable, _ := config["status_variable"].(string)
	if statusVariable == "" {
		statusVariable = "response_status"
	}

	timeout := defaultRequestTimeout
	if seconds, ok := config["timeout"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	retry := RetryConfig{Attempts: 1}

	if retryConfig, exists := config["retry"]; exists {
		if retryMap, ok := retryConfig.(map[string]any); ok {
			if attempts, ok := retryMap["attempts"].(float64); ok && attempts >= 1 {
				retry.Attempts = int(attempts)
			}

			if delay, ok := retryMap["delay"].(float64); ok && delay >= 0 {
				retry.Delay = time.Duration(delay) * time.Second
			}
		}
	}

	return &HTTPRequestStep{
		url:              url,
		method:           strings.ToUpper(method),
		headers:          headers,
		body:             body,
		responseVariable: responseVariable,
		statusVariable:   statusVariable,
		timeout:          timeout,
		retry:            retry,
	}, nil
}

func (s *HTTPRequestStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	logger = logger.With("module", "http_request_step")
	logger.InfoContext(ctx, "Executing HTTP request", "method", s.method, "url", s.url)

	var (
		lastErr error
		resp    *http.Response
	)

	for attempt := 1; attempt <= s.retry.Attempts; attempt++ {
		if attempt > 1 {
			logger.InfoContext(ctx, fmt.Sprintf("HTTP request retry attempt %d/%d", attempt, s.retry.Attempts))
			time.Sleep(s.retry.Delay)
		}

		req, err := http.NewRequestWithContext(ctx, s.method, s.url, strings.NewReader(s.body))
		if err != nil {
			lastErr = fmt.Errorf("failed to create http request: %w", err)

			continue
		}

		for key, value := range s.headers {
			req.Header.Set(key, value)
		}

		client := &http.Client{Timeout: s.timeout}

		resp, err = client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request failed: %w", err)

			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError && attempt < s.retry.Attempts {
			if err := resp.Body.Close(); err != nil {
				logger.ErrorContext(ctx, "failed to close response body", "error", err)
			}

			lastErr = fmt.Errorf("server error (status %d), retrying: %w", resp.StatusCode, ErrHTTPServerError)
			resp = nil

			continue
		}

		break
	}

	if resp == nil {
		return models.Failure(fmt.Sprintf("all retry attempts failed, last error: %v", lastErr)), nil
	}

	return s.processResponse(ctx, resp, logger)
}

func (s *HTTPRequestStep) processResponse(ctx context.Context, resp *http.Response, logger *slog.Logger) (*models.StepOutput, error) {
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Failure(fmt.Sprintf("failed to read response body: %v", err)), nil
	}

	// JSON first, plain text fallback.
	var body any

	if err := json.Unmarshal(bodyBytes, &body); err != nil {
		body = string(bodyBytes)
	}

	logger.InfoContext(ctx, fmt.Sprintf("HTTP request completed with status %d, body length: %d",
		resp.StatusCode, len(bodyBytes)))

	return &models.StepOutput{
		Success: true,
		Result: map[string]any{
			"status_code": resp.StatusCode,
			"body":        body,
		},
		Variables: map[string]any{
			s.responseVariable: body,
			s.statusVariable:   resp.StatusCode,
		},
	}, nil
}
