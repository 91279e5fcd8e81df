package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	browserpool "github.com/flowkite/flowkite/pkg/browser"
	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/protocol"
)

// NavigateFactory creates navigate steps bound to the session pool.
type NavigateFactory struct {
	pool *browserpool.Pool
}

func NewNavigateFactory(pool *browserpool.Pool) *NavigateFactory {
	return &NavigateFactory{pool: pool}
}

func (f *NavigateFactory) ID() string {
	return string(models.StepTypeNavigate)
}

func (f *NavigateFactory) Name() string {
	return "Navigate"
}

func (f *NavigateFactory) Description() string {
	return "Navigates the page to a URL and waits for the load event."
}

func (f *NavigateFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Destination URL. Supports {{name}} placeholders.",
				"examples":    []string{"https://example.com", "{{base_url}}/login"},
			},
			"page":    pageProperty(),
			"timeout": timeoutProperty(),
		},
		"required":             []string{"url"},
		"additionalProperties": false,
	}
}

func (f *NavigateFactory) Create(config map[string]any) (protocol.Step, error) {
	url, ok := config["url"].(string)
	if !ok || url == "" {
		return nil, fmt.Errorf("missing or invalid 'url' in configuration")
	}

	return &NavigateStep{
		pool:    f.pool,
		url:     url,
		page:    pageNameFromConfig(config),
		timeout: timeoutFromConfig(config),
	}, nil
}

// NavigateStep loads a URL in the execution's page.
type NavigateStep struct {
	pool    *browserpool.Pool
	url     string
	page    string
	timeout time.Duration
}

func (s *NavigateStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	logger = logger.With("module", "navigate_step")
	logger.InfoContext(ctx, "Navigating", "url", s.url)

	err := runOnPage(ctx, s.pool, executionCtx, s.page, s.timeout,
		chromedp.Navigate(s.url),
	)
	if err != nil {
		return models.Failure(fmt.Sprintf("navigation to %s failed: %v", s.url, err)), nil
	}

	return &models.StepOutput{
		Success: true,
		Result:  map[string]any{"url": s.url},
	}, nil
}
