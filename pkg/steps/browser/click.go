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

// ClickFactory creates click steps bound to the session pool.
type ClickFactory struct {
	pool *browserpool.Pool
}

func NewClickFactory(pool *browserpool.Pool) *ClickFactory {
	return &ClickFactory{pool: pool}
}

func (f *ClickFactory) ID() string {
	return string(models.StepTypeClick)
}

func (f *ClickFactory) Name() string {
	return "Click"
}

func (f *ClickFactory) Description() string {
	return "Clicks the first element matching a CSS selector."
}

func (f *ClickFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"selector": map[string]any{
				"type":        "string",
				"description": "CSS selector of the element to click.",
			},
			"page":    pageProperty(),
			"timeout": timeoutProperty(),
		},
		"required":             []string{"selector"},
		"additionalProperties": false,
	}
}

func (f *ClickFactory) Create(config map[string]any) (protocol.Step, error) {
	selector, ok := config["selector"].(string)
	if !ok || selector == "" {
		return nil, fmt.Errorf("missing or invalid 'selector' in configuration")
	}

	return &ClickStep{
		pool:     f.pool,
		selector: selector,
		page:     pageNameFromConfig(config),
		timeout:  timeoutFromConfig(config),
	}, nil
}

type ClickStep struct {
	pool     *browserpool.Pool
	selector string
	page     string
	timeout  time.Duration
}

func (s *ClickStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	logger.InfoContext(ctx, "Clicking element", "selector", s.selector)

	err := runOnPage(ctx, s.pool, executionCtx, s.page, s.timeout,
		chromedp.Click(s.selector, chromedp.ByQuery),
	)
	if err != nil {
		return models.Failure(fmt.Sprintf("click on %q failed: %v", s.selector, err)), nil
	}

	return &models.StepOutput{Success: true}, nil
}
