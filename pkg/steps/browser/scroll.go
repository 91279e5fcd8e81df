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

// ScrollFactory creates scroll steps bound to the session pool.
type ScrollFactory struct {
	pool *browserpool.Pool
}

func NewScrollFactory(pool *browserpool.Pool) *ScrollFactory {
	return &ScrollFactory{pool: pool}
}

func (f *ScrollFactory) ID() string {
	return string(models.StepTypeScroll)
}

func (f *ScrollFactory) Name() string {
	return "Scroll"
}

func (f *ScrollFactory) Description() string {
	return "Scrolls an element into view, or the page to its top or bottom."
}

func (f *ScrollFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"selector": map[string]any{
				"type":        "string",
				"description": "CSS selector to scroll into view. Takes precedence over 'to'.",
			},
			"to": map[string]any{
				"type":        "string",
				"description": "Page position when no selector is given.",
				"enum":        []string{"top", "bottom"},
				"default":     "bottom",
			},
			"page":    pageProperty(),
			"timeout": timeoutProperty(),
		},
		"additionalProperties": false,
	}
}

func (f *ScrollFactory) Create(config map[string]any) (protocol.Step, error) {
	selector, _ := config["selector"].(string)
	to, _ := config["to"].(string)

	if to != "" && to != "top" && to != "bottom" {
		return nil, fmt.Errorf("invalid 'to' value %q in configuration", to)
	}

	return &ScrollStep{
		pool:     f.pool,
		selector: selector,
		to:       to,
		page:     pageNameFromConfig(config),
		timeout:  timeoutFromConfig(config),
	}, nil
}

type ScrollStep struct {
	pool     *browserpool.Pool
	selector string
	to       string
	page     string
	timeout  time.Duration
}

func (s *ScrollStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	var action chromedp.Action

	switch {
	case s.selector != "":
		action = chromedp.ScrollIntoView(s.selector, chromedp.ByQuery)
	case s.to == "top":
		action = chromedp.Evaluate(`window.scrollTo(0, 0)`, nil)
	default:
		action = chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil)
	}

	err := runOnPage(ctx, s.pool, executionCtx, s.page, s.timeout, action)
	if err != nil {
		return models.Failure(fmt.Sprintf("scroll failed: %v", err)), nil
	}

	return &models.StepOutput{Success: true}, nil
}
