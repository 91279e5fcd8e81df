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

// WaitForElementFactory creates wait-for-element steps bound to the session
// pool.
type WaitForElementFactory struct {
	pool *browserpool.Pool
}

func NewWaitForElementFactory(pool *browserpool.Pool) *WaitForElementFactory {
	return &WaitForElementFactory{pool: pool}
}

func (f *WaitForElementFactory) ID() string {
	return string(models.StepTypeWaitForElement)
}

func (f *WaitForElementFactory) Name() string {
	return "Wait For Element"
}

func (f *WaitForElementFactory) Description() string {
	return "Waits until an element reaches the requested state."
}

func (f *WaitForElementFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"selector": map[string]any{
				"type":        "string",
				"description": "CSS selector of the element to wait for.",
			},
			"state": map[string]any{
				"type":        "string",
				"description": "State to wait for.",
				"enum":        []string{"visible", "present", "hidden"},
				"default":     "visible",
			},
			"page":    pageProperty(),
			"timeout": timeoutProperty(),
		},
		"required":             []string{"selector"},
		"additionalProperties": false,
	}
}

func (f *WaitForElementFactory) Create(config map[string]any) (protocol.Step, error) {
	selector, ok := config["selector"].(string)
	if !ok || selector == "" {
		return nil, fmt.Errorf("missing or invalid 'selector' in configuration")
	}

	state, _ := config["state"].(string)
	if state == "" {
		state = "visible"
	}

	if state != "visible" && state != "present" && state != "hidden" {
		return nil, fmt.Errorf("invalid 'state' value %q in configuration", state)
	}

	return &WaitForElementStep{
		pool:     f.pool,
		selector: selector,
		state:    state,
		page:     pageNameFromConfig(config),
		timeout:  timeoutFromConfig(config),
	}, nil
}

type WaitForElementStep struct {
	pool     *browserpool.Pool
	selector string
	state    string
	page     string
	timeout  time.Duration
}

func (s *WaitForElementStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	logger.InfoContext(ctx, "Waiting for element", "selector", s.selector, "state", s.state)

	var action chromedp.Action

	switch s.state {
	case "present":
		action = chromedp.WaitReady(s.selector, chromedp.ByQuery)
	case "hidden":
		action = chromedp.WaitNotVisible(s.selector, chromedp.ByQuery)
	default:
		action = chromedp.WaitVisible(s.selector, chromedp.ByQuery)
	}

	err := runOnPage(ctx, s.pool, executionCtx, s.page, s.timeout, action)
	if err != nil {
		return models.Failure(fmt.Sprintf("element %q did not become %s: %v", s.selector, s.state, err)), nil
	}

	return &models.StepOutput{Success: true}, nil
}
