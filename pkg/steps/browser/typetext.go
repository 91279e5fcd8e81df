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

// TypeFactory creates type steps bound to the session pool.
type TypeFactory struct {
	pool *browserpool.Pool
}

func NewTypeFactory(pool *browserpool.Pool) *TypeFactory {
	return &TypeFactory{pool: pool}
}

func (f *TypeFactory) ID() string {
	return string(models.StepTypeType)
}

func (f *TypeFactory) Name() string {
	return "Type"
}

func (f *TypeFactory) Description() string {
	return "Types text into the element matching a CSS selector."
}

func (f *TypeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"selector": map[string]any{
				"type":        "string",
				"description": "CSS selector of the input element.",
			},
			"text": map[string]any{
				"type":        "string",
				"description": "Text to type. Supports {{name}} placeholders.",
			},
			"clear": map[string]any{
				"type":        "boolean",
				"description": "Clear the element's current value first.",
				"default":     false,
			},
			"page":    pageProperty(),
			"timeout": timeoutProperty(),
		},
		"required":             []string{"selector", "text"},
		"additionalProperties": false,
	}
}

func (f *TypeFactory) Create(config map[string]any) (protocol.Step, error) {
	selector, ok := config["selector"].(string)
	if !ok || selector == "" {
		return nil, fmt.Errorf("missing or invalid 'selector' in configuration")
	}

	text, ok := config["text"].(string)
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'text' in configuration")
	}

	clear, _ := config["clear"].(bool)

	return &TypeStep{
		pool:     f.pool,
		selector: selector,
		text:     text,
		clear:    clear,
		page:     pageNameFromConfig(config),
		timeout:  timeoutFromConfig(config),
	}, nil
}

type TypeStep struct {
	pool     *browserpool.Pool
	selector string
	text     string
	clear    bool
	page     string
	timeout  time.Duration
}

func (s *TypeStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	logger.InfoContext(ctx, "Typing into element", "selector", s.selector)

	actions := []chromedp.Action{}
	if s.clear {
		actions = append(actions, chromedp.Clear(s.selector, chromedp.ByQuery))
	}

	actions = append(actions, chromedp.SendKeys(s.selector, s.text, chromedp.ByQuery))

	err := runOnPage(ctx, s.pool, executionCtx, s.page, s.timeout, actions...)
	if err != nil {
		return models.Failure(fmt.Sprintf("typing into %q failed: %v", s.selector, err)), nil
	}

	return &models.StepOutput{Success: true}, nil
}
