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

// ExecuteScriptFactory creates execute-script steps bound to the session
// pool.
type ExecuteScriptFactory struct {
	pool *browserpool.Pool
}

func NewExecuteScriptFactory(pool *browserpool.Pool) *ExecuteScriptFactory {
	return &ExecuteScriptFactory{pool: pool}
}

func (f *ExecuteScriptFactory) ID() string {
	return string(models.StepTypeExecuteScript)
}

func (f *ExecuteScriptFactory) Name() string {
	return "Execute Script"
}

func (f *ExecuteScriptFactory) Description() string {
	return "Evaluates JavaScript in the page and optionally stores its result."
}

func (f *ExecuteScriptFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"script": map[string]any{
				"type":        "string",
				"format":      "code",
				"description": "JavaScript expression to evaluate in the page.",
				"examples":    []string{"document.title", "document.querySelectorAll('a').length"},
			},
			"variable": map[string]any{
				"type":        "string",
				"description": "Variable name the evaluation result is stored under.",
			},
			"page":    pageProperty(),
			"timeout": timeoutProperty(),
		},
		"required":             []string{"script"},
		"additionalProperties": false,
	}
}

func (f *ExecuteScriptFactory) Create(config map[string]any) (protocol.Step, error) {
	script, ok := config["script"].(string)
	if !ok || script == "" {
		return nil, fmt.Errorf("missing or invalid 'script' in configuration")
	}

	variable, _ := config["variable"].(string)

	return &ExecuteScriptStep{
		pool:     f.pool,
		script:   script,
		variable: variable,
		page:     pageNameFromConfig(config),
		timeout:  timeoutFromConfig(config),
	}, nil
}

type ExecuteScriptStep struct {
	pool     *browserpool.Pool
	script   string
	variable string
	page     string
	timeout  time.Duration
}

func (s *ExecuteScriptStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	logger.InfoContext(ctx, "Evaluating script")

	var (
		result any
		action chromedp.Action
	)

	if s.variable != "" {
		action = chromedp.Evaluate(s.script, &result)
	} else {
		action = chromedp.Evaluate(s.script, nil)
	}

	err := runOnPage(ctx, s.pool, executionCtx, s.page, s.timeout, action)
	if err != nil {
		return models.Failure(fmt.Sprintf("script evaluation failed: %v", err)), nil
	}

	output := &models.StepOutput{Success: true, Result: result}

	if s.variable != "" {
		output.Variables = map[string]any{s.variable: result}
	}

	return output, nil
}
