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

// ExtractTextFactory creates extract-text steps bound to the session pool.
type ExtractTextFactory struct {
	pool *browserpool.Pool
}

func NewExtractTextFactory(pool *browserpool.Pool) *ExtractTextFactory {
	return &ExtractTextFactory{pool: pool}
}

func (f *ExtractTextFactory) ID() string {
	return string(models.StepTypeExtractText)
}

func (f *ExtractTextFactory) Name() string {
	return "Extract Text"
}

func (f *ExtractTextFactory) Description() string {
	return "Extracts the text content of an element into a variable."
}

func (f *ExtractTextFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"selector": map[string]any{
				"type":        "string",
				"description": "CSS selector of the element to read.",
			},
			"variable": map[string]any{
				"type":        "string",
				"description": "Variable name the extracted text is stored under.",
			},
			"page":    pageProperty(),
			"timeout": timeoutProperty(),
		},
		"required":             []string{"selector", "variable"},
		"additionalProperties": false,
	}
}

func (f *ExtractTextFactory) Create(config map[string]any) (protocol.Step, error) {
	selector, ok := config["selector"].(string)
	if !ok || selector == "" {
		return nil, fmt.Errorf("missing or invalid 'selector' in configuration")
	}

	variable, ok := config["variable"].(string)
	if !ok || variable == "" {
		return nil, fmt.Errorf("missing or invalid 'variable' in configuration")
	}

	return &ExtractTextStep{
		pool:     f.pool,
		selector: selector,
		variable: variable,
		page:     pageNameFromConfig(config),
		timeout:  timeoutFromConfig(config),
	}, nil
}

type ExtractTextStep struct {
	pool     *browserpool.Pool
	selector string
	variable string
	page     string
	timeout  time.Duration
}

func (s *ExtractTextStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	logger.InfoContext(ctx, "Extracting text", "selector", s.selector, "variable", s.variable)

	var text string

	err := runOnPage(ctx, s.pool, executionCtx, s.page, s.timeout,
		chromedp.Text(s.selector, &text, chromedp.ByQuery),
	)
	if err != nil {
		return models.Failure(fmt.Sprintf("text extraction from %q failed: %v", s.selector, err)), nil
	}

	return &models.StepOutput{
		Success:   true,
		Result:    text,
		Variables: map[string]any{s.variable: text},
	}, nil
}

// ExtractAttributeFactory creates extract-attribute steps bound to the
// session pool.
type ExtractAttributeFactory struct {
	pool *browserpool.Pool
}

func NewExtractAttributeFactory(pool *browserpool.Pool) *ExtractAttributeFactory {
	return &ExtractAttributeFactory{pool: pool}
}

func (f *ExtractAttributeFactory) ID() string {
	return string(models.StepTypeExtractAttribute)
}

func (f *ExtractAttributeFactory) Name() string {
	return "Extract Attribute"
}

func (f *ExtractAttributeFactory) Description() string {
	return "Extracts an attribute of an element into a variable."
}

func (f *ExtractAttributeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"selector": map[string]any{
				"type":        "string",
				"description": "CSS selector of the element to read.",
			},
			"attribute": map[string]any{
				"type":        "string",
				"description": "Attribute name, e.g. 'href' or 'src'.",
			},
			"variable": map[string]any{
				"type":        "string",
				"description": "Variable name the attribute value is stored under.",
			},
			"page":    pageProperty(),
			"timeout": timeoutProperty(),
		},
		"required":             []string{"selector", "attribute", "variable"},
		"additionalProperties": false,
	}
}

func (f *ExtractAttributeFactory) Create(config map[string]any) (protocol.Step, error) {
	selector, ok := config["selector"].(string)
	if !ok || selector == "" {
		return nil, fmt.Errorf("missing or invalid 'selector' in configuration")
	}

	attribute, ok := config["attribute"].(string)
	if !ok || attribute == "" {
		return nil, fmt.Errorf("missing or invalid 'attribute' in configuration")
	}

	variable, ok := config["variable"].(string)
	if !ok || variable == "" {
		return nil, fmt.Errorf("missing or invalid 'variable' in configuration")
	}

	return &ExtractAttributeStep{
		pool:      f.pool,
		selector:  selector,
		attribute: attribute,
		variable:  variable,
		page:      pageNameFromConfig(config),
		timeout:   timeoutFromConfig(config),
	}, nil
}

type ExtractAttributeStep struct {
	pool      *browserpool.Pool
	selector  string
	attribute string
	variable  string
	page      string
	timeout   time.Duration
}

func (s *ExtractAttributeStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	logger.InfoContext(ctx, "Extracting attribute", "selector", s.selector, "attribute", s.attribute)

	var (
		value string
		found bool
	)

	err := runOnPage(ctx, s.pool, executionCtx, s.page, s.timeout,
		chromedp.AttributeValue(s.selector, s.attribute, &value, &found, chromedp.ByQuery),
	)
	if err != nil {
		return models.Failure(fmt.Sprintf("attribute extraction from %q failed: %v", s.selector, err)), nil
	}

	if !found {
		return models.Failure(fmt.Sprintf("element %q has no attribute %q", s.selector, s.attribute)), nil
	}

	return &models.StepOutput{
		Success:   true,
		Result:    value,
		Variables: map[string]any{s.variable: value},
	}, nil
}
