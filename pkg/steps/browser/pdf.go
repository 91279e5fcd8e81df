package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	browserpool "github.com/flowkite/flowkite/pkg/browser"
	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/protocol"
)

// GeneratePDFFactory creates generate-pdf steps bound to the session pool.
type GeneratePDFFactory struct {
	pool *browserpool.Pool
}

func NewGeneratePDFFactory(pool *browserpool.Pool) *GeneratePDFFactory {
	return &GeneratePDFFactory{pool: pool}
}

func (f *GeneratePDFFactory) ID() string {
	return string(models.StepTypeGeneratePDF)
}

func (f *GeneratePDFFactory) Name() string {
	return "Generate PDF"
}

func (f *GeneratePDFFactory) Description() string {
	return "Renders the current page as a PDF document."
}

func (f *GeneratePDFFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "File path the PDF is written to.",
			},
			"variable": map[string]any{
				"type":        "string",
				"description": "Variable name the base64-encoded PDF is stored under.",
			},
			"landscape": map[string]any{
				"type":        "boolean",
				"description": "Render in landscape orientation.",
				"default":     false,
			},
			"page":    pageProperty(),
			"timeout": timeoutProperty(),
		},
		"additionalProperties": false,
	}
}

func (f *GeneratePDFFactory) Create(config map[string]any) (protocol.Step, error) {
	path, _ := config["path"].(string)
	variable, _ := config["variable"].(string)

	if path == "" && variable == "" {
		return nil, fmt.Errorf("configuration needs 'path' or 'variable'")
	}

	landscape, _ := config["landscape"].(bool)

	return &GeneratePDFStep{
		pool:      f.pool,
		path:      path,
		variable:  variable,
		landscape: landscape,
		page:      pageNameFromConfig(config),
		timeout:   timeoutFromConfig(config),
	}, nil
}

type GeneratePDFStep struct {
	pool      *browserpool.Pool
	path      string
	variable  string
	landscape bool
	page      string
	timeout   time.Duration
}

func (s *GeneratePDFStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	logger.InfoContext(ctx, "Generating PDF", "landscape", s.landscape)

	var buf []byte

	err := runOnPage(ctx, s.pool, executionCtx, s.page, s.timeout,
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithLandscape(s.landscape).
				WithPrintBackground(true).
				Do(ctx)
			if err != nil {
				return err
			}

			buf = data

			return nil
		}),
	)
	if err != nil {
		return models.Failure(fmt.Sprintf("pdf generation failed: %v", err)), nil
	}

	result := map[string]any{"size_bytes": len(buf)}

	if s.path != "" {
		if err := os.WriteFile(s.path, buf, 0o600); err != nil {
			return models.Failure(fmt.Sprintf("failed to write pdf to %s: %v", s.path, err)), nil
		}

		result["path"] = s.path
	}

	output := &models.StepOutput{Success: true, Result: result}

	if s.variable != "" {
		output.Variables = map[string]any{s.variable: base64.StdEncoding.EncodeToString(buf)}
	}

	return output, nil
}
