// Package browser provides the browser interaction step family. Every step
// obtains the execution's pooled session, operates on a named page and
// reports failures as step results instead of raising them.
package browser

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"

	browserpool "github.com/flowkite/flowkite/pkg/browser"
	"github.com/flowkite/flowkite/pkg/models"
)

const defaultOpTimeout = 30 * time.Second

// runOnPage resolves the execution's session, opens (or reuses) the named
// page and runs the CDP actions under a per-operation timeout. The session's
// idle timer is refreshed on success.
func runOnPage(
	ctx context.Context,
	pool *browserpool.Pool,
	executionCtx models.ExecutionContext,
	pageName string,
	timeout time.Duration,
	actions ...chromedp.Action,
) error {
	session, err := pool.GetOrCreate(ctx, executionCtx.ExecutionID, executionCtx.WorkflowID, executionCtx.Owner, browserpool.DefaultOptions())
	if err != nil {
		return err
	}

	page, err := session.Page(pageName)
	if err != nil {
		return err
	}

	opCtx, cancel := context.WithTimeout(page.Context(), timeout)
	defer cancel()

	if err := chromedp.Run(opCtx, actions...); err != nil {
		return err
	}

	pool.Touch(executionCtx.ExecutionID)

	return nil
}

func pageNameFromConfig(config map[string]any) string {
	name, _ := config["page"].(string)

	return name
}

func timeoutFromConfig(config map[string]any) time.Duration {
	if seconds, ok := config["timeout"].(float64); ok && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultOpTimeout
}

func pageProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Named page within the session. Defaults to 'default'.",
	}
}

func timeoutProperty() map[string]any {
	return map[string]any{
		"type":        "integer",
		"description": "Operation timeout in seconds.",
		"default":     30,
		"minimum":     1,
	}
}
