package browser

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	browserpool "github.com/flowkite/flowkite/pkg/browser"
	"github.com/flowkite/flowkite/pkg/models"
)

type stubPage struct{ ctx context.Context }

func (p *stubPage) Context() context.Context { return p.ctx }
func (p *stubPage) Close() error             { return nil }

type stubHandle struct{}

func (h *stubHandle) NewPage(_ string) (browserpool.Page, error) {
	return &stubPage{ctx: context.Background()}, nil
}
func (h *stubHandle) Healthy() bool { return true }
func (h *stubHandle) Close() error  { return nil }

func stubLauncher(_ context.Context, _ browserpool.Options) (browserpool.Handle, error) {
	return &stubHandle{}, nil
}

func TestFactoryConfigurationValidation(t *testing.T) {
	pool := browserpool.NewPool(browserpool.Config{MaxSessions: 1, Launcher: stubLauncher})
	t.Cleanup(func() { pool.Shutdown(context.Background()) })

	_, err := NewNavigateFactory(pool).Create(map[string]any{})
	assert.Error(t, err)

	_, err = NewClickFactory(pool).Create(map[string]any{"selector": ""})
	assert.Error(t, err)

	_, err = NewTypeFactory(pool).Create(map[string]any{"selector": "#input"})
	assert.Error(t, err)

	_, err = NewWaitForElementFactory(pool).Create(map[string]any{"selector": "#el", "state": "spinning"})
	assert.Error(t, err)

	_, err = NewExtractTextFactory(pool).Create(map[string]any{"selector": "h1"})
	assert.Error(t, err)

	_, err = NewScreenshotFactory(pool).Create(map[string]any{})
	assert.Error(t, err)

	_, err = NewGeneratePDFFactory(pool).Create(map[string]any{})
	assert.Error(t, err)

	_, err = NewExecuteScriptFactory(pool).Create(map[string]any{})
	assert.Error(t, err)
}

func TestPoolAtCapacityIsStepFailure(t *testing.T) {
	pool := browserpool.NewPool(browserpool.Config{
		MaxSessions: 1,
		IdleTimeout: time.Hour,
		Launcher:    stubLauncher,
	})
	t.Cleanup(func() { pool.Shutdown(context.Background()) })

	// Occupy the only slot with another execution's session.
	_, err := pool.GetOrCreate(context.Background(), "exec-other", "wf-1", "user-1", browserpool.DefaultOptions())
	require.NoError(t, err)

	step, err := NewNavigateFactory(pool).Create(map[string]any{"url": "https://example.com"})
	require.NoError(t, err)

	executionCtx := models.ExecutionContext{ExecutionID: "exec-1", WorkflowID: "wf-1", Owner: "user-1"}

	output, err := step.Execute(context.Background(), executionCtx, slog.Default())
	require.NoError(t, err)

	assert.False(t, output.Success)
	assert.Contains(t, output.Error, "capacity")
}
