package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

// ChromedpLauncher starts a headless Chrome process via chromedp. It is the
// default Launcher for pools created without one.
func ChromedpLauncher(ctx context.Context, opts Options) (Handle, error) {
	allocatorOpts := append([]chromedp.ExecAllocatorOption{},
		chromedp.DefaultExecAllocatorOptions[:]...)

	allocatorOpts = append(allocatorOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
		chromedp.NoSandbox,
	)

	if opts.UserAgent != "" {
		allocatorOpts = append(allocatorOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	// Starts the browser process eagerly so launch failures surface here
	// instead of on the first step.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()

		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	handle := &chromedpHandle{
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		allocatorCancel: allocatorCancel,
	}

	go func() {
		select {
		case <-ctx.Done():
			_ = handle.Close()
		case <-browserCtx.Done():
		}
	}()

	return handle, nil
}

type chromedpHandle struct {
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	allocatorCancel context.CancelFunc
}

// NewPage opens a fresh tab in the running browser.
func (h *chromedpHandle) NewPage(name string) (Page, error) {
	if h.browserCtx.Err() != nil {
		return nil, fmt.Errorf("browser is gone: %w", h.browserCtx.Err())
	}

	tabCtx, tabCancel := chromedp.NewContext(h.browserCtx)

	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()

		return nil, fmt.Errorf("failed to open tab %q: %w", name, err)
	}

	return &chromedpPage{ctx: tabCtx, cancel: tabCancel}, nil
}

func (h *chromedpHandle) Healthy() bool {
	return h.browserCtx.Err() == nil
}

func (h *chromedpHandle) Close() error {
	h.browserCancel()
	h.allocatorCancel()

	return nil
}

type chromedpPage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (p *chromedpPage) Context() context.Context {
	return p.ctx
}

func (p *chromedpPage) Close() error {
	p.cancel()

	return nil
}
