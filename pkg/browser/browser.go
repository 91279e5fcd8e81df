// Package browser owns the lifecycle of a bounded pool of headless browser
// sessions, keyed by execution id.
package browser

import (
	"context"
	"errors"
)

var (
	// ErrPoolCapacity is returned when a new session would exceed the
	// configured maximum of concurrent browsers.
	ErrPoolCapacity = errors.New("browser pool at capacity")

	// ErrPoolClosed is returned after Shutdown.
	ErrPoolClosed = errors.New("browser pool is shut down")
)

// Page is one named tab within a browser session. Step handlers run CDP
// actions against the page's context.
type Page interface {
	Context() context.Context
	Close() error
}

// Handle abstracts one underlying browser process so the pool can be
// exercised in tests without Chrome installed.
type Handle interface {
	NewPage(name string) (Page, error)
	Healthy() bool
	Close() error
}

// Launcher starts a browser process. The returned Handle owns it.
type Launcher func(ctx context.Context, opts Options) (Handle, error)

// Options control browser startup.
type Options struct {
	Headless     bool
	UserAgent    string
	WindowWidth  int
	WindowHeight int
}

// DefaultOptions are used when a session is created without overrides.
func DefaultOptions() Options {
	return Options{
		Headless:     true,
		WindowWidth:  1280,
		WindowHeight: 800,
	}
}
