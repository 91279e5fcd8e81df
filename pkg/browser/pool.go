package browser

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultIdleTimeout   = 30 * time.Minute
	defaultSweepInterval = 10 * time.Minute
)

// Config tunes the pool. Zero values fall back to defaults; Launcher falls
// back to the chromedp launcher.
type Config struct {
	MaxSessions   int
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	Launcher      Launcher
	Logger        *slog.Logger
}

// Pool owns every browser session. Only the pool's own methods touch the
// session map.
type Pool struct {
	maxSessions   int
	idleTimeout   time.Duration
	sweepInterval time.Duration
	launcher      Launcher
	logger        *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool

	done chan struct{}
}

func NewPool(config Config) *Pool {
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = defaultIdleTimeout
	}

	if config.SweepInterval <= 0 {
		config.SweepInterval = defaultSweepInterval
	}

	if config.Launcher == nil {
		config.Launcher = ChromedpLauncher
	}

	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Pool{
		maxSessions:   config.MaxSessions,
		idleTimeout:   config.IdleTimeout,
		sweepInterval: config.SweepInterval,
		launcher:      config.Launcher,
		logger:        config.Logger.With("module", "browser_pool"),
		sessions:      make(map[string]*Session),
		done:          make(chan struct{}),
	}
}

// Start launches the periodic sweep that reclaims sessions whose browser
// process died without firing the idle timer.
func (p *Pool) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-p.done:
				return
			case <-ticker.C:
				p.sweep()
			}
		}
	}()
}

// GetOrCreate returns the open session for the execution, refreshing its
// idle timer, or creates a new one. Creation fails with ErrPoolCapacity when
// the pool is full.
func (p *Pool) GetOrCreate(ctx context.Context, executionID, workflowID, owner string, opts Options) (*Session, error) {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()

		return nil, ErrPoolClosed
	}

	if session, exists := p.sessions[executionID]; exists && session.healthy() {
		p.mu.Unlock()
		session.touch(p.idleTimeout)

		return session, nil
	} else if exists {
		// Present but dead; reclaim before creating a replacement.
		delete(p.sessions, executionID)
		p.mu.Unlock()
		p.destroy(session, "unhealthy")
		p.mu.Lock()

		// The pool may have shut down while the lock was released.
		if p.closed {
			p.mu.Unlock()

			return nil, ErrPoolClosed
		}
	}

	if len(p.sessions) >= p.maxSessions {
		p.mu.Unlock()

		return nil, ErrPoolCapacity
	}

	// Reserve the slot before the (slow) launch so concurrent creates
	// cannot exceed the cap.
	placeholder := &Session{ExecutionID: executionID, status: SessionStatusClosing}
	p.sessions[executionID] = placeholder
	p.mu.Unlock()

	handle, err := p.launcher(ctx, opts)
	if err != nil {
		p.mu.Lock()
		delete(p.sessions, executionID)
		p.mu.Unlock()

		return nil, err
	}

	now := time.Now().UTC()
	session := &Session{
		ExecutionID:  executionID,
		WorkflowID:   workflowID,
		Owner:        owner,
		handle:       handle,
		pages:        make(map[string]Page),
		status:       SessionStatusActive,
		createdAt:    now,
		lastActivity: now,
	}
	session.idleTimer = time.AfterFunc(p.idleTimeout, func() {
		p.Close(executionID, "idle_timeout")
	})

	p.mu.Lock()
	if p.closed {
		// Shutdown raced the launch; it already discarded the placeholder,
		// so this browser must not outlive the pool.
		p.mu.Unlock()
		p.destroy(session, "pool_shutdown")

		return nil, ErrPoolClosed
	}

	p.sessions[executionID] = session
	p.mu.Unlock()

	p.logger.Info("Browser session created",
		"execution_id", executionID,
		"workflow_id", workflowID,
		"active_sessions", p.Len())

	return session, nil
}

// Touch resets the session's idle timer. Unknown ids are ignored.
func (p *Pool) Touch(executionID string) {
	p.mu.Lock()
	session, exists := p.sessions[executionID]
	p.mu.Unlock()

	if exists {
		session.touch(p.idleTimeout)
	}
}

// Close tears down one session. It is idempotent and safe to call on an
// absent id.
func (p *Pool) Close(executionID, reason string) {
	p.mu.Lock()
	session, exists := p.sessions[executionID]
	if exists {
		delete(p.sessions, executionID)
	}
	p.mu.Unlock()

	if !exists {
		return
	}

	p.destroy(session, reason)
}

// Shutdown force-closes every session regardless of idle state.
func (p *Pool) Shutdown(_ context.Context) {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()

		return
	}

	p.closed = true
	sessions := p.sessions
	p.sessions = make(map[string]*Session)
	close(p.done)
	p.mu.Unlock()

	for id, session := range sessions {
		p.logger.Info("Emergency cleanup of browser session", "execution_id", id)
		p.destroy(session, "shutdown")
	}
}

// Len returns the number of live sessions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.sessions)
}

func (p *Pool) destroy(session *Session, reason string) {
	if !session.beginClose() {
		return
	}

	session.closeResources()

	p.logger.Info("Browser session closed",
		"execution_id", session.ExecutionID,
		"reason", reason)
}

// sweep closes sessions whose browser handle reports dead, independent of
// the idle timer.
func (p *Pool) sweep() {
	p.mu.Lock()

	var dead []string

	for id, session := range p.sessions {
		if session.handle != nil && !session.handle.Healthy() {
			dead = append(dead, id)
		}
	}
	p.mu.Unlock()

	for _, id := range dead {
		p.logger.Warn("Reclaiming dead browser session", "execution_id", id)
		p.Close(id, "dead_browser")
	}
}
