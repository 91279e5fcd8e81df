package browser

import (
	"fmt"
	"sync"
	"time"
)

// SessionStatus tracks a session through its lifecycle.
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "active"
	SessionStatusClosing SessionStatus = "closing"
)

// DefaultPageName is the page used when a step does not name one.
const DefaultPageName = "default"

// Session is one pooled browser process with a lazily created map of named
// pages. All mutation goes through the owning pool's methods.
type Session struct {
	ExecutionID string
	WorkflowID  string
	Owner       string

	mu           sync.Mutex
	handle       Handle
	pages        map[string]Page
	status       SessionStatus
	createdAt    time.Time
	lastActivity time.Time
	idleTimer    *time.Timer
}

// Page returns the named page, creating it on first use. An empty name maps
// to DefaultPageName.
func (s *Session) Page(name string) (Page, error) {
	if name == "" {
		name = DefaultPageName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != SessionStatusActive {
		return nil, fmt.Errorf("session %s is closing", s.ExecutionID)
	}

	if page, exists := s.pages[name]; exists {
		return page, nil
	}

	page, err := s.handle.NewPage(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open page %q: %w", name, err)
	}

	s.pages[name] = page

	return page, nil
}

// LastActivity returns the time of the most recent touch.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastActivity
}

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

func (s *Session) touch(idleTimeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActivity = time.Now().UTC()

	if s.idleTimer != nil {
		s.idleTimer.Reset(idleTimeout)
	}
}

// beginClose flips the session to closing and stops the idle timer. Returns
// false if it was already closing.
func (s *Session) beginClose() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == SessionStatusClosing {
		return false
	}

	s.status = SessionStatusClosing

	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}

	return true
}

// closeResources closes every page then the browser handle.
func (s *Session) closeResources() {
	s.mu.Lock()
	pages := s.pages
	s.pages = map[string]Page{}
	s.mu.Unlock()

	for _, page := range pages {
		_ = page.Close()
	}

	if s.handle != nil {
		_ = s.handle.Close()
	}
}

func (s *Session) healthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status == SessionStatusActive && s.handle != nil && s.handle.Healthy()
}
