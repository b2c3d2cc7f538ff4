// Package pagesteer is a reliability facade over a browser-automation
// driver. It hides the retry, timing and interception quirks of driving a
// real browser: every locate is gated behind an explicit wait, intercepted
// clicks are retried until an overlay clears, and a script-injection path
// covers actions that are unreliable through native input simulation.
package pagesteer

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Session is the single owner of one browser session for its lifetime. It is
// not safe for concurrent use; every operation blocks the caller until the
// browser settles or fails. Release the underlying browser with Close.
type Session struct {
	driver Driver
	cfg    Config
	log    *zap.Logger
}

// Open acquires a browser through the given driver and returns the session
// facade that owns it.
func Open(ctx context.Context, d Driver, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	s := &Session{driver: d, cfg: cfg, log: cfg.Logger}

	s.log.Info("opening browser session", zap.Bool("headless", cfg.Headless))
	if err := d.Open(ctx, cfg.Headless); err != nil {
		return nil, NewDriverError("open", err)
	}
	return s, nil
}

// Navigate loads the URL and settles before returning, so the caller's next
// operation does not race the page load.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.log.Info("navigating", zap.String("url", url))
	if err := s.driver.Navigate(ctx, url); err != nil {
		return NewDriverError("navigate", err)
	}
	return s.settle(ctx)
}

// TextExists reports whether the current page markup contains the substring.
func (s *Session) TextExists(ctx context.Context, substr string) (bool, error) {
	src, err := s.driver.PageSource(ctx)
	if err != nil {
		return false, NewDriverError("page source", err)
	}
	return strings.Contains(src, substr), nil
}

// Script runs raw JavaScript in the page.
func (s *Session) Script(ctx context.Context, code string) error {
	if _, err := s.driver.ExecuteScript(ctx, code); err != nil {
		return NewDriverError("execute script", err)
	}
	return nil
}

// Close releases the browser session. The session must not be used after.
func (s *Session) Close(ctx context.Context) error {
	s.log.Info("closing browser session")
	return s.driver.Close(ctx)
}

// settle gives the page time to react to an action before the next one runs.
// A caller-supplied readiness hook wins over the fixed delay.
func (s *Session) settle(ctx context.Context) error {
	if s.cfg.Settle != nil {
		return s.cfg.Settle(ctx)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.SettleDelay):
		return nil
	}
}
