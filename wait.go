package pagesteer

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// The wait engine. All tolerance for asynchronous page state lives here:
// a condition is reduced to one of the driver's two canonical predicates
// (element present, element absent) and handed to the driver's native
// blocking wait, which owns the polling cadence. The only failure mode is
// the configured ceiling elapsing.

// awaitCondition blocks until cond holds or the session's wait ceiling
// elapses, in which case it fails with *TimeoutError.
func (s *Session) awaitCondition(ctx context.Context, cond Condition) error {
	driverCond := cond
	switch cond.Predicate {
	case TextPresent:
		driverCond = Condition{Predicate: ElementPresent, Selector: WithText(cond.Text)}
	case TextAbsent:
		driverCond = Condition{Predicate: ElementAbsent, Selector: WithText(cond.Text)}
	}

	err := s.driver.WaitUntil(ctx, driverCond, s.cfg.WaitCeiling)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCeiling) {
		s.log.Warn("wait ceiling elapsed",
			zap.String("predicate", string(cond.Predicate)),
			zap.String("target", cond.Target()))
		return &TimeoutError{Predicate: cond.Predicate, Target: cond.Target()}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return NewDriverError("wait", err)
}

// WaitForElement blocks until an element matching sel is present.
func (s *Session) WaitForElement(ctx context.Context, sel Selector) error {
	return s.awaitCondition(ctx, Condition{Predicate: ElementPresent, Selector: sel})
}

// WaitForElementGone blocks until no element matching sel remains visible.
func (s *Session) WaitForElementGone(ctx context.Context, sel Selector) error {
	return s.awaitCondition(ctx, Condition{Predicate: ElementAbsent, Selector: sel})
}

// WaitForText blocks until the text fragment appears somewhere on the page.
func (s *Session) WaitForText(ctx context.Context, text string) error {
	return s.awaitCondition(ctx, Condition{Predicate: TextPresent, Text: text})
}

// WaitForTextGone blocks until the text fragment disappears from the page.
func (s *Session) WaitForTextGone(ctx context.Context, text string) error {
	return s.awaitCondition(ctx, Condition{Predicate: TextAbsent, Text: text})
}
