package pagesteer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitTimesOutAtCeiling(t *testing.T) {
	const ceiling = 120 * time.Millisecond
	d := &stubDriver{
		waitSatisfied: func(Condition) bool { return false },
		pollEvery:     10 * time.Millisecond,
	}
	s := newTestSession(t, d, func(c *Config) { c.WaitCeiling = ceiling })

	start := time.Now()
	err := s.WaitForElement(context.Background(), ByID("never"))
	elapsed := time.Since(start)

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ElementPresent, te.Predicate)
	assert.Equal(t, "never", te.Target)

	// Not before the ceiling, not indefinitely past it.
	assert.GreaterOrEqual(t, elapsed, ceiling)
	assert.Less(t, elapsed, ceiling+100*time.Millisecond)
}

func TestWaitSucceedsOncePresent(t *testing.T) {
	const delay = 50 * time.Millisecond
	presentAt := time.Now().Add(delay)
	d := &stubDriver{
		waitSatisfied: func(Condition) bool { return time.Now().After(presentAt) },
		pollEvery:     10 * time.Millisecond,
	}
	s := newTestSession(t, d, nil)

	start := time.Now()
	err := s.WaitForElement(context.Background(), ByID("slow"))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, delay)
	assert.Less(t, elapsed, delay+50*time.Millisecond)
}

func TestWaitForTextReducesToContainsQuery(t *testing.T) {
	d := &stubDriver{}
	s := newTestSession(t, d, nil)

	require.NoError(t, s.WaitForText(context.Background(), "Processing complete"))
	require.Len(t, d.waits, 1)
	assert.Equal(t, ElementPresent, d.waits[0].Predicate)
	assert.Equal(t, StrategyXPath, d.waits[0].Selector.Strategy)
	assert.Equal(t, "//*[contains(text(), 'Processing complete')]", d.waits[0].Selector.Pattern)
}

func TestWaitForTextGoneUsesAbsentPredicate(t *testing.T) {
	d := &stubDriver{}
	s := newTestSession(t, d, nil)

	require.NoError(t, s.WaitForTextGone(context.Background(), "Loading"))
	require.Len(t, d.waits, 1)
	assert.Equal(t, ElementAbsent, d.waits[0].Predicate)
}

func TestWaitTimeoutOnTextCarriesFragment(t *testing.T) {
	d := &stubDriver{
		waitSatisfied: func(Condition) bool { return false },
	}
	s := newTestSession(t, d, func(c *Config) { c.WaitCeiling = 30 * time.Millisecond })

	err := s.WaitForText(context.Background(), "Done")
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, TextPresent, te.Predicate)
	assert.Equal(t, "Done", te.Target)
}

func TestWaitHonorsCancellation(t *testing.T) {
	d := &stubDriver{
		waitSatisfied: func(Condition) bool { return false },
	}
	s := newTestSession(t, d, func(c *Config) { c.WaitCeiling = time.Minute })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.WaitForElement(ctx, ByID("never"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
