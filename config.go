package pagesteer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Timing defaults. The wait ceiling is deliberately huge: the facade is built
// for long-running, human-supervised automation where hanging on a slow page
// beats failing a run on a false negative. Override WaitCeiling when that
// trade-off is wrong for you.
const (
	DefaultWaitCeiling      = 3 * time.Hour
	DefaultClickBackoff     = 200 * time.Millisecond
	DefaultClickRetryBudget = 10 * time.Minute
	DefaultSettleDelay      = time.Second
)

// Config carries the session's reliability knobs. The zero value is usable;
// unset fields take the defaults above.
type Config struct {
	// Headless is passed to the driver when the session opens.
	Headless bool

	// WaitCeiling bounds every explicit wait. See DefaultWaitCeiling for
	// why the default is hours-scale.
	WaitCeiling time.Duration

	// ClickBackoff is the pause between retries of an intercepted click.
	ClickBackoff time.Duration

	// ClickRetryBudget bounds the total time spent retrying intercepted
	// clicks before the interception surfaces as an error. A finite
	// budget keeps a never-dismissing overlay from hanging the run.
	ClickRetryBudget time.Duration

	// Settle, when set, runs after every click and navigation in place of
	// the fixed SettleDelay sleep. Use it to supply a real readiness
	// signal (e.g. "spinner gone") instead of a blind pause.
	Settle func(ctx context.Context) error

	// SettleDelay is the fixed pause after a click or navigation when no
	// Settle hook is supplied, absorbing immediate post-action DOM churn.
	SettleDelay time.Duration

	// Logger receives free-text status messages. Defaults to a no-op.
	Logger *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.WaitCeiling == 0 {
		c.WaitCeiling = DefaultWaitCeiling
	}
	if c.ClickBackoff == 0 {
		c.ClickBackoff = DefaultClickBackoff
	}
	if c.ClickRetryBudget == 0 {
		c.ClickRetryBudget = DefaultClickRetryBudget
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}
