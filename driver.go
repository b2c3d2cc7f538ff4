package pagesteer

import (
	"context"
	"time"
)

// Driver is the browser-control collaborator the facade consumes. It owns
// selector matching, input simulation and script execution; the facade only
// decides when to call it and how to react to transient failure.
//
// Implementations must report an intercepted click as *InterceptedError, a
// zero-match locate as *NotFoundError, and an elapsed WaitUntil ceiling as
// ErrCeiling (possibly wrapped). Everything else is treated as fatal.
type Driver interface {
	// Open acquires the underlying browser session. A driver serves one
	// session at a time; the owning Session is its sole caller.
	Open(ctx context.Context, headless bool) error
	// Close releases the browser session and any transport resources.
	Close(ctx context.Context) error

	Navigate(ctx context.Context, url string) error
	PageSource(ctx context.Context) (string, error)

	// ExecuteScript runs code in the page. Args are exposed to the script
	// as the arguments object; Element values arrive as live nodes.
	ExecuteScript(ctx context.Context, script string, args ...any) (any, error)

	FindElement(ctx context.Context, sel Selector) (Element, error)
	FindElements(ctx context.Context, sel Selector) ([]Element, error)
	// FindIn scopes a find to the subtree under parent.
	FindIn(ctx context.Context, parent Element, sel Selector) (Element, error)

	Click(ctx context.Context, el Element) error
	Clear(ctx context.Context, el Element) error
	SendKeys(ctx context.Context, el Element, text string) error
	Text(ctx context.Context, el Element) (string, error)
	Attribute(ctx context.Context, el Element, name string) (string, error)

	// WaitUntil blocks until the condition holds or the ceiling elapses,
	// polling at the driver's own cadence. Only the ElementPresent and
	// ElementAbsent predicates reach drivers.
	WaitUntil(ctx context.Context, cond Condition, ceiling time.Duration) error

	// Select-control helpers.
	OptionValues(ctx context.Context, el Element) ([]string, error)
	SelectByValue(ctx context.Context, el Element, value string) error
}
