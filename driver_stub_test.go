package pagesteer

import (
	"context"
	"time"
)

// stubDriver is a scriptable Driver for exercising the facade without a
// browser. Zero value: every wait succeeds immediately, every locate finds
// nothing, every action succeeds.
type stubDriver struct {
	openHeadless []bool
	closed       bool

	// waitSatisfied, when set, is polled by WaitUntil until true or the
	// ceiling elapses.
	waitSatisfied func(Condition) bool
	pollEvery     time.Duration
	waits         []Condition

	// find supplies locate results per selector.
	find  func(Selector) []Element
	finds int

	// clickResults is consumed one entry per click attempt; entries beyond
	// the slice succeed.
	clickResults []error
	clicks       int
	clickedIDs   []string

	texts     map[string]string
	attrs     map[string]string
	cleared   []string
	typed     map[string]string
	scripts   []scriptCall
	navigated []string
	source    string
	options   []string
	selected  []string
	children  map[string]Element
}

type scriptCall struct {
	script string
	args   []any
}

var _ Driver = (*stubDriver)(nil)

func (d *stubDriver) Open(ctx context.Context, headless bool) error {
	d.openHeadless = append(d.openHeadless, headless)
	return nil
}

func (d *stubDriver) Close(ctx context.Context) error {
	d.closed = true
	return nil
}

func (d *stubDriver) Navigate(ctx context.Context, url string) error {
	d.navigated = append(d.navigated, url)
	return nil
}

func (d *stubDriver) PageSource(ctx context.Context) (string, error) {
	return d.source, nil
}

func (d *stubDriver) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	d.scripts = append(d.scripts, scriptCall{script: script, args: args})
	return nil, nil
}

func (d *stubDriver) FindElement(ctx context.Context, sel Selector) (Element, error) {
	d.finds++
	els := d.lookup(sel)
	if len(els) == 0 {
		return Element{}, &NotFoundError{Selector: sel}
	}
	return els[0], nil
}

func (d *stubDriver) FindElements(ctx context.Context, sel Selector) ([]Element, error) {
	d.finds++
	return d.lookup(sel), nil
}

func (d *stubDriver) FindIn(ctx context.Context, parent Element, sel Selector) (Element, error) {
	child, ok := d.children[parent.ID]
	if !ok {
		return Element{}, &NotFoundError{Selector: sel}
	}
	return child, nil
}

func (d *stubDriver) Click(ctx context.Context, el Element) error {
	d.clicks++
	d.clickedIDs = append(d.clickedIDs, el.ID)
	if d.clicks <= len(d.clickResults) {
		return d.clickResults[d.clicks-1]
	}
	return nil
}

func (d *stubDriver) Clear(ctx context.Context, el Element) error {
	d.cleared = append(d.cleared, el.ID)
	return nil
}

func (d *stubDriver) SendKeys(ctx context.Context, el Element, text string) error {
	if d.typed == nil {
		d.typed = map[string]string{}
	}
	d.typed[el.ID] += text
	return nil
}

func (d *stubDriver) Text(ctx context.Context, el Element) (string, error) {
	return d.texts[el.ID], nil
}

func (d *stubDriver) Attribute(ctx context.Context, el Element, name string) (string, error) {
	return d.attrs[el.ID+"/"+name], nil
}

func (d *stubDriver) WaitUntil(ctx context.Context, cond Condition, ceiling time.Duration) error {
	d.waits = append(d.waits, cond)
	if d.waitSatisfied == nil {
		return nil
	}
	interval := d.pollEvery
	if interval == 0 {
		interval = 5 * time.Millisecond
	}
	deadline := time.Now().Add(ceiling)
	for {
		if d.waitSatisfied(cond) {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrCeiling
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (d *stubDriver) OptionValues(ctx context.Context, el Element) ([]string, error) {
	return d.options, nil
}

func (d *stubDriver) SelectByValue(ctx context.Context, el Element, value string) error {
	d.selected = append(d.selected, value)
	return nil
}

func (d *stubDriver) lookup(sel Selector) []Element {
	if d.find == nil {
		return nil
	}
	return d.find(sel)
}

// newTestSession opens a session over the stub with timings shrunk for tests.
func newTestSession(t interface{ Fatalf(string, ...any) }, d *stubDriver, mut func(*Config)) *Session {
	cfg := Config{
		WaitCeiling:      250 * time.Millisecond,
		ClickBackoff:     2 * time.Millisecond,
		ClickRetryBudget: time.Second,
		Settle:           func(context.Context) error { return nil },
	}
	if mut != nil {
		mut(&cfg)
	}
	s, err := Open(context.Background(), d, cfg)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return s
}
