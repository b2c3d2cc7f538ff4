package pagesteer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ChromeDriver drives a locally launched Chrome over the DevTools protocol.
// It satisfies the same Driver contract as RemoteDriver, for runs that do
// not go through a worker fleet.
//
// Handles are tokens minted by a small in-page registry; they go stale when
// the page navigates or re-renders, which is fine because the facade
// re-locates before every action.
type ChromeDriver struct {
	log *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc
	pageCtx     context.Context
	pageCancel  context.CancelFunc
}

var _ Driver = (*ChromeDriver)(nil)

// NewChromeDriver prepares a local Chrome driver. The browser process starts
// on Open.
func NewChromeDriver(log *zap.Logger) *ChromeDriver {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChromeDriver{log: log}
}

func (d *ChromeDriver) Open(ctx context.Context, headless bool) error {
	if d.pageCtx != nil {
		return errors.New("session already open")
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	d.allocCtx, d.allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	d.pageCtx, d.pageCancel = chromedp.NewContext(d.allocCtx)

	// Starts the browser process.
	if err := chromedp.Run(d.pageCtx); err != nil {
		d.teardown()
		return fmt.Errorf("launch chrome: %w", err)
	}
	d.log.Info("chrome launched", zap.Bool("headless", headless))
	return nil
}

func (d *ChromeDriver) Close(ctx context.Context) error {
	if d.pageCtx == nil {
		return nil
	}
	err := chromedp.Cancel(d.pageCtx)
	d.teardown()
	return err
}

func (d *ChromeDriver) teardown() {
	if d.pageCancel != nil {
		d.pageCancel()
	}
	if d.allocCancel != nil {
		d.allocCancel()
	}
	d.pageCtx, d.pageCancel = nil, nil
	d.allocCtx, d.allocCancel = nil, nil
}

func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *ChromeDriver) PageSource(ctx context.Context) (string, error) {
	var html string
	err := d.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (d *ChromeDriver) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	lits := make([]string, len(args))
	for i, a := range args {
		if el, ok := a.(Element); ok {
			lits[i] = fmt.Sprintf("%s.map[%s]", registryExpr, jsString(el.ID))
			continue
		}
		b, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("encode script arg %d: %w", i, err)
		}
		lits[i] = string(b)
	}
	// The ?? null keeps a void script from producing an undefined result,
	// which the protocol cannot serialize.
	js := fmt.Sprintf("(function(){ %s }).apply(null, [%s]) ?? null",
		script, strings.Join(lits, ", "))

	var res any
	if err := d.run(ctx, chromedp.Evaluate(js, &res)); err != nil {
		return nil, err
	}
	return res, nil
}

func (d *ChromeDriver) FindElement(ctx context.Context, sel Selector) (Element, error) {
	ids, err := d.register(ctx, nodesExpr(sel, "document"))
	if err != nil {
		return Element{}, err
	}
	if len(ids) == 0 {
		return Element{}, &NotFoundError{Selector: sel}
	}
	return Element{ID: ids[0]}, nil
}

func (d *ChromeDriver) FindElements(ctx context.Context, sel Selector) ([]Element, error) {
	ids, err := d.register(ctx, nodesExpr(sel, "document"))
	if err != nil {
		return nil, err
	}
	els := make([]Element, len(ids))
	for i, id := range ids {
		els[i] = Element{ID: id}
	}
	return els, nil
}

func (d *ChromeDriver) FindIn(ctx context.Context, parent Element, sel Selector) (Element, error) {
	root := fmt.Sprintf("%s.map[%s]", registryExpr, jsString(parent.ID))
	ids, err := d.register(ctx, nodesExpr(sel, root))
	if err != nil {
		return Element{}, err
	}
	if len(ids) == 0 {
		return Element{}, &NotFoundError{Selector: sel}
	}
	return Element{ID: ids[0]}, nil
}

// Click scrolls the element into view, hit-tests its center and dispatches a
// real mouse click there. When another element owns the click point the
// result is an *InterceptedError, mirroring what a WebDriver backend reports.
func (d *ChromeDriver) Click(ctx context.Context, el Element) error {
	js := fmt.Sprintf(`(() => {
	const el = %s.map[%s];
	if (!el || !el.isConnected) return {err: "stale element"};
	el.scrollIntoView({block: "center", inline: "center"});
	const r = el.getBoundingClientRect();
	if (r.width === 0 && r.height === 0) return {err: "zero-size element"};
	const x = r.left + r.width / 2, y = r.top + r.height / 2;
	const top = document.elementFromPoint(x, y);
	if (top && top !== el && !el.contains(top) && !top.contains(el)) {
		return {covered: top.tagName.toLowerCase()};
	}
	return {x: x, y: y};
})()`, registryExpr, jsString(el.ID))

	var hit struct {
		Err     string  `json:"err"`
		Covered string  `json:"covered"`
		X       float64 `json:"x"`
		Y       float64 `json:"y"`
	}
	if err := d.run(ctx, chromedp.Evaluate(js, &hit)); err != nil {
		return err
	}
	if hit.Err != "" {
		return errors.New(hit.Err)
	}
	if hit.Covered != "" {
		return &InterceptedError{Target: fmt.Sprintf("%s (covered by <%s>)", el.ID, hit.Covered)}
	}
	return d.run(ctx, chromedp.MouseClickXY(hit.X, hit.Y))
}

func (d *ChromeDriver) Clear(ctx context.Context, el Element) error {
	_, err := d.ExecuteScript(ctx,
		`arguments[0].value = ""; arguments[0].dispatchEvent(new Event("input", {bubbles: true}));`, el)
	return err
}

func (d *ChromeDriver) SendKeys(ctx context.Context, el Element, text string) error {
	if _, err := d.ExecuteScript(ctx, "arguments[0].focus();", el); err != nil {
		return err
	}
	return d.run(ctx, chromedp.KeyEvent(text))
}

func (d *ChromeDriver) Text(ctx context.Context, el Element) (string, error) {
	res, err := d.ExecuteScript(ctx, "return arguments[0].innerText;", el)
	if err != nil {
		return "", err
	}
	text, _ := res.(string)
	return text, nil
}

func (d *ChromeDriver) Attribute(ctx context.Context, el Element, name string) (string, error) {
	res, err := d.ExecuteScript(ctx, "return arguments[0].getAttribute(arguments[1]);", el, name)
	if err != nil {
		return "", err
	}
	value, _ := res.(string)
	return value, nil
}

// WaitUntil polls the predicate through chromedp's own polling primitive, so
// the cadence is the browser's, not ours. An elapsed ceiling maps to
// ErrCeiling for the wait engine to translate.
func (d *ChromeDriver) WaitUntil(ctx context.Context, cond Condition, ceiling time.Duration) error {
	nodes := nodesExpr(cond.Selector, "document")
	var predicate string
	switch cond.Predicate {
	case ElementPresent:
		predicate = fmt.Sprintf("(%s).length > 0", nodes)
	case ElementAbsent:
		predicate = fmt.Sprintf(
			"(%s).every(n => { const r = n.getBoundingClientRect(); return r.width === 0 && r.height === 0; })",
			nodes)
	default:
		return fmt.Errorf("predicate %q not supported by driver", cond.Predicate)
	}

	var ok bool
	err := d.run(ctx, chromedp.Poll(predicate, &ok, chromedp.WithPollingTimeout(ceiling)))
	if err != nil {
		if errors.Is(err, chromedp.ErrPollingTimeout) {
			return fmt.Errorf("%s on %q: %w", cond.Predicate, cond.Selector.Pattern, ErrCeiling)
		}
		return err
	}
	return nil
}

func (d *ChromeDriver) OptionValues(ctx context.Context, el Element) ([]string, error) {
	res, err := d.ExecuteScript(ctx,
		"return Array.from(arguments[0].options).map(o => o.value);", el)
	if err != nil {
		return nil, err
	}
	raw, _ := res.([]any)
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		s, _ := v.(string)
		values = append(values, s)
	}
	return values, nil
}

func (d *ChromeDriver) SelectByValue(ctx context.Context, el Element, value string) error {
	res, err := d.ExecuteScript(ctx, `
	const sel = arguments[0], value = arguments[1];
	const opt = Array.from(sel.options).find(o => o.value === value);
	if (!opt) return false;
	sel.value = value;
	sel.dispatchEvent(new Event("change", {bubbles: true}));
	return true;`, el, value)
	if err != nil {
		return err
	}
	if picked, _ := res.(bool); !picked {
		return fmt.Errorf("no option with value %q", value)
	}
	return nil
}

// run executes chromedp actions on the page context, aborting early when the
// caller's context is already done.
func (d *ChromeDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	if d.pageCtx == nil {
		return errors.New("session not open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(d.pageCtx, actions...)
}

// register evaluates a node-collecting expression and parks the results in
// the in-page registry, returning their tokens in DOM order.
const registryExpr = `(window.__steerReg = window.__steerReg || {seq: 0, map: {}})`

func (d *ChromeDriver) register(ctx context.Context, nodes string) ([]string, error) {
	js := fmt.Sprintf(`(() => {
	const reg = %s;
	const ids = [];
	for (const n of (%s)) {
		const id = "el-" + (++reg.seq);
		reg.map[id] = n;
		ids.push(id);
	}
	return ids;
})()`, registryExpr, nodes)

	var ids []string
	if err := d.run(ctx, chromedp.Evaluate(js, &ids)); err != nil {
		return nil, err
	}
	return ids, nil
}

// nodesExpr renders a JS expression producing the array of nodes matching
// sel under root, in document order.
func nodesExpr(sel Selector, root string) string {
	p := jsString(sel.Pattern)
	switch sel.Strategy {
	case StrategyID:
		return fmt.Sprintf(`Array.from(%s.querySelectorAll("#" + CSS.escape(%s))).slice(0, 1)`, root, p)
	case StrategyName:
		return fmt.Sprintf(`Array.from(%s.querySelectorAll("[name=" + JSON.stringify(%s) + "]"))`, root, p)
	case StrategyClass:
		return fmt.Sprintf(`Array.from(%s.getElementsByClassName(%s))`, root, p)
	case StrategyTag:
		return fmt.Sprintf(`Array.from(%s.getElementsByTagName(%s))`, root, p)
	case StrategyLinkText:
		return fmt.Sprintf(`Array.from(%s.querySelectorAll("a")).filter(a => a.textContent.trim() === %s)`, root, p)
	case StrategyXPath:
		return fmt.Sprintf(`(() => {
	const it = document.evaluate(%s, %s, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	const out = [];
	for (let i = 0; i < it.snapshotLength; i++) out.push(it.snapshotItem(i));
	return out;
})()`, p, root)
	default: // css selector
		return fmt.Sprintf(`Array.from(%s.querySelectorAll(%s))`, root, p)
	}
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
