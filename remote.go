package pagesteer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Protocol constants shared with the worker fleet.
const (
	redisPrefix = "PAGESTEER:"
	workersSet  = redisPrefix + "workers"

	// defaultRPCWait bounds a single worker round-trip. Waits override it
	// with their own ceiling plus grace.
	defaultRPCWait = 60 * time.Second
	rpcWaitGrace   = 5 * time.Second
)

// Worker error kinds on the wire.
const (
	kindIntercepted = "click_intercepted"
	kindNoElement   = "no_such_element"
	kindTimeout     = "timeout"
)

// RemoteConfig holds the connection details for the worker fleet. Unset
// fields fall back to REDIS_HOST, REDIS_PORT, REDIS_PASSWORD and REDIS_DB
// from the environment (a .env file is honored).
type RemoteConfig struct {
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// BrowserType selects the fleet pool, e.g. "chrome" or "firefox".
	// Falls back to PAGESTEER_BROWSER, then "chrome".
	BrowserType string

	// EnvFile is a custom path to a .env file.
	EnvFile string

	Logger *zap.Logger
}

// RemoteDriver drives a browser owned by a remote worker. Commands travel as
// JSON tasks pushed onto the worker's Redis queue; the worker leaves the
// result on a per-task key the driver blocks on. The worker process performs
// the real DOM queries and input simulation, including the native blocking
// wait WaitUntil delegates to.
type RemoteDriver struct {
	rdb         *redis.Client
	log         *zap.Logger
	browserType string
	session     *remoteSession
	initSent    bool
}

var _ Driver = (*RemoteDriver)(nil)

// NewRemoteDriver connects to the fleet's Redis. The browser itself is not
// reserved until Open.
func NewRemoteDriver(cfg RemoteConfig) (*RemoteDriver, error) {
	if cfg.EnvFile != "" {
		_ = godotenv.Load(cfg.EnvFile)
	} else {
		_ = godotenv.Load()
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		rdb = redis.NewClient(opt)
	} else {
		host := cfg.RedisHost
		if host == "" {
			host = getEnv("REDIS_HOST", "localhost")
		}
		port := cfg.RedisPort
		if port == "" {
			port = getEnv("REDIS_PORT", "6379")
		}
		pass := cfg.RedisPassword
		if pass == "" {
			pass = os.Getenv("REDIS_PASSWORD")
		}
		db := cfg.RedisDB
		if db == 0 {
			db, _ = strconv.Atoi(getEnv("REDIS_DB", "0"))
		}
		rdb = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", host, port),
			Password: pass,
			DB:       db,
		})
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &RemoteDriver{
		rdb:         rdb,
		log:         log,
		browserType: resolveBrowserType(cfg.BrowserType),
	}, nil
}

// resolveBrowserType picks the fleet pool: explicit config wins, then the
// PAGESTEER_BROWSER env var, then "chrome".
func resolveBrowserType(configured string) string {
	if configured != "" {
		return configured
	}
	if bt := os.Getenv("PAGESTEER_BROWSER"); bt != "" {
		return bt
	}
	return "chrome"
}

// acquireScript atomically pops a free browser from a randomly ordered view
// of the fleet and marks it busy, so two sessions can never reserve the same
// browser.
const acquireScript = `
local workers = redis.call('SMEMBERS', KEYS[1])
for i = #workers, 2, -1 do
	local j = math.random(i)
	workers[i], workers[j] = workers[j], workers[i]
end

for _, worker in ipairs(workers) do
	local free_key = ARGV[1] .. worker .. ':' .. ARGV[2] .. ':free'
	local bid = redis.call('SPOP', free_key)
	if bid then
		local busy_key = ARGV[1] .. worker .. ':' .. ARGV[2] .. ':busy'
		redis.call('SADD', busy_key, bid)
		return {worker, bid}
	end
end
return nil
`

// Open reserves a browser from the fleet. The headless flag travels with the
// first task so the worker can start the browser accordingly.
func (d *RemoteDriver) Open(ctx context.Context, headless bool) error {
	if d.session != nil {
		return errors.New("session already acquired")
	}
	browserType := d.browserType

	result, err := d.rdb.Eval(ctx, acquireScript, []string{workersSet}, redisPrefix, browserType).Result()
	if err != nil {
		return fmt.Errorf("fleet acquire failed: %w", err)
	}
	if result == nil {
		return fmt.Errorf("no free browsers for type %q", browserType)
	}
	pair, ok := result.([]interface{})
	if !ok || len(pair) < 2 {
		return errors.New("malformed acquire response")
	}
	worker, _ := pair[0].(string)
	bid, _ := pair[1].(string)

	d.session = &remoteSession{
		BrowserID:   bid,
		WorkerName:  worker,
		BrowserType: browserType,
		Headless:    headless,
	}
	d.initSent = false
	d.log.Info("browser reserved",
		zap.String("worker", worker), zap.String("browser_id", bid))
	return nil
}

// Close releases the browser back to the fleet and drops the Redis
// connection. Safe to call when no session is held.
func (d *RemoteDriver) Close(ctx context.Context) error {
	if d.session != nil {
		d.log.Info("releasing browser", zap.String("browser_id", d.session.BrowserID))
		if _, err := d.send(ctx, "release_browser", nil); err != nil {
			d.log.Warn("release failed", zap.Error(err))
		}
		d.session = nil
	}
	return d.rdb.Close()
}

// send pushes a task onto the worker queue and blocks for the result.
func (d *RemoteDriver) send(ctx context.Context, action string, args map[string]any) (*taskResponse, error) {
	return d.sendWithTimeout(ctx, action, args, defaultRPCWait)
}

func (d *RemoteDriver) sendWithTimeout(ctx context.Context, action string, args map[string]any, timeout time.Duration) (*taskResponse, error) {
	if d.session == nil {
		return nil, fmt.Errorf("cannot perform %q: browser session not acquired", action)
	}
	if args == nil {
		args = map[string]any{}
	}

	payload := d.newTask(action, args)
	resultKey := payload.ResultKey
	queue := fmt.Sprintf("%s%s:tasks", redisPrefix, d.session.WorkerName)

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("serialize task: %w", err)
	}

	if err := d.withRetry(func() error {
		return d.rdb.RPush(ctx, queue, data).Err()
	}); err != nil {
		return nil, fmt.Errorf("queue task: %w", err)
	}

	rpcCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var raw []string
	err = d.withRetry(func() error {
		var rErr error
		raw, rErr = d.rdb.BLPop(rpcCtx, timeout, resultKey).Result()
		return rErr
	})
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("worker did not answer %q within %s", action, timeout)
		}
		return nil, fmt.Errorf("redis rpc: %w", err)
	}
	if len(raw) < 2 {
		return nil, errors.New("malformed worker response")
	}

	var resp taskResponse
	if err := json.Unmarshal([]byte(raw[1]), &resp); err != nil {
		return nil, fmt.Errorf("parse worker response: %w", err)
	}
	d.initSent = true
	return &resp, nil
}

// newTask assembles the payload for one worker round-trip. The browser type
// and headless flag ride only on the session's first task; once a task has
// been answered the worker already holds them.
func (d *RemoteDriver) newTask(action string, args map[string]any) taskPayload {
	taskID := strings.ReplaceAll(uuid.New().String(), "-", "")
	payload := taskPayload{
		TaskID:     taskID,
		BrowserID:  d.session.BrowserID,
		WorkerName: d.session.WorkerName,
		Action:     action,
		Args:       args,
		ResultKey:  fmt.Sprintf("%sresult:%s", redisPrefix, taskID),
	}
	if !d.initSent {
		payload.BrowserType = d.session.BrowserType
		payload.Headless = d.session.Headless
	}
	return payload
}

// withRetry retries transient Redis failures up to 3 times with exponential
// backoff (0.2s, 0.4s, 0.8s).
func (d *RemoteDriver) withRetry(op func() error) error {
	const maxAttempts = 3
	attempt := 0
	for {
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || attempt >= maxAttempts {
			return err
		}
		attempt++
		time.Sleep(200 * time.Millisecond << (attempt - 1))
	}
}

// workerError maps an error response to the facade taxonomy. Find calls map
// kindNoElement themselves so the selector can travel with the error.
func workerError(resp *taskResponse, target string) error {
	if resp.Status == "ok" {
		return nil
	}
	switch resp.ErrorKind {
	case kindIntercepted:
		return &InterceptedError{Target: target}
	case kindTimeout:
		return fmt.Errorf("%s: %w", resp.Error, ErrCeiling)
	default:
		return errors.New(resp.Error)
	}
}

// ---------------------------- Driver primitives ----------------------------

func (d *RemoteDriver) Navigate(ctx context.Context, url string) error {
	resp, err := d.send(ctx, "open_url", map[string]any{"url": url})
	if err != nil {
		return err
	}
	return workerError(resp, url)
}

func (d *RemoteDriver) PageSource(ctx context.Context) (string, error) {
	resp, err := d.send(ctx, "get_page_source", nil)
	if err != nil {
		return "", err
	}
	if err := workerError(resp, "page"); err != nil {
		return "", err
	}
	src, _ := resp.Value.(string)
	return src, nil
}

func (d *RemoteDriver) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	resp, err := d.send(ctx, "execute_script", map[string]any{
		"script": script,
		"args":   encodeScriptArgs(args),
	})
	if err != nil {
		return nil, err
	}
	if err := workerError(resp, "script"); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// encodeScriptArgs renders script arguments for the wire. Element handles
// become references the worker rehydrates into live nodes.
func encodeScriptArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if el, ok := a.(Element); ok {
			out[i] = map[string]any{"element_id": el.ID}
			continue
		}
		out[i] = a
	}
	return out
}

func (d *RemoteDriver) FindElement(ctx context.Context, sel Selector) (Element, error) {
	resp, err := d.send(ctx, "find_element", selectorArgs(sel))
	if err != nil {
		return Element{}, err
	}
	if resp.Status != "ok" {
		if resp.ErrorKind == kindNoElement {
			return Element{}, &NotFoundError{Selector: sel}
		}
		return Element{}, workerError(resp, sel.Pattern)
	}
	return Element{ID: resp.ElementID}, nil
}

func (d *RemoteDriver) FindElements(ctx context.Context, sel Selector) ([]Element, error) {
	resp, err := d.send(ctx, "find_elements", selectorArgs(sel))
	if err != nil {
		return nil, err
	}
	if err := workerError(resp, sel.Pattern); err != nil {
		return nil, err
	}
	els := make([]Element, len(resp.Elements))
	for i, id := range resp.Elements {
		els[i] = Element{ID: id}
	}
	return els, nil
}

func (d *RemoteDriver) FindIn(ctx context.Context, parent Element, sel Selector) (Element, error) {
	args := selectorArgs(sel)
	args["element_id"] = parent.ID
	resp, err := d.send(ctx, "find_in", args)
	if err != nil {
		return Element{}, err
	}
	if resp.Status != "ok" {
		if resp.ErrorKind == kindNoElement {
			return Element{}, &NotFoundError{Selector: sel}
		}
		return Element{}, workerError(resp, sel.Pattern)
	}
	return Element{ID: resp.ElementID}, nil
}

func (d *RemoteDriver) Click(ctx context.Context, el Element) error {
	resp, err := d.send(ctx, "click_element", map[string]any{"element_id": el.ID})
	if err != nil {
		return err
	}
	return workerError(resp, el.ID)
}

func (d *RemoteDriver) Clear(ctx context.Context, el Element) error {
	resp, err := d.send(ctx, "clear_element", map[string]any{"element_id": el.ID})
	if err != nil {
		return err
	}
	return workerError(resp, el.ID)
}

func (d *RemoteDriver) SendKeys(ctx context.Context, el Element, text string) error {
	resp, err := d.send(ctx, "send_keys", map[string]any{"element_id": el.ID, "text": text})
	if err != nil {
		return err
	}
	return workerError(resp, el.ID)
}

func (d *RemoteDriver) Text(ctx context.Context, el Element) (string, error) {
	resp, err := d.send(ctx, "get_text", map[string]any{"element_id": el.ID})
	if err != nil {
		return "", err
	}
	if err := workerError(resp, el.ID); err != nil {
		return "", err
	}
	text, _ := resp.Value.(string)
	return text, nil
}

func (d *RemoteDriver) Attribute(ctx context.Context, el Element, name string) (string, error) {
	resp, err := d.send(ctx, "get_attribute", map[string]any{"element_id": el.ID, "attribute": name})
	if err != nil {
		return "", err
	}
	if err := workerError(resp, el.ID); err != nil {
		return "", err
	}
	value, _ := resp.Value.(string)
	return value, nil
}

// WaitUntil forwards the predicate and ceiling to the worker, whose native
// wait primitive owns the polling cadence. The RPC deadline is the ceiling
// plus a grace margin so a worker-side timeout can report itself first.
func (d *RemoteDriver) WaitUntil(ctx context.Context, cond Condition, ceiling time.Duration) error {
	args := selectorArgs(cond.Selector)
	args["predicate"] = string(cond.Predicate)
	args["timeout_seconds"] = ceiling.Seconds()

	resp, err := d.sendWithTimeout(ctx, "wait_until", args, ceiling+rpcWaitGrace)
	if err != nil {
		return err
	}
	return workerError(resp, cond.Selector.Pattern)
}

func (d *RemoteDriver) OptionValues(ctx context.Context, el Element) ([]string, error) {
	resp, err := d.send(ctx, "get_select_options", map[string]any{"element_id": el.ID})
	if err != nil {
		return nil, err
	}
	if err := workerError(resp, el.ID); err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (d *RemoteDriver) SelectByValue(ctx context.Context, el Element, value string) error {
	resp, err := d.send(ctx, "select_by_value", map[string]any{"element_id": el.ID, "value": value})
	if err != nil {
		return err
	}
	return workerError(resp, el.ID)
}

func selectorArgs(sel Selector) map[string]any {
	return map[string]any{
		"strategy": string(sel.Strategy),
		"pattern":  sel.Pattern,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
