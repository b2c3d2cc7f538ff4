package pagesteer

// Strategy names a selector resolution strategy. The values are the
// WebDriver wire names, which the remote workers understand directly.
type Strategy string

const (
	StrategyID       Strategy = "id"
	StrategyName     Strategy = "name"
	StrategyCSS      Strategy = "css selector"
	StrategyXPath    Strategy = "xpath"
	StrategyTag      Strategy = "tag name"
	StrategyClass    Strategy = "class name"
	StrategyLinkText Strategy = "link text"
)

// Selector identifies zero or more elements by a (strategy, pattern) pair.
// It carries no uniqueness guarantee. Immutable once constructed.
type Selector struct {
	Strategy Strategy
	Pattern  string
}

// Element is an opaque, driver-owned reference to a node attached to the
// live document. It is valid only until the page removes or replaces the
// node; callers re-locate rather than retain handles.
type Element struct {
	ID string
}

// Predicate names a wait condition kind.
type Predicate string

const (
	ElementPresent Predicate = "element_present"
	ElementAbsent  Predicate = "element_absent"
	TextPresent    Predicate = "text_present"
	TextAbsent     Predicate = "text_absent"
)

// Condition is a wait specification: a predicate applied to a selector or a
// text fragment. Text predicates are reduced to element predicates against a
// contains-text query before reaching a driver.
type Condition struct {
	Predicate Predicate
	Selector  Selector
	Text      string
}

// Target returns the selector pattern or text fragment the condition is
// about, for error reporting.
func (c Condition) Target() string {
	if c.Text != "" {
		return c.Text
	}
	return c.Selector.Pattern
}

// remoteSession identifies a browser reserved from the worker fleet.
type remoteSession struct {
	BrowserID   string `json:"browser_id"`
	WorkerName  string `json:"worker"`
	BrowserType string `json:"browser_type"`
	Headless    bool   `json:"headless"`
}

// taskPayload is the JSON pushed onto a worker's task queue.
type taskPayload struct {
	TaskID      string         `json:"task_id"`
	BrowserID   string         `json:"browser_id"`
	WorkerName  string         `json:"worker_name"`
	Action      string         `json:"action"`
	Args        map[string]any `json:"args"`
	ResultKey   string         `json:"result_key"`
	BrowserType string         `json:"browser_type,omitempty"`
	Headless    bool           `json:"headless,omitempty"`
}

// taskResponse is the JSON a worker leaves on the result key.
type taskResponse struct {
	Status    string   `json:"status"`
	Error     string   `json:"error,omitempty"`
	ErrorKind string   `json:"error_kind,omitempty"`
	Value     any      `json:"value,omitempty"`
	ElementID string   `json:"element_id,omitempty"`
	Elements  []string `json:"element_ids,omitempty"`
	Values    []string `json:"values,omitempty"`
}
