package pagesteer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// The action executor. Clicks carry the one piece of retry logic in the
// facade: an intercepted click (overlay or modal covering the target) is
// retried on a short backoff, on the assumption such overlays dismiss
// themselves. Every other failure is fatal on the first attempt.

// Click locates the element and clicks it, retrying interception with a
// fresh locate per attempt. A prior attempt may have re-rendered the DOM, so
// a handle is never reused across retries. Retrying stops when the session's
// ClickRetryBudget is spent or ctx is cancelled; the interception then
// surfaces as the error. After a successful click the session settles before
// returning.
func (s *Session) Click(ctx context.Context, sel Selector) error {
	deadline := time.Now().Add(s.cfg.ClickRetryBudget)
	for {
		el, err := s.Find(ctx, sel)
		if err != nil {
			return err
		}
		err = s.driver.Click(ctx, el)
		if err == nil {
			break
		}
		var ie *InterceptedError
		if !errors.As(err, &ie) {
			return NewDriverError("click", err)
		}
		if time.Now().After(deadline) {
			s.log.Warn("click retry budget exhausted", zap.String("target", sel.Pattern))
			return err
		}
		s.log.Debug("click intercepted, retrying", zap.String("target", sel.Pattern))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.ClickBackoff):
		}
	}
	return s.settle(ctx)
}

// ForceClick dispatches a script-level click on an already-resolved element,
// bypassing native input simulation. Single best effort, no retry: it is for
// elements that are covered but logically clickable.
func (s *Session) ForceClick(ctx context.Context, el Element) error {
	if _, err := s.driver.ExecuteScript(ctx, "arguments[0].click();", el); err != nil {
		return NewDriverError("force click", err)
	}
	return nil
}

// ClickCSS clicks the first element matching the CSS selector.
func (s *Session) ClickCSS(ctx context.Context, css string) error {
	return s.Click(ctx, ByCSS(css))
}

// ClickButtonLabel clicks the button whose text is exactly label.
func (s *Session) ClickButtonLabel(ctx context.Context, label string) error {
	return s.Click(ctx, ButtonWithLabel(label))
}

// ClickID clicks the element with the given id attribute.
func (s *Session) ClickID(ctx context.Context, id string) error {
	return s.Click(ctx, ByID(id))
}

// ClickName clicks the element with the given name attribute.
func (s *Session) ClickName(ctx context.Context, name string) error {
	return s.Click(ctx, ByName(name))
}

// ClickFirstLinkIn clicks the first <a> inside the first element matching
// sel. The link click is a plain one-shot with no retry.
func (s *Session) ClickFirstLinkIn(ctx context.Context, sel Selector) error {
	els, err := s.FindAll(ctx, sel)
	if err != nil {
		return err
	}
	if len(els) == 0 {
		return &EmptyMatchError{Selector: sel}
	}
	link, err := s.driver.FindIn(ctx, els[0], ByTag("a"))
	if err != nil {
		return NewDriverError("find link", err)
	}
	if err := s.driver.Click(ctx, link); err != nil {
		return NewDriverError("click link", err)
	}
	return nil
}

// ToggleCheckboxes clicks the checkboxes at the given indexes within the
// class-scoped set, in the order given. Out-of-range indexes are silently
// skipped; the page deciding to render fewer boxes is not a failure.
func (s *Session) ToggleCheckboxes(ctx context.Context, class string, indexes []int) error {
	boxes, err := s.FindAll(ctx, CheckboxesOfClass(class))
	if err != nil {
		return err
	}
	for _, i := range indexes {
		if i < 0 || i >= len(boxes) {
			continue
		}
		if err := s.driver.Click(ctx, boxes[i]); err != nil {
			return NewDriverError("toggle checkbox", err)
		}
	}
	return nil
}

// SelectRadio clicks the radio button identified by name and value.
func (s *Session) SelectRadio(ctx context.Context, name, value string) error {
	return s.Click(ctx, RadioInput(name, value))
}

// Fill clears the field matching sel and types value with simulated
// keystrokes.
func (s *Session) Fill(ctx context.Context, sel Selector, value string) error {
	el, err := s.Find(ctx, sel)
	if err != nil {
		return err
	}
	if err := s.driver.Clear(ctx, el); err != nil {
		return NewDriverError("clear", err)
	}
	if err := s.driver.SendKeys(ctx, el, value); err != nil {
		return NewDriverError("send keys", err)
	}
	return nil
}

// FillPlaceholder fills the input identified by its placeholder text.
func (s *Session) FillPlaceholder(ctx context.Context, placeholder, value string) error {
	return s.Fill(ctx, InputWithPlaceholder(placeholder), value)
}

// FillScript clears the field matching sel and sets its value property
// through an injected script. Some inputs and frameworks drop simulated
// keystrokes; this path is for them. The value is embedded as a JSON string
// literal so quotes and control characters survive byte-for-byte.
func (s *Session) FillScript(ctx context.Context, sel Selector, value string) error {
	el, err := s.Find(ctx, sel)
	if err != nil {
		return err
	}
	if err := s.driver.Clear(ctx, el); err != nil {
		return NewDriverError("clear", err)
	}
	escaped, err := json.Marshal(value)
	if err != nil {
		return NewDriverError("encode value", err)
	}
	script := fmt.Sprintf("arguments[0].value = %s;", escaped)
	if _, err := s.driver.ExecuteScript(ctx, script, el); err != nil {
		return NewDriverError("set value", err)
	}
	return nil
}

// FillPlaceholderScript is FillScript against a placeholder-identified input.
func (s *Session) FillPlaceholderScript(ctx context.Context, placeholder, value string) error {
	return s.FillScript(ctx, InputWithPlaceholder(placeholder), value)
}

// FillNameScript is FillScript against a name-identified input.
func (s *Session) FillNameScript(ctx context.Context, name, value string) error {
	return s.FillScript(ctx, ByName(name), value)
}

// SelectValueByID selects the option with the given value attribute in the
// dropdown with the given id.
func (s *Session) SelectValueByID(ctx context.Context, id, value string) error {
	return s.selectValue(ctx, ByID(id), value)
}

// SelectValueByName selects the option with the given value attribute in the
// dropdown with the given name.
func (s *Session) SelectValueByName(ctx context.Context, name, value string) error {
	return s.selectValue(ctx, ByName(name), value)
}

func (s *Session) selectValue(ctx context.Context, sel Selector, value string) error {
	el, err := s.Find(ctx, sel)
	if err != nil {
		return err
	}
	if err := s.driver.SelectByValue(ctx, el, value); err != nil {
		return NewDriverError("select option", err)
	}
	return nil
}

// OptionValues returns the value attribute of every option in the dropdown
// with the given name, in document order.
func (s *Session) OptionValues(ctx context.Context, name string) ([]string, error) {
	el, err := s.Find(ctx, ByName(name))
	if err != nil {
		return nil, err
	}
	values, err := s.driver.OptionValues(ctx, el)
	if err != nil {
		return nil, NewDriverError("enumerate options", err)
	}
	return values, nil
}
