package pagesteer

import (
	"context"
	"errors"
	"strings"
)

// The locator. Every resolution is gated behind the wait engine so callers
// never observe a race against page load, and handles are never cached
// across waits: the document may have mutated, so each call re-resolves.

// Find waits for sel to be present, then resolves the first matching
// element.
func (s *Session) Find(ctx context.Context, sel Selector) (Element, error) {
	if err := s.awaitCondition(ctx, Condition{Predicate: ElementPresent, Selector: sel}); err != nil {
		return Element{}, err
	}
	el, err := s.driver.FindElement(ctx, sel)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return Element{}, err
		}
		return Element{}, NewDriverError("find element", err)
	}
	return el, nil
}

// FindAll waits for sel to be present, then resolves every match in DOM
// order. An empty slice is valid output: the presence wait only proves at
// least one match existed at some instant, and the page may have mutated
// between the wait and the query.
func (s *Session) FindAll(ctx context.Context, sel Selector) ([]Element, error) {
	if err := s.awaitCondition(ctx, Condition{Predicate: ElementPresent, Selector: sel}); err != nil {
		return nil, err
	}
	els, err := s.driver.FindElements(ctx, sel)
	if err != nil {
		return nil, NewDriverError("find elements", err)
	}
	return els, nil
}

// Texts returns the trimmed rendered text of every element matching sel,
// preserving DOM order.
func (s *Session) Texts(ctx context.Context, sel Selector) ([]string, error) {
	els, err := s.FindAll(ctx, sel)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(els))
	for _, el := range els {
		t, err := s.driver.Text(ctx, el)
		if err != nil {
			return nil, NewDriverError("get text", err)
		}
		texts = append(texts, strings.TrimSpace(t))
	}
	return texts, nil
}

// Attribute waits for sel to be present and returns the named attribute of
// the first match.
func (s *Session) Attribute(ctx context.Context, sel Selector, name string) (string, error) {
	el, err := s.Find(ctx, sel)
	if err != nil {
		return "", err
	}
	value, err := s.driver.Attribute(ctx, el, name)
	if err != nil {
		return "", NewDriverError("get attribute", err)
	}
	return value, nil
}

// FirstText returns the trimmed text of the first element matching sel. It
// fails with *EmptyMatchError when the match set is empty, which can happen
// even after a successful presence wait.
func (s *Session) FirstText(ctx context.Context, sel Selector) (string, error) {
	texts, err := s.Texts(ctx, sel)
	if err != nil {
		return "", err
	}
	if len(texts) == 0 {
		return "", &EmptyMatchError{Selector: sel}
	}
	return texts[0], nil
}
