package pagesteer

import (
	"fmt"
	"strings"
)

// Constructors for the fixed strategy set. Every click/fill/wait operation
// takes a Selector, so shape-specific conveniences live here instead of
// multiplying the action surface.

func ByID(id string) Selector       { return Selector{Strategy: StrategyID, Pattern: id} }
func ByName(name string) Selector   { return Selector{Strategy: StrategyName, Pattern: name} }
func ByCSS(css string) Selector     { return Selector{Strategy: StrategyCSS, Pattern: css} }
func ByXPath(xpath string) Selector { return Selector{Strategy: StrategyXPath, Pattern: xpath} }
func ByTag(tag string) Selector     { return Selector{Strategy: StrategyTag, Pattern: tag} }
func ByClass(class string) Selector { return Selector{Strategy: StrategyClass, Pattern: class} }
func ByLinkText(text string) Selector {
	return Selector{Strategy: StrategyLinkText, Pattern: text}
}

// ButtonWithLabel matches a <button> whose text is exactly label.
func ButtonWithLabel(label string) Selector {
	return ByXPath(fmt.Sprintf("//button[text()=%s]", xpathString(label)))
}

// InputWithPlaceholder matches an <input> by its placeholder attribute.
func InputWithPlaceholder(placeholder string) Selector {
	return ByXPath(fmt.Sprintf("//input[@placeholder=%s]", xpathString(placeholder)))
}

// WithText matches any element whose text contains the given fragment. The
// wait engine uses it to reduce text predicates to element predicates.
func WithText(fragment string) Selector {
	return ByXPath(fmt.Sprintf("//*[contains(text(), %s)]", xpathString(fragment)))
}

// RadioInput matches a radio button by its name and value attributes.
func RadioInput(name, value string) Selector {
	return ByCSS(fmt.Sprintf("input[type='radio'][name='%s'][value='%s']", name, value))
}

// CheckboxesOfClass matches every checkbox carrying the given class.
func CheckboxesOfClass(class string) Selector {
	return ByCSS(fmt.Sprintf("input.%s[type='checkbox']", class))
}

// xpathString renders s as an XPath string literal. XPath 1.0 has no escape
// sequences, so a value containing both quote kinds becomes a concat() of
// single-quoted chunks and double-quoted apostrophes.
func xpathString(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
