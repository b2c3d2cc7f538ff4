package pagesteer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectorConstructors(t *testing.T) {
	tests := []struct {
		name     string
		got      Selector
		strategy Strategy
		pattern  string
	}{
		{"id", ByID("login"), StrategyID, "login"},
		{"name", ByName("email"), StrategyName, "email"},
		{"css", ByCSS("div.row > a"), StrategyCSS, "div.row > a"},
		{"xpath", ByXPath("//td[1]"), StrategyXPath, "//td[1]"},
		{"tag", ByTag("a"), StrategyTag, "a"},
		{"class", ByClass("cell"), StrategyClass, "cell"},
		{"link text", ByLinkText("Next"), StrategyLinkText, "Next"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.strategy, tt.got.Strategy)
			assert.Equal(t, tt.pattern, tt.got.Pattern)
		})
	}
}

func TestShapeBuilders(t *testing.T) {
	assert.Equal(t,
		ByXPath("//button[text()='Save']"),
		ButtonWithLabel("Save"))
	assert.Equal(t,
		ByXPath("//input[@placeholder='Search...']"),
		InputWithPlaceholder("Search..."))
	assert.Equal(t,
		ByXPath("//*[contains(text(), 'Processing')]"),
		WithText("Processing"))
	assert.Equal(t,
		ByCSS("input[type='radio'][name='plan'][value='pro']"),
		RadioInput("plan", "pro"))
	assert.Equal(t,
		ByCSS("input.consent[type='checkbox']"),
		CheckboxesOfClass("consent"))
}

func TestXPathStringQuoting(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "'plain'"},
		{`double "quoted"`, `'double "quoted"'`},
		{"it's", `"it's"`},
		{`both "and" it's`, `concat('both "and" it', "'", 's')`},
		{"'", `"'"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, xpathString(tt.in), "input %q", tt.in)
	}
}

func TestButtonLabelWithApostropheStillQuotes(t *testing.T) {
	sel := ButtonWithLabel("Don't save")
	assert.Equal(t, `//button[text()="Don't save"]`, sel.Pattern)
}
