package ui

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestSwatch(t *testing.T) {
	prev := color.NoColor
	t.Cleanup(func() { color.NoColor = prev })

	color.NoColor = false
	if got := Swatch("#4285F4"); !strings.Contains(got, "38;2;66;133;244") {
		t.Errorf("expected truecolor escape for #4285F4, got %q", got)
	}
	if got := Swatch("teal"); got != "■" {
		t.Errorf("unparseable color should render plain, got %q", got)
	}

	color.NoColor = true
	if got := Swatch("#4285F4"); got != "■" {
		t.Errorf("NO_COLOR should render plain, got %q", got)
	}
}

func TestStatusIcon(t *testing.T) {
	prev := color.NoColor
	t.Cleanup(func() { color.NoColor = prev })
	color.NoColor = true

	if StatusIcon(true) != "✓" || StatusIcon(false) != "✗" {
		t.Errorf("unexpected icons %q %q", StatusIcon(true), StatusIcon(false))
	}
}
