package normalize

import (
	"strings"
	"testing"
)

func TestBeautifyCSSIndentsDeclarations(t *testing.T) {
	in := "a{color:red;background:blue}"
	out := beautifyCSS(in)

	if !strings.Contains(out, "color:red;") {
		t.Errorf("expected declaration preserved, got %q", out)
	}
	if !strings.Contains(out, "{") || !strings.Contains(out, "}") {
		t.Errorf("expected braces preserved, got %q", out)
	}
	if strings.Count(out, "\n") < 2 {
		t.Errorf("expected multiple lines, got %q", out)
	}
}

func TestBeautifyCSSNestedRules(t *testing.T) {
	in := "@media screen{a{color:red}}"
	out := beautifyCSS(in)
	lines := strings.Split(out, "\n")
	var foundIndented bool
	for _, l := range lines {
		if strings.HasPrefix(l, "  ") {
			foundIndented = true
		}
	}
	if !foundIndented {
		t.Errorf("expected nested rule to be indented, got %q", out)
	}
}

func TestBeautifyCSSEmptyInput(t *testing.T) {
	if out := beautifyCSS("  "); out != "" {
		t.Errorf("beautifyCSS(whitespace) = %q, want empty", out)
	}
}
