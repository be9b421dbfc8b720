package template

import (
	"math/rand"
	"strings"
	"testing"
)

func TestRenderPlainVariable(t *testing.T) {
	got := Render("Hi {{firstName}}", Variables{"firstName": "Jo"}, Options{})
	if got != "Hi Jo" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderFallback(t *testing.T) {
	got := Render("Hi {{firstName|there}}", Variables{}, Options{})
	if got != "Hi there" {
		t.Fatalf("got %q", got)
	}
	got = Render("Hi {{firstName|there}}", Variables{"firstName": "Jo"}, Options{})
	if got != "Hi Jo" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderConditionalKeepsIfBranch(t *testing.T) {
	got := Render("{if:company}at {{company}}{/if}", Variables{"company": "Acme"}, Options{})
	if got != "at Acme" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderConditionalElseBranch(t *testing.T) {
	got := Render("{if:company}at {{company}}{else}there{/if}", Variables{}, Options{})
	if got != "there" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderIfNot(t *testing.T) {
	got := Render("{ifnot:company}no company on file{/ifnot}", Variables{}, Options{})
	if got != "no company on file" {
		t.Fatalf("got %q", got)
	}
	got = Render("{ifnot:company}no company on file{/ifnot}", Variables{"company": "Acme"}, Options{})
	if got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestRenderSpintaxDeterministic(t *testing.T) {
	got := Render("{Hi|Hello|Hey}", Variables{}, Options{VariationIndex: 1})
	if got != "Hello" {
		t.Fatalf("got %q", got)
	}
	got = Render("{Hi|Hello|Hey}", Variables{}, Options{VariationIndex: 3})
	if got != "Hi" {
		t.Fatalf("index wraps via modulo, got %q", got)
	}
}

func TestRenderSpintaxRandomStaysWithinOptions(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	got := Render("{a|b|c}", Variables{}, Options{Random: r})
	if got != "a" && got != "b" && got != "c" {
		t.Fatalf("got %q outside option set", got)
	}
}

func TestRenderFixedOrderConditionalThenFallbackThenSpintaxThenPlain(t *testing.T) {
	// Conditionals resolve first (keeping the if-branch since x is present),
	// then the fallback resolves to the literal since "missing" is unset,
	// then the surviving spintax block resolves, then the plain variable.
	got := Render("{if:x}{{missing|fallback}} {a|b} {{firstName}}{/if}", Variables{"x": "1", "firstName": "Jo"}, Options{VariationIndex: 0})
	if got != "fallback a Jo" {
		t.Fatalf("got %q", got)
	}
}

// For text with no conditionals,
// spintax, or smart placeholders, rendering twice is the same as once.
func TestRenderIdempotentOnPlainVariables(t *testing.T) {
	text := "Hi {{firstName|there}}, following up re {{company}}"
	vars := Variables{"firstName": "Jo", "company": "Acme"}
	once := Render(text, vars, Options{})
	twice := Render(once, vars, Options{})
	if once != twice {
		t.Fatalf("render not idempotent: once=%q twice=%q", once, twice)
	}
}

func TestHasSmartPlaceholder(t *testing.T) {
	if !HasSmartPlaceholder("write [a one-line compliment about their recent launch] here") {
		t.Fatal("expected smart placeholder to be detected")
	}
	if HasSmartPlaceholder("no placeholder here") {
		t.Fatal("false positive")
	}
}

// A fully-resolved render must leave no
// template syntax or smart placeholders behind.
func TestRenderedOutputPurity(t *testing.T) {
	text := "{if:company}Hi {{firstName|there}} from {{company}}{else}Hi {{firstName|there}}{/if}"
	out := Render(text, Variables{"firstName": "Jo", "company": "Acme"}, Options{})
	if HasUnresolvedMarkup(out) {
		t.Fatalf("rendered output still has markup: %q", out)
	}
}

func TestValidateAndFixVariablesRewritesGreeting(t *testing.T) {
	res := ValidateAndFixVariables("Hi John, quick question")
	if !strings.Contains(res.Text, "Hi {{firstName}},") {
		t.Fatalf("got %q", res.Text)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected one warning, got %d", len(res.Warnings))
	}
}

func TestVariablesGetCrossesNamingConvention(t *testing.T) {
	v := Variables{"sender_first_name": "Alex"}
	got, ok := v.Get("senderFirstName")
	if !ok || got != "Alex" {
		t.Fatalf("got (%q, %v)", got, ok)
	}
}
