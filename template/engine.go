// Package template implements the pure text-substitution language used for
// campaign subjects and bodies: conditionals, fallback variables, spintax,
// and plain variables, resolved in that fixed order, plus recognition of
// AI-facing smart placeholders and a greeting-name sanitizer for imported
// content.
package template

import (
	"math/rand"
	"regexp"
	"strings"
)

var (
	ifBlockRe     = regexp.MustCompile(`(?s)\{if:([A-Za-z0-9_.]+)\}(.*?)\{/if\}`)
	ifNotBlockRe  = regexp.MustCompile(`(?s)\{ifnot:([A-Za-z0-9_.]+)\}(.*?)\{/ifnot\}`)
	fallbackVarRe = regexp.MustCompile(`\{\{([A-Za-z0-9_.]+)\|([^{}]*)\}\}`)
	spintaxRe     = regexp.MustCompile(`\{([^{}|]+(?:\|[^{}|]+)+)\}`)
	plainVarRe    = regexp.MustCompile(`\{\{([A-Za-z0-9_.]+)\}\}`)
	smartPlaceholderRe = regexp.MustCompile(`\[[^\[\]]+\]`)
)

// Variables is the merged variable map (lead + inbox + custom fields) a
// render call is resolved against. A name matches its exact key or its
// camelCase/snake_case counterpart; other case differences do not match.
type Variables map[string]string

// Get resolves a variable name allowing camelCase/snake_case interchange.
func (v Variables) Get(name string) (string, bool) {
	if val, ok := v[name]; ok {
		return val, true
	}
	if val, ok := v[toSnakeCase(name)]; ok {
		return val, true
	}
	if val, ok := v[toCamelCase(name)]; ok {
		return val, true
	}
	return "", false
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func toCamelCase(s string) string {
	parts := strings.Split(s, "_")
	if len(parts) == 1 {
		return s
	}
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

func isNonEmpty(v string) bool {
	return strings.TrimSpace(v) != ""
}

// Options configures a render pass. VariationIndex selects deterministic
// spintax output for previews; when Random is nil (the zero value) and
// VariationIndex is used, spintax is resolved by variationIndex mod
// optionCount. When Random is non-nil, production sends use it to draw a
// uniformly random option instead.
type Options struct {
	VariationIndex int
	Random         *rand.Rand
}

// Render substitutes text against variables in the fixed order: conditionals,
// fallbacks, spintax, plain variables.
func Render(text string, vars Variables, opts Options) string {
	out := resolveConditionals(text, vars)
	out = resolveFallbacks(out, vars)
	out = resolveSpintax(out, opts)
	out = resolvePlainVariables(out, vars)
	return out
}

func resolveConditionals(text string, vars Variables) string {
	text = ifBlockRe.ReplaceAllStringFunc(text, func(match string) string {
		groups := ifBlockRe.FindStringSubmatch(match)
		return pickIfBranch(groups[1], groups[2], vars, true)
	})
	text = ifNotBlockRe.ReplaceAllStringFunc(text, func(match string) string {
		groups := ifNotBlockRe.FindStringSubmatch(match)
		return pickIfBranch(groups[1], groups[2], vars, false)
	})
	return text
}

// pickIfBranch splits body on the first top-level {else} and returns the
// branch whose condition (variable present/absent) is satisfied.
func pickIfBranch(varName, body string, vars Variables, wantPresent bool) string {
	ifBranch, elseBranch, hasElse := splitElse(body)
	val, ok := vars.Get(varName)
	present := ok && isNonEmpty(val)
	satisfied := present == wantPresent
	if satisfied {
		return ifBranch
	}
	if hasElse {
		return elseBranch
	}
	return ""
}

func splitElse(body string) (ifBranch, elseBranch string, hasElse bool) {
	idx := strings.Index(body, "{else}")
	if idx == -1 {
		return body, "", false
	}
	return body[:idx], body[idx+len("{else}"):], true
}

func resolveFallbacks(text string, vars Variables) string {
	return fallbackVarRe.ReplaceAllStringFunc(text, func(match string) string {
		groups := fallbackVarRe.FindStringSubmatch(match)
		name, fallback := groups[1], groups[2]
		if val, ok := vars.Get(name); ok && isNonEmpty(val) {
			return val
		}
		return fallback
	})
}

func resolveSpintax(text string, opts Options) string {
	// Spintax blocks may be nested one level by repeated passes; iterate
	// until no block remains or a fixed bound is hit to guarantee
	// termination on malformed input.
	for pass := 0; pass < 8; pass++ {
		if !spintaxRe.MatchString(text) {
			break
		}
		text = spintaxRe.ReplaceAllStringFunc(text, func(match string) string {
			inner := match[1 : len(match)-1]
			options := strings.Split(inner, "|")
			if len(options) == 0 {
				return ""
			}
			var idx int
			if opts.Random != nil {
				idx = opts.Random.Intn(len(options))
			} else {
				idx = opts.VariationIndex % len(options)
				if idx < 0 {
					idx += len(options)
				}
			}
			return options[idx]
		})
	}
	return text
}

func resolvePlainVariables(text string, vars Variables) string {
	return plainVarRe.ReplaceAllStringFunc(text, func(match string) string {
		groups := plainVarRe.FindStringSubmatch(match)
		val, _ := vars.Get(groups[1])
		return val
	})
}

// HasSmartPlaceholder reports whether text still contains an unresolved
// [free-form instruction] marker. The engine never resolves these itself;
// an external AI service must replace them before a message may be queued.
func HasSmartPlaceholder(text string) bool {
	return smartPlaceholderRe.MatchString(text)
}

// HasUnresolvedMarkup reports whether rendered output still contains any
// template syntax that must never reach a sent email (P10): variables,
// conditionals, or smart placeholders.
func HasUnresolvedMarkup(text string) bool {
	if HasSmartPlaceholder(text) {
		return true
	}
	if strings.Contains(text, "{{") || strings.Contains(text, "{if:") || strings.Contains(text, "{/if}") ||
		strings.Contains(text, "{ifnot:") || strings.Contains(text, "{/ifnot}") {
		return true
	}
	return false
}

var greetingNameRe = regexp.MustCompile(`(Hi|Hello|Hey|Dear|Mr\.|Ms\.|Mrs\.) ([A-Z][a-zA-Z]*)([,!.]?)`)

// FixResult reports what validateAndFixVariables changed.
type FixResult struct {
	Text     string
	Warnings []string
}

// ValidateAndFixVariables detects hardcoded greeting names in AI-generated
// content (e.g. "Hi John,", "Ms. Parker.") and rewrites them to use the
// firstName variable ("Hi {{firstName}},"), emitting a warning for each
// rewrite so the caller can surface it to the campaign author.
func ValidateAndFixVariables(text string) FixResult {
	var warnings []string
	fixed := greetingNameRe.ReplaceAllStringFunc(text, func(match string) string {
		groups := greetingNameRe.FindStringSubmatch(match)
		warnings = append(warnings, "rewrote hardcoded greeting name: "+match)
		return groups[1] + " {{firstName}}" + groups[3]
	})
	return FixResult{Text: fixed, Warnings: warnings}
}
