// =============================================================================
// hdon2xlsx - Column Actions
// =============================================================================
//
// Columns may post-process their extracted text before numeric coercion, for
// example to turn a source tax rate label like "8%" into "8".
//
// SUPPORTED ACTIONS:
//   - String manipulations  (prepend_string, append_string, trim, trim_left,
//                            trim_right, uppercase, lowercase, substring)
//   - Replacements          (replace, regex_replace, strip_percent)
//   - Numeric text          (pad_zeros_to_length, remove_leading_zeros,
//                            extract_digits)
//   - Dates                 (format_date, "layout_in|layout_out")
//   - Lookups and defaults  (lookup, lookup_with_default, default)
//
// Actions run in declared order. A schema with an unknown action or a bad
// regular expression still converts: the step is skipped at run time and
// reported by `hdon2xlsx validate`.
//
// =============================================================================

package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/hdon2xlsx/internal/schema"
)

var (
	digitRuns  = regexp.MustCompile(`\d+`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Transform is one compiled column action.
type Transform struct {
	action schema.Action
	re     *regexp.Regexp
}

// CompileTransform checks an action and prepares it for repeated use.
//
// RETURNS:
//   - The compiled transform.
//   - An error for unknown action types, invalid regular expressions, or
//     non-numeric lengths.
func CompileTransform(a schema.Action) (Transform, error) {
	t := Transform{action: a}
	switch strings.ToLower(strings.TrimSpace(a.Type)) {
	case "prepend_string", "append_string", "trim", "trim_left", "trim_right",
		"uppercase", "lowercase", "replace", "strip_percent",
		"remove_leading_zeros", "extract_digits", "normalize_whitespace",
		"lookup", "lookup_with_default", "default", "if_empty_use_default":
	case "regex_replace":
		if a.Find == "" {
			break
		}
		re, err := regexp.Compile(a.Find)
		if err != nil {
			return t, fmt.Errorf("invalid regex pattern: %w", err)
		}
		t.re = re
	case "pad_zeros_to_length":
		if _, err := strconv.Atoi(a.Value); err != nil {
			return t, fmt.Errorf("pad length %q is not a number", a.Value)
		}
	case "substring":
		if _, _, ok := substringBounds(a.Value); !ok {
			return t, fmt.Errorf("substring bounds %q must be \"start,end\"", a.Value)
		}
	case "format_date":
		if len(strings.Split(a.Value, "|")) != 2 {
			return t, fmt.Errorf("date formats %q must be \"input|output\"", a.Value)
		}
	default:
		return t, fmt.Errorf("unknown action type: %s", a.Type)
	}
	t.action.Type = strings.ToLower(strings.TrimSpace(a.Type))
	return t, nil
}

// Apply runs the action on value. It never fails; inputs the action cannot
// handle come back unchanged.
func (t Transform) Apply(value string) string {
	a := t.action
	switch a.Type {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case "prepend_string":
		return a.Value + value
	case "append_string":
		return value + a.Value
	case "trim":
		return strings.TrimSpace(value)
	case "trim_left":
		if a.Value != "" {
			return strings.TrimLeft(value, a.Value)
		}
		return strings.TrimLeft(value, " \t\n\r")
	case "trim_right":
		if a.Value != "" {
			return strings.TrimRight(value, a.Value)
		}
		return strings.TrimRight(value, " \t\n\r")
	case "uppercase":
		return strings.ToUpper(value)
	case "lowercase":
		return strings.ToLower(value)
	case "normalize_whitespace":
		return strings.TrimSpace(whitespace.ReplaceAllString(value, " "))
	case "substring":
		// Bounds count characters, not bytes.
		start, end, _ := substringBounds(a.Value)
		r := []rune(value)
		if end > len(r) {
			end = len(r)
		}
		if start >= end {
			return ""
		}
		return string(r[start:end])

	// =========================================================================
	// REPLACEMENTS
	// =========================================================================

	case "replace":
		if a.Find == "" {
			return value
		}
		return strings.ReplaceAll(value, a.Find, a.Value)
	case "regex_replace":
		if t.re == nil {
			return value
		}
		return t.re.ReplaceAllString(value, a.Value)
	case "strip_percent":
		// "8%" -> "8", "8,5 %" -> "8,5"
		return strings.TrimSpace(strings.ReplaceAll(value, "%", ""))

	// =========================================================================
	// NUMERIC TEXT
	// =========================================================================

	case "pad_zeros_to_length":
		n, err := strconv.Atoi(a.Value)
		if err != nil || n <= 0 {
			return value
		}
		return PadLeft(value, n, '0')
	case "remove_leading_zeros":
		if out := strings.TrimLeft(value, "0"); out != "" {
			return out
		}
		if value == "" {
			return ""
		}
		return "0"
	case "extract_digits":
		return strings.Join(digitRuns.FindAllString(value, -1), "")

	// =========================================================================
	// DATES
	// =========================================================================

	case "format_date":
		parts := strings.Split(a.Value, "|")
		ts, err := time.Parse(strings.TrimSpace(parts[0]), strings.TrimSpace(value))
		if err != nil {
			return value
		}
		return ts.Format(strings.TrimSpace(parts[1]))

	// =========================================================================
	// LOOKUPS AND DEFAULTS
	// =========================================================================

	case "lookup":
		if v, ok := a.LookupTable[value]; ok {
			return v
		}
		return value
	case "lookup_with_default":
		if v, ok := a.LookupTable[value]; ok {
			return v
		}
		return a.Value
	case "default", "if_empty_use_default":
		if strings.TrimSpace(value) == "" {
			return a.Value
		}
		return value
	}
	return value
}

// compileTransforms keeps the actions that compile, in order.
func compileTransforms(actions []schema.Action) []Transform {
	var out []Transform
	for _, a := range actions {
		if t, err := CompileTransform(a); err == nil {
			out = append(out, t)
		}
	}
	return out
}

func applyTransforms(value string, ts []Transform) string {
	for _, t := range ts {
		value = t.Apply(value)
	}
	return value
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// PadLeft pads s on the left with padChar to length characters.
func PadLeft(s string, length int, padChar rune) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-n) + s
}

func substringBounds(v string) (start, end int, ok bool) {
	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	end, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	if start < 0 {
		start = 0
	}
	return start, end, true
}
