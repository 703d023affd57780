package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ginjaninja78/hdon2xlsx/internal/document"
	"github.com/ginjaninja78/hdon2xlsx/internal/engine"
	"github.com/ginjaninja78/hdon2xlsx/internal/schema"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue is one problem found in a schema.
type Issue struct {
	// Severity is SeverityError when the schema would produce wrong
	// output, SeverityWarning when it is merely suspicious.
	Severity string

	// Field locates the problem, e.g. "columns[3].path".
	Field string

	Message string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("[%s] %s: %s", strings.ToUpper(i.Severity), i.Field, i.Message)
}

// Report is the outcome of LintSchema.
type Report struct {
	Issues       []Issue
	ErrorCount   int
	WarningCount int
}

// Valid is true when no issue is an error.
func (r *Report) Valid() bool { return r.ErrorCount == 0 }

func (r *Report) add(severity, field, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: severity, Field: field, Message: fmt.Sprintf(format, args...)})
	if severity == SeverityError {
		r.ErrorCount++
	} else {
		r.WarningCount++
	}
}

// LintSchema checks everything the engine would otherwise degrade
// silently: paths that do not compile, unknown compute tags, bad actions
// and a filter expression that does not compile.
func LintSchema(s *schema.Schema) *Report {
	r := &Report{}
	if s == nil {
		r.add(SeverityError, "schema", "schema is nil")
		return r
	}
	sh := s.XLSX

	if len(sh.Columns) == 0 {
		r.add(SeverityError, "columns", "schema declares no columns")
	}

	lintPath(r, "explode.base", sh.Explode.Base)
	lintPath(r, "explode.document_extensions", sh.Explode.DocumentExtensions)
	lintPath(r, "explode.item_extensions", sh.Explode.ItemExtensions)
	lintPath(r, "explode.nature_path", sh.Explode.NaturePath)
	lintPath(r, "defaults.currency_path", sh.Defaults.CurrencyPath)

	if _, err := engine.CompileFilter(sh.Explode.Filter); err != nil {
		r.add(SeverityError, "explode.filter", "%v", err)
	}
	for _, code := range sh.Explode.IncludeNature {
		for _, ex := range sh.Explode.ExcludeNature {
			if strings.TrimSpace(code) == strings.TrimSpace(ex) {
				r.add(SeverityWarning, "explode", "nature code %q is both included and excluded", code)
			}
		}
	}

	if scope := strings.ToLower(strings.TrimSpace(sh.Note.Scope)); scope != "" &&
		scope != schema.NoteScopeDocument && scope != schema.NoteScopeItem {
		r.add(SeverityWarning, "note.scope", "unknown scope %q, %s is used", sh.Note.Scope, schema.NoteScopeDocument)
	}

	headers := map[string]int{}
	for i, c := range sh.Columns {
		lintColumn(r, i, c, headers)
	}
	return r
}

func lintColumn(r *Report, i int, c schema.Column, headers map[string]int) {
	field := func(name string) string { return fmt.Sprintf("columns[%d].%s", i, name) }

	header := strings.TrimSpace(c.Header)
	if header == "" {
		r.add(SeverityWarning, field("header"), "column has no header")
	} else if prev, dup := headers[header]; dup {
		r.add(SeverityWarning, field("header"), "header %q repeats columns[%d]", header, prev)
	} else {
		headers[header] = i
	}

	switch c.Kind() {
	case schema.KindUnknown:
		if c.Compute != "" {
			r.add(SeverityError, field("compute"), "unknown compute tag %q (want VAT, TOTAL or NOTE)", c.Compute)
		} else {
			r.add(SeverityWarning, field("path"), "column has no path, constant or compute and is always empty")
		}
	case schema.KindPath:
		lintPath(r, field("path"), c.Path)
	case schema.KindConstant:
		if c.Numeric() && len(c.Actions) == 0 {
			if _, err := strconv.ParseFloat(strings.TrimSpace(*c.Constant), 64); err != nil {
				r.add(SeverityWarning, field("constant"), "numeric constant %q is not a number and becomes 0", *c.Constant)
			}
		}
	}

	if c.Constant != nil && c.Compute != "" {
		r.add(SeverityWarning, field("compute"), "constant takes precedence over compute %q", c.Compute)
	}
	if c.Round != nil && !(c.Numeric() && c.Kind() == schema.KindPath) {
		r.add(SeverityWarning, field("round"), "round only applies to numeric path columns")
	}
	if t := strings.TrimSpace(c.Type); t != "" && schema.NormalizeType(t) == schema.TypeString &&
		!strings.EqualFold(t, schema.TypeString) && !strings.EqualFold(t, "text") {
		r.add(SeverityWarning, field("type"), "unknown type %q is treated as string", c.Type)
	}

	for j, a := range c.Actions {
		if _, err := engine.CompileTransform(a); err != nil {
			r.add(SeverityError, fmt.Sprintf("columns[%d].actions[%d]", i, j), "%v", err)
		}
	}
}

func lintPath(r *Report, field, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	if _, err := document.Compile(path); err != nil {
		r.add(SeverityError, field, "%v", err)
	}
}

// FormatIssues renders a report for the terminal.
func FormatIssues(r *Report) string {
	if r == nil || len(r.Issues) == 0 {
		return "No schema issues."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Schema check found %d error(s) and %d warning(s):\n\n", r.ErrorCount, r.WarningCount)
	for i, issue := range r.Issues {
		fmt.Fprintf(&b, "%d. %s\n", i+1, issue.Error())
	}
	return b.String()
}
