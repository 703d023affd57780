package engine

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ginjaninja78/hdon2xlsx/internal/document"
	"github.com/ginjaninja78/hdon2xlsx/internal/extension"
	"github.com/ginjaninja78/hdon2xlsx/internal/schema"
)

// Predicate decides whether a line item becomes a row. A nil Predicate
// keeps every item.
type Predicate func(item *document.Node) bool

// NatureCodeFilter keeps items whose classification flag (read at path) is
// in include, when include is non-empty, and not in exclude. It returns nil
// when both lists are empty.
func NatureCodeFilter(path string, include, exclude []string) Predicate {
	if len(include) == 0 && len(exclude) == 0 {
		return nil
	}
	p, err := document.Compile(path)
	if err != nil {
		p = document.MustCompile(schema.DefaultNaturePath)
	}
	in := toSet(include)
	out := toSet(exclude)
	return func(item *document.Node) bool {
		code := strings.TrimSpace(document.First(p.Find(item)))
		if len(in) > 0 && !in[code] {
			return false
		}
		return !out[code]
	}
}

// CompileFilter compiles a boolean expression over an item. The
// environment holds the item's leaf fields by element name (TChat, SLuong,
// ThTien, ...), its extension fields as ext, and num(x) for lenient number
// coercion:
//
//	TChat != "1" && num(ThTien) > 0
//	ext.UnitPriceAfterTax != nil
//
// Names the item lacks evaluate to nil. An item whose evaluation fails is
// kept.
func CompileFilter(src string) (Predicate, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}
	program, err := expr.Compile(src,
		expr.Env(filterEnv(nil)),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter %q: %w", src, err)
	}
	return func(item *document.Node) bool {
		return runFilter(program, item)
	}, nil
}

func runFilter(program *vm.Program, item *document.Node) bool {
	out, err := expr.Run(program, filterEnv(item))
	if err != nil {
		return true
	}
	keep, ok := out.(bool)
	return !ok || keep
}

func filterEnv(item *document.Node) map[string]any {
	env := map[string]any{}
	ext := map[string]any{}
	if item != nil {
		for k, v := range item.Fields() {
			env[k] = v
		}
		for k, v := range extension.ResolveContainer(item.Child("TTKhac")) {
			ext[k] = v
		}
	}
	env["ext"] = ext
	env["num"] = func(v any) float64 { return document.ToNumber(v) }
	return env
}

// All combines predicates; nil entries are ignored. It returns nil when
// nothing is left to check.
func All(preds ...Predicate) Predicate {
	var active []Predicate
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(item *document.Node) bool {
		for _, p := range active {
			if !p(item) {
				return false
			}
		}
		return true
	}
}

func toSet(vals []string) map[string]bool {
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[strings.TrimSpace(v)] = true
	}
	return m
}
