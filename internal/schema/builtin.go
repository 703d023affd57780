package schema

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
)

// BuiltinPrefix selects a compiled-in rule set in place of a file path,
// as in "builtin:vat8".
const BuiltinPrefix = "builtin:"

// DefaultBuiltin is the rule set used when no schema file is available.
const DefaultBuiltin = "vat8"

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Builtin returns a compiled-in rule set by name.
func Builtin(name string) (*Schema, error) {
	data, err := builtinFS.ReadFile(path.Join("builtin", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("unknown built-in schema %q (have %s)", name, strings.Join(Builtins(), ", "))
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("built-in schema %s: %w", name, err)
	}
	s.Source = BuiltinPrefix + name
	return s, nil
}

// Builtins lists the compiled-in rule set names.
func Builtins() []string {
	entries, _ := builtinFS.ReadDir("builtin")
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Resolve loads ref, which is either a file path or a BuiltinPrefix name.
func Resolve(ref string) (*Schema, error) {
	if name, ok := strings.CutPrefix(ref, BuiltinPrefix); ok {
		return Builtin(name)
	}
	return Load(ref)
}
