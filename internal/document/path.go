package document

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadPath is returned by Compile for expressions it cannot read.
var ErrBadPath = errors.New("invalid path expression")

// =============================================================================
// PATH EXPRESSIONS
// =============================================================================
//
// Supported syntax (a JSONPath subset sized for invoice schemas):
//
//   $                 the context node
//   .Name  ['Name']   children named Name
//   ..Name            descendants named Name, depth first
//   .*                every child
//   .@Attr            attribute Attr, as a leaf node
//   [*]               every node selected so far
//   [n]  [-n]         the n-th node among siblings selected by the last
//                     name step (negative counts from the end)
//
// A name step always selects every child with that name, so a repeated
// element and a single element are addressed the same way. Expressions that
// do not start with "$" are read as if prefixed with "$.".

type stepKind int

const (
	stepChild stepKind = iota
	stepDescendant
	stepWildcard
	stepAttr
	stepAll
	stepIndex
)

type step struct {
	kind  stepKind
	name  string
	index int
}

// Path is a compiled path expression.
type Path struct {
	raw   string
	steps []step
}

// String returns the source expression.
func (p *Path) String() string {
	return p.raw
}

// Compile parses a path expression.
func Compile(expr string) (*Path, error) {
	src := strings.TrimSpace(expr)
	if src == "" {
		return nil, fmt.Errorf("%w: empty", ErrBadPath)
	}
	rest := src
	if strings.HasPrefix(rest, "$") {
		rest = rest[1:]
	} else {
		rest = "." + rest
	}

	var steps []step
	for len(rest) > 0 {
		switch {
		case strings.HasPrefix(rest, ".."):
			name, tail := readName(rest[2:])
			if name == "" {
				return nil, fmt.Errorf("%w: %q: missing name after '..'", ErrBadPath, src)
			}
			steps = append(steps, step{kind: stepDescendant, name: name})
			rest = tail
		case rest[0] == '.':
			name, tail := readName(rest[1:])
			switch {
			case name == "":
				return nil, fmt.Errorf("%w: %q: missing name after '.'", ErrBadPath, src)
			case name == "*":
				steps = append(steps, step{kind: stepWildcard})
			case strings.HasPrefix(name, "@"):
				steps = append(steps, step{kind: stepAttr, name: name[1:]})
			default:
				steps = append(steps, step{kind: stepChild, name: name})
			}
			rest = tail
		case rest[0] == '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: %q: unclosed '['", ErrBadPath, src)
			}
			s, err := readBracket(strings.TrimSpace(rest[1:end]))
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrBadPath, src, err)
			}
			steps = append(steps, s)
			rest = rest[end+1:]
		default:
			return nil, fmt.Errorf("%w: %q: unexpected %q", ErrBadPath, src, rest[:1])
		}
	}
	return &Path{raw: src, steps: steps}, nil
}

// MustCompile is like Compile but panics on error. Use it for constants.
func MustCompile(expr string) *Path {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func readName(s string) (string, string) {
	i := 0
	for i < len(s) && s[i] != '.' && s[i] != '[' {
		i++
	}
	return strings.TrimSpace(s[:i]), s[i:]
}

func readBracket(inner string) (step, error) {
	switch {
	case inner == "*":
		return step{kind: stepAll}, nil
	case len(inner) >= 2 && (inner[0] == '\'' || inner[0] == '"') && inner[len(inner)-1] == inner[0]:
		name := inner[1 : len(inner)-1]
		if name == "" {
			return step{}, errors.New("empty quoted name")
		}
		return step{kind: stepChild, name: name}, nil
	default:
		n, err := strconv.Atoi(inner)
		if err != nil {
			return step{}, fmt.Errorf("bad index %q", inner)
		}
		return step{kind: stepIndex, index: n}, nil
	}
}

// Find evaluates the path against n. Absent structure yields an empty
// result, never an error.
func (p *Path) Find(n *Node) []*Node {
	if p == nil || n == nil {
		return nil
	}
	// groups keeps the siblings selected by the last name step apart, so an
	// index step picks per parent.
	groups := [][]*Node{{n}}
	for _, s := range p.steps {
		var next [][]*Node
		switch s.kind {
		case stepChild:
			for _, g := range groups {
				for _, node := range g {
					if kids := node.ChildrenNamed(s.name); len(kids) > 0 {
						next = append(next, kids)
					}
				}
			}
		case stepWildcard:
			for _, g := range groups {
				for _, node := range g {
					if len(node.Children) > 0 {
						next = append(next, node.Children)
					}
				}
			}
		case stepAttr:
			for _, g := range groups {
				for _, node := range g {
					if v, ok := node.Attrs[s.name]; ok {
						next = append(next, []*Node{Leaf("@"+s.name, v)})
					}
				}
			}
		case stepDescendant:
			for _, g := range groups {
				for _, node := range g {
					if found := descendants(node, s.name, nil); len(found) > 0 {
						next = append(next, found)
					}
				}
			}
		case stepAll:
			for _, g := range groups {
				for _, node := range g {
					next = append(next, []*Node{node})
				}
			}
		case stepIndex:
			for _, g := range groups {
				i := s.index
				if i < 0 {
					i += len(g)
				}
				if i >= 0 && i < len(g) {
					next = append(next, []*Node{g[i]})
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		groups = next
	}

	var out []*Node
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func descendants(n *Node, name string, acc []*Node) []*Node {
	for _, c := range n.Children {
		if c.Name == name {
			acc = append(acc, c)
		}
		acc = descendants(c, name, acc)
	}
	return acc
}

// Find compiles expr and evaluates it against n. An expression that does
// not compile matches nothing.
func Find(n *Node, expr string) []*Node {
	p, err := Compile(expr)
	if err != nil {
		return nil
	}
	return p.Find(n)
}
