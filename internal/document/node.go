// =============================================================================
// hdon2xlsx - Document Model
// =============================================================================
//
// This package holds the typed tree an invoice XML document is read into,
// together with the path evaluator and the tolerant scalar helpers used by
// the rule engine.
//
// TREE SHAPE:
//   The tree mirrors the XML element hierarchy. The value returned by Parse
//   is a nameless root whose single child is the document element, so paths
//   can address the document element by name:
//
//   (root)
//   └── HDon
//       ├── DLHDon
//       │   ├── TTChung        (template, series, number, date, currency, rate)
//       │   └── NDHDon
//       │       ├── NBan       (seller: MST, Ten, DChi)
//       │       └── DSHHDVu
//       │           ├── HHDVu  (line item)
//       │           └── HHDVu
//       └── TTKhac
//           └── TTin           (TTruong / DLieu extension pair)
//
// Nodes are built once per document and never mutated afterwards, so a tree
// can be read from any number of goroutines.
//
// =============================================================================

package document

import (
	"sort"
	"strings"
)

// Node is one element of a parsed document.
type Node struct {
	// Name is the local element name (namespace prefix stripped).
	Name string

	// Text is the trimmed character data directly inside the element.
	Text string

	// Attrs holds the element attributes keyed by local name.
	Attrs map[string]string

	// Children are the child elements in source order.
	Children []*Node

	// Comments holds the text of XML comments directly inside the element.
	Comments []string
}

// NewNode builds a node. It is mostly useful for tests and for callers that
// assemble documents without XML.
func NewNode(name, text string, children ...*Node) *Node {
	return &Node{Name: name, Text: text, Children: children}
}

// Leaf is shorthand for a childless node carrying text.
func Leaf(name, text string) *Node {
	return &Node{Name: name, Text: text}
}

// Child returns the first child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns every child with the given name, in source order.
func (n *Node) ChildrenNamed(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Value returns the scalar value of the node. Elements with children have no
// scalar value of their own and yield their direct text, usually empty.
func (n *Node) Value() string {
	if n == nil {
		return ""
	}
	return n.Text
}

// Fields returns the leaf children of n as a name → text map. When a name
// repeats, the first occurrence wins.
func (n *Node) Fields() map[string]string {
	out := map[string]string{}
	if n == nil {
		return out
	}
	for _, c := range n.Children {
		if len(c.Children) > 0 {
			continue
		}
		if _, seen := out[c.Name]; !seen {
			out[c.Name] = c.Text
		}
	}
	return out
}

// String serializes the subtree to a compact, deterministic XML-like text.
// Attributes are written in sorted order and comments are kept, so marker
// phrases vendors put in comments are still found. The output is meant for substring
// searches, not for round-tripping.
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	if n.Name != "" {
		b.WriteByte('<')
		b.WriteString(n.Name)
		if len(n.Attrs) > 0 {
			keys := make([]string, 0, len(n.Attrs))
			for k := range n.Attrs {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				b.WriteByte(' ')
				b.WriteString(k)
				b.WriteString(`="`)
				b.WriteString(n.Attrs[k])
				b.WriteByte('"')
			}
		}
		b.WriteByte('>')
	}
	b.WriteString(n.Text)
	for _, c := range n.Comments {
		b.WriteString("<!--")
		b.WriteString(c)
		b.WriteString("-->")
	}
	for _, c := range n.Children {
		c.write(b)
	}
	if n.Name != "" {
		b.WriteString("</")
		b.WriteString(n.Name)
		b.WriteByte('>')
	}
}
