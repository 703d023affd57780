package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/htmlindex"
)

var (
	// ErrEmptyDocument is returned for empty or whitespace-only input.
	ErrEmptyDocument = errors.New("empty document")

	// ErrMalformedXML is returned when the input cannot be read as XML at all.
	ErrMalformedXML = errors.New("malformed XML")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse reads an invoice XML document into a tree. Parsing is lenient:
// undeclared entities and unquoted attributes are tolerated and no schema is
// enforced. The returned root is nameless; its only child is the document
// element.
func Parse(data []byte) (*Node, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}

	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: no document element", ErrMalformedXML)
	}
	top := &Node{Children: []*Node{convert(root)}}
	for _, tok := range doc.Child {
		if c, ok := tok.(*etree.Comment); ok {
			top.Comments = append(top.Comments, c.Data)
		}
	}
	return top, nil
}

func convert(el *etree.Element) *Node {
	n := &Node{Name: el.Tag}
	if len(el.Attr) > 0 {
		n.Attrs = make(map[string]string, len(el.Attr))
		for _, a := range el.Attr {
			n.Attrs[a.Key] = a.Value
		}
	}
	var text strings.Builder
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			text.WriteString(t.Data)
		case *etree.Element:
			n.Children = append(n.Children, convert(t))
		case *etree.Comment:
			n.Comments = append(n.Comments, t.Data)
		}
	}
	n.Text = strings.TrimSpace(text.String())
	return n
}

// charsetReader decodes documents that declare a non UTF-8 encoding, such as
// windows-1258 exports from older invoicing software.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8":
		return input, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}
