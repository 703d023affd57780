package engine

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ginjaninja78/hdon2xlsx/internal/document"
	"github.com/ginjaninja78/hdon2xlsx/internal/schema"
)

// Marker phrases searched for in the invoice text, in priority order.
const (
	PhraseAmendment   = "Điều chỉnh cho hóa đơn"
	PhraseReplacement = "Thay thế cho hóa đơn"
)

// Note labels.
const (
	NoteAmended  = "Hoá đơn điều chỉnh"
	NoteReplaced = "Hoá đơn thay thế"
	NoteNew      = "Hoá đơn mới"
)

var (
	amendmentNFC   = norm.NFC.String(PhraseAmendment)
	replacementNFC = norm.NFC.String(PhraseReplacement)
)

// DetectNote classifies text by the marker phrases. The amendment phrase
// wins when both are present. Text is NFC-normalized first, so decomposed
// diacritics from some vendors still match.
func DetectNote(text string) string {
	if text == "" {
		return NoteNew
	}
	s := norm.NFC.String(text)
	switch {
	case strings.Contains(s, amendmentNFC):
		return NoteAmended
	case strings.Contains(s, replacementNFC):
		return NoteReplaced
	default:
		return NoteNew
	}
}

// noteText returns the text searched for one note: the whole serialized
// invoice, or only the item's extension nodes.
func noteText(inv, item *document.Node, scope, itemExtPath string) string {
	if scope != schema.NoteScopeItem {
		return inv.String()
	}
	var b strings.Builder
	for _, n := range document.Find(item, itemExtPath) {
		b.WriteString(n.String())
	}
	return b.String()
}
