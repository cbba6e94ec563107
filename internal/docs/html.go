package docs

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/ljcooper54/DeID/internal/shared"
)

// HTMLAdapter handles rich text with markup. Extraction walks the parse
// tree and pulls out the text nodes in document order; markup, attributes,
// and scripts are never touched. Reinject writes processed text back into
// the same nodes and re-renders the tree.
type HTMLAdapter struct{}

// NewHTMLAdapter creates the rich-text adapter.
func NewHTMLAdapter() *HTMLAdapter { return &HTMLAdapter{} }

func (a *HTMLAdapter) Name() string { return "html" }
func (a *HTMLAdapter) Lossy() bool  { return false }

// htmlStructure keeps the parsed tree and the text nodes extraction visited,
// in visit order.
type htmlStructure struct {
	root  *html.Node
	texts []*html.Node
}

// Extract parses the document and joins its text nodes with the unit
// separator. Newlines and separator bytes inside a text node are flattened
// to spaces so node boundaries stay unambiguous. Whitespace-only nodes are
// left alone.
func (a *HTMLAdapter) Extract(data []byte) (*Extraction, error) {
	if sniffBinary(data) {
		return nil, fmt.Errorf("%w: binary data", shared.ErrUnsupportedFormat)
	}

	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCorruptDocument, err)
	}

	st := &htmlStructure{root: root}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode && strings.TrimSpace(n.Data) != "" {
			n.Data = strings.ReplaceAll(n.Data, "\n", " ")
			n.Data = strings.ReplaceAll(n.Data, unitSep, " ")
			st.texts = append(st.texts, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	parts := make([]string, len(st.texts))
	for i, n := range st.texts {
		parts[i] = n.Data
	}
	return &Extraction{Text: strings.Join(parts, unitSep), Structure: st}, nil
}

// Reinject splits the processed text back onto the extracted text nodes and
// renders the tree.
func (a *HTMLAdapter) Reinject(structure any, text string) ([]byte, error) {
	st, ok := structure.(*htmlStructure)
	if !ok {
		return nil, fmt.Errorf("%w: not a markup structure", shared.ErrTypeMismatch)
	}

	parts := strings.Split(text, unitSep)
	if len(parts) != len(st.texts) {
		return nil, fmt.Errorf("%w: expected %d text nodes, got %d", shared.ErrCorruptDocument, len(st.texts), len(parts))
	}
	for i, n := range st.texts {
		n.Data = parts[i]
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, st.root); err != nil {
		return nil, fmt.Errorf("failed to render document: %w", err)
	}
	return buf.Bytes(), nil
}
