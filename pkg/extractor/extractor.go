package extractor

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/amosWeiskopf/formatcensus/pkg/utils"
)

// TextMode selects how page text is rendered
type TextMode string

const (
	// TextModeBody renders everything inside <body>
	TextModeBody TextMode = "body"
	// TextModeMain renders only the main content as found by trafilatura,
	// falling back to TextModeBody when nothing is found
	TextModeMain TextMode = "main"
)

// ParseTextMode validates a text mode name
func ParseTextMode(s string) (TextMode, error) {
	switch TextMode(strings.ToLower(s)) {
	case TextModeBody, "":
		return TextModeBody, nil
	case TextModeMain:
		return TextModeMain, nil
	default:
		return "", fmt.Errorf("unknown text mode %q", s)
	}
}

// linkSelector covers every element Tika-style link handlers report
const linkSelector = "a[href], area[href], link[href], img[src], iframe[src], frame[src], script[src]"

// Extractor turns HTML documents into hyperlinks or plain text
type Extractor struct {
	mode TextMode
}

// New creates a new Extractor rendering text in the given mode
func New(mode TextMode) *Extractor {
	if mode == "" {
		mode = TextModeBody
	}
	return &Extractor{mode: mode}
}

// Mode returns the text mode
func (e *Extractor) Mode() TextMode {
	return e.mode
}

// ExtractLinks returns every href/src reference in document order. Repeated
// references are reported once.
func (e *Extractor) ExtractLinks(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	var links []string
	seen := make(map[string]bool)
	doc.Find(linkSelector).Each(func(_ int, s *goquery.Selection) {
		ref, ok := s.Attr("href")
		if !ok {
			ref, _ = s.Attr("src")
		}
		ref = strings.TrimSpace(ref)
		if ref == "" || seen[ref] {
			return
		}
		seen[ref] = true
		links = append(links, ref)
	})
	return links, nil
}

// ExtractText renders the document as plain text according to the mode.
// At most maxBytes bytes of text are produced; the second result reports
// whether the text was cut. maxBytes <= 0 means no limit.
func (e *Extractor) ExtractText(body []byte, maxBytes int) (string, bool, error) {
	if e.mode == TextModeMain {
		result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{})
		if err == nil && result != nil && strings.TrimSpace(result.ContentText) != "" {
			text, cut := utils.TruncateBytes(result.ContentText, maxBytes)
			return text, cut, nil
		}
	}
	return BodyText(bytes.NewReader(body), maxBytes)
}

// BodyText renders the text inside <body>. Block level elements are
// separated by newlines; scripts, styles and templates are skipped.
// Rendering stops once maxBytes bytes have been written, so the text buffer
// never grows past the limit. maxBytes <= 0 means no limit.
func BodyText(r io.Reader, maxBytes int) (string, bool, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", false, fmt.Errorf("parse document: %w", err)
	}

	body := findBody(doc)
	if body == nil {
		return "", false, nil
	}

	w := &textWriter{limit: maxBytes}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if w.full {
			return
		}
		switch n.Type {
		case html.TextNode:
			w.WriteString(n.Data)
			return
		case html.ElementNode:
			if skipped[n.DataAtom] {
				return
			}
			if n.DataAtom == atom.Br {
				w.WriteString("\n")
				return
			}
		}

		block := n.Type == html.ElementNode && blocks[n.DataAtom]
		if block {
			w.newline()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			w.newline()
		}
	}
	walk(body)

	return strings.TrimLeft(w.b.String(), "\n"), w.full, nil
}

// textWriter is a strings.Builder that refuses to grow past limit bytes
type textWriter struct {
	b     strings.Builder
	limit int
	last  byte
	full  bool
}

func (w *textWriter) WriteString(s string) {
	if w.full || s == "" {
		return
	}
	if w.limit > 0 {
		room := w.limit - w.b.Len()
		if room <= 0 {
			w.full = true
			return
		}
		if len(s) > room {
			s, _ = utils.TruncateBytes(s, room)
			w.full = true
		}
	}
	if s == "" {
		return
	}
	w.b.WriteString(s)
	w.last = s[len(s)-1]
}

func (w *textWriter) newline() {
	if w.b.Len() > 0 && w.last != '\n' {
		w.WriteString("\n")
	}
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findBody(c); found != nil {
			return found
		}
	}
	return nil
}

var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

var blocks = map[atom.Atom]bool{
	atom.Address:    true,
	atom.Article:    true,
	atom.Aside:      true,
	atom.Blockquote: true,
	atom.Dd:         true,
	atom.Div:        true,
	atom.Dl:         true,
	atom.Dt:         true,
	atom.Fieldset:   true,
	atom.Figcaption: true,
	atom.Figure:     true,
	atom.Footer:     true,
	atom.Form:       true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Header:     true,
	atom.Hr:         true,
	atom.Li:         true,
	atom.Main:       true,
	atom.Nav:        true,
	atom.Ol:         true,
	atom.P:          true,
	atom.Pre:        true,
	atom.Section:    true,
	atom.Table:      true,
	atom.Td:         true,
	atom.Th:         true,
	atom.Tr:         true,
	atom.Ul:         true,
}
