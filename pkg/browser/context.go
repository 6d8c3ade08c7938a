package browser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// DefaultContextLimit bounds the condensed page text handed to the
// interpreter, in bytes.
const DefaultContextLimit = 8000

// CondenseHTML reduces raw page HTML to the compact text representation the
// interpreter receives: visible text in document order, with interactive
// elements (links, buttons, inputs) annotated inline with a selector the
// interpreter can echo back in primitives and observations. Scripts, styles,
// and comments are dropped. Output is truncated at maxLen bytes.
func CondenseHTML(rawHTML string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultContextLimit
	}
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		// An unparseable page still gets a bounded raw slice so the
		// interpreter sees something.
		return truncateRunes(rawHTML, maxLen)
	}

	var b strings.Builder
	condenseNode(doc, &b, maxLen)
	return strings.TrimSpace(b.String())
}

func condenseNode(n *html.Node, b *strings.Builder, maxLen int) bool {
	if b.Len() >= maxLen {
		return true
	}

	switch n.Type {
	case html.CommentNode:
		return false
	case html.ElementNode:
		if skippedElement(n.Data) {
			return false
		}
		if marker := elementMarker(n); marker != "" {
			writeToken(b, marker, maxLen)
			// Interactive elements carry their text inside the marker;
			// don't repeat it as plain text.
			return b.Len() >= maxLen
		}
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text != "" {
			writeToken(b, text, maxLen)
		}
		return b.Len() >= maxLen
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if condenseNode(c, b, maxLen) {
			return true
		}
	}
	return false
}

func skippedElement(tag string) bool {
	switch strings.ToLower(tag) {
	case "script", "style", "noscript", "svg", "iframe", "template", "head":
		return true
	}
	return false
}

// elementMarker renders an interactive element as an inline annotation, for
// example [link href=/docs "Documentation"] or [input name=q type=text].
func elementMarker(n *html.Node) string {
	tag := strings.ToLower(n.Data)
	switch tag {
	case "a":
		return fmt.Sprintf("[link %s %q]", selectorFor(n, "a"), nodeText(n))
	case "button":
		return fmt.Sprintf("[button %s %q]", selectorFor(n, "button"), nodeText(n))
	case "input":
		kind := attr(n, "type")
		if kind == "" {
			kind = "text"
		}
		return fmt.Sprintf("[input %s type=%s]", selectorFor(n, "input"), kind)
	case "textarea":
		return fmt.Sprintf("[textarea %s]", selectorFor(n, "textarea"))
	case "select":
		return fmt.Sprintf("[select %s]", selectorFor(n, "select"))
	}
	return ""
}

// selectorFor builds the most specific stable selector available: id, then
// name, then the bare tag.
func selectorFor(n *html.Node, tag string) string {
	if id := attr(n, "id"); id != "" {
		return "#" + id
	}
	if name := attr(n, "name"); name != "" {
		return fmt.Sprintf("%s[name=%q]", tag, name)
	}
	if href := attr(n, "href"); href != "" && tag == "a" {
		return fmt.Sprintf("a[href=%q]", href)
	}
	return tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func writeToken(b *strings.Builder, token string, maxLen int) {
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	remaining := maxLen - b.Len()
	if remaining <= 0 {
		return
	}
	b.WriteString(truncateRunes(token, remaining))
}

// truncateRunes caps s at max bytes without splitting a UTF-8 sequence.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
