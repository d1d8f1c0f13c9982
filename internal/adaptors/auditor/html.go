package auditor

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// maxSnippetLen truncates node snippets the way axe does for large nodes.
const maxSnippetLen = 300

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func attrValue(n *html.Node, key string) string {
	v, _ := attr(n, key)
	return strings.TrimSpace(v)
}

func isElement(n *html.Node, tags ...string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, t := range tags {
		if n.Data == t {
			return true
		}
	}
	return false
}

// findAll returns every element below root matching one of tags, in document order.
func findAll(root *html.Node, tags ...string) []*html.Node {
	var nodes []*html.Node
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if isElement(n, tags...) {
			nodes = append(nodes, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(root)
	return nodes
}

func findFirst(root *html.Node, tag string) *html.Node {
	nodes := findAll(root, tag)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

func hasAncestor(n *html.Node, tag string) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if isElement(p, tag) {
			return true
		}
	}
	return false
}

// textContent concatenates the text below n, collapsing whitespace.
func textContent(n *html.Node) string {
	var b strings.Builder
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// accessibleName approximates the computed name of n from aria attributes,
// text content, descendant image alt text and the title attribute.
func accessibleName(n *html.Node) string {
	if v := attrValue(n, "aria-label"); v != "" {
		return v
	}
	if v := attrValue(n, "aria-labelledby"); v != "" {
		return v
	}
	if v := textContent(n); v != "" {
		return v
	}
	for _, img := range findAll(n, "img") {
		if v := attrValue(img, "alt"); v != "" {
			return v
		}
	}
	return attrValue(n, "title")
}

// snippet renders n as HTML, shortened for reporting.
func snippet(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "<" + n.Data + ">"
	}
	s := strings.TrimSpace(buf.String())
	if len(s) > maxSnippetLen {
		cut := maxSnippetLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}
