// Package htmltext converts HTML email bodies to plain text and inspects
// their link structure. This is part of the platform layer and contains no
// business logic.
package htmltext

import (
	"strings"

	"golang.org/x/net/html"
)

// skip these elements entirely when extracting text
var skippedElements = map[string]bool{
	"script": true,
	"style":  true,
	"head":   true,
}

// blockElements get a newline appended so paragraphs stay separated.
var blockElements = map[string]bool{
	"p":   true,
	"br":  true,
	"div": true,
	"tr":  true,
	"li":  true,
	"h1":  true,
	"h2":  true,
	"h3":  true,
	"h4":  true,
}

// ToText extracts readable text from an HTML document. A parse failure
// returns the input unchanged; email HTML is too messy to reject.
func ToText(source string) string {
	root, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return source
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			b.WriteString("\n")
		}
	}
	walk(root)

	return collapseWhitespace(b.String())
}

// CountDistinctLinks counts unique anchor targets in an HTML document,
// ignoring in-page fragments and mailto links.
func CountDistinctLinks(source string) int {
	root, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return 0
	}

	seen := map[string]bool{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				href := strings.TrimSpace(attr.Val)
				if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") {
					continue
				}
				seen[href] = true
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	return len(seen)
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.Join(strings.Fields(line), " ")
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}
