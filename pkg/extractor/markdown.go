package extractor

import (
	"strings"

	"golang.org/x/net/html"
)

// renderMarkdown converts an HTML subtree into a markdown-like plain text
// representation. Link and image references are preserved; no line wrapping
// is imposed.
func renderMarkdown(root *html.Node) string {
	var b strings.Builder
	walkMarkdown(&b, root)
	return b.String()
}

func walkMarkdown(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		switch n.Data {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			level := int(n.Data[1] - '0')
			b.WriteString("\n\n" + strings.Repeat("#", level) + " ")
			walkChildren(b, n)
			b.WriteString("\n\n")
			return
		case "p", "div", "section", "table", "tr", "ul", "ol", "blockquote":
			b.WriteString("\n")
			walkChildren(b, n)
			b.WriteString("\n")
			return
		case "br":
			b.WriteString("\n")
			return
		case "li":
			b.WriteString("\n- ")
			walkChildren(b, n)
			return
		case "a":
			href := attrValue(n, "href")
			if href == "" {
				walkChildren(b, n)
				return
			}
			b.WriteString("[")
			walkChildren(b, n)
			b.WriteString("](" + href + ")")
			return
		case "img":
			b.WriteString("![" + attrValue(n, "alt") + "](" + attrValue(n, "src") + ")")
			return
		case "strong", "b":
			b.WriteString("**")
			walkChildren(b, n)
			b.WriteString("**")
			return
		case "em", "i":
			b.WriteString("*")
			walkChildren(b, n)
			b.WriteString("*")
			return
		case "pre":
			b.WriteString("\n```\n")
			walkChildren(b, n)
			b.WriteString("\n```\n")
			return
		case "code":
			b.WriteString("`")
			walkChildren(b, n)
			b.WriteString("`")
			return
		}
	}
	walkChildren(b, n)
}

func walkChildren(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkMarkdown(b, c)
	}
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
