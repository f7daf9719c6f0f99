package html

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Parser represents an HTML parser
type Parser struct{}

// Node represents an HTML node in the document tree
type Node struct {
	Type        html.NodeType
	Data        string
	Attr        []html.Attribute
	Parent      *Node
	FirstChild  *Node
	LastChild   *Node
	PrevSibling *Node
	NextSibling *Node
}

// Block is one top-level content node of a document. Elements form one block
// each; consecutive top-level inline content forms one anonymous block.
type Block struct {
	Index int
	// Tag is the lower-case element name, empty for anonymous blocks
	Tag string
	// Markup is the serialized markup used for both measurement and rendering
	Markup string
	// Nodes holds the parsed tree; a single element unless Anonymous
	Nodes     []*Node
	Anonymous bool
}

// Document represents a parsed rich-text document
type Document struct {
	Raw    string
	Root   *Node
	Body   *Node
	Blocks []*Block
	// Styles are the author stylesheets found in the input, in source order
	Styles []string
	// StyleLinks are the hrefs of <link rel="stylesheet"> elements
	StyleLinks []string
}

// Empty reports whether the document has no content blocks.
func (d *Document) Empty() bool {
	return len(d.Blocks) == 0
}

// NewParser creates a new HTML parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseString parses HTML from a string
func (p *Parser) ParseString(content string) (*Document, error) {
	return p.Parse(strings.NewReader(content))
}

// Parse parses a fragment or a full document. Fragments land in the body the
// same way a browser would place them.
func (p *Parser) Parse(r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	xroot, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	doc := &Document{Raw: string(raw)}
	doc.Root = convertNode(xroot, nil)
	doc.Styles, doc.StyleLinks = collectStyles(xroot)

	xbody := findElement(xroot, "body")
	if xbody == nil {
		return doc, nil
	}
	doc.Body = findConverted(doc.Root, "body")

	blocks, err := splitBlocks(xbody, doc.Body)
	if err != nil {
		return nil, err
	}
	doc.Blocks = blocks
	return doc, nil
}

// splitBlocks walks the body's children in parallel with their converted
// counterparts and groups them into top-level blocks.
func splitBlocks(xbody *html.Node, body *Node) ([]*Block, error) {
	var (
		blocks []*Block
		pendX  []*html.Node
		pendN  []*Node
	)
	flusher := func() error {
		pendX, pendN = trimGroup(pendX, pendN)
		if len(pendX) == 0 {
			pendX, pendN = nil, nil
			return nil
		}
		markup, err := renderAll(pendX)
		if err != nil {
			return err
		}
		blocks = append(blocks, &Block{
			Index:     len(blocks),
			Markup:    markup,
			Nodes:     pendN,
			Anonymous: true,
		})
		pendX, pendN = nil, nil
		return nil
	}

	c := body.FirstChild
	for xc := xbody.FirstChild; xc != nil; xc = xc.NextSibling {
		n := c
		c = c.NextSibling

		if xc.Type == html.ElementNode && IsBlockTag(xc.Data) {
			if err := flusher(); err != nil {
				return nil, err
			}
			markup, err := renderAll([]*html.Node{xc})
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, &Block{
				Index:  len(blocks),
				Tag:    strings.ToLower(xc.Data),
				Markup: markup,
				Nodes:  []*Node{n},
			})
			continue
		}
		pendX = append(pendX, xc)
		pendN = append(pendN, n)
	}
	if err := flusher(); err != nil {
		return nil, err
	}
	return blocks, nil
}

// trimGroup drops insignificant nodes from both ends of an inline group and
// discards the group entirely when nothing visible remains.
func trimGroup(xs []*html.Node, ns []*Node) ([]*html.Node, []*Node) {
	start, end := 0, len(xs)
	for start < end && insignificant(xs[start]) {
		start++
	}
	for end > start && insignificant(xs[end-1]) {
		end--
	}
	return xs[start:end], ns[start:end]
}

func insignificant(n *html.Node) bool {
	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return true
	case html.TextNode:
		return strings.TrimSpace(n.Data) == ""
	}
	return false
}

// IsBlockTag reports whether a tag name is treated as block-level
func IsBlockTag(tag string) bool {
	switch strings.ToLower(tag) {
	case "div", "p", "h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "dl", "dt", "dd", "table", "thead", "tbody", "tfoot",
		"tr", "td", "th", "caption", "header", "footer", "section", "article",
		"form", "fieldset", "hr", "blockquote", "address", "main",
		"nav", "aside", "pre", "figure", "figcaption", "details", "summary",
		"center", "style", "script", "template", "noscript":
		return true
	default:
		return false
	}
}

// convertNode converts an html.Node to our Node structure
func convertNode(n *html.Node, parent *Node) *Node {
	if n == nil {
		return nil
	}

	node := &Node{
		Type:   n.Type,
		Data:   n.Data,
		Attr:   n.Attr,
		Parent: parent,
	}

	var lastChild *Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		child := convertNode(c, node)
		if node.FirstChild == nil {
			node.FirstChild = child
		}
		if lastChild != nil {
			lastChild.NextSibling = child
			child.PrevSibling = lastChild
		}
		lastChild = child
	}
	node.LastChild = lastChild

	return node
}

// Attribute returns the value of the named attribute.
func (n *Node) Attribute(key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

// Tag returns the lower-case element name or "" for non-elements.
func (n *Node) Tag() string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

// Render renders the document's blocks back to HTML
func (d *Document) Render() string {
	var b strings.Builder
	for _, blk := range d.Blocks {
		b.WriteString(blk.Markup)
	}
	return b.String()
}

func renderAll(nodes []*html.Node) (string, error) {
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func findConverted(n *Node, tag string) *Node {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findConverted(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// collectStyles walks the tree in document order and returns the text of every
// <style> block and the href of every stylesheet link.
func collectStyles(n *html.Node) (styles, links []string) {
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.ElementNode && strings.EqualFold(cur.Data, "link") {
			if href := stylesheetHref(cur); href != "" {
				links = append(links, href)
			}
		}
		if cur.Type == html.ElementNode && strings.EqualFold(cur.Data, "style") {
			var b strings.Builder
			for c := cur.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					b.WriteString(c.Data)
					b.WriteString("\n")
				}
			}
			if cssText := strings.TrimSpace(b.String()); cssText != "" {
				styles = append(styles, cssText)
			}
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return styles, links
}

func stylesheetHref(n *html.Node) string {
	var rel, href string
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "rel":
			rel = a.Val
		case "href":
			href = strings.TrimSpace(a.Val)
		}
	}
	for _, r := range strings.Fields(rel) {
		if strings.EqualFold(r, "stylesheet") {
			return href
		}
	}
	return ""
}
