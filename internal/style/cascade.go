package style

import (
	"strings"

	"github.com/gompdf/pagedpreview/internal/parser/css"
	"github.com/gompdf/pagedpreview/internal/parser/html"
	xhtml "golang.org/x/net/html"
)

// Specificity represents the specificity of a CSS selector
type Specificity struct {
	ID      int
	Class   int
	Element int
}

// StyleProperty represents a computed style property
type StyleProperty struct {
	Name        string
	Value       string
	Important   bool
	Source      Source
	Specificity Specificity
}

// Source represents the source of a style property
type Source int

const (
	SourceUserAgent Source = iota
	// SourcePresentational covers legacy attributes such as cellpadding
	SourcePresentational
	SourceAuthor
	SourceInline
)

// ComputedStyle represents the computed style for an element
type ComputedStyle map[string]StyleProperty

// StyleEngine handles the CSS cascade and style computation
type StyleEngine struct {
	userAgentStyles *css.Stylesheet
	authorStyles    []*css.Stylesheet
}

// NewStyleEngine creates a style engine with the built-in user agent sheet.
func NewStyleEngine() *StyleEngine {
	return &StyleEngine{
		userAgentStyles: UserAgentStylesheet(),
		authorStyles:    []*css.Stylesheet{},
	}
}

// AddStylesheet adds an author stylesheet to the style engine
func (e *StyleEngine) AddStylesheet(stylesheet *css.Stylesheet) {
	e.authorStyles = append(e.authorStyles, stylesheet)
}

// ComputeStyles computes styles for all elements in the document, with
// inheritance applied top-down from the root.
func (e *StyleEngine) ComputeStyles(doc *html.Document) map[*html.Node]ComputedStyle {
	result := make(map[*html.Node]ComputedStyle)
	e.computeStylesRecursive(doc.Root, nil, result)
	return result
}

// computeStylesRecursive computes styles for an element and its children
func (e *StyleEngine) computeStylesRecursive(node *html.Node, parent ComputedStyle, result map[*html.Node]ComputedStyle) {
	if node == nil {
		return
	}

	current := parent
	if node.Type == xhtml.ElementNode {
		current = e.Compute(node, parent)
		result[node] = current
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		e.computeStylesRecursive(child, current, result)
	}
}

// ComputeChain computes the style of node by walking its ancestors from the
// root down. It is used when only one subtree of a document is laid out.
func (e *StyleEngine) ComputeChain(node *html.Node) ComputedStyle {
	var chain []*html.Node
	for n := node; n != nil; n = n.Parent {
		if n.Type == xhtml.ElementNode {
			chain = append(chain, n)
		}
	}
	var st ComputedStyle
	for i := len(chain) - 1; i >= 0; i-- {
		st = e.Compute(chain[i], st)
	}
	return st
}

// Compute cascades the style of one element and resolves inheritance against
// the parent's computed style. Font sizes are resolved to pixels so that
// descendants inherit absolute values.
func (e *StyleEngine) Compute(node *html.Node, parent ComputedStyle) ComputedStyle {
	cascaded := e.computeStyleForElement(node)

	style := make(ComputedStyle, len(cascaded)+8)
	for name, prop := range parent {
		if inherited[name] {
			style[name] = prop
		}
	}

	for name, prop := range cascaded {
		switch strings.ToLower(prop.Value) {
		case "inherit":
			if p, ok := parent[name]; ok {
				style[name] = p
			} else {
				delete(style, name)
			}
		case "initial":
			delete(style, name)
		case "unset":
			if !inherited[name] {
				delete(style, name)
			}
		default:
			style[name] = prop
		}
	}

	parentSize := parent.FontSize()
	if fs, ok := style["font-size"]; ok {
		fs.Value = formatPx(resolveFontSize(fs.Value, parentSize))
		style["font-size"] = fs
	}
	if lh, ok := style["line-height"]; ok {
		if _, isNumber := parseNumber(lh.Value); !isNumber && !strings.EqualFold(lh.Value, "normal") {
			if _, own := cascaded["line-height"]; own {
				lh.Value = formatPx(parseLength(lh.Value, style.FontSize(), style.FontSize(), 0))
				style["line-height"] = lh
			}
		}
	}
	return style
}

// computeStyleForElement computes the cascaded (not yet inherited) style for
// a single element
func (e *StyleEngine) computeStyleForElement(node *html.Node) ComputedStyle {
	style := make(ComputedStyle)

	e.applyStylesheet(style, node, e.userAgentStyles, SourceUserAgent)
	e.applyPresentationalHints(style, node)

	for _, stylesheet := range e.authorStyles {
		e.applyStylesheet(style, node, stylesheet, SourceAuthor)
	}

	e.applyInlineStyles(style, node)

	return style
}

// applyStylesheet applies styles from a stylesheet to an element
func (e *StyleEngine) applyStylesheet(style ComputedStyle, node *html.Node, stylesheet *css.Stylesheet, source Source) {
	if stylesheet == nil {
		return
	}
	for _, rule := range stylesheet.Rules {
		for _, selector := range rule.Selectors {
			if e.selectorMatches(node, selector) {
				specificity := calculateSpecificity(selector)
				e.applyDeclarations(style, rule.Declarations, specificity, source)
			}
		}
	}
}

// applyInlineStyles applies inline styles to an element
func (e *StyleEngine) applyInlineStyles(style ComputedStyle, node *html.Node) {
	if v, ok := node.Attribute("style"); ok && strings.TrimSpace(v) != "" {
		e.applyDeclarations(style, css.ParseDeclarations(v), Specificity{1, 0, 0}, SourceInline)
	}
}

// applyPresentationalHints maps the legacy attributes rich-text editors still
// emit onto CSS properties.
func (e *StyleEngine) applyPresentationalHints(style ComputedStyle, node *html.Node) {
	var decls []*css.Declaration
	add := func(prop, value string) {
		if value != "" {
			decls = append(decls, &css.Declaration{Property: prop, Value: value})
		}
	}
	tag := node.Tag()

	if v, ok := node.Attribute("align"); ok && tag != "img" && tag != "table" {
		add("text-align", strings.ToLower(v))
	}
	if v, ok := node.Attribute("width"); ok && tag != "img" {
		add("width", attrLength(v))
	}
	if v, ok := node.Attribute("height"); ok && tag != "img" {
		add("height", attrLength(v))
	}

	switch tag {
	case "table":
		if v, ok := node.Attribute("cellspacing"); ok {
			add("border-spacing", attrLength(v))
		}
		if v, ok := node.Attribute("border"); ok {
			w := attrLength(v)
			if w == "" {
				w = "1px"
			}
			add("border-width", w)
			add("border-style", "outset")
		}
	case "td", "th":
		if table := ancestor(node, "table"); table != nil {
			if v, ok := table.Attribute("cellpadding"); ok {
				add("padding", attrLength(v))
			}
			if v, ok := table.Attribute("border"); ok && attrLength(v) != "0px" {
				add("border-width", "1px")
				add("border-style", "inset")
			}
		}
	}

	if len(decls) > 0 {
		e.applyDeclarations(style, decls, Specificity{}, SourcePresentational)
	}
}

// applyDeclarations applies CSS declarations to a style. Shorthands are
// expanded first so that a later longhand overrides an earlier shorthand.
func (e *StyleEngine) applyDeclarations(style ComputedStyle, declarations []*css.Declaration, specificity Specificity, source Source) {
	for _, decl := range declarations {
		for _, long := range expandShorthand(decl) {
			property := long.Property
			existing, exists := style[property]

			// Declarations are applied in source order, so on a tie the new one wins.
			if !exists || outranks(long.Important, source, specificity, existing) {
				style[property] = StyleProperty{
					Name:        property,
					Value:       long.Value,
					Important:   long.Important,
					Source:      source,
					Specificity: specificity,
				}
			}
		}
	}
}

func outranks(important bool, source Source, spec Specificity, existing StyleProperty) bool {
	if important != existing.Important {
		return important
	}
	if source != existing.Source {
		return source > existing.Source
	}
	return compareSpecificity(spec, existing.Specificity) >= 0
}

// selectorMatches checks if an element matches a CSS selector. Descendant and
// child combinators are supported.
func (e *StyleEngine) selectorMatches(node *html.Node, selector string) bool {
	parts := strings.Fields(selector)
	if len(parts) == 0 || node == nil {
		return false
	}
	return matchFrom(node, parts, len(parts)-1)
}

// matchFrom matches parts[:i+1] with parts[i] anchored at node.
func matchFrom(node *html.Node, parts []string, i int) bool {
	if !matchCompoundSelector(node, parts[i]) {
		return false
	}
	if i == 0 {
		return true
	}
	if parts[i-1] == ">" {
		if i < 2 {
			return false
		}
		parent := elementParent(node)
		return parent != nil && matchFrom(parent, parts, i-2)
	}
	for anc := elementParent(node); anc != nil; anc = elementParent(anc) {
		if matchFrom(anc, parts, i-1) {
			return true
		}
	}
	return false
}

func elementParent(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == xhtml.ElementNode {
			return p
		}
	}
	return nil
}

// matchCompoundSelector matches a single compound selector against a node.
// Compound selectors can be forms like:
//   - tag
//   - .class
//   - #id
//   - tag.class
//   - tag#id.class1.class2
//   - [attr] and [attr=value]
//   - :first-child, :last-child
//
// Other pseudo-classes never match.
func matchCompoundSelector(node *html.Node, sel string) bool {
	if node == nil || node.Type != xhtml.ElementNode || sel == "" {
		return false
	}

	c, ok := parseCompound(sel)
	if !ok {
		return false
	}

	if c.tag != "" && c.tag != "*" && !strings.EqualFold(c.tag, node.Data) {
		return false
	}

	if c.id != "" {
		if id, _ := node.Attribute("id"); id != c.id {
			return false
		}
	}

	if len(c.classes) > 0 {
		classAttr, _ := node.Attribute("class")
		have := strings.Fields(classAttr)
		set := make(map[string]struct{}, len(have))
		for _, cl := range have {
			set[cl] = struct{}{}
		}
		for _, need := range c.classes {
			if _, ok := set[need]; !ok {
				return false
			}
		}
	}

	for _, a := range c.attrs {
		v, ok := node.Attribute(a.name)
		if !ok || (a.hasValue && v != a.value) {
			return false
		}
	}

	for _, pseudo := range c.pseudos {
		switch pseudo {
		case "first-child":
			if siblingElement(node, true) != nil {
				return false
			}
		case "last-child":
			if siblingElement(node, false) != nil {
				return false
			}
		default:
			return false
		}
	}

	return true
}

type attrSelector struct {
	name     string
	value    string
	hasValue bool
}

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrSelector
	pseudos []string
}

// parseCompound scans sel once, extracting the optional tag, id, classes,
// attribute selectors and pseudo-classes.
func parseCompound(sel string) (compound, bool) {
	var c compound
	i := 0
	if i < len(sel) && !strings.ContainsRune("#.[:", rune(sel[i])) {
		j := i
		for j < len(sel) && !strings.ContainsRune("#.[:", rune(sel[j])) {
			j++
		}
		c.tag = sel[i:j]
		i = j
	}
	ident := func(from int) int {
		j := from
		for j < len(sel) && !strings.ContainsRune("#.[:", rune(sel[j])) {
			j++
		}
		return j
	}
	for i < len(sel) {
		switch sel[i] {
		case '#':
			j := ident(i + 1)
			c.id = sel[i+1 : j]
			i = j
		case '.':
			j := ident(i + 1)
			c.classes = append(c.classes, sel[i+1:j])
			i = j
		case '[':
			end := strings.IndexByte(sel[i:], ']')
			if end < 0 {
				return c, false
			}
			body := sel[i+1 : i+end]
			var a attrSelector
			if name, val, found := strings.Cut(body, "="); found {
				a = attrSelector{name: strings.TrimSpace(name), value: strings.Trim(strings.TrimSpace(val), `"'`), hasValue: true}
			} else {
				a = attrSelector{name: strings.TrimSpace(body)}
			}
			c.attrs = append(c.attrs, a)
			i += end + 1
		case ':':
			j := i + 1
			if j < len(sel) && sel[j] == ':' {
				// pseudo-elements never match an element
				return c, false
			}
			j = ident(j)
			c.pseudos = append(c.pseudos, strings.ToLower(sel[i+1:j]))
			i = j
		default:
			return c, false
		}
	}
	return c, true
}

func siblingElement(n *html.Node, previous bool) *html.Node {
	next := func(x *html.Node) *html.Node {
		if previous {
			return x.PrevSibling
		}
		return x.NextSibling
	}
	for s := next(n); s != nil; s = next(s) {
		if s.Type == xhtml.ElementNode {
			return s
		}
	}
	return nil
}

func ancestor(n *html.Node, tag string) *html.Node {
	for p := elementParent(n); p != nil; p = elementParent(p) {
		if p.Tag() == tag {
			return p
		}
	}
	return nil
}

// calculateSpecificity calculates the specificity of a CSS selector
func calculateSpecificity(selector string) Specificity {
	specificity := Specificity{}
	for _, part := range strings.Fields(selector) {
		if part == ">" {
			continue
		}
		c, _ := parseCompound(part)
		if c.id != "" {
			specificity.ID++
		}
		specificity.Class += len(c.classes) + len(c.attrs) + len(c.pseudos)
		if c.tag != "" && c.tag != "*" {
			specificity.Element++
		}
	}
	return specificity
}

// compareSpecificity compares two specificities
func compareSpecificity(a, b Specificity) int {
	if a.ID != b.ID {
		return a.ID - b.ID
	}
	if a.Class != b.Class {
		return a.Class - b.Class
	}
	return a.Element - b.Element
}

// inherited lists the properties that flow from parent to child.
var inherited = map[string]bool{
	"color":               true,
	"font-family":         true,
	"font-size":           true,
	"font-style":          true,
	"font-weight":         true,
	"font-variant":        true,
	"line-height":         true,
	"white-space":         true,
	"tab-size":            true,
	"-moz-tab-size":       true,
	"text-align":          true,
	"text-indent":         true,
	"text-transform":      true,
	"letter-spacing":      true,
	"word-spacing":        true,
	"word-break":          true,
	"overflow-wrap":       true,
	"word-wrap":           true,
	"list-style-type":     true,
	"list-style-position": true,
	"direction":           true,
	"visibility":          true,
	"border-collapse":     true,
	"border-spacing":      true,
}
