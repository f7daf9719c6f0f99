package css

import (
	"errors"
	"io"
	"strings"
)

// Parser represents a CSS parser
type Parser struct {
	// Configuration options could be added here
}

// Rule represents a CSS rule
type Rule struct {
	Selectors    []string
	Declarations []*Declaration
}

// Declaration represents a CSS declaration (property-value pair)
type Declaration struct {
	Property  string
	Value     string
	Important bool
}

// Stylesheet represents a parsed CSS stylesheet
type Stylesheet struct {
	Rules []*Rule
}

// NewParser creates a new CSS parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseString parses CSS from a string
func (p *Parser) ParseString(content string) (*Stylesheet, error) {
	return p.Parse(strings.NewReader(content))
}

// Parse parses CSS from an io.Reader
func (p *Parser) Parse(r io.Reader) (*Stylesheet, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return p.parseCSS(string(content))
}

// parseCSS parses CSS content
func (p *Parser) parseCSS(content string) (*Stylesheet, error) {
	stylesheet := &Stylesheet{
		Rules: []*Rule{},
	}

	content = removeComments(content)
	p.parseRules(content, stylesheet)

	return stylesheet, nil
}

// parseRules appends the rules of content to stylesheet. Screen media blocks
// are flattened into the surrounding sheet; other at-rules are dropped since
// nothing in them affects on-screen layout.
func (p *Parser) parseRules(content string, stylesheet *Stylesheet) {
	for _, ruleStr := range splitRules(content) {
		if strings.HasPrefix(ruleStr, "@") {
			name, prelude, body := splitAtRule(ruleStr)
			if name == "media" && mediaApplies(prelude) {
				p.parseRules(body, stylesheet)
			}
			continue
		}
		rule, err := p.parseRule(ruleStr)
		if err != nil {
			continue // Skip invalid rules
		}
		stylesheet.Rules = append(stylesheet.Rules, rule)
	}
}

// splitAtRule splits "@name prelude { body }" into its parts. Statement
// at-rules such as @import have an empty body.
func splitAtRule(ruleStr string) (name, prelude, body string) {
	head := ruleStr
	if i := strings.IndexByte(ruleStr, '{'); i >= 0 {
		head = ruleStr[:i]
		body = strings.TrimSuffix(strings.TrimSpace(ruleStr[i+1:]), "}")
	}
	head = strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(head, "@")), ";")
	name, prelude, _ = strings.Cut(head, " ")
	return strings.ToLower(name), strings.TrimSpace(prelude), body
}

func mediaApplies(prelude string) bool {
	for _, q := range strings.Split(strings.ToLower(prelude), ",") {
		q = strings.TrimSpace(q)
		if q == "" || strings.HasPrefix(q, "screen") || strings.HasPrefix(q, "all") ||
			strings.HasPrefix(q, "(") {
			return true
		}
	}
	return false
}

// parseRule parses a single CSS rule
func (p *Parser) parseRule(ruleStr string) (*Rule, error) {
	parts := strings.SplitN(ruleStr, "{", 2)
	if len(parts) != 2 {
		return nil, errors.New("invalid rule format")
	}

	selectorStr := strings.TrimSpace(parts[0])
	declarationsStr := strings.TrimSpace(parts[1])

	declarationsStr = strings.TrimSuffix(declarationsStr, "}")

	selectors := parseSelectors(selectorStr)
	if len(selectors) == 0 {
		return nil, errors.New("no selectors found")
	}

	declarations := parseDeclarations(declarationsStr)

	return &Rule{
		Selectors:    selectors,
		Declarations: declarations,
	}, nil
}

// parseSelectors parses CSS selectors
func parseSelectors(selectorStr string) []string {
	selectors := strings.Split(selectorStr, ",")
	result := make([]string, 0, len(selectors))

	for _, selector := range selectors {
		selector = strings.Join(strings.Fields(strings.ReplaceAll(selector, ">", " > ")), " ")
		if selector != "" {
			result = append(result, selector)
		}
	}

	return result
}

// ParseDeclarations parses a declaration list such as the value of a style
// attribute.
func ParseDeclarations(declarationsStr string) []*Declaration {
	return parseDeclarations(removeComments(declarationsStr))
}

// parseDeclarations parses CSS declarations
func parseDeclarations(declarationsStr string) []*Declaration {
	declarationStrings := strings.Split(declarationsStr, ";")
	result := make([]*Declaration, 0, len(declarationStrings))

	for _, declStr := range declarationStrings {
		declStr = strings.TrimSpace(declStr)
		if declStr == "" {
			continue
		}

		parts := strings.SplitN(declStr, ":", 2)
		if len(parts) != 2 {
			continue
		}

		property := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])

		important := false
		if strings.HasSuffix(strings.ToLower(value), "!important") {
			important = true
			value = value[:len(value)-len("!important")]
			value = strings.TrimSpace(value)
		}
		if property == "" || value == "" {
			continue
		}

		result = append(result, &Declaration{
			Property:  property,
			Value:     value,
			Important: important,
		})
	}

	return result
}

// removeComments removes CSS comments
func removeComments(content string) string {
	var result strings.Builder
	i := 0

	for i < len(content) {
		if i+1 < len(content) && content[i] == '/' && content[i+1] == '*' {
			commentEnd := strings.Index(content[i+2:], "*/")
			if commentEnd == -1 {
				break
			}
			i += commentEnd + 4
		} else {
			result.WriteByte(content[i])
			i++
		}
	}

	return result.String()
}

// splitRules splits CSS content into individual rules
func splitRules(content string) []string {
	var rules []string
	var currentRule strings.Builder
	braceCount := 0

	for i := 0; i < len(content); i++ {
		char := content[i]

		if char == ';' && braceCount == 0 {
			// statement at-rule such as @import or @charset
			if stmt := strings.TrimSpace(currentRule.String()); stmt != "" {
				rules = append(rules, stmt+";")
			}
			currentRule.Reset()
			continue
		}

		if char == '{' {
			braceCount++
		} else if char == '}' {
			if braceCount == 0 {
				// stray closing brace
				continue
			}
			braceCount--

			if braceCount == 0 {
				currentRule.WriteByte(char)
				rules = append(rules, strings.TrimSpace(currentRule.String()))
				currentRule.Reset()
				continue
			}
		}

		if braceCount == 0 && isWhitespace(char) {
			// keep descendant combinators in selectors
			if currentRule.Len() > 0 {
				currentRule.WriteByte(' ')
			}
			continue
		}
		currentRule.WriteByte(char)
	}

	return rules
}

// isWhitespace checks if a character is whitespace
func isWhitespace(char byte) bool {
	return char == ' ' || char == '\t' || char == '\n' || char == '\r'
}

// String serializes the stylesheet back to CSS text, one rule per line.
func (s *Stylesheet) String() string {
	var b strings.Builder
	for _, rule := range s.Rules {
		b.WriteString(rule.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// String serializes a single rule.
func (r *Rule) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(r.Selectors, ", "))
	b.WriteString(" {")
	for _, d := range r.Declarations {
		b.WriteByte(' ')
		b.WriteString(d.String())
		b.WriteByte(';')
	}
	b.WriteString(" }")
	return b.String()
}

// String serializes a declaration without the trailing semicolon.
func (d *Declaration) String() string {
	if d.Important {
		return d.Property + ": " + d.Value + " !important"
	}
	return d.Property + ": " + d.Value
}

// Scope returns a copy of the stylesheet whose selectors only match inside
// the element matched by prefix. Selectors addressing the document root
// (html, body, :root) are rewritten to the prefix itself.
func (s *Stylesheet) Scope(prefix string) *Stylesheet {
	out := &Stylesheet{Rules: make([]*Rule, 0, len(s.Rules))}
	for _, rule := range s.Rules {
		scoped := &Rule{
			Selectors:    make([]string, 0, len(rule.Selectors)),
			Declarations: rule.Declarations,
		}
		for _, sel := range rule.Selectors {
			scoped.Selectors = append(scoped.Selectors, scopeSelector(prefix, sel))
		}
		out.Rules = append(out.Rules, scoped)
	}
	return out
}

func scopeSelector(prefix, sel string) string {
	parts := strings.Fields(sel)
	combinator := " "
	// drop leading root compounds: "html body p" is "p" inside the scope
	for len(parts) > 0 && isRootCompound(parts[0]) {
		parts = parts[1:]
		combinator = " "
		if len(parts) > 0 && parts[0] == ">" {
			parts = parts[1:]
			combinator = " > "
		}
	}
	if len(parts) == 0 {
		return prefix
	}
	return prefix + combinator + strings.Join(parts, " ")
}

func isRootCompound(compound string) bool {
	switch strings.ToLower(compound) {
	case "html", "body", ":root":
		return true
	}
	return false
}
