package layout

import (
	"strconv"
	"strings"

	"github.com/gompdf/pagedpreview/internal/parser/html"
	"github.com/gompdf/pagedpreview/internal/style"
)

// applyMarker adds the list marker of a list item to its flow. Inside markers
// are inline content; outside markers still open a line in an empty item.
func (e *Engine) applyMarker(n *html.Node, st style.ComputedStyle, opts *flowOptions) {
	kind, inside := listStyle(n, st)
	if kind == "none" {
		return
	}
	if !inside {
		opts.strut = true
		return
	}
	opts.prefix = append(opts.prefix, textItem(markerText(kind, ordinal(n)), st))
}

// listStyle returns the marker type and whether it is positioned inside.
func listStyle(n *html.Node, st style.ComputedStyle) (string, bool) {
	kind := strings.ToLower(st.Value("list-style-type"))
	if kind == "" {
		kind = "disc"
		if list := elementParentOf(n); list != nil && list.Tag() == "ol" {
			kind = "decimal"
		}
	}
	return kind, strings.EqualFold(st.Value("list-style-position"), "inside")
}

// ordinal is the number of a list item within its list.
func ordinal(n *html.Node) int {
	if v, ok := n.Attribute("value"); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	num := 1
	if list := elementParentOf(n); list != nil {
		if v, ok := list.Attribute("start"); ok {
			if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				num = i
			}
		}
	}
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Tag() == "li" {
			num++
		}
	}
	return num
}

func markerText(kind string, num int) string {
	switch kind {
	case "disc":
		return "• "
	case "circle":
		return "◦ "
	case "square":
		return "▪ "
	case "lower-alpha", "lower-latin":
		return alpha(num, 'a') + ". "
	case "upper-alpha", "upper-latin":
		return alpha(num, 'A') + ". "
	case "lower-roman":
		return strings.ToLower(roman(num)) + ". "
	case "upper-roman":
		return roman(num) + ". "
	}
	return strconv.Itoa(num) + ". "
}

func alpha(n int, base rune) string {
	if n <= 0 {
		return strconv.Itoa(n)
	}
	var out []rune
	for n > 0 {
		n--
		out = append([]rune{base + rune(n%26)}, out...)
		n /= 26
	}
	return string(out)
}

func roman(n int) string {
	if n <= 0 || n >= 4000 {
		return strconv.Itoa(n)
	}
	values := []int{1000, 900, 500, 400, 100, 90, 50, 40, 10, 9, 5, 4, 1}
	symbols := []string{"M", "CM", "D", "CD", "C", "XC", "L", "XL", "X", "IX", "V", "IV", "I"}
	var b strings.Builder
	for i, v := range values {
		for n >= v {
			b.WriteString(symbols[i])
			n -= v
		}
	}
	return b.String()
}

func elementParentOf(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Tag() != "" {
			return p
		}
	}
	return nil
}
