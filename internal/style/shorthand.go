package style

import (
	"strings"

	"github.com/gompdf/pagedpreview/internal/parser/css"
)

var sides = [4]string{"top", "right", "bottom", "left"}

var borderStyles = map[string]bool{
	"none": true, "hidden": true, "dotted": true, "dashed": true, "solid": true,
	"double": true, "groove": true, "ridge": true, "inset": true, "outset": true,
}

// expandShorthand rewrites box and font shorthands into their longhands.
// Everything else is returned unchanged.
func expandShorthand(d *css.Declaration) []*css.Declaration {
	long := func(prop, value string) *css.Declaration {
		return &css.Declaration{Property: prop, Value: value, Important: d.Important}
	}

	switch d.Property {
	case "margin", "padding":
		vals := boxValues(d.Value)
		out := make([]*css.Declaration, 0, 4)
		for i, side := range sides {
			out = append(out, long(d.Property+"-"+side, vals[i]))
		}
		return out

	case "border-width", "border-style", "border-color":
		suffix := strings.TrimPrefix(d.Property, "border-")
		vals := boxValues(d.Value)
		out := make([]*css.Declaration, 0, 4)
		for i, side := range sides {
			out = append(out, long("border-"+side+"-"+suffix, vals[i]))
		}
		return out

	case "border", "border-top", "border-right", "border-bottom", "border-left":
		width, bstyle, color := splitBorder(d.Value)
		targets := sides[:]
		if d.Property != "border" {
			targets = []string{strings.TrimPrefix(d.Property, "border-")}
		}
		out := make([]*css.Declaration, 0, 3*len(targets))
		for _, side := range targets {
			out = append(out,
				long("border-"+side+"-width", width),
				long("border-"+side+"-style", bstyle),
				long("border-"+side+"-color", color))
		}
		return out

	case "font":
		return expandFont(d, long)

	case "list-style":
		kind, position, image := "disc", "outside", "none"
		for _, tok := range strings.Fields(strings.ToLower(d.Value)) {
			switch {
			case tok == "inside" || tok == "outside":
				position = tok
			case strings.HasPrefix(tok, "url("):
				image = tok
			default:
				kind = tok
			}
		}
		return []*css.Declaration{
			long("list-style-type", kind),
			long("list-style-position", position),
			long("list-style-image", image),
		}

	case "word-wrap":
		return []*css.Declaration{long("overflow-wrap", d.Value)}

	case "-moz-tab-size":
		return []*css.Declaration{long("tab-size", d.Value)}
	}
	return []*css.Declaration{d}
}

// boxValues expands the 1-4 value box syntax to top, right, bottom, left.
func boxValues(value string) [4]string {
	parts := strings.Fields(value)
	switch len(parts) {
	case 0:
		return [4]string{"0", "0", "0", "0"}
	case 1:
		return [4]string{parts[0], parts[0], parts[0], parts[0]}
	case 2:
		return [4]string{parts[0], parts[1], parts[0], parts[1]}
	case 3:
		return [4]string{parts[0], parts[1], parts[2], parts[1]}
	default:
		return [4]string{parts[0], parts[1], parts[2], parts[3]}
	}
}

func splitBorder(value string) (width, bstyle, color string) {
	width, bstyle, color = "medium", "none", "currentcolor"
	if strings.EqualFold(strings.TrimSpace(value), "none") {
		return
	}
	for _, tok := range strings.Fields(value) {
		lower := strings.ToLower(tok)
		switch {
		case borderStyles[lower]:
			bstyle = lower
		case lower == "thin" || lower == "medium" || lower == "thick" || startsNumeric(lower):
			width = lower
		default:
			color = tok
		}
	}
	return
}

// expandFont handles "[style] [variant] [weight] size[/line-height] family".
func expandFont(d *css.Declaration, long func(string, string) *css.Declaration) []*css.Declaration {
	tokens := strings.Fields(d.Value)
	fontStyle, weight, variant := "normal", "normal", "normal"
	for i, tok := range tokens {
		lower := strings.ToLower(tok)
		switch {
		case lower == "italic" || lower == "oblique":
			fontStyle = lower
		case lower == "small-caps":
			variant = lower
		case lower == "bold" || lower == "bolder" || lower == "lighter" ||
			(startsNumeric(lower) && len(lower) == 3 && strings.HasSuffix(lower, "00")):
			weight = lower
		case lower == "normal":
		case startsNumeric(lower) || fontSizeKeywords[lower] > 0 || lower == "smaller" || lower == "larger":
			size, lineHeight, _ := strings.Cut(tok, "/")
			out := []*css.Declaration{
				long("font-style", fontStyle),
				long("font-variant", variant),
				long("font-weight", weight),
				long("font-size", size),
				long("line-height", "normal"),
			}
			if lineHeight != "" {
				out[4] = long("line-height", lineHeight)
			}
			if family := strings.Join(tokens[i+1:], " "); family != "" {
				out = append(out, long("font-family", family))
			}
			return out
		default:
			// system fonts such as "caption" are left to the browser
			return nil
		}
	}
	return nil
}

func startsNumeric(s string) bool {
	return s != "" && (s[0] >= '0' && s[0] <= '9' || s[0] == '.')
}
