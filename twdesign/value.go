package twdesign

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// dataTypes are the hints accepted in front of arbitrary values.
var dataTypes = map[string]struct{}{
	"color":         {},
	"length":        {},
	"percentage":    {},
	"number":        {},
	"integer":       {},
	"url":           {},
	"image":         {},
	"position":      {},
	"bg-size":       {},
	"line-width":    {},
	"absolute-size": {},
	"relative-size": {},
	"family-name":   {},
	"generic-name":  {},
	"angle":         {},
	"vector":        {},
	"ratio":         {},
	"any":           {},
}

var namedColors = map[string]bool{
	"transparent": true, "currentcolor": true, "black": true, "white": true, "red": true,
	"green": true, "blue": true, "yellow": true, "orange": true, "purple": true, "pink": true,
	"gray": true, "grey": true, "silver": true, "maroon": true, "navy": true, "teal": true,
	"aqua": true, "fuchsia": true, "lime": true, "olive": true, "rebeccapurple": true,
	"inherit": true,
}

var colorFunctions = []string{"rgb(", "rgba(", "hsl(", "hsla(", "hwb(", "lab(", "lch(", "oklab(", "oklch(", "color(", "color-mix(", "light-dark("}
var imageFunctions = []string{"url(", "linear-gradient(", "radial-gradient(", "conic-gradient(", "repeating-linear-gradient(", "repeating-radial-gradient(", "image-set("}
var lengthUnits = []string{"px", "rem", "em", "%", "vh", "vw", "vmin", "vmax", "dvh", "dvw", "svh", "svw", "lvh", "lvw", "ch", "ex", "lh", "rlh", "cqw", "cqh", "cqi", "cqb", "pt", "pc", "cm", "mm", "in", "Q"}
var absoluteSizes = map[string]bool{"xx-small": true, "x-small": true, "small": true, "medium": true, "large": true, "x-large": true, "xx-large": true, "xxx-large": true, "larger": true, "smaller": true}
var lineWidths = map[string]bool{"thin": true, "medium": true, "thick": true}

// InferType guesses the CSS data type of an arbitrary value. It returns ""
// when the value could be anything, var(--x) for instance.
func InferType(v string) string {
	lv := strings.ToLower(strings.TrimSpace(v))
	switch {
	case lv == "":
		return ""
	case strings.HasPrefix(lv, "var(") || strings.HasPrefix(lv, "env("):
		return ""
	case strings.HasPrefix(lv, "#") && isHexColor(lv[1:]):
		return "color"
	case namedColors[lv]:
		return "color"
	case lineWidths[lv]:
		return "line-width"
	case absoluteSizes[lv]:
		return "absolute-size"
	}
	for _, fn := range colorFunctions {
		if strings.HasPrefix(lv, fn) {
			return "color"
		}
	}
	for _, fn := range imageFunctions {
		if strings.HasPrefix(lv, fn) {
			if fn == "url(" {
				return "url"
			}
			return "image"
		}
	}
	for _, fn := range mathFunctions {
		if strings.HasPrefix(lv, fn) {
			return "length"
		}
	}
	if isNumber(lv) {
		if lv == "0" {
			return "length"
		}
		return "number"
	}
	if strings.HasSuffix(lv, "%") && isNumber(lv[:len(lv)-1]) {
		return "percentage"
	}
	if isLength(lv) {
		return "length"
	}
	if strings.HasSuffix(lv, "deg") || strings.HasSuffix(lv, "rad") || strings.HasSuffix(lv, "turn") {
		return "angle"
	}
	if strings.Contains(lv, "/") && isRatio(lv) {
		return "ratio"
	}
	if strings.Contains(lv, ",") || strings.Contains(lv, "\"") || strings.Contains(lv, "'") {
		return "family-name"
	}
	return ""
}

func isHexColor(s string) bool {
	switch len(s) {
	case 3, 4, 6, 8:
	default:
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return false
		}
	}
	return true
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isLength(s string) bool {
	for _, u := range lengthUnits {
		if strings.HasSuffix(s, strings.ToLower(u)) && isNumber(s[:len(s)-len(u)]) {
			return true
		}
	}
	return false
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil && !strings.ContainsAny(s, "xXpPnN_")
}

func isInteger(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}

func isPositiveInteger(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n > 0 && !strings.HasPrefix(s, "+")
}

func isRatio(s string) bool {
	parts := strings.Split(s, "/")
	return len(parts) == 2 && isNumber(strings.TrimSpace(parts[0])) && isNumber(strings.TrimSpace(parts[1]))
}

// isMultiple reports whether s is a number on the quarter step grid the
// spacing scale accepts: 0, 0.25, 1.5, 96.
func isMultiple(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || !isNumber(s) {
		return false
	}
	return f*4 == math.Floor(f*4)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// fractionPercent turns 1/3 into 33.333333%.
func fractionPercent(fr string) (string, bool) {
	parts := strings.SplitN(fr, "/", 2)
	if len(parts) != 2 {
		return "", false
	}
	a, err1 := strconv.ParseFloat(parts[0], 64)
	b, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || b == 0 {
		return "", false
	}
	p := math.Round(a/b*100*1e6) / 1e6
	return formatFloat(p) + "%", true
}

// negate returns the negative of a CSS value.
func negate(v string) string {
	switch {
	case v == "0" || v == "0px" || v == "auto":
		return v
	case strings.HasPrefix(v, "-"):
		return v[1:]
	case len(v) > 0 && (v[0] >= '0' && v[0] <= '9' || v[0] == '.'):
		return "-" + v
	}
	return "calc(" + v + " * -1)"
}

// alphaValue converts an opacity modifier (50, [0.35], [35%]) to a percentage.
func alphaValue(m *Value) (string, bool) {
	if m == nil {
		return "", false
	}
	t := m.Text
	if m.Kind == ArbitraryValue {
		if strings.HasSuffix(t, "%") || strings.HasPrefix(t, "var(") {
			return t, true
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return t, true
		}
		if f <= 1 {
			return formatFloat(math.Round(f*100*1e4)/1e4) + "%", true
		}
		return formatFloat(f) + "%", true
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil || f < 0 || f > 100 || !isNumber(t) {
		return "", false
	}
	return formatFloat(f) + "%", true
}

// rgb is a parsed sRGB color, channels 0-255, alpha 0-1.
type rgb struct {
	r, g, b int
	a       float64
}

// parseColor understands hex and rgb()/rgba() colors.
func parseColor(s string) (rgb, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "black":
		return rgb{0, 0, 0, 1}, true
	case "white":
		return rgb{255, 255, 255, 1}, true
	}
	if strings.HasPrefix(s, "#") && isHexColor(s[1:]) {
		h := s[1:]
		if len(h) <= 4 {
			var long strings.Builder
			for i := 0; i < len(h); i++ {
				long.WriteByte(h[i])
				long.WriteByte(h[i])
			}
			h = long.String()
		}
		n, _ := strconv.ParseUint(h, 16, 64)
		c := rgb{a: 1}
		if len(h) == 8 {
			c.a = float64(n&0xff) / 255
			n >>= 8
		}
		c.r, c.g, c.b = int(n>>16&0xff), int(n>>8&0xff), int(n&0xff)
		return c, true
	}
	for _, fn := range []string{"rgba(", "rgb("} {
		if !strings.HasPrefix(s, fn) || !strings.HasSuffix(s, ")") {
			continue
		}
		body := strings.NewReplacer(",", " ", "/", " ").Replace(s[len(fn) : len(s)-1])
		f := strings.Fields(body)
		if len(f) < 3 {
			return rgb{}, false
		}
		c := rgb{a: 1}
		var err error
		for i, p := range []*int{&c.r, &c.g, &c.b} {
			if *p, err = strconv.Atoi(f[i]); err != nil {
				return rgb{}, false
			}
		}
		if len(f) > 3 {
			if strings.HasSuffix(f[3], "%") {
				v, err := strconv.ParseFloat(f[3][:len(f[3])-1], 64)
				if err != nil {
					return rgb{}, false
				}
				c.a = v / 100
			} else if c.a, err = strconv.ParseFloat(f[3], 64); err != nil {
				return rgb{}, false
			}
		}
		return c, true
	}
	return rgb{}, false
}

func (c rgb) channels() string { return fmt.Sprintf("%d %d %d", c.r, c.g, c.b) }

// WithAlpha applies an opacity given as a percentage to a color. Parsable
// colors become rgb() in legacy mode, everything else is mixed with
// transparent.
func WithAlpha(color, alpha string, legacy bool) string {
	if alpha == "" || alpha == "100%" {
		return color
	}
	if legacy {
		if c, ok := parseColor(color); ok {
			a := alpha
			if strings.HasSuffix(alpha, "%") {
				if f, err := strconv.ParseFloat(alpha[:len(alpha)-1], 64); err == nil {
					a = formatFloat(f / 100)
				}
			}
			return "rgb(" + c.channels() + " / " + a + ")"
		}
	}
	return "color-mix(in oklab, " + color + " " + alpha + ", transparent)"
}

// naturalLess orders strings with embedded numbers numerically: p-2 < p-10.
func naturalLess(a, b string) bool {
	return naturalCompare(a, b) < 0
}

func naturalCompare(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			si := i
			for i < len(a) && (isDigit(a[i]) || a[i] == '.') {
				i++
			}
			sj := j
			for j < len(b) && (isDigit(b[j]) || b[j] == '.') {
				j++
			}
			fa, _ := strconv.ParseFloat(strings.TrimRight(a[si:i], "."), 64)
			fb, _ := strconv.ParseFloat(strings.TrimRight(b[sj:j], "."), 64)
			if fa != fb {
				if fa < fb {
					return -1
				}
				return 1
			}
			continue
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		i++
		j++
	}
	switch {
	case len(a)-i < len(b)-j:
		return -1
	case len(a)-i > len(b)-j:
		return 1
	}
	return 0
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
