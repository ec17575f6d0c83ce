package layout

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ParseColor 解析 CSS 风格的颜色字符串：#rgb、#rgba、#rrggbb、#rrggbbaa、
// rgb(r,g,b)、rgba(r,g,b,a) 以及 CSS 颜色名（white、gold 等）。
func ParseColor(value string) (Color, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Color{}, fmt.Errorf("颜色值为空")
	}
	if strings.HasPrefix(v, "#") {
		return parseHexColor(v[1:])
	}
	if strings.HasPrefix(v, "rgb") {
		return parseFuncColor(v)
	}
	if c, ok := colornames.Map[v]; ok {
		return Color{R: int(c.R), G: int(c.G), B: int(c.B), A: int(c.A)}, nil
	}
	if v == "transparent" {
		return Color{}, nil
	}
	return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
}

// MustColor 与 ParseColor 相同，解析失败时 panic，仅用于常量初始化。
func MustColor(value string) Color {
	c, err := ParseColor(value)
	if err != nil {
		panic(err)
	}
	return c
}

// NRGBA 转换为标准库颜色（非预乘）。
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: clampByte(c.R), G: clampByte(c.G), B: clampByte(c.B), A: clampByte(c.A)}
}

// Hex 返回 #rrggbb 或 #rrggbbaa 形式。
func (c Color) Hex() string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", clampByte(c.R), clampByte(c.G), clampByte(c.B))
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", clampByte(c.R), clampByte(c.G), clampByte(c.B), clampByte(c.A))
}

func parseHexColor(hex string) (Color, error) {
	expand := func(s string) string {
		var b strings.Builder
		for _, r := range s {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		return b.String()
	}
	switch len(hex) {
	case 3, 4:
		hex = expand(hex)
	case 6, 8:
	default:
		return Color{}, fmt.Errorf("颜色值 #%s 无法解析", hex)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("颜色值 #%s 无法解析: %w", hex, err)
	}
	return Color{
		R: int(n >> 24 & 0xff),
		G: int(n >> 16 & 0xff),
		B: int(n >> 8 & 0xff),
		A: int(n & 0xff),
	}, nil
}

func parseFuncColor(v string) (Color, error) {
	open := strings.IndexByte(v, '(')
	if open < 0 || !strings.HasSuffix(v, ")") {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", v)
	}
	parts := strings.FieldsFunc(v[open+1:len(v)-1], func(r rune) bool {
		return r == ',' || r == ' ' || r == '/'
	})
	if len(parts) != 3 && len(parts) != 4 {
		return Color{}, fmt.Errorf("颜色值 %s 需要 3 或 4 个分量", v)
	}
	var ch [4]int
	ch[3] = 255
	for i, p := range parts {
		pct := strings.HasSuffix(p, "%")
		f, err := strconv.ParseFloat(strings.TrimSuffix(p, "%"), 64)
		if err != nil {
			return Color{}, fmt.Errorf("颜色值 %s 无法解析: %w", v, err)
		}
		switch {
		case i == 3 && pct:
			f = f / 100 * 255
		case i == 3:
			f *= 255
		case pct:
			f = f / 100 * 255
		}
		ch[i] = int(math.Round(f))
	}
	return Color{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, nil
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
