package layout

import "strings"

// TextLine 表示折行后的一行文本内容及其测量宽度（px）。
type TextLine struct {
	Content string  `json:"content"`
	Width   float64 `json:"width"`
}

// WrapText 以单个空格为分隔符做贪心折行。
//
// 逐词累加，测量 "当前行 + 新词 + 空格" 的宽度；超过 maxWidth 且不是第一个词时，
// 先输出当前行再以该词开始新行。最后一行总会输出，每行去掉首尾空白。
// 不做连字符、缩放或截断：单个超宽的词独占一行。空文本得到一行空字符串。
func WrapText(text string, maxWidth float64, font FontResource, fontSize float64, m Measurer) ([]TextLine, error) {
	words := strings.Split(text, " ")
	var lines []string
	line := ""
	for n, word := range words {
		test := line + word + " "
		w, err := m.MeasureText(test, font, fontSize)
		if err != nil {
			return nil, err
		}
		if w > maxWidth && n > 0 {
			lines = append(lines, strings.TrimSpace(line))
			line = word + " "
			continue
		}
		line = test
	}
	lines = append(lines, strings.TrimSpace(line))

	out := make([]TextLine, 0, len(lines))
	for _, content := range lines {
		w := 0.0
		if content != "" {
			var err error
			if w, err = m.MeasureText(content, font, fontSize); err != nil {
				return nil, err
			}
		}
		out = append(out, TextLine{Content: content, Width: w})
	}
	return out, nil
}
