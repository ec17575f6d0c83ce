package layout

// 该文件定义裁剪、样式与排版结果的数据结构，供裁剪、排版、渲染与调试 JSON 共用。

import (
	"image"
	"math"
)

// Align 是文本的水平对齐方式，语义与 canvas textAlign 一致：
// 文本锚点固定在画面水平中点，对齐方式决定文本相对锚点的位置。
type Align string

const (
	AlignStart  Align = "start"
	AlignCenter Align = "center"
	AlignEnd    Align = "end"
)

// ParseAlign 解析对齐方式，left/right 分别视为 start/end。
func ParseAlign(v string) (Align, error) {
	switch normalizeKey(v) {
	case "start", "left":
		return AlignStart, nil
	case "", "center", "centre", "middle":
		return AlignCenter, nil
	case "end", "right":
		return AlignEnd, nil
	default:
		return AlignCenter, &InvalidStyleError{Field: "align", Value: v}
	}
}

// FontResource 描述字体资源，src 可以是文件路径或 embed:<name> 形式的内置字体。
type FontResource struct {
	Name string `json:"name"`
	Src  string `json:"src"`
}

// DefaultFont 是未指定字体时使用的内置字体。
var DefaultFont = FontResource{Name: "Body", Src: "embed:go-regular"}

// Color 采用 0-255 的 RGBA 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
	A int `json:"a"`
}

// StyleParams 是一次渲染所需的全部样式参数，每次渲染都重新提供。
type StyleParams struct {
	FontSize        float64      `json:"fontSize"` // px
	Color           Color        `json:"color"`
	Align           Align        `json:"align"`
	VerticalOffset  float64      `json:"verticalOffset"` // 百分比，取值 [-100,100]
	IncludeSubtitle bool         `json:"includeSubtitle"`
	Font            FontResource `json:"font"`
}

// DefaultStyle 返回与原始界面默认值一致的样式。
func DefaultStyle() StyleParams {
	return StyleParams{
		FontSize:        48,
		Color:           Color{R: 255, G: 255, B: 255, A: 255},
		Align:           AlignCenter,
		IncludeSubtitle: true,
		Font:            DefaultFont,
	}
}

// Validate 检查样式参数是否可用于渲染，并把竖直偏移限制在 [-100,100]。
// 字号与偏移必须是有限数值。
func (s *StyleParams) Validate() error {
	if s.FontSize <= 0 || math.IsNaN(s.FontSize) || math.IsInf(s.FontSize, 0) {
		return &InvalidStyleError{Field: "fontSize", Value: formatFloat(s.FontSize)}
	}
	if math.IsNaN(s.VerticalOffset) || math.IsInf(s.VerticalOffset, 0) {
		return &InvalidStyleError{Field: "offset", Value: formatFloat(s.VerticalOffset)}
	}
	switch s.Align {
	case AlignStart, AlignCenter, AlignEnd:
	case "":
		s.Align = AlignCenter
	default:
		return &InvalidStyleError{Field: "align", Value: string(s.Align)}
	}
	if s.VerticalOffset > 100 {
		s.VerticalOffset = 100
	}
	if s.VerticalOffset < -100 {
		s.VerticalOffset = -100
	}
	if s.Font.Src == "" {
		s.Font = DefaultFont
	}
	return nil
}

// TextBlock 是叠加在图片上的正文与副标题（通常是经文出处）。
type TextBlock struct {
	Body     string `json:"body"`
	Subtitle string `json:"subtitle"`
}

// CropRect 以源图像素坐标描述居中裁剪区域。
// 浮点字段是精确值，Bounds 给出实际用于 1:1 拷贝的整数像素区域。
type CropRect struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`

	pixels image.Rectangle
}

// Bounds 返回源图坐标系下的像素裁剪区域。
func (c CropRect) Bounds() image.Rectangle { return c.pixels }

// Size 返回裁剪后的像素尺寸，即渲染目标的尺寸。
func (c CropRect) Size() (int, int) { return c.pixels.Dx(), c.pixels.Dy() }

// Plan 是一次排版的完整结果：每一行及副标题的位置、字号与阴影半径。
type Plan struct {
	Width      float64      `json:"width"`
	Height     float64      `json:"height"`
	MaxWidth   float64      `json:"maxWidth"`
	AnchorX    float64      `json:"anchorX"`
	AnchorY    float64      `json:"anchorY"`
	LineHeight float64      `json:"lineHeight"`
	FontSize   float64      `json:"fontSize"`
	ShadowBlur float64      `json:"shadowBlur"`
	Align      Align        `json:"align"`
	Color      Color        `json:"color"`
	Font       FontResource `json:"font"`
	Lines      []PlacedLine `json:"lines"`
	Subtitle   *PlacedLine  `json:"subtitle,omitempty"`
}

// PlacedLine 表示一行已确定基线位置的文本。
type PlacedLine struct {
	Content    string  `json:"content"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"` // 字母基线
	Width      float64 `json:"width"`
	FontSize   float64 `json:"fontSize"`
	ShadowBlur float64 `json:"shadowBlur"`
}

// LineCount 返回正文行数。
func (p *Plan) LineCount() int { return len(p.Lines) }
