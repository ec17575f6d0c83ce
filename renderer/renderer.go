package renderer

import (
	"fmt"
	"image"
	"image/draw"
	"io"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/ByLCY/versecard/layout"
)

// Renderer 将裁剪后的源图与文字叠加层绘制到 Surface 上。
// 每次调用都完整重绘，相同输入得到逐像素相同的结果；返回本次使用的排版计划。
type Renderer interface {
	Render(surface *Surface, src image.Image, block layout.TextBlock, style layout.StyleParams, crop layout.CropRect) (*layout.Plan, error)
}

// Surface 是可重复使用的像素画布，尺寸总是等于最近一次裁剪区域的尺寸。
type Surface struct {
	img *image.NRGBA
}

// NewSurface 创建 w×h 的透明画布。
func NewSurface(w, h int) *Surface {
	s := &Surface{}
	s.Resize(w, h)
	return s
}

// Resize 调整画布尺寸并清空内容。
func (s *Surface) Resize(w, h int) {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	if s.img != nil && s.img.Rect.Dx() == w && s.img.Rect.Dy() == h {
		clear(s.img.Pix)
		return
	}
	s.img = image.NewNRGBA(image.Rect(0, 0, w, h))
}

// Width 返回画布宽度（px）。
func (s *Surface) Width() int { return s.bounds().Dx() }

// Height 返回画布高度（px）。
func (s *Surface) Height() int { return s.bounds().Dy() }

// Image 返回画布当前内容。
func (s *Surface) Image() *image.NRGBA {
	if s.img == nil {
		s.img = image.NewNRGBA(image.Rectangle{})
	}
	return s.img
}

// Fill 用 src 覆盖整个画布，src 的原点对齐画布左上角。
func (s *Surface) Fill(src image.Image) {
	dst := s.Image()
	draw.Draw(dst, dst.Rect, src, src.Bounds().Min, draw.Src)
}

// Composite 将 layer 以 alpha 混合方式叠加到画布上。
func (s *Surface) Composite(layer image.Image) {
	s.img = imaging.Overlay(s.Image(), layer, image.Point{}, 1)
}

func (s *Surface) bounds() image.Rectangle {
	if s == nil || s.img == nil {
		return image.Rectangle{}
	}
	return s.img.Rect
}

// EncodePNG 将画布内容按 PNG 编码写入 w。
func EncodePNG(w io.Writer, s *Surface) error {
	if s == nil || s.Width() == 0 || s.Height() == 0 {
		return fmt.Errorf("画布为空，无法导出")
	}
	if err := imaging.Encode(w, s.Image(), imaging.PNG); err != nil {
		return fmt.Errorf("PNG 编码失败: %w", err)
	}
	return nil
}

// SavePNG 将画布内容保存为 PNG 文件。
func SavePNG(path string, s *Surface) error {
	if s == nil || s.Width() == 0 || s.Height() == 0 {
		return fmt.Errorf("画布为空，无法导出")
	}
	if err := imaging.Save(s.Image(), path); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return nil
}

var whitespace = regexp.MustCompile(`\s+`)

// FileName 由经文引用生成导出文件名：连续空白替换为下划线，并加上 .png 后缀。
func FileName(reference string) string {
	name := whitespace.ReplaceAllString(strings.TrimSpace(reference), "_")
	name = strings.NewReplacer("/", "-", `\`, "-").Replace(name)
	if name == "" {
		name = "verse"
	}
	return name + ".png"
}
