package canvasrenderer

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/versecard/fonts"
	"github.com/ByLCY/versecard/layout"
	"github.com/ByLCY/versecard/renderer"
)

// Renderer draws verse overlays via github.com/tdewolff/canvas.
//
// 画布以 1mm == 1px 的分辨率栅格化，因此布局中的 px 坐标可以直接作为 canvas 的 mm 坐标使用，
// 只有创建字体面时需要把字号换算为 pt。
type Renderer struct {
	baseDir string
	logger  *log.Logger

	// injected resources
	fontBlobs map[string][]byte // by unique name

	fontMu         sync.Mutex
	fontFamilies   map[string]*canvas.FontFamily
	fallbackFamily *canvas.FontFamily
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Measurer   = (*Renderer)(nil)
)

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	Fonts   map[string]Resource // built-in fonts accessible via built-in:<name>
	Logger  *log.Logger
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving font paths.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with injected fonts and optional baseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:      opts.BaseDir,
		logger:       opts.Logger,
		fontBlobs:    map[string][]byte{},
		fontFamilies: map[string]*canvas.FontFamily{},
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard)
	}
	for name, res := range opts.Fonts {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			r.fontBlobs[name] = res.Bytes
			continue
		}
		if res.Path != "" {
			data, err := os.ReadFile(res.Path)
			if err != nil {
				// 使用时会回退到默认字体
				r.logger.Warn("读取字体失败", "name", name, "path", res.Path, "err", err)
				continue
			}
			r.fontBlobs[name] = data
		}
	}
	return r
}

// MeasureText 实现 layout.Measurer：返回 text 以 fontSize（px）排版时的宽度（px）。
func (r *Renderer) MeasureText(text string, font layout.FontResource, fontSize float64) (float64, error) {
	face, err := r.fontFace(font, fontSize, layout.Color{A: 255})
	if err != nil {
		return 0, err
	}
	return face.TextWidth(text), nil
}

// Render 将 src 中 crop 指定的区域 1:1 拷贝到 surface，再叠加带阴影的正文与副标题。
//
// 叠加顺序为：正文阴影、正文、副标题阴影、副标题。阴影为黑色，模糊半径取自排版计划，
// 按 canvas shadowBlur 的约定换算为 sigma = blur/2。
func (r *Renderer) Render(surface *renderer.Surface, src image.Image, block layout.TextBlock, style layout.StyleParams, crop layout.CropRect) (*layout.Plan, error) {
	if surface == nil {
		return nil, fmt.Errorf("渲染目标为空")
	}
	if src == nil {
		return nil, &layout.InvalidImageError{}
	}
	bounds := crop.Bounds()
	if bounds.Empty() {
		return nil, &layout.DegenerateCropError{Width: crop.Width, Height: crop.Height}
	}
	if !bounds.In(src.Bounds()) {
		return nil, fmt.Errorf("裁剪区域 %v 超出源图范围 %v", bounds, src.Bounds())
	}

	w, h := crop.Size()
	plan, err := layout.PlanText(block, style, float64(w), float64(h), r)
	if err != nil {
		return nil, err
	}

	surface.Resize(w, h)
	surface.Fill(imaging.Crop(src, bounds))

	shadow := layout.Color{A: plan.Color.A}
	if err := r.drawOverlay(surface, plan.Lines, plan.Font, plan.FontSize, plan.Align, plan.Color, shadow, plan.ShadowBlur); err != nil {
		return nil, err
	}
	if sub := plan.Subtitle; sub != nil {
		lines := []layout.PlacedLine{*sub}
		if err := r.drawOverlay(surface, lines, plan.Font, sub.FontSize, plan.Align, plan.Color, shadow, sub.ShadowBlur); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func (r *Renderer) drawOverlay(surface *renderer.Surface, lines []layout.PlacedLine, font layout.FontResource, fontSize float64, align layout.Align, fill, shadow layout.Color, blur float64) error {
	w, h := surface.Width(), surface.Height()
	shadowLayer, err := r.textLayer(w, h, lines, font, fontSize, align, shadow)
	if err != nil {
		return err
	}
	surface.Composite(imaging.Blur(shadowLayer, blur/2))

	textLayer, err := r.textLayer(w, h, lines, font, fontSize, align, fill)
	if err != nil {
		return err
	}
	surface.Composite(textLayer)
	return nil
}

// textLayer 在透明画布上绘制各行文本并栅格化。行的 Y 为字母基线。
func (r *Renderer) textLayer(w, h int, lines []layout.PlacedLine, font layout.FontResource, fontSize float64, align layout.Align, col layout.Color) (*image.RGBA, error) {
	face, err := r.fontFace(font, fontSize, col)
	if err != nil {
		return nil, err
	}
	c := canvas.New(float64(w), float64(h))
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

	for _, line := range lines {
		if line.Content == "" {
			continue
		}
		ctx.DrawText(line.LeftEdge(align), line.Y, canvas.NewTextLine(face, line.Content, canvas.Left))
	}
	return rasterizer.Draw(c, canvas.DPMM(1), canvas.DefaultColorSpace), nil
}

// fontFace 创建字号为 sizePx 的字体面；canvas 的字号单位为 pt。
func (r *Renderer) fontFace(font layout.FontResource, sizePx float64, col layout.Color) (*canvas.FontFace, error) {
	family, err := r.ensureFontFamily(font)
	if err != nil {
		return nil, err
	}
	return family.Face(toPt(sizePx), colorFromLayout(col), canvas.FontRegular, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(font layout.FontResource) (*canvas.FontFamily, error) {
	key := fontCacheKey(font)
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if family, ok := r.fontFamilies[key]; ok {
		return family, nil
	}

	name := font.Name
	if name == "" {
		name = "Body"
	}
	family := canvas.NewFontFamily(name)
	if err := r.loadFontIntoFamily(family, font); err != nil {
		fallback, fbErr := r.fallback()
		if fbErr != nil {
			return nil, err
		}
		r.logger.Warn("字体加载失败，使用默认字体", "font", font.Src, "fallback", fonts.Default, "err", err)
		r.fontFamilies[key] = fallback
		return fallback, nil
	}
	r.fontFamilies[key] = family
	return family, nil
}

func (r *Renderer) loadFontIntoFamily(family *canvas.FontFamily, font layout.FontResource) error {
	data, err := r.loadFontBytes(font)
	if err != nil {
		return err
	}
	return family.LoadFont(data, 0, canvas.FontRegular)
}

func (r *Renderer) loadFontBytes(font layout.FontResource) ([]byte, error) {
	if font.Src == "" {
		return nil, fmt.Errorf("字体 %s 缺少 src", font.Name)
	}
	src := font.Src
	if strings.HasPrefix(src, "built-in:") || strings.HasPrefix(src, "builtin:") {
		name := strings.TrimPrefix(strings.TrimPrefix(src, "built-in:"), "builtin:")
		if blob, ok := r.fontBlobs[name]; ok {
			return blob, nil
		}
		return nil, fmt.Errorf("找不到内置字体资源 built-in:%s", name)
	}
	if strings.HasPrefix(src, "embed:") {
		return fonts.Load(src)
	}
	path := src
	if !filepath.IsAbs(path) && r.baseDir != "" {
		path = filepath.Join(r.baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", src, err)
	}
	return data, nil
}

// fallback 在调用方持有 fontMu 时使用。
func (r *Renderer) fallback() (*canvas.FontFamily, error) {
	if r.fallbackFamily != nil {
		return r.fallbackFamily, nil
	}
	data, err := fonts.Load(fonts.Default)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("versecard-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, err
	}
	r.fallbackFamily = family
	return family, nil
}

func fontCacheKey(font layout.FontResource) string {
	return font.Name + "|" + font.Src
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, float64(c.A)/255.0)
}

// toPt 将 px（即 mm）转换为点(pt)。
func toPt(px float64) float64 { return px * layout.MmToPt }
