// Package session 持有一张卡片的全部编辑状态（源图、文本、样式、比例与画布），
// 并在任一输入变化后重新渲染。
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/ByLCY/versecard/binding"
	"github.com/ByLCY/versecard/layout"
	"github.com/ByLCY/versecard/renderer"
	"github.com/ByLCY/versecard/verse"
)

// ErrNoImage 表示还没有加载源图，此时渲染是空操作。
var ErrNoImage = errors.New("尚未加载图片")

// DefaultBlock 是首次打开时显示的经文。
var DefaultBlock = layout.TextBlock{
	Body:     "For God so loved the world, that he gave his only begotten Son, that whosoever believeth in him should not perish, but have everlasting life.",
	Subtitle: "John 3:16",
}

// Session is the single owner of the card state. All mutations go through its methods,
// which re-render immediately; Run serialises events coming from other goroutines.
type Session struct {
	mu sync.Mutex

	renderer renderer.Renderer
	logger   *log.Logger

	image    image.Image
	block    layout.TextBlock
	template layout.TextBlock
	style    layout.StyleParams
	ratio    string
	ref      string

	surface *renderer.Surface
	plan    *layout.Plan
	crop    layout.CropRect
	renders int
}

// Option configures a Session.
type Option func(*Session)

// WithLogger 设置日志输出。
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithStyle 设置初始样式。
func WithStyle(style layout.StyleParams) Option {
	return func(s *Session) { s.style = style }
}

// WithRatio 设置初始画幅比例。
func WithRatio(key string) Option {
	return func(s *Session) { s.ratio = key }
}

// WithTemplate 设置经文到达时使用的正文/副标题模板，模板中可以使用 ${...} 占位符。
func WithTemplate(tpl layout.TextBlock) Option {
	return func(s *Session) { s.template = tpl }
}

// New creates a Session drawing with r.
func New(r renderer.Renderer, opts ...Option) *Session {
	s := &Session{
		renderer: r,
		block:    DefaultBlock,
		template: layout.TextBlock{Body: layout.DefaultBodyTemplate, Subtitle: layout.DefaultSubtitleTemplate},
		style:    layout.DefaultStyle(),
		ratio:    "default",
		surface:  renderer.NewSurface(0, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	return s
}

// SetImage 替换源图并重绘。
func (s *Session) SetImage(img image.Image) error {
	if img == nil {
		return &layout.InvalidImageError{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = img
	return s.renderLocked()
}

// SetText 替换正文与副标题并重绘。
func (s *Session) SetText(block layout.TextBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.block = block
	return s.renderLocked()
}

// SetStyle 校验并替换样式后重绘；样式非法时保留原样式。
func (s *Session) SetStyle(style layout.StyleParams) error {
	if err := style.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.style = style
	return s.renderLocked()
}

// SetRatio 切换画幅比例并重绘。未知比例按 1:1 渲染并记录警告。
func (s *Session) SetRatio(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratio = key
	return s.renderLocked()
}

// ApplyVerse 查询经文并用模板生成新的文本。查询失败时记录错误并保留当前文本。
func (s *Session) ApplyVerse(ctx context.Context, f verse.Fetcher, ref string) error {
	v, err := f.Fetch(ctx, ref)
	return s.applyFetched(ref, v, err)
}

func (s *Session) applyFetched(ref string, v *verse.Verse, err error) error {
	if err != nil {
		s.logger.Error("获取经文失败，保留当前文本", "ref", ref, "err", err)
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ref = ref
	s.block = bindVerse(s.template, v)
	s.logger.Info("已更新经文", "ref", v.Reference)
	return s.renderLocked()
}

// Render 用当前状态重绘画布。没有源图时返回 ErrNoImage 且不改变画布。
func (s *Session) Render() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderLocked()
}

func (s *Session) renderLocked() error {
	if s.image == nil {
		return ErrNoImage
	}
	if s.renderer == nil {
		return fmt.Errorf("session: 未配置渲染器")
	}
	crop, ratio, err := layout.CropImage(s.image, s.ratio)
	if err != nil {
		return err
	}
	if _, perr := layout.ParseRatio(s.ratio); perr != nil {
		s.logger.Debug("未知的画幅比例，使用 1:1", "ratio", s.ratio)
	}
	plan, err := s.renderer.Render(s.surface, s.image, s.block, s.style, crop)
	if err != nil {
		return fmt.Errorf("渲染失败: %w", err)
	}
	s.plan = plan
	s.crop = crop
	s.renders++
	w, h := crop.Size()
	s.logger.Debug("已渲染", "ratio", ratio.Label(), "size", fmt.Sprintf("%dx%d", w, h), "lines", plan.LineCount())
	return nil
}

// Surface 返回画布。画布只在持有会话的协程中读取。
func (s *Session) Surface() *renderer.Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface
}

// Plan 返回最近一次渲染的排版计划，尚未渲染时为 nil。
func (s *Session) Plan() *layout.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan
}

// Crop 返回最近一次渲染使用的裁剪区域。
func (s *Session) Crop() layout.CropRect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crop
}

// Block 返回当前文本。
func (s *Session) Block() layout.TextBlock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.block
}

// Style 返回当前样式。
func (s *Session) Style() layout.StyleParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.style
}

// Renders 返回成功渲染的次数。
func (s *Session) Renders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renders
}

// Reference 返回最近一次成功应用的经文引用，尚未应用时为空。
func (s *Session) Reference() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ref
}

// SourceBounds 返回源图范围，未加载时为空矩形。
func (s *Session) SourceBounds() image.Rectangle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.image == nil {
		return image.Rectangle{}
	}
	return s.image.Bounds()
}

// HasImage 报告是否已加载源图。
func (s *Session) HasImage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.image != nil
}

// FileName 返回导出文件名，由最近查询的经文引用生成。
func (s *Session) FileName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := s.ref
	if ref == "" {
		ref = s.block.Subtitle
	}
	return renderer.FileName(ref)
}

// Export 将当前画布编码为 PNG。
func (s *Session) Export(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return ErrNoImage
	}
	return renderer.EncodePNG(w, s.surface)
}

func bindVerse(tpl layout.TextBlock, v *verse.Verse) layout.TextBlock {
	data := map[string]any{}
	for k, val := range v.Raw {
		data[k] = val
	}
	data["text"] = v.Text
	data["reference"] = v.Reference
	if tpl.Body == "" {
		tpl.Body = layout.DefaultBodyTemplate
	}
	return layout.TextBlock{
		Body:     binding.Interpolate(tpl.Body, data),
		Subtitle: binding.Interpolate(tpl.Subtitle, data),
	}
}
