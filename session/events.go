package session

import (
	"context"
	"errors"
	"image"

	"github.com/ByLCY/versecard/layout"
	"github.com/ByLCY/versecard/source"
	"github.com/ByLCY/versecard/verse"
)

// Event 是一次状态变更。事件按到达顺序逐个处理，后到的事件覆盖先到的。
type Event interface {
	apply(s *Session) error
}

// ImageLoaded 在源图异步加载完成后投递。
type ImageLoaded struct {
	Ref   string
	Image image.Image
	Err   error
}

func (e ImageLoaded) apply(s *Session) error {
	if e.Err != nil {
		s.logger.Error("加载图片失败", "src", e.Ref, "err", e.Err)
		return e.Err
	}
	if e.Image == nil {
		return &layout.InvalidImageError{}
	}
	s.logger.Info("已加载图片", "src", e.Ref, "width", e.Image.Bounds().Dx(), "height", e.Image.Bounds().Dy())
	return s.SetImage(e.Image)
}

// FromSource 把 source.Loader 的异步结果转换为事件。
func FromSource(res source.Result) ImageLoaded {
	return ImageLoaded{Ref: res.Ref, Image: res.Image, Err: res.Err}
}

// TextChanged 直接替换文本。
type TextChanged struct {
	Block layout.TextBlock
}

func (e TextChanged) apply(s *Session) error { return s.SetText(e.Block) }

// StyleChanged 替换样式。
type StyleChanged struct {
	Style layout.StyleParams
}

func (e StyleChanged) apply(s *Session) error { return s.SetStyle(e.Style) }

// RatioChanged 切换画幅比例。
type RatioChanged struct {
	Key string
}

func (e RatioChanged) apply(s *Session) error { return s.SetRatio(e.Key) }

// VerseFetched 在经文查询完成后投递；失败时保留当前文本。
type VerseFetched struct {
	Ref   string
	Verse *verse.Verse
	Err   error
}

func (e VerseFetched) apply(s *Session) error { return s.applyFetched(e.Ref, e.Verse, e.Err) }

// FetchVerse 在后台查询经文，完成后向返回的通道发送一个 VerseFetched 并关闭通道。
func FetchVerse(ctx context.Context, f verse.Fetcher, ref string) <-chan Event {
	out := make(chan Event, 1)
	go func() {
		defer close(out)
		v, err := f.Fetch(ctx, ref)
		out <- VerseFetched{Ref: ref, Verse: v, Err: err}
	}()
	return out
}

// Run 顺序处理 events 直到通道关闭或 ctx 结束。
// 单个事件的失败只记录日志，不会中断循环；没有源图时的重绘被静默跳过。
func (s *Session) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := ev.apply(s); err != nil && !errors.Is(err, ErrNoImage) {
				s.logger.Debug("事件处理失败", "event", eventName(ev), "err", err)
			}
		}
	}
}

// Merge 将多个事件通道合并为一个，全部输入关闭后关闭输出。
func Merge(ctx context.Context, inputs ...<-chan Event) <-chan Event {
	out := make(chan Event)
	done := make(chan struct{})
	for _, in := range inputs {
		go func(in <-chan Event) {
			defer func() { done <- struct{}{} }()
			for ev := range in {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}(in)
	}
	go func() {
		for range inputs {
			<-done
		}
		close(out)
	}()
	return out
}

func eventName(ev Event) string {
	switch ev.(type) {
	case ImageLoaded:
		return "image"
	case TextChanged:
		return "text"
	case StyleChanged:
		return "style"
	case RatioChanged:
		return "ratio"
	case VerseFetched:
		return "verse"
	default:
		return "unknown"
	}
}

// Images 把 source.Loader 的结果通道转换为事件通道。
func Images(in <-chan source.Result) <-chan Event {
	out := make(chan Event, 1)
	go func() {
		defer close(out)
		for res := range in {
			out <- FromSource(res)
		}
	}()
	return out
}
