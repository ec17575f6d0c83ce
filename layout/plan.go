package layout

import (
	"fmt"
	"strings"
)

// PlanText 计算正文各行与副标题在 width×height 画面上的位置。
//
// 竖直锚点为画面中线；显示副标题时正文整体上移 fontSize*0.3，再叠加用户偏移
// (percent/200*height)。正文块以锚点为中心，副标题位于正文块下方 fontSize*0.6 处。
// 水平锚点固定为 width/2，由对齐方式决定文本落在锚点的哪一侧。
func PlanText(block TextBlock, style StyleParams, width, height float64, m Measurer) (*Plan, error) {
	if m == nil {
		return nil, fmt.Errorf("layout: 缺少测量后端 Measurer")
	}
	if err := style.Validate(); err != nil {
		return nil, err
	}

	fontSize := style.FontSize
	showSubtitle := style.IncludeSubtitle && strings.TrimSpace(block.Subtitle) != ""

	textY := height / 2
	if showSubtitle {
		textY -= fontSize * SubtitleLift
	}
	textY += OffsetToPX(style.VerticalOffset, height)

	maxWidth := width * MaxWidthFactor
	wrapped, err := WrapText(block.Body, maxWidth, style.Font, fontSize, m)
	if err != nil {
		return nil, fmt.Errorf("正文折行失败: %w", err)
	}

	lineHeight := fontSize * LineHeightFactor
	blockHeight := float64(len(wrapped)) * lineHeight
	startY := textY - blockHeight/2 + lineHeight/2
	anchorX := width / 2

	plan := &Plan{
		Width:      width,
		Height:     height,
		MaxWidth:   maxWidth,
		AnchorX:    anchorX,
		AnchorY:    textY,
		LineHeight: lineHeight,
		FontSize:   fontSize,
		ShadowBlur: fontSize / MainShadowDivisor,
		Align:      style.Align,
		Color:      style.Color,
		Font:       style.Font,
		Lines:      make([]PlacedLine, 0, len(wrapped)),
	}
	for i, ln := range wrapped {
		plan.Lines = append(plan.Lines, PlacedLine{
			Content:    ln.Content,
			X:          anchorX,
			Y:          startY + float64(i)*lineHeight,
			Width:      ln.Width,
			FontSize:   fontSize,
			ShadowBlur: plan.ShadowBlur,
		})
	}

	if showSubtitle {
		subSize := fontSize * SubtitleScale
		w, err := m.MeasureText(block.Subtitle, style.Font, subSize)
		if err != nil {
			return nil, fmt.Errorf("副标题测量失败: %w", err)
		}
		plan.Subtitle = &PlacedLine{
			Content:    block.Subtitle,
			X:          anchorX,
			Y:          textY + blockHeight/2 + fontSize*SubtitleGap,
			Width:      w,
			FontSize:   subSize,
			ShadowBlur: fontSize / SubtitleShadowDivisor,
		}
	}
	return plan, nil
}

// LeftEdge 返回按对齐方式放置后该行的左边界 x。
func (l PlacedLine) LeftEdge(align Align) float64 {
	switch align {
	case AlignStart:
		return l.X
	case AlignEnd:
		return l.X - l.Width
	default:
		return l.X - l.Width/2
	}
}
