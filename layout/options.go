package layout

// Measurer 负责按字体与字号测量单行文本的宽度（px）。
// 排版算法只依赖该接口，便于在测试中替换为固定宽度的实现。
type Measurer interface {
	MeasureText(text string, font FontResource, fontSize float64) (float64, error)
}

// Layout constants shared by the planner and the renderer.
const (
	MaxWidthFactor        = 0.8 // 行宽上限占画面宽度的比例
	LineHeightFactor      = 1.2
	SubtitleScale         = 0.5 // 副标题字号相对正文
	SubtitleLift          = 0.3 // 有副标题时正文整体上移 fontSize*0.3
	SubtitleGap           = 0.6 // 副标题与正文块之间的间距 fontSize*0.6
	MainShadowDivisor     = 6.0
	SubtitleShadowDivisor = 12.0
)
