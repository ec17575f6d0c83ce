package layout

import "fmt"

// InvalidImageError 表示源图尺寸非法（宽或高不为正）。
type InvalidImageError struct {
	Width  int
	Height int
}

func (e *InvalidImageError) Error() string {
	return fmt.Sprintf("源图尺寸非法: %dx%d", e.Width, e.Height)
}

// DegenerateCropError 表示按比例计算出的裁剪区域在某个方向上取整为 0。
type DegenerateCropError struct {
	Width  float64
	Height float64
	Ratio  float64
}

func (e *DegenerateCropError) Error() string {
	return fmt.Sprintf("裁剪区域退化: %gx%g (比例 %g)", e.Width, e.Height, e.Ratio)
}

// UnrecognizedRatioError 表示未知的画幅比例名称。
// 调用方应回退到 1:1 而不是中断渲染。
type UnrecognizedRatioError struct {
	Key string
}

func (e *UnrecognizedRatioError) Error() string {
	return fmt.Sprintf("未知的画幅比例 %q，已回退为 1:1", e.Key)
}

// InvalidStyleError 表示样式参数无法解析或超出取值范围。
type InvalidStyleError struct {
	Field string
	Value string
}

func (e *InvalidStyleError) Error() string {
	return fmt.Sprintf("样式参数 %s 的取值 %q 无效", e.Field, e.Value)
}
