package layout

import (
	"image"
	"math"
)

// ComputeCrop 计算源图中符合比例 ratio 的最大居中裁剪区域。
//
// 宽度取 min(srcW, srcH*ratio)，高度由宽度反推，因此总有一个方向占满源图，
// 另一个方向不会越界。非正的 ratio 按 1:1 处理。
func ComputeCrop(srcW, srcH int, ratio float64) (CropRect, error) {
	if srcW <= 0 || srcH <= 0 {
		return CropRect{}, &InvalidImageError{Width: srcW, Height: srcH}
	}
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		ratio = 1
	}

	w := float64(srcW)
	h := float64(srcH)
	xd := math.Min(w, h*ratio)
	// xd/ratio 在浮点下可能略大于 srcH
	yd := math.Min(xd/ratio, h)

	pw := int(math.Round(xd))
	ph := int(math.Round(yd))
	if pw > srcW {
		pw = srcW
	}
	if ph > srcH {
		ph = srcH
	}
	if pw <= 0 || ph <= 0 {
		return CropRect{}, &DegenerateCropError{Width: xd, Height: yd, Ratio: ratio}
	}

	ox := (srcW - pw) / 2
	oy := (srcH - ph) / 2
	return CropRect{
		OffsetX: (w - xd) / 2,
		OffsetY: (h - yd) / 2,
		Width:   xd,
		Height:  yd,
		pixels:  image.Rect(ox, oy, ox+pw, oy+ph),
	}, nil
}

// CropFor 按比例名称计算裁剪区域。未知名称按 1:1 处理，
// 返回的 AspectRatio 反映实际使用的比例，调用方可据此记录回退。
func CropFor(srcW, srcH int, key string) (CropRect, AspectRatio, error) {
	ratio, _ := ParseRatio(key)
	crop, err := ComputeCrop(srcW, srcH, ratio.Value(srcW, srcH))
	return crop, ratio, err
}

// CropImage 是 CropFor 针对 image.Image 的便捷形式，使用图像的实际尺寸。
func CropImage(img image.Image, key string) (CropRect, AspectRatio, error) {
	if img == nil {
		return CropRect{}, Square, &InvalidImageError{}
	}
	b := img.Bounds()
	crop, ratio, err := CropFor(b.Dx(), b.Dy(), key)
	if err != nil {
		return crop, ratio, err
	}
	// 源图的 Bounds 不一定从原点开始
	crop.pixels = crop.pixels.Add(b.Min)
	return crop, ratio, nil
}
