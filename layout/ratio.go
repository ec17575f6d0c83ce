package layout

import (
	"sort"
	"strings"
)

// AspectRatio 是宽高比 W:H。Native 为 true 时表示沿用源图自身比例。
type AspectRatio struct {
	Key    string  `json:"key"`
	W      float64 `json:"w"`
	H      float64 `json:"h"`
	Native bool    `json:"native,omitempty"`
}

// Value 返回比例数值 W/H；Native 比例需要源图尺寸才能确定。
func (a AspectRatio) Value(srcW, srcH int) float64 {
	if a.Native {
		if srcH <= 0 {
			return 0
		}
		return float64(srcW) / float64(srcH)
	}
	return a.W / a.H
}

// Label 返回便于展示的 W:H 形式。
func (a AspectRatio) Label() string {
	if a.Native {
		return "原图"
	}
	return formatFloat(a.W) + ":" + formatFloat(a.H)
}

// Square 是未知比例时的回退值。
var Square = AspectRatio{Key: "square", W: 1, H: 1}

var ratioPresets = map[string]AspectRatio{
	"default":         {Key: "default", Native: true},
	"native":          {Key: "default", Native: true},
	"phone-portrait":  {Key: "phone-portrait", W: 9, H: 16},
	"phone-landscape": {Key: "phone-landscape", W: 16, H: 9},
	"desktop":         {Key: "desktop", W: 16, H: 10},
	"square":          Square,
	"4:3":             {Key: "4:3", W: 4, H: 3},
	"3:4":             {Key: "3:4", W: 3, H: 4},
	"3:2":             {Key: "3:2", W: 3, H: 2},
	"2:3":             {Key: "2:3", W: 2, H: 3},
}

// ratioAliases 允许直接使用 W:H 写法选择预设。
var ratioAliases = map[string]string{
	"9:16":  "phone-portrait",
	"16:9":  "phone-landscape",
	"16:10": "desktop",
	"1:1":   "square",
}

// ParseRatio 根据名称查找预设比例。
// 未知名称返回 Square 以及 *UnrecognizedRatioError，调用方可以记录后继续使用返回值。
func ParseRatio(key string) (AspectRatio, error) {
	k := normalizeKey(key)
	if alias, ok := ratioAliases[k]; ok {
		k = alias
	}
	if r, ok := ratioPresets[k]; ok {
		return r, nil
	}
	return Square, &UnrecognizedRatioError{Key: key}
}

// Ratios 返回全部预设（不含别名），按名称排序，default 在最前。
func Ratios() []AspectRatio {
	out := make([]AspectRatio, 0, len(ratioPresets))
	for k, r := range ratioPresets {
		if k != r.Key {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Native != out[j].Native {
			return out[i].Native
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func normalizeKey(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
