package layout

import (
	"math"
	"strconv"
	"strings"
)

// This file defines unit-safe helpers for font sizes and offsets written in job files and forms.

// Unit represents the original unit of a length value.
type Unit int

const (
	UnitNone    Unit = iota // unit-less numbers
	UnitPX                  // CSS pixels
	UnitPT                  // points
	UnitPercent             // percentage of a reference length
)

// Conversion constants.
// 渲染器以 1mm == 1px 的分辨率栅格化画布，因此字号 px 到 canvas 字体 pt 的换算即 mm→pt。
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
	PtToPx = 4.0 / 3.0
)

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// ToPX converts this length to CSS pixels. Unit-less numbers are taken as pixels;
// percentages are resolved against reference.
func (l Length) ToPX(reference float64) float64 {
	switch l.Unit {
	case UnitPT:
		return l.Value * PtToPx
	case UnitPercent:
		return l.Value / 100 * reference
	default:
		return l.Value
	}
}

// ParseLength parses strings such as "48", "48px", "36pt" or "-10%".
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, &InvalidStyleError{Field: "length", Value: value}
	}
	unit := UnitNone
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"px", UnitPX}, {"pt", UnitPT}, {"%", UnitPercent}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Length{}, &InvalidStyleError{Field: "length", Value: value}
	}
	return Length{Value: f, Unit: unit}, nil
}

// OffsetToPX 将竖直偏移百分比换算为像素：percent/200 * height，
// 即 ±100 对应画面高度的一半。
func OffsetToPX(percent, height float64) float64 {
	return percent / 200 * height
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
