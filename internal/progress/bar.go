package progress

import "strings"

// DefaultUnits 是进度条的格数。
const DefaultUnits = 25

// Bar 是定宽 ASCII 进度条：'#' 表示已完成，'-' 表示未完成。
type Bar struct {
	Units int
}

func NewBar(units int) Bar {
	if units <= 0 {
		units = DefaultUnits
	}
	return Bar{Units: units}
}

// Render 渲染百分比 pct（[0,100]）对应的进度条。
// 第 j 格（从 1 计）在 pct >= 100*j/Units 时填充：100% 时恰好全满。
// 从 0 计的规则（进度 >= j/Units）在 0% 时就会点亮第一格；这里 0% 为全空。
func (b Bar) Render(pct float64) string {
	units := b.Units
	if units <= 0 {
		units = DefaultUnits
	}

	var sb strings.Builder
	sb.Grow(units)
	for j := 1; j <= units; j++ {
		// pct*units >= 100*j：避免浮点除法的边界误差。
		if pct*float64(units) >= 100*float64(j) {
			sb.WriteByte('#')
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}
