package domain

import "strings"

// Unset 是宽高的“未指定”哨兵值（由 probe 补齐）。
const Unset = -1

const (
	FormatJPG = "jpg"
	FormatPNG = "png"
)

// FrameMetadata 描述一份已保存（或即将保存）的壁纸。
//
// 约束：
// - RenderFPS/PlaybackFPS 非空时必须是合法的速率字符串（见 ParseRate）
// - 交给 scheduler 之后视为只读
type FrameMetadata struct {
	Name   string
	Width  int // 像素；Unset 表示未指定
	Height int

	RenderFPS   string // 例如 "30"、"29.97"、"442/10"
	PlaybackFPS string // 为空时等同 RenderFPS

	Format   string  // jpg | png
	Duration float64 // 秒
}

// NewFrameMetadata 返回一份“空”元数据：宽高未指定，格式默认 jpg。
func NewFrameMetadata() FrameMetadata {
	return FrameMetadata{
		Width:  Unset,
		Height: Unset,
		Format: FormatJPG,
	}
}

// Playback 返回实际播放使用的速率字符串。
func (m FrameMetadata) Playback() string {
	if strings.TrimSpace(m.PlaybackFPS) != "" {
		return m.PlaybackFPS
	}
	return m.RenderFPS
}

// ValidFormat 判断 f 是否属于支持的帧图片格式。
func ValidFormat(f string) bool {
	switch f {
	case FormatJPG, FormatPNG:
		return true
	default:
		return false
	}
}

// ExpectedFrames 估算抽帧总数：trunc(duration * rfps)，至少为 1。
// 估算值只用于进度显示，误差由 progress 层截断到 100% 兜住。
func ExpectedFrames(m FrameMetadata) int {
	r, err := ParseRate(m.RenderFPS)
	if err != nil {
		return 1
	}
	n := int(m.Duration * r)
	if n < 1 {
		return 1
	}
	return n
}
