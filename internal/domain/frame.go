package domain

import "fmt"

// MaxFrames 是 %04d 命名方案能寻址的最大帧数。
const MaxFrames = 9999

// FrameName 返回第 ordinal（从 1 开始）帧的文件名，例如 0001.jpg。
// ordinal >= 10000 时自然退化为不补零的形式（与 ffmpeg %04d 的行为一致）。
func FrameName(ordinal int, format string) string {
	return fmt.Sprintf("%04d.%s", ordinal, format)
}

// FrameStore 是有序、可寻址的帧集合。
//
// 不变量：
// - len(Names) <= MaxFrames
// - Names[i] == FrameName(i+1, Format)
type FrameStore struct {
	Root   string
	Format string
	Names  []string
}

// Len 返回帧数。
func (s FrameStore) Len() int { return len(s.Names) }

// WithRoot 返回换了根目录的副本（cache 迁移后使用），帧名不变。
func (s FrameStore) WithRoot(root string) FrameStore {
	s.Root = root
	s.Names = append([]string(nil), s.Names...)
	return s
}

// ProgressEvent 是抽帧过程中的一次进度快照（瞬时值，不保留）。
type ProgressEvent struct {
	Frame   int
	Percent float64 // [0, 100]
}
