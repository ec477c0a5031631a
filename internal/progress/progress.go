// Package progress 把抽帧工具的进度输出解析为 ProgressEvent，并渲染定宽 ASCII 进度条。
package progress

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/John-Robertt/swiper/internal/domain"
)

// Marker 是进度行中帧计数的前缀。
const Marker = "frame="

// Pipe 从字节流中惰性产出 ProgressEvent。
//
// 完成条件（满足任一即可）：
// - 百分比 >= 100
// - 流结束：视为强制完成，补发一个 100% 事件（ffmpeg 收尾输出不保证再带一行进度）
type Pipe struct {
	lr    *LineReader
	total int

	frame int // 已见到的最大帧计数，保证单调
	done  bool
}

// NewPipe 创建 Pipe。total 是预期总帧数；<= 0 时按 1 处理。
func NewPipe(r io.Reader, total int) *Pipe {
	if total <= 0 {
		total = 1
	}
	return &Pipe{
		lr:    NewLineReader(r, DefaultMaxLine),
		total: total,
	}
}

// Next 返回下一个进度事件；抽帧完成后返回 io.EOF。
// 流格式错误（行过长）或读取失败返回 stream_protocol / resource 错误。
func (p *Pipe) Next() (domain.ProgressEvent, error) {
	if p.done {
		return domain.ProgressEvent{}, io.EOF
	}

	for {
		line, err := p.lr.Next()
		if err != nil {
			if err == io.EOF {
				p.done = true
				return domain.ProgressEvent{Frame: max(p.frame, p.total), Percent: 100}, nil
			}
			if errors.Is(err, ErrLineTooLong) {
				return domain.ProgressEvent{}, domain.StreamProtocol("read progress", err)
			}
			return domain.ProgressEvent{}, domain.Resource("read progress", "", err)
		}

		n, ok := ParseFrame(line)
		if !ok {
			continue
		}
		if n > p.frame {
			p.frame = n
		}

		pct := Percent(p.frame, p.total)
		if pct >= 100 {
			p.done = true
		}
		return domain.ProgressEvent{Frame: p.frame, Percent: pct}, nil
	}
}

// ParseFrame 从一行中提取 "frame=" 之后的整数（允许前导空白，只取前导数字）。
// 例如 "frame=  120 fps= 30 q=2.0 ..." => 120。
func ParseFrame(line []byte) (int, bool) {
	i := bytes.Index(line, []byte(Marker))
	if i < 0 {
		return 0, false
	}
	rest := bytes.TrimLeft(line[i+len(Marker):], " \t")

	j := 0
	for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
		j++
	}
	if j == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(string(rest[:j]))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Percent = min(100, 100*frame/total)。
func Percent(frame, total int) float64 {
	if total <= 0 {
		return 100
	}
	pct := 100 * float64(frame) / float64(total)
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// Consume 读取抽帧工具的输出直到完成，并把进度条原地刷新写到 w。
//
// 返回时不保证流已读尽：调用方需自行 drain（避免子进程因管道写满而阻塞）。
func Consume(r io.Reader, total int, w io.Writer, units int) error {
	if w == nil {
		w = io.Discard
	}
	bar := NewBar(units)
	p := NewPipe(r, total)

	rendered := false
	for {
		ev, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if rendered {
				fmt.Fprintln(w)
			}
			return err
		}
		fmt.Fprintf(w, "\r%6.2f%% %s", ev.Percent, bar.Render(ev.Percent))
		rendered = true
	}
	fmt.Fprintln(w)
	return nil
}
