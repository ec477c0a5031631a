// Package media 调用 ffprobe/ffmpeg：探测视频元数据、把视频抽成帧序列。
package media

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/John-Robertt/swiper/internal/domain"
	"github.com/John-Robertt/swiper/internal/infra/proc"
	"github.com/John-Robertt/swiper/internal/logger"
)

// Prober 通过 ffprobe 逐字段读取视频流信息。
type Prober struct {
	Runner proc.Runner
	Bin    string // 默认 "ffprobe"
}

func (p Prober) bin() string {
	if strings.TrimSpace(p.Bin) == "" {
		return "ffprobe"
	}
	return p.Bin
}

func (p Prober) runner() proc.Runner {
	if p.Runner == nil {
		return proc.ExecRunner{}
	}
	return p.Runner
}

// ProbeArgs 返回读取单个字段的 ffprobe 参数。section 为 "stream" 或 "format"。
func ProbeArgs(section, field, video string) []string {
	args := []string{"-v", "0", "-of", "csv=p=0"}
	if section == "stream" {
		args = append(args, "-select_streams", "v:0")
	}
	return append(args, "-show_entries", section+"="+field, video)
}

// Field 返回字段值（首行，去空白）。没有输出视为错误。
func (p Prober) Field(ctx context.Context, section, field, video string) (string, error) {
	cmd := proc.Command{Name: p.bin(), Args: ProbeArgs(section, field, video)}
	logger.Debug("ffprobe", "cmd", cmd.String())

	out, err := proc.Output(ctx, p.runner(), cmd)
	if err != nil {
		return "", domain.Resource("probe "+field, video, err)
	}
	line, err := firstLine(out)
	if err != nil {
		return "", domain.Resource("probe "+field, video, err)
	}
	return line, nil
}

func firstLine(out []byte) (string, error) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		// csv=p=0 在部分容器上会多一个尾随逗号。
		s := strings.TrimRight(strings.TrimSpace(sc.Text()), ",")
		if s != "" {
			return s, nil
		}
	}
	return "", errors.New("ffprobe 没有输出")
}

// Probe 补齐 m 中未指定的字段：
// - Duration 总是探测（流时长为 N/A 时回退到容器时长）
// - Width/Height 为 Unset 时探测
// - RenderFPS 为空时取 avg_frame_rate
// - Name 为空时取视频文件名
func (p Prober) Probe(ctx context.Context, video string, m domain.FrameMetadata) (domain.FrameMetadata, error) {
	if m.Name == "" {
		m.Name = filepath.Base(video)
	}

	d, err := p.duration(ctx, video)
	if err != nil {
		return m, err
	}
	m.Duration = d

	if m.Width == domain.Unset {
		if m.Width, err = p.intField(ctx, "width", video); err != nil {
			return m, err
		}
	}
	if m.Height == domain.Unset {
		if m.Height, err = p.intField(ctx, "height", video); err != nil {
			return m, err
		}
	}
	if strings.TrimSpace(m.RenderFPS) == "" {
		v, err := p.Field(ctx, "stream", "avg_frame_rate", video)
		if err != nil {
			return m, err
		}
		if _, err := domain.ParseRate(v); err != nil {
			return m, domain.Resource("probe avg_frame_rate", video, fmt.Errorf("无法识别的帧率 %q：%w", v, err))
		}
		m.RenderFPS = v
	}
	return m, nil
}

func (p Prober) duration(ctx context.Context, video string) (float64, error) {
	v, err := p.Field(ctx, "stream", "duration", video)
	if err != nil {
		return 0, err
	}
	if v == "N/A" {
		// mkv/webm 的视频流通常不带 duration。
		if v, err = p.Field(ctx, "format", "duration", video); err != nil {
			return 0, err
		}
	}
	d, err := strconv.ParseFloat(v, 64)
	if err != nil || d < 0 {
		return 0, domain.Resource("probe duration", video, fmt.Errorf("无法识别的时长 %q", v))
	}
	return d, nil
}

func (p Prober) intField(ctx context.Context, field, video string) (int, error) {
	v, err := p.Field(ctx, "stream", field, video)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, domain.Resource("probe "+field, video, fmt.Errorf("无法识别的值 %q", v))
	}
	return n, nil
}
