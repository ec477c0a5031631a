package media

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/John-Robertt/swiper/internal/domain"
	"github.com/John-Robertt/swiper/internal/infra/proc"
	"github.com/John-Robertt/swiper/internal/logger"
	"github.com/John-Robertt/swiper/internal/progress"
)

// Extractor 用 ffmpeg 把视频按 RenderFPS/宽高抽成 %04d.<format> 帧序列。
type Extractor struct {
	Runner proc.Runner
	Bin    string // 默认 "ffmpeg"

	// Units 是进度条格数；<= 0 时使用 progress.DefaultUnits。
	Units int
}

// ExtractArgs 返回 ffmpeg 参数。
// -nostdin：ffmpeg 默认会读 stdin 响应按键，后台运行时会被 SIGTTIN 挂起。
func ExtractArgs(m domain.FrameMetadata, video, dir string) []string {
	return []string{
		"-nostdin",
		"-i", video,
		"-r", m.RenderFPS,
		"-vf", "scale=" + strconv.Itoa(m.Width) + ":" + strconv.Itoa(m.Height),
		filepath.Join(dir, "%04d."+m.Format),
		"-hide_banner",
	}
}

// Extract 运行 ffmpeg，把合并后的输出交给 progress 渲染到 w，并等待进程结束。
//
// 进度完成后仍会把剩余输出读尽，再 Wait；ffmpeg 非零退出视为 resource 错误。
func (e Extractor) Extract(ctx context.Context, m domain.FrameMetadata, video, dir string, w io.Writer) error {
	if !domain.ValidFormat(m.Format) {
		return domain.Precondition("extract", fmt.Errorf("不支持的帧格式：%q", m.Format))
	}
	if m.Width <= 0 || m.Height <= 0 {
		return domain.Precondition("extract", fmt.Errorf("宽高无效：%dx%d", m.Width, m.Height))
	}
	if _, err := domain.ParseRate(m.RenderFPS); err != nil {
		return domain.Precondition("extract", err)
	}

	bin := e.Bin
	if strings.TrimSpace(bin) == "" {
		bin = "ffmpeg"
	}
	r := e.Runner
	if r == nil {
		r = proc.ExecRunner{}
	}

	cmd := proc.Command{Name: bin, Args: ExtractArgs(m, video, dir), CombinedOutput: true}
	logger.Debug("ffmpeg", "cmd", cmd.String())

	p, err := r.Start(ctx, cmd)
	if err != nil {
		return domain.Resource("extract", video, err)
	}

	out := p.Output()
	if err := progress.Consume(out, domain.ExpectedFrames(m), w, e.Units); err != nil {
		_ = p.Kill()
		_, _ = io.Copy(io.Discard, out)
		_ = p.Wait()
		return err
	}

	_, _ = io.Copy(io.Discard, out)
	if err := p.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.Resource("extract", video, err)
	}
	return nil
}
