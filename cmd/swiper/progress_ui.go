package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/swiper/internal/app/run"
	"github.com/John-Robertt/swiper/internal/config"
	"github.com/John-Robertt/swiper/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 把 run 层的事件打印成面向用户的文本。
//
// 元数据总是输出；生效配置与探测耗时只在 --verbose 时输出。
// 进度条不经过这里（run.Deps.Progress 直接写终端）。
type progressUI struct {
	w       io.Writer
	verbose bool

	mu            sync.Mutex
	configPrinted bool
}

func newProgressUI(w io.Writer, verbose bool) *progressUI {
	return &progressUI{w: w, verbose: verbose}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	if !p.verbose {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "[%s] swiper %s\n", time.Now().Format("15:04:05"), actionName(eff))
	if p.configPrinted {
		return
	}
	p.configPrinted = true

	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  config: %s\n", orText(eff.ConfigPath, "(无)"))
	fmt.Fprintf(p.w, "  save_dir: %s\n", eff.SaveDir)
	if eff.Cache {
		fmt.Fprintf(p.w, "  mount_point: %s\n", eff.MountPoint)
		fmt.Fprintf(p.w, "  cache_size: %d\n", eff.CacheSize)
	}
	fmt.Fprintf(p.w, "  display: %s %s\n", eff.DisplayCmd, formatStringListJSON(eff.DisplayArgs))
	fmt.Fprintf(p.w, "  ffmpeg: %s\n", eff.FFmpeg)
	fmt.Fprintf(p.w, "  ffprobe: %s\n", eff.FFprobe)
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnMetadata(stage string, m domain.FrameMetadata) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch stage {
	case run.StageInspect:
		fmt.Fprintf(p.w, "%s:\n", m.Name)
	case run.StageSave:
		fmt.Fprintf(p.w, "保存 %s 为:\n", m.Name)
	case run.StageApply:
		fmt.Fprintf(p.w, "以 %.2ffps 应用壁纸:\n", rateValue(m.Playback()))
	}
	writeMetadata(p.w, stage, m)
	if stage == run.StageSave {
		fmt.Fprintln(p.w, "这可能需要一段时间...")
	}
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "probe":
		if p.verbose {
			fmt.Fprintf(p.w, "探测: (%s)\n", formatShortDuration(dur))
		}
	case "extract":
		fmt.Fprintf(p.w, "抽帧: frames=%d (%s)\n", intField(fields, "frames"), formatShortDuration(dur))
	case "cache":
		fmt.Fprintf(p.w, "缓存: frames=%d dir=%s (%s)\n",
			intField(fields, "frames"), stringField(fields, "dir"), formatShortDuration(dur),
		)
	case "play":
		fmt.Fprintf(p.w, "已停止: frames=%d elapsed=%s\n", intField(fields, "frames"), formatElapsed(dur))
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

// OnDetached 在 -d 的父进程交出播放后调用。
func (p *progressUI) OnDetached(pid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "已转入后台: pid=%d\n", pid)
}

// writeMetadata 按动作输出字段：-i 只有一个 fps，-a 额外输出播放帧率，-i 不输出格式。
func writeMetadata(w io.Writer, stage string, m domain.FrameMetadata) {
	fmt.Fprintf(w, "\twidth: %dpx\n", m.Width)
	fmt.Fprintf(w, "\theight: %dpx\n", m.Height)
	if stage == run.StageInspect {
		fmt.Fprintf(w, "\tfps: %.2ffps\n", rateValue(m.RenderFPS))
	} else {
		fmt.Fprintf(w, "\trender fps: %.2ffps\n", rateValue(m.RenderFPS))
	}
	if stage == run.StageApply {
		fmt.Fprintf(w, "\tplayback fps: %.2ffps\n", rateValue(m.Playback()))
	}
	if stage != run.StageInspect {
		fmt.Fprintf(w, "\tformat: %s\n", m.Format)
	}
	fmt.Fprintf(w, "\tduration: %.2fs\n", m.Duration)
}

func actionName(eff config.EffectiveConfig) string {
	switch {
	case eff.Inspect:
		return "inspect"
	case eff.Save && eff.Apply:
		return "save+apply"
	case eff.Save:
		return "save"
	default:
		return "apply"
	}
}

// rateValue 只用于展示：非法速率显示为 0。
func rateValue(s string) float64 {
	v, err := domain.ParseRate(s)
	if err != nil {
		return 0
	}
	return v
}

func orText(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func formatStringListJSON(xs []string) string {
	// json.Marshal(nil slice) => "null"；对用户更友好的是 "[]"
	if xs == nil {
		xs = []string{}
	}
	b, err := json.Marshal(xs)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}
