// Package run 编排三个动作：查看（inspect）、保存（save）、应用（apply）。
package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/John-Robertt/swiper/internal/config"
	"github.com/John-Robertt/swiper/internal/domain"
	"github.com/John-Robertt/swiper/internal/framestore"
	"github.com/John-Robertt/swiper/internal/infra/cache"
	"github.com/John-Robertt/swiper/internal/infra/fsx"
	"github.com/John-Robertt/swiper/internal/infra/imgx"
	"github.com/John-Robertt/swiper/internal/infra/mount"
	"github.com/John-Robertt/swiper/internal/logger"
	"github.com/John-Robertt/swiper/internal/metafile"
	"github.com/John-Robertt/swiper/internal/scan"
	"github.com/John-Robertt/swiper/internal/scheduler"
)

// Prober 补齐视频元数据（见 media.Prober）。
type Prober interface {
	Probe(ctx context.Context, video string, m domain.FrameMetadata) (domain.FrameMetadata, error)
}

// Extractor 把视频抽成帧序列，并把进度写到 w（见 media.Extractor）。
type Extractor interface {
	Extract(ctx context.Context, m domain.FrameMetadata, video, dir string, w io.Writer) error
}

// Deps 是执行流程依赖的外部能力；CLI 注入真实实现，测试注入假实现。
type Deps struct {
	Prober    Prober
	Extractor Extractor
	Display   scheduler.Displayer
	Clock     scheduler.Clock
	Mounts    mount.System

	// Settle 等待仍在运行的显示进程退出；卸载 tmpfs 前调用。nil 表示不等待。
	Settle func()

	// Progress 接收抽帧进度条与缓存复制进度；nil 表示不展示。
	Progress io.Writer
	// BarWidth 是缓存复制进度条的宽度；<= 0 时使用默认值。
	BarWidth int
}

// Wallpaper 是一份已校验、可直接播放的壁纸。
type Wallpaper struct {
	Meta  domain.FrameMetadata
	Store domain.FrameStore
	Rate  float64 // 播放帧率
}

// Inspect 探测视频的原始元数据（忽略 -r/-w/-h/-P）。
func Inspect(ctx context.Context, eff config.EffectiveConfig, deps Deps, obs Observer) (domain.FrameMetadata, error) {
	obs = orNop(obs)
	obs.OnStart(eff)

	if err := checkVideo(eff.Video); err != nil {
		return domain.FrameMetadata{}, err
	}
	started := time.Now()
	m, err := deps.Prober.Probe(ctx, eff.Video, domain.NewFrameMetadata())
	if err != nil {
		return domain.FrameMetadata{}, err
	}
	obs.OnPhaseDone("probe", nil, time.Since(started))
	obs.OnMetadata(StageInspect, m)
	return m, nil
}

// Save 探测元数据、清空保存目录、写入 .metadata，然后抽帧。
//
// 抽帧结束后校验帧序列命名与首帧格式；任何不一致都是致命错误。
func Save(ctx context.Context, eff config.EffectiveConfig, deps Deps, obs Observer) (domain.FrameMetadata, error) {
	obs = orNop(obs)
	obs.OnStart(eff)

	if err := checkVideo(eff.Video); err != nil {
		return domain.FrameMetadata{}, err
	}

	started := time.Now()
	m, err := deps.Prober.Probe(ctx, eff.Video, eff.Meta)
	if err != nil {
		return domain.FrameMetadata{}, err
	}
	m.PlaybackFPS = ""
	obs.OnPhaseDone("probe", nil, time.Since(started))

	if err := fsx.EnsureDir(eff.SaveDir, 0o700); err != nil {
		return domain.FrameMetadata{}, domain.Resource("mkdir", eff.SaveDir, err)
	}
	if err := fsx.ClearDir(eff.SaveDir); err != nil {
		return domain.FrameMetadata{}, domain.Resource("clear", eff.SaveDir, err)
	}
	if err := metafile.Write(eff.SaveDir, m); err != nil {
		return domain.FrameMetadata{}, domain.Resource("write metadata", filepath.Join(eff.SaveDir, metafile.Name), err)
	}
	obs.OnMetadata(StageSave, m)

	started = time.Now()
	if err := deps.Extractor.Extract(ctx, m, eff.Video, eff.SaveDir, deps.Progress); err != nil {
		return domain.FrameMetadata{}, err
	}

	store, err := framestore.Load(eff.SaveDir, m.Format)
	if err != nil {
		return domain.FrameMetadata{}, err
	}
	if err := checkFirstFrame(store, m); err != nil {
		return domain.FrameMetadata{}, err
	}
	obs.OnPhaseDone("extract", map[string]any{"frames": store.Len()}, time.Since(started))
	return m, nil
}

// LoadWallpaper 读取已保存的壁纸：检查非空、读取 .metadata、枚举帧、校验首帧。
// 不挂载、不播放；-d 的父进程用它在脱离终端前报告问题。
func LoadWallpaper(eff config.EffectiveConfig) (Wallpaper, error) {
	empty, err := scan.IsEmpty(eff.SaveDir)
	if err != nil {
		return Wallpaper{}, domain.Resource("scan", eff.SaveDir, err)
	}
	if empty {
		return Wallpaper{}, domain.Precondition("apply", errors.New("没有已保存的壁纸，请先使用 -s <视频文件>"))
	}

	m, err := metafile.Read(eff.SaveDir)
	if err != nil {
		if errors.Is(err, metafile.ErrNotFound) {
			return Wallpaper{}, domain.Precondition("apply", fmt.Errorf("%s 缺少 %s，请重新保存", eff.SaveDir, metafile.Name))
		}
		return Wallpaper{}, domain.Resource("read metadata", filepath.Join(eff.SaveDir, metafile.Name), err)
	}
	if eff.Meta.PlaybackFPS != "" {
		m.PlaybackFPS = eff.Meta.PlaybackFPS
	}
	rate, err := domain.ParseRate(m.Playback())
	if err != nil {
		return Wallpaper{}, domain.Precondition("apply", err)
	}

	store, err := framestore.Load(eff.SaveDir, m.Format)
	if err != nil {
		return Wallpaper{}, err
	}
	if err := checkFirstFrame(store, m); err != nil {
		return Wallpaper{}, err
	}
	return Wallpaper{Meta: m, Store: store, Rate: rate}, nil
}

// Apply 播放已保存的壁纸，直到 ctx 被取消。-c 时先把帧迁移到 tmpfs，退出时卸载。
// 取消不是错误：正常返回 nil。
func Apply(ctx context.Context, eff config.EffectiveConfig, deps Deps, obs Observer) (err error) {
	obs = orNop(obs)
	obs.OnStart(eff)

	w, err := LoadWallpaper(eff)
	if err != nil {
		return err
	}
	obs.OnMetadata(StageApply, w.Meta)

	store := w.Store
	if eff.Cache {
		started := time.Now()
		tier := &cache.Tier{Sys: deps.Mounts, Progress: deps.Progress, BarWidth: deps.BarWidth}
		var mnt *cache.Mount
		store, mnt, err = tier.Relocate(ctx, store, eff.CacheSize, eff.MountPoint)
		if err != nil {
			return err
		}
		defer func() {
			// 显示进程可能还打开着缓存里的帧，先等它们退出，否则卸载会 EBUSY。
			if deps.Settle != nil {
				deps.Settle()
			}
			if rerr := mnt.Release(); rerr != nil {
				logger.Warn("卸载 tmpfs 失败", "dir", mnt.Dir, "err", rerr)
				if err == nil {
					err = rerr
				}
			}
		}()
		obs.OnPhaseDone("cache", map[string]any{"frames": store.Len(), "dir": store.Root}, time.Since(started))
	}

	s := &scheduler.Scheduler{Display: deps.Display, Clock: deps.Clock}
	started := time.Now()
	if err := s.Run(ctx, store.Names, store.Root, w.Rate); err != nil {
		return err
	}
	obs.OnPhaseDone("play", map[string]any{"frames": store.Len()}, time.Since(started))
	return nil
}

func checkVideo(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Precondition("open video", fmt.Errorf("文件不存在：%q", path))
		}
		return domain.Resource("open video", path, err)
	}
	if fi.IsDir() {
		return domain.Precondition("open video", fmt.Errorf("不是文件：%q", path))
	}
	return nil
}

// checkFirstFrame 只解码首帧头部：格式必须与元数据一致。
func checkFirstFrame(store domain.FrameStore, m domain.FrameMetadata) error {
	if store.Len() == 0 {
		return nil
	}
	p := filepath.Join(store.Root, store.Names[0])
	info, err := imgx.ProbeFrame(p)
	if err != nil {
		return domain.Consistency("probe frame", p, err)
	}
	if info.Format != m.Format {
		return domain.Consistency("probe frame", p, fmt.Errorf("帧格式为 %s，元数据记录为 %s", info.Format, m.Format))
	}
	if info.Width != m.Width || info.Height != m.Height {
		logger.Debug("帧尺寸与元数据不一致", "frame", fmt.Sprintf("%dx%d", info.Width, info.Height),
			"meta", fmt.Sprintf("%dx%d", m.Width, m.Height))
	}
	return nil
}
