// Package scheduler 以固定帧率循环显示帧序列，并补偿显示耗时带来的漂移。
package scheduler

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"time"

	"github.com/John-Robertt/swiper/internal/logger"
)

// Clock 抽象时间源；测试使用假时钟。
type Clock interface {
	Now() time.Time
	// Sleep 阻塞 d；ctx 取消时提前返回。
	Sleep(ctx context.Context, d time.Duration)
}

// Displayer 把一帧设为当前壁纸。
type Displayer interface {
	Display(ctx context.Context, path string) error
}

// DisplayFunc 把普通函数适配为 Displayer。
type DisplayFunc func(ctx context.Context, path string) error

func (f DisplayFunc) Display(ctx context.Context, path string) error { return f(ctx, path) }

// RealClock 使用系统时钟。
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

var (
	ErrNoFrames    = errors.New("scheduler: 帧序列为空")
	ErrInvalidRate = errors.New("scheduler: 帧率必须大于 0，且帧间隔在 1ns 与 time.Duration 上限之间")
)

// Period 返回帧率 rate 对应的帧间隔（纳秒精度）。
// 间隔超出 time.Duration 的范围或不足 1ns 时返回 0。
func Period(rate float64) time.Duration {
	ns := float64(time.Second) / rate
	if !(ns >= 1) || ns >= math.MaxInt64 {
		return 0
	}
	return time.Duration(ns)
}

// Scheduler 是帧调度器。
type Scheduler struct {
	Display Displayer
	Clock   Clock

	// WarnInterval 是显示失败日志的最小间隔；<= 0 时使用 5s。
	WarnInterval time.Duration
}

// Run 无限循环显示 frames（相对 root 的文件名），直到 ctx 被取消。
//
// 每帧：记录开始时间 -> 显示 -> 计算剩余时间 = 周期 - 耗时；
// 剩余 <= 0 时不睡眠直接进入下一帧（落后的帧不会让后续周期变短）。
//
// 取消只在每轮开始和每次显示前检查；正在进行的显示不会被打断。
// 取消不是错误：返回 nil。
func (s *Scheduler) Run(ctx context.Context, frames []string, root string, rate float64) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	period := Period(rate)
	if !(rate > 0) || period <= 0 {
		return ErrInvalidRate
	}
	if s.Display == nil {
		return errors.New("scheduler: Display 未设置")
	}
	clock := s.Clock
	if clock == nil {
		clock = RealClock{}
	}
	interval := s.WarnInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	throttle := logger.NewThrottle(interval, clock.Now)

	paths := make([]string, len(frames))
	for i, f := range frames {
		paths[i] = filepath.Join(root, f)
	}

	logger.Debug("开始播放", "frames", len(frames), "rate", rate, "period", period)

	for {
		if ctx.Err() != nil {
			return nil
		}
		for _, p := range paths {
			if ctx.Err() != nil {
				return nil
			}

			start := clock.Now()
			if err := s.Display.Display(ctx, p); err != nil {
				if ok, suppressed := throttle.Allow(); ok {
					logger.WarnContext(ctx, "显示帧失败", "path", p, "err", err, "suppressed", suppressed)
				}
			}
			remaining := period - clock.Now().Sub(start)
			if remaining <= 0 {
				continue
			}
			clock.Sleep(ctx, remaining)
		}
	}
}
