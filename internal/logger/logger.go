// Package logger 是基于 log/slog 的全局结构化日志。
//
// 日志统一写到 stderr（文本格式）；面向用户的输出（元数据摘要、进度条）不走这里。
// 级别由环境变量 LOG_LEVEL（debug/info/warn/error）决定，命令行 --verbose 可覆盖为 debug。
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// current 是全局 logger；SetLevel/SetOutput 整体替换它，读取方不加锁。
var current atomic.Pointer[slog.Logger]

var (
	// mu 保护 out 与 level 的修改。
	mu    sync.Mutex
	out   io.Writer = os.Stderr
	level slog.Level
)

func init() {
	level = levelFromEnv(os.Getenv("LOG_LEVEL"))
	rebuild()
}

func levelFromEnv(v string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func rebuild() {
	current.Store(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
}

// L 返回当前的全局 logger。
func L() *slog.Logger { return current.Load() }

// SetLevel 替换全局 logger 的级别。
func SetLevel(l slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
	rebuild()
}

// SetVerbose：true => debug，false => info。
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
		return
	}
	SetLevel(slog.LevelInfo)
}

// SetOutput 替换日志输出（测试用）。返回恢复函数。
func SetOutput(w io.Writer) (restore func()) {
	mu.Lock()
	defer mu.Unlock()
	prev := out
	out = w
	rebuild()
	return func() {
		mu.Lock()
		defer mu.Unlock()
		out = prev
		rebuild()
	}
}

func Debug(msg string, args ...any) { L().Debug(msg, args...) }
func Info(msg string, args ...any)  { L().Info(msg, args...) }
func Warn(msg string, args ...any)  { L().Warn(msg, args...) }
func Error(msg string, args ...any) { L().Error(msg, args...) }

func DebugContext(ctx context.Context, msg string, args ...any) {
	L().DebugContext(ctx, msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	L().WarnContext(ctx, msg, args...)
}

// Throttle 限制同一类日志的输出频率：interval 内只放行一次，其余计入 suppressed。
//
// 用于逐帧失败这类可能每秒出现几十次的日志。零值不可用，使用 NewThrottle。
type Throttle struct {
	lim *rate.Limiter
	now func() time.Time

	mu         sync.Mutex
	suppressed int
}

// NewThrottle 的 now 用于注入假时钟；nil 时使用 time.Now。interval <= 0 表示不限流。
func NewThrottle(interval time.Duration, now func() time.Time) *Throttle {
	if now == nil {
		now = time.Now
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Throttle{lim: rate.NewLimiter(limit, 1), now: now}
}

// Allow 返回是否放行本次日志，以及自上次放行以来被抑制的条数。
func (t *Throttle) Allow() (ok bool, suppressed int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.lim.AllowN(t.now(), 1) {
		t.suppressed++
		return false, 0
	}
	suppressed = t.suppressed
	t.suppressed = 0
	return true, suppressed
}
