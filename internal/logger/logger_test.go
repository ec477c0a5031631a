package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestLevelFromEnv(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := levelFromEnv(in); got != want {
			t.Fatalf("levelFromEnv(%q)=%v，期望 %v", in, got, want)
		}
	}
}

func TestSetVerboseAndOutput(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	SetVerbose(false)
	Debug("隐藏")
	if buf.Len() != 0 {
		t.Fatalf("info 级别下不应输出 debug：%q", buf.String())
	}

	SetVerbose(true)
	defer SetVerbose(false)
	Debug("可见", "k", 1)
	if !strings.Contains(buf.String(), "可见") || !strings.Contains(buf.String(), "k=1") {
		t.Fatalf("verbose 下应输出 debug：%q", buf.String())
	}
}

// lockedBuffer 允许多个 goroutine 同时写。
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSetOutputWhileLogging(t *testing.T) {
	var first, second lockedBuffer
	restore := SetOutput(&first)
	defer restore()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					Info("并发", "k", 1)
					WarnContext(context.Background(), "并发")
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		back := SetOutput(&second)
		SetVerbose(i%2 == 0)
		back()
	}
	close(stop)
	wg.Wait()
	SetVerbose(false)

	Info("结束")
	if !strings.Contains(first.String(), "结束") {
		t.Fatalf("恢复后应写回原输出：%q", first.String())
	}
	if L() == nil {
		t.Fatalf("L() 不应为 nil")
	}
}

func TestThrottle(t *testing.T) {
	now := time.Unix(0, 0)
	th := NewThrottle(time.Second, func() time.Time { return now })

	if ok, n := th.Allow(); !ok || n != 0 {
		t.Fatalf("首次应放行：ok=%v n=%d", ok, n)
	}
	for i := 0; i < 3; i++ {
		now = now.Add(100 * time.Millisecond)
		if ok, _ := th.Allow(); ok {
			t.Fatalf("间隔内不应放行（第 %d 次）", i)
		}
	}
	now = now.Add(time.Second)
	ok, n := th.Allow()
	if !ok || n != 3 {
		t.Fatalf("间隔后应放行并报告抑制数：ok=%v n=%d", ok, n)
	}
}
