package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/John-Robertt/swiper/internal/logger"
)

// fakeClock 是只在 Sleep/advance 时前进的时钟。
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

type call struct {
	path string
	at   time.Duration // 相对开始时间
}

// recorder 记录每次显示；cost 决定每次显示消耗的假时间；达到 stopAfter 次时取消 ctx。
type recorder struct {
	clock     *fakeClock
	origin    time.Time
	cost      func(i int) time.Duration
	fail      func(i int) error
	stopAfter int
	cancel    context.CancelFunc
	calls     []call
}

func (r *recorder) Display(ctx context.Context, path string) error {
	i := len(r.calls)
	r.calls = append(r.calls, call{path: path, at: r.clock.now.Sub(r.origin)})
	if r.cost != nil {
		r.clock.now = r.clock.now.Add(r.cost(i))
	}
	if len(r.calls) >= r.stopAfter {
		r.cancel()
	}
	if r.fail != nil {
		return r.fail(i)
	}
	return nil
}

func setup(t *testing.T, stopAfter int) (*Scheduler, *recorder, context.Context) {
	t.Helper()
	restore := logger.SetOutput(io.Discard)
	t.Cleanup(restore)

	clock := newFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	rec := &recorder{clock: clock, origin: clock.now, stopAfter: stopAfter, cancel: cancel}
	return &Scheduler{Display: rec, Clock: clock}, rec, ctx
}

func names(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%04d.jpg", i+1)
	}
	return out
}

func TestPeriod(t *testing.T) {
	if got := Period(10); got != 100*time.Millisecond {
		t.Fatalf("Period(10)=%v", got)
	}
	if got := Period(29.97); got != 33366700*time.Nanosecond {
		t.Fatalf("Period(29.97)=%v", got)
	}
	// 间隔超出 time.Duration 或不足 1ns 时不能回绕成负数。
	for _, rate := range []float64{1e-10, 2e9, 0, -1} {
		if got := Period(rate); got != 0 {
			t.Fatalf("Period(%g)=%v，期望 0", rate, got)
		}
	}
}

func TestRun_Cadence(t *testing.T) {
	s, rec, ctx := setup(t, 6)
	if err := s.Run(ctx, names(5), "/frames", 10); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.calls) != 6 {
		t.Fatalf("显示次数不符合预期：%d", len(rec.calls))
	}
	// 5 帧一轮后第 6 次显示发生在 0.5s，并回到第一帧。
	if rec.calls[5].at != 500*time.Millisecond {
		t.Fatalf("第 6 次显示时间不符合预期：%v", rec.calls[5].at)
	}
	if rec.calls[5].path != "/frames/0001.jpg" {
		t.Fatalf("应回到第一帧：%s", rec.calls[5].path)
	}
}

func TestRun_LagDoesNotCompound(t *testing.T) {
	s, rec, ctx := setup(t, 5)
	clock := s.Clock.(*fakeClock)
	rec.cost = func(i int) time.Duration {
		switch i {
		case 1:
			return 150 * time.Millisecond // 超过 100ms 周期
		default:
			return 10 * time.Millisecond
		}
	}
	if err := s.Run(ctx, names(3), "/f", 10); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []time.Duration{90 * time.Millisecond, 90 * time.Millisecond, 90 * time.Millisecond, 90 * time.Millisecond}
	if len(clock.sleeps) < 3 {
		t.Fatalf("睡眠次数过少：%v", clock.sleeps)
	}
	for i, d := range clock.sleeps {
		if d != want[i] {
			t.Fatalf("第 %d 次睡眠=%v，期望 %v（全部：%v）", i, d, want[i], clock.sleeps)
		}
	}
	// 第 2 帧落后：第 3 帧紧接着开始，不睡眠。
	if got := rec.calls[2].at - rec.calls[1].at; got != 150*time.Millisecond {
		t.Fatalf("落后帧后应立即显示下一帧：间隔 %v", got)
	}
	// 之后的间隔恢复为完整周期，不被压缩。
	if got := rec.calls[3].at - rec.calls[2].at; got != 100*time.Millisecond {
		t.Fatalf("后续周期不应缩短：%v", got)
	}
}

func TestRun_HundredFramesAt25(t *testing.T) {
	s, rec, ctx := setup(t, 101)
	if err := s.Run(ctx, names(100), "/mnt/swiper/frames", 25); err != nil {
		t.Fatalf("Run: %v", err)
	}
	last := rec.calls[100]
	if last.at != 4*time.Second {
		t.Fatalf("第 101 次显示应在 4.0s：%v", last.at)
	}
	if last.path != "/mnt/swiper/frames/0001.jpg" {
		t.Fatalf("应回到 0001.jpg：%s", last.path)
	}
}

func TestRun_CancelBeforeStart(t *testing.T) {
	s, rec, ctx := setup(t, 1)
	rec.cancel()
	if err := s.Run(ctx, names(3), "/f", 10); err != nil {
		t.Fatalf("取消不应返回错误：%v", err)
	}
	if len(rec.calls) != 0 {
		t.Fatalf("已取消时不应显示：%d", len(rec.calls))
	}
}

func TestRun_CancelMidPassStopsPromptly(t *testing.T) {
	s, rec, ctx := setup(t, 2)
	if err := s.Run(ctx, names(10), "/f", 10); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.calls) != 2 {
		t.Fatalf("取消后不应再显示：%d", len(rec.calls))
	}
}

func TestRun_DisplayFailureDoesNotHalt(t *testing.T) {
	s, rec, ctx := setup(t, 7)
	rec.fail = func(i int) error {
		if i%2 == 0 {
			return errors.New("feh 不存在")
		}
		return nil
	}
	if err := s.Run(ctx, names(3), "/f", 10); err != nil {
		t.Fatalf("显示失败不应终止：%v", err)
	}
	if len(rec.calls) != 7 {
		t.Fatalf("显示次数不符合预期：%d", len(rec.calls))
	}
}

func TestRun_InvalidInput(t *testing.T) {
	s, _, ctx := setup(t, 1)
	if err := s.Run(ctx, nil, "/f", 10); !errors.Is(err, ErrNoFrames) {
		t.Fatalf("期望 ErrNoFrames：%v", err)
	}
	if err := s.Run(ctx, names(1), "/f", 0); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("期望 ErrInvalidRate：%v", err)
	}
}

func TestRun_UnrepresentablePeriodRejected(t *testing.T) {
	for _, rate := range []float64{1e-10, 2e9} {
		s, rec, ctx := setup(t, 5)
		if err := s.Run(ctx, names(3), "/f", rate); !errors.Is(err, ErrInvalidRate) {
			t.Fatalf("rate=%g 期望 ErrInvalidRate：%v", rate, err)
		}
		if len(rec.calls) != 0 {
			t.Fatalf("rate=%g 不应显示任何帧：%d", rate, len(rec.calls))
		}
	}
}

func TestRealClock_SleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	RealClock{}.Sleep(ctx, time.Hour)
	if time.Since(start) > time.Second {
		t.Fatalf("取消后 Sleep 应立即返回")
	}
}
