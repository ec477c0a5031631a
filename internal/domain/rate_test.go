package domain

import (
	"errors"
	"math"
	"testing"
)

func TestParseRate(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"30", 30, true},
		{"29.97", 29.97, true},
		{"442/10", 44.2, true},
		{"30000/1001", 30000.0 / 1001.0, true},
		{" 25 ", 25, true},
		{"0/0", 0, false},
		{"0", 0, false},
		{"1/0", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"-5", 0, false},
		{"30/", 0, false},
		{"0.001", 0.001, true},
		{"1000000000", 1e9, true},
		{"0.0000000001", 0, false},
		{"1/10000000000", 0, false},
		{"1000000001", 0, false},
	}
	for _, c := range cases {
		got, err := ParseRate(c.in)
		if c.ok != (err == nil) {
			t.Fatalf("ParseRate(%q) err=%v，期望 ok=%v", c.in, err, c.ok)
		}
		if c.ok && math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("ParseRate(%q)=%v，期望 %v", c.in, got, c.want)
		}
	}
}

func TestValidRate_SyntaxOnly(t *testing.T) {
	if !ValidRate("0/0") {
		t.Fatalf("0/0 语法合法，只是数值非法")
	}
	if ValidRate("30fps") {
		t.Fatalf("30fps 不应通过语法校验")
	}
}

func TestExpectedFrames(t *testing.T) {
	md := NewFrameMetadata()
	md.RenderFPS = "442/10"
	md.Duration = 10

	if got := ExpectedFrames(md); got != 442 {
		t.Fatalf("期望 442，实际 %d", got)
	}

	md.Duration = 0
	if got := ExpectedFrames(md); got != 1 {
		t.Fatalf("时长为 0 时期望至少 1，实际 %d", got)
	}

	md.RenderFPS = "bad"
	if got := ExpectedFrames(md); got != 1 {
		t.Fatalf("非法帧率时期望 1，实际 %d", got)
	}
}

func TestFrameName(t *testing.T) {
	if got := FrameName(1, FormatJPG); got != "0001.jpg" {
		t.Fatalf("实际 %q", got)
	}
	if got := FrameName(10000, FormatPNG); got != "10000.png" {
		t.Fatalf("实际 %q", got)
	}
}

func TestMetadata_PlaybackDefaultsToRender(t *testing.T) {
	md := NewFrameMetadata()
	md.RenderFPS = "24"
	if md.Playback() != "24" {
		t.Fatalf("期望回退到 render fps，实际 %q", md.Playback())
	}
	md.PlaybackFPS = "12"
	if md.Playback() != "12" {
		t.Fatalf("期望 playback fps，实际 %q", md.Playback())
	}
}

func TestErrorCode(t *testing.T) {
	base := errors.New("boom")
	err := Resource("mount", "/mnt/swiper", base)
	if Code(err) != ErrCodeResource {
		t.Fatalf("期望 %q，实际 %q", ErrCodeResource, Code(err))
	}
	if !errors.Is(err, base) {
		t.Fatalf("Unwrap 应保留原始错误")
	}
	if Code(base) != "" {
		t.Fatalf("非 *Error 应返回空串")
	}
}
