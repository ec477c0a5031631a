package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// 速率字符串：十进制数，或两个十进制数的比值（ffprobe 的 avg_frame_rate 形如 30000/1001）。
var rateRE = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?(/[0-9]+(\.[0-9]+)?)?$`)

// 帧间隔 1/rate 必须能用 time.Duration 表示，且不短于 1ns。
const (
	MinRate = 1e9 / math.MaxInt64
	MaxRate = 1e9
)

// ValidRate 只做语法校验，不关心数值是否为正。
func ValidRate(s string) bool {
	return rateRE.MatchString(strings.TrimSpace(s))
}

// ParseRate 把速率字符串转换为每秒帧数（必须在 (MinRate, MaxRate] 内）。
func ParseRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if !rateRE.MatchString(s) {
		return 0, fmt.Errorf("非法的帧率：%q", s)
	}

	num, den, isRatio := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("非法的帧率：%q", s)
	}
	if isRatio {
		d, err := strconv.ParseFloat(den, 64)
		if err != nil || d == 0 {
			return 0, fmt.Errorf("非法的帧率（分母为 0）：%q", s)
		}
		n /= d
	}
	if n <= 0 {
		return 0, fmt.Errorf("帧率必须大于 0：%q", s)
	}
	if n <= MinRate || n > MaxRate {
		return 0, fmt.Errorf("帧率超出范围：%q", s)
	}
	return n, nil
}
