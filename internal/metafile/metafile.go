// Package metafile 读写保存目录下的 .metadata 记录。
//
// 格式为单行、空格分隔：
//
//	<name> <rfps> <width> <height> <duration %.4f> <format>
//
// name 经过 url.PathEscape，因此可以包含空格；rfps 保留原始速率字符串（例如 30000/1001）。
package metafile

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/John-Robertt/swiper/internal/domain"
	"github.com/John-Robertt/swiper/internal/infra/fsx"
)

// Name 是元数据文件名；以 '.' 开头，不参与帧枚举。
const Name = ".metadata"

// ErrNotFound 表示保存目录下没有元数据文件（尚未 save 过）。
var ErrNotFound = errors.New("metafile: 元数据不存在")

// Encode 把元数据编码为单行记录（不含 PlaybackFPS：播放速率只在运行时指定）。
func Encode(m domain.FrameMetadata) ([]byte, error) {
	name := strings.TrimSpace(m.Name)
	if name == "" {
		return nil, errors.New("metafile: name 为空")
	}
	if !domain.ValidRate(m.RenderFPS) {
		return nil, fmt.Errorf("metafile: 非法的渲染帧率 %q", m.RenderFPS)
	}
	if m.Width <= 0 || m.Height <= 0 {
		return nil, fmt.Errorf("metafile: 宽高无效 %dx%d", m.Width, m.Height)
	}
	if !domain.ValidFormat(m.Format) {
		return nil, fmt.Errorf("metafile: 非法的格式 %q", m.Format)
	}

	line := fmt.Sprintf("%s %s %d %d %.4f %s",
		url.PathEscape(name), m.RenderFPS, m.Width, m.Height, m.Duration, m.Format)
	return []byte(line), nil
}

// Decode 解析单行记录。容忍结尾换行；字段数不对或任一字段非法都返回错误。
func Decode(b []byte) (domain.FrameMetadata, error) {
	fields := strings.Fields(string(b))
	if len(fields) != 6 {
		return domain.FrameMetadata{}, fmt.Errorf("metafile: 字段数应为 6，实际 %d", len(fields))
	}

	m := domain.NewFrameMetadata()
	name, err := url.PathUnescape(fields[0])
	if err != nil {
		return domain.FrameMetadata{}, fmt.Errorf("metafile: name 解码失败：%w", err)
	}
	m.Name = name

	if !domain.ValidRate(fields[1]) {
		return domain.FrameMetadata{}, fmt.Errorf("metafile: 非法的渲染帧率 %q", fields[1])
	}
	m.RenderFPS = fields[1]

	if m.Width, err = positiveInt(fields[2]); err != nil {
		return domain.FrameMetadata{}, fmt.Errorf("metafile: width：%w", err)
	}
	if m.Height, err = positiveInt(fields[3]); err != nil {
		return domain.FrameMetadata{}, fmt.Errorf("metafile: height：%w", err)
	}
	if m.Duration, err = strconv.ParseFloat(fields[4], 64); err != nil {
		return domain.FrameMetadata{}, fmt.Errorf("metafile: duration：%w", err)
	}
	if !domain.ValidFormat(fields[5]) {
		return domain.FrameMetadata{}, fmt.Errorf("metafile: 非法的格式 %q", fields[5])
	}
	m.Format = fields[5]
	return m, nil
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("必须大于 0：%d", n)
	}
	return n, nil
}

// Write 原子写入 dir/.metadata。
func Write(dir string, m domain.FrameMetadata) error {
	b, err := Encode(m)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(dir, Name, b)
}

// Read 读取 dir/.metadata。文件不存在时返回 ErrNotFound。
func Read(dir string) (domain.FrameMetadata, error) {
	b, err := os.ReadFile(filepath.Join(dir, Name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.FrameMetadata{}, ErrNotFound
		}
		return domain.FrameMetadata{}, err
	}
	return Decode(b)
}
