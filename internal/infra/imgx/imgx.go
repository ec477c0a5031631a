package imgx

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // 注册 JPEG 解码器
	_ "image/png"  // 注册 PNG 解码器
	"os"

	_ "golang.org/x/image/bmp" // 以下只用于识别误放的帧，报告真实格式
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// FrameInfo 是单帧图片头部信息。
type FrameInfo struct {
	Format string // jpg | png | 其他解码器注册的格式名
	Width  int
	Height int
}

// ProbeFrame 只解码图片头部（不解码像素），返回格式与尺寸。
//
// 约束：
// - 帧只会是 JPEG/PNG；其他可识别格式（bmp/tiff/webp）原样返回，由调用方判定不一致
// - 格式名 "jpeg" 归一为 "jpg"
// - 尺寸 <= 0 视为损坏
func ProbeFrame(path string) (FrameInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return FrameInfo{}, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return FrameInfo{}, fmt.Errorf("解码图片头失败：%w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return FrameInfo{}, errors.New("图片尺寸无效")
	}
	if format == "jpeg" {
		format = "jpg"
	}
	return FrameInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}
