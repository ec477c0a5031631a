//go:build linux

package mount

import (
	"io"
	"os"

	"github.com/moby/sys/mountinfo"
)

// ParseTable 解析 /proc/<pid>/mountinfo 格式；字段与转义由 mountinfo 处理。
func ParseTable(r io.Reader) ([]Entry, error) {
	infos, err := mountinfo.GetMountsFromReader(r, nil)
	if err != nil {
		return nil, err
	}
	return fromInfos(infos), nil
}

// ReadTable 读取并解析 path（通常为 DefaultTable）。
func ReadTable(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTable(f)
}
