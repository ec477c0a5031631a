package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File 描述目录第一层的一个普通文件（只做 stat，不读内容）。
type File struct {
	Name string
	Size int64
}

// Options 控制 Files 的过滤规则。
type Options struct {
	// IncludeHidden 为 true 时包含以 '.' 开头的文件（例如 .metadata）。
	IncludeHidden bool
	// Ext 非空时只保留该扩展名（不含 '.'，大小写敏感，与 ffmpeg 输出一致）。
	Ext string
}

// Files 扫描 dir 第一层的普通文件。
//
// 规则（硬约束）：
// - 不递归：子目录直接跳过
// - 符号链接/设备/管道等非普通文件一律跳过
// - 结果按文件名排序，保证稳定
func Files(dir string, opt Options) ([]File, error) {
	entries, err := os.ReadDir(filepath.Clean(dir))
	if err != nil {
		return nil, err
	}

	out := make([]File, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !opt.IncludeHidden && strings.HasPrefix(name, ".") {
			continue
		}
		// DirEntry.Type 来自 readdir 的 d_type，不跟随符号链接。
		if !e.Type().IsRegular() {
			continue
		}
		if opt.Ext != "" && filepath.Ext(name) != "."+opt.Ext {
			continue
		}

		info, err := e.Info()
		if err != nil {
			if os.IsNotExist(err) {
				// 扫描期间被删除：视为不存在。
				continue
			}
			return nil, err
		}
		out = append(out, File{Name: name, Size: info.Size()})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CountVisible 统计第一层、非隐藏的普通文件数量。
func CountVisible(dir string) (int, error) {
	files, err := Files(dir, Options{})
	if err != nil {
		return 0, err
	}
	return len(files), nil
}

// IsEmpty 判断目录第一层是否没有任何可见普通文件。
// 目录不存在也视为空。
func IsEmpty(dir string) (bool, error) {
	n, err := CountVisible(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return n == 0, nil
}

// Size 计算第一层普通文件的总字节数（包含隐藏文件：它们同样会被复制进 cache）。
func Size(dir string) (int64, error) {
	files, err := Files(dir, Options{IncludeHidden: true})
	if err != nil {
		return 0, err
	}
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total, nil
}
