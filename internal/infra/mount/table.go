// Package mount 封装挂载表读取与 tmpfs 挂载/卸载（需要 root）。
package mount

import (
	"path/filepath"

	"github.com/moby/sys/mountinfo"
)

// DefaultTable 是当前进程视角的挂载表。
const DefaultTable = "/proc/self/mountinfo"

// Entry 是挂载表中的一项。
type Entry struct {
	Source  string
	Dir     string
	FSType  string
	Options string
}

// fromInfos 把 mountinfo 的条目转换为 Entry。
// Options 为挂载点选项，后接超级块选项（tmpfs 的 size/mode 在这里）。
func fromInfos(infos []*mountinfo.Info) []Entry {
	out := make([]Entry, 0, len(infos))
	for _, in := range infos {
		opts := in.Options
		if in.VFSOptions != "" {
			if opts != "" {
				opts += ","
			}
			opts += in.VFSOptions
		}
		out = append(out, Entry{
			Source:  in.Source,
			Dir:     in.Mountpoint,
			FSType:  in.FSType,
			Options: opts,
		})
	}
	return out
}

// At 返回挂载点恰为 dir 的所有条目（按表中顺序；同一目录可能被叠加挂载多次）。
func At(entries []Entry, dir string) []Entry {
	want := Canonical(dir)
	var out []Entry
	for _, e := range entries {
		if filepath.Clean(e.Dir) == want {
			out = append(out, e)
		}
	}
	return out
}

// Canonical 返回用于与挂载表比较的路径：绝对路径、Clean、尽量解析符号链接。
func Canonical(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}
	return filepath.Clean(dir)
}
