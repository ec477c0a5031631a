package scan

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

// DefaultProcRoot 是 Linux 的进程表挂载点。
const DefaultProcRoot = "/proc"

// CountProcesses 统计 argv[0] 匹配 re 的进程数量（包含调用者自身）。
//
// 读不到 cmdline 的条目（进程已退出/无权限/内核线程）直接跳过：
// 该统计只用于“重复实例”提示，宁可少报，不要因竞态而失败。
func CountProcesses(procRoot string, re *regexp.Regexp) (int, error) {
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := strconv.Atoi(e.Name()); err != nil {
			continue
		}

		b, err := os.ReadFile(filepath.Join(procRoot, e.Name(), "cmdline"))
		if err != nil || len(b) == 0 {
			continue
		}

		// cmdline 以 NUL 分隔参数；只取 argv[0]。
		argv0 := b
		if i := bytes.IndexByte(b, 0); i >= 0 {
			argv0 = b[:i]
		}
		if re.Match(argv0) {
			n++
		}
	}
	return n, nil
}

// ProgramPattern 返回匹配“同名程序”的正则：argv[0] 的 basename 等于 name。
func ProgramPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`^(.*/)?` + regexp.QuoteMeta(filepath.Base(name)) + `$`)
}
