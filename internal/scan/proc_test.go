package scan

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCountProcesses_MatchArgv0Only(t *testing.T) {
	root := t.TempDir()

	writeCmdline(t, root, "100", "/usr/local/bin/swiper\x00-a\x00")
	writeCmdline(t, root, "200", "swiper\x00")
	writeCmdline(t, root, "300", "vim\x00swiper.go\x00")
	writeCmdline(t, root, "400", "") // 内核线程：cmdline 为空
	writeCmdline(t, root, "self", "swiper\x00")
	if err := os.MkdirAll(filepath.Join(root, "500"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}

	n, err := CountProcesses(root, ProgramPattern("/opt/bin/swiper"))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if n != 2 {
		t.Fatalf("期望 2 个匹配进程，实际 %d", n)
	}
}

func TestProgramPattern(t *testing.T) {
	re := ProgramPattern("swiper")
	for _, s := range []string{"swiper", "./swiper", "/usr/bin/swiper"} {
		if !re.MatchString(s) {
			t.Fatalf("期望匹配 %q", s)
		}
	}
	for _, s := range []string{"swiper2", "oswiper", "swiper.sh"} {
		if re.MatchString(s) {
			t.Fatalf("不应匹配 %q", s)
		}
	}
}

func writeCmdline(t *testing.T, root, pid, cmdline string) {
	t.Helper()
	dir := filepath.Join(root, pid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "cmdline"), []byte(cmdline), 0o644); err != nil {
		t.Fatalf("写入 cmdline 失败：%v", err)
	}
}
