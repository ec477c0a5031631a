package config

import (
	"errors"
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/swiper/internal/domain"
)

func TestValidate_Rules(t *testing.T) {
	cases := []struct {
		name string
		cli  CLIArgs
		code string
	}{
		{"无动作", CLIArgs{}, ErrCodeMissingAction},
		{"只有 -f", CLIArgs{Force: true}, ErrCodeMissingAction},
		{"-i 与 -s", CLIArgs{Inspect: "a.mp4", Save: "a.mp4"}, ErrCodeConflict},
		{"-i 与 -a", CLIArgs{Inspect: "a.mp4", Apply: true}, ErrCodeConflict},
		{"-r 无 -s", CLIArgs{Apply: true, RenderFPS: "30", RenderFPSSet: true}, ErrCodeConflict},
		{"-w 无 -s", CLIArgs{Apply: true, Width: 10, WidthSet: true}, ErrCodeConflict},
		{"-h 无 -s", CLIArgs{Apply: true, Height: 10, HeightSet: true}, ErrCodeConflict},
		{"-P 无 -s", CLIArgs{Inspect: "a.mp4", PNG: true}, ErrCodeConflict},
		{"-c 无 -a", CLIArgs{Save: "a.mp4", Cache: true}, ErrCodeConflict},
		{"-d 无 -a", CLIArgs{Save: "a.mp4", Daemon: true}, ErrCodeConflict},
		{"-p 无 -a", CLIArgs{Save: "a.mp4", PlaybackFPS: "10", PlaybackFPSSet: true}, ErrCodeConflict},
		{"-r 格式", CLIArgs{Save: "a.mp4", RenderFPS: "fast", RenderFPSSet: true}, ErrCodeInvalid},
		{"-p 为 0", CLIArgs{Apply: true, PlaybackFPS: "0", PlaybackFPSSet: true}, ErrCodeInvalid},
		{"-p 过小", CLIArgs{Apply: true, PlaybackFPS: "0.0000000001", PlaybackFPSSet: true}, ErrCodeInvalid},
		{"-w 为负", CLIArgs{Save: "a.mp4", Width: -2, WidthSet: true}, ErrCodeInvalid},
		{"-h 为 0", CLIArgs{Save: "a.mp4", Height: 0, HeightSet: true}, ErrCodeInvalid},
		{"-i 单独", CLIArgs{Inspect: "a.mp4"}, ""},
		{"-s 与 -a 组合", CLIArgs{Save: "a.mp4", RenderFPS: "442/10", RenderFPSSet: true, PNG: true, Apply: true, Daemon: true, PlaybackFPS: "30", PlaybackFPSSet: true}, ""},
		{"-adc", CLIArgs{Apply: true, Daemon: true, Cache: true}, ""},
	}
	for _, tc := range cases {
		err := Validate(tc.cli)
		if Code(err) != tc.code {
			t.Fatalf("%s：期望 code=%q，实际 err=%v", tc.name, tc.code, err)
		}
		if tc.code == "" && err != nil {
			t.Fatalf("%s：不期望错误：%v", tc.name, err)
		}
	}
}

func TestLoadEffective_Defaults(t *testing.T) {
	home := t.TempDir()
	cwd := t.TempDir()

	eff, err := LoadEffective(home, cwd, CLIArgs{Save: "clip.mp4", Width: 1280, WidthSet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.SaveDir != filepath.Join(home, SaveDirName) {
		t.Fatalf("save_dir 默认值不符合预期：%q", eff.SaveDir)
	}
	if eff.Video != filepath.Join(cwd, "clip.mp4") {
		t.Fatalf("视频路径应相对 cwd 解析：%q", eff.Video)
	}
	if eff.MountPoint != DefaultMountPoint || eff.CacheSize != DefaultCacheSize || eff.BarUnits != DefaultBarUnits {
		t.Fatalf("默认值不符合预期：%+v", eff)
	}
	if eff.DisplayCmd != "feh" || len(eff.DisplayArgs) != 1 || eff.DisplayArgs[0] != "--bg-scale" {
		t.Fatalf("显示命令默认值不符合预期：%q %v", eff.DisplayCmd, eff.DisplayArgs)
	}
	if eff.Meta.Width != 1280 || eff.Meta.Height != domain.Unset || eff.Meta.Format != domain.FormatJPG {
		t.Fatalf("元数据不符合预期：%+v", eff.Meta)
	}
	if eff.ConfigPath != "" {
		t.Fatalf("配置文件不存在时 ConfigPath 应为空：%q", eff.ConfigPath)
	}
}

func TestLoadEffective_FileOverrides(t *testing.T) {
	home := t.TempDir()
	cfg := DefaultPath(home)
	writeFile(t, cfg, []byte(`{
		"save_dir": "walls",
		"mount_point": "/mnt/live",
		"cache_size": 2000000000,
		"bar_units": 40,
		"display_cmd": "xwallpaper",
		"display_args": ["--zoom"],
		"ffmpeg": "/opt/ffmpeg/bin/ffmpeg"
	}`))

	eff, err := LoadEffective(home, home, CLIArgs{Apply: true, Cache: true, PlaybackFPS: "12", PlaybackFPSSet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigPath != cfg {
		t.Fatalf("ConfigPath 不符合预期：%q", eff.ConfigPath)
	}
	if eff.SaveDir != filepath.Join(home, "walls") || eff.MountPoint != "/mnt/live" || eff.CacheSize != 2_000_000_000 || eff.BarUnits != 40 {
		t.Fatalf("配置文件覆盖失败：%+v", eff)
	}
	if eff.DisplayCmd != "xwallpaper" || len(eff.DisplayArgs) != 1 || eff.DisplayArgs[0] != "--zoom" {
		t.Fatalf("显示命令覆盖失败：%q %v", eff.DisplayCmd, eff.DisplayArgs)
	}
	if eff.FFmpeg != "/opt/ffmpeg/bin/ffmpeg" || eff.FFprobe != "ffprobe" {
		t.Fatalf("工具路径不符合预期：%q %q", eff.FFmpeg, eff.FFprobe)
	}
	if eff.Meta.Playback() != "12" || !eff.Cache {
		t.Fatalf("CLI 参数丢失：%+v", eff)
	}
}

func TestLoadEffective_DisplayCmdWithoutArgs(t *testing.T) {
	home := t.TempDir()
	writeFile(t, DefaultPath(home), []byte(`{"display_cmd":"swaybg-once"}`))
	eff, err := LoadEffective(home, home, CLIArgs{Apply: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(eff.DisplayArgs) != 0 {
		t.Fatalf("换了命令时不应沿用 feh 参数：%v", eff.DisplayArgs)
	}
}

func TestLoadEffective_InvalidFile(t *testing.T) {
	cases := map[string]string{
		"json":        `{`,
		"cache_size":  `{"cache_size": -1}`,
		"bar_units":   `{"bar_units": 1000}`,
		"mount_point": `{"mount_point": "relative/dir"}`,
		"root":        `{"mount_point": "/"}`,
	}
	for name, body := range cases {
		home := t.TempDir()
		writeFile(t, DefaultPath(home), []byte(body))
		_, err := LoadEffective(home, home, CLIArgs{Apply: true})
		if Code(err) != ErrCodeInvalid {
			t.Fatalf("%s：期望 %q，实际 err=%v", name, ErrCodeInvalid, err)
		}
	}
}

func TestLoadEffective_ExplicitConfigMustExist(t *testing.T) {
	home := t.TempDir()
	_, err := LoadEffective(home, home, CLIArgs{Apply: true, ConfigPath: "missing.json"})
	if Code(err) != ErrCodeInvalid || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("显式指定的配置文件不存在应报错：%v", err)
	}

	writeFile(t, filepath.Join(home, "alt.json"), []byte(`{"bar_units": 10}`))
	eff, err := LoadEffective(home, home, CLIArgs{Apply: true, ConfigPath: "alt.json"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.BarUnits != 10 {
		t.Fatalf("显式配置未生效：%d", eff.BarUnits)
	}
}

func TestRealUser(t *testing.T) {
	defer func(a func() int, b func(string) string, c func() (*user.User, error), d func(string) (*user.User, error)) {
		getuid, getenv, currentUser, lookupUser = a, b, c, d
	}(getuid, getenv, currentUser, lookupUser)

	self := &user.User{Username: "root", HomeDir: "/root"}
	alice := &user.User{Username: "alice", HomeDir: "/home/alice"}
	currentUser = func() (*user.User, error) { return self, nil }
	lookupUser = func(name string) (*user.User, error) {
		if name == "alice" {
			return alice, nil
		}
		return nil, user.UnknownUserError(name)
	}

	env := map[string]string{}
	getenv = func(k string) string { return env[k] }

	// 非 root：当前用户，忽略 SUDO_USER。
	getuid = func() int { return 1000 }
	env[SudoUserEnv] = "alice"
	if u, _ := RealUser(); u != self {
		t.Fatalf("非 root 应返回当前用户：%+v", u)
	}

	// root + sudo：原始用户。
	getuid = func() int { return 0 }
	if h, err := Home(); err != nil || h != "/home/alice" {
		t.Fatalf("sudo 下应使用原始用户 home：%q %v", h, err)
	}

	// root + 无法解析的 SUDO_USER：报错。
	env[SudoUserEnv] = "ghost"
	if _, err := RealUser(); err == nil {
		t.Fatalf("无法解析的 SUDO_USER 应报错")
	}

	// root 且没有 sudo：root 自己。
	delete(env, SudoUserEnv)
	if h, _ := Home(); h != "/root" {
		t.Fatalf("直接以 root 运行应使用 root 的 home：%q", h)
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败 %q：%v", path, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}
