package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/John-Robertt/swiper/internal/app/run"
	"github.com/John-Robertt/swiper/internal/config"
	"github.com/John-Robertt/swiper/internal/domain"
	"github.com/John-Robertt/swiper/internal/logger"
)

// daemonEnv 标记后台子进程：子进程跳过重复进程检查，也不会再次转入后台。
const daemonEnv = "SWIPER_DAEMON"

// startDaemon 以脱离终端的方式重新执行自身，返回子进程 pid。测试中替换。
var startDaemon = func(args []string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("定位可执行文件失败：%w", err)
	}
	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return 0, err
	}
	defer devnull.Close()

	cmd := exec.Command(exe, args...)
	cmd.Stdin = devnull
	cmd.Stdout = devnull
	cmd.Stderr = devnull
	cmd.Env = append(os.Environ(), daemonEnv+"=1")
	cmd.SysProcAttr = detachedAttr()
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("启动后台进程失败：%w", err)
	}
	pid := cmd.Process.Pid
	// 不等待：子进程由 init 接管。
	_ = cmd.Process.Release()
	return pid, nil
}

// daemonize 在前台完成能提前发现的检查（壁纸是否存在、-c 的权限），然后把播放交给后台子进程。
// 子进程的输出被丢弃，所以问题要在这里报告。
func daemonize(eff config.EffectiveConfig, cli config.CLIArgs, deps run.Deps, ui *progressUI) error {
	w, err := run.LoadWallpaper(eff)
	if err != nil {
		return err
	}
	if eff.Cache && deps.Mounts != nil && deps.Mounts.Geteuid() != 0 {
		return domain.Precondition("cache", errors.New("-c 需要 root 权限"))
	}
	ui.OnMetadata(run.StageApply, w.Meta)

	args := childArgs(cli, eff)
	pid, err := startDaemon(args)
	if err != nil {
		return domain.Resource("daemonize", "", err)
	}
	logger.Debug("后台进程已启动", "pid", pid, "args", args)
	ui.OnDetached(pid)
	return nil
}

// childArgs 只保留应用阶段需要的参数；-s 已在前台完成，-d 不再传递。
func childArgs(cli config.CLIArgs, eff config.EffectiveConfig) []string {
	args := []string{"-a"}
	if cli.Cache {
		args = append(args, "-c")
	}
	if cli.PlaybackFPSSet {
		args = append(args, "-p", cli.PlaybackFPS)
	}
	if eff.ConfigPath != "" {
		args = append(args, "--config", eff.ConfigPath)
	}
	if cli.Verbose {
		args = append(args, "--verbose")
	}
	return args
}
