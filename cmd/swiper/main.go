package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/John-Robertt/swiper/internal/app/run"
	"github.com/John-Robertt/swiper/internal/config"
	"github.com/John-Robertt/swiper/internal/display"
	"github.com/John-Robertt/swiper/internal/domain"
	"github.com/John-Robertt/swiper/internal/infra/mount"
	"github.com/John-Robertt/swiper/internal/infra/proc"
	"github.com/John-Robertt/swiper/internal/logger"
	"github.com/John-Robertt/swiper/internal/media"
	"github.com/John-Robertt/swiper/internal/scan"
	"github.com/John-Robertt/swiper/internal/scheduler"
)

func main() {
	if code := runCmd(os.Args[1:]); code != 0 {
		os.Exit(code)
	}
}

func runCmd(args []string) int {
	if len(args) == 0 {
		printUsage(os.Stdout)
		return 0
	}

	cli, help, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printUsage(os.Stderr)
		return 2
	}
	if help {
		printUsage(os.Stdout)
		return 0
	}
	logger.SetVerbose(cli.Verbose)

	home, err := config.Home()
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误：%v\n", err)
		return 1
	}
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(home, cwd, cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误：%v\n", err)
		switch config.Code(err) {
		case config.ErrCodeConflict, config.ErrCodeMissingAction:
			fmt.Fprintln(os.Stderr)
			printUsage(os.Stderr)
			return 2
		}
		return 1
	}
	if err := checkDuplicate(eff); err != nil {
		fmt.Fprintf(os.Stderr, "错误：%v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progressW, cols := pickProgressWriter()
	spawner := &proc.Spawner{}
	// 最后一帧的显示进程也要回收。
	defer spawner.Wait()

	runner := proc.ExecRunner{}
	deps := run.Deps{
		Prober:    media.Prober{Runner: runner, Bin: eff.FFprobe},
		Extractor: media.Extractor{Runner: runner, Bin: eff.FFmpeg, Units: fitUnits(eff.BarUnits, cols)},
		Display:   &display.Command{Name: eff.DisplayCmd, Args: eff.DisplayArgs, Spawner: spawner},
		Clock:     scheduler.RealClock{},
		Mounts:    mount.Host{},
		Settle:    spawner.Wait,
		Progress:  progressW,
		BarWidth:  cacheBarWidth(cols),
	}
	ui := newProgressUI(os.Stdout, eff.Verbose)

	if err := execute(ctx, eff, cli, deps, ui); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "错误：已取消")
			return 1
		}
		fmt.Fprintf(os.Stderr, "错误：%v\n", err)
		return 1
	}
	return 0
}

// execute 按 -i / -s / -a 的顺序执行动作；-s 与 -a 可以同时出现（先保存后应用）。
func execute(ctx context.Context, eff config.EffectiveConfig, cli config.CLIArgs, deps run.Deps, ui *progressUI) error {
	if eff.Inspect {
		_, err := run.Inspect(ctx, eff, deps, ui)
		return err
	}
	if eff.Save {
		if _, err := run.Save(ctx, eff, deps, ui); err != nil {
			return err
		}
	}
	if !eff.Apply {
		return nil
	}
	if eff.Daemon && getenv(daemonEnv) == "" {
		return daemonize(eff, cli, deps, ui)
	}
	return run.Apply(ctx, eff, deps, ui)
}

// parseArgs 解析命令行。-h 是高度，帮助只有 --help。
func parseArgs(args []string) (config.CLIArgs, bool, error) {
	var (
		cli  config.CLIArgs
		help bool
	)

	fs := pflag.NewFlagSet("swiper", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	fs.StringVarP(&cli.Inspect, "inspect", "i", "", "查看视频元数据")
	fs.StringVarP(&cli.Save, "save", "s", "", "保存动态壁纸")
	fs.StringVarP(&cli.RenderFPS, "render-fps", "r", "", "渲染帧率（配合 -s）")
	fs.IntVarP(&cli.Width, "width", "w", 0, "宽度，像素（配合 -s）")
	fs.IntVarP(&cli.Height, "height", "h", 0, "高度，像素（配合 -s）")
	fs.BoolVarP(&cli.PNG, "png", "P", false, "保存为 png 帧（配合 -s）")
	fs.BoolVarP(&cli.Apply, "apply", "a", false, "应用已保存的壁纸")
	fs.BoolVarP(&cli.Cache, "cache", "c", false, "把帧缓存到内存（配合 -a）")
	fs.BoolVarP(&cli.Daemon, "daemon", "d", false, "转入后台运行（配合 -a）")
	fs.StringVarP(&cli.PlaybackFPS, "playback-fps", "p", "", "播放帧率（配合 -a）")
	fs.BoolVarP(&cli.Force, "force", "f", false, "忽略重复进程检查")
	fs.StringVar(&cli.ConfigPath, "config", "", "配置文件路径")
	fs.BoolVar(&cli.Verbose, "verbose", false, "输出调试日志与生效配置")
	fs.BoolVar(&help, "help", false, "显示帮助")

	if err := fs.Parse(args); err != nil {
		return config.CLIArgs{}, false, err
	}
	if fs.NArg() > 0 {
		return config.CLIArgs{}, false, fmt.Errorf("多余的参数：%q", fs.Args())
	}

	cli.RenderFPSSet = fs.Changed("render-fps")
	cli.WidthSet = fs.Changed("width")
	cli.HeightSet = fs.Changed("height")
	cli.PlaybackFPSSet = fs.Changed("playback-fps")
	return cli, help, nil
}

// 以下变量在测试中替换。
var (
	getenv         = os.Getenv
	countProcesses = func() (int, error) {
		return scan.CountProcesses(scan.DefaultProcRoot, scan.ProgramPattern(os.Args[0]))
	}
)

// checkDuplicate 拒绝在已有同名进程时启动（-f 跳过；后台子进程跳过，因为父进程此时可能尚未退出）。
// -i 只读视频，不检查。
func checkDuplicate(eff config.EffectiveConfig) error {
	if eff.Inspect || eff.Force || getenv(daemonEnv) != "" {
		return nil
	}
	n, err := countProcesses()
	if err != nil {
		logger.Debug("读取进程表失败，跳过重复进程检查", "err", err)
		return nil
	}
	if n > 1 {
		return domain.Precondition("start", fmt.Errorf("swiper 已在运行（另有 %d 个进程）；使用 -f 忽略", n-1))
	}
	return nil
}

// pickProgressWriter 只在 stdout 是终端时输出进度条，并返回终端列数（未知为 0）。
func pickProgressWriter() (io.Writer, int) {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return nil, 0
	}
	cols, _, err := term.GetSize(fd)
	if err != nil {
		cols = 0
	}
	return os.Stdout, cols
}

// fitUnits 收窄抽帧进度条，使 "\r100.00% <bar>" 放得进一行。
func fitUnits(units, cols int) int {
	if cols <= 0 {
		return units
	}
	limit := cols - len("100.00% ") - 1
	if limit < 1 {
		limit = 1
	}
	if units > limit {
		return limit
	}
	return units
}

// cacheBarWidth 为缓存进度条留出描述与计数的位置。
func cacheBarWidth(cols int) int {
	const def, reserved, narrowest = 40, 40, 10
	if cols <= 0 || cols-reserved >= def {
		return def
	}
	if cols-reserved < narrowest {
		return narrowest
	}
	return cols - reserved
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  swiper [-i <视频>] [-s <视频> [-r <渲染帧率>] [-w <宽>] [-h <高>] [-P]] [-a [-d] [-c] [-p <播放帧率>]] [-f]

参数：
  -i, --inspect       查看视频元数据
  -s, --save          保存动态壁纸
  -P, --png           保存为 png 帧；默认 jpg（配合 -s）
  -w, --width         宽度，像素（配合 -s）
  -h, --height        高度，像素（配合 -s）
  -r, --render-fps    渲染帧率，例如 30、29.97、442/10（配合 -s）
  -a, --apply         应用已保存的壁纸
  -c, --cache         把帧缓存到 tmpfs（配合 -a，需要 root）
  -d, --daemon        转入后台运行（配合 -a）
  -p, --playback-fps  以其他帧率播放（配合 -a）
  -f, --force         忽略重复进程检查
      --config        配置文件（默认 ~/.config/swiper/swiper.json）
      --verbose       输出调试日志与生效配置
      --help          显示帮助

示例：
  swiper -s ~/Videos/234878.gif
  swiper -i 05-06-97.avi
  swiper -a
  swiper -s ./joyster.mov -r 29.98 -P
  swiper -s ~/298983.mp4 -w 1280 -h 720
  sudo swiper -adc
  swiper -s 90s-synth.gif -r 442/10 -P -ad -p 30
`)
}
