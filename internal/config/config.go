package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/swiper/internal/domain"
)

const (
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段/参数不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeConflict 表示命令行选项组合不兼容（例如 -r 未配合 -s）。
	ErrCodeConflict = "config_conflict"
	// ErrCodeMissingAction 表示既没有 -i，也没有 -s / -a。
	ErrCodeMissingAction = "config_missing_action"
)

const (
	// DefaultMountPoint 是 tmpfs 缓存的默认挂载点。
	DefaultMountPoint = "/mnt/swiper"
	// DefaultCacheSize 是 tmpfs 的默认容量（字节）。帧总大小必须严格小于它。
	DefaultCacheSize int64 = 1_000_000_000
	// DefaultBarUnits 是抽帧进度条的默认格数。
	DefaultBarUnits = 25
	// DefaultDisplayCmd 是默认的壁纸设置命令。
	DefaultDisplayCmd = "feh"
	// SaveDirName 是 home 下的默认保存目录名。
	SaveDirName = ".swiper"
	// FileName 是配置文件名，位于 <home>/.config/swiper/。
	FileName = "swiper.json"
)

// DefaultDisplayArgs 是 display_cmd 的默认参数；帧路径追加在最后。
var DefaultDisplayArgs = []string{"--bg-scale"}

// CLIArgs 是命令行入口参数；带 *Set 的字段保留“是否显式指定”的信息，用于选项兼容性检查。
type CLIArgs struct {
	Inspect string // -i <video>
	Save    string // -s <video>
	Apply   bool   // -a

	RenderFPS    string // -r
	RenderFPSSet bool

	Width    int // -w
	WidthSet bool

	Height    int // -h
	HeightSet bool

	PNG bool // -P

	Cache  bool // -c
	Daemon bool // -d

	PlaybackFPS    string // -p
	PlaybackFPSSet bool

	Force bool // -f

	// ConfigPath 为空时使用 <home>/.config/swiper/swiper.json（可选）；显式指定时必须存在。
	ConfigPath string
	Verbose    bool
}

// FileConfig 对应 swiper.json。所有字段可选。
type FileConfig struct {
	SaveDir     string   `json:"save_dir"`
	MountPoint  string   `json:"mount_point"`
	CacheSize   int64    `json:"cache_size"`
	BarUnits    int      `json:"bar_units"`
	DisplayCmd  string   `json:"display_cmd"`
	DisplayArgs []string `json:"display_args"`
	FFmpeg      string   `json:"ffmpeg"`
	FFprobe     string   `json:"ffprobe"`
}

// EffectiveConfig 是合并、校验之后的最终配置。
type EffectiveConfig struct {
	Inspect bool
	Save    bool
	Apply   bool
	Video   string // -i / -s 的视频路径（绝对路径）

	// Meta 只包含命令行指定的部分（宽高可能为 Unset，RenderFPS 可能为空），其余由 probe 补齐。
	Meta domain.FrameMetadata

	Cache  bool
	Daemon bool
	Force  bool

	SaveDir    string
	MountPoint string
	CacheSize  int64
	BarUnits   int

	DisplayCmd  string
	DisplayArgs []string
	FFmpeg      string
	FFprobe     string

	ConfigPath string // 实际读取的配置文件；不存在时为空
	Verbose    bool
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeMissingAction:
		return fmt.Sprintf("%s：必须指定 -i（查看）、-s（保存）或 -a（应用）", e.Code)
	case ErrCodeInvalid:
		if e.Path != "" {
			if e.Err != nil {
				return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
			}
			return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
		}
		fallthrough
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// DefaultPath 返回 home 下的配置文件路径。
func DefaultPath(home string) string {
	return filepath.Join(home, ".config", "swiper", FileName)
}

// LoadEffective 校验命令行选项、读取配置文件，并合并为最终配置。
//
// 覆盖优先级：CLI > 配置文件 > 内置默认。
// 视频文件是否存在不在这里检查（由执行阶段报告）。
func LoadEffective(home, cwd string, cli CLIArgs) (EffectiveConfig, error) {
	if err := Validate(cli); err != nil {
		return EffectiveConfig{}, err
	}

	cfgPath := strings.TrimSpace(cli.ConfigPath)
	explicit := cfgPath != ""
	if !explicit {
		cfgPath = DefaultPath(home)
	} else {
		cfgPath = absCleanFrom(cwd, cfgPath)
	}
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if explicit && !exists {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: os.ErrNotExist}
	}
	if !exists {
		cfgPath = ""
	}

	return merge(home, cwd, cli, fc, cfgPath)
}

// Validate 检查选项组合：
// - -i 必须单独使用
// - -r/-w/-h/-P 需要 -s
// - -c/-d/-p 需要 -a
// - -r/-p 必须是速率字符串；-w/-h 必须大于 0
func Validate(cli CLIArgs) error {
	inspect := strings.TrimSpace(cli.Inspect) != ""
	save := strings.TrimSpace(cli.Save) != ""

	if !inspect && !save && !cli.Apply {
		return &Error{Code: ErrCodeMissingAction}
	}
	if inspect && (save || cli.Apply) {
		return conflict("-i 必须单独使用")
	}

	if !save {
		switch {
		case cli.RenderFPSSet:
			return conflict("选项 -r 需要配合 -s")
		case cli.WidthSet:
			return conflict("选项 -w 需要配合 -s")
		case cli.HeightSet:
			return conflict("选项 -h 需要配合 -s")
		case cli.PNG:
			return conflict("选项 -P 需要配合 -s")
		}
	}
	if !cli.Apply {
		switch {
		case cli.Cache:
			return conflict("选项 -c 需要配合 -a")
		case cli.Daemon:
			return conflict("选项 -d 需要配合 -a")
		case cli.PlaybackFPSSet:
			return conflict("选项 -p 需要配合 -a")
		}
	}

	if cli.RenderFPSSet {
		if _, err := domain.ParseRate(cli.RenderFPS); err != nil {
			return invalid(fmt.Errorf("-r 参数格式无效：%q", cli.RenderFPS))
		}
	}
	if cli.PlaybackFPSSet {
		if _, err := domain.ParseRate(cli.PlaybackFPS); err != nil {
			return invalid(fmt.Errorf("-p 参数格式无效：%q", cli.PlaybackFPS))
		}
	}
	if cli.WidthSet && cli.Width <= 0 {
		return invalid(fmt.Errorf("-w 必须大于 0：%d", cli.Width))
	}
	if cli.HeightSet && cli.Height <= 0 {
		return invalid(fmt.Errorf("-h 必须大于 0：%d", cli.Height))
	}
	return nil
}

func conflict(msg string) error { return &Error{Code: ErrCodeConflict, Err: errors.New(msg)} }
func invalid(err error) error   { return &Error{Code: ErrCodeInvalid, Err: err} }

func merge(home, cwd string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	bad := func(err error) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	eff := EffectiveConfig{
		Inspect:    strings.TrimSpace(cli.Inspect) != "",
		Save:       strings.TrimSpace(cli.Save) != "",
		Apply:      cli.Apply,
		Cache:      cli.Cache,
		Daemon:     cli.Daemon,
		Force:      cli.Force,
		ConfigPath: cfgPath,
		Verbose:    cli.Verbose,
	}
	switch {
	case eff.Inspect:
		eff.Video = absCleanFrom(cwd, cli.Inspect)
	case eff.Save:
		eff.Video = absCleanFrom(cwd, cli.Save)
	}

	m := domain.NewFrameMetadata()
	if cli.RenderFPSSet {
		m.RenderFPS = cli.RenderFPS
	}
	if cli.WidthSet {
		m.Width = cli.Width
	}
	if cli.HeightSet {
		m.Height = cli.Height
	}
	if cli.PNG {
		m.Format = domain.FormatPNG
	}
	if cli.PlaybackFPSSet {
		m.PlaybackFPS = cli.PlaybackFPS
	}
	eff.Meta = m

	eff.SaveDir = filepath.Join(home, SaveDirName)
	if s := strings.TrimSpace(fc.SaveDir); s != "" {
		eff.SaveDir = absCleanFrom(home, s)
	}
	if eff.SaveDir == "" || !filepath.IsAbs(eff.SaveDir) {
		return bad(fmt.Errorf("save_dir 无法确定（home=%q）", home))
	}

	eff.MountPoint = DefaultMountPoint
	if s := strings.TrimSpace(fc.MountPoint); s != "" {
		if !filepath.IsAbs(s) {
			return bad(fmt.Errorf("mount_point 必须是绝对路径：%q", s))
		}
		eff.MountPoint = filepath.Clean(s)
	}
	if eff.MountPoint == "/" || eff.MountPoint == eff.SaveDir {
		return bad(fmt.Errorf("mount_point 不能是 %q", eff.MountPoint))
	}

	eff.CacheSize = DefaultCacheSize
	if fc.CacheSize < 0 {
		return bad(fmt.Errorf("cache_size 必须大于 0：%d", fc.CacheSize))
	}
	if fc.CacheSize > 0 {
		eff.CacheSize = fc.CacheSize
	}

	eff.BarUnits = DefaultBarUnits
	if fc.BarUnits != 0 {
		// 进度行需要放进一行终端：限制在 [1, 200]。
		if fc.BarUnits < 1 || fc.BarUnits > 200 {
			return bad(fmt.Errorf("bar_units 超出范围 [1, 200]：%d", fc.BarUnits))
		}
		eff.BarUnits = fc.BarUnits
	}

	eff.DisplayCmd = DefaultDisplayCmd
	eff.DisplayArgs = append([]string(nil), DefaultDisplayArgs...)
	if s := strings.TrimSpace(fc.DisplayCmd); s != "" {
		eff.DisplayCmd = s
		// 换了命令时默认参数不再适用。
		eff.DisplayArgs = nil
	}
	if fc.DisplayArgs != nil {
		eff.DisplayArgs = append([]string(nil), fc.DisplayArgs...)
	}

	eff.FFmpeg = orDefault(fc.FFmpeg, "ffmpeg")
	eff.FFprobe = orDefault(fc.FFprobe, "ffprobe")
	return eff, nil
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
