// Package cache 把帧序列迁移到 tmpfs（内存）中，降低播放时的磁盘读取。
package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/John-Robertt/swiper/internal/domain"
	"github.com/John-Robertt/swiper/internal/framestore"
	"github.com/John-Robertt/swiper/internal/infra/fsx"
	"github.com/John-Robertt/swiper/internal/infra/mount"
	"github.com/John-Robertt/swiper/internal/logger"
	"github.com/John-Robertt/swiper/internal/scan"
)

// FramesDir 是帧在挂载点下的最终目录名。
const FramesDir = "frames"

// maxUnmountRounds 限制“卸载直到挂载表中不再出现”的轮数，防止卸载静默失败时死循环。
const maxUnmountRounds = 64

// Tier 是 tmpfs 缓存层。
//
// 同一挂载点只允许一个进程使用（由 CLI 层的重复进程检测保证）。
type Tier struct {
	Sys mount.System

	// Progress 非 nil 时在复制阶段渲染进度条。
	Progress io.Writer
	// BarWidth 是进度条宽度；<= 0 时使用默认值。
	BarWidth int
}

// Mount 是一次 tmpfs 挂载的句柄；Release 卸载它。
type Mount struct {
	Dir string

	sys      mount.System
	released bool
}

// Release 卸载挂载点上的所有 tmpfs（幂等）。
func (m *Mount) Release() error {
	if m == nil || m.released {
		return nil
	}
	if err := unmountTmpfs(m.sys, m.Dir); err != nil {
		return err
	}
	m.released = true
	logger.Info("已卸载 tmpfs", "dir", m.Dir)
	return nil
}

// Relocate 把 store 复制进挂载在 mp 上、容量为 capacity 字节的 tmpfs，返回根目录位于挂载内的新 FrameStore。
//
// 前置条件（任何改动之前检查，不满足返回 precondition_failed）：
// - 有效 uid 为 0
// - capacity > 0，且 store 第一层文件总大小严格小于 capacity
// - mp 上没有非 tmpfs 的挂载
//
// 步骤：
// 1) 卸载 mp 上所有 tmpfs（可能叠加多层），直到挂载表中不再出现
// 2) 挂载 tmpfs size=<capacity>,mode=0777，并清空挂载点
// 3) 复制到 mp/.staging-<uuid>，完成后 rename 为 mp/frames
//
// 复制失败时删除 staging 并卸载：不会留下半成品缓存。
func (t *Tier) Relocate(ctx context.Context, store domain.FrameStore, capacity int64, mp string) (domain.FrameStore, *Mount, error) {
	if t.Sys == nil {
		return domain.FrameStore{}, nil, errors.New("cache: Sys 未设置")
	}
	mp = mount.Canonical(mp)

	if err := t.check(store, capacity, mp); err != nil {
		return domain.FrameStore{}, nil, err
	}
	if err := ctx.Err(); err != nil {
		return domain.FrameStore{}, nil, err
	}

	if err := fsx.EnsureDir(mp, 0o755); err != nil {
		return domain.FrameStore{}, nil, domain.Resource("mkdir", mp, err)
	}
	if err := unmountTmpfs(t.Sys, mp); err != nil {
		return domain.FrameStore{}, nil, err
	}

	data := fmt.Sprintf("size=%d,mode=0777", capacity)
	if err := t.Sys.MountTmpfs(mp, data); err != nil {
		return domain.FrameStore{}, nil, domain.Resource("mount", mp, err)
	}
	m := &Mount{Dir: mp, sys: t.Sys}
	logger.Info("已挂载 tmpfs", "dir", mp, "options", data)

	out, err := t.populate(ctx, store, mp)
	if err != nil {
		if rerr := m.Release(); rerr != nil {
			logger.Warn("回滚卸载失败", "dir", mp, "err", rerr)
		}
		return domain.FrameStore{}, nil, err
	}
	return out, m, nil
}

func (t *Tier) check(store domain.FrameStore, capacity int64, mp string) error {
	if euid := t.Sys.Geteuid(); euid != 0 {
		return domain.Precondition("cache", fmt.Errorf("挂载 tmpfs 需要 root 权限（当前 euid=%d）", euid))
	}
	if capacity <= 0 {
		return domain.Precondition("cache", fmt.Errorf("缓存容量必须大于 0：%d", capacity))
	}
	size, err := scan.Size(store.Root)
	if err != nil {
		return domain.Resource("measure", store.Root, err)
	}
	if size >= capacity {
		return domain.Precondition("cache", fmt.Errorf("帧总大小 %d 字节超出缓存容量 %d 字节", size, capacity))
	}

	entries, err := t.Sys.Mounts()
	if err != nil {
		return domain.Resource("read mounts", mount.DefaultTable, err)
	}
	for _, e := range mount.At(entries, mp) {
		if e.FSType != mount.FSTypeTmpfs {
			return domain.Precondition("cache", fmt.Errorf("%s 上已挂载 %s（%s），拒绝覆盖", mp, e.FSType, e.Source))
		}
	}
	return nil
}

func (t *Tier) populate(ctx context.Context, store domain.FrameStore, mp string) (domain.FrameStore, error) {
	ok, err := t.Sys.IsTmpfs(mp)
	if err != nil {
		return domain.FrameStore{}, domain.Resource("statfs", mp, err)
	}
	if !ok {
		return domain.FrameStore{}, domain.Resource("mount", mp, errors.New("挂载后文件系统不是 tmpfs"))
	}
	if err := fsx.ClearDir(mp); err != nil {
		return domain.FrameStore{}, domain.Resource("clear", mp, err)
	}

	staging := filepath.Join(mp, ".staging-"+uuid.NewString())
	if err := os.Mkdir(staging, 0o755); err != nil {
		return domain.FrameStore{}, domain.Resource("mkdir", staging, err)
	}

	if err := t.copy(ctx, staging, store.Root); err != nil {
		_ = os.RemoveAll(staging)
		return domain.FrameStore{}, err
	}

	dst := filepath.Join(mp, FramesDir)
	if err := fsx.Rename(staging, dst); err != nil {
		_ = os.RemoveAll(staging)
		return domain.FrameStore{}, domain.Resource("rename", dst, err)
	}

	out, err := framestore.Load(dst, store.Format)
	if err != nil {
		return domain.FrameStore{}, err
	}
	if out.Len() != store.Len() {
		return domain.FrameStore{}, domain.Consistency("relocate", dst,
			fmt.Errorf("缓存后帧数 %d 与原始帧数 %d 不一致", out.Len(), store.Len()))
	}
	return out, nil
}

func (t *Tier) copy(ctx context.Context, dst, src string) error {
	var onFile func(string, int64)
	if t.Progress != nil {
		files, err := scan.Files(src, scan.Options{IncludeHidden: true})
		if err != nil {
			return domain.Resource("scan", src, err)
		}
		width := t.BarWidth
		if width <= 0 {
			width = 25
		}
		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(t.Progress),
			progressbar.OptionSetDescription("缓存帧"),
			progressbar.OptionSetWidth(width),
			progressbar.OptionShowCount(),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(t.Progress) }),
		)
		defer func() { _ = bar.Finish() }()
		onFile = func(string, int64) { _ = bar.Add(1) }
	}

	// 复制本身不响应取消：tmpfs 上的复制很快，半途取消由上层的回滚处理。
	n, err := fsx.CopyRegularFiles(dst, src, onFile)
	if err != nil {
		return domain.Resource("copy", src, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Debug("帧已复制到 tmpfs", "files", n, "dst", dst)
	return nil
}

// unmountTmpfs 反复卸载 dir 上的 tmpfs，直到挂载表中不再出现。
func unmountTmpfs(sys mount.System, dir string) error {
	for round := 0; round < maxUnmountRounds; round++ {
		entries, err := sys.Mounts()
		if err != nil {
			return domain.Resource("read mounts", mount.DefaultTable, err)
		}
		var found bool
		for _, e := range mount.At(entries, dir) {
			if e.FSType != mount.FSTypeTmpfs {
				continue
			}
			found = true
			if err := sys.Unmount(dir); err != nil {
				return domain.Resource("umount", dir, err)
			}
			logger.Debug("卸载旧 tmpfs", "dir", dir, "round", round)
		}
		if !found {
			return nil
		}
	}
	return domain.Resource("umount", dir, fmt.Errorf("卸载 %d 轮后挂载表中仍有 tmpfs", maxUnmountRounds))
}
