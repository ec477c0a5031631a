//go:build linux

package mount

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Host 是基于 golang.org/x/sys/unix 的真实实现。
type Host struct {
	// Table 为挂载表路径；为空时使用 DefaultTable。
	Table string
}

func (h Host) MountTmpfs(dir, data string) error {
	if err := unix.Mount(FSTypeTmpfs, dir, FSTypeTmpfs, 0, data); err != nil {
		return fmt.Errorf("mount tmpfs %s (%s)：%w", dir, data, err)
	}
	return nil
}

func (h Host) Unmount(dir string) error {
	if err := unix.Unmount(dir, 0); err != nil {
		return fmt.Errorf("umount %s：%w", dir, err)
	}
	return nil
}

func (h Host) Mounts() ([]Entry, error) {
	table := h.Table
	if table == "" {
		table = DefaultTable
	}
	return ReadTable(table)
}

func (h Host) Geteuid() int { return unix.Geteuid() }

// IsTmpfs 用 statfs 的 f_type 判断。
func (h Host) IsTmpfs(dir string) (bool, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return false, err
	}
	return int64(st.Type) == unix.TMPFS_MAGIC, nil
}
