// Package fsx 收拢帧目录与 tmpfs 缓存用到的文件系统操作。
package fsx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// 测试通过替换它模拟 EXDEV。
var renameFunc = os.Rename

// PathTypeConflictError 表示路径已存在但类型不对（例如要目录却是文件）。
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("路径类型冲突：%q（期望 %s，实际 %s）", e.Path, e.Want, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// CrossDeviceError 表示 rename 跨了文件系统（EXDEV）。
// staging 目录与 frames 目录都在同一个 tmpfs 内，出现它说明挂载点在复制期间被替换了。
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("rename 跨文件系统（EXDEV）：%q -> %q：%v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// Rename 同 os.Rename；EXDEV 包装为 *CrossDeviceError，不做复制回退。
func Rename(src, dst string) error {
	err := renameFunc(src, dst)
	if err != nil && isEXDEV(err) {
		return &CrossDeviceError{Src: src, Dst: dst, Err: err}
	}
	return err
}

// EnsureDir 确保 dir 是目录；不存在时以 perm 创建（含父目录）。
func EnsureDir(dir string, perm os.FileMode) error {
	fi, err := os.Stat(dir)
	switch {
	case err == nil && fi.IsDir():
		return nil
	case err == nil:
		return &PathTypeConflictError{Path: dir, Want: "dir", Got: "file"}
	case !os.IsNotExist(err):
		return err
	}
	return os.MkdirAll(dir, perm)
}

// WriteFileAtomic 把 data 写到 dir/name：先写同目录的隐藏临时文件并 fsync，再 rename 覆盖。
// 读者要么看到旧内容，要么看到完整的新内容。
func WriteFileAtomic(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	// 以 '.' 开头：帧枚举只看可见文件。
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := Rename(tmpName, filepath.Join(dir, name)); err != nil {
		return err
	}
	committed = true

	// 目录项持久化失败不影响本次写入的可见性。
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
