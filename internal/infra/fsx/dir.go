package fsx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ClearDir 删除 dir 第一层的全部条目（包含隐藏文件与子目录），保留 dir 本身。
func ClearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// CopyRegularFiles 把 src 第一层的普通文件复制到 dst（不递归）。
//
// 规则：
// - 子目录、符号链接、设备等特殊条目跳过
// - 隐藏文件照常复制（.metadata 需要跟着帧一起走）
// - onFile 非 nil 时每复制完一个文件回调一次（用于进度展示）
//
// 返回成功复制的文件数。中途失败不做回滚，由调用方决定如何处理半成品。
func CopyRegularFiles(dst, src string, onFile func(name string, size int64)) (int, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		size, err := copyFile(filepath.Join(dst, name), filepath.Join(src, name))
		if err != nil {
			return n, fmt.Errorf("复制 %q 失败：%w", name, err)
		}
		n++
		if onFile != nil {
			onFile(name, size)
		}
	}
	return n, nil
}

func copyFile(dst, src string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return 0, err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if err != nil {
		_ = out.Close()
		return n, err
	}
	return n, out.Close()
}
