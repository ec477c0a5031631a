//go:build unix

package main

import "syscall"

// detachedAttr 让子进程成为新会话的首进程，脱离控制终端。
func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
