package proc

import (
	"fmt"
	"os/exec"
	"sync"
)

// Spawner 以“启动即返回”的方式运行进程，并在后台回收，避免僵尸进程。
//
// 子进程不绑定 ctx：调度循环取消时正在显示的那一帧允许自然结束。
type Spawner struct {
	wg sync.WaitGroup
}

// Spawn 启动 name args...，不等待其结束。启动失败返回错误。
func (s *Spawner) Spawn(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("proc: 启动 %s 失败：%w", name, err)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = cmd.Wait()
	}()
	return nil
}

// Wait 等待所有已启动的子进程退出（退出前调用，保证不遗留未回收的子进程）。
func (s *Spawner) Wait() { s.wg.Wait() }
