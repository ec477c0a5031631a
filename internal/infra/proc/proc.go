// Package proc 封装外部工具（ffmpeg/ffprobe/feh）的启动与回收。
package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Command 描述一次外部进程调用。
type Command struct {
	Name string
	Args []string

	// CombinedOutput 为 true 时 stdout 与 stderr 合并到同一个 Output 流（等价于 2>&1）。
	CombinedOutput bool
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Process 是一个已启动的外部进程。
type Process interface {
	// Output 返回进程输出流；必须读到 EOF 或调用 Kill，否则进程可能因管道写满而阻塞。
	Output() io.Reader
	Wait() error
	Kill() error
}

// Runner 启动外部进程。
type Runner interface {
	Start(ctx context.Context, cmd Command) (Process, error)
}

// ExecRunner 基于 os/exec 的 Runner。
type ExecRunner struct{}

func (ExecRunner) Start(ctx context.Context, c Command) (Process, error) {
	if c.Name == "" {
		return nil, errors.New("proc: 命令为空")
	}
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)

	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("proc: 创建管道失败：%w", err)
	}
	cmd.Stdout = w
	if c.CombinedOutput {
		cmd.Stderr = w
	}
	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return nil, fmt.Errorf("proc: 启动 %s 失败：%w", c.Name, err)
	}
	// 子进程持有写端副本；父进程关闭自己的写端，子进程退出后读端才能读到 EOF。
	_ = w.Close()

	return &execProcess{cmd: cmd, out: r}, nil
}

type execProcess struct {
	cmd *exec.Cmd
	out *os.File

	once    sync.Once
	waitErr error
}

func (p *execProcess) Output() io.Reader { return p.out }

func (p *execProcess) Wait() error {
	p.once.Do(func() {
		p.waitErr = p.cmd.Wait()
		_ = p.out.Close()
	})
	return p.waitErr
}

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	err := p.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// Output 运行命令并返回其全部 stdout（stderr 丢弃），用于 ffprobe 这类短命令。
func Output(ctx context.Context, r Runner, c Command) ([]byte, error) {
	c.CombinedOutput = false
	p, err := r.Start(ctx, c)
	if err != nil {
		return nil, err
	}
	data, readErr := io.ReadAll(p.Output())
	waitErr := p.Wait()
	if readErr != nil {
		return nil, fmt.Errorf("proc: 读取 %s 输出失败：%w", c.Name, readErr)
	}
	if waitErr != nil {
		return data, fmt.Errorf("proc: %s 执行失败：%w", c.Name, waitErr)
	}
	return data, nil
}
