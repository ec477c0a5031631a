// Package display 通过外部工具（默认 feh --bg-scale）把单帧设为桌面背景。
package display

import (
	"context"
	"strings"
)

// Spawner 启动进程但不等待（由实现负责回收）。
type Spawner interface {
	Spawn(name string, args ...string) error
}

// Command 是基于外部命令的 Displayer。
type Command struct {
	Name    string   // 默认 "feh"
	Args    []string // 默认 ["--bg-scale"]；帧路径追加在最后
	Spawner Spawner
}

// Feh 返回默认的 feh 显示器。
func Feh(sp Spawner) *Command {
	return &Command{Name: "feh", Args: []string{"--bg-scale"}, Spawner: sp}
}

// Display 启动显示命令后立即返回，不等待其结束。
func (c *Command) Display(_ context.Context, path string) error {
	name := c.Name
	if strings.TrimSpace(name) == "" {
		name = "feh"
	}
	args := c.Args
	if args == nil {
		args = []string{"--bg-scale"}
	}
	argv := make([]string, 0, len(args)+1)
	argv = append(argv, args...)
	argv = append(argv, path)
	return c.Spawner.Spawn(name, argv...)
}
