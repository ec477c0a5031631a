package config

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"strings"
)

// SudoUserEnv 是 sudo 记录原始用户名的环境变量。
const SudoUserEnv = "SUDO_USER"

// 以下函数在测试中替换。
var (
	getuid      = os.Getuid
	getenv      = os.Getenv
	currentUser = user.Current
	lookupUser  = user.Lookup
)

// RealUser 返回“真实用户”：
// - 非 root：当前 uid 对应的用户
// - root 且经由 sudo：$SUDO_USER 对应的用户（-c 需要 sudo，但帧仍保存在调用者 home 下）
// - root 且没有 $SUDO_USER：root 自己
func RealUser() (*user.User, error) {
	if getuid() != 0 {
		u, err := currentUser()
		if err != nil {
			return nil, fmt.Errorf("无法获取当前用户：%w", err)
		}
		return u, nil
	}

	if name := strings.TrimSpace(getenv(SudoUserEnv)); name != "" {
		u, err := lookupUser(name)
		if err != nil {
			return nil, fmt.Errorf("无法解析 %s=%q：%w", SudoUserEnv, name, err)
		}
		return u, nil
	}

	u, err := currentUser()
	if err != nil {
		return nil, fmt.Errorf("无法获取当前用户：%w", err)
	}
	return u, nil
}

// Home 返回真实用户的 home 目录。
func Home() (string, error) {
	u, err := RealUser()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(u.HomeDir) == "" {
		return "", errors.New("用户 " + u.Username + " 没有 home 目录")
	}
	return u.HomeDir, nil
}
