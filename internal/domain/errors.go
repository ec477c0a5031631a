package domain

import (
	"errors"
	"fmt"
)

// 错误分类（error_code）。取值稳定，可用于日志/脚本判断。
const (
	ErrCodePrecondition   = "precondition_failed"
	ErrCodeResource       = "resource_failed"
	ErrCodeStreamProtocol = "stream_protocol"
	ErrCodeConsistency    = "consistency_failed"
)

// Error 是核心流程的结构化致命错误。
// 逐帧显示失败不属于这里：那类失败由 scheduler 记录后吞掉。
type Error struct {
	Code string
	Op   string // 出错的动作，例如 "mount"、"copy"
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Code
	if e.Op != "" {
		msg += "：" + e.Op
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" %q", e.Path)
	}
	if e.Err != nil {
		msg += "：" + e.Err.Error()
	}
	return msg
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

func Precondition(op string, err error) error {
	return &Error{Code: ErrCodePrecondition, Op: op, Err: err}
}

func Resource(op, path string, err error) error {
	return &Error{Code: ErrCodeResource, Op: op, Path: path, Err: err}
}

func StreamProtocol(op string, err error) error {
	return &Error{Code: ErrCodeStreamProtocol, Op: op, Err: err}
}

func Consistency(op, path string, err error) error {
	return &Error{Code: ErrCodeConsistency, Op: op, Path: path, Err: err}
}

func IsPrecondition(err error) bool { return Code(err) == ErrCodePrecondition }
