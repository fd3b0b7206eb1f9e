package contract

import (
	"errors"
	"fmt"
)

// 最小错误分类。
var (
	// ErrLoad: 源缺失、不可读或结构不足（致命，发生在任何输出之前）。
	ErrLoad = errors.New("load failed")
	// ErrWrite: 目标无法创建/写入（致命，不留残缺文件）。
	ErrWrite = errors.New("write failed")
	// ErrColumnMismatch: 源列数与期望列数不一致。
	ErrColumnMismatch = errors.New("column count mismatch")
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrSeqInvalid: 记录顺序违例。
	ErrSeqInvalid = errors.New("sequence invalid")
	// ErrInvalidInput: 调用参数非法。
	ErrInvalidInput = errors.New("invalid input")
	// ErrConfigInvalid: 配置缺失或非法（退出码 3）。
	ErrConfigInvalid = errors.New("config invalid")
)

// LoadError 描述加载阶段的致命错误。
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load: %v", e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is 使 errors.Is(err, ErrLoad) 对任意 LoadError 成立。
func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// WriteError 描述写出阶段的致命错误。
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("write: %v", e.Err)
	}
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Is 使 errors.Is(err, ErrWrite) 对任意 WriteError 成立。
func (e *WriteError) Is(target error) bool { return target == ErrWrite }

// NewLoadError 包装为 LoadError；err 已是 LoadError 时原样返回。
func NewLoadError(path string, err error) error {
	if err == nil {
		return nil
	}
	var le *LoadError
	if errors.As(err, &le) {
		return err
	}
	return &LoadError{Path: path, Err: err}
}

// NewWriteError 包装为 WriteError；err 已是 WriteError 时原样返回。
func NewWriteError(path string, err error) error {
	if err == nil {
		return nil
	}
	var we *WriteError
	if errors.As(err, &we) {
		return err
	}
	return &WriteError{Path: path, Err: err}
}
