package attendance

import (
	"errors"
	"fmt"
)

// ── 考勤生成业务错误 ──

var (
	ErrInvalidInput  = errors.New("输入参数无效")
	ErrInvalidPolicy = errors.New("生成策略配置无效")
)

// ValidationError 输入校验失败，直接返回给调用方，不重试
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap 使 errors.Is(err, ErrInvalidInput) 成立
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
