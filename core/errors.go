package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 结构性输入错误（空日志、缺列、无可用文本列）统一为 INVALID_INPUT
//   - 冷启动 / 未知 ID 不是错误，由各推荐函数返回空结果
//   - 支持错误检查函数（IsXXX），包装（%w）后依然可识别
type DomainError struct {
	Code    string // 错误代码（如 "INVALID_INPUT", "NOT_FOUND"）
	Message string // 错误消息
	Module  string // 模块名称（如 "matrix", "feature", "store"）
}

func (e *DomainError) Error() string {
	if e.Module == "" {
		return e.Message
	}
	return e.Module + ": " + e.Message
}

// IsDomainError 检查错误链中是否存在 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 从错误链中取出 DomainError，没有则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// NewInvalidInputError 创建 INVALID_INPUT 错误，支持 fmt 格式化。
func NewInvalidInputError(module, format string, args ...any) *DomainError {
	return NewDomainError(module, ErrorCodeInvalidInput, fmt.Sprintf(format, args...))
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleInteraction   = "interaction"   // 交互日志
	ModuleMatrix        = "matrix"        // 交互矩阵
	ModuleSimilarity    = "similarity"    // 相似度
	ModuleFeature       = "feature"       // 文本特征
	ModuleFactorization = "factorization" // 矩阵分解
	ModuleStore         = "store"         // 存储模块
	ModuleConfig        = "config"        // 配置
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool {
	return hasCode(err, ErrorCodeInvalidInput)
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	return hasCode(err, ErrorCodeNotSupported)
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	return hasCode(err, ErrorCodeUnavailable)
}

// ErrEmptyLog 表示交互日志为空，无法构建矩阵。它是 INVALID_INPUT，
// 服务层据此区分“还没有数据”与其他结构错误。
var ErrEmptyLog = NewInvalidInputError(ModuleInteraction, "interaction log is empty")
