package engine

import "errors"

var (
	ErrNotFound      = errors.New("storage: key not found")
	ErrExists        = errors.New("storage: key already exists")
	ErrEmptyKey      = errors.New("storage: empty key")
	ErrClosed        = errors.New("storage: engine closed")
	ErrReadOnly      = errors.New("storage: read-only mode")
	ErrInvalidConfig = errors.New("storage: invalid configuration")
)

// IsNotFound 是否为键不存在
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClosed 是否为引擎已关闭
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}
