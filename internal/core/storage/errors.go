package storage

import "github.com/dep2p/go-ldht/internal/core/storage/engine"

// 供使用方直接判断引擎错误
var (
	ErrNotFound      = engine.ErrNotFound
	ErrClosed        = engine.ErrClosed
	ErrInvalidConfig = engine.ErrInvalidConfig

	IsNotFound = engine.IsNotFound
	IsClosed   = engine.IsClosed
)
