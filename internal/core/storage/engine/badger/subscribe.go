package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/pb"

	"github.com/dep2p/go-ldht/internal/core/storage/engine"
)

// Subscribe 订阅指定前缀下的键变更
//
// 基于 DB.Subscribe 实现。订阅在调用后才生效，之前的写入不会被推送，
// 调用方需要自行补扫一次。
func (e *Engine) Subscribe(ctx context.Context, prefix []byte, fn func(changes []engine.Change) error) error {
	if e.closed.Load() {
		return engine.ErrClosed
	}

	matches := []pb.Match{{Prefix: prefix}}
	err := e.db.Subscribe(ctx, func(list *badger.KVList) error {
		if len(list.Kv) == 0 {
			return nil
		}
		changes := make([]engine.Change, 0, len(list.Kv))
		for _, kv := range list.Kv {
			changes = append(changes, engine.Change{
				Key:   copyBytes(kv.Key),
				Value: copyBytes(kv.Value),
			})
		}
		return fn(changes)
	}, matches)

	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case err == nil:
		// 数据库关闭时订阅以 nil 返回
		return engine.ErrClosed
	default:
		return convertError(err)
	}
}

func copyBytes(src []byte) []byte {
	if src == nil {
		return nil
	}
	return append([]byte(nil), src...)
}
