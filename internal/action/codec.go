package action

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dep2p/go-ldht/config"
)

// ErrUnsupportedType 编解码器不支持的记录类型
var ErrUnsupportedType = errors.New("action: unsupported record type")

// Codec 记录编解码器
//
// 支持 *Action、*Entry、*NodeRecord、*ValueRecord。
type Codec interface {
	// Name 返回编解码器名称
	Name() string

	// Marshal 编码记录
	Marshal(v any) ([]byte, error)

	// Unmarshal 解码到 v 指向的记录
	Unmarshal(data []byte, v any) error
}

// NewCodec 按名称创建编解码器
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", config.CodecJSON:
		return JSONCodec{}, nil
	case config.CodecProto:
		return ProtoCodec{}, nil
	}
	return nil, fmt.Errorf("action: unknown codec %q", name)
}

// JSONCodec JSON 编解码器
type JSONCodec struct{}

// Name 实现 Codec
func (JSONCodec) Name() string { return config.CodecJSON }

// Marshal 实现 Codec
func (JSONCodec) Marshal(v any) ([]byte, error) {
	if err := checkRecord(v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// Unmarshal 实现 Codec
func (JSONCodec) Unmarshal(data []byte, v any) error {
	if err := checkRecord(v); err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func checkRecord(v any) error {
	switch v.(type) {
	case *Action, *Entry, *NodeRecord, *ValueRecord:
		return nil
	}
	return fmt.Errorf("%w: %T", ErrUnsupportedType, v)
}
