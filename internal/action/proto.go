package action

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-ldht/config"
	"github.com/dep2p/go-ldht/internal/dht"
	"github.com/dep2p/go-ldht/pkg/types"
)

// ErrMalformed 无法解析的 protobuf 数据
var ErrMalformed = errors.New("action: malformed protobuf record")

// ProtoCodec protobuf wire 格式编解码器
//
// 字段编号：
//
//	Action:      1 name, 2 kind, 3 status, 4 agent, 5 target, 6 timeout_ms,
//	             7 created_at_ns, 8 updated_at_ns, 9 object, 10 entry,
//	             11 hops, 12 visited (packed), 13 error
//	PeerRef:     1 id, 2 location
//	Entry:       1 key, 2 value
//	NodeRecord:  1 id, 2 collection, 3 location, 4 actions {1 kind, 2 inbox},
//	             5 data, 6 peers, 7 updated_at_ns
//	ValueRecord: 1 key, 2 values, 3 updated_at_ns
type ProtoCodec struct{}

// Name 实现 Codec
func (ProtoCodec) Name() string { return config.CodecProto }

// Marshal 实现 Codec
func (ProtoCodec) Marshal(v any) ([]byte, error) {
	switch r := v.(type) {
	case *Action:
		return appendAction(nil, r), nil
	case *Entry:
		return appendEntry(nil, r), nil
	case *NodeRecord:
		return appendNodeRecord(nil, r), nil
	case *ValueRecord:
		return appendValueRecord(nil, r), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
}

// Unmarshal 实现 Codec
func (ProtoCodec) Unmarshal(data []byte, v any) error {
	switch r := v.(type) {
	case *Action:
		*r = Action{}
		return consumeAction(data, r)
	case *Entry:
		*r = Entry{}
		return consumeEntry(data, r)
	case *NodeRecord:
		*r = NodeRecord{}
		return consumeNodeRecord(data, r)
	case *ValueRecord:
		*r = ValueRecord{}
		return consumeValueRecord(data, r)
	}
	return fmt.Errorf("%w: %T", ErrUnsupportedType, v)
}

// ============================================================================
//                              编码
// ============================================================================

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendTime(b []byte, num protowire.Number, t time.Time) []byte {
	if t.IsZero() {
		return b
	}
	return appendUint(b, num, uint64(t.UnixNano()))
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendPeerRef(b []byte, r *dht.PeerRef) []byte {
	b = appendUint(b, 1, uint64(r.ID))
	return appendString(b, 2, r.Location)
}

func appendEntry(b []byte, e *Entry) []byte {
	b = appendUint(b, 1, uint64(e.Key))
	return appendString(b, 2, e.Value)
}

func appendAction(b []byte, a *Action) []byte {
	b = appendString(b, 1, a.Name)
	b = appendString(b, 2, string(a.Kind))
	b = appendString(b, 3, string(a.Status))
	b = appendString(b, 4, a.Agent)
	b = appendString(b, 5, a.Target)
	b = appendUint(b, 6, uint64(a.Timeout.Milliseconds()))
	b = appendTime(b, 7, a.CreatedAt)
	b = appendTime(b, 8, a.UpdatedAt)
	if a.Object != nil {
		b = appendMessage(b, 9, appendPeerRef(nil, a.Object))
	}
	if a.Entry != nil {
		b = appendMessage(b, 10, appendEntry(nil, a.Entry))
	}
	if a.Hops != nil {
		// hops 为 0 也要写出，以区分是否携带
		b = protowire.AppendTag(b, 11, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(*a.Hops)))
	}
	if len(a.Visited) > 0 {
		var packed []byte
		for _, id := range a.Visited {
			packed = protowire.AppendVarint(packed, uint64(id))
		}
		b = appendMessage(b, 12, packed)
	}
	return appendString(b, 13, a.Error)
}

func appendNodeRecord(b []byte, r *NodeRecord) []byte {
	b = appendUint(b, 1, uint64(r.ID))
	b = appendString(b, 2, r.Collection)
	b = appendString(b, 3, r.Location)

	kinds := make([]string, 0, len(r.Actions))
	for k := range r.Actions {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		var entry []byte
		entry = appendString(entry, 1, k)
		entry = appendString(entry, 2, r.Actions[Kind(k)])
		b = appendMessage(b, 4, entry)
	}

	b = appendString(b, 5, r.Data)
	for i := range r.Peers {
		b = appendMessage(b, 6, appendPeerRef(nil, &r.Peers[i]))
	}
	return appendTime(b, 7, r.UpdatedAt)
}

func appendValueRecord(b []byte, r *ValueRecord) []byte {
	b = appendUint(b, 1, uint64(r.Key))
	for _, v := range r.Values {
		// 空字符串也是合法值
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, v)
	}
	return appendTime(b, 3, r.UpdatedAt)
}

// ============================================================================
//                              解码
// ============================================================================

// field 一个已解析的字段
type field struct {
	num   protowire.Number
	typ   protowire.Type
	value uint64
	bytes []byte
}

// walk 依次解析 data 中的字段，未知类型的字段被跳过
func walk(data []byte, fn func(f field) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.value, n = protowire.ConsumeVarint(data)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(data)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func unixNano(v uint64) time.Time {
	return time.Unix(0, int64(v))
}

func consumePeerRef(data []byte, r *dht.PeerRef) error {
	return walk(data, func(f field) error {
		switch f.num {
		case 1:
			r.ID = types.NodeID(f.value)
		case 2:
			r.Location = string(f.bytes)
		}
		return nil
	})
}

func consumeEntry(data []byte, e *Entry) error {
	return walk(data, func(f field) error {
		switch f.num {
		case 1:
			e.Key = types.Key(f.value)
		case 2:
			e.Value = string(f.bytes)
		}
		return nil
	})
}

func consumeAction(data []byte, a *Action) error {
	return walk(data, func(f field) error {
		switch f.num {
		case 1:
			a.Name = string(f.bytes)
		case 2:
			a.Kind = Kind(f.bytes)
		case 3:
			a.Status = Status(f.bytes)
		case 4:
			a.Agent = string(f.bytes)
		case 5:
			a.Target = string(f.bytes)
		case 6:
			a.Timeout = time.Duration(f.value) * time.Millisecond
		case 7:
			a.CreatedAt = unixNano(f.value)
		case 8:
			a.UpdatedAt = unixNano(f.value)
		case 9:
			a.Object = &dht.PeerRef{}
			return consumePeerRef(f.bytes, a.Object)
		case 10:
			a.Entry = &Entry{}
			return consumeEntry(f.bytes, a.Entry)
		case 11:
			hops := int(protowire.DecodeZigZag(f.value))
			a.Hops = &hops
		case 12:
			packed := f.bytes
			for len(packed) > 0 {
				v, n := protowire.ConsumeVarint(packed)
				if n < 0 {
					return fmt.Errorf("%w: visited", ErrMalformed)
				}
				a.Visited = append(a.Visited, types.NodeID(v))
				packed = packed[n:]
			}
		case 13:
			a.Error = string(f.bytes)
		}
		return nil
	})
}

func consumeNodeRecord(data []byte, r *NodeRecord) error {
	return walk(data, func(f field) error {
		switch f.num {
		case 1:
			r.ID = types.NodeID(f.value)
		case 2:
			r.Collection = string(f.bytes)
		case 3:
			r.Location = string(f.bytes)
		case 4:
			var kind, inbox string
			err := walk(f.bytes, func(e field) error {
				switch e.num {
				case 1:
					kind = string(e.bytes)
				case 2:
					inbox = string(e.bytes)
				}
				return nil
			})
			if err != nil {
				return err
			}
			if r.Actions == nil {
				r.Actions = make(map[Kind]string)
			}
			r.Actions[Kind(kind)] = inbox
		case 5:
			r.Data = string(f.bytes)
		case 6:
			var ref dht.PeerRef
			if err := consumePeerRef(f.bytes, &ref); err != nil {
				return err
			}
			r.Peers = append(r.Peers, ref)
		case 7:
			r.UpdatedAt = unixNano(f.value)
		}
		return nil
	})
}

func consumeValueRecord(data []byte, r *ValueRecord) error {
	return walk(data, func(f field) error {
		switch f.num {
		case 1:
			r.Key = types.Key(f.value)
		case 2:
			r.Values = append(r.Values, string(f.bytes))
		case 3:
			r.UpdatedAt = unixNano(f.value)
		}
		return nil
	})
}

// 编译时检查接口实现
var (
	_ Codec = JSONCodec{}
	_ Codec = ProtoCodec{}
)
