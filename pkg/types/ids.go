package types

import (
	"errors"
	"math/bits"
	"strconv"

	"github.com/spaolacci/murmur3"
)

// ============================================================================
//                              NodeID - 节点标识
// ============================================================================

// NodeID 节点唯一标识符
//
// 与 Key 处于同一标识空间，按 XOR 距离比较远近。
type NodeID uint64

// ErrInvalidNodeID 无效的节点ID错误
var ErrInvalidNodeID = errors.New("invalid node ID: must be an unsigned integer")

// ParseNodeID 从十进制字符串解析 NodeID
func ParseNodeID(s string) (NodeID, error) {
	if s == "" {
		return 0, ErrInvalidNodeID
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidNodeID
	}
	return NodeID(v), nil
}

// String 返回 NodeID 的十进制表示
func (id NodeID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Key 返回与该节点 ID 数值相同的键
func (id NodeID) Key() Key {
	return Key(id)
}

// ============================================================================
//                              Key - 数据键
// ============================================================================

// Key 数据键
type Key uint64

// ErrInvalidKey 无效的键错误
var ErrInvalidKey = errors.New("invalid key: must be an unsigned integer")

// ParseKey 从十进制字符串解析 Key
func ParseKey(s string) (Key, error) {
	if s == "" {
		return 0, ErrInvalidKey
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidKey
	}
	return Key(v), nil
}

// KeyFromString 将任意字符串哈希到标识空间
//
// 使用 murmur3 64 位哈希，同一字符串始终得到同一个 Key。
func KeyFromString(s string) Key {
	return Key(murmur3.Sum64([]byte(s)))
}

// String 返回 Key 的十进制表示
func (k Key) String() string {
	return strconv.FormatUint(uint64(k), 10)
}

// ============================================================================
//                              XOR 距离
// ============================================================================

// Distance 计算节点到键的 XOR 距离
//
// Distance(a, a) == 0，且 Distance(a, b) == Distance(b, a)。
func Distance(id NodeID, key Key) uint64 {
	return uint64(id) ^ uint64(key)
}

// NodeDistance 计算两个节点之间的 XOR 距离
func NodeDistance(a, b NodeID) uint64 {
	return uint64(a) ^ uint64(b)
}

// BucketIndex 返回距离所属的桶索引 floor(log2(d))
//
// 距离为 0 时返回 -1，表示节点自身，不属于任何桶。
func BucketIndex(d uint64) int {
	return bits.Len64(d) - 1
}
