package dht

import (
	"sort"

	"github.com/dep2p/go-ldht/pkg/types"
)

// CompareDistance 比较 a 和 b 到 key 的距离
// 返回：
//
//	-1 如果 dist(a, key) < dist(b, key)
//	 0 如果 dist(a, key) == dist(b, key)
//	 1 如果 dist(a, key) > dist(b, key)
func CompareDistance(a, b types.NodeID, key types.Key) int {
	da := types.Distance(a, key)
	db := types.Distance(b, key)
	switch {
	case da < db:
		return -1
	case da > db:
		return 1
	}
	return 0
}

// SortByDistance 按到 key 的距离升序排序（稳定，距离相同保持原顺序）
func SortByDistance(ids []types.NodeID, key types.Key) {
	sort.SliceStable(ids, func(i, j int) bool {
		return CompareDistance(ids[i], ids[j], key) < 0
	})
}
