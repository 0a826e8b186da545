package dht

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dep2p/go-ldht/pkg/types"
)

func TestCompareDistance(t *testing.T) {
	assert.Equal(t, -1, CompareDistance(6, 1, 7))
	assert.Equal(t, 1, CompareDistance(1, 6, 7))
	assert.Equal(t, 0, CompareDistance(3, 3, 9))
}

func TestSortByDistance(t *testing.T) {
	ids := []types.NodeID{100, 1, 12, 6}
	SortByDistance(ids, 7)
	assert.Equal(t, []types.NodeID{6, 1, 12, 100}, ids)
}
