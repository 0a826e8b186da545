package remote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ldht/internal/action"
	"github.com/dep2p/go-ldht/pkg/types"
)

func TestDocumentValueStore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	codec := action.ProtoCodec{}
	container := "/nodes/c/1/data/"
	require.NoError(t, store.CreateContainer(ctx, container))

	s := NewDocumentValueStore(store, codec, container, nil)

	added, err := s.Append(ctx, 5, []string{"a", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = s.Append(ctx, 5, []string{"b"})
	require.NoError(t, err)
	assert.Equal(t, 0, added, "重复值不写入")

	// 远程读取发布的文档
	values, err := ReadValues(ctx, store, codec, container, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, values)

	missing, err := ReadValues(ctx, store, codec, container, 6)
	require.NoError(t, err)
	assert.Nil(t, missing)

	// 新实例从文档加载
	reloaded := NewDocumentValueStore(store, codec, container, nil)
	got, err := reloaded.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	keys, err := reloaded.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.Key{5}, keys)

	has, err := reloaded.Has(ctx, 6)
	require.NoError(t, err)
	assert.False(t, has)
}
