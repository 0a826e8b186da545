package remote

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ldht/internal/action"
	"github.com/dep2p/go-ldht/internal/dht"
	"github.com/dep2p/go-ldht/internal/docstore"
	"github.com/dep2p/go-ldht/pkg/types"
)

func TestProvisioner_CreatesLayout(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	codec := action.JSONCodec{}
	node := newDocNode(t, store, codec, testConfig(), 10, false)

	layout := NewLayout(testCollection, 10)
	assert.Equal(t, layout.NodeDocument(), node.local().Location())

	rule, explicit, err := store.Access(ctx, layout.CollectionContainer())
	require.NoError(t, err)
	assert.True(t, explicit)
	assert.Equal(t, docstore.ReadOnly, rule)

	for _, inbox := range layout.Inboxes() {
		rule, _, err := store.Access(ctx, inbox)
		require.NoError(t, err)
		assert.Equal(t, docstore.ReadAppend, rule, inbox)
	}

	rec, err := node.client.ReadNode(ctx, layout.NodeDocument(), true)
	require.NoError(t, err)
	assert.Equal(t, node.local().ID(), rec.ID)
	assert.Equal(t, layout.DataContainer(), rec.Data)
	assert.Equal(t, layout.Inboxes(), rec.Actions)
	assert.Empty(t, rec.Peers)
}

func TestProvisioner_Reconstructs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	codec := action.ProtoCodec{}
	cfg := testConfig()

	first := newDocNode(t, store, codec, cfg, 10, false)
	other := newDocNode(t, store, codec, cfg, 20, false)

	require.NoError(t, first.local().AddNode(ctx, other.local().Ref()))
	require.NoError(t, first.local().Store(ctx, 3, []string{"v"}, nil, 0))

	rec, err := first.client.ReadNode(ctx, first.local().Location(), true)
	require.NoError(t, err)
	assert.Equal(t, []dht.PeerRef{other.local().Ref()}, rec.Peers, "路由变化后记录已保存")

	// 同一存储上重新初始化同一 ID
	again := newDocNode(t, store, codec, cfg, 10, false)
	assert.True(t, again.local().RoutingTable().Contains(20))

	ok, err := again.local().HasValue(ctx, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	peer, err := again.network.FindNodeByID(ctx, 20)
	require.NoError(t, err)
	assert.IsType(t, &Peer{}, peer)
}

func TestProvisioner_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	codec := action.JSONCodec{}
	cfg := testConfig()

	first := newDocNode(t, store, codec, cfg, 100, false)

	var refs []dht.PeerRef
	for id := types.NodeID(1); id <= 12; id++ {
		refs = append(refs, newDocNode(t, store, codec, cfg, id, false).local().Ref())
	}

	var wg sync.WaitGroup
	for _, ref := range refs {
		ref := ref
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, first.local().AddNode(ctx, ref))
		}()
	}
	wg.Wait()

	rec, err := first.client.ReadNode(ctx, first.local().Location(), true)
	require.NoError(t, err)

	recorded := make([]types.NodeID, 0, len(rec.Peers))
	for _, ref := range rec.Peers {
		recorded = append(recorded, ref.ID)
	}
	assert.ElementsMatch(t, first.local().RoutingTable().Peers(), recorded, "记录与路由表一致")
	assert.Len(t, recorded, len(refs))
}
