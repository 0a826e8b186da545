package remote

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-ldht/config"
	"github.com/dep2p/go-ldht/internal/action"
	"github.com/dep2p/go-ldht/internal/core/storage"
	"github.com/dep2p/go-ldht/internal/dht"
	"github.com/dep2p/go-ldht/internal/docstore"
	"github.com/dep2p/go-ldht/internal/metrics"
)

func TestModule_Lifecycle(t *testing.T) {
	unified := config.NewConfig()
	unified.Storage.InMemory = true
	unified.Network.Mode = config.ModeDocument
	unified.Network.Codec = config.CodecProto
	unified.Network.Collection = testCollection
	unified.Network.NodeID = 7

	var (
		network *dht.Network
		store   docstore.Store
		codec   action.Codec
	)
	app := fxtest.New(t,
		fx.Supply(unified),
		storage.Module(),
		docstore.Module,
		metrics.Module,
		dht.Module,
		Module,
		fx.Populate(&network, &store, &codec),
	)
	app.RequireStart()
	defer app.RequireStop()

	assert.Equal(t, "proto", codec.Name())
	require.NotNil(t, network.LocalNode())
	assert.Equal(t, NewLayout(testCollection, 7).NodeDocument(), network.LocalNode().Location())

	// 另一个节点通过同一存储发送动作
	sender := newDocNode(t, store, codec, testConfig(), 8, false)
	peer := NewPeer(sender.client, sender.network, network.LocalNode().Ref())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, peer.Ping(ctx))
	require.NoError(t, peer.AddNode(ctx, sender.local().Ref()))
	assert.True(t, network.LocalNode().RoutingTable().Contains(8))
}
