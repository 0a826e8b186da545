package remote

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ldht/internal/action"
	"github.com/dep2p/go-ldht/internal/core/storage/engine"
	"github.com/dep2p/go-ldht/internal/core/storage/engine/badger"
	"github.com/dep2p/go-ldht/internal/dht"
	"github.com/dep2p/go-ldht/internal/docstore"
	"github.com/dep2p/go-ldht/pkg/types"
)

const testCollection = "c"

func testConfig() Config {
	return Config{
		Timeout:          5 * time.Second,
		PingTimeout:      5 * time.Second,
		PollInterval:     20 * time.Millisecond,
		RetryMaxElapsed:  time.Second,
		RateLimit:        1000,
		RateBurst:        1000,
		HandledCacheSize: 128,
		NodeCacheSize:    128,
		Workers:          4,
	}
}

func newTestStore(t *testing.T) docstore.Store {
	t.Helper()
	eng, err := badger.New(engine.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return docstore.NewBadgerStore(eng)
}

// docNode 一个文档网络中的节点
type docNode struct {
	network   *dht.Network
	client    *Client
	factory   *Factory
	responder *Responder
}

func (n *docNode) local() *dht.LocalNode {
	return n.network.LocalNode()
}

// newDocNode 创建文档网络节点；start 为 false 时不启动 Responder
func newDocNode(t *testing.T, store docstore.Store, codec action.Codec, cfg Config, id types.NodeID, start bool, opts ...dht.Option) *docNode {
	t.Helper()
	ctx := context.Background()

	client, err := NewClient(store, codec, cfg)
	require.NoError(t, err)
	factory := NewFactory(client)

	opts = append([]dht.Option{
		dht.WithPeerFactory(factory),
		dht.WithProvisioner(NewProvisioner(store, codec, nil)),
	}, opts...)
	network, err := dht.NewNetwork(testCollection, opts...)
	require.NoError(t, err)
	require.NoError(t, network.Initialize(ctx, id))

	responder, err := NewResponder(network, store, codec, cfg)
	require.NoError(t, err)
	if start {
		require.NoError(t, responder.Start(ctx))
		t.Cleanup(func() { _ = responder.Stop() })
	}

	return &docNode{network: network, client: client, factory: factory, responder: responder}
}

// readAction 读取动作文档
func readAction(t *testing.T, store docstore.Store, codec action.Codec, location string) *action.Action {
	t.Helper()
	data, err := store.Read(context.Background(), location)
	require.NoError(t, err)
	var a action.Action
	require.NoError(t, codec.Unmarshal(data, &a))
	return &a
}

// terminalFailStore 在 failTerminal 为 true 时拒绝写入终态动作
type terminalFailStore struct {
	docstore.Store
	codec        action.Codec
	failTerminal atomic.Bool
}

func (s *terminalFailStore) Write(ctx context.Context, location string, data []byte) error {
	var a action.Action
	if s.failTerminal.Load() && s.codec.Unmarshal(data, &a) == nil && a.Status.Terminal() {
		return errors.New("write rejected")
	}
	return s.Store.Write(ctx, location, data)
}

// noWatchStore 不支持变更订阅的文档存储
type noWatchStore struct {
	docstore.Store
}

func (noWatchStore) Watch(context.Context, string, func(string, []byte)) error {
	return errors.New("watch unsupported")
}
