package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/dep2p/go-ldht"
	"github.com/dep2p/go-ldht/config"
	"github.com/dep2p/go-ldht/internal/core/storage"
	"github.com/dep2p/go-ldht/internal/docstore"
	"github.com/dep2p/go-ldht/pkg/types"
)

// simOptions sim 子命令参数
type simOptions struct {
	nodes       int
	mode        string
	codec       string
	dataDir     string
	collection  string
	key         string
	value       string
	failClosest bool
}

func newSimCommand(root *rootOptions) *cobra.Command {
	opts := &simOptions{}

	cmd := &cobra.Command{
		Use:   "sim",
		Short: "运行进程内 DHT 模拟",
		Long: `创建 --nodes 个节点并通过第一个节点加入网络，随后由最后一个节点存储
--key/--value，再从每个节点查找。--fail-closest 会关闭离 key 最近的节点并
执行一次故障检测，展示值的重新复制。`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root.configFile)
			if err != nil {
				return err
			}
			return runSim(cmd.Context(), cmd.OutOrStdout(), cfg, opts)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.nodes, "nodes", 5, "节点数量")
	f.StringVar(&opts.mode, "mode", config.ModeMemory, "运行模式 (memory/document)")
	f.StringVar(&opts.codec, "codec", config.CodecJSON, "document 模式的编解码器 (json/proto)")
	f.StringVar(&opts.dataDir, "data-dir", "", "document 模式的数据目录（为空时使用内存存储）")
	f.StringVar(&opts.collection, "collection", "sim", "集合标识")
	f.StringVar(&opts.key, "key", "greeting", "要存储的键（按字符串哈希）")
	f.StringVar(&opts.value, "value", "hello", "要存储的值")
	f.BoolVar(&opts.failClosest, "fail-closest", false, "关闭离 key 最近的节点并执行 Ping")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.NewConfig(), nil
	}
	return config.Load(path)
}

// simNodeID 把序号哈希到标识空间，让节点分布在不同的桶里
func simNodeID(i int) ldht.NodeID {
	return ldht.NodeID(ldht.KeyFromString(fmt.Sprintf("node-%d", i)))
}

func runSim(ctx context.Context, out io.Writer, cfg *config.Config, opts *simOptions) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.nodes < 1 {
		return fmt.Errorf("--nodes must be at least 1")
	}

	cfg.Network.Mode = opts.mode
	cfg.Network.Codec = opts.codec
	cfg.Network.Collection = opts.collection
	cfg.Metrics.Enabled = false

	shared := []ldht.Option{ldht.WithConfig(cfg)}

	switch opts.mode {
	case config.ModeDocument:
		store, closeStore, openErr := openDocStore(cfg, opts.dataDir)
		if openErr != nil {
			return openErr
		}
		defer func() { err = multierr.Append(err, closeStore()) }()
		shared = append(shared, ldht.WithDocumentStore(store))
	default:
		shared = append(shared, ldht.WithRegistry(ldht.NewRegistry()))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 创建并加入
	// ════════════════════════════════════════════════════════════════════════
	nodes := make([]*ldht.Node, 0, opts.nodes)
	defer func() {
		for _, n := range nodes {
			err = multierr.Append(err, n.Close())
		}
	}()

	for i := 0; i < opts.nodes; i++ {
		node, err := ldht.Start(ctx, append(shared, ldht.WithNodeID(simNodeID(i)))...)
		if err != nil {
			return fmt.Errorf("start node %d: %w", i, err)
		}
		nodes = append(nodes, node)
		if i == 0 {
			continue
		}
		if err := join(ctx, node, nodes[0]); err != nil {
			return fmt.Errorf("join node %s: %w", node.ID(), err)
		}
	}

	printRouting(out, nodes)

	// ════════════════════════════════════════════════════════════════════════
	// 存储与查找
	// ════════════════════════════════════════════════════════════════════════
	key := ldht.KeyFromString(opts.key)
	writer := nodes[len(nodes)-1]
	if err := writer.StoreValue(ctx, key, opts.value); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	fmt.Fprintf(out, "\n节点 %s 存储 %q = %q (key %s)\n", writer.ID(), opts.key, opts.value, key)

	if err := printLookups(ctx, out, nodes, key); err != nil {
		return err
	}

	if !opts.failClosest || len(nodes) < 2 {
		return nil
	}

	// ════════════════════════════════════════════════════════════════════════
	// 故障与重新复制
	// ════════════════════════════════════════════════════════════════════════
	closest := closestNode(nodes, key)
	fmt.Fprintf(out, "\n关闭离 key 最近的节点 %s\n", closest.ID())
	if err := closest.Close(); err != nil {
		return err
	}

	for _, n := range nodes {
		if n == closest {
			continue
		}
		if err := n.Ping(ctx); err != nil {
			logger.Debug("Ping 报告故障节点", "nodeID", n.ID(), "error", err)
		}
	}
	return printLookups(ctx, out, nodes, key)
}

func join(ctx context.Context, node, bootstrap *ldht.Node) error {
	if node.Mode() == config.ModeDocument {
		return node.Join(ctx, bootstrap.Location())
	}
	return node.AddNode(ctx, bootstrap.Ref())
}

// openDocStore 打开所有节点共享的文档存储
func openDocStore(cfg *config.Config, dataDir string) (docstore.Store, func() error, error) {
	cfg.Storage.InMemory = dataDir == ""
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}

	eng, err := storage.NewEngine(storage.ConfigFromUnified(cfg))
	if err != nil {
		return nil, nil, err
	}
	if err := eng.Start(); err != nil {
		_ = eng.Close()
		return nil, nil, err
	}
	return docstore.NewBadgerStore(eng), eng.Close, nil
}

func closestNode(nodes []*ldht.Node, key ldht.Key) *ldht.Node {
	best := nodes[0]
	for _, n := range nodes[1:] {
		if types.Distance(n.ID(), key) < types.Distance(best.ID(), key) {
			best = n
		}
	}
	return best
}

func printRouting(out io.Writer, nodes []*ldht.Node) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tPEERS\tBUCKETS\tLOCATION")
	for _, n := range nodes {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", n.ID(), len(n.Peers()), len(n.Buckets()), n.Location())
	}
	_ = tw.Flush()
}

func printLookups(ctx context.Context, out io.Writer, nodes []*ldht.Node, key ldht.Key) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tLOCAL\tNEAREST\tFOUND")
	for _, n := range nodes {
		if n.State() != ldht.StateRunning {
			continue
		}
		local, err := n.HasLocalValue(ctx, key)
		if err != nil {
			return err
		}
		values, err := n.FindValue(ctx, key)
		if err != nil {
			return err
		}
		nearest := "-"
		if ids := n.NearestPeers(key, 1); len(ids) > 0 {
			nearest = ids[0].String()
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\t%v\n", n.ID(), local, nearest, values)
	}
	return tw.Flush()
}
