package dht

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// converge 让新节点与其余已注册节点互相加入路由表
//
// 所有节点对并发执行（上限 JoinConcurrency），整体受 JoinTimeout 约束。
// 超时后剩余的节点对被放弃，不作为错误返回；单个节点对的失败只记录日志。
func (n *Network) converge(ctx context.Context, peer Peer) {
	ref := peer.Ref()

	others := make([]Peer, 0, n.registry.Len())
	for _, other := range n.registry.Peers() {
		if other.ID() != ref.ID {
			others = append(others, other)
		}
	}
	if len(others) == 0 {
		return
	}

	jctx, cancel := context.WithTimeout(ctx, n.cfg.JoinTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(jctx)
	g.SetLimit(n.cfg.JoinConcurrency)

	done := make(chan struct{})
	go func() {
		defer close(done)

		for _, other := range others {
			other := other
			g.Go(func() error {
				n.joinPair(gctx, other, ref)
				return nil
			})
			g.Go(func() error {
				n.joinPair(gctx, peer, other.Ref())
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
		logger.Debug("路由表收敛完成", "peer", ref.ID, "pairs", len(others))
	case <-jctx.Done():
		logger.Debug("路由表收敛超时，放弃剩余节点对", "peer", ref.ID, "error", jctx.Err())
	}
}

// joinPair 让 target 把 ref 加入路由表
func (n *Network) joinPair(ctx context.Context, target Peer, ref PeerRef) {
	if ctx.Err() != nil {
		return
	}
	if err := target.AddNode(ctx, ref); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		logger.Warn("收敛失败", "target", target.ID(), "peer", ref.ID, "error", err)
	}
}
