package ldht

import (
	"context"
	"fmt"
	"time"
)

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期常量
// ════════════════════════════════════════════════════════════════════════════

const (
	// initializeTimeout 初始化超时（Fx App Start）
	initializeTimeout = 30 * time.Second

	// stopTimeout Close 使用的停止超时
	stopTimeout = 10 * time.Second
)

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期管理
// ════════════════════════════════════════════════════════════════════════════

// Start 启动节点
//
// 启动流程：
//  1. Initialize: 启动 Fx App，创建或重建本地节点，document 模式下启动 Responder
//  2. Bootstrap: 依次加入配置中的引导节点文档，单个失败只记录日志
//  3. Running: 进入运行状态
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNodeClosed
	}
	if n.started {
		return ErrAlreadyStarted
	}

	// ════════════════════════════════════════════════════════════════════════
	// Phase 1: Initialize - 启动 Fx App
	// ════════════════════════════════════════════════════════════════════════
	n.state = StateStarting
	logger.Info("正在初始化节点", "nodeID", n.ID(), "mode", n.Mode())

	initCtx, initCancel := context.WithTimeout(ctx, initializeTimeout)
	defer initCancel()

	if err := n.app.Start(initCtx); err != nil {
		n.state = StateIdle
		logger.Error("节点初始化失败", "error", err)
		return fmt.Errorf("initialize failed: %w", err)
	}

	// ════════════════════════════════════════════════════════════════════════
	// Phase 2: Bootstrap - 加入引导节点
	// ════════════════════════════════════════════════════════════════════════
	n.bootstrap(ctx)

	// ════════════════════════════════════════════════════════════════════════
	// Phase 3: Running
	// ════════════════════════════════════════════════════════════════════════
	n.state = StateRunning
	n.started = true
	logger.Info("节点启动成功", "nodeID", n.ID(), "location", n.Location(), "peers", len(n.Peers()))
	return nil
}

// bootstrap 加入配置中的引导节点
func (n *Node) bootstrap(ctx context.Context) {
	locations := n.config.config.Network.Bootstrap
	if len(locations) == 0 {
		return
	}
	if n.factory == nil {
		logger.Warn("memory 模式忽略引导节点配置", "count", len(locations))
		return
	}

	for _, location := range locations {
		if location == n.Location() {
			continue
		}
		if err := n.factory.Join(ctx, n.network, location); err != nil {
			logger.Warn("加入引导节点失败", "location", location, "error", err)
			continue
		}
		logger.Debug("已加入引导节点", "location", location)
	}
}

// Stop 停止节点
//
// 关闭本地节点、停止 Responder 并关闭存储引擎。停止后的节点不能重新启动。
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNodeClosed
	}
	if !n.started {
		return ErrNotStarted
	}
	return n.stopLocked(ctx)
}

// Close 关闭节点并释放所有资源
//
// 可以重复调用；未启动的节点直接标记为已关闭。
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	if !n.started {
		n.closed = true
		n.state = StateStopped
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return n.stopLocked(ctx)
}

func (n *Node) stopLocked(ctx context.Context) error {
	n.state = StateStopping
	logger.Info("正在停止节点", "nodeID", n.ID())

	err := n.app.Stop(ctx)

	// 即使停止出错，也标记为已停止
	n.state = StateStopped
	n.started = false
	n.closed = true
	if err != nil {
		logger.Error("停止节点失败", "error", err)
		return fmt.Errorf("stop fx app: %w", err)
	}
	logger.Info("节点已停止", "nodeID", n.ID())
	return nil
}

// checkRunning 检查节点处于运行状态
func (n *Node) checkRunning() error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return ErrNodeClosed
	}
	if !n.started {
		return ErrNotStarted
	}
	return nil
}
