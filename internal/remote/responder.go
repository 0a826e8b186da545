package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-ldht/internal/action"
	"github.com/dep2p/go-ldht/internal/core/eventbus"
	"github.com/dep2p/go-ldht/internal/dht"
	"github.com/dep2p/go-ldht/internal/docstore"
	"github.com/dep2p/go-ldht/internal/metrics"
	"github.com/dep2p/go-ldht/pkg/types"
)

// 响应方错误
var (
	// ErrExpired 动作在处理前已超时
	ErrExpired = errors.New("remote: action expired")

	// ErrRateLimited 发送方超过速率限制
	ErrRateLimited = errors.New("remote: agent rate limited")
)

// ResponderOption Responder 选项
type ResponderOption func(*Responder)

// WithResponderClock 设置时钟
func WithResponderClock(clk clock.Clock) ResponderOption {
	return func(r *Responder) {
		r.clock = clk
	}
}

// WithResponderMetrics 设置指标
func WithResponderMetrics(m *metrics.Metrics) ResponderOption {
	return func(r *Responder) {
		r.metrics = m
	}
}

// WithResponderEventBus 每个动作处理完成后发布 EvtActionHandled
func WithResponderEventBus(bus *eventbus.Bus) ResponderOption {
	return func(r *Responder) {
		r.bus = bus
	}
}

// EvtActionHandled 动作已写入终态
type EvtActionHandled struct {
	NodeID   types.NodeID
	Kind     action.Kind
	Location string
	Status   action.Status
	Error    string
}

// Responder 处理本地节点收件箱中的动作
//
// 监听每个收件箱的文档变更，并按 PollInterval 重新扫描收件箱，补上订阅
// 生效前写入的动作。每个动作只处理一次：先写 Active，执行后写入且只写入
// 一次终态。
type Responder struct {
	network *dht.Network
	store   docstore.Store
	codec   action.Codec
	cfg     Config
	clock   clock.Clock
	metrics *metrics.Metrics
	bus     *eventbus.Bus
	emitter *eventbus.Emitter

	handled  *lru.Cache[string, struct{}]
	limiters *lru.Cache[string, *rate.Limiter]

	mu       sync.Mutex
	inflight map[string]struct{}

	queue  chan string
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewResponder 创建 Responder
func NewResponder(network *dht.Network, store docstore.Store, codec action.Codec, cfg Config, opts ...ResponderOption) (*Responder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	handled, err := lru.New[string, struct{}](cfg.HandledCacheSize)
	if err != nil {
		return nil, err
	}
	limiters, err := lru.New[string, *rate.Limiter](cfg.HandledCacheSize)
	if err != nil {
		return nil, err
	}

	r := &Responder{
		network:  network,
		store:    store,
		codec:    codec,
		cfg:      cfg,
		clock:    clock.New(),
		handled:  handled,
		limiters: limiters,
		inflight: make(map[string]struct{}),
		queue:    make(chan string, 256),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.bus != nil {
		if r.emitter, err = r.bus.Emitter(new(EvtActionHandled)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Start 开始监听本地节点的收件箱
func (r *Responder) Start(_ context.Context) error {
	local := r.network.LocalNode()
	if local == nil {
		return dht.ErrNotInitialized
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	layout := NewLayout(r.network.Collection(), local.ID())
	inboxes := layout.Inboxes()

	for _, inbox := range inboxes {
		inbox := inbox
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.watch(ctx, inbox)
		}()
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.rescanLoop(ctx, inboxes)
	}()

	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.work(ctx)
		}()
	}

	logger.Info("动作响应方已启动", "nodeID", local.ID(), "inboxes", len(inboxes))
	return nil
}

// Stop 停止监听并等待处理中的动作结束
func (r *Responder) Stop() error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()
	r.wg.Wait()
	r.cancel = nil
	logger.Info("动作响应方已停止")
	return nil
}

func (r *Responder) watch(ctx context.Context, inbox string) {
	err := r.store.Watch(ctx, inbox, func(location string, _ []byte) {
		r.enqueue(location)
	})
	if err != nil && ctx.Err() == nil {
		logger.Warn("收件箱监听中断", "inbox", inbox, "error", err)
	}
}

func (r *Responder) rescanLoop(ctx context.Context, inboxes map[action.Kind]string) {
	ticker := r.clock.Ticker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		r.rescan(ctx, inboxes)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Responder) rescan(ctx context.Context, inboxes map[action.Kind]string) {
	for _, inbox := range inboxes {
		locations, err := r.store.List(ctx, inbox)
		if err != nil {
			logger.Debug("扫描收件箱失败", "inbox", inbox, "error", err)
			continue
		}
		for _, loc := range locations {
			if !r.handled.Contains(loc) {
				r.enqueue(loc)
			}
		}
	}
}

// enqueue 队列已满时丢弃，下一次重扫会再次发现
func (r *Responder) enqueue(location string) {
	select {
	case r.queue <- location:
	default:
	}
}

func (r *Responder) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case loc := <-r.queue:
			if err := r.OnAction(ctx, loc); err != nil && ctx.Err() == nil {
				logger.Warn("处理动作失败", "location", loc, "error", err)
			}
		}
	}
}

// ============================================================================
//                              动作处理
// ============================================================================

// OnAction 处理一个动作文档
//
// 已处理或正在处理的位置直接忽略。Potential 动作被执行；超过期限仍停在
// Active 的动作写为 Failed；终态动作只标记为已处理。只有终态确实写出后
// 位置才记入已处理，否则留给下一次重扫。
func (r *Responder) OnAction(ctx context.Context, location string) error {
	if r.handled.Contains(location) {
		return nil
	}
	if !r.begin(location) {
		return nil
	}
	defer r.end(location)

	data, err := r.store.Read(ctx, location)
	if err != nil {
		return err
	}

	var a action.Action
	if err := r.codec.Unmarshal(data, &a); err != nil {
		r.handled.Add(location, struct{}{})
		return fmt.Errorf("decode action %s: %w", location, err)
	}

	switch {
	case a.Status == action.StatusPotential:
		err = r.process(ctx, location, &a)
	case a.Status == action.StatusActive && r.stale(&a):
		logger.Info("关闭遗留的 Active 动作", "kind", a.Kind, "location", location)
		err = r.finish(ctx, location, &a, ErrExpired)
	case a.Status == action.StatusActive:
		// 可能仍在执行，期限过后由重扫收尾
		return nil
	}
	if err != nil {
		return err
	}
	r.handled.Add(location, struct{}{})
	return nil
}

// process 执行动作并写入唯一的终态
func (r *Responder) process(ctx context.Context, location string, a *action.Action) error {
	failure := r.admit(a)
	if failure == nil {
		if err := r.write(ctx, location, a, action.StatusActive, ""); err != nil {
			failure = err
		} else {
			failure = r.dispatch(ctx, a)
		}
	}
	return r.finish(ctx, location, a, failure)
}

// finish 是动作离开 Active 的唯一出口
//
// failure 为 nil 写 Completed，否则写 Failed。
func (r *Responder) finish(ctx context.Context, location string, a *action.Action, failure error) error {
	status, reason := action.StatusCompleted, ""
	if failure != nil {
		status, reason = action.StatusFailed, failure.Error()
	}
	// 终态必须写出，不受调用方取消影响
	if err := r.write(context.WithoutCancel(ctx), location, a, status, reason); err != nil {
		logger.Error("写入动作终态失败", "location", location, "status", status, "error", err)
		return fmt.Errorf("write %s status for %s: %w", status, location, err)
	}

	r.metrics.ObserveAction(string(a.Kind), string(status))
	if local := r.network.LocalNode(); r.emitter != nil && local != nil {
		_ = r.emitter.Emit(EvtActionHandled{
			NodeID:   local.ID(),
			Kind:     a.Kind,
			Location: location,
			Status:   status,
			Error:    reason,
		})
	}
	logger.Debug("动作已处理", "kind", a.Kind, "location", location, "status", status, "reason", reason)
	return nil
}

// stale 判断 Active 动作是否已超过期限；没有期限的动作按 Config.Timeout 计算
func (r *Responder) stale(a *action.Action) bool {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = r.cfg.Timeout
	}
	return r.clock.Now().After(a.CreatedAt.Add(timeout))
}

// admit 检查动作是否可以执行
func (r *Responder) admit(a *action.Action) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.Expired(r.clock.Now()) {
		return ErrExpired
	}
	if !r.limiter(a.Agent).Allow() {
		return ErrRateLimited
	}
	return nil
}

func (r *Responder) limiter(agent string) *rate.Limiter {
	if l, ok := r.limiters.Get(agent); ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(r.cfg.RateLimit), r.cfg.RateBurst)
	r.limiters.Add(agent, l)
	return l
}

// dispatch 按类型执行动作
func (r *Responder) dispatch(ctx context.Context, a *action.Action) error {
	local := r.network.LocalNode()
	if local == nil {
		return dht.ErrNotInitialized
	}

	switch a.Kind {
	case action.KindAddNode:
		return local.AddNode(ctx, *a.Object)
	case action.KindRemoveNode:
		return local.RemoveNode(ctx, *a.Object)
	case action.KindStoreValue:
		if a.Hops != nil {
			return local.Store(ctx, a.Entry.Key, []string{a.Entry.Value}, a.VisitedSet(), *a.Hops)
		}
		return r.network.StoreValue(ctx, a.Entry.Key, a.Entry.Value)
	case action.KindPing:
		return nil
	}
	return dht.ErrActionUnsupported
}

// write 转换状态并写回动作文档，写入失败按指数退避重试
func (r *Responder) write(ctx context.Context, location string, a *action.Action, status action.Status, reason string) error {
	if err := a.Transition(status, reason, r.clock.Now()); err != nil {
		return err
	}
	data, err := r.codec.Marshal(a)
	if err != nil {
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = r.cfg.RetryMaxElapsed

	return backoff.Retry(func() error {
		err := r.store.Write(ctx, location, data)
		if errors.Is(err, docstore.ErrInvalidLocation) || errors.Is(err, docstore.ErrNoContainer) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx))
}

func (r *Responder) begin(location string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inflight[location]; ok {
		return false
	}
	r.inflight[location] = struct{}{}
	return true
}

func (r *Responder) end(location string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, location)
}
