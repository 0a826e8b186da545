package remote

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-ldht/internal/action"
	"github.com/dep2p/go-ldht/internal/dht"
	"github.com/dep2p/go-ldht/internal/docstore"
	"github.com/dep2p/go-ldht/internal/metrics"
	"github.com/dep2p/go-ldht/pkg/lib/log"
	"github.com/dep2p/go-ldht/pkg/types"
)

var logger = log.Logger("remote")

// ClientOption Client 选项
type ClientOption func(*Client)

// WithClock 设置时钟，测试中用于驱动超时
func WithClock(clk clock.Clock) ClientOption {
	return func(c *Client) {
		c.clock = clk
	}
}

// WithClientMetrics 设置指标
func WithClientMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// Client 动作协议调用方
//
// 负责读取节点记录、创建动作文档并等待其终态。同一网络中的所有 Peer 共享一个 Client。
type Client struct {
	store   docstore.Store
	codec   action.Codec
	cfg     Config
	clock   clock.Clock
	metrics *metrics.Metrics

	records *lru.Cache[string, *action.NodeRecord]
}

// NewClient 创建 Client
func NewClient(store docstore.Store, codec action.Codec, cfg Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	records, err := lru.New[string, *action.NodeRecord](cfg.NodeCacheSize)
	if err != nil {
		return nil, err
	}

	c := &Client{
		store:   store,
		codec:   codec,
		cfg:     cfg,
		clock:   clock.New(),
		records: records,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config 返回配置
func (c *Client) Config() Config {
	return c.cfg
}

// ReadNode 读取节点记录
//
// refresh 为 false 时优先使用缓存。
func (c *Client) ReadNode(ctx context.Context, location string, refresh bool) (*action.NodeRecord, error) {
	if !refresh {
		if rec, ok := c.records.Get(location); ok {
			return rec, nil
		}
	}

	data, err := c.store.Read(ctx, location)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, dht.NewDHTError("read_node", dht.ErrNotFound, location)
	}
	if err != nil {
		return nil, err
	}

	var rec action.NodeRecord
	if err := c.codec.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode node record %s: %w", location, err)
	}
	c.records.Add(location, &rec)
	return &rec, nil
}

// ReadValues 读取节点发布的值
func (c *Client) ReadValues(ctx context.Context, location string, key types.Key) ([]string, bool, error) {
	rec, err := c.ReadNode(ctx, location, false)
	if err != nil {
		return nil, false, err
	}
	values, err := ReadValues(ctx, c.store, c.codec, rec.Data, key)
	if err != nil {
		return nil, false, err
	}
	return values, values != nil, nil
}

// Send 把动作写入目标节点的收件箱并等待终态
//
// Completed 返回 nil；Failed 返回 dht.ErrActionFailed；超时返回 dht.ErrTimeout。
func (c *Client) Send(ctx context.Context, target string, a *action.Action) error {
	inbox, err := c.inbox(ctx, target, a.Kind)
	if err != nil {
		return err
	}

	if a.Timeout <= 0 {
		a.Timeout = c.timeoutFor(a.Kind)
	}
	a.Status = action.StatusPotential
	a.Target = inbox
	a.CreatedAt = c.clock.Now()

	location, err := c.create(ctx, inbox, a)
	if err != nil {
		return dht.NewDHTError("send", err, string(a.Kind)+" to "+target)
	}
	logger.Debug("动作已创建", "kind", a.Kind, "location", location)

	result, err := c.wait(ctx, location, a.Timeout)
	if err != nil {
		if errors.Is(err, dht.ErrTimeout) {
			c.metrics.ObserveAction(string(a.Kind), "timeout")
		}
		return dht.NewDHTError("send", err, string(a.Kind)+" "+location)
	}
	if result.Status == action.StatusFailed {
		return dht.NewDHTError("send", dht.ErrActionFailed, result.Error)
	}
	return nil
}

// inbox 查找目标节点的收件箱，缓存中没有该类型时刷新一次
func (c *Client) inbox(ctx context.Context, target string, kind action.Kind) (string, error) {
	rec, err := c.ReadNode(ctx, target, false)
	if err != nil {
		return "", err
	}
	if inbox, ok := rec.Inbox(kind); ok {
		return inbox, nil
	}

	rec, err = c.ReadNode(ctx, target, true)
	if err != nil {
		return "", err
	}
	if inbox, ok := rec.Inbox(kind); ok {
		return inbox, nil
	}
	return "", dht.NewDHTError("send", dht.ErrActionUnsupported, string(kind)+" on "+target)
}

func (c *Client) timeoutFor(kind action.Kind) time.Duration {
	if kind == action.KindPing {
		return c.cfg.PingTimeout
	}
	return c.cfg.Timeout
}

// newName 生成动作名称：<毫秒时间戳>-<随机后缀>
func (c *Client) newName() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return strconv.FormatInt(c.clock.Now().UnixMilli(), 10) + "-" + suffix
}

// create 以 Potential 状态创建动作文档
//
// 名称冲突和临时错误按指数退避重试，每次重试使用新名称。
func (c *Client) create(ctx context.Context, inbox string, a *action.Action) (string, error) {
	var location string

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = c.cfg.RetryMaxElapsed

	err := backoff.Retry(backoff.Operation(func() error {
		a.Name = c.newName()
		data, err := c.codec.Marshal(a)
		if err != nil {
			return backoff.Permanent(err)
		}

		location, err = c.store.Append(ctx, inbox, a.Name, data)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, docstore.ErrAccessDenied),
			errors.Is(err, docstore.ErrNoContainer),
			errors.Is(err, docstore.ErrInvalidLocation):
			return backoff.Permanent(err)
		}
		logger.Debug("创建动作失败，重试", "inbox", inbox, "error", err)
		return err
	}), backoff.WithContext(b, ctx))

	return location, err
}

// wait 等待动作进入终态
//
// 轮询定时器和文档变更通知都会触发一次状态读取，超时独立计时。
func (c *Client) wait(ctx context.Context, location string, timeout time.Duration) (*action.Action, error) {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	notify := make(chan struct{}, 1)
	go func() {
		err := c.store.Watch(wctx, location, func(string, []byte) {
			select {
			case notify <- struct{}{}:
			default:
			}
		})
		if err != nil && wctx.Err() == nil {
			logger.Debug("订阅动作变更失败，仅依赖轮询", "location", location, "error", err)
		}
	}()

	ticker := c.clock.Ticker(c.cfg.PollInterval)
	defer ticker.Stop()
	timer := c.clock.Timer(timeout)
	defer timer.Stop()

	for {
		a, err := c.read(wctx, location)
		if err != nil {
			logger.Debug("读取动作状态失败", "location", location, "error", err)
		} else if a.Status.Terminal() {
			return a, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, dht.ErrTimeout
		case <-ticker.C:
		case <-notify:
		}
	}
}

func (c *Client) read(ctx context.Context, location string) (*action.Action, error) {
	data, err := c.store.Read(ctx, location)
	if err != nil {
		return nil, err
	}
	var a action.Action
	if err := c.codec.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
