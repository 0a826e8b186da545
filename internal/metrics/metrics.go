// Package metrics 提供 LDHT 的 Prometheus 指标
//
// 每个 Metrics 持有独立的 prometheus.Registry，同一进程内的多个网络
// 互不冲突。所有方法对 nil 接收者安全，组件可以在没有指标的情况下工作。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// 操作结果标签
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics DHT 指标集合
type Metrics struct {
	registry *prometheus.Registry

	operations   *prometheus.CounterVec
	hops         prometheus.Histogram
	actions      *prometheus.CounterVec
	replications prometheus.Counter
	peers        prometheus.Gauge
}

// New 创建并注册指标
func New(namespace string) (*Metrics, error) {
	if namespace == "" {
		namespace = "ldht"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "DHT operations by name and result.",
		}, []string{"op", "result"}),
		hops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_hops",
			Help:      "Number of forwarding hops used by store and find requests.",
			Buckets:   prometheus.LinearBuckets(0, 1, 8),
		}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Remote actions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		replications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replications_total",
			Help:      "Keys re-replicated after a peer failure.",
		}),
		peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_peers",
			Help:      "Peers currently registered in the network.",
		}),
	}

	for _, c := range []prometheus.Collector{m.operations, m.hops, m.actions, m.replications, m.peers} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Registry 返回底层注册表
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveOperation 记录一次操作
func (m *Metrics) ObserveOperation(op string, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	m.operations.WithLabelValues(op, result).Inc()
}

// ObserveHops 记录转发跳数
func (m *Metrics) ObserveHops(n int) {
	if m == nil {
		return
	}
	m.hops.Observe(float64(n))
}

// ObserveAction 记录一次远程动作结果
func (m *Metrics) ObserveAction(kind, outcome string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(kind, outcome).Inc()
}

// IncReplications 记录一次重新复制
func (m *Metrics) IncReplications() {
	if m == nil {
		return
	}
	m.replications.Inc()
}

// SetPeers 设置注册表中的节点数
func (m *Metrics) SetPeers(n int) {
	if m == nil {
		return
	}
	m.peers.Set(float64(n))
}
