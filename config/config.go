// Package config 提供统一的配置管理
//
// 主 Config 结构体嵌入所有子配置，每个子配置在独立文件中定义，
// 支持从 JSON 加载。各组件通过自己的 ConfigFromUnified 读取所需部分。
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Network.Mode = config.ModeDocument
//
//	// 从文件加载
//	cfg, err := config.Load("ldht.json")
package config

// Config 是 LDHT 的完整配置结构
//
// 配置按照功能模块组织：
//   - Network: 网络（集合、本地节点、运行模式）
//   - DHT: 路由与存储参数
//   - Action: 远程动作协议
//   - Storage: 存储配置
//   - Metrics: 指标
type Config struct {
	// Network 网络配置
	Network NetworkConfig `json:"network"`

	// DHT DHT 配置
	DHT DHTConfig `json:"dht"`

	// Action 远程动作协议配置
	Action ActionConfig `json:"action"`

	// Storage 存储配置
	Storage StorageConfig `json:"storage"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Network: DefaultNetworkConfig(),
		DHT:     DefaultDHTConfig(),
		Action:  DefaultActionConfig(),
		Storage: DefaultStorageConfig(),
		Metrics: DefaultMetricsConfig(),
	}
}

// Validate 验证配置的有效性
//
// 检查所有子配置是否有效，如果发现无效配置则返回错误。
func (c *Config) Validate() error {
	if err := c.Network.Validate(); err != nil {
		return err
	}
	if err := c.DHT.Validate(); err != nil {
		return err
	}
	if err := c.Action.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	return c.Metrics.Validate()
}
