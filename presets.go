package ldht

import (
	"time"

	"github.com/dep2p/go-ldht/config"
)

// ════════════════════════════════════════════════════════════════════════════
//                              预设配置
// ════════════════════════════════════════════════════════════════════════════

// 预设名称常量
const (
	// PresetNameSimulation 进程内模拟
	PresetNameSimulation = "simulation"

	// PresetNameDocument 持久化文档网络
	PresetNameDocument = "document"
)

// GetSimulationConfig 获取模拟配置
//
// 特点：
//   - memory 模式
//   - 内存存储
//   - 较短的加入超时
func GetSimulationConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Network.Mode = config.ModeMemory
	cfg.Storage.InMemory = true
	cfg.DHT.JoinTimeout = config.Duration(time.Second)
	return cfg
}

// GetDocumentConfig 获取文档网络配置
//
// 特点：
//   - document 模式，proto 编解码
//   - 数据落盘到默认数据目录
func GetDocumentConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Network.Mode = config.ModeDocument
	cfg.Network.Codec = config.CodecProto
	return cfg
}

// GetConfigByPreset 按名称获取预设配置，未知名称返回 nil
func GetConfigByPreset(name string) *config.Config {
	switch name {
	case PresetNameSimulation:
		return GetSimulationConfig()
	case PresetNameDocument:
		return GetDocumentConfig()
	default:
		return nil
	}
}
