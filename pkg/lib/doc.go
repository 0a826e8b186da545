// Package lib 包含基础设施工具库
//
// 本目录包含与 DHT 架构组件无关的通用工具库：
//
//   - log: 日志封装
package lib
