package docstore

import (
	"context"
	"errors"
	"strings"
)

// 预定义错误
var (
	// ErrNotFound 文档不存在
	ErrNotFound = errors.New("docstore: document not found")

	// ErrExists 文档已存在
	ErrExists = errors.New("docstore: document already exists")

	// ErrAccessDenied 访问规则不允许该操作
	ErrAccessDenied = errors.New("docstore: access denied")

	// ErrNoContainer 父容器不存在
	ErrNoContainer = errors.New("docstore: container does not exist")

	// ErrInvalidLocation 无效位置
	ErrInvalidLocation = errors.New("docstore: invalid location")
)

// AccessRule 容器访问规则
type AccessRule struct {
	Read   bool `json:"read"`
	Write  bool `json:"write"`
	Append bool `json:"append"`
}

// 常用规则
var (
	// ReadOnly 只读
	ReadOnly = AccessRule{Read: true}

	// ReadAppend 可读、可追加（收件箱）
	ReadAppend = AccessRule{Read: true, Append: true}
)

// Store 文档存储接口
//
// 所有方法线程安全。
type Store interface {
	// CreateContainer 创建容器，必要时创建所有祖先容器；已存在时不报错
	CreateContainer(ctx context.Context, location string) error

	// Read 读取文档
	//
	// 返回:
	//   - error: ErrNotFound 如果文档不存在
	Read(ctx context.Context, location string) ([]byte, error)

	// Write 创建或覆盖文档（所有者操作）
	//
	// 返回:
	//   - error: ErrNoContainer 如果父容器不存在
	Write(ctx context.Context, location string, data []byte) error

	// Append 在容器下以给定名称创建新文档
	//
	// 仅在文档不存在时创建，受容器访问规则约束。
	//
	// 返回:
	//   - string: 新文档位置
	//   - error: ErrExists / ErrAccessDenied / ErrNoContainer
	Append(ctx context.Context, container, name string, data []byte) (string, error)

	// SetAccess 设置容器访问规则
	SetAccess(ctx context.Context, location string, rule AccessRule) error

	// Access 返回容器的有效访问规则以及是否显式设置过
	Access(ctx context.Context, location string) (AccessRule, bool, error)

	// List 列出容器下的直接子文档位置（按字典序）
	List(ctx context.Context, container string) ([]string, error)

	// Watch 监听前缀下的文档变更
	//
	// 阻塞直到 ctx 取消。只推送订阅生效之后的写入。
	Watch(ctx context.Context, prefix string, fn func(location string, data []byte)) error
}

// ============================================================================
//                              路径工具
// ============================================================================

// IsContainer 判断位置是否为容器
func IsContainer(location string) bool {
	return strings.HasSuffix(location, "/")
}

// Join 拼接路径片段
//
// Join("/nodes/", "c1", "7/") == "/nodes/c1/7/"
func Join(base string, parts ...string) string {
	var b strings.Builder
	b.WriteString(base)
	for _, p := range parts {
		if !strings.HasSuffix(b.String(), "/") {
			b.WriteByte('/')
		}
		b.WriteString(strings.TrimPrefix(p, "/"))
	}
	return b.String()
}

// Parent 返回位置的父容器
//
// Parent("/a/b/c") == "/a/b/"，Parent("/a/b/") == "/a/"，Parent("/") == ""
func Parent(location string) string {
	trimmed := strings.TrimSuffix(location, "/")
	if trimmed == "" {
		return ""
	}
	i := strings.LastIndex(trimmed, "/")
	if i < 0 {
		return ""
	}
	return trimmed[:i+1]
}

// Name 返回位置的最后一段（不含末尾的 "/"）
func Name(location string) string {
	trimmed := strings.TrimSuffix(location, "/")
	return trimmed[strings.LastIndex(trimmed, "/")+1:]
}

// validLocation 位置必须是绝对路径
func validLocation(location string) bool {
	return strings.HasPrefix(location, "/") && !strings.Contains(location, "//")
}
