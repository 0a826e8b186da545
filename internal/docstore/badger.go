package docstore

import (
	"context"
	"errors"
	"strings"

	"github.com/dep2p/go-ldht/internal/core/storage/engine"
	"github.com/dep2p/go-ldht/internal/core/storage/kv"
	"github.com/dep2p/go-ldht/pkg/lib/log"
)

var logger = log.Logger("docstore")

// 键前缀
var (
	prefixDocs       = []byte("ds/d")
	prefixContainers = []byte("ds/c")
	prefixAccess     = []byte("ds/a")
)

// BadgerStore 基于 BadgerDB 的文档存储
//
// 文档、容器、访问规则分别存放在三个前缀下，位置直接作为子键：
//
//	ds/d/nodes/c1/7/node           -> 文档内容
//	ds/c/nodes/c1/7/               -> 容器标记
//	ds/a/nodes/c1/                 -> AccessRule JSON
type BadgerStore struct {
	docs       *kv.Store
	containers *kv.Store
	access     *kv.Store
}

// NewBadgerStore 在存储引擎上创建文档存储
func NewBadgerStore(eng engine.Engine) *BadgerStore {
	return &BadgerStore{
		docs:       kv.New(eng, prefixDocs),
		containers: kv.New(eng, prefixContainers),
		access:     kv.New(eng, prefixAccess),
	}
}

// CreateContainer 创建容器及其所有祖先
func (s *BadgerStore) CreateContainer(_ context.Context, location string) error {
	if !validLocation(location) || !IsContainer(location) {
		return ErrInvalidLocation
	}

	for loc := location; loc != ""; loc = Parent(loc) {
		ok, err := s.containers.Has([]byte(loc))
		if err != nil {
			return err
		}
		if ok {
			// 祖先一定已存在
			return nil
		}
		if err := s.containers.Put([]byte(loc), []byte{1}); err != nil {
			return err
		}
	}
	return nil
}

// Read 读取文档
func (s *BadgerStore) Read(_ context.Context, location string) ([]byte, error) {
	if !validLocation(location) || IsContainer(location) {
		return nil, ErrInvalidLocation
	}

	data, err := s.docs.Get([]byte(location))
	if engine.IsNotFound(err) {
		return nil, ErrNotFound
	}
	return data, err
}

// Write 创建或覆盖文档
func (s *BadgerStore) Write(_ context.Context, location string, data []byte) error {
	if err := s.checkDocument(location); err != nil {
		return err
	}
	return s.docs.Put([]byte(location), data)
}

// Append 在容器下创建新文档
func (s *BadgerStore) Append(ctx context.Context, container, name string, data []byte) (string, error) {
	if !IsContainer(container) || name == "" || strings.Contains(name, "/") {
		return "", ErrInvalidLocation
	}

	rule, _, err := s.Access(ctx, container)
	if err != nil {
		return "", err
	}
	if !rule.Append {
		return "", ErrAccessDenied
	}

	location := container + name
	if err := s.checkDocument(location); err != nil {
		return "", err
	}

	if err := s.docs.Create([]byte(location), data); err != nil {
		if errors.Is(err, kv.ErrExists) {
			return "", ErrExists
		}
		return "", err
	}
	return location, nil
}

// SetAccess 设置容器访问规则
func (s *BadgerStore) SetAccess(_ context.Context, location string, rule AccessRule) error {
	if !validLocation(location) || !IsContainer(location) {
		return ErrInvalidLocation
	}
	ok, err := s.containers.Has([]byte(location))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoContainer
	}
	return s.access.PutJSON([]byte(location), rule)
}

// Access 返回有效访问规则
//
// 从容器自身向上查找第一个显式设置的规则；都没有时返回全部允许。
func (s *BadgerStore) Access(_ context.Context, location string) (AccessRule, bool, error) {
	for loc := location; loc != ""; loc = Parent(loc) {
		var rule AccessRule
		err := s.access.GetJSON([]byte(loc), &rule)
		if err == nil {
			return rule, true, nil
		}
		if !engine.IsNotFound(err) {
			return AccessRule{}, false, err
		}
	}
	return AccessRule{Read: true, Write: true, Append: true}, false, nil
}

// List 列出容器下的直接子文档
func (s *BadgerStore) List(_ context.Context, container string) ([]string, error) {
	if !IsContainer(container) {
		return nil, ErrInvalidLocation
	}

	var out []string
	err := s.docs.PrefixScan([]byte(container), func(key, _ []byte) bool {
		rest := string(key[len(container):])
		if rest != "" && !strings.Contains(rest, "/") {
			out = append(out, string(key))
		}
		return true
	})
	return out, err
}

// Watch 监听前缀下的文档变更
func (s *BadgerStore) Watch(ctx context.Context, prefix string, fn func(location string, data []byte)) error {
	err := s.docs.Subscribe(ctx, []byte(prefix), func(key, value []byte) error {
		if len(value) == 0 {
			return nil
		}
		fn(string(key), value)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		logger.Debug("文档订阅结束", "prefix", prefix, "error", err)
	}
	return err
}

// checkDocument 检查文档位置合法且父容器存在
func (s *BadgerStore) checkDocument(location string) error {
	if !validLocation(location) || IsContainer(location) {
		return ErrInvalidLocation
	}
	ok, err := s.containers.Has([]byte(Parent(location)))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoContainer
	}
	return nil
}

// 编译时检查接口实现
var _ Store = (*BadgerStore)(nil)
