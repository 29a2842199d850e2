// Package plugin_manager file: internal/service/plugin_manager/registry.go
package plugin_manager

import (
	"PlugShell/internal/core/domain"
	"PlugShell/internal/observe"
	"sort"
	"sync"
)

// ActiveRegistry 是当前已启用且兼容的插件描述符表 (id -> 描述符)。
// 其中每个 id 在目录中都对应一行 enabled = true 的记录，反之不一定成立。
type ActiveRegistry struct {
	mu      sync.RWMutex
	plugins map[int64]*domain.Descriptor
}

func NewActiveRegistry() *ActiveRegistry {
	return &ActiveRegistry{plugins: make(map[int64]*domain.Descriptor)}
}

// Put 插入或替换 id 对应的描述符
func (r *ActiveRegistry) Put(id int64, desc *domain.Descriptor) {
	r.mu.Lock()
	r.plugins[id] = desc
	n := len(r.plugins)
	r.mu.Unlock()
	observe.SetActivePlugins(n)
}

// Delete 移除 id，返回其之前是否存在
func (r *ActiveRegistry) Delete(id int64) bool {
	r.mu.Lock()
	_, ok := r.plugins[id]
	delete(r.plugins, id)
	n := len(r.plugins)
	r.mu.Unlock()
	observe.SetActivePlugins(n)
	return ok
}

func (r *ActiveRegistry) Get(id int64) (*domain.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.plugins[id]
	return desc, ok
}

func (r *ActiveRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// IDs 返回升序排列的活动插件 id
func (r *ActiveRegistry) IDs() []int64 {
	r.mu.RLock()
	ids := make([]int64, 0, len(r.plugins))
	for id := range r.plugins {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IDsByPath 返回可执行文件位于 path 的活动插件 id
func (r *ActiveRegistry) IDsByPath(path string) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []int64
	for id, desc := range r.plugins {
		if desc.Path == path {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Snapshot 返回注册表的浅拷贝
func (r *ActiveRegistry) Snapshot() map[int64]*domain.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[int64]*domain.Descriptor, len(r.plugins))
	for id, desc := range r.plugins {
		out[id] = desc
	}
	return out
}
