package plugin

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound 表示按名称找不到插件（grabber/formatter）。
var ErrNotFound = errors.New("module not found")

// Named 是可注册到 Registry 的插件条目。
type Named interface {
	PluginName() string
}

// NotFoundError 携带插件类型与请求的名称；errors.Is(err, ErrNotFound) 为 true。
type NotFoundError struct {
	Kind string // "grabber" / "formatter"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.Name, ErrNotFound)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Registry 是插件的只读注册表（按 name 索引）。
// 插件数量极小，map 查找即可；进程启动时构造一次，之后只读。
type Registry[T Named] struct {
	kind   string
	byName map[string]T
}

func NewRegistry[T Named](kind string, entries ...T) (Registry[T], error) {
	byName := make(map[string]T, len(entries))
	for _, e := range entries {
		name := normName(e.PluginName())
		if name == "" {
			return Registry[T]{}, fmt.Errorf("%s 名称不能为空", kind)
		}
		if _, ok := byName[name]; ok {
			return Registry[T]{}, fmt.Errorf("重复的 %s：%q", kind, name)
		}
		byName[name] = e
	}
	return Registry[T]{kind: kind, byName: byName}, nil
}

// Get 按名称查找；找不到时返回 *NotFoundError（没有任何回退）。
func (r Registry[T]) Get(name string) (T, error) {
	var zero T
	n := normName(name)
	if r.byName != nil {
		if e, ok := r.byName[n]; ok {
			return e, nil
		}
	}
	return zero, &NotFoundError{Kind: r.kind, Name: n}
}

// Names 返回已注册名称（字典序）。
func (r Registry[T]) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func normName(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
