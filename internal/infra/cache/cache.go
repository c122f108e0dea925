package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/John-Robertt/epgrab/internal/infra/fsx"
)

// Store 提供 <root>/cache/ 下按 namespace + key 组织的文件缓存，用于避免重复抓取。
//
// 约束：
// - namespace 通常是 grabber 名称；key 可以包含 '/' 分段（例如 bbcone/2026-10-16.json）
// - 每个分段都必须是安全文件名（禁止路径穿越）
// - MaxAge>0 时，修改时间早于 MaxAge 的条目视为未命中
// - Put 把条目的修改时间设为 Clock()，Get 与 Prune 以同一时钟判断新鲜度
type Store struct {
	Dir    string // <root>/cache
	MaxAge time.Duration
	// ReadOnly 时只读不写（对应配置 cache.read_only，用于离线重放已有缓存）。
	ReadOnly bool
	// Disabled 时 Get 总是未命中、Put 什么也不做（对应配置 cache.disabled）。
	Disabled bool
	// Clock 为空时使用 time.Now。
	Clock func() time.Time
}

var ErrReadOnly = errors.New("cache: read-only")

func (s Store) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func New(dir string, maxAge time.Duration) Store {
	return Store{
		Dir:    filepath.Clean(strings.TrimSpace(dir)),
		MaxAge: maxAge,
	}
}

// Path 返回缓存条目的绝对路径。
func (s Store) Path(ns, key string) (string, error) {
	ns, err := cleanSegment(ns)
	if err != nil {
		return "", err
	}
	parts := strings.Split(strings.TrimSpace(key), "/")
	elems := make([]string, 0, len(parts)+2)
	elems = append(elems, s.Dir, ns)
	for _, p := range parts {
		p, err := cleanSegment(p)
		if err != nil {
			return "", fmt.Errorf("非法缓存 key %q：%w", key, err)
		}
		elems = append(elems, p)
	}
	return filepath.Join(elems...), nil
}

// Get 读取缓存。不存在或已过期时返回 ok=false（不是错误）。
func (s Store) Get(ns, key string) ([]byte, bool, error) {
	if s.Disabled {
		return nil, false, nil
	}
	path, err := s.Path(ns, key)
	if err != nil {
		return nil, false, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if s.MaxAge > 0 && s.now().Sub(fi.ModTime()) > s.MaxAge {
		return nil, false, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s Store) Put(ns, key string, data []byte) error {
	if s.Disabled {
		return nil
	}
	if s.ReadOnly {
		return ErrReadOnly
	}
	path, err := s.Path(ns, key)
	if err != nil {
		return err
	}
	return fsx.WriteFile(path, data, fsx.WriteOptions{ModTime: s.now()})
}

var segmentRE = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9._-]*$`)

func cleanSegment(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("缓存路径分段不能为空")
	}
	// 最小约束：不允许以 '.' 开头（排除 ".." 与隐藏文件），只允许安全字符。
	if !segmentRE.MatchString(p) {
		return "", fmt.Errorf("非法缓存路径分段：%q", p)
	}
	return p, nil
}
