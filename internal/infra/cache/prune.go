package cache

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Prune 删除 Dir 下修改时间早于 now-MaxAge 的缓存文件，返回被删除文件的相对路径（已排序）。
//
// 规则：
// - MaxAge<=0、Disabled 或 ReadOnly 时什么也不做
// - Dir 不存在不是错误（首次运行）
// - 只删除普通文件；目录保留（下一次 Put 会复用）
func (s Store) Prune(now time.Time) ([]string, error) {
	if s.MaxAge <= 0 || s.Disabled || s.ReadOnly {
		return nil, nil
	}
	root := filepath.Clean(s.Dir)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}
	cutoff := now.Add(-s.MaxAge)

	var removed []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		removed = append(removed, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return removed, err
	}

	// 强制稳定输出，避免不同文件系统的遍历顺序差异。
	sort.Strings(removed)
	return removed, nil
}
