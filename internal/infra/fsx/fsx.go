package fsx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// ErrNotRegular 表示写入目标已存在但不是普通文件（例如目录或设备）。
var ErrNotRegular = errors.New("目标不是普通文件")

// WriteOptions 控制 WriteFile 的落盘细节。
type WriteOptions struct {
	// Perm 是新建文件的权限，为 0 时使用 0o644；覆盖已有文件时沿用其原权限。
	Perm os.FileMode
	// ModTime 非零时在替换前写入临时文件，缓存的新鲜度判断与清理都依赖它。
	ModTime time.Time
	// NoClobber 为 true 时目标已存在即返回 os.ErrExist（--init 不覆盖用户配置）。
	NoClobber bool
}

// CheckTarget 在真正写入之前检查输出路径，返回实际要写的路径（符号链接解析到其目标）。
//
// - 不存在：可以写（父目录会在写入时创建）
// - 普通文件：可以覆盖
// - 目录或其他特殊文件：ErrNotRegular
func CheckTarget(path string) (string, error) {
	path = filepath.Clean(path)
	fi, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return path, nil
	}
	if err != nil {
		return "", err
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return "", fmt.Errorf("解析符号链接 %s 失败：%w", path, err)
		}
		if fi, err = os.Stat(real); err != nil {
			return "", err
		}
		path = real
	}
	if !fi.Mode().IsRegular() {
		return "", fmt.Errorf("%s：%w", path, ErrNotRegular)
	}
	return path, nil
}

// WriteFile 原子写入 path：同目录临时文件写完并 Sync 后 rename 覆盖目标。
// 失败时目标保持原样，也不会留下临时文件。
func WriteFile(path string, data []byte, opts WriteOptions) error {
	target, err := CheckTarget(path)
	if err != nil {
		return err
	}

	perm := opts.Perm
	if perm == 0 {
		perm = 0o644
	}
	if fi, err := os.Stat(target); err == nil {
		if opts.NoClobber {
			return fmt.Errorf("%s：%w", target, os.ErrExist)
		}
		perm = fi.Mode().Perm()
	}

	dir, name := filepath.Split(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if !opts.ModTime.IsZero() {
		if err := os.Chtimes(tmpName, opts.ModTime, opts.ModTime); err != nil {
			return err
		}
	}
	if err := os.Rename(tmpName, target); err != nil {
		return err
	}

	// Windows 上目录 Sync 不可用，跳过。
	if runtime.GOOS != "windows" {
		if d, err := os.Open(dir); err == nil {
			_ = d.Sync()
			_ = d.Close()
		}
	}
	return nil
}
