package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/epgrab/internal/app/run"
	"github.com/John-Robertt/epgrab/internal/config"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的阶段输出。
//
// 约束：
// - 只写 stderr（或 progressWriter 选出的终端），不污染 stdout 上的节目单文档
// - run 层只发事件，这里决定如何展示
type progressUI struct {
	w io.Writer

	mu        sync.Mutex
	startedAt time.Time
	now       func() time.Time
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w, now: time.Now}
}

func (p *progressUI) OnStart(cfg config.Config) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	fmt.Fprintf(p.w, "[%s] epgrab\n", now.Format("15:04:05"))
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  root: %s\n", cfg.Root)
	fmt.Fprintf(p.w, "  grabber: %s\n", cfg.Grabber)
	fmt.Fprintf(p.w, "  formatter: %s\n", cfg.Formatter)
	fmt.Fprintf(p.w, "  days: %d\n", cfg.Days)
	fmt.Fprintf(p.w, "  channels: %s\n", formatStringListJSON(cfg.Channels))
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(cfg.HTTP.Proxy))
	fmt.Fprintf(p.w, "  cache: %s\n", formatCache(cfg))
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "config":
		fmt.Fprintf(p.w, "配置: channels=%d days=%d (%s)\n",
			intField(fields, "channels"), intField(fields, "days"), formatShortDuration(dur),
		)
	case "grab":
		fmt.Fprintf(p.w, "抓取: channels=%d schedules=%d (%s)\n",
			intField(fields, "channels"), intField(fields, "schedules"), formatShortDuration(dur),
		)
	case "format":
		fmt.Fprintf(p.w, "输出: formatter=%v (%s)\n", fields["formatter"], formatShortDuration(dur))
		if !p.startedAt.IsZero() {
			fmt.Fprintf(p.w, "总耗时: %s\n", formatElapsed(p.now().Sub(p.startedAt)))
		}
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func formatCache(cfg config.Config) string {
	if cfg.Cache.Disabled {
		return "off"
	}
	if cfg.Cache.MaxAge <= 0 {
		return cfg.CacheDir() + " (max_age=∞)"
	}
	return fmt.Sprintf("%s (max_age=%s)", cfg.CacheDir(), cfg.Cache.MaxAge)
}

// formatProxy 只展示 scheme 与 host，不回显用户名密码。
func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func formatStringListJSON(xs []string) string {
	// json.Marshal(nil slice) => "null"；对用户更友好的是 "[]"
	if xs == nil {
		xs = []string{}
	}
	b, err := json.Marshal(xs)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
}

func intField(fields map[string]any, key string) int {
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}

// progressWriter 只在 w 是交互终端时启用阶段输出。
func progressWriter(w io.Writer) (io.Writer, bool) {
	f, ok := w.(*os.File)
	if !ok || !isTTY(f) {
		return nil, false
	}
	return f, true
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
