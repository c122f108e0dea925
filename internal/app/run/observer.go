package run

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/John-Robertt/epgrab/internal/config"
	"github.com/John-Robertt/epgrab/internal/infra/logx"
)

// Observer 把运行阶段事件从核心流程中解耦出来（CLI 进度、测试断言等）。
//
// 约束：
// - run 包只发事件；是否输出、输出到哪里由实现决定
// - 单次运行内事件按顺序同步发出：config → grab → format
type Observer interface {
	// OnStart 在配置加载完成后调用一次。
	OnStart(cfg config.Config)
	// OnPhaseDone 在阶段结束时调用（fields 为阶段统计）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
}

// LogObserver 把阶段事件以 DEBUG 级别写入日志（默认 observer）。
type LogObserver struct {
	Log *logx.Logger
}

func (o LogObserver) OnStart(cfg config.Config) {
	o.Log.Emit(logx.DEBUG, "root=%s grabber=%s formatter=%s days=%d", cfg.Root, cfg.Grabber, cfg.Formatter, cfg.Days)
}

func (o LogObserver) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	o.Log.Emit(logx.DEBUG, "%s 完成 %s（%s）", name, formatFields(fields), dur.Round(time.Millisecond))
}

// formatFields 按 key 排序输出 k=v，保证日志稳定。
func formatFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " ")
}
