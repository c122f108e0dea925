package grabber

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/John-Robertt/epgrab/internal/config"
	"github.com/John-Robertt/epgrab/internal/domain"
	"github.com/John-Robertt/epgrab/internal/infra/cache"
	"github.com/John-Robertt/epgrab/internal/infra/logx"
)

// Grabber 把“数据源变化”限制在各自的包内部；核心流程只依赖这个接口与 domain.EPG。
//
// 约束：
// - channels 为空表示“数据源列出的全部频道”；否则只抓取列出的频道，按给定顺序
// - [start, end) 是抓取窗口；start==end 时不抓取任何节目
// - Grab 直接修改 epg，失败原样返回（不重试、不降级）
type Grabber interface {
	Grab(ctx context.Context, epg *domain.EPG, channels []string, start, end time.Time) error
}

// Env 是一次运行内 grabber 可用的协作者（由 orchestrator 构造并注入）。
type Env struct {
	Config config.Config
	Cache  cache.Store
	HTTP   *http.Client
	Log    *logx.Logger
}

// Factory 是注册表中的条目：按名称选择，按运行环境构造。
type Factory struct {
	Name string
	New  func(env Env) (Grabber, error)
}

func (f Factory) PluginName() string { return f.Name }

// Error 是 grabber 阶段的可追溯错误。
type Error struct {
	Grabber string
	Stage   string // "channels" / "schedule" / "parse"
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("grabber=%s stage=%s: %v", e.Grabber, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
