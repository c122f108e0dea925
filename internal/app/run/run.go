package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/John-Robertt/epgrab/internal/builtin"
	"github.com/John-Robertt/epgrab/internal/config"
	"github.com/John-Robertt/epgrab/internal/domain"
	"github.com/John-Robertt/epgrab/internal/formatter"
	"github.com/John-Robertt/epgrab/internal/grabber"
	"github.com/John-Robertt/epgrab/internal/infra/cache"
	"github.com/John-Robertt/epgrab/internal/infra/httpx"
	"github.com/John-Robertt/epgrab/internal/infra/logx"
	"github.com/John-Robertt/epgrab/internal/plugin"
)

// Options 是一次运行的全部输入；零值字段使用默认值。
type Options struct {
	// Root 为配置根目录；为空时使用 ~/.epgrab。
	Root string
	// Overrides 覆盖配置（优先级最高），key 支持点分路径。
	Overrides map[string]any

	Out    io.Writer // formatter 输出；默认 stdout
	LogOut io.Writer // 日志输出；默认 stderr
	Now    func() time.Time

	// 为空时使用内置注册表。
	Grabbers   plugin.Registry[grabber.Factory]
	Formatters plugin.Registry[formatter.Factory]

	Observer Observer
}

// Main 执行一次完整运行：加载配置 → 解析插件 → 抓取 → 格式化 → 输出统计。
//
// 约束：
// - 全程同步、单 goroutine；日志、缓存、HTTP client 都在本次调用内构造并注入，不使用包级全局
// - 插件名称在任何抓取之前解析；未知名称返回 plugin.ErrNotFound
// - 不重试、不降级：第一个错误即返回（带阶段前缀）
func Main(ctx context.Context, opts Options) (domain.Stats, error) {
	cfgStarted := time.Now()
	cfg, err := config.Load(opts.Root, opts.Overrides)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("config: %w", err)
	}

	level, err := logx.ParseLevel(cfg.Log.Level)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("config: %w", err)
	}
	logOut := opts.LogOut
	if logOut == nil {
		logOut = os.Stderr
	}
	log := logx.New(logOut, level, cfg.Log.Color)

	obs := opts.Observer
	if obs == nil {
		obs = LogObserver{Log: log.Named("run")}
	}
	obs.OnStart(cfg)
	obs.OnPhaseDone("config", map[string]any{
		"channels": len(cfg.Channels),
		"days":     cfg.Days,
	}, time.Since(cfgStarted))

	grabbers := opts.Grabbers
	if len(grabbers.Names()) == 0 {
		grabbers = builtin.Grabbers()
	}
	formatters := opts.Formatters
	if len(formatters.Names()) == 0 {
		formatters = builtin.Formatters()
	}
	gf, err := grabbers.Get(cfg.Grabber)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("grabber: %w", err)
	}
	ff, err := formatters.Get(cfg.Formatter)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("formatter: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	store := cache.New(cfg.CacheDir(), cfg.Cache.MaxAge)
	store.Disabled = cfg.Cache.Disabled
	store.ReadOnly = cfg.Cache.ReadOnly
	store.Clock = now
	if removed, err := store.Prune(now()); err != nil {
		log.Emit(logx.WARNING, "清理过期缓存失败：%v", err)
	} else if len(removed) > 0 {
		log.Named("cache").Emit(logx.DEBUG, "清理过期缓存 %d 个", len(removed))
	}
	client, err := httpx.NewClient(httpx.Options{
		ProxyURL:  cfg.HTTP.Proxy,
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
	})
	if err != nil {
		return domain.Stats{}, fmt.Errorf("http: %w", err)
	}

	g, err := gf.New(grabber.Env{Config: cfg, Cache: store, HTTP: client, Log: log})
	if err != nil {
		return domain.Stats{}, fmt.Errorf("grabber: %w", err)
	}
	f, err := ff.New(formatter.Env{Config: cfg, Log: log})
	if err != nil {
		return domain.Stats{}, fmt.Errorf("formatter: %w", err)
	}

	start := now()
	end := start.AddDate(0, 0, cfg.Days)

	epg := domain.NewEPG()
	grabStarted := time.Now()
	if err := g.Grab(ctx, epg, cfg.Channels, start, end); err != nil {
		return epg.Stats(), fmt.Errorf("grab: %w", err)
	}
	st := epg.Stats()
	obs.OnPhaseDone("grab", map[string]any{
		"channels":  st.Channels,
		"schedules": st.Schedules,
	}, time.Since(grabStarted))

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	formatStarted := time.Now()
	if err := f.Format(epg, out); err != nil {
		return st, fmt.Errorf("format: %w", err)
	}
	obs.OnPhaseDone("format", map[string]any{"formatter": ff.Name}, time.Since(formatStarted))

	logStats(log, st)
	return st, nil
}

// logStats 输出运行摘要，顺序固定：channels, brands, series, episodes, schedules。
func logStats(log *logx.Logger, st domain.Stats) {
	log.Emit(logx.INFO, "Channels  : %d", st.Channels)
	log.Emit(logx.INFO, "Brands    : %d", st.Brands)
	log.Emit(logx.INFO, "Series    : %d", st.Series)
	log.Emit(logx.INFO, "Episodes  : %d", st.Episodes)
	log.Emit(logx.INFO, "Schedules : %d", st.Schedules)
}
