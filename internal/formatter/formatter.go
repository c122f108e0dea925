package formatter

import (
	"io"
	"sort"

	"github.com/John-Robertt/epgrab/internal/config"
	"github.com/John-Robertt/epgrab/internal/domain"
	"github.com/John-Robertt/epgrab/internal/infra/logx"
)

// Formatter 把 EPG 序列化到 w。
//
// 约束：
// - 不修改 epg
// - 同一个 EPG 必须产生逐字节相同的输出
type Formatter interface {
	Format(epg *domain.EPG, w io.Writer) error
}

// Env 是一次运行内 formatter 可用的协作者。
type Env struct {
	Config config.Config
	Log    *logx.Logger
}

type Factory struct {
	Name string
	New  func(env Env) (Formatter, error)
}

func (f Factory) PluginName() string { return f.Name }

// SortedSchedules 返回按（频道插入顺序, 开始时间, episode ID）排序的播出列表。
// 不属于 epg 频道列表的播出排在最后，彼此之间保持插入顺序。
func SortedSchedules(epg *domain.EPG) []*domain.Schedule {
	order := make(map[*domain.Channel]int)
	for i, c := range epg.Channels() {
		order[c] = i
	}
	rank := func(c *domain.Channel) int {
		if i, ok := order[c]; ok {
			return i
		}
		return len(order)
	}

	out := append([]*domain.Schedule(nil), epg.Schedules()...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ra, rb := rank(a.Channel), rank(b.Channel); ra != rb {
			return ra < rb
		}
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.Episode.ID < b.Episode.ID
	})
	return out
}
