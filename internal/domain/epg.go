package domain

import "errors"

// EPG 是一次运行的节目指南聚合根。
//
// 约束：
// - 由 orchestrator 每次运行创建一次；grabber 负责写入，formatter 只读
// - 各集合保持插入顺序（formatter 的确定性依赖这一点）
// - 不做唯一性以外的校验：同 ID 的实体重复 Add 时返回已存储的那个
// - 单 goroutine 使用，不加锁
type EPG struct {
	channels  []*Channel
	brands    []*Brand
	series    []*Series
	episodes  []*Episode
	schedules []*Schedule

	channelByID map[string]*Channel
	brandByID   map[string]*Brand
	seriesByID  map[string]*Series
	episodeByID map[string]*Episode
}

var ErrInvalidSchedule = errors.New("schedule 必须同时引用 episode 与 channel")

// Stats 是 EPG 的计数快照（用于运行结束时的摘要输出）。
type Stats struct {
	Channels  int
	Brands    int
	Series    int
	Episodes  int
	Schedules int
}

func NewEPG() *EPG {
	return &EPG{
		channelByID: make(map[string]*Channel),
		brandByID:   make(map[string]*Brand),
		seriesByID:  make(map[string]*Series),
		episodeByID: make(map[string]*Episode),
	}
}

// AddChannel 添加频道；ID 已存在时返回已存储的频道（不覆盖）。
// ID 为空的实体不参与去重。
func (e *EPG) AddChannel(c *Channel) *Channel {
	if c == nil {
		return nil
	}
	if c.ID != "" {
		if old, ok := e.channelByID[c.ID]; ok {
			return old
		}
		e.channelByID[c.ID] = c
	}
	e.channels = append(e.channels, c)
	return c
}

func (e *EPG) AddBrand(b *Brand) *Brand {
	if b == nil {
		return nil
	}
	if b.ID != "" {
		if old, ok := e.brandByID[b.ID]; ok {
			return old
		}
		e.brandByID[b.ID] = b
	}
	e.brands = append(e.brands, b)
	return b
}

func (e *EPG) AddSeries(s *Series) *Series {
	if s == nil {
		return nil
	}
	if s.ID != "" {
		if old, ok := e.seriesByID[s.ID]; ok {
			return old
		}
		e.seriesByID[s.ID] = s
	}
	e.series = append(e.series, s)
	return s
}

func (e *EPG) AddEpisode(ep *Episode) *Episode {
	if ep == nil {
		return nil
	}
	if ep.ID != "" {
		if old, ok := e.episodeByID[ep.ID]; ok {
			return old
		}
		e.episodeByID[ep.ID] = ep
	}
	e.episodes = append(e.episodes, ep)
	return ep
}

// AddSchedule 记录一次播出。Episode/Channel 缺一即返回 ErrInvalidSchedule。
func (e *EPG) AddSchedule(s *Schedule) error {
	if s == nil || s.Episode == nil || s.Channel == nil {
		return ErrInvalidSchedule
	}
	e.schedules = append(e.schedules, s)
	return nil
}

func (e *EPG) Channels() []*Channel   { return e.channels }
func (e *EPG) Brands() []*Brand       { return e.brands }
func (e *EPG) Series() []*Series      { return e.series }
func (e *EPG) Episodes() []*Episode   { return e.episodes }
func (e *EPG) Schedules() []*Schedule { return e.schedules }
func (e *EPG) ScheduleCount() int     { return len(e.schedules) }

func (e *EPG) Channel(id string) (*Channel, bool) {
	c, ok := e.channelByID[id]
	return c, ok
}

func (e *EPG) Brand(id string) (*Brand, bool) {
	b, ok := e.brandByID[id]
	return b, ok
}

func (e *EPG) SeriesByID(id string) (*Series, bool) {
	s, ok := e.seriesByID[id]
	return s, ok
}

func (e *EPG) Episode(id string) (*Episode, bool) {
	ep, ok := e.episodeByID[id]
	return ep, ok
}

func (e *EPG) Stats() Stats {
	return Stats{
		Channels:  len(e.channels),
		Brands:    len(e.brands),
		Series:    len(e.series),
		Episodes:  len(e.episodes),
		Schedules: e.ScheduleCount(),
	}
}
