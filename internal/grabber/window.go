package grabber

import (
	"time"

	"github.com/John-Robertt/epgrab/internal/domain"
)

// Day 是按自然日切分后的一段抓取窗口。
type Day struct {
	Date string // 2006-01-02（loc 下的日期）
	From time.Time
	To   time.Time
}

// Days 把 [start, end) 切成覆盖它的自然日（loc 下的零点对齐）。
// 按整天切分让缓存 key 与运行时刻无关；start>=end 时返回空。
func Days(start, end time.Time, loc *time.Location) []Day {
	if loc == nil {
		loc = time.UTC
	}
	if !start.Before(end) {
		return nil
	}
	s := start.In(loc)
	day := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)

	var out []Day
	for day.Before(end) {
		next := day.AddDate(0, 0, 1)
		out = append(out, Day{Date: day.Format("2006-01-02"), From: day, To: next})
		day = next
	}
	return out
}

// Overlaps 判断一次播出是否与 [start, end) 有交集；stop 未知时只看开始时间。
func Overlaps(from, stop, start, end time.Time) bool {
	if !from.Before(end) {
		return false
	}
	if stop.IsZero() {
		return !from.Before(start)
	}
	return stop.After(start)
}

// SelectChannels 按过滤条件选择频道。
//
// - want 为空：返回 all（保持数据源顺序）
// - want 非空：按 want 顺序返回；数据源没有列出的 ID 也会返回一个只有 ID 的频道，
//   由调用方决定是否继续抓取（missing 返回这些 ID）
func SelectChannels(all []*domain.Channel, want []string) (out []*domain.Channel, missing []string) {
	if len(want) == 0 {
		return all, nil
	}
	byID := make(map[string]*domain.Channel, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}
	out = make([]*domain.Channel, 0, len(want))
	for _, id := range want {
		if c, ok := byID[id]; ok {
			out = append(out, c)
			continue
		}
		missing = append(missing, id)
		out = append(out, &domain.Channel{ID: id, Title: id})
	}
	return out, missing
}
