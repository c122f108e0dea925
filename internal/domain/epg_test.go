package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestEPG_AddKeepsInsertionOrderAndDedupesByID(t *testing.T) {
	e := NewEPG()

	e.AddChannel(&Channel{ID: "b", Title: "B"})
	e.AddChannel(&Channel{ID: "a", Title: "A"})
	dup := e.AddChannel(&Channel{ID: "b", Title: "B2"})
	if dup.Title != "B" {
		t.Fatalf("重复 ID 应返回已存储实体，实际 title=%q", dup.Title)
	}

	var got []string
	for _, c := range e.Channels() {
		got = append(got, c.ID)
	}
	if diff := cmp.Diff([]string{"b", "a"}, got); diff != "" {
		t.Fatalf("channels 顺序不符合预期 (-want +got):\n%s", diff)
	}

	if c, ok := e.Channel("a"); !ok || c.Title != "A" {
		t.Fatalf("按 ID 查找失败：%+v ok=%v", c, ok)
	}
}

func TestEPG_EmptyIDNotDeduped(t *testing.T) {
	e := NewEPG()
	e.AddEpisode(&Episode{Title: "x"})
	e.AddEpisode(&Episode{Title: "y"})
	if len(e.Episodes()) != 2 {
		t.Fatalf("空 ID 不应参与去重，实际 %d", len(e.Episodes()))
	}
}

func TestEPG_AddScheduleRequiresEpisodeAndChannel(t *testing.T) {
	e := NewEPG()
	ch := e.AddChannel(&Channel{ID: "c"})
	ep := e.AddEpisode(&Episode{ID: "e"})

	if err := e.AddSchedule(&Schedule{Channel: ch}); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("期望 ErrInvalidSchedule，实际：%v", err)
	}
	if err := e.AddSchedule(&Schedule{Episode: ep}); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("期望 ErrInvalidSchedule，实际：%v", err)
	}
	if err := e.AddSchedule(nil); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("期望 ErrInvalidSchedule，实际：%v", err)
	}
	if err := e.AddSchedule(&Schedule{Channel: ch, Episode: ep}); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if e.ScheduleCount() != 1 {
		t.Fatalf("期望 1 条 schedule，实际 %d", e.ScheduleCount())
	}
}

func TestEPG_Stats(t *testing.T) {
	e := NewEPG()
	ch := e.AddChannel(&Channel{ID: "c"})
	b := e.AddBrand(&Brand{ID: "b"})
	s := e.AddSeries(&Series{ID: "s", Brand: b})
	ep := e.AddEpisode(&Episode{ID: "e", Series: s, Brand: b})
	_ = e.AddSchedule(&Schedule{Channel: ch, Episode: ep})
	_ = e.AddSchedule(&Schedule{Channel: ch, Episode: ep})

	want := Stats{Channels: 1, Brands: 1, Series: 1, Episodes: 1, Schedules: 2}
	if diff := cmp.Diff(want, e.Stats()); diff != "" {
		t.Fatalf("stats 不一致 (-want +got):\n%s", diff)
	}
}

func TestSchedule_Duration(t *testing.T) {
	start := time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC)
	if d := (Schedule{Start: start, Stop: start.Add(30 * time.Minute)}).Duration(); d != 30*time.Minute {
		t.Fatalf("期望 30m，实际 %v", d)
	}
	if d := (Schedule{Start: start}).Duration(); d != 0 {
		t.Fatalf("Stop 未知时期望 0，实际 %v", d)
	}
}

func TestPerson_String(t *testing.T) {
	p := Person{Name: "Jane Doe", Role: "actor", Character: "Detective"}
	if p.String() != "Jane Doe" {
		t.Fatalf("String() 应返回 name，实际 %q", p.String())
	}
}
