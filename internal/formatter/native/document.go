package native

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/John-Robertt/epgrab/internal/domain"
)

// Document 是 EPG 的完整导出：实体平铺，彼此之间通过 ID 引用。
// 同一结构同时用于 XML（epg）与 YAML（yaml）输出。
type Document struct {
	XMLName   xml.Name   `xml:"epg" yaml:"-"`
	Channels  []Channel  `xml:"channels>channel" yaml:"channels"`
	Brands    []Brand    `xml:"brands>brand" yaml:"brands"`
	Series    []Series   `xml:"series>series" yaml:"series"`
	Episodes  []Episode  `xml:"episodes>episode" yaml:"episodes"`
	Schedules []Schedule `xml:"schedules>schedule" yaml:"schedules"`
}

type Channel struct {
	ID     string `xml:"id,attr" yaml:"id"`
	Title  string `xml:"title,omitempty" yaml:"title,omitempty"`
	Number string `xml:"number,omitempty" yaml:"number,omitempty"`
	Icon   string `xml:"icon,omitempty" yaml:"icon,omitempty"`
	URI    string `xml:"uri,omitempty" yaml:"uri,omitempty"`
}

type Brand struct {
	ID      string   `xml:"id,attr" yaml:"id"`
	URI     string   `xml:"uri,omitempty" yaml:"uri,omitempty"`
	Title   string   `xml:"title,omitempty" yaml:"title,omitempty"`
	Summary string   `xml:"summary,omitempty" yaml:"summary,omitempty"`
	Genres  []string `xml:"genre,omitempty" yaml:"genres,omitempty"`
	Icon    string   `xml:"icon,omitempty" yaml:"icon,omitempty"`
}

type Series struct {
	ID           string   `xml:"id,attr" yaml:"id"`
	Brand        string   `xml:"brand,attr,omitempty" yaml:"brand,omitempty"`
	URI          string   `xml:"uri,omitempty" yaml:"uri,omitempty"`
	Title        string   `xml:"title,omitempty" yaml:"title,omitempty"`
	Summary      string   `xml:"summary,omitempty" yaml:"summary,omitempty"`
	Number       int      `xml:"number,omitempty" yaml:"number,omitempty"`
	EpisodeCount int      `xml:"episode_count,omitempty" yaml:"episode_count,omitempty"`
	Genres       []string `xml:"genre,omitempty" yaml:"genres,omitempty"`
	Icon         string   `xml:"icon,omitempty" yaml:"icon,omitempty"`
}

type Episode struct {
	ID            string   `xml:"id,attr" yaml:"id"`
	Brand         string   `xml:"brand,attr,omitempty" yaml:"brand,omitempty"`
	Series        string   `xml:"series,attr,omitempty" yaml:"series,omitempty"`
	URI           string   `xml:"uri,omitempty" yaml:"uri,omitempty"`
	Title         string   `xml:"title,omitempty" yaml:"title,omitempty"`
	Subtitle      string   `xml:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Summary       string   `xml:"summary,omitempty" yaml:"summary,omitempty"`
	Number        int      `xml:"number,omitempty" yaml:"number,omitempty"`
	PartNumber    int      `xml:"part_number,omitempty" yaml:"part_number,omitempty"`
	PartCount     int      `xml:"part_count,omitempty" yaml:"part_count,omitempty"`
	Genres        []string `xml:"genre,omitempty" yaml:"genres,omitempty"`
	Credits       []Credit `xml:"credit,omitempty" yaml:"credits,omitempty"`
	Year          int      `xml:"year,omitempty" yaml:"year,omitempty"`
	Certification string   `xml:"certification,omitempty" yaml:"certification,omitempty"`
	Icon          string   `xml:"icon,omitempty" yaml:"icon,omitempty"`
}

type Credit struct {
	Name      string `xml:",chardata" yaml:"name"`
	Role      string `xml:"role,attr,omitempty" yaml:"role,omitempty"`
	Character string `xml:"character,attr,omitempty" yaml:"character,omitempty"`
}

type Schedule struct {
	Channel        string `xml:"channel,attr" yaml:"channel"`
	Episode        string `xml:"episode,attr" yaml:"episode"`
	Start          string `xml:"start,attr" yaml:"start"`
	Stop           string `xml:"stop,attr,omitempty" yaml:"stop,omitempty"`
	HD             bool   `xml:"hd,attr,omitempty" yaml:"hd,omitempty"`
	Widescreen     bool   `xml:"widescreen,attr,omitempty" yaml:"widescreen,omitempty"`
	Subtitled      bool   `xml:"subtitled,attr,omitempty" yaml:"subtitled,omitempty"`
	Signed         bool   `xml:"signed,attr,omitempty" yaml:"signed,omitempty"`
	AudioDescribed bool   `xml:"audio_described,attr,omitempty" yaml:"audio_described,omitempty"`
	Repeat         bool   `xml:"repeat,attr,omitempty" yaml:"repeat,omitempty"`
	Premiere       bool   `xml:"premiere,attr,omitempty" yaml:"premiere,omitempty"`
	New            bool   `xml:"new,attr,omitempty" yaml:"new,omitempty"`
}

// refs 为实体分配导出用的 ID：原 ID 为空时按类型与序号生成（channel-1、episode-3……）。
type refs struct {
	channels map[*domain.Channel]string
	brands   map[*domain.Brand]string
	series   map[*domain.Series]string
	episodes map[*domain.Episode]string
}

func ref[T any](m map[*T]string, p *T, id string) string {
	if p == nil {
		return ""
	}
	if r, ok := m[p]; ok {
		return r
	}
	return id
}

func idOr(id, kind string, i int) string {
	if id != "" {
		return id
	}
	return fmt.Sprintf("%s-%d", kind, i+1)
}

// Build 把 EPG 转换为 Document（集合保持插入顺序）。
func Build(epg *domain.EPG) Document {
	r := refs{
		channels: map[*domain.Channel]string{},
		brands:   map[*domain.Brand]string{},
		series:   map[*domain.Series]string{},
		episodes: map[*domain.Episode]string{},
	}
	var doc Document

	for i, c := range epg.Channels() {
		id := idOr(c.ID, "channel", i)
		r.channels[c] = id
		doc.Channels = append(doc.Channels, Channel{ID: id, Title: c.Title, Number: c.Number, Icon: c.Icon, URI: c.URI})
	}
	for i, b := range epg.Brands() {
		id := idOr(b.ID, "brand", i)
		r.brands[b] = id
		doc.Brands = append(doc.Brands, Brand{ID: id, URI: b.URI, Title: b.Title, Summary: b.Summary, Genres: b.Genres, Icon: b.Icon})
	}
	for i, s := range epg.Series() {
		id := idOr(s.ID, "series", i)
		r.series[s] = id
		out := Series{
			ID: id, URI: s.URI, Title: s.Title, Summary: s.Summary, Number: s.Number,
			EpisodeCount: s.EpisodeCount, Genres: s.Genres, Icon: s.Icon,
		}
		if s.Brand != nil {
			out.Brand = ref(r.brands, s.Brand, s.Brand.ID)
		}
		doc.Series = append(doc.Series, out)
	}
	for i, e := range epg.Episodes() {
		id := idOr(e.ID, "episode", i)
		r.episodes[e] = id
		out := Episode{
			ID: id, URI: e.URI, Title: e.Title, Subtitle: e.Subtitle, Summary: e.Summary,
			Number: e.Number, PartNumber: e.PartNumber, PartCount: e.PartCount, Genres: e.Genres,
			Year: e.Year, Certification: e.Certification, Icon: e.Icon,
		}
		if e.Brand != nil {
			out.Brand = ref(r.brands, e.Brand, e.Brand.ID)
		}
		if e.Series != nil {
			out.Series = ref(r.series, e.Series, e.Series.ID)
		}
		for _, p := range e.Credits {
			out.Credits = append(out.Credits, Credit{Name: p.Name, Role: p.Role, Character: p.Character})
		}
		doc.Episodes = append(doc.Episodes, out)
	}
	for _, s := range epg.Schedules() {
		out := Schedule{
			Channel:        ref(r.channels, s.Channel, s.Channel.ID),
			Episode:        ref(r.episodes, s.Episode, s.Episode.ID),
			Start:          formatTime(s.Start),
			Stop:           formatTime(s.Stop),
			HD:             s.HD,
			Widescreen:     s.Widescreen,
			Subtitled:      s.Subtitled,
			Signed:         s.Signed,
			AudioDescribed: s.AudioDescribed,
			Repeat:         s.Repeat,
			Premiere:       s.Premiere,
			New:            s.New,
		}
		doc.Schedules = append(doc.Schedules, out)
	}
	return doc
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
