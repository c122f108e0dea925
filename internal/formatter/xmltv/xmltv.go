package xmltv

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/John-Robertt/epgrab/internal/domain"
	"github.com/John-Robertt/epgrab/internal/formatter"
)

const (
	// TimeLayout 是 XMLTV 的时间格式（带时区偏移）。
	TimeLayout = "20060102150405 -0700"

	doctype          = `<!DOCTYPE tv SYSTEM "xmltv.dtd">`
	defaultGenerator = "epgrab"
)

// Encoder 把 EPG 编码为 XMLTV。
//
// Extended=false 输出标准 XMLTV；Extended=true 额外输出频道/节目图标，
// 以及 brand/series/episode 的 URI（episode-num 的非标准 system）。
type Encoder struct {
	Extended  bool
	Generator string
	Lang      string
}

func Factory() formatter.Factory {
	return formatter.Factory{Name: "xmltv", New: func(env formatter.Env) (formatter.Formatter, error) {
		return newEncoder(env, false), nil
	}}
}

func ExtendedFactory() formatter.Factory {
	return formatter.Factory{Name: "exmltv", New: func(env formatter.Env) (formatter.Formatter, error) {
		return newEncoder(env, true), nil
	}}
}

func newEncoder(env formatter.Env, extended bool) *Encoder {
	return &Encoder{
		Extended:  extended,
		Generator: strings.TrimSpace(env.Config.XMLTV.Generator),
		Lang:      strings.TrimSpace(env.Config.XMLTV.Lang),
	}
}

func (e *Encoder) Format(epg *domain.EPG, w io.Writer) error {
	doc := e.document(epg)

	if _, err := io.WriteString(w, xml.Header+doctype+"\n"); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func (e *Encoder) document(epg *domain.EPG) tv {
	gen := e.Generator
	if gen == "" {
		gen = defaultGenerator
	}
	doc := tv{Generator: gen}

	for _, c := range epg.Channels() {
		ch := channel{ID: c.ID}
		title := strings.TrimSpace(c.Title)
		if title == "" {
			title = c.ID
		}
		ch.DisplayNames = append(ch.DisplayNames, e.text(title))
		if n := strings.TrimSpace(c.Number); n != "" {
			ch.DisplayNames = append(ch.DisplayNames, langText{Value: n})
		}
		if e.Extended {
			if c.Icon != "" {
				ch.Icon = &icon{Src: c.Icon}
			}
			ch.URL = c.URI
		}
		doc.Channels = append(doc.Channels, ch)
	}

	for _, s := range formatter.SortedSchedules(epg) {
		doc.Programmes = append(doc.Programmes, e.programme(s))
	}
	return doc
}

func (e *Encoder) programme(s *domain.Schedule) programme {
	ep := s.Episode
	p := programme{
		Start:   s.Start.Format(TimeLayout),
		Channel: s.Channel.ID,
	}
	if !s.Stop.IsZero() {
		p.Stop = s.Stop.Format(TimeLayout)
	}

	title, sub := titles(ep)
	p.Titles = []langText{e.text(title)}
	if sub != "" {
		p.SubTitles = []langText{e.text(sub)}
	}
	if d := summary(ep); d != "" {
		p.Descs = []langText{e.text(d)}
	}
	p.Credits = buildCredits(ep.Credits)
	if ep.Year > 0 {
		p.Date = strconv.Itoa(ep.Year)
	}
	for _, g := range genres(ep) {
		p.Categories = append(p.Categories, e.text(g))
	}
	if d := s.Duration(); d >= time.Minute {
		p.Length = &length{Units: "minutes", Value: int(d / time.Minute)}
	}
	if e.Extended {
		if src := episodeIcon(ep); src != "" {
			p.Icon = &icon{Src: src}
		}
	}

	if ns := xmltvNS(ep); ns != "" {
		p.EpisodeNums = append(p.EpisodeNums, episodeNum{System: "xmltv_ns", Value: ns})
	}
	if on := onscreen(ep); on != "" {
		p.EpisodeNums = append(p.EpisodeNums, episodeNum{System: "onscreen", Value: on})
	}
	if e.Extended {
		if ep.Brand != nil && ep.Brand.URI != "" {
			p.EpisodeNums = append(p.EpisodeNums, episodeNum{System: "brand_uri", Value: ep.Brand.URI})
		}
		if ep.Series != nil && ep.Series.URI != "" {
			p.EpisodeNums = append(p.EpisodeNums, episodeNum{System: "series_uri", Value: ep.Series.URI})
		}
		if ep.URI != "" {
			p.EpisodeNums = append(p.EpisodeNums, episodeNum{System: "episode_uri", Value: ep.URI})
		}
	}

	if s.HD || s.Widescreen {
		p.Video = &video{}
		if s.Widescreen {
			p.Video.Aspect = "16:9"
		}
		if s.HD {
			p.Video.Quality = "HDTV"
		}
	}
	if s.Repeat {
		p.PreviouslyShown = &empty{}
	}
	if s.Premiere {
		p.Premiere = &empty{}
	}
	if s.New {
		p.New = &empty{}
	}
	if s.Subtitled {
		p.Subtitles = append(p.Subtitles, subtitles{Type: "teletext"})
	}
	if s.Signed {
		p.Subtitles = append(p.Subtitles, subtitles{Type: "deaf-signed"})
	}
	if c := strings.TrimSpace(ep.Certification); c != "" {
		p.Ratings = []rating{{Value: c}}
	}
	return p
}

func (e *Encoder) text(s string) langText {
	return langText{Lang: e.Lang, Value: s}
}

// titles 决定 title/sub-title：有 brand 标题时 brand 作为节目名，episode 标题下移为副标题。
func titles(ep *domain.Episode) (title, sub string) {
	title = strings.TrimSpace(ep.Title)
	sub = strings.TrimSpace(ep.Subtitle)
	if b := ep.Brand; b != nil {
		bt := strings.TrimSpace(b.Title)
		if bt != "" && bt != title {
			if sub == "" {
				sub = title
			}
			title = bt
		}
	}
	if title == "" && ep.Series != nil {
		title = strings.TrimSpace(ep.Series.Title)
	}
	if sub == title {
		sub = ""
	}
	return title, sub
}

func summary(ep *domain.Episode) string {
	if s := strings.TrimSpace(ep.Summary); s != "" {
		return s
	}
	if ep.Series != nil && strings.TrimSpace(ep.Series.Summary) != "" {
		return strings.TrimSpace(ep.Series.Summary)
	}
	if ep.Brand != nil {
		return strings.TrimSpace(ep.Brand.Summary)
	}
	return ""
}

func genres(ep *domain.Episode) []string {
	switch {
	case len(ep.Genres) > 0:
		return ep.Genres
	case ep.Series != nil && len(ep.Series.Genres) > 0:
		return ep.Series.Genres
	case ep.Brand != nil:
		return ep.Brand.Genres
	}
	return nil
}

func episodeIcon(ep *domain.Episode) string {
	if ep.Icon != "" {
		return ep.Icon
	}
	if ep.Series != nil && ep.Series.Icon != "" {
		return ep.Series.Icon
	}
	if ep.Brand != nil {
		return ep.Brand.Icon
	}
	return ""
}

// xmltvNS 生成 xmltv_ns 形式的集数："season.episode.part"，均从 0 开始，可带 "/总数"。
// 三段都未知时返回空串。
func xmltvNS(ep *domain.Episode) string {
	var season, episode, part string
	if ep.Series != nil && ep.Series.Number > 0 {
		season = strconv.Itoa(ep.Series.Number - 1)
	}
	if ep.Number > 0 {
		episode = strconv.Itoa(ep.Number - 1)
		if ep.Series != nil && ep.Series.EpisodeCount > 0 {
			episode += "/" + strconv.Itoa(ep.Series.EpisodeCount)
		}
	}
	if ep.PartNumber > 0 {
		part = strconv.Itoa(ep.PartNumber - 1)
		if ep.PartCount > 0 {
			part += "/" + strconv.Itoa(ep.PartCount)
		}
	}
	if season == "" && episode == "" && part == "" {
		return ""
	}
	return season + "." + episode + "." + part
}

func onscreen(ep *domain.Episode) string {
	var parts []string
	if ep.Series != nil && ep.Series.Number > 0 {
		parts = append(parts, fmt.Sprintf("S%d", ep.Series.Number))
	}
	if ep.Number > 0 {
		parts = append(parts, fmt.Sprintf("E%d", ep.Number))
	}
	if ep.PartNumber > 0 {
		if ep.PartCount > 0 {
			parts = append(parts, fmt.Sprintf("P%d/%d", ep.PartNumber, ep.PartCount))
		} else {
			parts = append(parts, fmt.Sprintf("P%d", ep.PartNumber))
		}
	}
	return strings.Join(parts, " ")
}

// buildCredits 按角色归类；未知角色忽略，空角色视为演员。
func buildCredits(people []domain.Person) *credits {
	var c credits
	n := 0
	for _, p := range people {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		n++
		switch strings.ToLower(strings.TrimSpace(p.Role)) {
		case "", "actor", "cast", "voice":
			c.Actors = append(c.Actors, actor{Role: strings.TrimSpace(p.Character), Value: name})
		case "director":
			c.Directors = append(c.Directors, name)
		case "writer", "screenwriter", "author":
			c.Writers = append(c.Writers, name)
		case "adapter":
			c.Adapters = append(c.Adapters, name)
		case "producer", "executive_producer", "executive producer":
			c.Producers = append(c.Producers, name)
		case "composer":
			c.Composers = append(c.Composers, name)
		case "editor":
			c.Editors = append(c.Editors, name)
		case "presenter", "host":
			c.Presenters = append(c.Presenters, name)
		case "commentator", "narrator":
			c.Commentators = append(c.Commentators, name)
		case "guest":
			c.Guests = append(c.Guests, name)
		default:
			n--
		}
	}
	if n == 0 {
		return nil
	}
	return &c
}
