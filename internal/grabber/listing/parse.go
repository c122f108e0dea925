package listing

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/John-Robertt/epgrab/internal/config"
	"github.com/John-Robertt/epgrab/internal/domain"
)

// programme 是单页解析结果（尚未写入 EPG）。
type programme struct {
	ID       string
	BrandID  string
	SeriesID string

	Title    string
	Subtitle string
	Summary  string
	Genres   []string
	Credits  []domain.Person
	Year     int
	Rating   string
	Icon     string

	SeriesNumber  int
	EpisodeNumber int
	EpisodeCount  int
	PartNumber    int
	PartCount     int

	Start time.Time
	Stop  time.Time
	Flags map[string]bool
}

var flagClasses = []string{"hd", "widescreen", "subtitled", "signed", "ad", "repeat", "premiere", "new"}

// parseChannels 解析频道索引页。纯函数：只依赖 html、pageURL 与选择器。
func parseChannels(html []byte, pageURL string, sel config.ListingSelectors) ([]*domain.Channel, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	var out []*domain.Channel
	seen := map[string]struct{}{}
	doc.Find(sel.Channel).Each(func(_ int, s *goquery.Selection) {
		href, hasLink := s.Find("a[href]").First().Attr("href")
		id := strings.TrimSpace(s.AttrOr("data-id", ""))
		if id == "" && hasLink {
			id = linkID(href)
		}
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}

		ch := &domain.Channel{ID: id, Title: id}
		if t := text(s, sel.ChannelName); t != "" {
			ch.Title = t
		}
		ch.Number = text(s, sel.ChannelNumber)
		if sel.ChannelIcon != "" {
			if src, ok := s.Find(sel.ChannelIcon).First().Attr("src"); ok {
				ch.Icon = resolveURL(pageURL, src)
			}
		}
		if hasLink {
			ch.URI = resolveURL(pageURL, href)
		}
		out = append(out, ch)
	})
	if len(out) == 0 {
		return nil, errors.New("频道列表为空（选择器不匹配或页面不是频道索引）")
	}
	return out, nil
}

// linkID 取链接路径的最后一段作为频道 ID（"/channels/bbcone/" -> "bbcone"）。
func linkID(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	p := path.Clean("/" + u.Path)
	if p == "/" {
		return ""
	}
	return path.Base(p)
}

// parseDay 解析某个频道某一天的节目页。
//
// 时间规则：
// - data-start/data-stop 可以是 RFC3339，也可以是 loc 下的 "15:04"（相对 date）
// - "15:04" 形式的时间早于上一个节目时视为跨过零点
// - 缺少 data-stop 时取下一个节目的开始时间；最后一个节目缺少 data-stop 是错误
func parseDay(html []byte, pageURL, date string, loc *time.Location, sel config.ListingSelectors) ([]programme, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return nil, err
	}

	var (
		out     []programme
		prev    time.Time
		parseEr error
	)
	doc.Find(sel.Programme).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		title := text(s, sel.Title)
		if title == "" {
			return true
		}
		rawStart := s.AttrOr("data-start", "")
		start, err := parseClock(rawStart, day, prev)
		if err == nil && start.IsZero() {
			err = errors.New("缺少 data-start")
		}
		if err != nil {
			parseEr = fmt.Errorf("节目 %q 开始时间无效 %q：%w", title, rawStart, err)
			return false
		}
		rawStop := s.AttrOr("data-stop", "")
		stop, err := parseClock(rawStop, day, start)
		if err != nil {
			parseEr = fmt.Errorf("节目 %q 结束时间无效 %q：%w", title, rawStop, err)
			return false
		}
		prev = start

		p := programme{
			ID:       strings.TrimSpace(s.AttrOr("data-id", "")),
			BrandID:  strings.TrimSpace(s.AttrOr("data-brand", "")),
			SeriesID: strings.TrimSpace(s.AttrOr("data-series", "")),
			Title:    title,
			Subtitle: text(s, sel.Subtitle),
			Summary:  text(s, sel.Description),
			Year:     firstInt(s.AttrOr("data-year", "")),
			Rating:   strings.TrimSpace(s.AttrOr("data-rating", "")),
			Start:    start,
			Stop:     stop,
			Flags:    map[string]bool{},
		}
		if src, ok := s.Find("img").First().Attr("src"); ok {
			p.Icon = resolveURL(pageURL, src)
		}
		parseEpisodeText(text(s, sel.Episode), &p)
		if sel.Genre != "" {
			s.Find(sel.Genre).Each(func(_ int, g *goquery.Selection) {
				p.Genres = append(p.Genres, normSpace(g.Text()))
			})
			p.Genres = normList(p.Genres)
		}
		if sel.Credit != "" {
			s.Find(sel.Credit).Each(func(_ int, c *goquery.Selection) {
				name := normSpace(c.Text())
				if name == "" {
					return
				}
				p.Credits = append(p.Credits, domain.Person{
					Name:      name,
					Role:      strings.ToLower(strings.TrimSpace(c.AttrOr("data-role", ""))),
					Character: normSpace(c.AttrOr("data-character", "")),
				})
			})
		}
		for _, f := range flagClasses {
			if s.HasClass(f) {
				p.Flags[f] = true
			}
		}
		out = append(out, p)
		return true
	})
	if parseEr != nil {
		return nil, parseEr
	}

	for i := range out {
		if !out[i].Stop.IsZero() {
			continue
		}
		if i+1 == len(out) {
			return nil, fmt.Errorf("最后一个节目 %q 缺少 data-stop", out[i].Title)
		}
		out[i].Stop = out[i+1].Start
	}
	return out, nil
}

// parseClock 解析 RFC3339 或 "15:04"。空串返回零值。
// "15:04" 形式以 day 为基准，早于 after 时顺延一天。
func parseClock(raw string, day, after time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	hm, err := time.Parse("15:04", raw)
	if err != nil {
		return time.Time{}, err
	}
	t := time.Date(day.Year(), day.Month(), day.Day(), hm.Hour(), hm.Minute(), 0, 0, day.Location())
	for !after.IsZero() && t.Before(after) {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

var (
	seasonEpisodeRE = regexp.MustCompile(`(?i)\bS(\d+)\s*E(\d+)(?:\s*/\s*(\d+))?`)
	episodeOnlyRE   = regexp.MustCompile(`(?i)\b(?:E|Ep\.?|Episode)\s*(\d+)(?:\s*(?:/|of)\s*(\d+))?`)
	partRE          = regexp.MustCompile(`(?i)\bPart\s*(\d+)(?:\s*(?:/|of)\s*(\d+))?`)
)

// parseEpisodeText 识别 "S2E5"、"S2 E5/10"、"Episode 3 of 8"、"Part 1 of 2" 这几种写法。
func parseEpisodeText(s string, p *programme) {
	s = normSpace(s)
	if s == "" {
		return
	}
	if m := seasonEpisodeRE.FindStringSubmatch(s); m != nil {
		p.SeriesNumber = atoi(m[1])
		p.EpisodeNumber = atoi(m[2])
		p.EpisodeCount = atoi(m[3])
	} else if m := episodeOnlyRE.FindStringSubmatch(s); m != nil {
		p.EpisodeNumber = atoi(m[1])
		p.EpisodeCount = atoi(m[2])
	}
	if m := partRE.FindStringSubmatch(s); m != nil {
		p.PartNumber = atoi(m[1])
		p.PartCount = atoi(m[2])
	}
}

// stableID 为没有 data-id 的节目生成确定性 ID（同一频道、开始时间与标题总是得到同一个 ID）。
func stableID(channelID string, start time.Time, title string) string {
	name := channelID + "|" + start.UTC().Format(time.RFC3339) + "|" + title
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func text(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return normSpace(s.Find(selector).First().Text())
}

func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

func normList(in []string) []string {
	m := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := m[s]; ok {
			continue
		}
		m[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func firstInt(s string) int {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			break
		}
	}
	return atoi(b.String())
}
