package atlas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/John-Robertt/epgrab/internal/config"
	"github.com/John-Robertt/epgrab/internal/domain"
	"github.com/John-Robertt/epgrab/internal/grabber"
	"github.com/John-Robertt/epgrab/internal/infra/logx"
)

const Name = "atlas"

// Grabber 从 Atlas 风格的 JSON schedule API 抓取节目单。
//
// 约束：
// - 每个频道每个自然日一次请求，响应按 <channel>/<date>.json 缓存
// - Brand/Series/Episode 按 ID（缺省为 URI）去重
// - 同一次播出可能出现在相邻两天的响应里，按 channel+开始时间去重
type Grabber struct {
	BaseURL     string
	APIKey      string
	Platform    string
	Annotations []string

	env grabber.Env
	log *logx.Logger
}

func Factory() grabber.Factory {
	return grabber.Factory{Name: Name, New: New}
}

func New(env grabber.Env) (grabber.Grabber, error) {
	if env.HTTP == nil {
		return nil, errors.New("atlas: http client 不能为空")
	}
	c := env.Config.Atlas
	base := strings.TrimRight(strings.TrimSpace(c.URL), "/")
	if base == "" {
		base = config.DefaultAtlasURL
	}
	return &Grabber{
		BaseURL:     base,
		APIKey:      strings.TrimSpace(c.APIKey),
		Platform:    strings.TrimSpace(c.Platform),
		Annotations: c.Annotations,
		env:         env,
		log:         env.Log.Named(Name),
	}, nil
}

func (g *Grabber) Grab(ctx context.Context, epg *domain.EPG, channels []string, start, end time.Time) error {
	all, err := g.fetchChannels(ctx)
	if err != nil {
		return &grabber.Error{Grabber: Name, Stage: "channels", Err: err}
	}

	selected, missing := grabber.SelectChannels(all, channels)
	for _, id := range missing {
		g.log.Emit(logx.WARNING, "频道 %q 不在频道列表中，仍尝试抓取", id)
	}

	days := grabber.Days(start, end, time.UTC)
	seen := make(map[string]struct{})
	for _, ch := range selected {
		ch = epg.AddChannel(ch)
		for _, d := range days {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := g.fetchSchedule(ctx, ch.ID, d)
			if err != nil {
				return &grabber.Error{Grabber: Name, Stage: "schedule", Err: fmt.Errorf("channel=%s date=%s: %w", ch.ID, d.Date, err)}
			}
			var resp scheduleResponse
			if err := json.Unmarshal(b, &resp); err != nil {
				return &grabber.Error{Grabber: Name, Stage: "parse", Err: fmt.Errorf("channel=%s date=%s: %w", ch.ID, d.Date, err)}
			}
			n, err := apply(epg, ch, resp, start, end, seen)
			if err != nil {
				return &grabber.Error{Grabber: Name, Stage: "parse", Err: err}
			}
			g.log.Emit(logx.DEBUG, "%s %s: %d 条播出", ch.ID, d.Date, n)
		}
	}
	return nil
}

func (g *Grabber) fetchChannels(ctx context.Context) ([]*domain.Channel, error) {
	q := url.Values{}
	if g.APIKey != "" {
		q.Set("apiKey", g.APIKey)
	}
	key := "channels.json"
	if g.Platform != "" {
		q.Set("platforms", g.Platform)
		key = "channels-" + g.Platform + ".json"
	}
	b, err := g.env.Fetch(ctx, Name, key, g.BaseURL+"/channels.json?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp channelsResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, err
	}
	out := make([]*domain.Channel, 0, len(resp.Channels))
	for _, c := range resp.Channels {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			continue
		}
		number := ""
		for _, cg := range c.ChannelGroups {
			if n := strings.TrimSpace(cg.ChannelNumber); n != "" {
				number = n
				break
			}
		}
		out = append(out, &domain.Channel{
			ID:     id,
			URI:    strings.TrimSpace(c.URI),
			Title:  normSpace(c.Title),
			Number: number,
			Icon:   strings.TrimSpace(c.Image),
		})
	}
	return out, nil
}

func (g *Grabber) fetchSchedule(ctx context.Context, channelID string, d grabber.Day) ([]byte, error) {
	q := url.Values{}
	q.Set("channel_id", channelID)
	q.Set("from", d.From.UTC().Format(time.RFC3339))
	q.Set("to", d.To.UTC().Format(time.RFC3339))
	if len(g.Annotations) > 0 {
		q.Set("annotations", strings.Join(g.Annotations, ","))
	}
	if g.APIKey != "" {
		q.Set("apiKey", g.APIKey)
	}
	return g.env.Fetch(ctx, Name, channelID+"/"+d.Date+".json", g.BaseURL+"/schedule.json?"+q.Encode())
}

func apply(epg *domain.EPG, ch *domain.Channel, resp scheduleResponse, start, end time.Time, seen map[string]struct{}) (int, error) {
	n := 0
	for _, sc := range resp.Schedule {
		if sc.ChannelURI != "" && ch.URI != "" && sc.ChannelURI != ch.URI {
			continue
		}
		for _, it := range sc.Items {
			for _, b := range it.Broadcasts {
				if !broadcastOn(b, ch) {
					continue
				}
				if b.TransmissionTime.IsZero() || !grabber.Overlaps(b.TransmissionTime, b.TransmissionEndTime, start, end) {
					continue
				}
				k := ch.ID + "|" + b.TransmissionTime.UTC().Format(time.RFC3339)
				if _, ok := seen[k]; ok {
					continue
				}
				seen[k] = struct{}{}

				s := &domain.Schedule{
					Episode:        episode(epg, it),
					Channel:        ch,
					Start:          b.TransmissionTime,
					Stop:           b.TransmissionEndTime,
					HD:             b.HighDefinition,
					Widescreen:     b.Widescreen,
					Subtitled:      b.Subtitled,
					Signed:         b.Signed,
					AudioDescribed: b.AudioDescribed,
					Repeat:         b.Repeat,
					Premiere:       b.Premiere,
					New:            b.NewEpisode,
				}
				if err := epg.AddSchedule(s); err != nil {
					return n, err
				}
				n++
			}
		}
	}
	return n, nil
}

func broadcastOn(b broadcast, ch *domain.Channel) bool {
	on := strings.TrimSpace(b.BroadcastOn)
	return on == "" || on == ch.URI || on == ch.ID
}

func episode(epg *domain.EPG, it item) *domain.Episode {
	var brand *domain.Brand
	if bs := it.Brand; bs != nil && firstNonEmpty(bs.ID, bs.URI) != "" {
		brand = epg.AddBrand(&domain.Brand{
			ID:      firstNonEmpty(bs.ID, bs.URI),
			URI:     strings.TrimSpace(bs.URI),
			Title:   normSpace(bs.Title),
			Summary: cleanText(bs.Description),
			Icon:    strings.TrimSpace(bs.Image),
		})
	}

	var series *domain.Series
	if ss := it.Series; ss != nil && firstNonEmpty(ss.ID, ss.URI) != "" {
		number := ss.SeriesNumber
		if number == 0 {
			number = it.SeriesNumber
		}
		series = epg.AddSeries(&domain.Series{
			ID:           firstNonEmpty(ss.ID, ss.URI),
			URI:          strings.TrimSpace(ss.URI),
			Title:        normSpace(ss.Title),
			Summary:      cleanText(ss.Description),
			Number:       number,
			EpisodeCount: ss.TotalEpisodes,
			Brand:        brand,
		})
	}

	summary := cleanText(it.ExtendedDescription)
	if summary == "" {
		summary = cleanText(it.Description)
	}

	credits := make([]domain.Person, 0, len(it.People))
	for _, p := range it.People {
		name := normSpace(p.Name)
		if name == "" {
			continue
		}
		role := strings.ToLower(strings.TrimSpace(firstNonEmpty(p.Role, p.Type)))
		credits = append(credits, domain.Person{Name: name, Role: role, Character: normSpace(p.Character)})
	}

	cert := ""
	if len(it.Certificates) > 0 {
		cert = strings.TrimSpace(it.Certificates[0].Classification)
	}

	return epg.AddEpisode(&domain.Episode{
		ID:            firstNonEmpty(it.ID, it.URI),
		URI:           strings.TrimSpace(it.URI),
		Title:         normSpace(it.Title),
		Summary:       summary,
		Number:        it.EpisodeNumber,
		Series:        series,
		Brand:         brand,
		Genres:        genres(it.Genres),
		Credits:       credits,
		Year:          it.Year,
		Certification: cert,
		Icon:          strings.TrimSpace(it.Image),
	})
}

// genres 把 Atlas 的 genre URI（.../genres/atlas/drama）转成名称，去重并保持顺序。
func genres(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, g := range in {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if u, err := url.Parse(g); err == nil && u.Scheme != "" {
			g = path.Base(u.Path)
		}
		g = strings.ReplaceAll(g, "_", " ")
		if g == "" || g == "." || g == "/" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// cleanText 去掉描述中的 HTML 标记，并把实体还原为普通文本（由 formatter 负责转义）。
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	textPolicyOnce.Do(func() { textPolicy = bluemonday.StrictPolicy() })
	return normSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
