package listing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/John-Robertt/epgrab/internal/config"
	"github.com/John-Robertt/epgrab/internal/domain"
	"github.com/John-Robertt/epgrab/internal/grabber"
	"github.com/John-Robertt/epgrab/internal/infra/logx"
)

const Name = "listing"

// Grabber 抓取 HTML 节目列表站点：
//
//	{url}/channels              频道索引
//	{url}/{channel}/{yyyy-mm-dd} 单频道单日节目
//
// 页面结构由 listing.selectors.* 描述；解析（parse.go）不访问网络。
type Grabber struct {
	BaseURL   string
	Location  *time.Location
	Selectors config.ListingSelectors

	env grabber.Env
	log *logx.Logger
}

func Factory() grabber.Factory {
	return grabber.Factory{Name: Name, New: New}
}

func New(env grabber.Env) (grabber.Grabber, error) {
	if env.HTTP == nil {
		return nil, errors.New("listing: http client 不能为空")
	}
	c := env.Config.Listing
	base := strings.TrimRight(strings.TrimSpace(c.URL), "/")
	if base == "" {
		return nil, errors.New("listing: 需要配置 listing.url")
	}
	loc := time.UTC
	if tz := strings.TrimSpace(c.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("listing: 无效时区 %q：%w", tz, err)
		}
		loc = l
	}
	return &Grabber{
		BaseURL:   base,
		Location:  loc,
		Selectors: c.Selectors,
		env:       env,
		log:       env.Log.Named(Name),
	}, nil
}

func (g *Grabber) Grab(ctx context.Context, epg *domain.EPG, channels []string, start, end time.Time) error {
	indexURL := g.BaseURL + "/channels"
	b, err := g.env.Fetch(ctx, Name, "channels.html", indexURL)
	if err != nil {
		return &grabber.Error{Grabber: Name, Stage: "channels", Err: err}
	}
	all, err := parseChannels(b, indexURL, g.Selectors)
	if err != nil {
		return &grabber.Error{Grabber: Name, Stage: "parse", Err: err}
	}

	selected, missing := grabber.SelectChannels(all, channels)
	for _, id := range missing {
		g.log.Emit(logx.WARNING, "频道 %q 不在频道索引中，仍尝试抓取", id)
	}

	days := grabber.Days(start, end, g.Location)
	seen := make(map[string]struct{})
	for _, ch := range selected {
		ch = epg.AddChannel(ch)
		for _, d := range days {
			if err := ctx.Err(); err != nil {
				return err
			}
			pageURL := g.BaseURL + "/" + url.PathEscape(ch.ID) + "/" + d.Date
			b, err := g.env.Fetch(ctx, Name, ch.ID+"/"+d.Date+".html", pageURL)
			if err != nil {
				return &grabber.Error{Grabber: Name, Stage: "schedule", Err: fmt.Errorf("channel=%s date=%s: %w", ch.ID, d.Date, err)}
			}
			progs, err := parseDay(b, pageURL, d.Date, g.Location, g.Selectors)
			if err != nil {
				return &grabber.Error{Grabber: Name, Stage: "parse", Err: fmt.Errorf("channel=%s date=%s: %w", ch.ID, d.Date, err)}
			}

			n := 0
			for _, p := range progs {
				if !grabber.Overlaps(p.Start, p.Stop, start, end) {
					continue
				}
				k := ch.ID + "|" + p.Start.UTC().Format(time.RFC3339)
				if _, ok := seen[k]; ok {
					continue
				}
				seen[k] = struct{}{}
				if err := epg.AddSchedule(schedule(epg, ch, p)); err != nil {
					return &grabber.Error{Grabber: Name, Stage: "parse", Err: err}
				}
				n++
			}
			g.log.Emit(logx.DEBUG, "%s %s: %d 个节目", ch.ID, d.Date, n)
		}
	}
	return nil
}

func schedule(epg *domain.EPG, ch *domain.Channel, p programme) *domain.Schedule {
	var brand *domain.Brand
	if p.BrandID != "" {
		brand = epg.AddBrand(&domain.Brand{ID: p.BrandID, Title: p.Title})
	}
	var series *domain.Series
	if p.SeriesID != "" {
		series = epg.AddSeries(&domain.Series{
			ID:           p.SeriesID,
			Title:        p.Title,
			Number:       p.SeriesNumber,
			EpisodeCount: p.EpisodeCount,
			Brand:        brand,
		})
	}

	id := p.ID
	if id == "" {
		id = stableID(ch.ID, p.Start, p.Title)
	}
	ep := epg.AddEpisode(&domain.Episode{
		ID:            id,
		Title:         p.Title,
		Subtitle:      p.Subtitle,
		Summary:       p.Summary,
		Number:        p.EpisodeNumber,
		PartNumber:    p.PartNumber,
		PartCount:     p.PartCount,
		Series:        series,
		Brand:         brand,
		Genres:        p.Genres,
		Credits:       p.Credits,
		Year:          p.Year,
		Certification: p.Rating,
		Icon:          p.Icon,
	})

	return &domain.Schedule{
		Episode:        ep,
		Channel:        ch,
		Start:          p.Start,
		Stop:           p.Stop,
		HD:             p.Flags["hd"],
		Widescreen:     p.Flags["widescreen"],
		Subtitled:      p.Flags["subtitled"],
		Signed:         p.Flags["signed"],
		AudioDescribed: p.Flags["ad"],
		Repeat:         p.Flags["repeat"],
		Premiere:       p.Flags["premiere"],
		New:            p.Flags["new"],
	}
}
