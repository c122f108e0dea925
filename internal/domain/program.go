package domain

import "time"

// Channel 是一个频道。ID 同时用于 channels 过滤与 XMLTV 的 channel 属性。
type Channel struct {
	ID     string
	URI    string
	Title  string
	Number string // 频道号（LCN），可为空
	Icon   string
}

// Brand 是节目品牌（最顶层的节目身份），可以包含多个 Series。
type Brand struct {
	ID      string
	URI     string
	Title   string
	Summary string
	Genres  []string
	Icon    string
}

// Series 是某个 Brand 下的一季。Brand 可以为空（独立系列）。
type Series struct {
	ID           string
	URI          string
	Title        string
	Summary      string
	Number       int // 季号，0 表示未知
	EpisodeCount int
	Brand        *Brand
	Genres       []string
	Icon         string
}

// Episode 是一集节目。
//
// 约束：最多属于一个 Series、一个 Brand；两者都为空时即独立节目（例如电影）。
type Episode struct {
	ID            string
	URI           string
	Title         string
	Subtitle      string
	Summary       string
	Number        int // 集号，0 表示未知
	PartNumber    int
	PartCount     int
	Series        *Series
	Brand         *Brand
	Genres        []string
	Credits       []Person
	Year          int
	Certification string
	Icon          string
}

// Schedule 是一次具体播出：某个 Episode 在某个 Channel 上的某个时间段。
type Schedule struct {
	Episode *Episode
	Channel *Channel
	Start   time.Time
	Stop    time.Time

	HD             bool
	Widescreen     bool
	Subtitled      bool
	Signed         bool
	AudioDescribed bool
	Repeat         bool
	Premiere       bool
	New            bool
}

// Duration 返回播出时长；Stop 未知时返回 0。
func (s Schedule) Duration() time.Duration {
	if s.Stop.IsZero() || s.Stop.Before(s.Start) {
		return 0
	}
	return s.Stop.Sub(s.Start)
}
