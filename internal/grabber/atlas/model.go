package atlas

import "time"

// 以下结构只覆盖本 grabber 用到的 Atlas 字段；未知字段忽略。

type channelsResponse struct {
	Channels []channel `json:"channels"`
}

type channel struct {
	ID            string         `json:"id"`
	URI           string         `json:"uri"`
	Title         string         `json:"title"`
	Image         string         `json:"image"`
	ChannelGroups []channelGroup `json:"channel_groups"`
}

type channelGroup struct {
	ChannelNumber string `json:"channel_number"`
}

type scheduleResponse struct {
	Schedule []scheduleChannel `json:"schedule"`
}

type scheduleChannel struct {
	ChannelURI string `json:"channel_uri"`
	Items      []item `json:"items"`
}

type item struct {
	ID                  string         `json:"id"`
	URI                 string         `json:"uri"`
	Type                string         `json:"type"`
	Title               string         `json:"title"`
	Description         string         `json:"description"`
	ExtendedDescription string         `json:"long_description"`
	Image               string         `json:"image"`
	Year                int            `json:"year"`
	EpisodeNumber       int            `json:"episode_number"`
	SeriesNumber        int            `json:"series_number"`
	Genres              []string       `json:"genres"`
	People              []person       `json:"people"`
	Certificates        []certificate  `json:"certificates"`
	Brand               *brandSummary  `json:"brand_summary"`
	Series              *seriesSummary `json:"series_summary"`
	Broadcasts          []broadcast    `json:"broadcasts"`
}

type person struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	Type      string `json:"type"`
	Character string `json:"character"`
}

type certificate struct {
	Classification string `json:"classification"`
	Code           string `json:"code"`
}

type brandSummary struct {
	ID          string `json:"id"`
	URI         string `json:"uri"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

type seriesSummary struct {
	ID            string `json:"id"`
	URI           string `json:"uri"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	SeriesNumber  int    `json:"series_number"`
	TotalEpisodes int    `json:"total_episodes"`
}

type broadcast struct {
	BroadcastOn         string    `json:"broadcast_on"`
	TransmissionTime    time.Time `json:"transmission_time"`
	TransmissionEndTime time.Time `json:"transmission_end_time"`
	HighDefinition      bool      `json:"high_definition"`
	Widescreen          bool      `json:"widescreen"`
	Subtitled           bool      `json:"subtitled"`
	Signed              bool      `json:"signed"`
	AudioDescribed      bool      `json:"audio_described"`
	Repeat              bool      `json:"repeat"`
	Premiere            bool      `json:"premiere"`
	NewEpisode          bool      `json:"new_episode"`
}
