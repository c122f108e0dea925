package xmltv

import "encoding/xml"

// 元素顺序遵循 xmltv.dtd；encoding/xml 按字段顺序输出。

type tv struct {
	XMLName    xml.Name    `xml:"tv"`
	Generator  string      `xml:"generator-info-name,attr,omitempty"`
	Channels   []channel   `xml:"channel"`
	Programmes []programme `xml:"programme"`
}

type channel struct {
	ID           string     `xml:"id,attr"`
	DisplayNames []langText `xml:"display-name"`
	Icon         *icon      `xml:"icon"`
	URL          string     `xml:"url,omitempty"`
}

type programme struct {
	Start   string `xml:"start,attr"`
	Stop    string `xml:"stop,attr,omitempty"`
	Channel string `xml:"channel,attr"`

	Titles          []langText   `xml:"title"`
	SubTitles       []langText   `xml:"sub-title"`
	Descs           []langText   `xml:"desc"`
	Credits         *credits     `xml:"credits"`
	Date            string       `xml:"date,omitempty"`
	Categories      []langText   `xml:"category"`
	Length          *length      `xml:"length"`
	Icon            *icon        `xml:"icon"`
	EpisodeNums     []episodeNum `xml:"episode-num"`
	Video           *video       `xml:"video"`
	PreviouslyShown *empty       `xml:"previously-shown"`
	Premiere        *empty       `xml:"premiere"`
	New             *empty       `xml:"new"`
	Subtitles       []subtitles  `xml:"subtitles"`
	Ratings         []rating     `xml:"rating"`
}

type langText struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

type length struct {
	Units string `xml:"units,attr"`
	Value int    `xml:",chardata"`
}

type icon struct {
	Src string `xml:"src,attr"`
}

type credits struct {
	Directors    []string `xml:"director"`
	Actors       []actor  `xml:"actor"`
	Writers      []string `xml:"writer"`
	Adapters     []string `xml:"adapter"`
	Producers    []string `xml:"producer"`
	Composers    []string `xml:"composer"`
	Editors      []string `xml:"editor"`
	Presenters   []string `xml:"presenter"`
	Commentators []string `xml:"commentator"`
	Guests       []string `xml:"guest"`
}

type actor struct {
	Role  string `xml:"role,attr,omitempty"`
	Value string `xml:",chardata"`
}

type episodeNum struct {
	System string `xml:"system,attr"`
	Value  string `xml:",chardata"`
}

type video struct {
	Aspect  string `xml:"aspect,omitempty"`
	Quality string `xml:"quality,omitempty"`
}

type empty struct{}

type subtitles struct {
	Type string `xml:"type,attr,omitempty"`
}

type rating struct {
	System string `xml:"system,attr,omitempty"`
	Value  string `xml:"value"`
}
