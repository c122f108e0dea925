package native

import (
	"bytes"
	"encoding/xml"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/epgrab/internal/domain"
)

func sampleEPG(t *testing.T) *domain.EPG {
	t.Helper()
	epg := domain.NewEPG()
	ch := epg.AddChannel(&domain.Channel{ID: "one", Title: "Channel One"})
	anon := epg.AddChannel(&domain.Channel{Title: "No ID"})
	brand := epg.AddBrand(&domain.Brand{Title: "Show"})
	series := epg.AddSeries(&domain.Series{ID: "s1", Brand: brand, Number: 1})
	ep := epg.AddEpisode(&domain.Episode{Title: "Pilot", Series: series, Brand: brand, Credits: []domain.Person{{Name: "Ann", Role: "actor", Character: "Kim"}}})

	start := time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC)
	for _, s := range []*domain.Schedule{
		{Episode: ep, Channel: ch, Start: start, Stop: start.Add(time.Hour), HD: true},
		{Episode: ep, Channel: anon, Start: start},
	} {
		if err := epg.AddSchedule(s); err != nil {
			t.Fatalf("AddSchedule: %v", err)
		}
	}
	return epg
}

func TestBuild_AssignsFallbackIDsAndReferences(t *testing.T) {
	doc := Build(sampleEPG(t))

	if doc.Channels[1].ID != "channel-2" || doc.Brands[0].ID != "brand-1" || doc.Episodes[0].ID != "episode-1" {
		t.Fatalf("fallback ID 不符合预期：%+v", doc)
	}
	if doc.Series[0].Brand != "brand-1" || doc.Episodes[0].Series != "s1" || doc.Episodes[0].Brand != "brand-1" {
		t.Fatalf("引用不符合预期：%+v %+v", doc.Series[0], doc.Episodes[0])
	}
	want := []Schedule{
		{Channel: "one", Episode: "episode-1", Start: "2026-10-16T20:00:00Z", Stop: "2026-10-16T21:00:00Z", HD: true},
		{Channel: "channel-2", Episode: "episode-1", Start: "2026-10-16T20:00:00Z"},
	}
	if diff := cmp.Diff(want, doc.Schedules); diff != "" {
		t.Fatalf("schedules（-want +got）：\n%s", diff)
	}
}

func TestXML_ParsesBackToSameDocument(t *testing.T) {
	epg := sampleEPG(t)
	var a, b bytes.Buffer
	if err := (XML{}).Format(epg, &a); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if err := (XML{}).Format(epg, &b); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("两次输出不一致")
	}

	var got Document
	if err := xml.Unmarshal(a.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal: %v\n%s", err, a.String())
	}
	if diff := cmp.Diff(Build(epg), got, cmpopts.IgnoreFields(Document{}, "XMLName")); diff != "" {
		t.Fatalf("XML 内容不符合预期（-want +got）：\n%s", diff)
	}
}

func TestYAML_ParsesBackToSameDocument(t *testing.T) {
	epg := sampleEPG(t)
	var buf bytes.Buffer
	if err := (YAML{}).Format(epg, &buf); err != nil {
		t.Fatalf("Format: %v", err)
	}

	var got Document
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal: %v\n%s", err, buf.String())
	}
	if diff := cmp.Diff(Build(epg), got); diff != "" {
		t.Fatalf("YAML 内容不符合预期（-want +got）：\n%s", diff)
	}
}

func TestFormat_EmptyEPG(t *testing.T) {
	var buf bytes.Buffer
	if err := (XML{}).Format(domain.NewEPG(), &buf); err != nil {
		t.Fatalf("Format: %v", err)
	}
	var got Document
	if err := xml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("空 EPG 也必须是合法 XML：%v", err)
	}
	if got.XMLName.Local != "epg" || len(got.Channels) != 0 {
		t.Fatalf("got=%+v", got)
	}
}
