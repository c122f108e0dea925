package native

import (
	"encoding/xml"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/epgrab/internal/domain"
	"github.com/John-Robertt/epgrab/internal/formatter"
)

// XML 输出 <epg> 文档（默认 formatter）。
type XML struct{}

// YAML 输出与 XML 相同结构的 YAML 文档。
type YAML struct{}

func Factory() formatter.Factory {
	return formatter.Factory{Name: "epg", New: func(formatter.Env) (formatter.Formatter, error) { return XML{}, nil }}
}

func YAMLFactory() formatter.Factory {
	return formatter.Factory{Name: "yaml", New: func(formatter.Env) (formatter.Formatter, error) { return YAML{}, nil }}
}

func (XML) Format(epg *domain.EPG, w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(Build(epg)); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func (YAML) Format(epg *domain.EPG, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Build(epg)); err != nil {
		return err
	}
	return enc.Close()
}
