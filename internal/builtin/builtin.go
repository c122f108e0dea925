// Package builtin 汇总内置的 grabber 与 formatter。
package builtin

import (
	"github.com/John-Robertt/epgrab/internal/formatter"
	"github.com/John-Robertt/epgrab/internal/formatter/native"
	"github.com/John-Robertt/epgrab/internal/formatter/xmltv"
	"github.com/John-Robertt/epgrab/internal/grabber"
	"github.com/John-Robertt/epgrab/internal/grabber/atlas"
	"github.com/John-Robertt/epgrab/internal/grabber/listing"
	"github.com/John-Robertt/epgrab/internal/plugin"
)

func Grabbers() plugin.Registry[grabber.Factory] {
	return mustRegistry("grabber", atlas.Factory(), listing.Factory())
}

func Formatters() plugin.Registry[formatter.Factory] {
	return mustRegistry("formatter",
		native.Factory(),
		native.YAMLFactory(),
		xmltv.Factory(),
		xmltv.ExtendedFactory(),
	)
}

// 内置条目名称固定；构造失败属于编程错误。
func mustRegistry[T plugin.Named](kind string, entries ...T) plugin.Registry[T] {
	r, err := plugin.NewRegistry(kind, entries...)
	if err != nil {
		panic(err)
	}
	return r
}
