package config

import (
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig 是 EPGRAB_* 环境变量的映射。字段全部是字符串：未设置即为空，不参与覆盖。
type envConfig struct {
	Channels   string `env:"EPGRAB_CHANNELS" env-description:"逗号分隔的频道 ID（为空表示全部频道）"`
	Days       string `env:"EPGRAB_DAYS" env-description:"抓取天数（>=0）"`
	Grabber    string `env:"EPGRAB_GRABBER" env-description:"grabber 名称（默认 atlas）"`
	Formatter  string `env:"EPGRAB_FORMATTER" env-description:"formatter 名称（默认 epg）"`
	LogLevel   string `env:"EPGRAB_LOG_LEVEL" env-description:"日志级别：debug|info|warn|error"`
	Proxy      string `env:"EPGRAB_HTTP_PROXY" env-description:"代理 URL（http/https/socks5）"`
	AtlasURL   string `env:"EPGRAB_ATLAS_URL" env-description:"Atlas API 根地址"`
	AtlasKey   string `env:"EPGRAB_ATLAS_API_KEY" env-description:"Atlas API key"`
	ListingURL string `env:"EPGRAB_LISTING_URL" env-description:"HTML 节目单站点根地址"`
}

func readEnvMap() (map[string]any, error) {
	var ec envConfig
	if err := cleanenv.ReadEnv(&ec); err != nil {
		return nil, err
	}

	m := map[string]any{}
	set := func(key, v string) {
		if strings.TrimSpace(v) != "" {
			m[key] = v
		}
	}
	set("channels", ec.Channels)
	set("days", ec.Days)
	set("grabber", ec.Grabber)
	set("formatter", ec.Formatter)
	set("log.level", ec.LogLevel)
	set("http.proxy", ec.Proxy)
	set("atlas.url", ec.AtlasURL)
	set("atlas.api_key", ec.AtlasKey)
	set("listing.url", ec.ListingURL)
	return expandKeys(m), nil
}

// EnvHelp 返回环境变量说明（用于 CLI 帮助输出）。
func EnvHelp() string {
	header := "环境变量："
	s, err := cleanenv.GetDescription(&envConfig{}, &header)
	if err != nil {
		return ""
	}
	return s
}
