package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/epgrab/internal/infra/fsx"
)

const (
	// ErrCodeNotFound 表示配置根目录下没有 config 文件。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	DefaultRoot      = "~/.epgrab"
	FileName         = "config"
	CacheDirName     = "cache"
	DefaultDays      = 7
	DefaultGrabber   = "atlas"
	DefaultFormatter = "epg"
	DefaultAtlasURL  = "https://atlas.metabroadcast.com/3.0"
)

// Config 是合并（默认值 < 配置文件 < 环境变量 < 调用方覆盖）并校验后的最终配置。
type Config struct {
	// Root 是配置根目录（clean + absolute），不来自配置内容本身。
	Root string `mapstructure:"-"`

	Channels  []string `mapstructure:"channels"`
	Days      int      `mapstructure:"days" validate:"gte=0"`
	Grabber   string   `mapstructure:"grabber" validate:"required"`
	Formatter string   `mapstructure:"formatter" validate:"required"`

	Log     LogConfig     `mapstructure:"log"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Atlas   AtlasConfig   `mapstructure:"atlas"`
	Listing ListingConfig `mapstructure:"listing"`
	XMLTV   XMLTVConfig   `mapstructure:"xmltv"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info success warn warning error"`
	Color bool   `mapstructure:"color"`
}

type HTTPConfig struct {
	Proxy     string        `mapstructure:"proxy" validate:"omitempty,url"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gte=0"`
	UserAgent string        `mapstructure:"user_agent"`
}

type CacheConfig struct {
	// MaxAge 为 0 表示缓存永不过期。
	MaxAge   time.Duration `mapstructure:"max_age" validate:"gte=0"`
	Disabled bool          `mapstructure:"disabled"`
	// ReadOnly 时只使用已有缓存，不写入新条目（也不清理）。
	ReadOnly bool `mapstructure:"read_only"`
}

type AtlasConfig struct {
	URL         string   `mapstructure:"url" validate:"omitempty,url"`
	APIKey      string   `mapstructure:"api_key"`
	Platform    string   `mapstructure:"platform"`
	Annotations []string `mapstructure:"annotations"`
}

type ListingConfig struct {
	URL       string           `mapstructure:"url" validate:"omitempty,url"`
	Timezone  string           `mapstructure:"timezone"`
	Selectors ListingSelectors `mapstructure:"selectors"`
}

// ListingSelectors 是 HTML 列表页的 CSS 选择器（goquery 语法）。
type ListingSelectors struct {
	Channel       string `mapstructure:"channel" validate:"required"`
	ChannelName   string `mapstructure:"channel_name"`
	ChannelNumber string `mapstructure:"channel_number"`
	ChannelIcon   string `mapstructure:"channel_icon"`
	Programme     string `mapstructure:"programme" validate:"required"`
	Title         string `mapstructure:"title" validate:"required"`
	Subtitle      string `mapstructure:"subtitle"`
	Description   string `mapstructure:"description"`
	Episode       string `mapstructure:"episode"`
	Genre         string `mapstructure:"genre"`
	Credit        string `mapstructure:"credit"`
}

type XMLTVConfig struct {
	Generator string `mapstructure:"generator"`
	Lang      string `mapstructure:"lang"`
}

func (c Config) ConfigPath() string { return filepath.Join(c.Root, FileName) }
func (c Config) CacheDir() string   { return filepath.Join(c.Root, CacheDirName) }

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ResolveRoot 把配置根目录变为 clean + absolute；为空时使用 ~/.epgrab。
func ResolveRoot(root string) (string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		root = DefaultRoot
	}
	p, err := homedir.Expand(root)
	if err != nil {
		return "", err
	}
	return filepath.Abs(filepath.Clean(p))
}

// Load 读取 <root>/config 并与环境变量、调用方覆盖合并为最终配置。
//
// 覆盖优先级（固定）：默认值 < 配置文件 < EPGRAB_* 环境变量 < overrides。
// overrides 的 key 可以是点分路径（例如 "atlas.api_key"）。
// 配置文件缺失或无效都是致命错误。
func Load(root string, overrides map[string]any) (Config, error) {
	absRoot, err := ResolveRoot(root)
	if err != nil {
		return Config{}, &Error{Code: ErrCodeInvalid, Path: root, Err: err}
	}
	cfgPath := filepath.Join(absRoot, FileName)

	fileMap, exists, err := readFileMap(cfgPath)
	if err != nil {
		return Config{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		return Config{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}

	envMap, err := readEnvMap()
	if err != nil {
		return Config{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	merged := Defaults()
	mergeInto(merged, fileMap)
	mergeInto(merged, envMap)
	mergeInto(merged, expandKeys(overrides))

	cfg, err := decode(merged)
	if err != nil {
		return Config{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	cfg.Root = absRoot
	return cfg, nil
}

// Defaults 返回内置默认值（每次调用返回新 map，调用方可以随意修改）。
func Defaults() map[string]any {
	return map[string]any{
		"channels":  []any{},
		"days":      DefaultDays,
		"grabber":   DefaultGrabber,
		"formatter": DefaultFormatter,
		"log": map[string]any{
			"level": "info",
			"color": false,
		},
		"http": map[string]any{
			"proxy":      "",
			"timeout":    "20s",
			"user_agent": "",
		},
		"cache": map[string]any{
			"max_age":   "12h",
			"disabled":  false,
			"read_only": false,
		},
		"atlas": map[string]any{
			"url":         DefaultAtlasURL,
			"api_key":     "",
			"platform":    "",
			"annotations": []any{"broadcasts", "brand_summary", "series_summary", "extended_description", "people"},
		},
		"listing": map[string]any{
			"url":      "",
			"timezone": "UTC",
			"selectors": map[string]any{
				"channel":        "li.channel",
				"channel_name":   ".name",
				"channel_number": ".number",
				"channel_icon":   "img",
				"programme":      ".programme",
				"title":          ".title",
				"subtitle":       ".subtitle",
				"description":    ".desc",
				"episode":        ".episode",
				"genre":          ".genre",
				"credit":         ".credit",
			},
		},
		"xmltv": map[string]any{
			"generator": "epgrab",
			"lang":      "en",
		},
	}
}

// WriteDefault 在 <root>/config 写入默认配置（YAML）。文件已存在时返回 os.ErrExist。
func WriteDefault(root string) (string, error) {
	absRoot, err := ResolveRoot(root)
	if err != nil {
		return "", err
	}
	path := filepath.Join(absRoot, FileName)
	if _, err := os.Stat(path); err == nil {
		return path, os.ErrExist
	} else if !os.IsNotExist(err) {
		return path, err
	}
	b, err := yaml.Marshal(Defaults())
	if err != nil {
		return path, err
	}
	return path, fsx.WriteFile(path, b, fsx.WriteOptions{Perm: 0o644, NoClobber: true})
}

func decode(m map[string]any) (Config, error) {
	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result: &cfg,
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(m); err != nil {
		return Config{}, err
	}

	cfg.Channels = normList(cfg.Channels)
	cfg.Grabber = strings.ToLower(strings.TrimSpace(cfg.Grabber))
	cfg.Formatter = strings.ToLower(strings.TrimSpace(cfg.Formatter))

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// readFileMap 读取并解析 YAML 配置文件为通用 map（保留显式零值，例如 days: 0）。
// 返回值 exists 表示该文件是否存在（不存在不算解析错误，由调用方决定）。
func readFileMap(path string) (m map[string]any, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, true, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, true, nil
}

// mergeInto 把 src 深度合并进 dst：两侧都是 map 时递归，否则 src 覆盖 dst。
func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				mergeInto(dm, sm)
				continue
			}
		}
		dst[k] = v
	}
}

// expandKeys 把 "a.b.c" 形式的 key 展开为嵌套 map。
func expandKeys(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		parts := strings.Split(strings.TrimSpace(k), ".")
		cur := out
		for i, p := range parts {
			if i == len(parts)-1 {
				if sm, ok := v.(map[string]any); ok {
					if dm, ok := cur[p].(map[string]any); ok {
						mergeInto(dm, expandKeys(sm))
						break
					}
					cur[p] = expandKeys(sm)
					break
				}
				cur[p] = v
				break
			}
			next, ok := cur[p].(map[string]any)
			if !ok {
				next = map[string]any{}
				cur[p] = next
			}
			cur = next
		}
	}
	return out
}

func normList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
