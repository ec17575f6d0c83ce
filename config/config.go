// Package config 读取 TOML 配置文件。文件不存在时使用默认值，命令行参数可以覆盖其中任意一项。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ByLCY/versecard/layout"
	"github.com/ByLCY/versecard/source"
	"github.com/ByLCY/versecard/verse"
)

const appName = "versecard"

// Config 对应 config.toml 的全部内容。
type Config struct {
	Provider Provider       `toml:"provider"`
	Cache    Cache          `toml:"cache"`
	Style    Style          `toml:"style"`
	Server   Server         `toml:"server"`
	Gallery  source.Gallery `toml:"gallery"`
}

// Provider 配置经文接口。
type Provider struct {
	BaseURL     string   `toml:"base_url"`
	Translation string   `toml:"translation"`
	Timeout     Duration `toml:"timeout"`
}

// Cache 配置经文缓存。RedisAddr 非空时优先使用 Redis。
type Cache struct {
	Dir       string   `toml:"dir"`
	TTL       Duration `toml:"ttl"`
	RedisAddr string   `toml:"redis_addr"`
	Disabled  bool     `toml:"disabled"`
}

// Style 是默认样式，写法与作业文件中的 style 段落一致。
type Style struct {
	Font     string  `toml:"font"` // 为空时使用内置字体
	FontSize string  `toml:"font_size"`
	Color    string  `toml:"color"`
	Align    string  `toml:"align"`
	Offset   float64 `toml:"offset"`
	Ratio    string  `toml:"ratio"`
	Subtitle *bool   `toml:"subtitle"`
}

// Server 配置 HTTP 服务。
type Server struct {
	Addr string `toml:"addr"`
}

// Duration 允许在 TOML 中以 "10s"、"168h" 的形式书写时长。
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("无效的时长 %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultGallery 是未配置 [[gallery]] 时提供的预设图片。
var DefaultGallery = source.Gallery{
	{Name: "mountains", URL: "https://picsum.photos/id/1018/1920/1280"},
	{Name: "lake", URL: "https://picsum.photos/id/1015/1920/1280"},
	{Name: "forest", URL: "https://picsum.photos/id/1043/1920/1280"},
	{Name: "sunrise", URL: "https://picsum.photos/id/1067/1920/1280"},
}

// Default 返回默认配置。
func Default() Config {
	return Config{
		Provider: Provider{
			BaseURL:     verse.DefaultBaseURL,
			Translation: verse.DefaultTranslation,
			Timeout:     Duration{verse.DefaultTimeout},
		},
		Cache: Cache{TTL: Duration{verse.DefaultTTL}},
		Style: Style{
			FontSize: "48px",
			Color:    "#ffffff",
			Align:    string(layout.AlignCenter),
			Ratio:    "default",
		},
		Server:  Server{Addr: ":8080"},
		Gallery: append(source.Gallery(nil), DefaultGallery...),
	}
}

// Load 读取 path 指向的配置，path 为空时使用 DefaultPath。
// 文件不存在不是错误，返回默认配置。
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return Default(), nil
		}
		return cfg, fmt.Errorf("读取配置 %s 失败: %w", path, err)
	}
	if len(cfg.Gallery) == 0 {
		cfg.Gallery = append(source.Gallery(nil), DefaultGallery...)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("配置 %s 无效: %w", path, err)
	}
	return cfg, nil
}

// Validate 检查配置中的样式能否解析。
func (c Config) Validate() error {
	_, err := c.StyleParams()
	return err
}

// StyleParams 把 [style] 段落转换为渲染样式。
func (c Config) StyleParams() (layout.StyleParams, error) {
	style := layout.DefaultStyle()
	fields := []struct{ name, value string }{
		{"size", c.Style.FontSize},
		{"color", c.Style.Color},
		{"align", c.Style.Align},
		{"font", c.Style.Font},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := layout.ApplyStyleField(&style, f.name, f.value); err != nil {
			return style, err
		}
	}
	style.VerticalOffset = c.Style.Offset
	if c.Style.Subtitle != nil {
		style.IncludeSubtitle = *c.Style.Subtitle
	}
	err := style.Validate()
	return style, err
}

// DefaultPath 返回 $XDG_CONFIG_HOME/versecard/config.toml（默认 ~/.config/versecard/config.toml）。
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// CacheDir 返回缓存目录：配置值优先，否则使用 $XDG_CACHE_HOME/versecard。
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
