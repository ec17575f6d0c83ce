// Package cli implements the versecard command-line interface.
//
// 命令：
//   - render: 把经文叠加到图片上并导出 PNG，可读取 .card 作业文件
//   - verse: 查询并打印经文
//   - ratios / presets / fonts: 列出可用的画幅比例、预设图片与内置字体
//   - serve: 启动 HTTP 渲染服务
//   - cache: 管理经文缓存
//
// 所有命令都支持 --verbose (-v) 与 --config。
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ByLCY/versecard/buildinfo"
	"github.com/ByLCY/versecard/cache"
	"github.com/ByLCY/versecard/config"
	canvasrenderer "github.com/ByLCY/versecard/renderer/canvas"
	"github.com/ByLCY/versecard/source"
	"github.com/ByLCY/versecard/verse"
)

const appName = "versecard"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger     *log.Logger
	configPath string
}

// New creates a CLI writing logs to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Overlay Bible verses on photos",
		Long:         `versecard 把经文排版到照片上：按画幅比例居中裁剪，自动换行并竖直居中，带柔和阴影与引用副标题，导出 PNG。`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "配置文件路径（默认 $XDG_CONFIG_HOME/versecard/config.toml）")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.verseCommand())
	root.AddCommand(c.ratiosCommand())
	root.AddCommand(c.presetsCommand())
	root.AddCommand(c.fontsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	return root
}

func (c *CLI) loadConfig() (config.Config, error) {
	return config.Load(c.configPath)
}

// newCache 按配置选择经文缓存：Redis 优先，其次本地目录；noCache 时不缓存。
func newCache(ctx context.Context, cfg config.Config, noCache bool, logger *log.Logger) cache.Cache {
	if noCache || cfg.Cache.Disabled {
		return cache.NewNullCache()
	}
	if cfg.Cache.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.Cache.RedisAddr, appName+":")
		if err == nil {
			return rc
		}
		logger.Warn("Redis 不可用，改用本地缓存", "addr", cfg.Cache.RedisAddr, "err", err)
	}
	dir, err := cfg.CacheDir()
	if err != nil {
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		logger.Warn("无法创建缓存目录", "dir", dir, "err", err)
		return cache.NewNullCache()
	}
	return fc
}

func newFetcher(cfg config.Config, store cache.Cache, translation string, logger *log.Logger) *verse.Client {
	if translation == "" {
		translation = cfg.Provider.Translation
	}
	return verse.NewClient(verse.Options{
		BaseURL:     cfg.Provider.BaseURL,
		Translation: translation,
		Timeout:     cfg.Provider.Timeout.Duration,
		TTL:         cfg.Cache.TTL.Duration,
		Cache:       store,
		Logger:      logger,
	})
}

func newRenderer(baseDir string, logger *log.Logger) *canvasrenderer.Renderer {
	return canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{BaseDir: baseDir, Logger: logger})
}

func newLoader(cfg config.Config, logger *log.Logger) *source.Loader {
	return source.NewLoader(cfg.Gallery, logger)
}
