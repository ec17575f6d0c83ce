package cli

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/ByLCY/versecard/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the renderer over HTTP",
		Long: `启动 HTTP 服务：
  POST /render   上传图片（或指定 preset / image_url）并返回 PNG
  GET  /verse    查询经文，参数 ref、translation
  GET  /ratios   画幅比例列表
  GET  /presets  预设图片列表`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			logger := loggerFromContext(ctx)
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			style, err := cfg.StyleParams()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") {
				addr = cfg.Server.Addr
			}
			store := newCache(ctx, cfg, noCache, logger)
			defer store.Close()

			srv := server.New(server.Options{
				Renderer: newRenderer("", logger),
				Fetcher:  newFetcher(cfg, store, "", logger),
				Loader:   newLoader(cfg, logger),
				Style:    style,
				Ratio:    cfg.Style.Ratio,
				Logger:   logger,
			})
			printer{w: cmd.OutOrStdout()}.info("监听 %s", addr)
			if err := srv.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "监听地址")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "不使用经文缓存")
	return cmd
}
