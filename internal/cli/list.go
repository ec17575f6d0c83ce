package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ByLCY/versecard/fonts"
	"github.com/ByLCY/versecard/layout"
)

func (c *CLI) ratiosCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ratios",
		Short: "List the available aspect ratios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := printer{w: cmd.OutOrStdout()}
			for _, r := range layout.Ratios() {
				out.keyValue(r.Key, ratioDescription(r))
			}
			return nil
		},
	}
}

func ratioDescription(r layout.AspectRatio) string {
	if r.Native {
		return "原图比例，不裁剪"
	}
	return fmt.Sprintf("%s (%.4g)", r.Label(), r.W/r.H)
}

func (c *CLI) presetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the preset background images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			out := printer{w: cmd.OutOrStdout()}
			for _, p := range cfg.Gallery {
				out.keyValue(p.Name, p.URL)
			}
			return nil
		},
	}
}

func (c *CLI) fontsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fonts",
		Short: "List the embedded fonts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := printer{w: cmd.OutOrStdout()}
			for _, name := range fonts.Names() {
				if name == fonts.Default {
					out.keyValue(name, "embed:"+name+" (默认)")
					continue
				}
				out.keyValue(name, "embed:"+name)
			}
			return nil
		},
	}
}
