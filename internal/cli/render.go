package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ByLCY/versecard/binding"
	"github.com/ByLCY/versecard/dsl"
	"github.com/ByLCY/versecard/layout"
	"github.com/ByLCY/versecard/renderer"
	"github.com/ByLCY/versecard/session"
	"github.com/ByLCY/versecard/verse"
)

// renderOpts 汇总 render 命令的参数。作业文件提供默认值，显式给出的参数覆盖它们。
type renderOpts struct {
	image       string
	preset      string
	verse       string
	translation string
	text        string
	subtitle    string
	ratio       string
	size        string
	color       string
	align       string
	font        string
	offset      float64
	noSubtitle  bool
	out         string
	debug       string
	noCache     bool
}

func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts
	cmd := &cobra.Command{
		Use:   "render [job.card]",
		Short: "Render a verse card to PNG",
		Long: `把经文叠加到图片上并导出 PNG。

图片来源使用 --image（本地路径或 http(s) URL）或 --preset（配置中的预设图片）。
--verse 会在线查询经文；未指定时使用 --text，或默认的 John 3:16。
可以传入 .card 作业文件，命令行参数会覆盖其中的同名设置。`,
		Example: `  versecard render --image sunrise.jpg --verse "Psalm 23:1" --ratio phone-portrait
  versecard render --preset lake --text "Be still, and know that I am God" --subtitle "Psalm 46:10"
  versecard render examples/psalm23.card --out card.png`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			jobPath := ""
			if len(args) == 1 {
				jobPath = args[0]
			}
			return c.runRender(ctx, cmd, jobPath, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.image, "image", "i", "", "源图片路径或 URL")
	f.StringVarP(&opts.preset, "preset", "p", "", "预设图片名称（见 versecard presets）")
	f.StringVar(&opts.verse, "verse", "", `经文引用，如 "John 3:16"`)
	f.StringVarP(&opts.translation, "translation", "t", "", "译本代号，如 kjv、web")
	f.StringVar(&opts.text, "text", "", "正文；与 --verse 同用时作为模板，可引用 ${text}、${reference}")
	f.StringVar(&opts.subtitle, "subtitle", "", "副标题")
	f.StringVarP(&opts.ratio, "ratio", "r", "", "画幅比例（见 versecard ratios）")
	f.StringVar(&opts.size, "size", "", "字号，如 48px、36pt、150%")
	f.StringVar(&opts.color, "color", "", "文字颜色，如 #ffffff、rgba(255,255,255,0.8)")
	f.StringVar(&opts.align, "align", "", "对齐方式：left、center、right")
	f.StringVar(&opts.font, "font", "", "字体文件路径或 embed:<name>")
	f.Float64Var(&opts.offset, "offset", 0, "竖直偏移百分比 [-100,100]，正值向下")
	f.BoolVar(&opts.noSubtitle, "no-subtitle", false, "不绘制副标题")
	f.StringVarP(&opts.out, "out", "o", "", "输出 PNG 路径（默认由经文引用生成）")
	f.StringVar(&opts.debug, "debug", "", "排版计划调试 JSON 输出路径")
	f.BoolVar(&opts.noCache, "no-cache", false, "不使用经文缓存")
	return cmd
}

func (c *CLI) runRender(ctx context.Context, cmd *cobra.Command, jobPath string, opts renderOpts) error {
	logger := loggerFromContext(ctx)
	out := printer{w: cmd.OutOrStdout()}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	style, err := cfg.StyleParams()
	if err != nil {
		return err
	}

	job := &layout.Job{
		Ratio:    cfg.Style.Ratio,
		Style:    style,
		Template: layout.TextBlock{Body: layout.DefaultBodyTemplate, Subtitle: layout.DefaultSubtitleTemplate},
	}
	baseDir := "."
	if jobPath != "" {
		if job, err = loadJob(jobPath, style); err != nil {
			return err
		}
		baseDir = filepath.Dir(jobPath)
		if job.Ratio == "default" && cfg.Style.Ratio != "" {
			job.Ratio = cfg.Style.Ratio
		}
		logger.Debug("已读取作业文件", "path", jobPath, "name", job.Name)
	}
	if err := applyRenderFlags(cmd, job, opts); err != nil {
		return err
	}

	imageRef := job.Image
	if imageRef == "" && job.Preset != "" {
		imageRef = "preset:" + job.Preset
	}
	if imageRef != "" && !isRemote(imageRef) && !filepath.IsAbs(imageRef) && !cmd.Flags().Changed("image") {
		imageRef = filepath.Join(baseDir, imageRef)
	}
	if imageRef == "" {
		return fmt.Errorf("需要通过 --image、--preset 或作业文件指定图片")
	}

	prog := newProgress(logger)
	sess := session.New(newRenderer(baseDir, logger),
		session.WithLogger(logger),
		session.WithStyle(job.Style),
		session.WithRatio(job.Ratio),
		session.WithTemplate(job.Template),
	)

	loader := newLoader(cfg, logger)
	events := []<-chan session.Event{session.Images(loader.LoadAsync(ctx, imageRef))}
	if job.Verse != "" {
		store := newCache(ctx, cfg, opts.noCache, logger)
		defer store.Close()
		fetcher := newFetcher(cfg, store, job.Translation, logger)
		events = append(events, session.FetchVerse(ctx, fetcher, job.Verse))
	} else if block, ok := literalBlock(job.Template); ok {
		events = append(events, single(session.TextChanged{Block: block}))
	}

	if err := sess.Run(ctx, session.Merge(ctx, events...)); err != nil {
		return err
	}
	if !sess.HasImage() {
		return fmt.Errorf("无法加载图片 %s", imageRef)
	}
	if sess.Plan() == nil {
		return fmt.Errorf("渲染失败")
	}
	if job.Verse != "" && sess.Reference() == "" {
		out.warning("未能获取经文 %s，使用原有文本", job.Verse)
	}

	path := job.Output
	if path == "" {
		path = sess.FileName()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	if err := renderer.SavePNG(path, sess.Surface()); err != nil {
		return err
	}
	prog.done("渲染完成")

	plan := sess.Plan()
	crop := sess.Crop()
	w, h := crop.Size()
	out.success("已生成 %s", filepath.Base(path))
	out.detail("%dx%d · %s · %d 行", w, h, job.Ratio, plan.LineCount())
	out.file(path)

	if opts.debug != "" {
		b := sess.SourceBounds()
		dump := layout.DebugDump{Ratio: job.Ratio, Source: [2]int{b.Dx(), b.Dy()}, Crop: crop, Plan: plan}
		if err := layout.WriteDebugJSON(opts.debug, dump); err != nil {
			return fmt.Errorf("写入调试 JSON 失败: %w", err)
		}
		out.file(opts.debug)
	}
	return nil
}

func loadJob(path string, base layout.StyleParams) (*layout.Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开作业文件 %s: %w", path, err)
	}
	defer f.Close()
	doc, err := dsl.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("解析作业文件失败: %w", err)
	}
	return layout.BuildJob(doc, base)
}

// applyRenderFlags 把显式给出的命令行参数写入作业。
func applyRenderFlags(cmd *cobra.Command, job *layout.Job, opts renderOpts) error {
	flags := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	set("image", &job.Image, opts.image)
	set("preset", &job.Preset, opts.preset)
	set("verse", &job.Verse, opts.verse)
	set("translation", &job.Translation, opts.translation)
	set("ratio", &job.Ratio, opts.ratio)
	set("out", &job.Output, opts.out)
	set("text", &job.Template.Body, opts.text)
	set("subtitle", &job.Template.Subtitle, opts.subtitle)
	if flags.Changed("text") && !flags.Changed("subtitle") && job.Verse == "" {
		job.Template.Subtitle = ""
	}
	if flags.Changed("preset") && !flags.Changed("image") {
		job.Image = ""
	}

	for _, field := range []struct{ name, value string }{
		{"size", opts.size},
		{"color", opts.color},
		{"align", opts.align},
		{"font", opts.font},
	} {
		if !flags.Changed(field.name) {
			continue
		}
		if err := layout.ApplyStyleField(&job.Style, field.name, field.value); err != nil {
			return fmt.Errorf("--%s: %w", field.name, err)
		}
	}
	if flags.Changed("offset") {
		job.Style.VerticalOffset = opts.offset
	}
	if opts.noSubtitle {
		job.Style.IncludeSubtitle = false
	}
	return job.Style.Validate()
}

// literalBlock 在没有查询经文时决定显示的文本：模板未改动时保留默认经文，
// 否则用默认经文的数据填充模板；不含占位符的模板原样显示。
func literalBlock(tpl layout.TextBlock) (layout.TextBlock, bool) {
	if tpl.Body == layout.DefaultBodyTemplate && tpl.Subtitle == layout.DefaultSubtitleTemplate {
		return layout.TextBlock{}, false
	}
	if !binding.HasPlaceholders(tpl.Body) && !binding.HasPlaceholders(tpl.Subtitle) {
		return tpl, true
	}
	data := map[string]any{
		"text":      session.DefaultBlock.Body,
		"reference": session.DefaultBlock.Subtitle,
	}
	return layout.TextBlock{
		Body:     binding.Interpolate(tpl.Body, data),
		Subtitle: binding.Interpolate(tpl.Subtitle, data),
	}, true
}

func single(ev session.Event) <-chan session.Event {
	ch := make(chan session.Event, 1)
	ch <- ev
	close(ch)
	return ch
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "preset:")
}

// verseCommand 查询并打印经文。
func (c *CLI) verseCommand() *cobra.Command {
	var (
		translation string
		noCache     bool
	)
	cmd := &cobra.Command{
		Use:     "verse <reference>",
		Short:   "Look up a verse",
		Example: `  versecard verse "John 3:16"` + "\n" + `  versecard verse "Romans 8:28" -t web`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			v, err := c.lookupVerse(ctx, strings.Join(args, " "), translation, noCache)
			if err != nil {
				return err
			}
			out := printer{w: cmd.OutOrStdout()}
			out.title(v.Reference)
			out.verse(v.Text)
			if v.TranslationName != "" {
				out.detail("%s (%s)", v.TranslationName, v.TranslationID)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&translation, "translation", "t", "", "译本代号，如 kjv、web")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "不使用经文缓存")
	return cmd
}

func (c *CLI) lookupVerse(ctx context.Context, ref, translation string, noCache bool) (*verse.Verse, error) {
	logger := loggerFromContext(ctx)
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	store := newCache(ctx, cfg, noCache, logger)
	defer store.Close()
	client := newFetcher(cfg, store, translation, logger)
	prog := newProgress(logger.With("ref", ref))
	v, err := client.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	prog.done("已获取经文")
	return v, nil
}
