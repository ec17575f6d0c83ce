// Package server 通过 HTTP 提供卡片渲染、经文查询与预设列表。
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ByLCY/versecard/layout"
	"github.com/ByLCY/versecard/renderer"
	"github.com/ByLCY/versecard/session"
	"github.com/ByLCY/versecard/source"
	"github.com/ByLCY/versecard/verse"
)

// MaxUploadBytes 限制上传图片的大小。
const MaxUploadBytes = 32 << 20

// Options configures the HTTP service.
type Options struct {
	Renderer renderer.Renderer
	Fetcher  verse.Fetcher
	Loader   *source.Loader
	Style    layout.StyleParams
	Ratio    string
	Logger   *log.Logger
}

// Server 是无状态的渲染服务：每个请求创建独立的 session。
type Server struct {
	opts   Options
	logger *log.Logger
	router chi.Router
}

// New creates the service and registers its routes.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Loader == nil {
		opts.Loader = source.NewLoader(nil, opts.Logger)
	}
	if opts.Style.FontSize == 0 {
		opts.Style = layout.DefaultStyle()
	}
	if opts.Ratio == "" {
		opts.Ratio = "default"
	}
	s := &Server{opts: opts, logger: opts.Logger}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ratios", s.handleRatios)
	r.Get("/presets", s.handlePresets)
	r.Get("/verse", s.handleVerse)
	r.Post("/render", s.handleRender)
	s.router = r
	return s
}

// Handler 返回 HTTP 处理器。
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe 在 addr 上提供服务，ctx 结束后优雅关闭。
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("服务已启动", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

type ratioView struct {
	Key    string  `json:"key"`
	Label  string  `json:"label"`
	Value  float64 `json:"value,omitempty"`
	Native bool    `json:"native,omitempty"`
}

func (s *Server) handleRatios(w http.ResponseWriter, r *http.Request) {
	var out []ratioView
	for _, ratio := range layout.Ratios() {
		v := ratioView{Key: ratio.Key, Label: ratio.Label(), Native: ratio.Native}
		if !ratio.Native {
			v.Value = ratio.W / ratio.H
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	gallery := s.opts.Loader.Gallery
	if gallery == nil {
		gallery = source.Gallery{}
	}
	writeJSON(w, http.StatusOK, gallery)
}

func (s *Server) handleVerse(w http.ResponseWriter, r *http.Request) {
	if s.opts.Fetcher == nil {
		writeError(w, r, http.StatusServiceUnavailable, errors.New("未配置经文接口"))
		return
	}
	ref := r.URL.Query().Get("ref")
	v, err := s.fetch(r.Context(), ref, r.URL.Query().Get("translation"))
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleRender 接受 multipart 或 urlencoded 表单：
// image（文件）/ image_url / preset 选择源图，verse 查询经文，text 与 subtitle 直接指定文本，
// ratio、size、color、align、offset、font、include_subtitle 调整样式。
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			writeError(w, r, http.StatusBadRequest, fmt.Errorf("解析表单失败: %w", err))
			return
		}
		if err := r.ParseForm(); err != nil {
			writeError(w, r, http.StatusBadRequest, fmt.Errorf("解析表单失败: %w", err))
			return
		}
	}

	style, err := s.styleFromForm(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	ratio := s.opts.Ratio
	if v := strings.TrimSpace(r.FormValue("ratio")); v != "" {
		ratio = v
	}
	logger := s.logger.With("request_id", requestIDFrom(r.Context()))
	sess := session.New(s.opts.Renderer,
		session.WithLogger(logger),
		session.WithStyle(style),
		session.WithRatio(ratio),
		session.WithTemplate(layout.TextBlock{
			Body:     formOr(r, "text", layout.DefaultBodyTemplate),
			Subtitle: formOr(r, "subtitle", layout.DefaultSubtitleTemplate),
		}),
	)
	if r.Form.Has("text") || r.Form.Has("subtitle") {
		_ = sess.SetText(layout.TextBlock{Body: r.FormValue("text"), Subtitle: r.FormValue("subtitle")})
	}

	if ref := strings.TrimSpace(r.FormValue("verse")); ref != "" && s.opts.Fetcher != nil {
		v, err := s.fetch(r.Context(), ref, r.FormValue("translation"))
		if err != nil {
			// 与编辑器一致：查询失败时保留现有文本继续渲染
			logger.Warn("获取经文失败", "ref", ref, "err", err)
			w.Header().Set("X-Verse-Error", err.Error())
		} else if err := sess.ApplyVerse(r.Context(), staticFetcher{v}, ref); err != nil && !errors.Is(err, session.ErrNoImage) {
			writeError(w, r, http.StatusInternalServerError, err)
			return
		}
	}

	img, err := s.imageFromRequest(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := sess.SetImage(img); err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": sess.FileName()}))
	if plan := sess.Plan(); plan != nil {
		w.Header().Set("X-Line-Count", strconv.Itoa(plan.LineCount()))
	}
	if err := sess.Export(w); err != nil {
		logger.Error("写出 PNG 失败", "err", err)
	}
}

func (s *Server) styleFromForm(r *http.Request) (layout.StyleParams, error) {
	style := s.opts.Style
	for _, field := range []string{"size", "color", "align", "offset", "font"} {
		v := strings.TrimSpace(r.FormValue(field))
		if v == "" {
			continue
		}
		// 服务端只允许内置字体，不读取本地文件
		if field == "font" && !strings.HasPrefix(v, "embed:") {
			return style, &layout.InvalidStyleError{Field: "font", Value: v}
		}
		if err := layout.ApplyStyleField(&style, field, v); err != nil {
			return style, err
		}
	}
	if v := strings.TrimSpace(r.FormValue("include_subtitle")); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return style, &layout.InvalidStyleError{Field: "include_subtitle", Value: v}
		}
		style.IncludeSubtitle = on
	}
	err := style.Validate()
	return style, err
}

func (s *Server) imageFromRequest(r *http.Request) (image.Image, error) {
	if r.MultipartForm != nil {
		if files := r.MultipartForm.File["image"]; len(files) > 0 {
			f, err := files[0].Open()
			if err != nil {
				return nil, err
			}
			defer f.Close()
			return source.Decode(f)
		}
	}
	if p := strings.TrimSpace(r.FormValue("preset")); p != "" {
		return s.opts.Loader.Load(r.Context(), "preset:"+p)
	}
	if u := strings.TrimSpace(r.FormValue("image_url")); u != "" {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return nil, fmt.Errorf("image_url 只支持 http(s) 地址")
		}
		return s.opts.Loader.LoadURL(r.Context(), u)
	}
	return nil, session.ErrNoImage
}

type translationFetcher interface {
	FetchTranslation(ctx context.Context, reference, translation string) (*verse.Verse, error)
}

func (s *Server) fetch(ctx context.Context, ref, translation string) (*verse.Verse, error) {
	if tf, ok := s.opts.Fetcher.(translationFetcher); ok && translation != "" {
		return tf.FetchTranslation(ctx, ref, translation)
	}
	return s.opts.Fetcher.Fetch(ctx, ref)
}

// staticFetcher 返回已经取得的经文，使 session 复用同一套模板绑定逻辑。
type staticFetcher struct{ v *verse.Verse }

func (f staticFetcher) Fetch(context.Context, string) (*verse.Verse, error) { return f.v, nil }

func formOr(r *http.Request, key, fallback string) string {
	if r.Form.Has(key) {
		return r.FormValue(key)
	}
	return fallback
}

func statusFor(err error) int {
	var (
		invalidImage *layout.InvalidImageError
		degenerate   *layout.DegenerateCropError
		invalidStyle *layout.InvalidStyleError
	)
	switch {
	case errors.Is(err, verse.ErrEmptyReference), errors.As(err, &invalidImage), errors.As(err, &degenerate), errors.As(err, &invalidStyle):
		return http.StatusBadRequest
	case errors.Is(err, verse.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, verse.ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(w, status, map[string]string{
		"error":      err.Error(),
		"request_id": requestIDFrom(r.Context()),
	})
}
