// Package source 加载作为卡片背景的图片：本地文件、远程 URL 或预设图库。
package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
)

// MaxDownloadBytes 限制远程图片的大小。
const MaxDownloadBytes = 32 << 20

// ErrUnknownPreset 表示图库中没有该名称的预设。
var ErrUnknownPreset = errors.New("未知的预设图片")

// Preset 是图库中的一张预设图片。
type Preset struct {
	Name string `toml:"name" json:"name"`
	URL  string `toml:"url" json:"url"`
}

// Gallery 是按配置顺序排列的预设图片。
type Gallery []Preset

// Find 按名称（不区分大小写）查找预设。
func (g Gallery) Find(name string) (Preset, bool) {
	for _, p := range g {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, true
		}
	}
	return Preset{}, false
}

// Decode 解码图片并按 EXIF 方向信息摆正。
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("解码图片失败: %w", err)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("图片尺寸非法: %dx%d", b.Dx(), b.Dy())
	}
	return img, nil
}

// LoadFile 读取本地图片文件。
func LoadFile(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("读取图片 %s 失败: %w", path, err)
	}
	return img, nil
}

// Loader 根据引用字符串加载图片。引用可以是文件路径、http(s) URL 或 preset:<名称>。
type Loader struct {
	Gallery Gallery
	HTTP    *http.Client
	Logger  *log.Logger
}

// NewLoader creates a Loader with a bounded HTTP timeout.
func NewLoader(gallery Gallery, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Loader{
		Gallery: gallery,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Logger:  logger,
	}
}

// Load 同步加载 ref 指向的图片。
func (l *Loader) Load(ctx context.Context, ref string) (image.Image, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return nil, fmt.Errorf("图片来源为空")
	case strings.HasPrefix(ref, "preset:"):
		name := strings.TrimPrefix(ref, "preset:")
		p, ok := l.Gallery.Find(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
		}
		l.logger().Debug("使用预设图片", "name", p.Name, "url", p.URL)
		return l.Load(ctx, p.URL)
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		return l.LoadURL(ctx, ref)
	default:
		return LoadFile(ref)
	}
}

// LoadURL 下载并解码远程图片。
func (l *Loader) LoadURL(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := l.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("下载图片 %s 失败: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("下载图片 %s 失败: status %d", url, resp.StatusCode)
	}
	img, err := Decode(io.LimitReader(resp.Body, MaxDownloadBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	l.logger().Debug("已下载图片", "url", url, "size", fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy()))
	return img, nil
}

// Result 是异步加载的结果。
type Result struct {
	Ref   string
	Image image.Image
	Err   error
}

// LoadAsync 在后台加载图片，完成后向返回的通道发送一次结果并关闭通道。
func (l *Loader) LoadAsync(ctx context.Context, ref string) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		img, err := l.Load(ctx, ref)
		out <- Result{Ref: ref, Image: img, Err: err}
	}()
	return out
}

func (l *Loader) logger() *log.Logger {
	if l.Logger == nil {
		l.Logger = log.New(io.Discard)
	}
	return l.Logger
}
