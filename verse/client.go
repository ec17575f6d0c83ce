// Package verse 从 bible-api.com 风格的接口获取经文。
package verse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ByLCY/versecard/cache"
)

// Defaults for the public provider.
const (
	DefaultBaseURL     = "https://bible-api.com"
	DefaultTranslation = "kjv"
	DefaultTimeout     = 10 * time.Second
	DefaultTTL         = 7 * 24 * time.Hour
)

// Sentinel errors.
var (
	ErrEmptyReference = errors.New("经文引用为空")
	ErrNotFound       = errors.New("未找到经文")
	ErrNetwork        = errors.New("经文接口请求失败")
)

// Verse 是一次查询的结果。Raw 保留接口返回的完整 JSON，供作业文件中的 ${...} 占位符使用。
type Verse struct {
	Reference       string         `json:"reference"`
	Text            string         `json:"text"`
	TranslationID   string         `json:"translation_id"`
	TranslationName string         `json:"translation_name"`
	Verses          []Line         `json:"verses"`
	Raw             map[string]any `json:"-"`
}

// Line 是结果中的单节经文。
type Line struct {
	BookID   string `json:"book_id"`
	BookName string `json:"book_name"`
	Chapter  int    `json:"chapter"`
	Verse    int    `json:"verse"`
	Text     string `json:"text"`
}

// Fetcher is implemented by Client; the session depends on this interface only.
type Fetcher interface {
	Fetch(ctx context.Context, reference string) (*Verse, error)
}

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	BaseURL     string
	Translation string
	Timeout     time.Duration
	TTL         time.Duration
	Cache       cache.Cache
	HTTPClient  *http.Client
	Logger      *log.Logger
}

// Client 查询经文接口。请求失败不会重试，错误直接返回给调用方。
type Client struct {
	baseURL     string
	translation string
	ttl         time.Duration
	http        *http.Client
	cache       cache.Cache
	logger      *log.Logger
}

var _ Fetcher = (*Client)(nil)

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		translation: opts.Translation,
		ttl:         opts.TTL,
		http:        opts.HTTPClient,
		cache:       opts.Cache,
		logger:      opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.translation == "" {
		c.translation = DefaultTranslation
	}
	if c.ttl == 0 {
		c.ttl = DefaultTTL
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.cache == nil {
		c.cache = cache.NewNullCache()
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	return c
}

// Translation 返回默认译本代号。
func (c *Client) Translation() string { return c.translation }

// Fetch 使用默认译本查询经文。
func (c *Client) Fetch(ctx context.Context, reference string) (*Verse, error) {
	return c.FetchTranslation(ctx, reference, "")
}

// FetchTranslation 查询指定译本的经文，translation 为空时使用默认译本。
func (c *Client) FetchTranslation(ctx context.Context, reference, translation string) (*Verse, error) {
	ref := strings.Join(strings.Fields(reference), " ")
	if ref == "" {
		return nil, ErrEmptyReference
	}
	if translation == "" {
		translation = c.translation
	}
	key := cacheKey(translation, ref)

	if data, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("读取经文缓存失败", "ref", ref, "err", err)
	} else if ok {
		if v, err := decode(data); err == nil {
			c.logger.Debug("经文缓存命中", "ref", ref, "translation", translation)
			return v, nil
		}
		_ = c.cache.Delete(ctx, key)
	}

	data, err := c.get(ctx, c.endpoint(ref, translation))
	if err != nil {
		return nil, err
	}
	v, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: 响应无法解析: %v", ErrNetwork, err)
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("写入经文缓存失败", "ref", ref, "err", err)
	}
	c.logger.Debug("已获取经文", "ref", v.Reference, "translation", v.TranslationID)
	return v, nil
}

func (c *Client) endpoint(ref, translation string) string {
	q := url.Values{}
	q.Set("translation", translation)
	return c.baseURL + "/" + url.PathEscape(ref) + "?" + q.Encode()
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return data, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

func decode(data []byte) (*Verse, error) {
	var v Verse
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &v.Raw); err != nil {
		return nil, err
	}
	if v.Reference == "" && v.Text == "" {
		return nil, ErrNotFound
	}
	// 接口返回的正文以换行分隔各节，折行只按空格切分
	v.Text = strings.Join(strings.Fields(v.Text), " ")
	return &v, nil
}

func cacheKey(translation, ref string) string {
	return "verse:" + strings.ToLower(translation) + ":" + strings.ToLower(ref)
}
