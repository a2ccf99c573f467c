package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// PageFetcher 抓取网页正文并还原为纯文本的协作方
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// Fetcher 默认的网页抓取实现
// 优先取 <main> 标签内容，其次整个 body，剥掉全部标签只留可见文本
type Fetcher struct {
	client *http.Client
	policy *bluemonday.Policy
}

// NewFetcher 创建抓取器，proxyURL 为空时直连
func NewFetcher(proxyURL string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}

	return &Fetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		policy: bluemonday.StrictPolicy(),
	}
}

// Fetch 抓取网页并返回纯文本，失败时由调用方降级为摘要
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if !strings.HasPrefix(pageURL, "http") {
		return "", fmt.Errorf("unsupported url: %s", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}

	var markup string
	if main := doc.Find("main"); main.Length() > 0 {
		markup, _ = main.First().Html()
	} else {
		markup, _ = doc.Find("body").Html()
	}

	text := f.Sanitize(markup)
	if text == "" {
		return "", fmt.Errorf("empty content from %s", pageURL)
	}
	return text, nil
}

// Sanitize 剥掉标签和脚本，压缩空白
func (f *Fetcher) Sanitize(markup string) string {
	plain := f.policy.Sanitize(markup)
	return strings.Join(strings.Fields(plain), " ")
}
