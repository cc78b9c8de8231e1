package rss

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/iabetor/gazette/internal/logger"
)

const (
	// DefaultFetchTimeout 单个订阅源的抓取超时。
	DefaultFetchTimeout = 10 * time.Second
	defaultUserAgent    = "Gazette/1.0 RSS Reader"
	maxFeedBytes        = 10 << 20
)

// ErrEmptyBody 服务端返回 200 但内容为空。
var ErrEmptyBody = errors.New("响应内容为空")

// FetchResult 一次抓取的结果。Err 不为空时 Body 一定为空。
type FetchResult struct {
	URL    string
	Body   []byte
	Status int
	Err    error
}

// OK 返回是否拿到了可解析的内容。
func (r FetchResult) OK() bool {
	return r.Err == nil && len(r.Body) > 0
}

// FetcherOptions 抓取器选项。
type FetcherOptions struct {
	// CAFile 额外信任的 PEM 根证书包，追加到系统根证书之后。
	CAFile    string
	UserAgent string
	Timeout   time.Duration
}

// Fetcher 通过 HTTPS 抓取订阅源原文。可被多个 goroutine 共享。
type Fetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// NewFetcher 创建抓取器。
func NewFetcher(opts FetcherOptions) (*Fetcher, error) {
	pool, err := rootCAs(opts.CAFile)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}

	f := &Fetcher{
		client:    &http.Client{Transport: transport},
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
	}
	if f.userAgent == "" {
		f.userAgent = defaultUserAgent
	}
	if f.timeout <= 0 {
		f.timeout = DefaultFetchTimeout
	}
	return f, nil
}

func rootCAs(caFile string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if caFile == "" {
		return pool, nil
	}

	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("读取根证书 %s 失败: %w", caFile, err)
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("根证书 %s 中没有可用的证书", caFile)
	}
	return pool, nil
}

// Fetch 抓取 url 的原文。只尝试一次，失败不会返回 error，
// 而是记录日志并在结果中带上原因。
func (f *Fetcher) Fetch(ctx context.Context, url string) FetchResult {
	res := f.fetch(ctx, url)
	if res.Err != nil {
		logger.Errorf("[rss] 抓取 %s 失败: %v", url, res.Err)
	}
	return res
}

func (f *Fetcher) fetch(ctx context.Context, url string) FetchResult {
	res := FetchResult{URL: url}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		res.Err = fmt.Errorf("创建请求失败: %w", err)
		return res
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		// 读掉剩余内容以便连接复用
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		res.Err = fmt.Errorf("HTTP %d", resp.StatusCode)
		return res
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		res.Err = fmt.Errorf("读取响应失败: %w", err)
		return res
	}
	if len(body) == 0 {
		res.Err = ErrEmptyBody
		return res
	}

	res.Body = body
	return res
}
