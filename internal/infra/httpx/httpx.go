package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/proxy"
)

const (
	DefaultTimeout  = 20 * time.Second
	defaultRetryMax = 2
)

// Options 描述 grabber 共享的 HTTP 策略。
type Options struct {
	// ProxyURL 支持 http/https/socks5；为空表示直连。
	ProxyURL  string
	Timeout   time.Duration
	UserAgent string // 为空时每个请求从内置 UA 池随机选取
	// RetryMax 为最大重试次数（不含首次尝试）；<0 视为 0，0 使用默认值。
	RetryMax int
}

// Transport 把“UA + 代理 + 有界重试”固化为统一策略。
//
// grabber 只负责“定位页面 + 解析内容”，不关心网络策略细节。
type Transport struct {
	// Base 是实际发起请求的 RoundTripper（NewClient 中为配置好代理的 *http.Transport）。
	Base http.RoundTripper

	ua        *uaPool
	userAgent string

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 2 表示最多 3 次尝试。
	RetryMax int
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只对“可重放”的请求做重试：GET/HEAD 且无 body。
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 || !canRetry {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" {
			r.Header.Set("User-Agent", t.pickUA())
		}

		resp, err := t.Base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			// ctx 已取消：不再重试。
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (t *Transport) pickUA() string {
	if t.userAgent != "" {
		return t.userAgent
	}
	if t.ua == nil {
		return "epgrab"
	}
	return t.ua.random()
}

// NewClient 构造 grabber 使用的 HTTP client。
//
// 规则：
// - proxyURL 为 http/https：走 HTTP 代理
// - proxyURL 为 socks5/socks5h：通过 x/net/proxy 拨号
// - 有界重试 + 总超时
func NewClient(opts Options) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}

	if raw := strings.TrimSpace(opts.ProxyURL); raw != "" {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			base.Proxy = http.ProxyURL(u)
		case "socks5", "socks5h":
			d, err := proxy.FromURL(u, proxy.Direct)
			if err != nil {
				return nil, err
			}
			base.DialContext = dialContext(d)
		default:
			return nil, fmt.Errorf("不支持的代理协议：%q", u.Scheme)
		}
	}

	retry := opts.RetryMax
	if retry == 0 {
		retry = defaultRetryMax
	}
	if retry < 0 {
		retry = 0
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	tr := &Transport{
		Base:      base,
		ua:        globalUA,
		userAgent: strings.TrimSpace(opts.UserAgent),
		RetryMax:  retry,
	}
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}

// StatusError 表示远端返回了非 2xx 的 HTTP 状态码。
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// GetBytes 发起 GET 请求并读取完整响应体；非 2xx 返回 *StatusError。
func GetBytes(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	if c == nil {
		return nil, errors.New("http client 不能为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: u, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = newUAPool()

func newUAPool() *uaPool {
	uas := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}
