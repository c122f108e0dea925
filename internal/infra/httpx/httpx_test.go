package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient_HTTPProxy(t *testing.T) {
	c, err := NewClient(Options{ProxyURL: "http://127.0.0.1:8080"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr, ok := c.Transport.(*Transport)
	if !ok {
		t.Fatalf("期望 *Transport，实际 %T", c.Transport)
	}
	base := tr.Base.(*http.Transport)
	if base.Proxy == nil {
		t.Fatalf("期望启用代理，但 Proxy=nil")
	}
	if base.DialContext != nil {
		t.Fatalf("HTTP 代理不应替换 DialContext")
	}
}

func TestNewClient_SOCKS5Proxy(t *testing.T) {
	c, err := NewClient(Options{ProxyURL: "socks5://127.0.0.1:1080"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	base := c.Transport.(*Transport).Base.(*http.Transport)
	if base.Proxy != nil {
		t.Fatalf("SOCKS5 不应设置 HTTP Proxy")
	}
	if base.DialContext == nil {
		t.Fatalf("SOCKS5 应设置 DialContext")
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if c.Timeout != DefaultTimeout {
		t.Fatalf("期望默认超时 %v，实际 %v", DefaultTimeout, c.Timeout)
	}
	tr := c.Transport.(*Transport)
	if tr.RetryMax != defaultRetryMax {
		t.Fatalf("期望默认重试 %d，实际 %d", defaultRetryMax, tr.RetryMax)
	}
	if tr.Base.(*http.Transport).Proxy != nil {
		t.Fatalf("不期望启用代理")
	}
}

func TestNewClient_InvalidProxy(t *testing.T) {
	if _, err := NewClient(Options{ProxyURL: "http://[::1"}); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if _, err := NewClient(Options{ProxyURL: "ftp://127.0.0.1:21"}); err == nil {
		t.Fatalf("期望不支持的协议报错")
	}
}

func TestGetBytes_SetsUserAgentAndReadsBody(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, err := NewClient(Options{UserAgent: "epgrab-test", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	b, err := GetBytes(context.Background(), c, srv.URL)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if string(b) != "ok" {
		t.Fatalf("内容不一致：%q", string(b))
	}
	if gotUA != "epgrab-test" {
		t.Fatalf("期望 UA=epgrab-test，实际 %q", gotUA)
	}
}

func TestGetBytes_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := NewClient(Options{})
	_, err := GetBytes(context.Background(), c, srv.URL)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("期望 *StatusError，实际：%T %v", err, err)
	}
	if se.StatusCode != http.StatusNotFound {
		t.Fatalf("期望 404，实际 %d", se.StatusCode)
	}
}

// failingRT 记录每次尝试的 UA，并在前 fail 次返回错误。
type failingRT struct {
	fail   int
	calls  int
	uas    []string
	onFail func()
}

func (f *failingRT) RoundTrip(r *http.Request) (*http.Response, error) {
	f.calls++
	f.uas = append(f.uas, r.Header.Get("User-Agent"))
	if f.calls <= f.fail {
		if f.onFail != nil {
			f.onFail()
		}
		return nil, errors.New("connection reset")
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
}

func TestTransport_RoundTripRetry(t *testing.T) {
	cases := []struct {
		name      string
		method    string
		body      string
		retryMax  int
		fail      int
		wantCalls int
		wantErr   bool
	}{
		{name: "GET 全部失败", method: http.MethodGet, retryMax: 2, fail: 10, wantCalls: 3, wantErr: true},
		{name: "GET 第二次成功", method: http.MethodGet, retryMax: 2, fail: 1, wantCalls: 2},
		{name: "HEAD 重试", method: http.MethodHead, retryMax: 1, fail: 10, wantCalls: 2, wantErr: true},
		{name: "POST 不重试", method: http.MethodPost, retryMax: 2, fail: 10, wantCalls: 1, wantErr: true},
		{name: "带 body 的 GET 不重试", method: http.MethodGet, body: "x", retryMax: 2, fail: 10, wantCalls: 1, wantErr: true},
		{name: "负数视为不重试", method: http.MethodGet, retryMax: -1, fail: 10, wantCalls: 1, wantErr: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rt := &failingRT{fail: c.fail}
			tr := &Transport{Base: rt, RetryMax: c.retryMax}
			var req *http.Request
			var err error
			if c.body != "" {
				req, err = http.NewRequest(c.method, "http://tv.example/x", strings.NewReader(c.body))
			} else {
				req, err = http.NewRequest(c.method, "http://tv.example/x", nil)
			}
			if err != nil {
				t.Fatalf("NewRequest: %v", err)
			}
			_, err = tr.RoundTrip(req)
			if (err != nil) != c.wantErr {
				t.Fatalf("err=%v, wantErr=%v", err, c.wantErr)
			}
			if rt.calls != c.wantCalls {
				t.Fatalf("尝试次数=%d，期望 %d", rt.calls, c.wantCalls)
			}
		})
	}
}

func TestTransport_StopsRetryAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt := &failingRT{fail: 10, onFail: cancel}
	tr := &Transport{Base: rt, RetryMax: 5}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://tv.example/x", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if _, err := tr.RoundTrip(req); err == nil {
		t.Fatalf("期望错误")
	}
	if rt.calls != 1 {
		t.Fatalf("ctx 取消后不应重试：calls=%d", rt.calls)
	}
}

func TestTransport_UserAgent(t *testing.T) {
	rt := &failingRT{fail: 1}
	tr := &Transport{Base: rt, RetryMax: 1, ua: globalUA, userAgent: "epgrab-test"}
	req, _ := http.NewRequest(http.MethodGet, "http://tv.example/x", nil)
	if _, err := tr.RoundTrip(req); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	for i, ua := range rt.uas {
		if ua != "epgrab-test" {
			t.Fatalf("第 %d 次尝试 UA=%q，期望配置值覆盖 UA 池", i+1, ua)
		}
	}
	if req.Header.Get("User-Agent") != "" {
		t.Fatalf("不应修改调用方的请求头")
	}

	pooled := &failingRT{}
	tr = &Transport{Base: pooled, ua: globalUA}
	req, _ = http.NewRequest(http.MethodGet, "http://tv.example/x", nil)
	if _, err := tr.RoundTrip(req); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	found := false
	for _, ua := range globalUA.uas {
		if ua == pooled.uas[0] {
			found = true
		}
	}
	if !found {
		t.Fatalf("未设置 UA 时应从 UA 池选取：%q", pooled.uas[0])
	}

	explicit := &failingRT{}
	tr = &Transport{Base: explicit, userAgent: "epgrab-test"}
	req, _ = http.NewRequest(http.MethodGet, "http://tv.example/x", nil)
	req.Header.Set("User-Agent", "caller")
	if _, err := tr.RoundTrip(req); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if explicit.uas[0] != "caller" {
		t.Fatalf("调用方显式设置的 UA 应保留：%q", explicit.uas[0])
	}
}
