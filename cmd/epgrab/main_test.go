package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/John-Robertt/epgrab/internal/config"
)

func TestParseArgs(t *testing.T) {
	ca, err := parseArgs([]string{
		"--root", "/tmp/r",
		"--set", "atlas.api_key=k=v",
		"--set=log.level=debug",
		"--grabber=listing",
		"--formatter", "xmltv",
		"--days", "3",
		"--channels", "a, b,,c",
		"-o", "out.xml",
	})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	want := map[string]any{
		"atlas.api_key": "k=v",
		"log.level":     "debug",
		"grabber":       "listing",
		"formatter":     "xmltv",
		"days":          3,
		"channels":      []string{"a", "b", "c"},
	}
	if diff := cmp.Diff(want, ca.Overrides); diff != "" {
		t.Fatalf("overrides（-want +got）：\n%s", diff)
	}
	if ca.Root != "/tmp/r" || ca.Output != "out.xml" || ca.Init || ca.List {
		t.Fatalf("ca=%+v", ca)
	}
}

func TestParseArgs_EmptyChannelsMeansAll(t *testing.T) {
	ca, err := parseArgs([]string{"--channels="})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if got, ok := ca.Overrides["channels"].([]string); !ok || len(got) != 0 {
		t.Fatalf("channels=%#v", ca.Overrides["channels"])
	}
}

func TestParseArgs_Errors(t *testing.T) {
	cases := [][]string{
		{"positional"},
		{"--days", "-1"},
		{"--days", "x"},
		{"--days"},
		{"--set", "novalue"},
		{"--set", "=v"},
		{"--grabber="},
		{"--root", ""},
		{"--init=1"},
		{"--init", "--list"},
		{"--unknown"},
	}
	for _, c := range cases {
		if _, err := parseArgs(c); err == nil {
			t.Fatalf("args=%q 期望失败", c)
		}
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"EPGRAB_CHANNELS", "EPGRAB_DAYS", "EPGRAB_GRABBER", "EPGRAB_FORMATTER", "EPGRAB_LOG_LEVEL", "EPGRAB_LISTING_URL", "EPGRAB_HTTP_PROXY"} {
		t.Setenv(k, "")
	}
}

func TestRunCLI_HelpListAndUsageErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := runCLI([]string{"--help"}, &out, &errOut); code != 0 {
		t.Fatalf("help exit=%d", code)
	}
	if !strings.Contains(out.String(), "EPGRAB_DAYS") {
		t.Fatalf("帮助应包含环境变量说明：\n%s", out.String())
	}

	out.Reset()
	if code := runCLI([]string{"--list"}, &out, &errOut); code != 0 {
		t.Fatalf("list exit=%d", code)
	}
	if !strings.Contains(out.String(), "atlas, listing") || !strings.Contains(out.String(), "epg, exmltv, xmltv, yaml") {
		t.Fatalf("list=%q", out.String())
	}

	if code := runCLI([]string{"--bogus"}, &out, &errOut); code != 2 {
		t.Fatalf("usage error exit=%d, want 2", code)
	}
}

func TestRunCLI_InitThenExists(t *testing.T) {
	root := t.TempDir()
	var out, errOut bytes.Buffer
	if code := runCLI([]string{"--init", "--root", root}, &out, &errOut); code != 0 {
		t.Fatalf("init exit=%d stderr=%s", code, errOut.String())
	}
	if _, err := os.Stat(filepath.Join(root, config.FileName)); err != nil {
		t.Fatalf("config 未生成：%v", err)
	}
	if code := runCLI([]string{"--init", "--root", root}, &out, &errOut); code != 1 {
		t.Fatalf("重复 init exit=%d, want 1", code)
	}
}

func TestRunCLI_MissingConfigFails(t *testing.T) {
	clearEnv(t)
	var out, errOut bytes.Buffer
	if code := runCLI([]string{"--root", t.TempDir()}, &out, &errOut); code != 1 {
		t.Fatalf("exit=%d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "--init") {
		t.Fatalf("应提示 --init：%s", errOut.String())
	}
	if out.Len() != 0 {
		t.Fatalf("失败时 stdout 应为空：%q", out.String())
	}
}

func TestRunCLI_ListingToXMLTVFile(t *testing.T) {
	clearEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/channels" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<ul>
<li class="channel" data-id="one"><span class="name">One</span></li>
<li class="channel" data-id="two"><span class="name">Two</span></li>
</ul>`))
	}))
	defer srv.Close()

	root := t.TempDir()
	cfg := "grabber: listing\nformatter: xmltv\ndays: 0\nlisting:\n  url: " + srv.URL + "\n"
	if err := os.WriteFile(filepath.Join(root, config.FileName), []byte(cfg), 0o644); err != nil {
		t.Fatalf("写入配置失败：%v", err)
	}
	outFile := filepath.Join(root, "guide.xml")

	var out, errOut bytes.Buffer
	if code := runCLI([]string{"--root", root, "-o", outFile}, &out, &errOut); code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, errOut.String())
	}
	if out.Len() != 0 {
		t.Fatalf("使用 -o 时 stdout 应为空：%q", out.String())
	}
	b, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("读取输出失败：%v", err)
	}
	if !strings.Contains(string(b), `<channel id="one">`) || !strings.Contains(string(b), `<channel id="two">`) {
		t.Fatalf("输出缺少频道：\n%s", b)
	}
	if !strings.Contains(errOut.String(), "Channels  : 2") {
		t.Fatalf("stderr 缺少统计：\n%s", errOut.String())
	}
	if _, err := os.Stat(filepath.Join(root, config.CacheDirName, "listing", "channels.html")); err != nil {
		t.Fatalf("频道索引未写入缓存：%v", err)
	}
}

func TestRunCLI_OutputDirectoryIsUsageError(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()

	var out, errOut bytes.Buffer
	if code := runCLI([]string{"--root", root, "-o", root}, &out, &errOut); code != 2 {
		t.Fatalf("期望 exit=2，实际 %d stderr=%s", code, errOut.String())
	}
	if !strings.Contains(errOut.String(), "输出路径无效") || strings.Contains(errOut.String(), "运行失败") {
		t.Fatalf("应在抓取前拒绝输出目录：%s", errOut.String())
	}
}

func TestStopSignals(t *testing.T) {
	want := map[os.Signal]bool{os.Interrupt: false, syscall.SIGTERM: false}
	for _, s := range stopSignals {
		want[s] = true
	}
	for s, ok := range want {
		if !ok {
			t.Fatalf("缺少停止信号 %v", s)
		}
	}
}
