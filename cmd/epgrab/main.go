package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/John-Robertt/epgrab/internal/app/run"
	"github.com/John-Robertt/epgrab/internal/builtin"
	"github.com/John-Robertt/epgrab/internal/config"
	"github.com/John-Robertt/epgrab/internal/infra/fsx"
)

// stopSignals 取消运行上下文（Ctrl-C 与 systemd/docker 的停止信号）。
var stopSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func main() {
	os.Exit(runCLI(os.Args[1:], os.Stdout, os.Stderr))
}

func runCLI(args []string, stdout, stderr io.Writer) int {
	for _, a := range args {
		if isHelp(a) {
			printUsage(stdout)
			return 0
		}
	}

	ca, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "参数错误：%v\n\n", err)
		printUsage(stderr)
		return 2
	}

	switch {
	case ca.List:
		printList(stdout)
		return 0
	case ca.Init:
		path, err := config.WriteDefault(ca.Root)
		if errors.Is(err, os.ErrExist) {
			fmt.Fprintf(stderr, "配置文件已存在：%s\n", path)
			return 1
		}
		if err != nil {
			fmt.Fprintf(stderr, "写入默认配置失败：%v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "已写入默认配置：%s\n", path)
		return 0
	}

	// --output：先检查目标，再写入内存，成功后原子替换目标文件，失败时不留下半个文档。
	var (
		buf     bytes.Buffer
		outPath string
	)
	out := stdout
	if ca.Output != "" {
		abs, err := filepath.Abs(ca.Output)
		if err == nil {
			outPath, err = fsx.CheckTarget(abs)
		}
		if err != nil {
			fmt.Fprintf(stderr, "输出路径无效：%v\n", err)
			return 2
		}
		out = &buf
	}

	ctx, stop := signal.NotifyContext(context.Background(), stopSignals...)
	defer stop()

	opts := run.Options{
		Root:      ca.Root,
		Overrides: ca.Overrides,
		Out:       out,
		LogOut:    stderr,
	}
	if w, ok := progressWriter(stderr); ok {
		opts.Observer = newProgressUI(w)
	}

	if _, err := run.Main(ctx, opts); err != nil {
		fmt.Fprintf(stderr, "运行失败：%v\n", err)
		if config.Code(err) == config.ErrCodeNotFound {
			fmt.Fprintln(stderr, `提示：使用 "epgrab --init" 生成默认配置`)
		}
		return 1
	}

	if outPath != "" {
		if err := fsx.WriteFile(outPath, buf.Bytes(), fsx.WriteOptions{Perm: 0o644}); err != nil {
			fmt.Fprintf(stderr, "写入输出文件失败：%v\n", err)
			return 1
		}
	}
	return 0
}

type cliArgs struct {
	Root      string
	Overrides map[string]any
	Output    string
	Init      bool
	List      bool
}

func parseArgs(args []string) (cliArgs, error) {
	ca := cliArgs{Overrides: map[string]any{}}

	for i := 0; i < len(args); i++ {
		a := args[i]
		name, inline, hasInline := strings.Cut(a, "=")
		if !strings.HasPrefix(a, "-") {
			return cliArgs{}, fmt.Errorf("不支持位置参数 %q", a)
		}

		// value 读取 "--x=v" 或 "--x v" 形式的取值。
		value := func() (string, error) {
			if hasInline {
				return inline, nil
			}
			if i+1 >= len(args) {
				return "", fmt.Errorf("%s 需要一个值", name)
			}
			i++
			return args[i], nil
		}

		switch name {
		case "--root":
			v, err := value()
			if err != nil {
				return cliArgs{}, err
			}
			if strings.TrimSpace(v) == "" {
				return cliArgs{}, fmt.Errorf("--root 不能为空")
			}
			ca.Root = v
		case "--set":
			v, err := value()
			if err != nil {
				return cliArgs{}, err
			}
			k, val, ok := strings.Cut(v, "=")
			k = strings.TrimSpace(k)
			if !ok || k == "" {
				return cliArgs{}, fmt.Errorf("--set 需要 key=value，实际是 %q", v)
			}
			ca.Overrides[k] = val
		case "--grabber", "--formatter":
			v, err := value()
			if err != nil {
				return cliArgs{}, err
			}
			if strings.TrimSpace(v) == "" {
				return cliArgs{}, fmt.Errorf("%s 不能为空", name)
			}
			ca.Overrides[strings.TrimPrefix(name, "--")] = strings.TrimSpace(v)
		case "--days":
			v, err := value()
			if err != nil {
				return cliArgs{}, err
			}
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n < 0 {
				return cliArgs{}, fmt.Errorf("--days 必须是 >=0 的整数，实际是 %q", v)
			}
			ca.Overrides["days"] = n
		case "--channels":
			v, err := value()
			if err != nil {
				return cliArgs{}, err
			}
			ca.Overrides["channels"] = splitList(v)
		case "-o", "--output":
			v, err := value()
			if err != nil {
				return cliArgs{}, err
			}
			if strings.TrimSpace(v) == "" {
				return cliArgs{}, fmt.Errorf("%s 不能为空", name)
			}
			ca.Output = v
		case "--init":
			if hasInline {
				return cliArgs{}, fmt.Errorf("--init 不接受取值")
			}
			ca.Init = true
		case "--list":
			if hasInline {
				return cliArgs{}, fmt.Errorf("--list 不接受取值")
			}
			ca.List = true
		default:
			return cliArgs{}, fmt.Errorf("未知参数 %q", a)
		}
	}

	if ca.Init && ca.List {
		return cliArgs{}, fmt.Errorf("--init 与 --list 不能同时使用")
	}
	return ca, nil
}

// splitList 把 "a, b,,c" 拆成 [a b c]；空串得到空列表（表示全部频道）。
func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printList(w io.Writer) {
	fmt.Fprintf(w, "grabbers:   %s\n", strings.Join(builtin.Grabbers().Names(), ", "))
	fmt.Fprintf(w, "formatters: %s\n", strings.Join(builtin.Formatters().Names(), ", "))
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `用法：
  epgrab [--root DIR] [--set key=value]... [--grabber NAME] [--formatter NAME]
         [--days N] [--channels a,b] [-o FILE]
  epgrab --init [--root DIR]
  epgrab --list

参数：
  --root       配置根目录（默认 %s；包含 config 文件与 cache/ 目录）
  --set        覆盖任意配置项，可重复；key 使用点分路径（例如 atlas.api_key=xxx）
  --grabber    grabber 名称（默认 %s）
  --formatter  formatter 名称（默认 %s）
  --days       抓取天数（默认 %d；0 表示不抓取节目）
  --channels   逗号分隔的频道 ID（为空表示全部频道）
  -o, --output 输出到文件（默认 stdout）
  --init       在配置根目录写入默认配置
  --list       列出内置 grabber 与 formatter
  -h, --help   显示帮助

`, config.DefaultRoot, config.DefaultGrabber, config.DefaultFormatter, config.DefaultDays)
	fmt.Fprintln(w, config.EnvHelp())
}
