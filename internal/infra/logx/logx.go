package logx

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

type Status int

const (
	DEBUG Status = iota
	INFO
	SUCCESS
	WARNING
	ERROR
)

func (s Status) String() string {
	switch s {
	case DEBUG:
		return "D"
	case INFO:
		return "I"
	case SUCCESS:
		return "✓"
	case WARNING:
		return "!"
	case ERROR:
		return "!!"
	default:
		return "?"
	}
}

func (s Status) color() *color.Color {
	switch s {
	case DEBUG:
		return color.New(color.FgWhite, color.Italic)
	case SUCCESS:
		return color.New(color.FgHiGreen)
	case WARNING:
		return color.New(color.FgYellow, color.Underline)
	case ERROR:
		return color.New(color.FgHiRed, color.Bold)
	default:
		return color.New(color.FgWhite)
	}
}

// ParseLevel 把配置里的 log.level 转成最低输出级别。
func ParseLevel(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "success":
		return SUCCESS, nil
	case "warn", "warning":
		return WARNING, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("未知日志级别：%q", s)
	}
}

// Logger 是一次运行内共享的日志器。
//
// 约束：
// - 每次运行构造一次并显式传递（不使用包级全局变量）
// - Named 派生的子 logger 共享同一输出与对齐宽度
type Logger struct {
	core *core
	name string
}

type core struct {
	mu       sync.Mutex
	out      io.Writer
	min      Status
	useColor bool
	offset   int
}

func New(w io.Writer, min Status, useColor bool) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{core: &core{out: w, min: min, useColor: useColor}}
}

// Discard 返回丢弃所有输出的 logger（测试与未注入时使用）。
func Discard() *Logger { return New(io.Discard, ERROR+1, false) }

func (l *Logger) Named(name string) *Logger {
	if l == nil {
		return Discard().Named(name)
	}
	return &Logger{core: l.core, name: name}
}

func (l *Logger) Enabled(s Status) bool {
	return l != nil && s >= l.core.min
}

func (l *Logger) Emit(s Status, format string, args ...any) {
	if !l.Enabled(s) {
		return
	}
	c := l.core
	c.mu.Lock()
	defer c.mu.Unlock()

	name := l.name
	if name == "" {
		name = "epgrab"
	}
	if len(name) > c.offset {
		c.offset = len(name)
	}
	padding := strings.Repeat(" ", c.offset-len(name))
	msg := fmt.Sprintf("[%s] %s(%s) %s", name, padding, s, fmt.Sprintf(format, args...))

	col := s.color()
	if c.useColor {
		col.EnableColor()
	} else {
		col.DisableColor()
	}
	_, _ = col.Fprintln(c.out, msg)
}
