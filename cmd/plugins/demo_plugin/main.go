// file: cmd/plugins/demo_plugin/main.go

// demo_plugin 是一个使用标准输入输出行协议的示例插件。
// 标准输出只用于协议指令，日志写到标准错误。
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const (
	pluginName       = "demo"
	pluginAPIVersion = "0.3"
	exitUnsupported  = 2

	optionGreeting = "demo.greeting"
	optionCounter  = "demo.counter"
)

var actions = []string{"install", "enable", "init", "disable", "uninstall", "greet", "count", "forget"}

type plugin struct {
	in  *bufio.Reader
	out *bufio.Writer
}

// quote 生成协议中的带引号 token
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func (p *plugin) emit(keyword string, args ...string) {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, keyword)
	for _, a := range args {
		parts = append(parts, quote(a))
	}
	fmt.Fprintln(p.out, strings.Join(parts, " "))
}

// getOption 请求宿主回写选项值，必须先刷新输出再读取回复
func (p *plugin) getOption(name string) (string, error) {
	p.emit("getOption", name)
	if err := p.out.Flush(); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("读取选项 '%s' 的回复失败: %w", name, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *plugin) run(action string, args []string) int {
	switch action {
	case "info":
		p.emit("answer", strings.Join([]string{pluginName, "示例插件: 问候与计数", pluginAPIVersion, strings.Join(actions, ",")}, ";"))
	case "install":
		p.emit("setOption", optionGreeting, "hello", "问候语", "string")
		p.emit("showOutput", "demo 插件已安装", "green")
	case "enable", "init":
		slog.Debug("demo 插件收到生命周期动作", "action", action)
	case "disable":
		p.emit("showOutput", "demo 插件已禁用", "yellow")
	case "uninstall":
		p.emit("removeOption", optionGreeting)
		p.emit("removeOption", optionCounter)
	case "greet":
		greeting, err := p.getOption(optionGreeting)
		if err != nil {
			p.emit("showError", err.Error())
			return 1
		}
		if greeting == "" {
			greeting = "hello"
		}
		target := "world"
		if len(args) > 0 {
			target = strings.Join(args, " ")
		}
		msg := greeting + ", " + target
		p.emit("showOutput", msg, "cyan")
		p.emit("answer", msg)
	case "count":
		raw, err := p.getOption(optionCounter)
		if err != nil {
			p.emit("showError", err.Error())
			return 1
		}
		n, _ := strconv.Atoi(raw)
		n++
		p.emit("setOption", optionCounter, strconv.Itoa(n), "greet 调用次数", "int")
		p.emit("answer", strconv.Itoa(n))
	case "forget":
		p.emit("removeOption", optionCounter)
	default:
		return exitUnsupported
	}
	return 0
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "用法: demo_plugin <action> [args...]")
		os.Exit(1)
	}

	p := &plugin{in: bufio.NewReader(os.Stdin), out: bufio.NewWriter(os.Stdout)}
	code := p.run(os.Args[1], os.Args[2:])
	if err := p.out.Flush(); err != nil {
		slog.Error("写出协议输出失败", "error", err)
		code = 1
	}
	os.Exit(code)
}
