// Package domain file: internal/core/domain/config_models.go
package domain

import (
	"strconv"
	"strings"
)

// Option 是选项存储中的一个键值条目，插件可通过 setOption/getOption 读写
type Option struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// Color 是输出时的颜色提示，空字符串表示默认颜色
type Color string

const (
	ColorDefault Color = ""
	ColorRed     Color = "red"
	ColorGreen   Color = "green"
	ColorYellow  Color = "yellow"
	ColorBlue    Color = "blue"
	ColorMagenta Color = "magenta"
	ColorCyan    Color = "cyan"
	ColorWhite   Color = "white"
)

// ParseColor 解析颜色名称，支持预定义名称、#rrggbb 与 0-255 的 ANSI 色号。
// 无法解析时返回默认颜色。
func ParseColor(name string) Color {
	n := strings.ToLower(strings.TrimSpace(name))
	switch c := Color(n); c {
	case ColorRed, ColorGreen, ColorYellow, ColorBlue, ColorMagenta, ColorCyan, ColorWhite:
		return c
	}
	if len(n) == 7 && n[0] == '#' {
		if _, err := strconv.ParseUint(n[1:], 16, 32); err == nil {
			return Color(n)
		}
		return ColorDefault
	}
	if v, err := strconv.Atoi(n); err == nil && v >= 0 && v <= 255 {
		return Color(n)
	}
	return ColorDefault
}
