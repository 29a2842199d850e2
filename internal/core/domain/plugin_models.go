// Package domain file: internal/core/domain/plugin_models.go
package domain

import (
	"encoding/json"
	"sort"
	"strings"
)

// MinAPIVersion 是宿主接受的最低插件 API 版本
const MinAPIVersion = 0.2

// 保留的动作名称
const (
	ActionInfo      = "info"
	ActionInstall   = "install"
	ActionEnable    = "enable"
	ActionInit      = "init"
	ActionDisable   = "disable"
	ActionUninstall = "uninstall"
)

// ExitUnsupported 是插件表示 "不支持该动作" 的保留退出码
const ExitUnsupported = 2

// CatalogEntry 代表插件目录表 (plugins) 中的一行
type CatalogEntry struct {
	ID       int64  `json:"id"`
	Location string `json:"location"` // 可执行文件的绝对路径，唯一
	Enabled  bool   `json:"enabled"`
}

// ActionSet 是插件声明支持的动作集合
type ActionSet map[string]struct{}

// NewActionSet 由动作名称列表构造集合，空白名称会被忽略
func NewActionSet(names ...string) ActionSet {
	set := make(ActionSet, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}
	return set
}

// Has 判断集合中是否包含指定动作
func (s ActionSet) Has(action string) bool {
	_, ok := s[action]
	return ok
}

// Names 返回按字母序排列的动作名称
func (s ActionSet) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s ActionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

// Descriptor 是通过 info 动作得到的插件能力清单，只存在于内存中
type Descriptor struct {
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	APIVersion  float64   `json:"api_version"`
	Actions     ActionSet `json:"actions"`
	Extra       []string  `json:"extra,omitempty"` // 第四个字段之后的内容，仅供展示
}

// Supports 判断插件是否声明了某个动作
func (d *Descriptor) Supports(action string) bool {
	return d != nil && d.Actions.Has(action)
}

// Outcome 是一次动作调用的结果分类
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeUnsupported
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeUnsupported:
		return "unsupported"
	default:
		return "failed"
	}
}

// ActionResult 是一次动作调用归约后的结果
type ActionResult struct {
	Outcome  Outcome
	ExitCode int
	Answer   string // 最后一个 answer 指令的值
	LastLine string // 最后一行未被识别为指令的输出
}

// ResultFromExit 根据退出码构造结果，退出码 2 被解释为不支持该动作
func ResultFromExit(code int) ActionResult {
	switch {
	case code == 0:
		return ActionResult{Outcome: OutcomeSuccess}
	case code == ExitUnsupported:
		return ActionResult{Outcome: OutcomeUnsupported, ExitCode: code}
	default:
		return ActionResult{Outcome: OutcomeFailed, ExitCode: code}
	}
}

// OK 表示动作成功完成
func (r ActionResult) OK() bool { return r.Outcome == OutcomeSuccess }

// PluginStatus 组合目录条目与其当前的激活状态，用于展示
type PluginStatus struct {
	Entry      CatalogEntry `json:"entry"`
	Active     bool         `json:"active"`
	Descriptor *Descriptor  `json:"descriptor,omitempty"`
}
