// Package plugin_manager file: internal/service/plugin_manager/plugin_descriptor.go
package plugin_manager

import (
	"PlugShell/internal/core/domain"
	"PlugShell/internal/core/port"
	"context"
	"fmt"
	"strconv"
	"strings"
)

// infoFields 是 info 应答中必需的字段数: name;description;apiVersion;actions
const infoFields = 4

// Resolver 通过执行插件的 info 动作得到其描述符
type Resolver struct {
	executor port.ActionExecutor
}

func NewResolver(executor port.ActionExecutor) *Resolver {
	return &Resolver{executor: executor}
}

// Resolve 运行 info 并解析应答。
// 无法启动、退出码 2、其他失败以及格式错误的应答一律视为不兼容 (port.ErrIncompatible)。
func (r *Resolver) Resolve(ctx context.Context, path string) (*domain.Descriptor, error) {
	res, err := r.executor.Execute(ctx, path, domain.ActionInfo)
	if err != nil {
		return nil, fmt.Errorf("%w: 无法获取插件 '%s' 的描述信息: %w", port.ErrIncompatible, path, err)
	}
	switch res.Outcome {
	case domain.OutcomeSuccess:
	case domain.OutcomeUnsupported:
		return nil, fmt.Errorf("%w: 插件 '%s' 不支持 info 动作", port.ErrIncompatible, path)
	default:
		return nil, fmt.Errorf("%w: 插件 '%s' 的 info 动作失败 (退出码 %d)", port.ErrIncompatible, path, res.ExitCode)
	}

	answer := res.Answer
	if answer == "" {
		answer = res.LastLine
	}
	return ParseInfo(path, answer)
}

// ParseInfo 解析形如 `name;description;apiVersion;a1,a2,...` 的 info 应答
func ParseInfo(path, answer string) (*domain.Descriptor, error) {
	fields := strings.Split(strings.TrimSpace(answer), ";")
	if len(fields) < infoFields {
		return nil, fmt.Errorf("%w: 插件 '%s' 的 info 应答字段不足 (需要 %d 个, 实际 %d 个): %q",
			port.ErrIncompatible, path, infoFields, len(fields), answer)
	}

	version, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: 插件 '%s' 的 API 版本 '%s' 无法解析", port.ErrIncompatible, path, fields[2])
	}
	if version < domain.MinAPIVersion {
		return nil, fmt.Errorf("%w: 插件 '%s' 的 API 版本 %g 低于最低要求 %g",
			port.ErrIncompatible, path, version, domain.MinAPIVersion)
	}

	desc := &domain.Descriptor{
		Path:        path,
		Name:        strings.TrimSpace(fields[0]),
		Description: strings.TrimSpace(fields[1]),
		APIVersion:  version,
		Actions:     domain.NewActionSet(strings.Split(fields[3], ",")...),
	}
	if len(fields) > infoFields {
		desc.Extra = append([]string(nil), fields[infoFields:]...)
	}
	return desc, nil
}
