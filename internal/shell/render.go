// Package shell file: internal/shell/render.go
package shell

import (
	"PlugShell/internal/core/domain"
	"fmt"
	"strconv"
	"strings"
)

func (s *Shell) renderList(statuses []domain.PluginStatus, all bool) {
	if len(statuses) == 0 {
		if all {
			s.console.Output("目录中没有插件", domain.ColorDefault)
		} else {
			s.console.Output("没有活动插件，使用 'plugin list all' 查看全部", domain.ColorDefault)
		}
		return
	}
	for _, st := range statuses {
		name := "?"
		if st.Descriptor != nil {
			name = st.Descriptor.Name
		}
		s.console.Output(fmt.Sprintf("[%d] %-20s %-12s %s", st.Entry.ID, name, stateLabel(st), s.console.Dim(st.Entry.Location)), stateColor(st))
	}
}

func (s *Shell) renderStatus(st *domain.PluginStatus) {
	s.console.Output(fmt.Sprintf("插件 [%d]", st.Entry.ID), domain.ColorCyan)
	s.console.Output("  路径:     "+st.Entry.Location, domain.ColorDefault)
	s.console.Output("  状态:     "+stateLabel(*st), stateColor(*st))
	d := st.Descriptor
	if d == nil {
		s.console.Output("  描述符:   不可用 (插件不兼容或无法启动)", domain.ColorYellow)
		return
	}
	s.console.Output("  名称:     "+d.Name, domain.ColorDefault)
	s.console.Output("  描述:     "+d.Description, domain.ColorDefault)
	s.console.Output("  API 版本: "+strconv.FormatFloat(d.APIVersion, 'f', -1, 64), domain.ColorDefault)
	s.console.Output("  动作:     "+strings.Join(d.Actions.Names(), ", "), domain.ColorDefault)
	if len(d.Extra) > 0 {
		s.console.Output("  附加信息: "+strings.Join(d.Extra, ";"), domain.ColorDefault)
	}
}

func (s *Shell) renderOptions(opts []domain.Option) {
	if len(opts) == 0 {
		s.console.Output("没有选项", domain.ColorDefault)
		return
	}
	for _, o := range opts {
		line := fmt.Sprintf("%s = %q (%s)", o.Name, o.Value, o.Type)
		if o.Description != "" {
			line += " " + s.console.Dim(o.Description)
		}
		s.console.Output(line, domain.ColorDefault)
	}
}

func stateLabel(st domain.PluginStatus) string {
	switch {
	case st.Active:
		return "活动"
	case st.Entry.Enabled:
		return "启用/未加载"
	default:
		return "禁用"
	}
}

func stateColor(st domain.PluginStatus) domain.Color {
	switch {
	case st.Active:
		return domain.ColorGreen
	case st.Entry.Enabled:
		return domain.ColorYellow
	default:
		return domain.ColorDefault
	}
}
