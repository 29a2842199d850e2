// Package shell file: internal/shell/commands.go
package shell

import (
	"PlugShell/internal/core/domain"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// promptWriter 把 cobra 的帮助输出转到控制台
type promptWriter struct{ c Console }

func (w promptWriter) Write(p []byte) (int, error) {
	w.c.Prompt(string(p))
	return len(p), nil
}

func (s *Shell) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               "plugshell",
		Short:             "可由插件扩展的交互式 shell",
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}
	root.SetOut(promptWriter{s.console})
	root.SetErr(promptWriter{s.console})
	root.AddCommand(
		s.newPluginCommand(),
		s.newOptionCommand(),
		&cobra.Command{
			Use:     "exit",
			Aliases: []string{"quit"},
			Short:   "退出 shell",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return ErrExit
			},
		},
	)
	return root
}

func (s *Shell) newPluginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "管理插件",
	}
	cmd.AddCommand(
		s.newPluginListCommand(),
		s.newPluginShowCommand(),
		s.newPluginAddCommand(),
		s.newPluginIDCommand("remove <id>", "移除插件 (先 disable 再 uninstall)", s.removePlugin),
		s.newPluginIDCommand("enable <id>", "启用插件", s.enablePlugin),
		s.newPluginIDCommand("disable <id>", "禁用插件", s.disablePlugin),
		s.newPluginRunCommand(),
	)
	return cmd
}

func (s *Shell) newPluginListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [all]",
		Short: "列出活动插件；带 all 时列出目录中的全部插件",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all := false
			if len(args) == 1 {
				if args[0] != "all" {
					return fmt.Errorf("未知参数 '%s'，用法: plugin list [all]", args[0])
				}
				all = true
			}
			statuses, err := s.plugins.List(cmd.Context(), all)
			if err != nil {
				return reported(err)
			}
			s.renderList(statuses, all)
			return nil
		},
	}
}

func (s *Shell) newPluginShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "显示插件详情",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			status, err := s.plugins.Show(cmd.Context(), id)
			if err != nil {
				return reported(err)
			}
			s.renderStatus(status)
			return nil
		},
	}
}

func (s *Shell) newPluginAddCommand() *cobra.Command {
	var checksum string
	cmd := &cobra.Command{
		Use:   "add <path|url>",
		Short: "添加并启用插件，支持本地路径以及 http(s):// 与 file:// 来源",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := s.plugins.AddFrom(cmd.Context(), args[0], checksum)
			if err != nil {
				return reported(err)
			}
			s.console.Success("插件已添加，id 为 %d", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&checksum, "sha256", "", "期望的 SHA256 校验和")
	return cmd
}

func (s *Shell) newPluginIDCommand(use, short string, run func(cmd *cobra.Command, id int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, id)
		},
	}
}

func (s *Shell) removePlugin(cmd *cobra.Command, id int64) error {
	if err := s.plugins.Remove(cmd.Context(), id); err != nil {
		return reported(err)
	}
	s.console.Success("插件 [%d] 已移除", id)
	return nil
}

func (s *Shell) enablePlugin(cmd *cobra.Command, id int64) error {
	if err := s.plugins.Enable(cmd.Context(), id); err != nil {
		return reported(err)
	}
	s.console.Success("插件 [%d] 已启用", id)
	return nil
}

func (s *Shell) disablePlugin(cmd *cobra.Command, id int64) error {
	if err := s.plugins.Disable(cmd.Context(), id); err != nil {
		return reported(err)
	}
	s.console.Success("插件 [%d] 已禁用", id)
	return nil
}

func (s *Shell) newPluginRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <id> <action> [args...]",
		Short: "执行活动插件声明的动作",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			res, err := s.plugins.Run(cmd.Context(), id, args[1], args[2:]...)
			if err != nil {
				return reported(err)
			}
			if res.Answer != "" {
				s.console.Output(res.Answer, domain.ColorDefault)
			}
			return nil
		},
	}
	// 动作参数原样交给插件，即使它们以 - 开头
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func (s *Shell) newOptionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "option",
		Short: "管理插件可读写的选项",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "列出全部选项",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				opts, err := s.options.List(cmd.Context())
				if err != nil {
					return err
				}
				s.renderOptions(opts)
				return nil
			},
		},
		&cobra.Command{
			Use:   "get <name>",
			Short: "显示选项的值",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				value, err := s.options.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				s.console.Output(value, domain.ColorDefault)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <name> <value> [description] [type]",
			Short: "设置选项",
			Args:  cobra.RangeArgs(2, 4),
			RunE: func(cmd *cobra.Command, args []string) error {
				opt := domain.Option{Name: args[0], Value: args[1]}
				if len(args) > 2 {
					opt.Description = args[2]
				}
				if len(args) > 3 {
					opt.Type = args[3]
				}
				if err := s.options.Set(cmd.Context(), opt); err != nil {
					return err
				}
				s.console.Success("选项 '%s' 已设置", opt.Name)
				return nil
			},
		},
		&cobra.Command{
			Use:     "unset <name>",
			Aliases: []string{"delete"},
			Short:   "删除选项",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := s.options.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				s.console.Success("选项 '%s' 已删除", args[0])
				return nil
			},
		},
	)
	return cmd
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("无效的插件 id '%s'", arg)
	}
	return id, nil
}
