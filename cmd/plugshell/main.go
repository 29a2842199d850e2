// file: cmd/plugshell/main.go

package main

import (
	"PlugShell/internal/adapter/catalog/sqlite"
	"PlugShell/internal/adapter/plugin/stdio"
	"PlugShell/internal/adminauth"
	"PlugShell/internal/config"
	"PlugShell/internal/console"
	"PlugShell/internal/observe"
	"PlugShell/internal/service"
	"PlugShell/internal/service/option_store"
	"PlugShell/internal/service/plugin_manager"
	"PlugShell/internal/shell"
	"PlugShell/internal/transport/http/router"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const version = "v0.3.0"

const defaultConfigPath = "configs/config.yaml"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "plugshell",
		Short:   "PlugShell - 可由外部插件在运行时扩展的交互式 shell",
		Version: version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), resolveConfigPath(cmd, configPath))
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "配置文件路径")
	rootCmd.AddCommand(newHashPasswordCommand())
	return rootCmd
}

// resolveConfigPath 未显式指定 --config 且默认文件不存在时，只使用默认值与环境变量
func resolveConfigPath(cmd *cobra.Command, path string) string {
	if cmd.Flags().Changed("config") {
		return path
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func newHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "生成 admin.password_hash 所需的 bcrypt 哈希",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := adminauth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func run(parent context.Context, configPath string) error {
	// 在日志系统完全初始化前，使用标准 log
	log.Printf("PlugShell %s 正在启动...", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("CRITICAL: %v", err)
		return err
	}
	observe.InitLogger(cfg.Log.Level, cfg.Log.Format)
	slog.Info("配置加载并解析成功", "path", configPath, "storage", cfg.Storage.Path)

	db, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer func() {
		slog.Info("正在关闭数据库连接...")
		if err := db.Close(); err != nil {
			slog.Error("关闭数据库时发生错误", "error", err)
		}
	}()
	if err := service.InitShellTables(db); err != nil {
		return fmt.Errorf("初始化系统表失败: %w", err)
	}

	options, err := option_store.NewOptionStoreImpl(db, 256, 5*time.Minute)
	if err != nil {
		return err
	}
	sink := console.NewSink(os.Stdout, os.Stderr)
	executor := stdio.NewExecutor(sink, options, stdio.WithTimeout(cfg.Plugins.ActionTimeout))

	pm, err := plugin_manager.NewPluginManager(sqlite.NewCatalog(db), executor, sink,
		plugin_manager.WithInstallDir(cfg.Plugins.InstallDir))
	if err != nil {
		return err
	}
	slog.Info("服务层: PluginManager 初始化完成", "install_dir", cfg.Plugins.InstallDir)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := pm.BulkLoad(ctx); err != nil {
		return err
	}
	if cfg.Plugins.Watch {
		if _, err := pm.StartWatcher(ctx); err != nil {
			slog.Warn("插件文件监视器启动失败，继续运行", "error", err)
		}
	}

	observe.Register()
	observe.EnablePprof(cfg.Debug.PprofAddr)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Admin.Enabled {
		if err := startAdminServer(gctx, g, cfg.Admin, pm); err != nil {
			return err
		}
	}

	g.Go(func() error {
		// shell 退出时结束整个进程组，管理接口随之关闭
		defer stop()
		sh := shell.New(pm, options, sink, shell.WithPrompt(cfg.Shell.Prompt))
		return sh.Run(gctx, os.Stdin)
	})

	err = g.Wait()
	slog.Info("程序即将退出。")
	return err
}

func startAdminServer(ctx context.Context, g *errgroup.Group, cfg config.AdminConfig, pm *plugin_manager.PluginManager) error {
	auth, err := adminauth.New(cfg.PasswordHash, cfg.JWTSecret, 0)
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr: cfg.Listen,
		Handler: router.New(ctx, router.Dependencies{
			Plugins:       pm,
			Auth:          auth,
			Metrics:       observe.Handler(),
			RatePerSecond: cfg.RatePerSec,
			Burst:         cfg.Burst,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		slog.Info("管理接口开始监听HTTP请求...", "address", cfg.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("管理接口启动失败: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("管理接口优雅关闭失败: %w", err)
		}
		slog.Info("管理接口已成功关闭。")
		return nil
	})
	return nil
}
