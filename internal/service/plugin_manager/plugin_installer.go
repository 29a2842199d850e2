// Package plugin_manager file: internal/service/plugin_manager/plugin_installer.go
package plugin_manager

import (
	"PlugShell/internal/downloader"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// AddFrom 接受本地路径或 http(s):// / file:// 来源。
// 远程来源先下载到安装目录、校验并赋予可执行权限，再交给 Add；Add 失败时删除下载的文件。
func (pm *PluginManager) AddFrom(ctx context.Context, source, checksum string) (int64, error) {
	if !isRemoteSource(source) {
		if checksum != "" {
			if err := pm.verifyLocal(source, checksum); err != nil {
				return 0, err
			}
		}
		return pm.Add(ctx, source)
	}

	dest, err := pm.Fetch(ctx, source, checksum)
	if err != nil {
		return 0, err
	}
	id, err := pm.Add(ctx, dest)
	if err != nil {
		if rmErr := os.Remove(dest); rmErr != nil && !os.IsNotExist(rmErr) {
			slog.Warn("[PluginManager] 清理下载的插件文件失败", "path", dest, "error", rmErr)
		}
		return 0, err
	}
	return id, nil
}

// Fetch 下载插件可执行文件到安装目录并返回其路径
func (pm *PluginManager) Fetch(ctx context.Context, source, checksum string) (dest string, err error) {
	defer pm.finish(opFetch, &err)

	if pm.installDir == "" {
		return "", fmt.Errorf("未配置插件安装目录 (plugins.install_dir)，无法安装远程插件")
	}
	sourceURL, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("无效的插件来源 '%s': %w", source, err)
	}
	name := path.Base(sourceURL.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("无法从来源 '%s' 推断插件文件名", source)
	}
	dest = filepath.Join(pm.installDir, name)
	if _, statErr := os.Stat(dest); statErr == nil {
		return "", fmt.Errorf("安装目录中已存在同名文件 '%s'", dest)
	}

	slog.Info("⚙️ [PluginManager] 开始下载插件", "source", source, "dest", dest)
	tmp := dest + ".download"
	defer func() {
		if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
			slog.Warn("删除临时文件失败", "path", tmp, "error", err)
		}
	}()

	if err = pm.performDownload(ctx, sourceURL, tmp); err != nil {
		return "", fmt.Errorf("下载插件 '%s' 失败: %w", source, err)
	}
	if checksum != "" {
		if err = verifyChecksum(tmp, checksum); err != nil {
			return "", fmt.Errorf("插件 '%s' 校验失败: %w", source, err)
		}
	}
	if err = os.Chmod(tmp, 0o755); err != nil {
		return "", fmt.Errorf("设置插件可执行权限失败: %w", err)
	}
	if err = os.Rename(tmp, dest); err != nil {
		return "", fmt.Errorf("移动插件文件到 '%s' 失败: %w", dest, err)
	}

	slog.Info("🎉 [PluginManager] 插件下载完成", "path", dest)
	return dest, nil
}

// performDownload 执行下载操作
func (pm *PluginManager) performDownload(ctx context.Context, sourceURL *url.URL, destPath string) error {
	d, err := downloader.For(pm.downloaders, sourceURL)
	if err != nil {
		return err
	}
	reader, err := d.Download(ctx, sourceURL)
	if err != nil {
		return fmt.Errorf("获取源读取器失败 (URL: %s): %w", sourceURL, err)
	}
	defer reader.Close()

	outFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("创建目标文件失败 (路径: %s): %w", destPath, err)
	}
	written, err := writeAndClose(outFile, reader)
	if err != nil {
		return fmt.Errorf("下载写入失败 (源: %s, 目标: %s): %w", sourceURL, destPath, err)
	}
	slog.Debug("下载完成", "source", sourceURL.String(), "dest", destPath, "bytes", written)
	return nil
}

// writeAndClose 把 src 全部写入 dst 后关闭 dst，关闭失败同样视为写入失败
func writeAndClose(dst io.WriteCloser, src io.Reader) (int64, error) {
	written, err := io.Copy(dst, src)
	if err != nil {
		_ = dst.Close()
		return written, err
	}
	if err := dst.Close(); err != nil {
		return written, fmt.Errorf("关闭目标文件失败: %w", err)
	}
	return written, nil
}

func (pm *PluginManager) verifyLocal(source, checksum string) (err error) {
	defer pm.finish(opFetch, &err)
	if err := verifyChecksum(source, checksum); err != nil {
		return fmt.Errorf("插件 '%s' 校验失败: %w", source, err)
	}
	return nil
}

// verifyChecksum 校验文件的 sha256，期望值可写作 "sha256:<hex>" 或直接写十六进制
func verifyChecksum(filePath, expectedChecksum string) error {
	expected := expectedChecksum
	if algo, sum, ok := strings.Cut(expectedChecksum, ":"); ok {
		if !strings.EqualFold(algo, "sha256") {
			return fmt.Errorf("不支持的校验算法: %s (目前仅支持 'sha256')", algo)
		}
		expected = sum
	}

	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return err
	}

	actual := hex.EncodeToString(hasher.Sum(nil))
	if !strings.EqualFold(actual, strings.TrimSpace(expected)) {
		return fmt.Errorf("校验和不匹配。期望: %s, 实际: %s", expected, actual)
	}
	return nil
}

func isRemoteSource(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "file://")
}
