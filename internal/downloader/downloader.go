// file: internal/downloader/downloader.go
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// maxErrorBody 是 HTTP 错误响应中截取用于报错的最大字节数
const maxErrorBody = 512

// Downloader 是所有插件来源下载器都必须实现的接口。
type Downloader interface {
	// SupportsScheme 支持的协议 (e.g., "http", "https", "file")
	SupportsScheme(scheme string) bool
	// Download 执行下载，返回一个可读取文件内容的对象，调用方负责关闭
	Download(ctx context.Context, sourceURL *url.URL) (io.ReadCloser, error)
}

// Default 返回宿主支持的全部下载器
func Default(client *http.Client) []Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	return []Downloader{
		&HTTPDownloader{Client: client},
		&FileDownloader{},
	}
}

// For 返回第一个支持该 URL 协议的下载器
func For(downloaders []Downloader, sourceURL *url.URL) (Downloader, error) {
	scheme := strings.ToLower(sourceURL.Scheme)
	for _, d := range downloaders {
		if d.SupportsScheme(scheme) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("不支持的下载协议: '%s'", sourceURL.Scheme)
}

// HTTPDownloader =============================================================================
//
//	HTTP/HTTPS 下载器实现
//
// =============================================================================
type HTTPDownloader struct {
	Client *http.Client
}

func (d *HTTPDownloader) SupportsScheme(scheme string) bool {
	return scheme == "http" || scheme == "https"
}

func (d *HTTPDownloader) Download(ctx context.Context, sourceURL *url.URL) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("构建HTTP请求失败: %w", err)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP请求失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close() // 确保在出错时关闭body
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("HTTP请求失败: 状态码 %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp.Body, nil
}

// FileDownloader =============================================================================
//
//	本地文件“下载”器 (实际上是文件复制)
//
// =============================================================================
type FileDownloader struct{}

func (d *FileDownloader) SupportsScheme(scheme string) bool {
	return scheme == "file"
}

func (d *FileDownloader) Download(_ context.Context, sourceURL *url.URL) (io.ReadCloser, error) {
	f, err := os.Open(resolveLocalFilePath(sourceURL))
	if err != nil {
		return nil, fmt.Errorf("打开本地文件失败: %w", err)
	}
	return f, nil
}

// resolveLocalFilePath 将 file:// URL 转换为本地路径。
// "file:///C:/Users/..." 的 Path 字段为 "/C:/Users/..."，在 Windows 上需要去掉前导斜杠。
func resolveLocalFilePath(sourceURL *url.URL) string {
	path := filepath.FromSlash(sourceURL.Path)
	if len(path) > 2 && path[0] == filepath.Separator && path[2] == ':' {
		path = path[1:]
	}
	return path
}
