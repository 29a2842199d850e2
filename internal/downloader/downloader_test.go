// file: internal/downloader/downloader_test.go
package downloader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pluginPayload 是发布到插件仓库的一个可执行脚本
const pluginPayload = "#!/bin/sh\ncase \"$1\" in\n  info) echo 'answer \"remote;x;0.3;\"' ;;\nesac\n"

func payloadSum() string {
	sum := sha256.Sum256([]byte(pluginPayload))
	return hex.EncodeToString(sum[:])
}

func readAllAndSum(t *testing.T, r io.ReadCloser) (string, string) {
	t.Helper()
	defer r.Close()
	h := sha256.New()
	body, err := io.ReadAll(io.TeeReader(r, h))
	require.NoError(t, err)
	return string(body), hex.EncodeToString(h.Sum(nil))
}

// pluginRepository 模拟一个按路径发布插件的 HTTP 仓库
func pluginRepository(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/releases/demo_plugin", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = io.WriteString(w, pluginPayload)
	})
	mux.HandleFunc("/releases/withdrawn", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "plugin release withdrawn", http.StatusGone)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestHTTPDownloader_FetchesPluginRelease(t *testing.T) {
	server := pluginRepository(t)
	d := &HTTPDownloader{Client: server.Client()}

	u, err := url.Parse(server.URL + "/releases/demo_plugin")
	require.NoError(t, err)
	reader, err := d.Download(context.Background(), u)
	require.NoError(t, err)

	body, sum := readAllAndSum(t, reader)
	assert.Equal(t, pluginPayload, body)
	assert.Equal(t, payloadSum(), sum, "下载内容应与发布的校验和一致")
}

func TestHTTPDownloader_Failures(t *testing.T) {
	server := pluginRepository(t)
	d := &HTTPDownloader{Client: server.Client()}

	cases := []struct {
		name    string
		rawURL  string
		ctx     func() context.Context
		wantErr string
	}{
		{
			name:    "withdrawn release",
			rawURL:  server.URL + "/releases/withdrawn",
			wantErr: "状态码 410: plugin release withdrawn",
		},
		{
			name:    "unknown release",
			rawURL:  server.URL + "/releases/missing",
			wantErr: "状态码 404",
		},
		{
			name:    "repository unreachable",
			rawURL:  "http://127.0.0.1:1/releases/demo_plugin",
			wantErr: "HTTP请求失败",
		},
		{
			name:   "cancelled install",
			rawURL: server.URL + "/releases/demo_plugin",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			wantErr: "context canceled",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			if tc.ctx != nil {
				ctx = tc.ctx()
			}
			u, err := url.Parse(tc.rawURL)
			require.NoError(t, err)

			_, err = d.Download(ctx, u)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestFileDownloader_ReadsLocalPluginBuild(t *testing.T) {
	buildDir := filepath.Join(t.TempDir(), "build output")
	require.NoError(t, os.MkdirAll(buildDir, 0o755))
	built := filepath.Join(buildDir, "demo_plugin")
	require.NoError(t, os.WriteFile(built, []byte(pluginPayload), 0o755))

	d := &FileDownloader{}
	u := &url.URL{Scheme: "file", Path: filepath.ToSlash(built)}
	reader, err := d.Download(context.Background(), u)
	require.NoError(t, err)

	body, sum := readAllAndSum(t, reader)
	assert.Equal(t, pluginPayload, body)
	assert.Equal(t, payloadSum(), sum)

	_, err = d.Download(context.Background(), &url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(buildDir, "not_built"))})
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestResolveLocalFilePath(t *testing.T) {
	if runtime.GOOS == "windows" {
		u, _ := url.Parse("file:///C:/Program%20Files/PlugShell/plugins/demo_plugin.exe")
		assert.Equal(t, `C:\Program Files\PlugShell\plugins\demo_plugin.exe`, resolveLocalFilePath(u))
		return
	}
	u, _ := url.Parse("file:///opt/plugshell/plugins/demo%20plugin")
	assert.Equal(t, "/opt/plugshell/plugins/demo plugin", resolveLocalFilePath(u))
}

func TestFor_DispatchesBySourceScheme(t *testing.T) {
	all := Default(nil)

	cases := []struct {
		source string
		want   Downloader
	}{
		{source: "HTTPS://plugins.example.com/releases/demo_plugin", want: &HTTPDownloader{}},
		{source: "http://plugins.example.com/releases/demo_plugin", want: &HTTPDownloader{}},
		{source: "file:///opt/plugshell/build/demo_plugin", want: &FileDownloader{}},
	}
	for _, tc := range cases {
		u, err := url.Parse(tc.source)
		require.NoError(t, err)
		d, err := For(all, u)
		require.NoError(t, err, tc.source)
		assert.IsType(t, tc.want, d, tc.source)
	}

	for _, source := range []string{"ftp://plugins.example.com/demo_plugin", "/opt/plugshell/demo_plugin"} {
		u, err := url.Parse(source)
		require.NoError(t, err)
		_, err = For(all, u)
		assert.Error(t, err, source)
	}
}
