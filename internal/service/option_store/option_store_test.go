// file: internal/service/option_store/option_store_test.go

package option_store

import (
	"PlugShell/internal/core/domain"
	"PlugShell/internal/core/port"
	"PlugShell/internal/service"
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// newTestStore 基于共享内存 SQLite 创建选项存储
func newTestStore(t *testing.T, name string) *OptionStoreImpl {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, service.InitShellTables(db))

	store, err := NewOptionStoreImpl(db, 10, time.Minute)
	require.NoError(t, err)
	return store
}

// newMockStore 用于初始化测试服务与sqlmock
func newMockStore(t *testing.T) (*OptionStoreImpl, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("初始化sqlmock失败: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store, err := NewOptionStoreImpl(db, 10, time.Minute)
	if err != nil {
		t.Fatalf("初始化OptionStoreImpl失败: %v", err)
	}
	return store, mock
}

// ===============================
// 主流程测试
// ===============================

func TestOptionStore_SetGetOverwrite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "opts_basic")

	require.NoError(t, s.Set(ctx, domain.Option{Name: "greeting", Value: "hello", Description: "问候语"}))
	v, err := s.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	// 覆盖写入后缓存必须失效
	require.NoError(t, s.Set(ctx, domain.Option{Name: "greeting", Value: "bonjour", Type: "string"}))
	v, err = s.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "bonjour", v)

	opt, err := s.Lookup(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "string", opt.Type)
}

func TestOptionStore_MissingAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "opts_delete")

	_, err := s.Get(ctx, "nope")
	assert.ErrorIs(t, err, port.ErrOptionNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "nope"), port.ErrOptionNotFound)

	require.NoError(t, s.Set(ctx, domain.Option{Name: "mode", Value: "fast"}))
	_, err = s.Get(ctx, "mode") // 预热缓存
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "mode"))

	_, err = s.Get(ctx, "mode")
	assert.ErrorIs(t, err, port.ErrOptionNotFound, "删除后缓存不应返回旧值")
}

func TestOptionStore_ListSorted(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "opts_list")

	require.NoError(t, s.Set(ctx, domain.Option{Name: "b", Value: "2"}))
	require.NoError(t, s.Set(ctx, domain.Option{Name: "a", Value: "1"}))

	opts, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, opts, 2)
	assert.Equal(t, "a", opts[0].Name)
	assert.Equal(t, "b", opts[1].Name)
}

func TestOptionStore_RejectsEmptyName(t *testing.T) {
	s := newTestStore(t, "opts_empty")
	assert.Error(t, s.Set(context.Background(), domain.Option{Value: "x"}))
}

func TestNewOptionStoreImpl_NilDB(t *testing.T) {
	_, err := NewOptionStoreImpl(nil, 0, 0)
	assert.Error(t, err)
}

// ===============================
// 缓存与异常分支
// ===============================

func TestOptionStore_CacheHitSkipsDatabase(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT value, description, type FROM options").
		WithArgs("k").
		WillReturnRows(sqlmock.NewRows([]string{"value", "description", "type"}).AddRow("v", "", "string"))

	for i := 0; i < 3; i++ {
		v, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v", v)
	}
	assert.NoError(t, mock.ExpectationsWereMet(), "缓存命中时不应再次查询数据库")
}

func TestOptionStore_DatabaseErrors(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	boom := errors.New("db down")

	mock.ExpectQuery("SELECT value, description, type FROM options").WillReturnError(boom)
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, port.ErrOptionNotFound)

	mock.ExpectExec("INSERT INTO options").WillReturnError(boom)
	assert.ErrorIs(t, s.Set(ctx, domain.Option{Name: "k", Value: "v"}), boom)

	mock.ExpectExec("DELETE FROM options").WillReturnError(boom)
	assert.ErrorIs(t, s.Delete(ctx, "k"), boom)

	mock.ExpectQuery("SELECT name, value, description, type FROM options").WillReturnError(boom)
	_, err = s.List(ctx)
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}
