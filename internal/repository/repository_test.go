package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/pu-ac-cn/admin-console/internal/config"
	"github.com/pu-ac-cn/admin-console/internal/database"
	"github.com/pu-ac-cn/admin-console/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// setupTestDB 连接测试数据库并清空控制台数据，未设置环境变量时跳过
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	host := os.Getenv("CONSOLE_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("跳过测试：未设置 CONSOLE_TEST_POSTGRES_HOST")
	}
	cfg := &config.DatabaseConfig{
		Driver:   "postgres",
		LogLevel: "silent",
		Postgres: config.PostgresConfig{
			Host:     host,
			Port:     5432,
			User:     os.Getenv("CONSOLE_TEST_POSTGRES_USER"),
			Password: os.Getenv("CONSOLE_TEST_POSTGRES_PASSWORD"),
			DBName:   os.Getenv("CONSOLE_TEST_POSTGRES_DB"),
			SSLMode:  "disable",
		},
	}
	if err := database.Init(cfg, zap.NewNop()); err != nil {
		t.Skipf("跳过测试：无法连接 PostgreSQL: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	require.NoError(t, database.AutoMigrate(&model.Permission{}, &model.Group{}, &model.User{}))
	db := database.GetDB()
	ctx := context.Background()
	require.NoError(t, NewUserRepository(db).DeleteAll(ctx))
	require.NoError(t, NewGroupRepository(db).DeleteAll(ctx))
	return db
}

func TestUserRepository_CRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	groups := NewGroupRepository(db)

	regular := &model.Group{Name: model.GroupRegular}
	require.NoError(t, groups.Create(ctx, regular))

	alice := &model.User{Username: "alice", IsActive: true, DateJoined: time.Now(), Groups: []model.Group{*regular}}
	require.NoError(t, alice.SetPassword("pw"))
	require.NoError(t, users.Create(ctx, alice))

	got, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{model.GroupRegular}, got.GroupNames())
	assert.WithinDuration(t, alice.DateJoined, got.DateJoined, time.Second)

	err = users.Create(ctx, &model.User{Username: "alice", IsActive: true})
	assert.ErrorIs(t, err, ErrUserUsernameExists)

	got.Email = "alice@example.com"
	got.Groups = nil
	require.NoError(t, users.Update(ctx, got))
	got, err = users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Empty(t, got.Groups)

	require.NoError(t, users.UpdateLastLogin(ctx, alice.ID, time.Now()))
	require.NoError(t, users.Delete(ctx, alice.ID))
	_, err = users.GetByID(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, users.Delete(ctx, alice.ID), ErrUserNotFound)
}

// 并发创建同名用户组时只有一个成功
func TestGroupRepository_ConcurrentCreate(t *testing.T) {
	db := setupTestDB(t)
	groups := NewGroupRepository(db)

	const workers = 4
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = groups.Create(context.Background(), &model.Group{Name: "X"})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, ErrGroupNameExists), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, ok)
}

func TestGroupRepository_MembersAndCounts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	groups := NewGroupRepository(db)

	admin := &model.Group{Name: model.GroupAdmin}
	regular := &model.Group{Name: model.GroupRegular}
	require.NoError(t, groups.Create(ctx, admin))
	require.NoError(t, groups.Create(ctx, regular))

	for _, u := range []*model.User{
		{Username: "bob", IsActive: true, Groups: []model.Group{*regular}},
		{Username: "carol", IsActive: true, Groups: []model.Group{*regular}},
		{Username: "dave", IsActive: true, Groups: []model.Group{*admin}},
		{Username: "erin", IsActive: false},
	} {
		require.NoError(t, users.Create(ctx, u))
	}

	counts, err := groups.MemberCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[regular.ID])
	assert.Equal(t, int64(1), counts[admin.ID])

	members, err := groups.ListMembers(ctx, regular.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "bob", members[0].Username)

	// 不在管理员组中的全部用户
	available, err := users.ListAvailableForGroup(ctx, admin.ID, "")
	require.NoError(t, err)
	assert.Len(t, available, 3)

	// 只看普通用户
	available, err = users.ListAvailableForGroup(ctx, admin.ID, model.GroupRegular)
	require.NoError(t, err)
	assert.Len(t, available, 2)

	active := true
	count, err := users.Count(ctx, &UserFilter{IsActive: &active})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	list, total, err := users.List(ctx, &UserFilter{GroupName: model.GroupRegular}, &Pagination{Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 1)

	require.NoError(t, groups.UpdateName(ctx, regular.ID, "成员"))
	assert.ErrorIs(t, groups.UpdateName(ctx, regular.ID, model.GroupAdmin), ErrGroupNameExists)
	n, err := groups.CountMembers(ctx, regular.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestPermissionRepository_EnsureDefaults(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	perms := NewPermissionRepository(db)

	first, err := perms.EnsureDefaults(ctx)
	require.NoError(t, err)
	second, err := perms.EnsureDefaults(ctx)
	require.NoError(t, err)
	require.Len(t, second, len(model.DefaultPermissions()))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}

	_, err = perms.ListByCodes(ctx, []string{model.PermViewUser, "user.unknown"})
	assert.ErrorIs(t, err, ErrPermissionNotFound)
}
