package handler

import (
	"context"

	"github.com/pu-ac-cn/admin-console/internal/model"
	"github.com/pu-ac-cn/admin-console/internal/repository"
	"github.com/pu-ac-cn/admin-console/internal/service"
	"github.com/stretchr/testify/mock"
)

// mockAuthService 模拟认证服务
type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Login(_ context.Context, username, password string) (*service.LoginResult, error) {
	args := m.Called(username, password)
	r, _ := args.Get(0).(*service.LoginResult)
	return r, args.Error(1)
}

func (m *mockAuthService) Logout(_ context.Context, sessionID string) error {
	return m.Called(sessionID).Error(0)
}

func (m *mockAuthService) Register(_ context.Context, in *service.RegisterInput) (*service.LoginResult, error) {
	args := m.Called(in)
	r, _ := args.Get(0).(*service.LoginResult)
	return r, args.Error(1)
}

func (m *mockAuthService) ResolvePrincipal(_ context.Context, token string) (*service.Principal, *model.Session, error) {
	args := m.Called(token)
	p, _ := args.Get(0).(*service.Principal)
	s, _ := args.Get(1).(*model.Session)
	return p, s, args.Error(2)
}

// mockUserService 模拟用户管理服务
type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) CreateUser(_ context.Context, actor *service.Principal, in *service.CreateUserInput) (*model.User, error) {
	args := m.Called(actor, in)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUserService) UpdateUser(_ context.Context, actor *service.Principal, id string, in *service.UpdateUserInput) (*model.User, error) {
	args := m.Called(actor, id, in)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUserService) DeleteUser(_ context.Context, actor *service.Principal, id string) error {
	return m.Called(actor, id).Error(0)
}

func (m *mockUserService) ChangePassword(_ context.Context, actor *service.Principal, id, newPassword string) error {
	return m.Called(actor, id, newPassword).Error(0)
}

func (m *mockUserService) ChangeGroup(_ context.Context, actor *service.Principal, userID, groupID string) error {
	return m.Called(actor, userID, groupID).Error(0)
}

func (m *mockUserService) GetUser(_ context.Context, actor *service.Principal, id string) (*model.User, error) {
	args := m.Called(actor, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUserService) ListUsers(_ context.Context, actor *service.Principal, filter *repository.UserFilter, page *repository.Pagination) ([]*model.User, int64, error) {
	args := m.Called(actor, filter, page)
	users, _ := args.Get(0).([]*model.User)
	return users, args.Get(1).(int64), args.Error(2)
}

func (m *mockUserService) ListAvailableForGroup(_ context.Context, actor *service.Principal, groupID string) ([]*model.User, error) {
	args := m.Called(actor, groupID)
	users, _ := args.Get(0).([]*model.User)
	return users, args.Error(1)
}

func (m *mockUserService) Stats(_ context.Context, actor *service.Principal) (*service.Stats, error) {
	args := m.Called(actor)
	s, _ := args.Get(0).(*service.Stats)
	return s, args.Error(1)
}

// mockGroupService 模拟用户组管理服务
type mockGroupService struct {
	mock.Mock
}

func (m *mockGroupService) CreateGroup(_ context.Context, actor *service.Principal, name string) (*model.Group, error) {
	args := m.Called(actor, name)
	g, _ := args.Get(0).(*model.Group)
	return g, args.Error(1)
}

func (m *mockGroupService) UpdateGroup(_ context.Context, actor *service.Principal, id, name string) (*service.GroupDetail, error) {
	args := m.Called(actor, id, name)
	d, _ := args.Get(0).(*service.GroupDetail)
	return d, args.Error(1)
}

func (m *mockGroupService) GetGroup(_ context.Context, actor *service.Principal, id string) (*service.GroupDetail, error) {
	args := m.Called(actor, id)
	d, _ := args.Get(0).(*service.GroupDetail)
	return d, args.Error(1)
}

func (m *mockGroupService) ListGroups(_ context.Context, actor *service.Principal) ([]*service.GroupDetail, error) {
	args := m.Called(actor)
	list, _ := args.Get(0).([]*service.GroupDetail)
	return list, args.Error(1)
}

func (m *mockGroupService) ListMembers(_ context.Context, actor *service.Principal, id string) (*model.Group, []*model.User, error) {
	args := m.Called(actor, id)
	g, _ := args.Get(0).(*model.Group)
	users, _ := args.Get(1).([]*model.User)
	return g, users, args.Error(2)
}

// mockBootstrapService 模拟系统初始化服务
type mockBootstrapService struct {
	mock.Mock
}

func (m *mockBootstrapService) Initialize(_ context.Context, secret string) (*service.BootstrapResult, error) {
	args := m.Called(secret)
	r, _ := args.Get(0).(*service.BootstrapResult)
	return r, args.Error(1)
}

func (m *mockBootstrapService) PromoteSuperuser(_ context.Context, username string) (*model.User, error) {
	args := m.Called(username)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}
