package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/pu-ac-cn/admin-console/internal/model"
	"github.com/pu-ac-cn/admin-console/internal/repository"
	"github.com/stretchr/testify/require"
)

// mockStore 内存存储，用户、用户组、权限三个仓库共享
type mockStore struct {
	mu         sync.Mutex
	seq        int
	users      map[string]*model.User
	groups     map[string]*model.Group
	perms      map[string]model.Permission // code -> permission
	members    map[string][]string         // userID -> groupIDs
	groupPerms map[string][]string         // groupID -> codes
	failures   map[string]error
}

func newMockStore() *mockStore {
	return &mockStore{
		users:      make(map[string]*model.User),
		groups:     make(map[string]*model.Group),
		perms:      make(map[string]model.Permission),
		members:    make(map[string][]string),
		groupPerms: make(map[string][]string),
		failures:   make(map[string]error),
	}
}

// failOn 让指定操作返回错误，例如 "Group.Create"
func (s *mockStore) failOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *mockStore) failure(op string) error {
	return s.failures[op]
}

func (s *mockStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// userCopy 返回带用户组和权限的用户副本
func (s *mockStore) userCopy(u *model.User) *model.User {
	cp := *u
	cp.Groups = nil
	for _, gid := range s.members[u.ID] {
		if g, ok := s.groups[gid]; ok {
			cp.Groups = append(cp.Groups, *s.groupCopy(g))
		}
	}
	return &cp
}

func (s *mockStore) groupCopy(g *model.Group) *model.Group {
	cp := *g
	cp.Permissions = nil
	cp.Users = nil
	for _, code := range s.groupPerms[g.ID] {
		cp.Permissions = append(cp.Permissions, s.perms[code])
	}
	return &cp
}

func (s *mockStore) usernameTaken(username, excludeID string) bool {
	for _, u := range s.users {
		if u.Username == username && u.ID != excludeID {
			return true
		}
	}
	return false
}

func (s *mockStore) groupNameTaken(name, excludeID string) bool {
	for _, g := range s.groups {
		if g.Name == name && g.ID != excludeID {
			return true
		}
	}
	return false
}

func (s *mockStore) inGroup(userID, groupID string) bool {
	for _, gid := range s.members[userID] {
		if gid == groupID {
			return true
		}
	}
	return false
}

func (s *mockStore) groupByName(name string) *model.Group {
	for _, g := range s.groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

func (s *mockStore) setGroups(userID string, groups []model.Group) error {
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		if _, ok := s.groups[g.ID]; !ok {
			return repository.ErrGroupNotFound
		}
		ids = append(ids, g.ID)
	}
	s.members[userID] = ids
	return nil
}

func sortUsers(users []*model.User) {
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
}

// mockUserRepository 用户仓库
type mockUserRepository struct {
	*mockStore
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("User.Create"); err != nil {
		return err
	}
	if m.usernameTaken(user.Username, "") {
		return repository.ErrUserUsernameExists
	}
	user.ID = m.nextID("user")
	stored := *user
	stored.Groups = nil
	m.users[user.ID] = &stored
	return m.setGroups(user.ID, user.Groups)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("User.GetByID"); err != nil {
		return nil, err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return m.userCopy(u), nil
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return m.userCopy(u), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) Update(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("User.Update"); err != nil {
		return err
	}
	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	if m.usernameTaken(user.Username, user.ID) {
		return repository.ErrUserUsernameExists
	}
	stored := *user
	stored.Groups = nil
	m.users[user.ID] = &stored
	return m.setGroups(user.ID, user.Groups)
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.LastLogin = &at
	return nil
}

func (m *mockUserRepository) SetGroups(ctx context.Context, id string, groups []model.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("User.SetGroups"); err != nil {
		return err
	}
	if _, ok := m.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	return m.setGroups(id, groups)
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(m.users, id)
	delete(m.members, id)
	return nil
}

func (m *mockUserRepository) DeleteAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("User.DeleteAll"); err != nil {
		return err
	}
	m.users = make(map[string]*model.User)
	m.members = make(map[string][]string)
	return nil
}

func (m *mockUserRepository) List(ctx context.Context, filter *repository.UserFilter, page *repository.Pagination) ([]*model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.User
	for _, u := range m.users {
		if m.matches(u, filter) {
			result = append(result, m.userCopy(u))
		}
	}
	sortUsers(result)
	return result, int64(len(result)), nil
}

func (m *mockUserRepository) ListAvailableForGroup(ctx context.Context, groupID, memberOf string) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var scope *model.Group
	if memberOf != "" {
		if scope = m.groupByName(memberOf); scope == nil {
			return nil, nil
		}
	}
	var result []*model.User
	for _, u := range m.users {
		if m.inGroup(u.ID, groupID) {
			continue
		}
		if scope != nil && !m.inGroup(u.ID, scope.ID) {
			continue
		}
		result = append(result, m.userCopy(u))
	}
	sortUsers(result)
	return result, nil
}

func (m *mockUserRepository) ExistsByUsername(ctx context.Context, username, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usernameTaken(username, excludeID), nil
}

func (m *mockUserRepository) Count(ctx context.Context, filter *repository.UserFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("User.Count"); err != nil {
		return 0, err
	}
	var n int64
	for _, u := range m.users {
		if m.matches(u, filter) {
			n++
		}
	}
	return n, nil
}

func (m *mockUserRepository) matches(u *model.User, filter *repository.UserFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Username != "" && u.Username != filter.Username {
		return false
	}
	if filter.IsActive != nil && u.IsActive != *filter.IsActive {
		return false
	}
	if filter.GroupName != "" {
		g := m.groupByName(filter.GroupName)
		if g == nil || !m.inGroup(u.ID, g.ID) {
			return false
		}
	}
	return true
}

// mockGroupRepository 用户组仓库
type mockGroupRepository struct {
	*mockStore
}

func (m *mockGroupRepository) Create(ctx context.Context, group *model.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("Group.Create"); err != nil {
		return err
	}
	if m.groupNameTaken(group.Name, "") {
		return repository.ErrGroupNameExists
	}
	group.ID = m.nextID("group")
	stored := *group
	stored.Permissions = nil
	m.groups[group.ID] = &stored
	codes := make([]string, 0, len(group.Permissions))
	for _, p := range group.Permissions {
		codes = append(codes, p.Code)
	}
	m.groupPerms[group.ID] = codes
	return nil
}

func (m *mockGroupRepository) GetByID(ctx context.Context, id string) (*model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return nil, repository.ErrGroupNotFound
	}
	return m.groupCopy(g), nil
}

func (m *mockGroupRepository) GetByName(ctx context.Context, name string) (*model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("Group.GetByName"); err != nil {
		return nil, err
	}
	g := m.groupByName(name)
	if g == nil {
		return nil, repository.ErrGroupNotFound
	}
	return m.groupCopy(g), nil
}

func (m *mockGroupRepository) UpdateName(ctx context.Context, id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return repository.ErrGroupNotFound
	}
	if m.groupNameTaken(name, id) {
		return repository.ErrGroupNameExists
	}
	g.Name = name
	return nil
}

func (m *mockGroupRepository) SetPermissions(ctx context.Context, id string, perms []model.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("Group.SetPermissions"); err != nil {
		return err
	}
	if _, ok := m.groups[id]; !ok {
		return repository.ErrGroupNotFound
	}
	codes := make([]string, 0, len(perms))
	for _, p := range perms {
		codes = append(codes, p.Code)
	}
	m.groupPerms[id] = codes
	return nil
}

func (m *mockGroupRepository) List(ctx context.Context) ([]*model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*model.Group, 0, len(m.groups))
	for _, g := range m.groups {
		result = append(result, m.groupCopy(g))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockGroupRepository) ListMembers(ctx context.Context, id string) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.User
	for _, u := range m.users {
		if m.inGroup(u.ID, id) {
			result = append(result, m.userCopy(u))
		}
	}
	sortUsers(result)
	return result, nil
}

func (m *mockGroupRepository) CountMembers(ctx context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("Group.CountMembers"); err != nil {
		return 0, err
	}
	var n int64
	for uid := range m.users {
		if m.inGroup(uid, id) {
			n++
		}
	}
	return n, nil
}

func (m *mockGroupRepository) MemberCounts(ctx context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int64)
	for uid := range m.users {
		for _, gid := range m.members[uid] {
			counts[gid]++
		}
	}
	return counts, nil
}

func (m *mockGroupRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.groupNameTaken(name, excludeID), nil
}

func (m *mockGroupRepository) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.groups)), nil
}

func (m *mockGroupRepository) DeleteAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("Group.DeleteAll"); err != nil {
		return err
	}
	m.groups = make(map[string]*model.Group)
	m.groupPerms = make(map[string][]string)
	m.members = make(map[string][]string)
	return nil
}

// mockPermissionRepository 权限仓库
type mockPermissionRepository struct {
	*mockStore
}

func (m *mockPermissionRepository) EnsureDefaults(ctx context.Context) ([]model.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("Permission.EnsureDefaults"); err != nil {
		return nil, err
	}
	var result []model.Permission
	for _, p := range model.DefaultPermissions() {
		existing, ok := m.perms[p.Code]
		if !ok {
			p.ID = m.nextID("perm")
			m.perms[p.Code] = p
			existing = p
		}
		result = append(result, existing)
	}
	return result, nil
}

func (m *mockPermissionRepository) ListByCodes(ctx context.Context, codes []string) ([]model.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]model.Permission, 0, len(codes))
	for _, code := range codes {
		p, ok := m.perms[code]
		if !ok {
			return nil, repository.ErrPermissionNotFound
		}
		result = append(result, p)
	}
	return result, nil
}

func (m *mockPermissionRepository) List(ctx context.Context) ([]model.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]model.Permission, 0, len(m.perms))
	for _, p := range m.perms {
		result = append(result, p)
	}
	return result, nil
}

// fixture 测试夹具：三个默认用户组及其权限
type fixture struct {
	store  *mockStore
	users  *mockUserRepository
	groups *mockGroupRepository
	perms  *mockPermissionRepository
	group  map[string]*model.Group
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := newMockStore()
	f := &fixture{
		store:  st,
		users:  &mockUserRepository{st},
		groups: &mockGroupRepository{st},
		perms:  &mockPermissionRepository{st},
		group:  make(map[string]*model.Group),
	}
	ctx := context.Background()
	_, err := f.perms.EnsureDefaults(ctx)
	require.NoError(t, err)
	for name, codes := range model.DefaultGroupPermissions() {
		perms, err := f.perms.ListByCodes(ctx, codes)
		require.NoError(t, err)
		g := &model.Group{Name: name, Permissions: perms}
		require.NoError(t, f.groups.Create(ctx, g))
		f.group[name] = g
	}
	return f
}

// addUser 创建用户，groupName 为空时不加入用户组
func (f *fixture) addUser(t *testing.T, username, groupName string, superuser bool) *model.User {
	t.Helper()
	u := &model.User{
		Username:    username,
		Email:       username + "@example.com",
		IsActive:    true,
		IsSuperuser: superuser,
		DateJoined:  time.Now(),
	}
	require.NoError(t, u.SetPassword("password"))
	if groupName != "" {
		u.Groups = []model.Group{*f.group[groupName]}
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

// principal 按存储中的最新状态构建操作者
func (f *fixture) principal(t *testing.T, u *model.User) *Principal {
	t.Helper()
	loaded, err := f.users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	return NewPrincipal(loaded)
}
