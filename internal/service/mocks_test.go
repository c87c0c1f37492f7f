package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"modtracker/internal/auth"
	"modtracker/internal/model"
	"modtracker/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateProjectOrder(ctx context.Context, id uuid.UUID, order model.UUIDList) error {
	args := m.Called(ctx, id, order)
	return args.Error(0)
}

// MockProjectRepository is a mock implementation of ProjectRepository.
type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) Create(ctx context.Context, project *model.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockProjectRepository) Update(ctx context.Context, project *model.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockProjectRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Project, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Project), args.Error(1)
}

func (m *MockProjectRepository) ListVisible(ctx context.Context, userID uuid.UUID) ([]model.Project, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Project), args.Error(1)
}

func (m *MockProjectRepository) ListAll(ctx context.Context) ([]model.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Project), args.Error(1)
}

// MockStateRepository is a mock implementation of StateRepository.
type MockStateRepository struct {
	mock.Mock
}

func (m *MockStateRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.UserProjectState, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UserProjectState), args.Error(1)
}

func (m *MockStateRepository) ListByUserForUpdate(ctx context.Context, userID uuid.UUID) ([]model.UserProjectState, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UserProjectState), args.Error(1)
}

func (m *MockStateRepository) Upsert(ctx context.Context, states ...model.UserProjectState) error {
	args := m.Called(ctx, states)
	return args.Error(0)
}

// MockLogRepository is a mock implementation of LogRepository.
type MockLogRepository struct {
	mock.Mock
}

func (m *MockLogRepository) Create(ctx context.Context, entry *model.DailyLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLogRepository) CreateBatch(ctx context.Context, entries []model.DailyLogEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.DailyLogEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DailyLogEntry), args.Error(1)
}

func (m *MockLogRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.DailyLogEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DailyLogEntry), args.Error(1)
}

func (m *MockLogRepository) Update(ctx context.Context, entry *model.DailyLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLogRepository) List(ctx context.Context, filter repository.LogFilter) ([]model.DailyLogEntry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DailyLogEntry), args.Error(1)
}

// MockAuditRepository is a mock implementation of AuditRepository.
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Create(ctx context.Context, record *model.LogModificationRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAuditRepository) ListByLog(ctx context.Context, logID uuid.UUID) ([]model.LogModificationRecord, error) {
	args := m.Called(ctx, logID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LogModificationRecord), args.Error(1)
}

// MockMarkerRepository is a mock implementation of MarkerRepository.
type MockMarkerRepository struct {
	mock.Mock
}

func (m *MockMarkerRepository) FindForUpdate(ctx context.Context, userID uuid.UUID) (*model.CommitMarker, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CommitMarker), args.Error(1)
}

func (m *MockMarkerRepository) Save(ctx context.Context, marker *model.CommitMarker) error {
	args := m.Called(ctx, marker)
	return args.Error(0)
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) StoreRefreshToken(ctx context.Context, tokenID string, session auth.RefreshSession, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, session, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) GetRefreshToken(ctx context.Context, tokenID string) (auth.RefreshSession, error) {
	args := m.Called(ctx, tokenID)
	return args.Get(0).(auth.RefreshSession), args.Error(1)
}

func (m *MockTokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *MockTokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

// fakeStore wires the mocks together. WithTransaction runs fn inline against the same
// mocks and records how many transactions were opened.
type fakeStore struct {
	users    *MockUserRepository
	projects *MockProjectRepository
	states   *MockStateRepository
	logs     *MockLogRepository
	audits   *MockAuditRepository
	markers  *MockMarkerRepository
	txCount  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    new(MockUserRepository),
		projects: new(MockProjectRepository),
		states:   new(MockStateRepository),
		logs:     new(MockLogRepository),
		audits:   new(MockAuditRepository),
		markers:  new(MockMarkerRepository),
	}
}

func (s *fakeStore) Users() repository.UserRepository       { return s.users }
func (s *fakeStore) Projects() repository.ProjectRepository { return s.projects }
func (s *fakeStore) States() repository.StateRepository     { return s.states }
func (s *fakeStore) Logs() repository.LogRepository         { return s.logs }
func (s *fakeStore) Audits() repository.AuditRepository     { return s.audits }
func (s *fakeStore) Markers() repository.MarkerRepository   { return s.markers }

func (s *fakeStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	s.txCount++
	return fn(ctx, s)
}

func (s *fakeStore) assertExpectations(t mock.TestingT) {
	s.users.AssertExpectations(t)
	s.projects.AssertExpectations(t)
	s.states.AssertExpectations(t)
	s.logs.AssertExpectations(t)
	s.audits.AssertExpectations(t)
	s.markers.AssertExpectations(t)
}

var (
	testNow   = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	operator  = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
	otherUser = uuid.MustParse("00000000-0000-0000-0000-0000000000b2")
	adminID   = uuid.MustParse("00000000-0000-0000-0000-0000000000ad")
	projA     = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	projB     = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	projC     = uuid.MustParse("00000000-0000-0000-0000-000000000003")
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func timeAt(d time.Duration) *time.Time {
	t := testNow.Add(d)
	return &t
}

func strPtr(s string) *string {
	return &s
}

func operatorActor() Actor {
	return Actor{UserID: operator, Role: model.RoleOperator}
}

func adminActor() Actor {
	return Actor{UserID: adminID, Role: model.RoleAdmin}
}

func byProject(states []model.UserProjectState) map[uuid.UUID]model.UserProjectState {
	out := make(map[uuid.UUID]model.UserProjectState, len(states))
	for _, s := range states {
		out[s.ProjectID] = s
	}
	return out
}
