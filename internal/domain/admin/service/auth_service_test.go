package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"equip_shop/internal/domain/admin/model"
	"equip_shop/internal/domain/admin/repository"
	"equip_shop/internal/pkg/session"
	"equip_shop/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MockAdminRepository is a mock of AdminRepository
type MockAdminRepository struct {
	mock.Mock
}

func (m *MockAdminRepository) Create(ctx context.Context, user *model.AdminUser) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockAdminRepository) GetByID(ctx context.Context, id string) (*model.AdminUser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AdminUser), args.Error(1)
}

func (m *MockAdminRepository) GetByUsername(ctx context.Context, username string) (*model.AdminUser, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AdminUser), args.Error(1)
}

func (m *MockAdminRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAdminRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

const testSecret = "auth-service-test-secret-0123456789"

func newTestService(repo *MockAdminRepository) (*authService, *session.Manager) {
	sessions := session.NewManager(testSecret, time.Hour)
	return newAuthService(repo, sessions, zap.NewNop(), bcrypt.MinCost), sessions
}

func adminUser(t *testing.T, password string) *model.AdminUser {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.AdminUser{Username: "admin", PasswordHash: string(hash), Role: model.RoleAdmin, Active: true}
	u.ID = "admin-1"
	return u
}

func TestLogin_Success(t *testing.T) {
	repo := new(MockAdminRepository)
	svc, sessions := newTestService(repo)

	repo.On("GetByUsername", mock.Anything, "admin").Return(adminUser(t, "s3cret"), nil)
	repo.On("TouchLogin", mock.Anything, "admin-1", mock.AnythingOfType("time.Time")).Return(nil)

	res, err := svc.Login(context.Background(), "  admin ", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "admin-1", res.Session.AdminID)
	assert.NotNil(t, res.User.LastLoginAt)

	sess, err := sessions.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, sess.Role)
	repo.AssertExpectations(t)
}

func TestLogin_Failures(t *testing.T) {
	inactive := adminUser(t, "s3cret")
	inactive.Active = false

	tests := []struct {
		name     string
		username string
		password string
		setup    func(repo *MockAdminRepository)
		want     error
	}{
		{"empty", "", "", func(*MockAdminRepository) {}, apperror.ErrValidation},
		{"unknown user", "ghost", "x", func(r *MockAdminRepository) {
			r.On("GetByUsername", mock.Anything, "ghost").Return(nil, repository.ErrNotFound)
		}, apperror.ErrAuthFailed},
		{"wrong password", "admin", "nope", func(r *MockAdminRepository) {
			r.On("GetByUsername", mock.Anything, "admin").Return(adminUser(t, "s3cret"), nil)
		}, apperror.ErrAuthFailed},
		{"inactive", "admin", "s3cret", func(r *MockAdminRepository) {
			r.On("GetByUsername", mock.Anything, "admin").Return(inactive, nil)
		}, apperror.ErrAuthFailed},
		{"store error", "admin", "s3cret", func(r *MockAdminRepository) {
			r.On("GetByUsername", mock.Anything, "admin").Return(nil, errors.New("db down"))
		}, apperror.ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockAdminRepository)
			tt.setup(repo)
			svc, _ := newTestService(repo)

			res, err := svc.Login(context.Background(), tt.username, tt.password)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
			repo.AssertNotCalled(t, "TouchLogin", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestLogin_TouchLoginFailureIgnored(t *testing.T) {
	repo := new(MockAdminRepository)
	svc, _ := newTestService(repo)

	repo.On("GetByUsername", mock.Anything, "admin").Return(adminUser(t, "s3cret"), nil)
	repo.On("TouchLogin", mock.Anything, "admin-1", mock.Anything).Return(errors.New("timeout"))

	res, err := svc.Login(context.Background(), "admin", "s3cret")
	require.NoError(t, err)
	assert.Nil(t, res.User.LastLoginAt)
}

func TestMe(t *testing.T) {
	repo := new(MockAdminRepository)
	svc, _ := newTestService(repo)

	_, err := svc.Me(context.Background(), nil)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	repo.On("GetByID", mock.Anything, "admin-1").Return(adminUser(t, "x"), nil)
	repo.On("GetByID", mock.Anything, "gone").Return(nil, repository.ErrNotFound)

	u, err := svc.Me(context.Background(), &session.Session{AdminID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Username)

	_, err = svc.Me(context.Background(), &session.Session{AdminID: "gone"})
	assert.ErrorIs(t, err, apperror.ErrTokenInvalid)
}

func TestEnsureBootstrap(t *testing.T) {
	t.Run("creates admin when table empty", func(t *testing.T) {
		repo := new(MockAdminRepository)
		svc, _ := newTestService(repo)
		repo.On("Count", mock.Anything).Return(int64(0), nil)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.AdminUser) bool {
			return u.Username == "owner" && u.Role == model.RoleAdmin && u.Active &&
				bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("pw")) == nil
		})).Return(nil)

		require.NoError(t, svc.EnsureBootstrap(context.Background(), "owner", "pw"))
		repo.AssertExpectations(t)
	})

	t.Run("skips when accounts exist", func(t *testing.T) {
		repo := new(MockAdminRepository)
		svc, _ := newTestService(repo)
		repo.On("Count", mock.Anything).Return(int64(2), nil)

		require.NoError(t, svc.EnsureBootstrap(context.Background(), "owner", "pw"))
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("skips without password", func(t *testing.T) {
		repo := new(MockAdminRepository)
		svc, _ := newTestService(repo)
		repo.On("Count", mock.Anything).Return(int64(0), nil)

		require.NoError(t, svc.EnsureBootstrap(context.Background(), "owner", ""))
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("concurrent create is fine", func(t *testing.T) {
		repo := new(MockAdminRepository)
		svc, _ := newTestService(repo)
		repo.On("Count", mock.Anything).Return(int64(0), nil)
		repo.On("Create", mock.Anything, mock.Anything).Return(errors.Join(repository.ErrDuplicate, errors.New("23505")))

		assert.NoError(t, svc.EnsureBootstrap(context.Background(), "owner", "pw"))
	})
}
