package services

import (
	"context"
	"testing"
	"time"

	"github.com/studyon/course-market/internal/model"
	"github.com/studyon/course-market/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *model.User) (*model.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type MockDepositor struct {
	mock.Mock
}

func (m *MockDepositor) Deposit(ctx context.Context, userID int64, amount float64) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Save(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	args := m.Called(ctx, token, userID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) Get(ctx context.Context, token string) (int64, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTokenStore) Delete(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func testUserServiceConfig() UserServiceConfig {
	return UserServiceConfig{
		JWTSecret:       []byte("test-secret"),
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		StartAmount:     100,
	}
}

func TestUserService_Register(t *testing.T) {
	t.Run("creates account with start deposit", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		payments := new(MockDepositor)
		tokens := new(MockTokenStore)
		service := NewUserService(userRepo, payments, tokens, testUserServiceConfig())
		ctx := context.Background()

		userRepo.On("GetByEmail", ctx, "new@example.com").Return(nil, repository.ErrUserNotFound)
		userRepo.On("Create", ctx, mock.MatchedBy(func(u *model.User) bool {
			hashOK := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret123")) == nil
			return u.Email == "new@example.com" && hashOK &&
				len(u.Roles) == 1 && u.Roles[0] == model.RoleUser
		})).Return(&model.User{ID: 10, Email: "new@example.com", Roles: []string{model.RoleUser}}, nil)
		payments.On("Deposit", ctx, int64(10), 100.0).Return(nil)
		tokens.On("Save", ctx, mock.AnythingOfType("string"), int64(10), time.Hour).Return(nil)

		user, pair, err := service.Register(ctx, model.UserCreateRequest{
			Email:    "new@example.com",
			Password: "secret123",
		})
		require.NoError(t, err)
		require.NotNil(t, pair)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.Equal(t, 100.0, user.Balance)

		userRepo.AssertExpectations(t)
		payments.AssertExpectations(t)
		tokens.AssertExpectations(t)
	})

	t.Run("email taken", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		payments := new(MockDepositor)
		tokens := new(MockTokenStore)
		service := NewUserService(userRepo, payments, tokens, testUserServiceConfig())
		ctx := context.Background()

		userRepo.On("GetByEmail", ctx, "taken@example.com").
			Return(&model.User{ID: 1, Email: "taken@example.com"}, nil)

		_, _, err := service.Register(ctx, model.UserCreateRequest{
			Email:    "taken@example.com",
			Password: "secret123",
		})
		assert.ErrorIs(t, err, ErrEmailTaken)

		userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		payments.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("email taken after pre-check", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		payments := new(MockDepositor)
		tokens := new(MockTokenStore)
		service := NewUserService(userRepo, payments, tokens, testUserServiceConfig())
		ctx := context.Background()

		// A concurrent registration can slip in between the email
		// pre-check and the insert, the unique index then rejects it.
		userRepo.On("GetByEmail", ctx, "raced@example.com").Return(nil, repository.ErrUserNotFound)
		userRepo.On("Create", ctx, mock.Anything).Return(nil, repository.ErrEmailExists)

		_, _, err := service.Register(ctx, model.UserCreateRequest{
			Email:    "raced@example.com",
			Password: "secret123",
		})
		assert.ErrorIs(t, err, ErrEmailTaken)

		payments.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything)
		tokens.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("zero start amount skips deposit", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		payments := new(MockDepositor)
		tokens := new(MockTokenStore)
		cfg := testUserServiceConfig()
		cfg.StartAmount = 0
		service := NewUserService(userRepo, payments, tokens, cfg)
		ctx := context.Background()

		userRepo.On("GetByEmail", ctx, "new@example.com").Return(nil, repository.ErrUserNotFound)
		userRepo.On("Create", ctx, mock.Anything).
			Return(&model.User{ID: 11, Email: "new@example.com", Roles: []string{model.RoleUser}}, nil)
		tokens.On("Save", ctx, mock.AnythingOfType("string"), int64(11), time.Hour).Return(nil)

		_, _, err := service.Register(ctx, model.UserCreateRequest{
			Email:    "new@example.com",
			Password: "secret123",
		})
		require.NoError(t, err)

		payments.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid request", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		service := NewUserService(userRepo, new(MockDepositor), new(MockTokenStore), testUserServiceConfig())

		_, _, err := service.Register(context.Background(), model.UserCreateRequest{
			Email:    "not-an-email",
			Password: "secret123",
		})
		assert.Error(t, err)

		userRepo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	})
}

func TestUserService_Authenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := &model.User{ID: 5, Email: "user@example.com", PasswordHash: string(hash), Roles: []string{model.RoleUser}}

	t.Run("valid credentials", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		tokens := new(MockTokenStore)
		service := NewUserService(userRepo, new(MockDepositor), tokens, testUserServiceConfig())
		ctx := context.Background()

		userRepo.On("GetByEmail", ctx, "user@example.com").Return(stored, nil)
		tokens.On("Save", ctx, mock.AnythingOfType("string"), int64(5), time.Hour).Return(nil)

		user, pair, err := service.Authenticate(ctx, "user@example.com", "secret123")
		require.NoError(t, err)
		assert.Equal(t, int64(5), user.ID)
		assert.NotEmpty(t, pair.AccessToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		service := NewUserService(userRepo, new(MockDepositor), new(MockTokenStore), testUserServiceConfig())
		ctx := context.Background()

		userRepo.On("GetByEmail", ctx, "user@example.com").Return(stored, nil)

		_, _, err := service.Authenticate(ctx, "user@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		service := NewUserService(userRepo, new(MockDepositor), new(MockTokenStore), testUserServiceConfig())
		ctx := context.Background()

		userRepo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, repository.ErrUserNotFound)

		_, _, err := service.Authenticate(ctx, "ghost@example.com", "secret123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestUserService_Refresh(t *testing.T) {
	t.Run("rotates the token", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		tokens := new(MockTokenStore)
		service := NewUserService(userRepo, new(MockDepositor), tokens, testUserServiceConfig())
		ctx := context.Background()

		tokens.On("Get", ctx, "old-token").Return(int64(5), nil)
		userRepo.On("GetByID", ctx, int64(5)).
			Return(&model.User{ID: 5, Email: "user@example.com", Roles: []string{model.RoleUser}}, nil)
		tokens.On("Delete", ctx, "old-token").Return(nil)
		tokens.On("Save", ctx, mock.AnythingOfType("string"), int64(5), time.Hour).Return(nil)

		pair, err := service.Refresh(ctx, "old-token")
		require.NoError(t, err)
		assert.NotEqual(t, "old-token", pair.RefreshToken)

		tokens.AssertExpectations(t)
	})

	t.Run("unknown token", func(t *testing.T) {
		tokens := new(MockTokenStore)
		service := NewUserService(new(MockUserRepository), new(MockDepositor), tokens, testUserServiceConfig())
		ctx := context.Background()

		tokens.On("Get", ctx, "bogus").Return(int64(0), ErrRefreshTokenNotFound)

		_, err := service.Refresh(ctx, "bogus")
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})

	t.Run("user deleted since issue", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		tokens := new(MockTokenStore)
		service := NewUserService(userRepo, new(MockDepositor), tokens, testUserServiceConfig())
		ctx := context.Background()

		tokens.On("Get", ctx, "orphan").Return(int64(9), nil)
		userRepo.On("GetByID", ctx, int64(9)).Return(nil, repository.ErrUserNotFound)

		_, err := service.Refresh(ctx, "orphan")
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})
}
