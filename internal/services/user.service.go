package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/studyon/course-market/internal/auth"
	"github.com/studyon/course-market/internal/model"
	"github.com/studyon/course-market/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken          = errors.New("email already in use")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

type UserRepository interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// Depositor is the slice of the payment engine registration needs: the
// starting-balance credit goes through the same atomic deposit path as any
// other money movement.
type Depositor interface {
	Deposit(ctx context.Context, userID int64, amount float64) error
}

type TokenStore interface {
	Save(ctx context.Context, token string, userID int64, ttl time.Duration) error
	Get(ctx context.Context, token string) (int64, error)
	Delete(ctx context.Context, token string) error
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type UserServiceConfig struct {
	JWTSecret       []byte
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	StartAmount     float64
}

type UserService struct {
	userRepo UserRepository
	payments Depositor
	tokens   TokenStore
	cfg      UserServiceConfig
}

func NewUserService(userRepo UserRepository, payments Depositor, tokens TokenStore, cfg UserServiceConfig) *UserService {
	return &UserService{
		userRepo: userRepo,
		payments: payments,
		tokens:   tokens,
		cfg:      cfg,
	}
}

// Register creates the account, credits the configured starting balance
// through the payment engine (so the first ledger entry of every account is
// a deposit), and issues a token pair.
func (s *UserService) Register(ctx context.Context, req model.UserCreateRequest) (*model.User, *TokenPair, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	_, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err == nil {
		return nil, nil, ErrEmailTaken
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.userRepo.Create(ctx, &model.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Roles:        []string{model.RoleUser},
	})
	if err != nil {
		// The unique index is the authority: the GetByEmail pre-check
		// above can lose a race with a concurrent registration.
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	if s.cfg.StartAmount > 0 {
		if err := s.payments.Deposit(ctx, user.ID, s.cfg.StartAmount); err != nil {
			return nil, nil, fmt.Errorf("initial deposit: %w", err)
		}
		user.Balance = s.cfg.StartAmount
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, *TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh rotates the refresh token: the presented one is deleted and a new
// pair is issued.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, err := s.tokens.Get(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	if err := s.tokens.Delete(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	return s.issueTokenPair(ctx, user)
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) issueTokenPair(ctx context.Context, user *model.User) (*TokenPair, error) {
	access, err := auth.GenerateToken(user.ID, user.Email, user.Roles, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refresh := uuid.NewString()
	if err := s.tokens.Save(ctx, refresh, user.ID, s.cfg.RefreshTokenTTL); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
