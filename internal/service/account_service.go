package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AccountService handles registration, login sessions and profile completion
type AccountService struct {
	store      AccountStore
	sessions   SessionStore
	sessionTTL time.Duration
	logger     *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(store AccountStore, sessions SessionStore, sessionTTL time.Duration) *AccountService {
	return &AccountService{
		store:      store,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		logger:     util.GetLogger(),
	}
}

// Register creates a user account and its customer profile in one step
func (s *AccountService) Register(ctx context.Context, username, firstName, password string) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.Register")
	defer span.End()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		FirstName:    firstName,
		PasswordHash: string(hash),
	}

	if err := s.store.CreateUserWithProfile(ctx, user); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	s.logger.Info("Account registered",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username))

	return user, nil
}

// LoginResult carries the minted session and whether the caller should be
// sent to profile completion first
type LoginResult struct {
	Token          string       `json:"token"`
	User           *models.User `json:"user"`
	ProfilePending bool         `json:"profile_pending"`
}

// Login verifies credentials and mints a session token
func (s *AccountService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.Login")
	defer span.End()

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Accounts predating the profile table get an empty profile row here
	customer, created, err := s.store.EnsureCustomer(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure customer profile: %w", err)
	}
	if created {
		s.logger.Info("Customer profile backfilled on login", zap.Int64("user_id", user.ID))
	}

	token := uuid.New().String()
	if err := s.sessions.SetSession(ctx, token, user.ID, s.sessionTTL); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	util.SessionsCreatedTotal.Inc()
	s.logger.Info("User logged in", zap.Int64("user_id", user.ID))

	return &LoginResult{
		Token:          token,
		User:           user,
		ProfilePending: !customer.ProfileCompleted,
	}, nil
}

// Logout deletes the session for a token
func (s *AccountService) Logout(ctx context.Context, token string) error {
	return s.sessions.DeleteSession(ctx, token)
}

// Authenticate resolves a session token to a user ID
func (s *AccountService) Authenticate(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrUnauthenticated
	}

	userID, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("failed to read session: %w", err)
	}
	if userID == 0 {
		return 0, ErrUnauthenticated
	}
	return userID, nil
}

// CompleteProfile saves the required fields and flips the one-way flag
func (s *AccountService) CompleteProfile(ctx context.Context, userID int64, phone, address string) error {
	ctx, span := util.StartSpan(ctx, "AccountService.CompleteProfile")
	defer span.End()

	updated, err := s.store.CompleteProfile(ctx, userID, phone, address)
	if err != nil {
		return fmt.Errorf("failed to complete profile: %w", err)
	}
	if !updated {
		return ErrProfileAlreadyCompleted
	}

	s.logger.Info("Profile completed", zap.Int64("user_id", userID))
	return nil
}

// GetProfile retrieves the customer profile for a user
func (s *AccountService) GetProfile(ctx context.Context, userID int64) (*models.Customer, error) {
	return s.store.GetCustomer(ctx, userID)
}
