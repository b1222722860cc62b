package auth

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/nepabhay/account-service/app/observability/metrics"
	"github.com/nepabhay/account-service/config"
	"github.com/nepabhay/account-service/internal/api/account"
	"github.com/nepabhay/account-service/internal/types"
)

func TestMain(m *testing.M) {
	// Instruments resolve against the global (noop) meter provider in tests.
	metrics.InitAppMetrics()
	m.Run()
}

// MockAccountRepo is a mock implementation of the account.AccountRepo interface
type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) CreateAccount(ctx context.Context, params types.CreateAccountParams) (*types.Account, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountRepo) GetAccountByID(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountRepo) GetAccountByEmail(ctx context.Context, email string) (*types.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountRepo) GetAccountByProvider(ctx context.Context, provider, providerUserID string) (*types.Account, error) {
	args := m.Called(ctx, provider, providerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountRepo) LinkProvider(ctx context.Context, accountID uuid.UUID, provider, providerUserID string) error {
	args := m.Called(ctx, accountID, provider, providerUserID)
	return args.Error(0)
}

func (m *MockAccountRepo) ListAccounts(ctx context.Context, q account.AccountQuery) ([]types.Account, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Account), args.Error(1)
}

func (m *MockAccountRepo) Deactivate(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountRepo) Reactivate(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountRepo) RequestDeletion(ctx context.Context, id uuid.UUID, reason *string) (*types.Account, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountRepo) CancelDeletion(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepo) Block(ctx context.Context, id, adminID uuid.UUID, reason string) (*types.Account, error) {
	args := m.Called(ctx, id, adminID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountRepo) Unblock(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) (*types.Account, error) {
	args := m.Called(ctx, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccountRepo) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccountRepo) UpdatePassword(ctx context.Context, id uuid.UUID, newHashedPassword string) error {
	args := m.Called(ctx, id, newHashedPassword)
	return args.Error(0)
}

// MockAuthRepo is a mock implementation of the AuthRepo interface
type MockAuthRepo struct {
	mock.Mock
}

func (m *MockAuthRepo) StoreRefreshToken(ctx context.Context, accountID uuid.UUID, token string, expiresAt time.Time) error {
	args := m.Called(ctx, accountID, token, expiresAt)
	return args.Error(0)
}

func (m *MockAuthRepo) GetAccountIDByRefreshToken(ctx context.Context, token string) (uuid.UUID, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockAuthRepo) RevokeRefreshToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockAuthRepo) RevokeAllRefreshTokens(ctx context.Context, accountID uuid.UUID) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

// MockAccountService is a mock implementation of the account.AccountService interface
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) GetAccount(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountService) ListAccounts(ctx context.Context, q account.AccountQuery) ([]types.Account, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Account), args.Error(1)
}

func (m *MockAccountService) Check(ctx context.Context, email string) types.LoginDecision {
	args := m.Called(ctx, email)
	return args.Get(0).(types.LoginDecision)
}

func (m *MockAccountService) Deactivate(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountService) Reactivate(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountService) RequestDeletion(ctx context.Context, id uuid.UUID, reason *string) (*types.Account, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountService) CancelDeletion(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountService) DeleteImmediately(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountService) Block(ctx context.Context, targetID, adminID uuid.UUID, reason string) (*types.Account, error) {
	args := m.Called(ctx, targetID, adminID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountService) Unblock(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountService) SetActiveByAdmin(ctx context.Context, id uuid.UUID, active bool) (*types.Account, error) {
	args := m.Called(ctx, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountService) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		SecretKey:       "test-secret",
		Issuer:          "nepabhay",
		Audience:        "nepabhay-app",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 720 * time.Hour,
	}
}

func activeAccount(password string) *types.Account {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	now := time.Now()
	return &types.Account{
		ID:              uuid.New(),
		Username:        "maya",
		Email:           "maya@example.com",
		PasswordHash:    string(hash),
		Role:            types.RoleReader,
		IsActive:        true,
		EmailVerifiedAt: &now,
	}
}

func newTestAuthService(accountRepo *MockAccountRepo, accountSvc *MockAccountService, authRepo *MockAuthRepo) *AuthServiceImpl {
	return NewAuthService(accountRepo, accountSvc, authRepo, testJWTConfig(), slog.Default())
}

func TestLogin_Success(t *testing.T) {
	accountRepo := new(MockAccountRepo)
	accountSvc := new(MockAccountService)
	authRepo := new(MockAuthRepo)
	acct := activeAccount("hunter-two")

	accountSvc.On("Check", mock.Anything, acct.Email).Return(types.DecisionAllowed())
	accountRepo.On("GetAccountByEmail", mock.Anything, acct.Email).Return(acct, nil)
	accountRepo.On("UpdateLastLogin", mock.Anything, acct.ID).Return(nil)
	authRepo.On("StoreRefreshToken", mock.Anything, acct.ID, mock.Anything, mock.Anything).Return(nil)

	svc := newTestAuthService(accountRepo, accountSvc, authRepo)
	resp, err := svc.Login(context.Background(), acct.Email, "hunter-two")

	assert.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, types.StatusAllowed, resp.Decision.Status)
	authRepo.AssertExpectations(t)
}

// A blocked account must be refused before the password is ever compared, so
// the response does not reveal whether the credentials were right.
func TestLogin_BlockedRefusedBeforeCredentialCheck(t *testing.T) {
	accountRepo := new(MockAccountRepo)
	accountSvc := new(MockAccountService)
	authRepo := new(MockAuthRepo)

	accountSvc.On("Check", mock.Anything, "maya@example.com").
		Return(types.DecisionBlocked("spam"))

	svc := newTestAuthService(accountRepo, accountSvc, authRepo)
	resp, err := svc.Login(context.Background(), "maya@example.com", "whatever")

	assert.ErrorIs(t, err, types.ErrForbidden)
	assert.Equal(t, types.StatusBlocked, resp.Decision.Status)
	assert.Empty(t, resp.AccessToken)
	accountRepo.AssertNotCalled(t, "GetAccountByEmail", mock.Anything, mock.Anything)
}

func TestLogin_DeletionRequestedRefused(t *testing.T) {
	accountRepo := new(MockAccountRepo)
	accountSvc := new(MockAccountService)
	authRepo := new(MockAuthRepo)

	accountSvc.On("Check", mock.Anything, "maya@example.com").
		Return(types.DecisionDeletionRequested())

	svc := newTestAuthService(accountRepo, accountSvc, authRepo)
	resp, err := svc.Login(context.Background(), "maya@example.com", "whatever")

	assert.ErrorIs(t, err, types.ErrForbidden)
	assert.Equal(t, types.StatusDeletionRequested, resp.Decision.Status)
}

// Deactivated owners keep the ability to log in so they can reactivate.
func TestLogin_DeactivatedAllowed(t *testing.T) {
	accountRepo := new(MockAccountRepo)
	accountSvc := new(MockAccountService)
	authRepo := new(MockAuthRepo)
	acct := activeAccount("hunter-two")
	acct.IsActive = false

	accountSvc.On("Check", mock.Anything, acct.Email).Return(types.DecisionDeactivated())
	accountRepo.On("GetAccountByEmail", mock.Anything, acct.Email).Return(acct, nil)
	accountRepo.On("UpdateLastLogin", mock.Anything, acct.ID).Return(nil)
	authRepo.On("StoreRefreshToken", mock.Anything, acct.ID, mock.Anything, mock.Anything).Return(nil)

	svc := newTestAuthService(accountRepo, accountSvc, authRepo)
	resp, err := svc.Login(context.Background(), acct.Email, "hunter-two")

	assert.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, types.StatusDeactivated, resp.Decision.Status)
	assert.Contains(t, resp.Message, "reactivate")
}

func TestLogin_WrongPassword(t *testing.T) {
	accountRepo := new(MockAccountRepo)
	accountSvc := new(MockAccountService)
	authRepo := new(MockAuthRepo)
	acct := activeAccount("hunter-two")

	accountSvc.On("Check", mock.Anything, acct.Email).Return(types.DecisionAllowed())
	accountRepo.On("GetAccountByEmail", mock.Anything, acct.Email).Return(acct, nil)

	svc := newTestAuthService(accountRepo, accountSvc, authRepo)
	_, err := svc.Login(context.Background(), acct.Email, "wrong")

	assert.ErrorIs(t, err, types.ErrUnauthenticated)
	authRepo.AssertNotCalled(t, "StoreRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestAuthService(new(MockAccountRepo), new(MockAccountService), new(MockAuthRepo))

	_, err := svc.Register(context.Background(), types.RegisterRequest{
		Username: "",
		Email:    "not-an-email",
		Password: "short",
	})

	var valErr *types.ValidationError
	assert.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields, "username")
	assert.Contains(t, valErr.Fields, "email")
	assert.Contains(t, valErr.Fields, "password")
}

func TestRefreshSession_RotatesToken(t *testing.T) {
	accountRepo := new(MockAccountRepo)
	accountSvc := new(MockAccountService)
	authRepo := new(MockAuthRepo)
	acct := activeAccount("hunter-two")

	authRepo.On("GetAccountIDByRefreshToken", mock.Anything, "old-token").Return(acct.ID, nil)
	accountRepo.On("GetAccountByID", mock.Anything, acct.ID).Return(acct, nil)
	authRepo.On("RevokeRefreshToken", mock.Anything, "old-token").Return(nil)
	authRepo.On("StoreRefreshToken", mock.Anything, acct.ID, mock.Anything, mock.Anything).Return(nil)

	svc := newTestAuthService(accountRepo, accountSvc, authRepo)
	tokens, err := svc.RefreshSession(context.Background(), "old-token")

	assert.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEqual(t, "old-token", tokens.RefreshToken)
	authRepo.AssertExpectations(t)
}

// A block applied mid-session must cut existing sessions short at the next
// refresh.
func TestRefreshSession_RefusedForBlockedAccount(t *testing.T) {
	accountRepo := new(MockAccountRepo)
	accountSvc := new(MockAccountService)
	authRepo := new(MockAuthRepo)
	acct := activeAccount("hunter-two")
	acct.IsBlocked = true

	authRepo.On("GetAccountIDByRefreshToken", mock.Anything, "old-token").Return(acct.ID, nil)
	accountRepo.On("GetAccountByID", mock.Anything, acct.ID).Return(acct, nil)
	authRepo.On("RevokeAllRefreshTokens", mock.Anything, acct.ID).Return(nil)

	svc := newTestAuthService(accountRepo, accountSvc, authRepo)
	_, err := svc.RefreshSession(context.Background(), "old-token")

	assert.ErrorIs(t, err, types.ErrForbidden)
	authRepo.AssertCalled(t, "RevokeAllRefreshTokens", mock.Anything, acct.ID)
}

func TestChangePassword_RevokesSessions(t *testing.T) {
	accountRepo := new(MockAccountRepo)
	accountSvc := new(MockAccountService)
	authRepo := new(MockAuthRepo)
	acct := activeAccount("old-password")

	accountRepo.On("GetAccountByID", mock.Anything, acct.ID).Return(acct, nil)
	accountRepo.On("UpdatePassword", mock.Anything, acct.ID, mock.Anything).Return(nil)
	authRepo.On("RevokeAllRefreshTokens", mock.Anything, acct.ID).Return(nil)

	svc := newTestAuthService(accountRepo, accountSvc, authRepo)
	err := svc.ChangePassword(context.Background(), acct.ID, "old-password", "new-password-123")

	assert.NoError(t, err)
	authRepo.AssertExpectations(t)
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	accountRepo := new(MockAccountRepo)
	accountSvc := new(MockAccountService)
	authRepo := new(MockAuthRepo)
	acct := activeAccount("old-password")

	accountRepo.On("GetAccountByID", mock.Anything, acct.ID).Return(acct, nil)

	svc := newTestAuthService(accountRepo, accountSvc, authRepo)
	err := svc.ChangePassword(context.Background(), acct.ID, "not-it", "new-password-123")

	assert.ErrorIs(t, err, types.ErrUnauthenticated)
	accountRepo.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
}
