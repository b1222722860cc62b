package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nepabhay/account-service/internal/types"
)

// MockAuthService is a mock implementation of the AuthService interface
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, req types.RegisterRequest) (*types.Account, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*types.LoginResponse, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.LoginResponse), args.Error(1)
}

func (m *MockAuthService) RefreshSession(ctx context.Context, refreshToken string) (*types.TokenResponse, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TokenResponse), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, accountID uuid.UUID, oldPassword, newPassword string) error {
	args := m.Called(ctx, accountID, oldPassword, newPassword)
	return args.Error(0)
}

func (m *MockAuthService) GetOrCreateAccountFromProvider(ctx context.Context, gothUser goth.User) (*types.LoginResponse, error) {
	args := m.Called(ctx, gothUser)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.LoginResponse), args.Error(1)
}

func loginRequest(email, password string) *http.Request {
	body, _ := json.Marshal(types.LoginRequest{Email: email, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestLoginHandler_ThrottlesRepeatedCredentialFailures(t *testing.T) {
	authSvc := new(MockAuthService)
	authSvc.On("Login", mock.Anything, "maya@example.com", "wrong").
		Return(nil, fmt.Errorf("invalid email or password: %w", types.ErrUnauthenticated))

	handler := NewHandlerImpl(authSvc, new(MockAccountService), 15*time.Minute, 3, slog.Default())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.Login(rec, loginRequest("maya@example.com", "wrong"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.Login(rec, loginRequest("maya@example.com", "wrong"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	// The fourth attempt never reaches the service.
	authSvc.AssertNumberOfCalls(t, "Login", 3)
}

// A blocked owner retrying must keep getting the specific refusal; state
// refusals are not credential failures and never trip the throttle.
func TestLoginHandler_ClassificationRefusalNotThrottled(t *testing.T) {
	authSvc := new(MockAuthService)
	authSvc.On("Login", mock.Anything, "maya@example.com", "whatever").
		Return(&types.LoginResponse{Decision: types.DecisionBlocked("spam")},
			fmt.Errorf("login refused: %w", types.ErrForbidden))

	handler := NewHandlerImpl(authSvc, new(MockAccountService), 15*time.Minute, 2, slog.Default())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.Login(rec, loginRequest("maya@example.com", "whatever"))
		assert.Equal(t, http.StatusForbidden, rec.Code)

		var resp types.LoginResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, types.StatusBlocked, resp.Decision.Status)
	}
	authSvc.AssertNumberOfCalls(t, "Login", 5)
}

func TestLoginHandler_SuccessResetsCounter(t *testing.T) {
	authSvc := new(MockAuthService)
	authSvc.On("Login", mock.Anything, "maya@example.com", "wrong").
		Return(nil, fmt.Errorf("invalid email or password: %w", types.ErrUnauthenticated))
	authSvc.On("Login", mock.Anything, "maya@example.com", "right").
		Return(&types.LoginResponse{AccessToken: "token", Decision: types.DecisionAllowed()}, nil)

	handler := NewHandlerImpl(authSvc, new(MockAccountService), 15*time.Minute, 3, slog.Default())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.Login(rec, loginRequest("maya@example.com", "wrong"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.Login(rec, loginRequest("maya@example.com", "right"))
	assert.Equal(t, http.StatusOK, rec.Code)

	// The slate is clean again after the successful login.
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.Login(rec, loginRequest("maya@example.com", "wrong"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}
