package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/crypto/bcrypt"

	"github.com/nepabhay/account-service/app/observability/metrics"
	"github.com/nepabhay/account-service/config"
	"github.com/nepabhay/account-service/internal/api/account"
	"github.com/nepabhay/account-service/internal/types"
)

// Ensure implementation satisfies the interface
var _ AuthService = (*AuthServiceImpl)(nil)

type AuthService interface {
	Register(ctx context.Context, req types.RegisterRequest) (*types.Account, error)

	// Login classifies the account state before any credential check; a
	// blocked or deletion-pending account is refused without revealing
	// whether the password was correct. A deactivated account may log in
	// and the response tells the client to offer reactivation.
	Login(ctx context.Context, email, password string) (*types.LoginResponse, error)

	RefreshSession(ctx context.Context, refreshToken string) (*types.TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	ChangePassword(ctx context.Context, accountID uuid.UUID, oldPassword, newPassword string) error
	GetOrCreateAccountFromProvider(ctx context.Context, gothUser goth.User) (*types.LoginResponse, error)
}

type AuthServiceImpl struct {
	logger         *slog.Logger
	accountRepo    account.AccountRepo
	accountService account.AccountService
	authRepo       AuthRepo
	jwtCfg         config.JWTConfig
}

func NewAuthService(accountRepo account.AccountRepo, accountService account.AccountService, authRepo AuthRepo, jwtCfg config.JWTConfig, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger:         logger,
		accountRepo:    accountRepo,
		accountService: accountService,
		authRepo:       authRepo,
		jwtCfg:         jwtCfg,
	}
}

func (s *AuthServiceImpl) Register(ctx context.Context, req types.RegisterRequest) (*types.Account, error) {
	l := s.logger.With(slog.String("method", "Register"), slog.String("email", req.Email))

	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	acct, err := s.accountRepo.CreateAccount(ctx, types.CreateAccountParams{
		Username:     req.Username,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		Role:         types.RoleReader,
	})
	if err != nil {
		l.WarnContext(ctx, "Registration failed", slog.Any("error", err))
		return nil, fmt.Errorf("error registering account: %w", err)
	}

	l.InfoContext(ctx, "Account registered", slog.String("accountID", acct.ID.String()))
	return acct, nil
}

func validateRegistration(req types.RegisterRequest) error {
	fields := make(map[string]string)
	if strings.TrimSpace(req.Username) == "" {
		fields["username"] = "username is required"
	}
	if !strings.Contains(req.Email, "@") {
		fields["email"] = "a valid email address is required"
	}
	if len(req.Password) < 8 {
		fields["password"] = "password must be at least 8 characters"
	}
	if len(fields) > 0 {
		return types.NewValidationError(fields)
	}
	return nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*types.LoginResponse, error) {
	l := s.logger.With(slog.String("method", "Login"), slog.String("email", email))
	email = strings.ToLower(strings.TrimSpace(email))

	decision := s.accountService.Check(ctx, email)
	if !decision.AllowLogin {
		l.WarnContext(ctx, "Login refused before credential check",
			slog.String("status", string(decision.Status)))
		s.recordRefusal(ctx, decision)
		return &types.LoginResponse{Decision: decision},
			fmt.Errorf("login refused: %w", types.ErrForbidden)
	}

	acct, err := s.accountRepo.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("invalid email or password: %w", types.ErrUnauthenticated)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		l.WarnContext(ctx, "Password mismatch")
		return nil, fmt.Errorf("invalid email or password: %w", types.ErrUnauthenticated)
	}

	if err := s.accountRepo.UpdateLastLogin(ctx, acct.ID); err != nil {
		// Not worth failing the login over.
		l.WarnContext(ctx, "Failed to record last login", slog.Any("error", err))
	}

	tokens, err := s.issueSession(ctx, acct)
	if err != nil {
		return nil, err
	}

	resp := &types.LoginResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		Decision:     decision,
	}
	if decision.Status == types.StatusDeactivated {
		resp.Message = "Your account is deactivated. You can reactivate it from your account settings."
	}

	l.InfoContext(ctx, "Login succeeded", slog.String("accountID", acct.ID.String()))
	return resp, nil
}

// RefreshSession rotates the refresh token: the presented token is revoked
// and a new pair is issued. The account state is re-classified so a block or
// deletion request applied mid-session cuts the session short.
func (s *AuthServiceImpl) RefreshSession(ctx context.Context, refreshToken string) (*types.TokenResponse, error) {
	l := s.logger.With(slog.String("method", "RefreshSession"))

	accountID, err := s.authRepo.GetAccountIDByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	acct, err := s.accountRepo.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("session account missing: %w", types.ErrUnauthenticated)
	}

	if acct.IsBlocked || acct.DeletionPending() {
		l.WarnContext(ctx, "Refresh refused for restricted account",
			slog.String("accountID", accountID.String()))
		if revokeErr := s.authRepo.RevokeAllRefreshTokens(ctx, accountID); revokeErr != nil {
			l.ErrorContext(ctx, "Failed to revoke sessions", slog.Any("error", revokeErr))
		}
		return nil, fmt.Errorf("session no longer valid: %w", types.ErrForbidden)
	}

	if err := s.authRepo.RevokeRefreshToken(ctx, refreshToken); err != nil {
		return nil, err
	}
	return s.issueSession(ctx, acct)
}

func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	if err := s.authRepo.RevokeRefreshToken(ctx, refreshToken); err != nil {
		return fmt.Errorf("error revoking session: %w", err)
	}
	return nil
}

func (s *AuthServiceImpl) ChangePassword(ctx context.Context, accountID uuid.UUID, oldPassword, newPassword string) error {
	l := s.logger.With(slog.String("method", "ChangePassword"), slog.String("accountID", accountID.String()))

	if len(newPassword) < 8 {
		return types.NewValidationError(map[string]string{"new_password": "password must be at least 8 characters"})
	}

	acct, err := s.accountRepo.GetAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("error fetching account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(oldPassword)); err != nil {
		return fmt.Errorf("current password incorrect: %w", types.ErrUnauthenticated)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	if err := s.accountRepo.UpdatePassword(ctx, accountID, string(hash)); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}

	// Other devices keep old sessions otherwise.
	if err := s.authRepo.RevokeAllRefreshTokens(ctx, accountID); err != nil {
		l.WarnContext(ctx, "Failed to revoke existing sessions", slog.Any("error", err))
	}

	l.InfoContext(ctx, "Password changed")
	return nil
}

// GetOrCreateAccountFromProvider resolves a social login to a local account,
// creating one on first contact. Provider emails count as verified. The
// resulting account goes through the same state classification as a password
// login.
func (s *AuthServiceImpl) GetOrCreateAccountFromProvider(ctx context.Context, gothUser goth.User) (*types.LoginResponse, error) {
	l := s.logger.With(slog.String("method", "GetOrCreateAccountFromProvider"),
		slog.String("provider", gothUser.Provider))

	acct, err := s.accountRepo.GetAccountByProvider(ctx, gothUser.Provider, gothUser.UserID)
	if err != nil {
		acct, err = s.linkOrCreateFromProvider(ctx, gothUser)
		if err != nil {
			return nil, err
		}
	}

	decision := s.accountService.Check(ctx, acct.Email)
	if !decision.AllowLogin {
		l.WarnContext(ctx, "Social login refused", slog.String("status", string(decision.Status)))
		s.recordRefusal(ctx, decision)
		return &types.LoginResponse{Decision: decision},
			fmt.Errorf("login refused: %w", types.ErrForbidden)
	}

	if err := s.accountRepo.UpdateLastLogin(ctx, acct.ID); err != nil {
		l.WarnContext(ctx, "Failed to record last login", slog.Any("error", err))
	}

	tokens, err := s.issueSession(ctx, acct)
	if err != nil {
		return nil, err
	}

	l.InfoContext(ctx, "Social login succeeded", slog.String("accountID", acct.ID.String()))
	return &types.LoginResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		Decision:     decision,
	}, nil
}

func (s *AuthServiceImpl) linkOrCreateFromProvider(ctx context.Context, gothUser goth.User) (*types.Account, error) {
	email := strings.ToLower(strings.TrimSpace(gothUser.Email))
	if email == "" {
		return nil, types.NewValidationError(map[string]string{"email": "the identity provider returned no email address"})
	}

	acct, err := s.accountRepo.GetAccountByEmail(ctx, email)
	if err != nil {
		username := gothUser.NickName
		if username == "" {
			username = strings.Split(email, "@")[0]
		}

		// Social accounts get an unguessable placeholder password; password
		// login stays impossible until the owner sets one.
		placeholder, err := randomToken()
		if err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(placeholder), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("error hashing placeholder password: %w", err)
		}

		acct, err = s.accountRepo.CreateAccount(ctx, types.CreateAccountParams{
			Username:      username,
			Email:         email,
			PasswordHash:  string(hash),
			Role:          types.RoleReader,
			EmailVerified: true,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating account from provider: %w", err)
		}
	}

	if err := s.accountRepo.LinkProvider(ctx, acct.ID, gothUser.Provider, gothUser.UserID); err != nil {
		return nil, err
	}
	return acct, nil
}

func (s *AuthServiceImpl) issueSession(ctx context.Context, acct *types.Account) (*types.TokenResponse, error) {
	accessToken, err := s.generateAccessToken(acct)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}

	refreshToken, err := randomToken()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(s.jwtCfg.RefreshTokenTTL)
	if err := s.authRepo.StoreRefreshToken(ctx, acct.ID, refreshToken, expiresAt); err != nil {
		return nil, err
	}

	return &types.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *AuthServiceImpl) generateAccessToken(acct *types.Account) (string, error) {
	now := time.Now()
	claims := types.Claims{
		UserID:   acct.ID.String(),
		Username: acct.Username,
		Email:    acct.Email,
		Role:     string(acct.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.jwtCfg.Issuer,
			Audience:  jwt.ClaimStrings{s.jwtCfg.Audience},
			Subject:   acct.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtCfg.AccessTokenTTL)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtCfg.SecretKey))
}

func (s *AuthServiceImpl) recordRefusal(ctx context.Context, decision types.LoginDecision) {
	metrics.Get().LoginRefusedTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", string(decision.Status))))
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("error generating token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
