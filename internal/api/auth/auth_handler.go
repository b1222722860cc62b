package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/markbates/goth/gothic"
	"github.com/patrickmn/go-cache"

	"github.com/nepabhay/account-service/internal/api"
	"github.com/nepabhay/account-service/internal/api/account"
	"github.com/nepabhay/account-service/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Check(w http.ResponseWriter, r *http.Request)
	RefreshSession(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	ChangePassword(w http.ResponseWriter, r *http.Request)
	SocialLogin(w http.ResponseWriter, r *http.Request)
	SocialCallback(w http.ResponseWriter, r *http.Request)
}

// loginLimiter throttles repeated failed logins per email. Entries expire on
// their own; a successful login clears the counter early.
type loginLimiter struct {
	attempts *cache.Cache
	max      int
}

func newLoginLimiter(window time.Duration, max int) *loginLimiter {
	if max <= 0 {
		max = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &loginLimiter{
		attempts: cache.New(window, 2*window),
		max:      max,
	}
}

func (l *loginLimiter) allowed(email string) bool {
	count, found := l.attempts.Get(email)
	return !found || count.(int) < l.max
}

func (l *loginLimiter) recordFailure(email string) {
	if _, err := l.attempts.IncrementInt(email, 1); err != nil {
		l.attempts.SetDefault(email, 1)
	}
}

func (l *loginLimiter) reset(email string) {
	l.attempts.Delete(email)
}

type HandlerImpl struct {
	authService    AuthService
	accountService account.AccountService
	limiter        *loginLimiter
	logger         *slog.Logger
}

func NewHandlerImpl(authService AuthService, accountService account.AccountService, attemptWindow time.Duration, maxAttempts int, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		authService:    authService,
		accountService: accountService,
		limiter:        newLoginLimiter(attemptWindow, maxAttempts),
		logger:         logger,
	}
}

// Register godoc
// @Summary      Register Account
// @Description  Creates a new account with the reader role.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body types.RegisterRequest true "Registration details"
// @Success      201 {object} types.Account
// @Failure      400 {object} types.Response "Validation Failed"
// @Failure      409 {object} types.Response "Username or Email Taken"
// @Router       /auth/register [post]
func (h *HandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req types.RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	acct, err := h.authService.Register(ctx, req)
	if err != nil {
		var valErr *types.ValidationError
		switch {
		case errors.As(err, &valErr):
			api.ErrorResponseWithCode(w, r, http.StatusBadRequest, "VALIDATION_FAILED", valErr.Error())
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponseWithCode(w, r, http.StatusConflict, "ALREADY_TAKEN", "Username or email is already taken")
		default:
			h.logger.ErrorContext(ctx, "Registration failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Registration failed")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, acct)
}

// Login godoc
// @Summary      Login
// @Description  Classifies the account state, verifies credentials, and issues a token pair. Deactivated accounts may log in and are told how to reactivate.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body types.LoginRequest true "Credentials"
// @Success      200 {object} types.LoginResponse
// @Failure      401 {object} types.Response "Invalid Credentials"
// @Failure      403 {object} types.LoginResponse "Account Restricted"
// @Failure      429 {object} types.Response "Too Many Attempts"
// @Router       /auth/login [post]
func (h *HandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req types.LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if !h.limiter.allowed(email) {
		h.logger.WarnContext(ctx, "Login throttled", slog.String("email", email))
		api.ErrorResponseWithCode(w, r, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS",
			"Too many failed login attempts; try again later")
		return
	}

	resp, err := h.authService.Login(ctx, email, req.Password)
	if err != nil {
		// Only credential failures count against the limiter; a blocked or
		// deletion-pending owner keeps getting the specific refusal rather
		// than an eventual throttle.
		if errors.Is(err, types.ErrUnauthenticated) {
			h.limiter.recordFailure(email)
		}
		h.writeLoginRefusal(w, r, resp, err)
		return
	}

	h.limiter.reset(email)
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// Check godoc
// @Summary      Pre-Login Check
// @Description  Classifies an email's account state without credentials, so clients can tailor the login screen. Unknown emails classify as allowed.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body types.CheckRequest true "Email to classify"
// @Success      200 {object} types.LoginDecision
// @Router       /auth/check [post]
func (h *HandlerImpl) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req types.CheckRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	decision := h.accountService.Check(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	api.WriteJSONResponse(w, r, http.StatusOK, decision)
}

func (h *HandlerImpl) RefreshSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req types.RefreshTokenRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	tokens, err := h.authService.RefreshSession(ctx, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrUnauthenticated):
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid or expired refresh token")
		case errors.Is(err, types.ErrForbidden):
			api.ErrorResponseWithCode(w, r, http.StatusForbidden, "SESSION_REVOKED",
				"Session is no longer valid for this account")
		default:
			h.logger.ErrorContext(ctx, "Session refresh failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Session refresh failed")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, tokens)
}

func (h *HandlerImpl) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req types.LogoutRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.Logout(ctx, req.RefreshToken); err != nil {
		if errors.Is(err, types.ErrUnauthenticated) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		h.logger.ErrorContext(ctx, "Logout failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Logout failed")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Message: "Logged out"})
}

func (h *HandlerImpl) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userIDStr, ok := api.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	var req types.ChangePasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.ChangePassword(ctx, userID, req.OldPassword, req.NewPassword); err != nil {
		var valErr *types.ValidationError
		switch {
		case errors.As(err, &valErr):
			api.ErrorResponseWithCode(w, r, http.StatusBadRequest, "VALIDATION_FAILED", valErr.Error())
		case errors.Is(err, types.ErrUnauthenticated):
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Current password is incorrect")
		default:
			h.logger.ErrorContext(ctx, "Password change failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Password change failed")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Message: "Password changed"})
}

// SocialLogin starts the OAuth flow with the provider named in the URL. If a
// provider session already exists the flow short-circuits to the callback
// logic.
func (h *HandlerImpl) SocialLogin(w http.ResponseWriter, r *http.Request) {
	if _, err := gothic.CompleteUserAuth(w, r); err == nil {
		h.SocialCallback(w, r)
		return
	}
	gothic.BeginAuthHandler(w, r)
}

// SocialCallback completes the OAuth flow and issues a local session.
func (h *HandlerImpl) SocialCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	gothUser, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		h.logger.WarnContext(ctx, "Social auth failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Social authentication failed")
		return
	}

	resp, err := h.authService.GetOrCreateAccountFromProvider(ctx, gothUser)
	if err != nil {
		h.writeLoginRefusal(w, r, resp, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// writeLoginRefusal turns a refused login into a response that carries the
// classification, so clients can show "account blocked" rather than "wrong
// password".
func (h *HandlerImpl) writeLoginRefusal(w http.ResponseWriter, r *http.Request, resp *types.LoginResponse, err error) {
	switch {
	case errors.Is(err, types.ErrForbidden) && resp != nil:
		resp.Message = refusalMessage(resp.Decision)
		api.WriteJSONResponse(w, r, http.StatusForbidden, resp)
	case errors.Is(err, types.ErrUnauthenticated):
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid email or password")
	default:
		var valErr *types.ValidationError
		if errors.As(err, &valErr) {
			api.ErrorResponseWithCode(w, r, http.StatusBadRequest, "VALIDATION_FAILED", valErr.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "Login failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Login failed")
	}
}

func refusalMessage(d types.LoginDecision) string {
	switch d.Status {
	case types.StatusBlocked:
		msg := "Your account has been blocked."
		if d.BlockReason != "" {
			msg = fmt.Sprintf("Your account has been blocked: %s.", d.BlockReason)
		}
		return msg + " Contact support if you believe this is a mistake."
	case types.StatusDeletionRequested:
		return "Your account is scheduled for deletion. Cancel the deletion request to regain access."
	case types.StatusEmailUnverified:
		return "Please verify your email address before logging in."
	default:
		return "Login is not possible for this account right now."
	}
}
