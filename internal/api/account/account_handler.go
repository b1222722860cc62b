package account

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nepabhay/account-service/internal/api"
	"github.com/nepabhay/account-service/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	// Self-service
	GetOwnAccount(w http.ResponseWriter, r *http.Request)
	Deactivate(w http.ResponseWriter, r *http.Request)
	Reactivate(w http.ResponseWriter, r *http.Request)
	RequestDeletion(w http.ResponseWriter, r *http.Request)
	CancelDeletion(w http.ResponseWriter, r *http.Request)
	DeleteOwnAccount(w http.ResponseWriter, r *http.Request)

	// Administration
	ListAccounts(w http.ResponseWriter, r *http.Request)
	BlockAccount(w http.ResponseWriter, r *http.Request)
	UnblockAccount(w http.ResponseWriter, r *http.Request)
	ActivateAccount(w http.ResponseWriter, r *http.Request)
	DeactivateAccount(w http.ResponseWriter, r *http.Request)
	RequestDeletionForAccount(w http.ResponseWriter, r *http.Request)
	DeleteAccount(w http.ResponseWriter, r *http.Request)
	VerifyEmail(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	accountService AccountService
	logger         *slog.Logger
}

func NewHandlerImpl(accountService AccountService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		accountService: accountService,
		logger:         logger,
	}
}

type deletionRequestBody struct {
	Reason *string `json:"reason,omitempty"`
}

type confirmDeleteBody struct {
	Confirm bool `json:"confirm"`
}

type blockRequestBody struct {
	Reason string `json:"reason"`
}

// lifecycleErrorResponse maps typed lifecycle failures to specific status
// codes and machine-readable reason codes, so a client can tell "you are the
// last admin" apart from a generic failure.
func lifecycleErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *types.ValidationError
	switch {
	case errors.As(err, &valErr):
		api.ErrorResponseWithCode(w, r, http.StatusBadRequest, "VALIDATION_FAILED", valErr.Error())
	case errors.Is(err, types.ErrNotFound):
		api.ErrorResponseWithCode(w, r, http.StatusNotFound, "ACCOUNT_NOT_FOUND", "Account not found")
	case errors.Is(err, types.ErrLastAdmin):
		api.ErrorResponseWithCode(w, r, http.StatusConflict, "LAST_ADMIN", "Refused: at least one administrator account must remain")
	case errors.Is(err, types.ErrCannotBlockAdmin):
		api.ErrorResponseWithCode(w, r, http.StatusConflict, "CANNOT_BLOCK_ADMIN", "Administrator accounts cannot be blocked")
	case errors.Is(err, types.ErrCannotSelfBlock):
		api.ErrorResponseWithCode(w, r, http.StatusConflict, "CANNOT_SELF_BLOCK", "You cannot block your own account")
	case errors.Is(err, types.ErrAccountBlocked):
		api.ErrorResponseWithCode(w, r, http.StatusConflict, "ACCOUNT_BLOCKED", "Account is blocked; contact support")
	case errors.Is(err, types.ErrDeletionPending):
		api.ErrorResponseWithCode(w, r, http.StatusConflict, "ACCOUNT_DELETION_REQUESTED", "Account has a pending deletion request; cancel it first")
	case errors.Is(err, types.ErrNotBlocked):
		api.ErrorResponseWithCode(w, r, http.StatusConflict, "ACCOUNT_NOT_BLOCKED", "Account is not blocked")
	case errors.Is(err, types.ErrNoDeletionPending):
		api.ErrorResponseWithCode(w, r, http.StatusConflict, "NO_DELETION_PENDING", "Account has no pending deletion request")
	default:
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Action failed")
	}
}

func (h *HandlerImpl) ownAccountID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userIDStr, ok := api.GetUserIDFromContext(r.Context())
	if !ok || userIDStr == "" {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return uuid.Nil, false
	}
	return userID, true
}

func (h *HandlerImpl) targetAccountID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid account ID format")
		return uuid.Nil, false
	}
	return id, true
}

// GetOwnAccount godoc
// @Summary      Get Own Account
// @Description  Returns the authenticated owner's account record including lifecycle state.
// @Tags         Account
// @Produce      json
// @Success      200 {object} types.Account
// @Failure      401 {object} types.Response "Unauthorized"
// @Failure      404 {object} types.Response "Account Not Found"
// @Security     BearerAuth
// @Router       /account [get]
func (h *HandlerImpl) GetOwnAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.ownAccountID(w, r)
	if !ok {
		return
	}

	acct, err := h.accountService.GetAccount(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to fetch own account", slog.Any("error", err))
		lifecycleErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, acct)
}

// Deactivate godoc
// @Summary      Deactivate Own Account
// @Description  Voluntarily deactivates the authenticated owner's account. Reversible by reactivation.
// @Tags         Account
// @Produce      json
// @Success      200 {object} types.Response
// @Failure      401 {object} types.Response "Unauthorized"
// @Security     BearerAuth
// @Router       /account/deactivate [post]
func (h *HandlerImpl) Deactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.ownAccountID(w, r)
	if !ok {
		return
	}

	if _, err := h.accountService.Deactivate(ctx, userID); err != nil {
		lifecycleErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Account deactivated",
	})
}

// Reactivate godoc
// @Summary      Reactivate Own Account
// @Description  Restores a deactivated account. Refused with a specific reason if the account is blocked or mid-deletion.
// @Tags         Account
// @Produce      json
// @Success      200 {object} types.Response
// @Failure      409 {object} types.Response "Blocked or Deletion Pending"
// @Security     BearerAuth
// @Router       /account/reactivate [post]
func (h *HandlerImpl) Reactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.ownAccountID(w, r)
	if !ok {
		return
	}

	if _, err := h.accountService.Reactivate(ctx, userID); err != nil {
		lifecycleErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Account reactivated",
	})
}

// RequestDeletion godoc
// @Summary      Request Account Deletion
// @Description  Starts the 30-day deletion grace period for the authenticated owner's account.
// @Tags         Account
// @Accept       json
// @Produce      json
// @Success      200 {object} types.Account
// @Failure      409 {object} types.Response "Last Admin"
// @Security     BearerAuth
// @Router       /account/delete-request [post]
func (h *HandlerImpl) RequestDeletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.ownAccountID(w, r)
	if !ok {
		return
	}

	var body deletionRequestBody
	if r.ContentLength > 0 {
		if err := api.DecodeJSONBody(w, r, &body); err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	acct, err := h.accountService.RequestDeletion(ctx, userID, body.Reason)
	if err != nil {
		lifecycleErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, acct)
}

// CancelDeletion godoc
// @Summary      Cancel Account Deletion
// @Description  Cancels a pending deletion request inside the grace period.
// @Tags         Account
// @Produce      json
// @Success      200 {object} types.Response
// @Failure      409 {object} types.Response "No Deletion Pending"
// @Security     BearerAuth
// @Router       /account/delete-cancel [post]
func (h *HandlerImpl) CancelDeletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.ownAccountID(w, r)
	if !ok {
		return
	}

	if _, err := h.accountService.CancelDeletion(ctx, userID); err != nil {
		lifecycleErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Deletion request cancelled",
	})
}

// DeleteOwnAccount godoc
// @Summary      Permanently Delete Own Account
// @Description  Immediately and irreversibly deletes the account, bypassing the grace period. Requires explicit confirmation.
// @Tags         Account
// @Accept       json
// @Produce      json
// @Success      204 "Deleted"
// @Failure      400 {object} types.Response "Missing Confirmation"
// @Failure      409 {object} types.Response "Last Admin"
// @Security     BearerAuth
// @Router       /account [delete]
func (h *HandlerImpl) DeleteOwnAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.ownAccountID(w, r)
	if !ok {
		return
	}

	var body confirmDeleteBody
	if err := api.DecodeJSONBody(w, r, &body); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if !body.Confirm {
		api.ErrorResponseWithCode(w, r, http.StatusBadRequest, "CONFIRMATION_REQUIRED",
			"Permanent deletion requires explicit confirmation")
		return
	}

	if _, err := h.accountService.DeleteImmediately(ctx, userID); err != nil {
		lifecycleErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// ListAccounts godoc
// @Summary      List Accounts
// @Description  Administrator listing with typed lifecycle filters.
// @Tags         Admin
// @Produce      json
// @Param        blocked query bool false "Filter by blocked status"
// @Param        active query bool false "Filter by active status"
// @Param        deletion_pending query bool false "Filter by pending deletion request"
// @Success      200 {array} types.Account
// @Security     BearerAuth
// @Router       /admin/accounts [get]
func (h *HandlerImpl) ListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := NewAccountQuery()
	params := r.URL.Query()
	if v := params.Get("blocked"); v != "" {
		q = q.ByBlocked(v == "true")
	}
	if v := params.Get("active"); v != "" {
		q = q.ByActive(v == "true")
	}
	if v := params.Get("deletion_pending"); v != "" {
		q = q.ByDeletionPending(v == "true")
	}

	accounts, err := h.accountService.ListAccounts(ctx, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list accounts", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list accounts")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, accounts)
}

// BlockAccount godoc
// @Summary      Block Account
// @Description  Imposes an administrator lock on a non-admin account. Requires a reason.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        accountID path string true "Account ID"
// @Success      200 {object} types.Account
// @Failure      409 {object} types.Response "Cannot Block Admin / Cannot Self-Block"
// @Security     BearerAuth
// @Router       /admin/accounts/{accountID}/block [post]
func (h *HandlerImpl) BlockAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adminID, ok := h.ownAccountID(w, r)
	if !ok {
		return
	}
	targetID, ok := h.targetAccountID(w, r)
	if !ok {
		return
	}

	var body blockRequestBody
	if err := api.DecodeJSONBody(w, r, &body); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	acct, err := h.accountService.Block(ctx, targetID, adminID, body.Reason)
	if err != nil {
		lifecycleErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, acct)
}

func (h *HandlerImpl) UnblockAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	targetID, ok := h.targetAccountID(w, r)
	if !ok {
		return
	}

	acct, err := h.accountService.Unblock(ctx, targetID)
	if err != nil {
		lifecycleErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, acct)
}

func (h *HandlerImpl) ActivateAccount(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *HandlerImpl) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *HandlerImpl) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	ctx := r.Context()
	targetID, ok := h.targetAccountID(w, r)
	if !ok {
		return
	}

	acct, err := h.accountService.SetActiveByAdmin(ctx, targetID, active)
	if err != nil {
		lifecycleErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, acct)
}

func (h *HandlerImpl) RequestDeletionForAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	targetID, ok := h.targetAccountID(w, r)
	if !ok {
		return
	}

	var body deletionRequestBody
	if r.ContentLength > 0 {
		if err := api.DecodeJSONBody(w, r, &body); err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	acct, err := h.accountService.RequestDeletion(ctx, targetID, body.Reason)
	if err != nil {
		lifecycleErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, acct)
}

// VerifyEmail marks the target account's email as confirmed. Nepa:Bhay
// moderators use this when verification mail never arrives.
func (h *HandlerImpl) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	targetID, ok := h.targetAccountID(w, r)
	if !ok {
		return
	}

	if err := h.accountService.MarkEmailVerified(ctx, targetID); err != nil {
		lifecycleErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Email marked as verified",
	})
}

// DeleteAccount godoc
// @Summary      Permanently Delete Account
// @Description  Administrator hard-delete, bypassing the grace period.
// @Tags         Admin
// @Produce      json
// @Param        accountID path string true "Account ID"
// @Success      204 "Deleted"
// @Failure      409 {object} types.Response "Last Admin"
// @Security     BearerAuth
// @Router       /admin/accounts/{accountID} [delete]
func (h *HandlerImpl) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	targetID, ok := h.targetAccountID(w, r)
	if !ok {
		return
	}

	if _, err := h.accountService.DeleteImmediately(ctx, targetID); err != nil {
		lifecycleErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}
