package sweep

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/nepabhay/account-service/internal/api"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	TriggerSweep(w http.ResponseWriter, r *http.Request)
}

// HandlerImpl exposes the manual sweep trigger for operators. The endpoint is
// gated by a shared API key rather than a user session.
type HandlerImpl struct {
	sweepService SweepService
	apiKey       string
	logger       *slog.Logger
}

func NewHandlerImpl(sweepService SweepService, apiKey string, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		sweepService: sweepService,
		apiKey:       apiKey,
		logger:       logger,
	}
}

// TriggerSweep godoc
// @Summary      Trigger Retention Sweep
// @Description  Runs the retention sweep immediately and returns its report. Requires the internal API key.
// @Tags         Internal
// @Produce      json
// @Param        X-API-Key header string true "Internal API key"
// @Success      200 {object} types.SweepReport
// @Failure      401 {object} types.Response "Invalid API Key"
// @Router       /internal/sweep [post]
func (h *HandlerImpl) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.apiKey == "" {
		api.ErrorResponse(w, r, http.StatusServiceUnavailable, "Manual sweep trigger is not configured")
		return
	}
	key := r.Header.Get("X-API-Key")
	if subtle.ConstantTimeCompare([]byte(key), []byte(h.apiKey)) != 1 {
		h.logger.WarnContext(ctx, "Sweep trigger rejected: bad API key")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid API key")
		return
	}

	report, err := h.sweepService.RunSweep(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Manual sweep run failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Sweep run failed")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, report)
}
