package handler

import (
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"wayfarer/internal/domain"
	"wayfarer/internal/httputil"
	"wayfarer/internal/service"
)

// RollHandler serves the ad-hoc roll route.
type RollHandler struct {
	rolls  *service.RollService
	logger *slog.Logger
}

// NewRollHandler creates the handler.
func NewRollHandler(rolls *service.RollService, logger *slog.Logger) *RollHandler {
	return &RollHandler{rolls: rolls, logger: logger}
}

type rollDTO struct {
	Expression string `json:"expression"`
	Reason     string `json:"reason"`
	LockOwner  string `json:"lock_owner"`
}

func (d rollDTO) validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Expression, validation.Required, validation.Length(1, 128)),
		validation.Field(&d.Reason, validation.Length(0, 256)),
	)
}

// Roll handles POST /sessions/{slug}/roll
func (h *RollHandler) Roll(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	var dto rollDTO
	if err := httputil.ParseJSON(w, r, &dto); err != nil {
		httputil.RespondErrorMessage(w, "invalid request body")
		return
	}
	if err := dto.validate(); err != nil {
		httputil.RespondErrorMessage(w, err.Error())
		return
	}

	result, err := h.rolls.Roll(r.Context(), &service.RollRequest{
		Slug:       slug,
		Expression: dto.Expression,
		Reason:     dto.Reason,
		LockOwner:  dto.LockOwner,
	})
	if err != nil {
		if domain.Kind(err) == "Internal" {
			h.logger.Error("roll failure", "error", err)
		}
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}
