package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/davidorozcoq/mercadito-backend/api/responses"
	"github.com/davidorozcoq/mercadito-backend/api/validators"
	"github.com/davidorozcoq/mercadito-backend/internal/escrow"
	"github.com/davidorozcoq/mercadito-backend/pkg/logger"
)

type escrowStepRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
	Step    string    `json:"step" validate:"required,max=100"`
	Result  string    `json:"result" validate:"omitempty,oneof=success failure"`
}

// EscrowStep records one audit fact against the order's escrow and mirrors it
// into the event ledger.
func EscrowStep(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req escrowStepRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, req.OrderID.String())
		}

		if err := svc.EmitStep(ctx, req.OrderID, req.Step, req.Result); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]bool{"ok": true})
	}
}
