package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/davidorozcoq/mercadito-backend/api/responses"
	"github.com/davidorozcoq/mercadito-backend/api/validators"
	"github.com/davidorozcoq/mercadito-backend/internal/payments"
	"github.com/davidorozcoq/mercadito-backend/pkg/logger"
)

type paymentCallbackRequest struct {
	OrderID     uuid.UUID `json:"order_id" validate:"required"`
	ProviderRef string    `json:"provider_ref" validate:"required,max=255"`
}

// PaymentCapture is the provider's capture confirmation callback. Redelivery
// of the same callback reports the same outcome without a second state change.
func PaymentCapture(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req paymentCallbackRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, req.OrderID.String())
		}

		captured, err := svc.Capture(ctx, req.OrderID, req.ProviderRef)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"captured": captured})
	}
}

// PaymentRefund is the provider's refund confirmation callback.
func PaymentRefund(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req paymentCallbackRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, req.OrderID.String())
		}

		refunded, err := svc.Refund(ctx, req.OrderID, req.ProviderRef)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"refunded": refunded})
	}
}
