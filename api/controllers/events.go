package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/davidorozcoq/mercadito-backend/api/responses"
	"github.com/davidorozcoq/mercadito-backend/api/validators"
	"github.com/davidorozcoq/mercadito-backend/internal/events"
	"github.com/davidorozcoq/mercadito-backend/pkg/logger"
)

type eventBatchRequest struct {
	Events []events.EventDraft `json:"events" validate:"required,min=1"`
}

type eventBatchResponse struct {
	Inserted int         `json:"inserted"`
	IDs      []uuid.UUID `json:"ids,omitempty"`
}

// maxEchoedIDs caps how many generated ids the ingest response echoes back.
const maxEchoedIDs = 5

// EventIngest appends a batch of ledger entries. The whole batch commits or
// none of it does.
func EventIngest(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req eventBatchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ids, err := svc.InsertBatch(r.Context(), req.Events)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := eventBatchResponse{Inserted: len(ids), IDs: ids}
		if len(resp.IDs) > maxEchoedIDs {
			resp.IDs = resp.IDs[:maxEchoedIDs]
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, resp)
	}
}

// EventsByOrder lists the ledger entries recorded against one order, ordered
// by when they occurred.
func EventsByOrder(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseQueryUUID(r, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListByOrderID(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"events": rows})
	}
}
