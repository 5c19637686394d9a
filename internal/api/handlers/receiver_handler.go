package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"leadflow/internal/engine/ingest"
	apierrors "leadflow/internal/pkg/errors"
	"leadflow/internal/platform/observability"
)

// 1 MiB is generous for a form submission payload
const maxPayloadBytes = 1 << 20

type ReceiverHandler struct {
	receiver *ingest.Receiver
}

func NewReceiverHandler(receiver *ingest.Receiver) *ReceiverHandler {
	return &ReceiverHandler{receiver: receiver}
}

// Handle is the public ingestion endpoint. The secret travels as a query
// parameter or X-Webhook-Secret header; callers are third-party platforms,
// so no bearer auth applies here.
func (h *ReceiverHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key := param(r, "key")

	secret := r.URL.Query().Get("secret")
	if secret == "" {
		secret = r.Header.Get("X-Webhook-Secret")
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Unable to read request body", nil)
		return
	}

	lead, err := h.receiver.Receive(r.Context(), key, body, secret)
	observability.IngestLatency.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"status":  "success",
			"lead_id": lead.ID,
		})
	case errors.Is(err, ingest.ErrEndpointNotFound):
		apierrors.WriteError(w, http.StatusNotFound, apierrors.ErrCodeNotFound, "Webhook endpoint not found", nil)
	case errors.Is(err, ingest.ErrEndpointDisabled):
		apierrors.WriteError(w, http.StatusForbidden, apierrors.ErrCodeForbidden, "Webhook endpoint is disabled", nil)
	case errors.Is(err, ingest.ErrInvalidSecret):
		apierrors.WriteError(w, http.StatusUnauthorized, apierrors.ErrCodeUnauthorized, "Invalid webhook secret", nil)
	case errors.Is(err, ingest.ErrInvalidPayload):
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Request body is not valid JSON", nil)
	default:
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Failed to process webhook", nil)
	}
}
