package api

import (
	"errors"
	"io"
	"net/http"

	"channelpoints/application"
	"channelpoints/domain/entities"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

// handleWebhook ingests one platform delivery. Providers only look at the status
// code, so the shapes here stay flat.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	platform, err := entities.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, webhookError{Error: "Unknown platform"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, webhookError{Error: "Payload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, webhookError{Error: "Unreadable body"})
		return
	}

	title := platform.Title()
	result, err := s.services.Webhooks.Ingest(r.Context(), platform, application.WebhookDelivery{
		Body:       body,
		Signature:  r.Header.Get("X-" + title + "-Signature"),
		DeliveryID: r.Header.Get("X-" + title + "-Delivery"),
	})
	if errors.Is(err, entities.ErrUnknownPlatform) {
		writeJSON(w, http.StatusNotFound, webhookError{Error: "Unknown platform"})
		return
	}
	if err != nil {
		log.WithError(err).WithField("platform", platform).Error("Webhook processing failed")
		writeJSON(w, http.StatusInternalServerError, webhookError{Error: "Internal server error"})
		return
	}

	switch result.Outcome {
	case entities.IngestOutcomeRejected:
		if result.Reason == entities.ReasonInvalidSignature {
			writeJSON(w, http.StatusUnauthorized, webhookError{Error: "Invalid signature"})
			return
		}
		writeJSON(w, http.StatusBadRequest, webhookError{Error: result.Message})
	case entities.IngestOutcomeFailed:
		writeJSON(w, http.StatusOK, webhookResponse{Success: false, Message: result.Message})
	default:
		writeJSON(w, http.StatusOK, webhookResponse{Success: true})
	}
}
