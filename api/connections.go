package api

import (
	"errors"
	"net/http"

	"channelpoints/application"
	"channelpoints/domain/entities"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

func (s *Server) handleBeginLink(w http.ResponseWriter, r *http.Request) {
	platform, err := entities.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req linkRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}

	authorizeURL, err := s.services.Connections.BeginLink(r.Context(), userIDFrom(r.Context()), platform, req.ReturnURL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, linkResponse{AuthorizeURL: authorizeURL})
}

// handleCallback always redirects the browser back to the app; the outcome
// travels in the query string.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	platform, err := entities.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	query := r.URL.Query()
	redirect, err := s.services.Connections.CompleteLink(r.Context(), platform, application.CallbackParams{
		Code:  query.Get("code"),
		State: query.Get("state"),
		Error: query.Get("error"),
	})
	if redirect == "" {
		if err == nil {
			err = errors.New("link flow produced no redirect")
		}
		writeError(w, r, err)
		return
	}
	if err != nil {
		log.WithError(err).WithField("platform", platform).Debug("Redirecting failed link attempt")
	}

	http.Redirect(w, r, redirect, http.StatusFound)
}

func (s *Server) handleUnlink(w http.ResponseWriter, r *http.Request) {
	platform, err := entities.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := s.services.Connections.Unlink(r.Context(), userIDFrom(r.Context()), platform); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRefreshConnection makes sure the stored platform token is usable,
// refreshing it through the provider when it has expired
func (s *Server) handleRefreshConnection(w http.ResponseWriter, r *http.Request) {
	platform, err := entities.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := s.services.Connections.ValidToken(r.Context(), userIDFrom(r.Context()), platform); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Platform: platform, TokenValid: true})
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := s.services.Connections.Connections(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]connectionResponse, 0, len(conns))
	for _, conn := range conns {
		resp = append(resp, toConnectionResponse(conn))
	}
	writeJSON(w, http.StatusOK, map[string]any{"connections": resp})
}
