package api

import (
	"net/http"
	"strconv"

	"channelpoints/domain/entities"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	balances, err := s.services.Ledger.Balances(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balancesResponse{UserID: userID, Balances: balances})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	currency, err := entities.ParseCurrency(chi.URLParam(r, "currency"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	history, err := s.services.Ledger.History(r.Context(), userIDFrom(r.Context()), currency, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]*transactionResponse, 0, len(history))
	for _, tx := range history {
		resp = append(resp, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": resp})
}

// queryLimit reads ?limit=, zero when absent
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, entities.NewValidationError("limit", "limit must be a non-negative integer")
	}
	return limit, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, entities.NewValidationError(name, name+" must be a positive integer")
	}
	return id, nil
}
