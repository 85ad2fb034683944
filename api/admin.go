package api

import (
	"net/http"

	"channelpoints/application"
	"channelpoints/domain/entities"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !s.decode(w, r, &req) {
		return
	}

	item := req.toEntity()
	if err := s.services.Redemptions.CreateItem(r.Context(), item); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemResponse(item))
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req transitionRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.services.Redemptions.Transition(r.Context(), id, entities.RedemptionStatus(req.Status), req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transitionResponse{
		Redemption: toRedemptionResponse(result.Redemption),
		OldStatus:  result.OldStatus,
		Refund:     toTransactionResponse(result.Refund),
	})
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	currency, err := entities.ParseCurrency(chi.URLParam(r, "currency"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req adjustRequest
	if !s.decode(w, r, &req) {
		return
	}

	tx, err := s.services.Ledger.Adjust(r.Context(), application.AdjustRequest{
		UserID:      chi.URLParam(r, "user_id"),
		Currency:    currency,
		Operation:   application.AdjustOperation(req.Operation),
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, adjustResponse{Changed: tx != nil, Transaction: toTransactionResponse(tx)})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	currency, err := entities.ParseCurrency(chi.URLParam(r, "currency"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	check, err := s.services.Ledger.Verify(r.Context(), chi.URLParam(r, "user_id"), currency)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{
		UserID:           check.UserID,
		Currency:         check.Currency,
		Balance:          check.Balance,
		TransactionSum:   check.TransactionSum,
		TransactionCount: check.TransactionCount,
		ChainBreaks:      check.ChainBreaks,
		HeadMismatch:     check.HeadMismatch,
		Consistent:       check.Consistent(),
	})
}
