package api

import (
	"net/http"

	"channelpoints/domain/entities"
	"channelpoints/domain/interfaces"
)

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.services.Redemptions.ListItems(r.Context(), true)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]itemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toItemResponse(item))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": resp})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := s.services.Redemptions.GetItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req redeemRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	receipt, err := s.services.Redemptions.Redeem(r.Context(), interfaces.RedeemRequest{
		UserID:   userIDFrom(r.Context()),
		ItemID:   id,
		Currency: entities.Currency(req.Currency),
		Quantity: req.Quantity,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReceiptResponse(receipt))
}

func (s *Server) handleListRedemptions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	redemptions, err := s.services.Redemptions.ListUserRedemptions(r.Context(), userIDFrom(r.Context()), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]redemptionResponse, 0, len(redemptions))
	for _, redemption := range redemptions {
		resp = append(resp, toRedemptionResponse(redemption))
	}
	writeJSON(w, http.StatusOK, map[string]any{"redemptions": resp})
}
