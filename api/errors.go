package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"channelpoints/domain/entities"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

// ErrorBody is the payload of every failed request
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure
type ErrorDetail struct {
	Kind    entities.ErrorKind `json:"kind"`
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Details map[string]any     `json:"details,omitempty"`
}

var statusByKind = map[entities.ErrorKind]int{
	entities.ErrorKindValidation:      http.StatusBadRequest,
	entities.ErrorKindNotFound:        http.StatusNotFound,
	entities.ErrorKindConflict:        http.StatusConflict,
	entities.ErrorKindExternalService: http.StatusBadGateway,
	entities.ErrorKindInternal:        http.StatusInternalServerError,
}

var codeBySentinel = []struct {
	err  error
	code string
}{
	{entities.ErrInvalidAmount, "invalid_amount"},
	{entities.ErrInvalidCurrency, "invalid_currency"},
	{entities.ErrUnknownPlatform, "unknown_platform"},
	{entities.ErrInvalidQuantity, "invalid_quantity"},
	{entities.ErrInvalidBalance, "invalid_balance"},
	{entities.ErrAccountNotFound, "account_not_found"},
	{entities.ErrConnectionNotFound, "connection_not_found"},
	{entities.ErrItemNotFound, "item_not_found"},
	{entities.ErrRedemptionNotFound, "redemption_not_found"},
	{entities.ErrInsufficientBalance, "insufficient_balance"},
	{entities.ErrOutOfStock, "out_of_stock"},
	{entities.ErrItemInactive, "item_inactive"},
	{entities.ErrItemUnavailable, "item_unavailable"},
	{entities.ErrCurrencyNotAccepted, "currency_not_accepted"},
	{entities.ErrPurchaseLimitReached, "purchase_limit_reached"},
	{entities.ErrInvalidTransition, "invalid_transition"},
	{entities.ErrConcurrentModification, "concurrent_modification"},
	{entities.ErrAlreadyLinked, "already_linked"},
}

// describeError converts err into a status code and response body
func describeError(err error) (int, ErrorDetail) {
	kind := entities.KindOf(err)
	detail := ErrorDetail{
		Kind:    kind,
		Code:    string(kind),
		Message: err.Error(),
	}

	var (
		validationErr *entities.ValidationError
		linkErr       *entities.LinkError
		balanceErr    *entities.InsufficientBalanceError
		stockErr      *entities.OutOfStockError
		limitErr      *entities.PurchaseLimitError
		transitionErr *entities.InvalidTransitionError
	)

	switch {
	case errors.As(err, &validationErr):
		detail.Code = "invalid_request"
		if validationErr.Field != "" {
			detail.Details = map[string]any{"field": validationErr.Field}
		}
	case errors.As(err, &balanceErr):
		detail.Details = map[string]any{
			"currency": balanceErr.Currency,
			"balance":  balanceErr.Balance,
			"required": balanceErr.Required,
		}
	case errors.As(err, &stockErr):
		detail.Details = map[string]any{
			"item_id":   stockErr.ItemID,
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		}
	case errors.As(err, &limitErr):
		detail.Details = map[string]any{
			"item_id":   limitErr.ItemID,
			"limit":     limitErr.Limit,
			"redeemed":  limitErr.Redeemed,
			"requested": limitErr.Requested,
		}
	case errors.As(err, &transitionErr):
		detail.Details = map[string]any{
			"from": transitionErr.From,
			"to":   transitionErr.To,
		}
	case errors.As(err, &linkErr):
		detail.Code = string(linkErr.Code)
	}

	if detail.Code == string(kind) || detail.Code == "" {
		for _, s := range codeBySentinel {
			if errors.Is(err, s.err) {
				detail.Code = s.code
				break
			}
		}
	}

	// Internal messages can carry SQL or driver detail
	if kind == entities.ErrorKindInternal {
		detail.Message = "internal server error"
		detail.Code = "internal"
	}

	return statusByKind[kind], detail
}

// writeError renders err as a structured error response
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := describeError(err)

	entry := log.WithError(err).WithFields(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
		"kind":   detail.Kind,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	writeJSON(w, status, ErrorBody{Error: detail})
}

// writeValidationError renders validator failures field by field
func writeValidationError(w http.ResponseWriter, err error) {
	details := map[string]any{}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, fe := range validationErrs {
			details[fe.Field()] = "failed on the '" + fe.Tag() + "' rule"
		}
	}

	writeJSON(w, http.StatusBadRequest, ErrorBody{Error: ErrorDetail{
		Kind:    entities.ErrorKindValidation,
		Code:    "invalid_request",
		Message: "request validation failed",
		Details: details,
	}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("Failed to write response body")
	}
}
