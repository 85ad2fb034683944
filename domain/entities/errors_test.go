package entities

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"validation error", NewValidationError("amount", "must be positive"), ErrorKindValidation},
		{"wrapped invalid amount", fmt.Errorf("failed to credit: %w", ErrInvalidAmount), ErrorKindValidation},
		{"connection not found", ErrConnectionNotFound, ErrorKindNotFound},
		{"insufficient balance", &InsufficientBalanceError{Balance: 5, Required: 10}, ErrorKindConflict},
		{"out of stock", fmt.Errorf("redeem: %w", &OutOfStockError{ItemID: 1}), ErrorKindConflict},
		{"invalid transition", &InvalidTransitionError{From: RedemptionStatusCompleted, To: RedemptionStatusPending}, ErrorKindConflict},
		{"purchase limit", &PurchaseLimitError{Limit: 1}, ErrorKindConflict},
		{"token exchange", NewLinkError(PlatformKick, LinkErrorTokenExchangeFailed, errors.New("timeout")), ErrorKindExternalService},
		{"identity fetch", NewLinkError(PlatformKick, LinkErrorIdentityFetchFailed, nil), ErrorKindExternalService},
		{"already linked", NewLinkError(PlatformTwitch, LinkErrorAlreadyLinked, nil), ErrorKindConflict},
		{"invalid state", NewLinkError(PlatformTwitch, LinkErrorInvalidState, nil), ErrorKindValidation},
		{"unknown", errors.New("connection reset"), ErrorKindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestStructuredErrorsMatchSentinels(t *testing.T) {
	t.Parallel()

	insufficient := &InsufficientBalanceError{UserID: "u1", Currency: CurrencySite, Balance: 50, Required: 100}
	assert.ErrorIs(t, insufficient, ErrInsufficientBalance)
	assert.Contains(t, insufficient.Error(), "have 50, need 100")

	var target *InsufficientBalanceError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", insufficient), &target))
	assert.Equal(t, int64(50), target.Balance)

	outOfStock := &OutOfStockError{ItemID: 7, Available: 0, Requested: 1}
	assert.ErrorIs(t, outOfStock, ErrOutOfStock)
	assert.NotErrorIs(t, outOfStock, ErrInsufficientBalance)

	cause := errors.New("oauth2: server response 500")
	linkErr := NewLinkError(PlatformKick, LinkErrorTokenExchangeFailed, cause)
	assert.ErrorIs(t, linkErr, cause)
	assert.Contains(t, linkErr.Error(), "token_exchange_failed")
}
