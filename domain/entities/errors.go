package entities

import (
	"errors"
	"fmt"
)

// Validation errors
var (
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrUnknownPlatform = errors.New("unknown platform")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidBalance  = errors.New("balance cannot be negative")
)

// Not found errors
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrConnectionNotFound = errors.New("platform connection not found")
	ErrItemNotFound       = errors.New("store item not found")
	ErrRedemptionNotFound = errors.New("redemption not found")
)

// Conflict errors
var (
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrOutOfStock             = errors.New("out of stock")
	ErrItemInactive           = errors.New("store item is not active")
	ErrItemUnavailable        = errors.New("store item is not available at this time")
	ErrCurrencyNotAccepted    = errors.New("currency not accepted for this item")
	ErrPurchaseLimitReached   = errors.New("purchase limit reached for this item")
	ErrInvalidTransition      = errors.New("invalid redemption status transition")
	ErrConcurrentModification = errors.New("account was modified concurrently")
	ErrAlreadyLinked          = errors.New("external account is linked to another user")
)

// InsufficientBalanceError carries the balance that was available when a debit failed
type InsufficientBalanceError struct {
	UserID   string
	Currency Currency
	Balance  int64
	Required int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance for user %s: have %d, need %d", e.Currency, e.UserID, e.Balance, e.Required)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// OutOfStockError carries the stock that was left when a redemption failed
type OutOfStockError struct {
	ItemID    int64
	Available int64
	Requested int64
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("item %d out of stock: %d available, %d requested", e.ItemID, e.Available, e.Requested)
}

func (e *OutOfStockError) Is(target error) bool {
	return target == ErrOutOfStock
}

// PurchaseLimitError carries the per-user limit that blocked a redemption
type PurchaseLimitError struct {
	ItemID    int64
	Limit     int64
	Redeemed  int64
	Requested int64
}

func (e *PurchaseLimitError) Error() string {
	return fmt.Sprintf("purchase limit for item %d is %d, already redeemed %d, requested %d", e.ItemID, e.Limit, e.Redeemed, e.Requested)
}

func (e *PurchaseLimitError) Is(target error) bool {
	return target == ErrPurchaseLimitReached
}

// InvalidTransitionError names the rejected status edge
type InvalidTransitionError struct {
	From RedemptionStatus
	To   RedemptionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move redemption from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// LinkErrorCode is the machine-readable reason a link attempt failed
type LinkErrorCode string

const (
	LinkErrorTokenExchangeFailed LinkErrorCode = "token_exchange_failed"
	LinkErrorIdentityFetchFailed LinkErrorCode = "identity_fetch_failed"
	LinkErrorPersistenceFailed   LinkErrorCode = "persistence_failed"
	LinkErrorInvalidState        LinkErrorCode = "invalid_state"
	LinkErrorMissingCode         LinkErrorCode = "missing_code"
	LinkErrorAccessDenied        LinkErrorCode = "access_denied"
	LinkErrorAlreadyLinked       LinkErrorCode = "already_linked"
	LinkErrorPlatformDisabled    LinkErrorCode = "platform_disabled"
)

// LinkError is returned by every failed step of the OAuth linking flow
type LinkError struct {
	Code     LinkErrorCode
	Platform Platform
	Err      error
}

// NewLinkError wraps err with a link failure code
func NewLinkError(platform Platform, code LinkErrorCode, err error) *LinkError {
	return &LinkError{Code: code, Platform: platform, Err: err}
}

func (e *LinkError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s link failed: %s", e.Platform, e.Code)
	}
	return fmt.Sprintf("%s link failed: %s: %v", e.Platform, e.Code, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

// ErrorKind groups errors by how a caller should react to them
type ErrorKind string

const (
	ErrorKindValidation      ErrorKind = "validation"
	ErrorKindNotFound        ErrorKind = "not_found"
	ErrorKindConflict        ErrorKind = "conflict"
	ErrorKindExternalService ErrorKind = "external_service"
	ErrorKindInternal        ErrorKind = "internal"
)

// ValidationError marks malformed input rejected before any mutation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// KindOf classifies err into an ErrorKind
func KindOf(err error) ErrorKind {
	var validationErr *ValidationError
	var linkErr *LinkError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &validationErr),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidCurrency),
		errors.Is(err, ErrUnknownPlatform),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidBalance):
		return ErrorKindValidation
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrConnectionNotFound),
		errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrRedemptionNotFound):
		return ErrorKindNotFound
	case errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrOutOfStock),
		errors.Is(err, ErrItemInactive),
		errors.Is(err, ErrItemUnavailable),
		errors.Is(err, ErrCurrencyNotAccepted),
		errors.Is(err, ErrPurchaseLimitReached),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrConcurrentModification),
		errors.Is(err, ErrAlreadyLinked):
		return ErrorKindConflict
	case errors.As(err, &linkErr):
		switch linkErr.Code {
		case LinkErrorTokenExchangeFailed, LinkErrorIdentityFetchFailed:
			return ErrorKindExternalService
		case LinkErrorAlreadyLinked:
			return ErrorKindConflict
		case LinkErrorPersistenceFailed:
			return ErrorKindInternal
		default:
			return ErrorKindValidation
		}
	}
	return ErrorKindInternal
}
