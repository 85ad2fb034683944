package entities

import (
	"errors"
	"time"
)

// Account is the balance of one user in one currency
type Account struct {
	UserID    string    `db:"user_id"`
	Currency  Currency  `db:"currency"`
	Balance   int64     `db:"balance"`
	Version   int64     `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CanAfford returns true if the account can be debited by amount
func (a *Account) CanAfford(amount int64) bool {
	return a.Balance >= amount
}

// BalanceMutation is the before and after state of one conditional balance update
type BalanceMutation struct {
	Before  int64
	After   int64
	Version int64
}

// Delta returns the signed change applied by the mutation
func (m *BalanceMutation) Delta() int64 {
	return m.After - m.Before
}

// TransactionType represents the reason a balance changed
type TransactionType string

const (
	TransactionTypeWebhookSync       TransactionType = "webhook_sync"
	TransactionTypeSubscriptionBonus TransactionType = "subscription_bonus"
	TransactionTypeActivityBonus     TransactionType = "activity_bonus"
	TransactionTypeAdminAdjustment   TransactionType = "admin_adjustment"
	TransactionTypeRedemptionDebit   TransactionType = "redemption_debit"
	TransactionTypeRedemptionRefund  TransactionType = "redemption_refund"
)

// IsValid returns true if the transaction type is known
func (tt TransactionType) IsValid() bool {
	switch tt {
	case TransactionTypeWebhookSync,
		TransactionTypeSubscriptionBonus,
		TransactionTypeActivityBonus,
		TransactionTypeAdminAdjustment,
		TransactionTypeRedemptionDebit,
		TransactionTypeRedemptionRefund:
		return true
	}
	return false
}

// IsPlatformDriven returns true if the transaction originates from a platform webhook
func (tt TransactionType) IsPlatformDriven() bool {
	return tt == TransactionTypeWebhookSync ||
		tt == TransactionTypeSubscriptionBonus ||
		tt == TransactionTypeActivityBonus
}

// IsStoreRelated returns true if the transaction belongs to a store redemption
func (tt TransactionType) IsStoreRelated() bool {
	return tt == TransactionTypeRedemptionDebit || tt == TransactionTypeRedemptionRefund
}

// String returns the string representation of the transaction type
func (tt TransactionType) String() string {
	return string(tt)
}

// Transaction is an immutable ledger entry justifying one balance change
type Transaction struct {
	ID              int64           `db:"id"`
	UserID          string          `db:"user_id"`
	Currency        Currency        `db:"currency"`
	TransactionType TransactionType `db:"transaction_type"`
	Amount          int64           `db:"amount"`
	BalanceBefore   int64           `db:"balance_before"`
	BalanceAfter    int64           `db:"balance_after"`
	Description     string          `db:"description"`
	Metadata        map[string]any  `db:"metadata"`
	CreatedAt       time.Time       `db:"created_at"`
}

// IsCredit returns true if the transaction increased the balance
func (t *Transaction) IsCredit() bool {
	return t.Amount > 0
}

// IsDebit returns true if the transaction decreased the balance
func (t *Transaction) IsDebit() bool {
	return t.Amount < 0
}

// Validate checks the arithmetic of the entry before it is persisted
func (t *Transaction) Validate() error {
	if t.UserID == "" {
		return errors.New("user id is required")
	}
	if !t.Currency.IsValid() {
		return ErrInvalidCurrency
	}
	if !t.TransactionType.IsValid() {
		return errors.New("unknown transaction type")
	}
	if t.Amount == 0 {
		return ErrInvalidAmount
	}
	if t.BalanceAfter != t.BalanceBefore+t.Amount {
		return errors.New("balance calculation is inconsistent")
	}
	if t.BalanceAfter < 0 {
		return errors.New("balance cannot go negative")
	}
	return nil
}

// Balances maps each currency to the user's current balance
type Balances map[Currency]int64

// LedgerCheck is the result of reconciling an account against its transaction log
type LedgerCheck struct {
	UserID           string
	Currency         Currency
	Balance          int64
	TransactionSum   int64
	TransactionCount int64
	// ChainBreaks counts adjacent entries where balance_after(n) != balance_before(n+1)
	ChainBreaks int64
	// HeadMismatch is true when the newest entry's balance_after differs from the balance
	HeadMismatch bool
}

// Consistent returns true if the account balance is fully justified by its log
func (c *LedgerCheck) Consistent() bool {
	return c.Balance == c.TransactionSum && c.ChainBreaks == 0 && !c.HeadMismatch
}
