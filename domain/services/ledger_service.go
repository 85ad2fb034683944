package services

import (
	"context"
	"fmt"

	"channelpoints/domain/entities"
	"channelpoints/domain/events"
	"channelpoints/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// MaxBalanceUpdateAttempts bounds the compare-and-set retry loop of absolute balance writes
const MaxBalanceUpdateAttempts = 5

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// LedgerOption configures a ledger service
type LedgerOption func(*ledgerService)

// WithRetryObserver registers a callback invoked every time a compare-and-set loses a race
func WithRetryObserver(observer func(operation string)) LedgerOption {
	return func(s *ledgerService) {
		s.onRetry = observer
	}
}

// ledgerService implements interfaces.LedgerService on top of conditional row updates
type ledgerService struct {
	accountRepo interfaces.AccountRepository
	txRepo      interfaces.TransactionRepository
	publisher   interfaces.EventPublisher
	onRetry     func(operation string)
}

// NewLedgerService creates a ledger service bound to one unit of work's repositories
func NewLedgerService(
	accountRepo interfaces.AccountRepository,
	txRepo interfaces.TransactionRepository,
	publisher interfaces.EventPublisher,
	opts ...LedgerOption,
) interfaces.LedgerService {
	s := &ledgerService{
		accountRepo: accountRepo,
		txRepo:      txRepo,
		publisher:   publisher,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Credit adds amount to the account, creating it on first use
func (s *ledgerService) Credit(ctx context.Context, entry interfaces.LedgerEntry, amount int64) (*entities.Transaction, error) {
	if err := validateEntry(entry); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, entities.ErrInvalidAmount
	}

	if _, err := s.accountRepo.Ensure(ctx, entry.UserID, entry.Currency); err != nil {
		return nil, fmt.Errorf("failed to ensure account: %w", err)
	}

	mutation, err := s.accountRepo.ApplyDelta(ctx, entry.UserID, entry.Currency, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to credit account: %w", err)
	}
	if mutation == nil {
		return nil, fmt.Errorf("failed to credit account %s/%s: %w", entry.UserID, entry.Currency, entities.ErrAccountNotFound)
	}

	return s.record(ctx, entry, mutation)
}

// Debit subtracts amount from the account or fails without changing anything
func (s *ledgerService) Debit(ctx context.Context, entry interfaces.LedgerEntry, amount int64) (*entities.Transaction, error) {
	if err := validateEntry(entry); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, entities.ErrInvalidAmount
	}

	mutation, err := s.accountRepo.ApplyDelta(ctx, entry.UserID, entry.Currency, -amount)
	if err != nil {
		return nil, fmt.Errorf("failed to debit account: %w", err)
	}
	if mutation == nil {
		account, err := s.accountRepo.Get(ctx, entry.UserID, entry.Currency)
		if err != nil {
			return nil, fmt.Errorf("failed to get account: %w", err)
		}
		var balance int64
		if account != nil {
			balance = account.Balance
		}
		return nil, &entities.InsufficientBalanceError{
			UserID:   entry.UserID,
			Currency: entry.Currency,
			Balance:  balance,
			Required: amount,
		}
	}

	return s.record(ctx, entry, mutation)
}

// DebitUpTo subtracts min(amount, balance)
func (s *ledgerService) DebitUpTo(ctx context.Context, entry interfaces.LedgerEntry, amount int64) (*entities.Transaction, error) {
	if err := validateEntry(entry); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, entities.ErrInvalidAmount
	}

	for attempt := 1; attempt <= MaxBalanceUpdateAttempts; attempt++ {
		account, err := s.accountRepo.Get(ctx, entry.UserID, entry.Currency)
		if err != nil {
			return nil, fmt.Errorf("failed to get account: %w", err)
		}
		if account == nil || account.Balance == 0 {
			return nil, nil
		}

		newBalance := account.Balance - min(amount, account.Balance)
		mutation, err := s.accountRepo.CompareAndSet(ctx, entry.UserID, entry.Currency, account.Version, newBalance)
		if err != nil {
			return nil, fmt.Errorf("failed to update balance: %w", err)
		}
		if mutation != nil {
			return s.record(ctx, entry, mutation)
		}
		s.retried("debit_up_to", entry, attempt)
	}

	return nil, fmt.Errorf("failed to debit %s/%s after %d attempts: %w", entry.UserID, entry.Currency, MaxBalanceUpdateAttempts, entities.ErrConcurrentModification)
}

// SetBalance writes an absolute balance through compare-and-set on the account version
func (s *ledgerService) SetBalance(ctx context.Context, entry interfaces.LedgerEntry, newBalance int64) (*entities.Transaction, error) {
	if err := validateEntry(entry); err != nil {
		return nil, err
	}
	if newBalance < 0 {
		return nil, entities.ErrInvalidBalance
	}

	for attempt := 1; attempt <= MaxBalanceUpdateAttempts; attempt++ {
		account, err := s.accountRepo.Ensure(ctx, entry.UserID, entry.Currency)
		if err != nil {
			return nil, fmt.Errorf("failed to ensure account: %w", err)
		}
		if account.Balance == newBalance {
			// Zero delta, nothing to record
			return nil, nil
		}

		mutation, err := s.accountRepo.CompareAndSet(ctx, entry.UserID, entry.Currency, account.Version, newBalance)
		if err != nil {
			return nil, fmt.Errorf("failed to update balance: %w", err)
		}
		if mutation != nil {
			return s.record(ctx, entry, mutation)
		}
		s.retried("set_balance", entry, attempt)
	}

	return nil, fmt.Errorf("failed to set balance of %s/%s after %d attempts: %w", entry.UserID, entry.Currency, MaxBalanceUpdateAttempts, entities.ErrConcurrentModification)
}

// Balances returns all currency balances of the user
func (s *ledgerService) Balances(ctx context.Context, userID string) (entities.Balances, error) {
	accounts, err := s.accountRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	balances := make(entities.Balances, len(entities.AllCurrencies))
	for _, c := range entities.AllCurrencies {
		balances[c] = 0
	}
	for _, account := range accounts {
		balances[account.Currency] = account.Balance
	}
	return balances, nil
}

// History returns the newest transactions of one account
func (s *ledgerService) History(ctx context.Context, userID string, currency entities.Currency, limit int) ([]*entities.Transaction, error) {
	if !currency.IsValid() {
		return nil, entities.ErrInvalidCurrency
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	history, err := s.txRepo.ListByAccount(ctx, userID, currency, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return history, nil
}

// Verify reconciles the account with its log
func (s *ledgerService) Verify(ctx context.Context, userID string, currency entities.Currency) (*entities.LedgerCheck, error) {
	if !currency.IsValid() {
		return nil, entities.ErrInvalidCurrency
	}
	check, err := s.txRepo.Reconcile(ctx, userID, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile account: %w", err)
	}
	return check, nil
}

// record appends the transaction for an applied mutation and queues the balance event
func (s *ledgerService) record(ctx context.Context, entry interfaces.LedgerEntry, mutation *entities.BalanceMutation) (*entities.Transaction, error) {
	tx := &entities.Transaction{
		UserID:          entry.UserID,
		Currency:        entry.Currency,
		TransactionType: entry.Type,
		Amount:          mutation.Delta(),
		BalanceBefore:   mutation.Before,
		BalanceAfter:    mutation.After,
		Description:     entry.Description,
		Metadata:        entry.Metadata,
	}
	if err := tx.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ledger entry: %w", err)
	}

	if err := s.txRepo.Record(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id":        tx.UserID,
		"currency":       tx.Currency,
		"type":           tx.TransactionType,
		"amount":         tx.Amount,
		"balance_before": tx.BalanceBefore,
		"balance_after":  tx.BalanceAfter,
	}).Debug("Recorded ledger transaction")

	if s.publisher != nil {
		if err := s.publisher.Publish(events.BalanceChangeEvent{
			UserID:          tx.UserID,
			Currency:        tx.Currency,
			OldBalance:      tx.BalanceBefore,
			NewBalance:      tx.BalanceAfter,
			ChangeAmount:    tx.Amount,
			TransactionType: tx.TransactionType,
			TransactionID:   tx.ID,
		}); err != nil {
			log.WithError(err).Warn("Failed to queue balance change event")
		}
	}

	return tx, nil
}

func (s *ledgerService) retried(operation string, entry interfaces.LedgerEntry, attempt int) {
	log.WithFields(log.Fields{
		"operation": operation,
		"user_id":   entry.UserID,
		"currency":  entry.Currency,
		"attempt":   attempt,
	}).Debug("Balance changed concurrently, retrying")
	if s.onRetry != nil {
		s.onRetry(operation)
	}
}

func validateEntry(entry interfaces.LedgerEntry) error {
	if entry.UserID == "" {
		return entities.NewValidationError("user_id", "user id is required")
	}
	if !entry.Currency.IsValid() {
		return entities.ErrInvalidCurrency
	}
	if !entry.Type.IsValid() {
		return entities.NewValidationError("transaction_type", "unknown transaction type")
	}
	return nil
}
