package application

import (
	"context"
	"fmt"

	"channelpoints/domain/entities"
	"channelpoints/domain/interfaces"
	"channelpoints/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// AdjustOperation is an operator balance change
type AdjustOperation string

const (
	AdjustCredit AdjustOperation = "credit"
	AdjustDebit  AdjustOperation = "debit"
	AdjustSet    AdjustOperation = "set"
)

// AdjustRequest is a manual balance change made by an operator
type AdjustRequest struct {
	UserID      string
	Currency    entities.Currency
	Operation   AdjustOperation
	Amount      int64
	Description string
}

type pointsLedger struct {
	uowFactory UnitOfWorkFactory
	metrics    *observability.MetricsProvider
}

// NewPointsLedger creates the ledger use cases
func NewPointsLedger(uowFactory UnitOfWorkFactory, metrics *observability.MetricsProvider) PointsLedger {
	return &pointsLedger{
		uowFactory: uowFactory,
		metrics:    metrics,
	}
}

// Balances returns every currency balance of the user
func (l *pointsLedger) Balances(ctx context.Context, userID string) (entities.Balances, error) {
	var balances entities.Balances
	err := inTransaction(ctx, l.uowFactory, func(uow UnitOfWork) error {
		var err error
		balances, err = newLedger(uow, l.metrics).Balances(ctx, userID)
		return err
	})
	return balances, err
}

// History returns the newest transactions of one account
func (l *pointsLedger) History(ctx context.Context, userID string, currency entities.Currency, limit int) ([]*entities.Transaction, error) {
	var history []*entities.Transaction
	err := inTransaction(ctx, l.uowFactory, func(uow UnitOfWork) error {
		var err error
		history, err = newLedger(uow, l.metrics).History(ctx, userID, currency, limit)
		return err
	})
	return history, err
}

// Adjust applies an operator credit, debit or absolute set.
// A set to the current balance returns a nil transaction.
func (l *pointsLedger) Adjust(ctx context.Context, req AdjustRequest) (*entities.Transaction, error) {
	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Manual %s by operator", req.Operation)
	}
	entry := interfaces.LedgerEntry{
		UserID:      req.UserID,
		Currency:    req.Currency,
		Type:        entities.TransactionTypeAdminAdjustment,
		Description: description,
		Metadata:    map[string]any{"operation": string(req.Operation)},
	}

	var tx *entities.Transaction
	err := inTransaction(ctx, l.uowFactory, func(uow UnitOfWork) error {
		ledger := newLedger(uow, l.metrics)

		var err error
		switch req.Operation {
		case AdjustCredit:
			tx, err = ledger.Credit(ctx, entry, req.Amount)
		case AdjustDebit:
			tx, err = ledger.Debit(ctx, entry, req.Amount)
		case AdjustSet:
			tx, err = ledger.SetBalance(ctx, entry, req.Amount)
		default:
			err = entities.NewValidationError("operation", "operation must be credit, debit or set")
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"userID":    req.UserID,
		"currency":  req.Currency,
		"operation": req.Operation,
		"amount":    req.Amount,
	}).Info("Applied manual balance adjustment")
	return tx, nil
}

// Verify reconciles one account with its transaction log
func (l *pointsLedger) Verify(ctx context.Context, userID string, currency entities.Currency) (*entities.LedgerCheck, error) {
	var check *entities.LedgerCheck
	err := inTransaction(ctx, l.uowFactory, func(uow UnitOfWork) error {
		var err error
		check, err = newLedger(uow, l.metrics).Verify(ctx, userID, currency)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !check.Consistent() {
		log.WithFields(log.Fields{
			"userID":         userID,
			"currency":       currency,
			"balance":        check.Balance,
			"transactionSum": check.TransactionSum,
			"chainBreaks":    check.ChainBreaks,
			"headMismatch":   check.HeadMismatch,
		}).Error("Ledger reconciliation failed")
	}
	return check, nil
}
