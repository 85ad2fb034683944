package repository

import (
	"context"
	"errors"
	"fmt"

	"channelpoints/application"
	"channelpoints/database"
	"channelpoints/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db             *database.DB
	tx             pgx.Tx
	ctx            context.Context
	publisher      interfaces.EventPublisher
	accountRepo    interfaces.AccountRepository
	txRepo         interfaces.TransactionRepository
	connRepo       interfaces.ConnectionRepository
	itemRepo       interfaces.StoreItemRepository
	redemptionRepo interfaces.RedemptionRepository
	deliveryRepo   interfaces.WebhookDeliveryRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) *unitOfWorkFactory {
	return &unitOfWorkFactory{
		db: db,
	}
}

type unitOfWorkFactory struct {
	db *database.DB
}

// CreateWithPublisher creates a new UnitOfWork whose EventBus is publisher
func (f *unitOfWorkFactory) CreateWithPublisher(publisher interfaces.EventPublisher) application.UnitOfWork {
	return &unitOfWork{
		db:        f.db,
		publisher: publisher,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.accountRepo = newAccountRepository(tx)
	u.txRepo = newTransactionRepository(tx)
	u.connRepo = newConnectionRepository(tx)
	u.itemRepo = newStoreItemRepository(tx)
	u.redemptionRepo = newRedemptionRepository(tx)
	u.deliveryRepo = newWebhookDeliveryRepository(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	u.tx = nil
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() interfaces.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

// TransactionRepository returns the transaction repository for this unit of work
func (u *unitOfWork) TransactionRepository() interfaces.TransactionRepository {
	if u.txRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.txRepo
}

// ConnectionRepository returns the connection repository for this unit of work
func (u *unitOfWork) ConnectionRepository() interfaces.ConnectionRepository {
	if u.connRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.connRepo
}

// StoreItemRepository returns the store item repository for this unit of work
func (u *unitOfWork) StoreItemRepository() interfaces.StoreItemRepository {
	if u.itemRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.itemRepo
}

// RedemptionRepository returns the redemption repository for this unit of work
func (u *unitOfWork) RedemptionRepository() interfaces.RedemptionRepository {
	if u.redemptionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.redemptionRepo
}

// WebhookDeliveryRepository returns the webhook delivery repository for this unit of work
func (u *unitOfWork) WebhookDeliveryRepository() interfaces.WebhookDeliveryRepository {
	if u.deliveryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.deliveryRepo
}

// EventBus returns the event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.publisher == nil {
		panic("event publisher not configured")
	}
	return u.publisher
}
