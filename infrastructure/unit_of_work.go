package infrastructure

import (
	"context"

	"channelpoints/application"
	"channelpoints/domain/interfaces"
)

// unitOfWork wraps the repository UnitOfWork and publishes buffered events on commit
type unitOfWork struct {
	inner                  application.UnitOfWork
	transactionalPublisher *TransactionalPublisher
	ctx                    context.Context
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	u.ctx = ctx
	return u.inner.Begin(ctx)
}

// Commit commits the transaction and flushes events on success
func (u *unitOfWork) Commit() error {
	if err := u.inner.Commit(); err != nil {
		u.transactionalPublisher.Discard()
		return err
	}

	// Events are best effort once the transaction is durable
	_ = u.transactionalPublisher.Flush(u.ctx)
	return nil
}

// Rollback rolls back the transaction and discards pending events
func (u *unitOfWork) Rollback() error {
	u.transactionalPublisher.Discard()
	return u.inner.Rollback()
}

func (u *unitOfWork) AccountRepository() interfaces.AccountRepository {
	return u.inner.AccountRepository()
}

func (u *unitOfWork) TransactionRepository() interfaces.TransactionRepository {
	return u.inner.TransactionRepository()
}

func (u *unitOfWork) ConnectionRepository() interfaces.ConnectionRepository {
	return u.inner.ConnectionRepository()
}

func (u *unitOfWork) StoreItemRepository() interfaces.StoreItemRepository {
	return u.inner.StoreItemRepository()
}

func (u *unitOfWork) RedemptionRepository() interfaces.RedemptionRepository {
	return u.inner.RedemptionRepository()
}

func (u *unitOfWork) WebhookDeliveryRepository() interfaces.WebhookDeliveryRepository {
	return u.inner.WebhookDeliveryRepository()
}

// EventBus returns the transactional event publisher
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	return u.transactionalPublisher
}
