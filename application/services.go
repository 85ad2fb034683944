package application

import (
	"context"
	"fmt"

	"channelpoints/domain/interfaces"
	"channelpoints/domain/services"
	"channelpoints/infrastructure/observability"
)

// newLedger builds the ledger service bound to uow
func newLedger(uow UnitOfWork, metrics *observability.MetricsProvider) interfaces.LedgerService {
	return services.NewLedgerService(
		uow.AccountRepository(),
		uow.TransactionRepository(),
		uow.EventBus(),
		services.WithRetryObserver(metrics.RecordCASRetry),
	)
}

// newConnections builds the connection service bound to uow
func newConnections(uow UnitOfWork, ledger interfaces.LedgerService) interfaces.ConnectionService {
	return services.NewConnectionService(
		uow.ConnectionRepository(),
		uow.AccountRepository(),
		ledger,
		uow.EventBus(),
	)
}

// inTransaction runs fn inside a fresh unit of work, committing only when fn succeeds
func inTransaction(ctx context.Context, factory UnitOfWorkFactory, fn func(uow UnitOfWork) error) error {
	uow := factory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := fn(uow); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
