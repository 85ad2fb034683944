package application

import (
	"context"
	"fmt"
	"time"

	"channelpoints/domain/entities"
	"channelpoints/domain/interfaces"
	"channelpoints/domain/services"
	"channelpoints/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

const defaultRedemptionListLimit = 50

type redemptionEngine struct {
	uowFactory UnitOfWorkFactory
	metrics    *observability.MetricsProvider
	now        func() time.Time
}

// NewRedemptionEngine creates the store use cases
func NewRedemptionEngine(uowFactory UnitOfWorkFactory, metrics *observability.MetricsProvider) RedemptionEngine {
	return &redemptionEngine{
		uowFactory: uowFactory,
		metrics:    metrics,
		now:        time.Now,
	}
}

func (e *redemptionEngine) service(uow UnitOfWork) interfaces.RedemptionService {
	return services.NewRedemptionService(
		uow.StoreItemRepository(),
		uow.RedemptionRepository(),
		newLedger(uow, e.metrics),
		uow.EventBus(),
	)
}

// Redeem takes stock, debits the user and records a pending redemption in one transaction
func (e *redemptionEngine) Redeem(ctx context.Context, req interfaces.RedeemRequest) (*interfaces.RedemptionReceipt, error) {
	var receipt *interfaces.RedemptionReceipt
	err := inTransaction(ctx, e.uowFactory, func(uow UnitOfWork) error {
		var err error
		receipt, err = e.service(uow).Redeem(ctx, req, e.now())
		return err
	})
	if err != nil {
		log.WithFields(log.Fields{
			"userID":   req.UserID,
			"itemID":   req.ItemID,
			"currency": req.Currency,
			"quantity": req.Quantity,
			"error":    err,
		}).Debug("Redemption rejected")
		return nil, err
	}
	return receipt, nil
}

// Transition moves a redemption to a new status, refunding and restocking when required
func (e *redemptionEngine) Transition(ctx context.Context, redemptionID int64, to entities.RedemptionStatus, notes string) (*interfaces.TransitionResult, error) {
	var result *interfaces.TransitionResult
	err := inTransaction(ctx, e.uowFactory, func(uow UnitOfWork) error {
		var err error
		result, err = e.service(uow).Transition(ctx, redemptionID, to, notes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CreateItem validates and stores a new store item
func (e *redemptionEngine) CreateItem(ctx context.Context, item *entities.StoreItem) error {
	if err := item.Validate(); err != nil {
		return entities.NewValidationError("item", err.Error())
	}

	err := inTransaction(ctx, e.uowFactory, func(uow UnitOfWork) error {
		return uow.StoreItemRepository().Create(ctx, item)
	})
	if err != nil {
		return fmt.Errorf("failed to create store item: %w", err)
	}

	log.WithFields(log.Fields{
		"itemID": item.ID,
		"name":   item.Name,
	}).Info("Created store item")
	return nil
}

// GetItem returns one store item
func (e *redemptionEngine) GetItem(ctx context.Context, itemID int64) (*entities.StoreItem, error) {
	var item *entities.StoreItem
	err := inTransaction(ctx, e.uowFactory, func(uow UnitOfWork) error {
		var err error
		item, err = uow.StoreItemRepository().GetByID(ctx, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, entities.ErrItemNotFound
	}
	return item, nil
}

// ListItems returns the store catalogue
func (e *redemptionEngine) ListItems(ctx context.Context, activeOnly bool) ([]*entities.StoreItem, error) {
	var items []*entities.StoreItem
	err := inTransaction(ctx, e.uowFactory, func(uow UnitOfWork) error {
		var err error
		items, err = uow.StoreItemRepository().List(ctx, activeOnly)
		return err
	})
	return items, err
}

// ListUserRedemptions returns the user's redemptions, newest first
func (e *redemptionEngine) ListUserRedemptions(ctx context.Context, userID string, limit int) ([]*entities.Redemption, error) {
	if limit <= 0 {
		limit = defaultRedemptionListLimit
	}

	var redemptions []*entities.Redemption
	err := inTransaction(ctx, e.uowFactory, func(uow UnitOfWork) error {
		var err error
		redemptions, err = uow.RedemptionRepository().ListByUser(ctx, userID, limit)
		return err
	})
	return redemptions, err
}
