package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"channelpoints/domain/entities"
	"channelpoints/domain/events"
	"channelpoints/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

type redemptionService struct {
	itemRepo       interfaces.StoreItemRepository
	redemptionRepo interfaces.RedemptionRepository
	ledger         interfaces.LedgerService
	publisher      interfaces.EventPublisher
}

// NewRedemptionService creates a new redemption service
func NewRedemptionService(
	itemRepo interfaces.StoreItemRepository,
	redemptionRepo interfaces.RedemptionRepository,
	ledger interfaces.LedgerService,
	publisher interfaces.EventPublisher,
) interfaces.RedemptionService {
	return &redemptionService{
		itemRepo:       itemRepo,
		redemptionRepo: redemptionRepo,
		ledger:         ledger,
		publisher:      publisher,
	}
}

// Redeem checks the item in order: exists and active, availability window,
// currency, stock, per-user limit and finally the debit. Stock is taken with a
// conditional decrement so a concurrent checkout of the last unit loses cleanly.
func (s *redemptionService) Redeem(ctx context.Context, req interfaces.RedeemRequest, now time.Time) (*interfaces.RedemptionReceipt, error) {
	if req.UserID == "" {
		return nil, entities.NewValidationError("user_id", "user id is required")
	}
	if req.Quantity <= 0 {
		return nil, entities.ErrInvalidQuantity
	}
	if !req.Currency.IsValid() {
		return nil, entities.ErrInvalidCurrency
	}

	item, err := s.itemRepo.GetByID(ctx, req.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get store item: %w", err)
	}
	if item != nil && item.HasPurchaseLimit() {
		// Serialise checkouts of limited items so the limit check cannot be raced
		item, err = s.itemRepo.GetByIDForUpdate(ctx, req.ItemID)
		if err != nil {
			return nil, fmt.Errorf("failed to lock store item: %w", err)
		}
	}
	if item == nil {
		return nil, fmt.Errorf("store item %d: %w", req.ItemID, entities.ErrItemNotFound)
	}
	if !item.IsActive {
		return nil, fmt.Errorf("store item %d: %w", item.ID, entities.ErrItemInactive)
	}
	if !item.IsAvailableAt(now) {
		return nil, fmt.Errorf("store item %d: %w", item.ID, entities.ErrItemUnavailable)
	}

	unitCost, ok := item.CostFor(req.Currency)
	if !ok {
		return nil, fmt.Errorf("store item %d does not accept %s: %w", item.ID, req.Currency, entities.ErrCurrencyNotAccepted)
	}
	if req.Quantity > math.MaxInt64/unitCost {
		return nil, entities.ErrInvalidQuantity
	}
	totalCost := unitCost * req.Quantity

	if !item.HasStockFor(req.Quantity) {
		return nil, &entities.OutOfStockError{ItemID: item.ID, Available: *item.StockQuantity, Requested: req.Quantity}
	}

	if item.HasPurchaseLimit() {
		redeemed, err := s.redemptionRepo.SumActiveQuantity(ctx, req.UserID, item.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count redemptions: %w", err)
		}
		if redeemed+req.Quantity > *item.MaxPerUser {
			return nil, &entities.PurchaseLimitError{
				ItemID:    item.ID,
				Limit:     *item.MaxPerUser,
				Redeemed:  redeemed,
				Requested: req.Quantity,
			}
		}
	}

	taken, err := s.itemRepo.DecrementStock(ctx, item.ID, req.Quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}
	if !taken {
		return nil, s.outOfStock(ctx, item.ID, req.Quantity)
	}

	tx, err := s.ledger.Debit(ctx, interfaces.LedgerEntry{
		UserID:      req.UserID,
		Currency:    req.Currency,
		Type:        entities.TransactionTypeRedemptionDebit,
		Description: fmt.Sprintf("Redeemed %d x %s", req.Quantity, item.Name),
		Metadata:    map[string]any{"item_id": item.ID, "quantity": req.Quantity},
	}, totalCost)
	if err != nil {
		return nil, err
	}

	redemption := &entities.Redemption{
		UserID:        req.UserID,
		ItemID:        item.ID,
		Currency:      req.Currency,
		PointsSpent:   totalCost,
		Quantity:      req.Quantity,
		Status:        entities.RedemptionStatusPending,
		TransactionID: &tx.ID,
	}
	if err := s.redemptionRepo.Create(ctx, redemption); err != nil {
		return nil, fmt.Errorf("failed to create redemption: %w", err)
	}

	if item.StockQuantity != nil {
		remaining := *item.StockQuantity - req.Quantity
		item.StockQuantity = &remaining
	}

	log.WithFields(log.Fields{
		"redemption_id": redemption.ID,
		"user_id":       req.UserID,
		"item_id":       item.ID,
		"currency":      req.Currency,
		"points_spent":  totalCost,
		"quantity":      req.Quantity,
	}).Info("Store item redeemed")

	if err := s.publisher.Publish(events.RedemptionCreatedEvent{
		RedemptionID: redemption.ID,
		UserID:       req.UserID,
		ItemID:       item.ID,
		ItemName:     item.Name,
		Currency:     req.Currency,
		PointsSpent:  totalCost,
		Quantity:     req.Quantity,
	}); err != nil {
		log.WithError(err).Warn("Failed to queue redemption created event")
	}

	return &interfaces.RedemptionReceipt{
		Redemption:  redemption,
		Item:        item,
		Transaction: tx,
	}, nil
}

// Transition moves the redemption forward and applies refunds and stock restoration
func (s *redemptionService) Transition(ctx context.Context, redemptionID int64, to entities.RedemptionStatus, notes string) (*interfaces.TransitionResult, error) {
	if !to.IsValid() {
		return nil, entities.NewValidationError("status", fmt.Sprintf("unknown redemption status %q", to))
	}

	redemption, err := s.redemptionRepo.GetByID(ctx, redemptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get redemption: %w", err)
	}
	if redemption == nil {
		return nil, fmt.Errorf("redemption %d: %w", redemptionID, entities.ErrRedemptionNotFound)
	}

	from := redemption.Status
	if !from.CanTransitionTo(to) {
		return nil, &entities.InvalidTransitionError{From: from, To: to}
	}

	updated, err := s.redemptionRepo.UpdateStatus(ctx, redemptionID, from, to, notes)
	if err != nil {
		return nil, fmt.Errorf("failed to update redemption status: %w", err)
	}
	if !updated {
		// Someone else moved it first; report the edge from the state we can see now
		current, err := s.redemptionRepo.GetByID(ctx, redemptionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get redemption: %w", err)
		}
		if current != nil {
			from = current.Status
		}
		return nil, &entities.InvalidTransitionError{From: from, To: to}
	}

	result := &interfaces.TransitionResult{OldStatus: from}

	if to.RefundsPoints() {
		refund, err := s.ledger.Credit(ctx, interfaces.LedgerEntry{
			UserID:      redemption.UserID,
			Currency:    redemption.Currency,
			Type:        entities.TransactionTypeRedemptionRefund,
			Description: fmt.Sprintf("Refund for redemption #%d", redemption.ID),
			Metadata:    map[string]any{"redemption_id": redemption.ID, "status": string(to)},
		}, redemption.PointsSpent)
		if err != nil {
			return nil, fmt.Errorf("failed to refund redemption: %w", err)
		}
		result.Refund = refund
	}

	if to.RestoresStock() {
		if err := s.itemRepo.RestoreStock(ctx, redemption.ItemID, redemption.Quantity); err != nil {
			return nil, fmt.Errorf("failed to restore stock: %w", err)
		}
	}

	var refunded int64
	if result.Refund != nil {
		refunded = result.Refund.Amount
	}

	redemption.Status = to
	if notes != "" {
		redemption.Notes = notes
	}
	result.Redemption = redemption

	log.WithFields(log.Fields{
		"redemption_id": redemption.ID,
		"old_status":    from,
		"new_status":    to,
		"refunded":      refunded,
	}).Info("Redemption status changed")

	if err := s.publisher.Publish(events.RedemptionStatusChangedEvent{
		RedemptionID: redemption.ID,
		UserID:       redemption.UserID,
		OldStatus:    from,
		NewStatus:    to,
		Refunded:     refunded,
	}); err != nil {
		log.WithError(err).Warn("Failed to queue redemption status event")
	}

	return result, nil
}

func (s *redemptionService) outOfStock(ctx context.Context, itemID, requested int64) error {
	var available int64
	current, err := s.itemRepo.GetByID(ctx, itemID)
	if err == nil && current != nil && current.StockQuantity != nil {
		available = *current.StockQuantity
	}
	return &entities.OutOfStockError{ItemID: itemID, Available: available, Requested: requested}
}
