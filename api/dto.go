package api

import (
	"time"

	"channelpoints/domain/entities"
	"channelpoints/domain/interfaces"
)

type linkRequest struct {
	ReturnURL string `json:"return_url" validate:"omitempty,url"`
}

type linkResponse struct {
	AuthorizeURL string `json:"authorize_url"`
}

// refreshResponse never carries the token itself
type refreshResponse struct {
	Platform   entities.Platform `json:"platform"`
	TokenValid bool              `json:"token_valid"`
}

type connectionResponse struct {
	Platform         entities.Platform `json:"platform"`
	PlatformUserID   string            `json:"platform_user_id"`
	PlatformUsername string            `json:"platform_username"`
	LastSyncedAt     *time.Time        `json:"last_synced_at,omitempty"`
	LinkedAt         time.Time         `json:"linked_at"`
}

func toConnectionResponse(conn *entities.PlatformConnection) connectionResponse {
	return connectionResponse{
		Platform:         conn.Platform,
		PlatformUserID:   conn.PlatformUserID,
		PlatformUsername: conn.PlatformUsername,
		LastSyncedAt:     conn.LastSyncedAt,
		LinkedAt:         conn.CreatedAt,
	}
}

type balancesResponse struct {
	UserID   string            `json:"user_id"`
	Balances entities.Balances `json:"balances"`
}

type transactionResponse struct {
	ID            int64                    `json:"id"`
	Currency      entities.Currency        `json:"currency"`
	Type          entities.TransactionType `json:"type"`
	Amount        int64                    `json:"amount"`
	BalanceBefore int64                    `json:"balance_before"`
	BalanceAfter  int64                    `json:"balance_after"`
	Description   string                   `json:"description"`
	Metadata      map[string]any           `json:"metadata,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
}

func toTransactionResponse(tx *entities.Transaction) *transactionResponse {
	if tx == nil {
		return nil
	}
	return &transactionResponse{
		ID:            tx.ID,
		Currency:      tx.Currency,
		Type:          tx.TransactionType,
		Amount:        tx.Amount,
		BalanceBefore: tx.BalanceBefore,
		BalanceAfter:  tx.BalanceAfter,
		Description:   tx.Description,
		Metadata:      tx.Metadata,
		CreatedAt:     tx.CreatedAt,
	}
}

type itemRequest struct {
	Name               string     `json:"name" validate:"required,max=200"`
	Description        string     `json:"description" validate:"max=2000"`
	AcceptedCurrencies []string   `json:"accepted_currencies" validate:"required,min=1,dive,oneof=site kick twitch"`
	CostSite           *int64     `json:"cost_site" validate:"omitempty,gt=0"`
	CostKick           *int64     `json:"cost_kick" validate:"omitempty,gt=0"`
	CostTwitch         *int64     `json:"cost_twitch" validate:"omitempty,gt=0"`
	StockQuantity      *int64     `json:"stock_quantity" validate:"omitempty,gte=0"`
	MaxPerUser         *int64     `json:"max_per_user" validate:"omitempty,gt=0"`
	IsActive           *bool      `json:"is_active"`
	AvailableFrom      *time.Time `json:"available_from"`
	AvailableUntil     *time.Time `json:"available_until"`
}

func (req itemRequest) toEntity() *entities.StoreItem {
	item := &entities.StoreItem{
		Name:           req.Name,
		Description:    req.Description,
		CostSite:       req.CostSite,
		CostKick:       req.CostKick,
		CostTwitch:     req.CostTwitch,
		StockQuantity:  req.StockQuantity,
		MaxPerUser:     req.MaxPerUser,
		IsActive:       req.IsActive == nil || *req.IsActive,
		AvailableFrom:  req.AvailableFrom,
		AvailableUntil: req.AvailableUntil,
	}
	for _, c := range req.AcceptedCurrencies {
		item.AcceptedCurrencies = append(item.AcceptedCurrencies, entities.Currency(c))
	}
	return item
}

type itemResponse struct {
	ID                 int64               `json:"id"`
	Name               string              `json:"name"`
	Description        string              `json:"description"`
	AcceptedCurrencies []entities.Currency `json:"accepted_currencies"`
	Costs              map[string]int64    `json:"costs"`
	StockQuantity      *int64              `json:"stock_quantity"`
	MaxPerUser         *int64              `json:"max_per_user"`
	IsActive           bool                `json:"is_active"`
	AvailableFrom      *time.Time          `json:"available_from,omitempty"`
	AvailableUntil     *time.Time          `json:"available_until,omitempty"`
}

func toItemResponse(item *entities.StoreItem) itemResponse {
	costs := map[string]int64{}
	for _, currency := range item.AcceptedCurrencies {
		if cost, ok := item.CostFor(currency); ok {
			costs[string(currency)] = cost
		}
	}
	return itemResponse{
		ID:                 item.ID,
		Name:               item.Name,
		Description:        item.Description,
		AcceptedCurrencies: item.AcceptedCurrencies,
		Costs:              costs,
		StockQuantity:      item.StockQuantity,
		MaxPerUser:         item.MaxPerUser,
		IsActive:           item.IsActive,
		AvailableFrom:      item.AvailableFrom,
		AvailableUntil:     item.AvailableUntil,
	}
}

type redeemRequest struct {
	Currency string `json:"currency" validate:"required,oneof=site kick twitch"`
	Quantity int64  `json:"quantity" validate:"omitempty,gt=0"`
}

type redemptionResponse struct {
	ID            int64                     `json:"id"`
	ItemID        int64                     `json:"item_id"`
	Currency      entities.Currency         `json:"currency"`
	PointsSpent   int64                     `json:"points_spent"`
	Quantity      int64                     `json:"quantity"`
	Status        entities.RedemptionStatus `json:"status"`
	TransactionID *int64                    `json:"transaction_id,omitempty"`
	Notes         string                    `json:"notes,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
}

func toRedemptionResponse(r *entities.Redemption) redemptionResponse {
	return redemptionResponse{
		ID:            r.ID,
		ItemID:        r.ItemID,
		Currency:      r.Currency,
		PointsSpent:   r.PointsSpent,
		Quantity:      r.Quantity,
		Status:        r.Status,
		TransactionID: r.TransactionID,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt,
	}
}

type receiptResponse struct {
	Redemption  redemptionResponse   `json:"redemption"`
	Item        itemResponse         `json:"item"`
	Transaction *transactionResponse `json:"transaction"`
}

func toReceiptResponse(receipt *interfaces.RedemptionReceipt) receiptResponse {
	return receiptResponse{
		Redemption:  toRedemptionResponse(receipt.Redemption),
		Item:        toItemResponse(receipt.Item),
		Transaction: toTransactionResponse(receipt.Transaction),
	}
}

type transitionRequest struct {
	Status string `json:"status" validate:"required,oneof=pending processing completed cancelled refunded"`
	Notes  string `json:"notes" validate:"max=2000"`
}

type transitionResponse struct {
	Redemption redemptionResponse        `json:"redemption"`
	OldStatus  entities.RedemptionStatus `json:"old_status"`
	Refund     *transactionResponse      `json:"refund,omitempty"`
}

type adjustRequest struct {
	Operation   string `json:"operation" validate:"required,oneof=credit debit set"`
	Amount      int64  `json:"amount" validate:"gte=0"`
	Description string `json:"description" validate:"max=500"`
}

type adjustResponse struct {
	Changed     bool                 `json:"changed"`
	Transaction *transactionResponse `json:"transaction,omitempty"`
}

type verifyResponse struct {
	UserID           string            `json:"user_id"`
	Currency         entities.Currency `json:"currency"`
	Balance          int64             `json:"balance"`
	TransactionSum   int64             `json:"transaction_sum"`
	TransactionCount int64             `json:"transaction_count"`
	ChainBreaks      int64             `json:"chain_breaks"`
	HeadMismatch     bool              `json:"head_mismatch"`
	Consistent       bool              `json:"consistent"`
}

type webhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type webhookError struct {
	Error string `json:"error"`
}
