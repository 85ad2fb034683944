package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"channelpoints/domain/entities"
)

var sequence atomic.Int64

// UniqueUserID returns a user id that no other test in the process uses
func UniqueUserID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, sequence.Add(1))
}

// CreateTestConnection creates a platform connection with default tokens
func CreateTestConnection(userID string, platform entities.Platform, platformUserID, username string) *entities.PlatformConnection {
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond)
	return &entities.PlatformConnection{
		UserID:           userID,
		Platform:         platform,
		PlatformUserID:   platformUserID,
		PlatformUsername: username,
		AccessToken:      "access-" + platformUserID,
		RefreshToken:     "refresh-" + platformUserID,
		TokenExpiresAt:   &expires,
	}
}

// CreateTestStoreItem creates an active item priced only in site points with unlimited stock
func CreateTestStoreItem(name string, siteCost int64) *entities.StoreItem {
	return &entities.StoreItem{
		Name:               name,
		Description:        "test item",
		AcceptedCurrencies: []entities.Currency{entities.CurrencySite},
		CostSite:           &siteCost,
		IsActive:           true,
	}
}

// CreateTestStoreItemWithStock creates a site-priced item with tracked stock
func CreateTestStoreItemWithStock(name string, siteCost, stock int64) *entities.StoreItem {
	item := CreateTestStoreItem(name, siteCost)
	item.StockQuantity = &stock
	return item
}

// CreateTestTransaction creates a ledger entry moving a balance from before to after
func CreateTestTransaction(userID string, currency entities.Currency, before, after int64) *entities.Transaction {
	return &entities.Transaction{
		UserID:          userID,
		Currency:        currency,
		TransactionType: entities.TransactionTypeAdminAdjustment,
		Amount:          after - before,
		BalanceBefore:   before,
		BalanceAfter:    after,
		Description:     "test adjustment",
		Metadata:        map[string]any{"test": true},
	}
}
