package entities

import (
	"errors"
	"slices"
	"time"
)

// StoreItem is a points-store product priced in one or more currencies
type StoreItem struct {
	ID                 int64      `db:"id"`
	Name               string     `db:"name"`
	Description        string     `db:"description"`
	AcceptedCurrencies []Currency `db:"accepted_currencies"`
	CostSite           *int64     `db:"cost_site"`
	CostKick           *int64     `db:"cost_kick"`
	CostTwitch         *int64     `db:"cost_twitch"`
	StockQuantity      *int64     `db:"stock_quantity"` // nil means unlimited
	MaxPerUser         *int64     `db:"max_per_user"`   // nil means no limit
	IsActive           bool       `db:"is_active"`
	AvailableFrom      *time.Time `db:"available_from"`
	AvailableUntil     *time.Time `db:"available_until"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

// CostFor returns the unit price in currency, or false when the currency is not accepted
func (i *StoreItem) CostFor(currency Currency) (int64, bool) {
	if !slices.Contains(i.AcceptedCurrencies, currency) {
		return 0, false
	}

	var cost *int64
	switch currency {
	case CurrencySite:
		cost = i.CostSite
	case CurrencyKick:
		cost = i.CostKick
	case CurrencyTwitch:
		cost = i.CostTwitch
	}
	if cost == nil {
		return 0, false
	}
	return *cost, true
}

// IsAvailableAt returns true if now falls inside the item's availability window
func (i *StoreItem) IsAvailableAt(now time.Time) bool {
	if i.AvailableFrom != nil && now.Before(*i.AvailableFrom) {
		return false
	}
	if i.AvailableUntil != nil && now.After(*i.AvailableUntil) {
		return false
	}
	return true
}

// HasUnlimitedStock returns true if stock is not tracked
func (i *StoreItem) HasUnlimitedStock() bool {
	return i.StockQuantity == nil
}

// HasStockFor returns true if quantity units are currently in stock
func (i *StoreItem) HasStockFor(quantity int64) bool {
	return i.StockQuantity == nil || *i.StockQuantity >= quantity
}

// HasPurchaseLimit returns true if redemptions per user are capped
func (i *StoreItem) HasPurchaseLimit() bool {
	return i.MaxPerUser != nil
}

// Validate checks the item definition
func (i *StoreItem) Validate() error {
	if i.Name == "" {
		return errors.New("item name is required")
	}
	if len(i.AcceptedCurrencies) == 0 {
		return errors.New("item must accept at least one currency")
	}
	for _, c := range i.AcceptedCurrencies {
		if !c.IsValid() {
			return ErrInvalidCurrency
		}
		cost, ok := i.CostFor(c)
		if !ok {
			return errors.New("accepted currency " + string(c) + " has no cost")
		}
		if cost <= 0 {
			return errors.New("item cost must be positive")
		}
	}
	if i.StockQuantity != nil && *i.StockQuantity < 0 {
		return errors.New("stock quantity cannot be negative")
	}
	if i.MaxPerUser != nil && *i.MaxPerUser <= 0 {
		return errors.New("max per user must be positive")
	}
	if i.AvailableFrom != nil && i.AvailableUntil != nil && i.AvailableUntil.Before(*i.AvailableFrom) {
		return errors.New("availability window ends before it starts")
	}
	return nil
}
