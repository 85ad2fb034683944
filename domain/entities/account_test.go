package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransaction_Validate(t *testing.T) {
	t.Parallel()

	valid := func() *Transaction {
		return &Transaction{
			UserID:          "user-1",
			Currency:        CurrencySite,
			TransactionType: TransactionTypeWebhookSync,
			Amount:          250,
			BalanceBefore:   0,
			BalanceAfter:    250,
		}
	}

	assert.NoError(t, valid().Validate())

	zero := valid()
	zero.Amount = 0
	zero.BalanceAfter = 0
	assert.ErrorIs(t, zero.Validate(), ErrInvalidAmount)

	inconsistent := valid()
	inconsistent.BalanceAfter = 200
	assert.Error(t, inconsistent.Validate())

	negative := valid()
	negative.Amount = -300
	negative.BalanceAfter = -300
	assert.Error(t, negative.Validate())

	badCurrency := valid()
	badCurrency.Currency = "gold"
	assert.ErrorIs(t, badCurrency.Validate(), ErrInvalidCurrency)

	badType := valid()
	badType.TransactionType = "bonus"
	assert.Error(t, badType.Validate())
}

func TestLedgerCheck_Consistent(t *testing.T) {
	t.Parallel()

	assert.True(t, (&LedgerCheck{Balance: 10, TransactionSum: 10}).Consistent())
	assert.False(t, (&LedgerCheck{Balance: 10, TransactionSum: 9}).Consistent())
	assert.False(t, (&LedgerCheck{Balance: 10, TransactionSum: 10, ChainBreaks: 1}).Consistent())
	assert.False(t, (&LedgerCheck{Balance: 10, TransactionSum: 10, HeadMismatch: true}).Consistent())
}

func TestParsePlatformAndCurrency(t *testing.T) {
	t.Parallel()

	p, err := ParsePlatform(" Kick ")
	assert.NoError(t, err)
	assert.Equal(t, PlatformKick, p)
	assert.Equal(t, CurrencyKick, p.Currency())
	assert.Equal(t, "Kick", p.Title())

	_, err = ParsePlatform("youtube")
	assert.ErrorIs(t, err, ErrUnknownPlatform)

	c, err := ParseCurrency("TWITCH")
	assert.NoError(t, err)
	assert.Equal(t, CurrencyTwitch, c)
	assert.True(t, c.IsPlatformIssued())
	assert.False(t, CurrencySite.IsPlatformIssued())

	_, err = ParseCurrency("gold")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}
