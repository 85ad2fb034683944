package entities

import "strings"

// Currency identifies one of the point balances a user holds
type Currency string

const (
	CurrencySite   Currency = "site"
	CurrencyKick   Currency = "kick"
	CurrencyTwitch Currency = "twitch"
)

// AllCurrencies lists every currency in display order
var AllCurrencies = []Currency{CurrencySite, CurrencyKick, CurrencyTwitch}

// IsValid returns true if the currency is one the ledger tracks
func (c Currency) IsValid() bool {
	return c == CurrencySite || c == CurrencyKick || c == CurrencyTwitch
}

// IsPlatformIssued returns true if the balance mirrors an external platform
func (c Currency) IsPlatformIssued() bool {
	return c == CurrencyKick || c == CurrencyTwitch
}

// String returns the string representation of the currency
func (c Currency) String() string {
	return string(c)
}

// ParseCurrency converts user input into a Currency
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", ErrInvalidCurrency
	}
	return c, nil
}

// Platform identifies an external streaming platform a user can link
type Platform string

const (
	PlatformKick   Platform = "kick"
	PlatformTwitch Platform = "twitch"
)

// AllPlatforms lists every supported external platform
var AllPlatforms = []Platform{PlatformKick, PlatformTwitch}

// IsValid returns true if the platform is supported
func (p Platform) IsValid() bool {
	return p == PlatformKick || p == PlatformTwitch
}

// Currency returns the point currency issued by the platform
func (p Platform) Currency() Currency {
	return Currency(p)
}

// Title returns the capitalized platform name used in HTTP header names
func (p Platform) Title() string {
	if p == "" {
		return ""
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}

// String returns the string representation of the platform
func (p Platform) String() string {
	return string(p)
}

// ParsePlatform converts a path segment into a Platform
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", ErrUnknownPlatform
	}
	return p, nil
}
