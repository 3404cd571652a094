package model

import (
	"fmt"
	"time"
)

// Source identifies which tier of the resolution chain satisfied a lookup.
type Source string

const (
	SourceCache        Source = "cache"
	SourceStorage      Source = "storage"
	SourceProvider     Source = "provider"
	SourceInterpolated Source = "interpolated"
)

// PricePoint is one historical price observation for a token on a network.
// Identity key = (TokenAddress, Network, Timestamp); a persisted point is
// write-once and never overwritten.
type PricePoint struct {
	TokenAddress string    `json:"tokenAddress"`
	Network      string    `json:"network"`
	Timestamp    int64     `json:"timestamp"` // unix seconds
	Price        float64   `json:"price"`
	MarketCap    *float64  `json:"marketCap,omitempty"`
	Volume       *float64  `json:"volume,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Key returns the identity key used for cache entries and uniqueness checks.
func (p PricePoint) Key() string {
	return PriceKey(p.TokenAddress, p.Network, p.Timestamp)
}

// PriceKey builds the identity key for a (token, network, timestamp) tuple.
func PriceKey(tokenAddress, network string, timestamp int64) string {
	return fmt.Sprintf("%s:%s:%d", tokenAddress, network, timestamp)
}

// PriceQuery is one append-only audit record, written for every resolved
// lookup and tagged with the tier that satisfied it.
type PriceQuery struct {
	TokenAddress  string    `json:"tokenAddress"`
	Network       string    `json:"network"`
	Timestamp     int64     `json:"timestamp"`
	ResolvedPrice *float64  `json:"resolvedPrice,omitempty"`
	Source        Source    `json:"source"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Resolution is the outcome of a successful price resolution.
type Resolution struct {
	Price     float64  `json:"price"`
	Source    Source   `json:"source"`
	MarketCap *float64 `json:"marketCap,omitempty"`
	Volume    *float64 `json:"volume,omitempty"`
}
