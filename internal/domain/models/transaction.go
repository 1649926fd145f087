package models

import "time"

// TxKind is the direction of a swap.
type TxKind string

const (
	TxBuy  TxKind = "buy"
	TxSell TxKind = "sell"
)

// Transaction is one observed swap, identified by its on-chain
// signature. AssetAmount is in asset units, QuoteAmount in quote
// currency units.
type Transaction struct {
	Signature   string
	Participant string
	Asset       string
	Kind        TxKind
	AssetAmount float64
	QuoteAmount float64
	Price       float64
	MarketCap   float64
	Timestamp   time.Time
}

// Equal reports whether o carries the same content. Used to tell an
// idempotent replay apart from a signature collision.
func (t *Transaction) Equal(o *Transaction) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.Signature == o.Signature &&
		t.Participant == o.Participant &&
		t.Asset == o.Asset &&
		t.Kind == o.Kind &&
		t.AssetAmount == o.AssetAmount &&
		t.QuoteAmount == o.QuoteAmount &&
		t.Price == o.Price &&
		t.MarketCap == o.MarketCap &&
		t.Timestamp.Equal(o.Timestamp)
}

// Balance is the running position for one (participant, asset) pair.
// Quantity never goes negative; sells beyond the held quantity clamp
// at zero because observed history may be incomplete.
type Balance struct {
	Participant         string
	Asset               string
	Quantity            float64
	TotalCostBasis      float64
	TotalQuantityBought float64
	FirstBuySignature   string
	FirstBuyTimestamp   time.Time
	FirstBuyPrice       float64
	LastUpdated         time.Time
}
