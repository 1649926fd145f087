package models

import "time"

// BehaviorPattern summarizes a participant's trading habits over their
// recent history. AvgHoldTime is nil until at least one buy-sell hold
// has been observed.
type BehaviorPattern struct {
	Participant      string
	AvgBuySize       float64
	AvgSellSize      float64
	TypicalBuySizes  []float64
	TypicalSellSizes []float64
	AvgHoldTime      *time.Duration
	MinHoldTime      time.Duration
	MaxHoldTime      time.Duration
	BuyCount         int
	SellCount        int
	LastUpdated      time.Time
}

const (
	SignalLargeBuyNoTest = "large_buy_no_test"
	SignalTestAfterLarge = "test_buy_after_large"
	SignalLongHold       = "unusually_long_hold"
	SignalOversizeBuy    = "oversize_buy"
)

const (
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// DeviationSignal is one fired heuristic for one transaction.
type DeviationSignal struct {
	Type     string
	Severity string
	Message  string
}
