package domain

// Side is the direction of an order or position.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the closing side for a position opened with s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Position is an open position as reported by the venue. Contracts is
// signed: positive for long, negative for short (net mode).
type Position struct {
	InstID    string
	Contracts float64
	AvgPrice  float64
	// UplRatio is the venue-reported unrealized P/L ratio, already
	// scaled by leverage.
	UplRatio float64
	Leverage int
}

// Long reports whether the position is long.
func (p Position) Long() bool { return p.Contracts > 0 }

// OrderRequest is an entry order with an optional attached protective
// (one-cancels-other) leg.
type OrderRequest struct {
	InstID  string
	TdMode  string
	Side    Side
	OrdType string // "market" or "limit"
	Price   float64
	Size    int64

	// Attached TP/SL leg. AttachClOrdID is the client-assigned id used
	// later to look the protective order up and amend its triggers.
	TPTriggerPx   float64
	TPOrdPx       float64
	SLTriggerPx   float64
	SLOrdPx       float64
	AttachClOrdID string
}

// OrderResult is the venue's acknowledgement of a placed entry order.
type OrderResult struct {
	OrdID string
}

// ProtectiveOrderRequest places a standalone OCO order against an
// already-open position. ClOrdID keeps the order addressable the same
// way an entry-attached leg is.
type ProtectiveOrderRequest struct {
	InstID      string
	TdMode      string
	Side        Side
	Size        float64
	ClOrdID     string
	TPTriggerPx float64
	TPOrdPx     float64
	SLTriggerPx float64
	SLOrdPx     float64
}

// ProtectiveOrder is the current state of a resting OCO order.
type ProtectiveOrder struct {
	AlgoID      string
	ClOrdID     string
	InstID      string
	TPTriggerPx float64
	SLTriggerPx float64
}

// Instrument is cached venue metadata used for contract sizing.
type Instrument struct {
	InstID    string
	FaceValue float64
	TickSize  string
}
