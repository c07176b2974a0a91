package domain

import "time"

// TPSLOrderType governs how protective-order legs are priced.
type TPSLOrderType string

const (
	TPSLMarket TPSLOrderType = "market"
	TPSLLimit  TPSLOrderType = "limit"
)

// MarketPriceSentinel is the protective-leg price signalling
// "execute at market once triggered" on the venue side.
const MarketPriceSentinel = -1

// TrailStopLowestInit is the initial lowest-price extremum for short
// positions, large enough that any real mark price replaces it.
const TrailStopLowestInit = 9999999

// SymbolRecord is the durable per-instrument state of an open (or
// recently-open) position: its protective order, trailing-profit tiers
// and callback-trailing progress. JSON field names match the legacy
// store format, so databases written by older deployments still load.
type SymbolRecord struct {
	Leverage   int     `json:"leverage"`
	EntryPrice float64 `json:"entry_price"`
	TPPrice    float64 `json:"tp_price"`
	SLPrice    float64 `json:"sl_price"`

	// OrdID is the resting entry order, AttachOID the client id of the
	// attached take-profit/stop-loss order. AttachOID may be empty when
	// the protective order was never confirmed.
	OrdID     string `json:"ord_id,omitempty"`
	AttachOID string `json:"attach_oid,omitempty"`

	TPSLOrderType TPSLOrderType `json:"tp_sl_order_type"`

	// Tiered stop escalation. TrailProfit is the tier-1 activation
	// ratio; its stop offset is TrailProfit1Percent. Tiers 2 and 3
	// carry explicit activation/percent pairs. TrailProfitType records
	// the highest tier already applied and never decreases within a
	// position's life.
	TrailProfit            float64 `json:"trail_profit"`
	TrailProfitSlip        float64 `json:"trail_profit_slip"`
	TrailProfit1Percent    float64 `json:"trail_profit_1_percent"`
	TrailProfit2Percent    float64 `json:"trail_profit_2_percent"`
	TrailProfit2Activation float64 `json:"trail_profit_2_activation"`
	TrailProfit3Percent    float64 `json:"trail_profit_3_percent"`
	TrailProfit3Activation float64 `json:"trail_profit_3_activation"`
	TrailProfitType        int     `json:"trail_profit_type"`

	// Callback trailing stop. A position runs either tier escalation or
	// callback trailing, selected by BoolTrailStop at entry and never
	// switched mid-position.
	BoolTrailStop         bool    `json:"bool_trail_stop"`
	TrailStopActivation   float64 `json:"trail_stop_activation"`
	TrailStopCallback     float64 `json:"trail_stop_callback"`
	ActiveTrailStop       bool    `json:"active_trail_stop"`
	TrailStopHighestPrice float64 `json:"trail_stop_highest_price"`
	TrailStopLowestPrice  float64 `json:"trail_stop_lowest_price"`

	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// ResetTrailing returns the record to its initial trailing state. Called
// exactly once per position life, when a new entry order is created.
func (r *SymbolRecord) ResetTrailing() {
	r.TrailProfitType = 0
	r.ActiveTrailStop = false
	r.TrailStopHighestPrice = 0
	r.TrailStopLowestPrice = TrailStopLowestInit
}

// TierFor returns the winning escalation tier and its stop offset for
// the given leverage-normalized profit ratio, or tier 0 when no tier
// qualifies. Tiers are evaluated descending so a large profit jump lands
// directly on the highest tier; a tier at or below TrailProfitType never
// re-fires. A tier whose activation is zero (legacy records written
// before that tier existed) is treated as inactive.
func (r *SymbolRecord) TierFor(profitRatio float64) (tier int, percent float64) {
	switch {
	case r.TrailProfit3Activation > 0 && profitRatio >= r.TrailProfit3Activation && r.TrailProfitType < 3:
		return 3, r.TrailProfit3Percent
	case r.TrailProfit2Activation > 0 && profitRatio >= r.TrailProfit2Activation && r.TrailProfitType < 2:
		return 2, r.TrailProfit2Percent
	case r.TrailProfit > 0 && profitRatio >= r.TrailProfit && r.TrailProfitType < 1:
		return 1, r.TrailProfit1Percent
	}
	return 0, 0
}

// StopTrigger computes the escalated stop-loss trigger price for a tier
// offset: longs tighten upward from entry, shorts downward, with the
// configured slippage fraction applied on top.
func (r *SymbolRecord) StopTrigger(percent float64, long bool) float64 {
	if long {
		return r.EntryPrice * (1 + percent) * (1 + r.TrailProfitSlip)
	}
	return r.EntryPrice * (1 - percent) * (1 - r.TrailProfitSlip)
}
