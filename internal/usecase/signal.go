package usecase

import "strconv"

// Signal is the inbound webhook instruction. TradingView-style alerts
// deliver every value as a string, including numbers and booleans, so
// the wire struct keeps them as strings and parsing happens here.
type Signal struct {
	APIKey string `json:"api_key,omitempty"`

	Action string `json:"action"`
	// Side is the legacy field carrying "close" and "cancel"
	// instructions.
	Side string `json:"side,omitempty"`

	Symbol        string `json:"symbol"`
	Price         string `json:"price"`
	Quantity      string `json:"quantity"`
	OrderType     string `json:"order_type"`
	Leverage      string `json:"leverage"`
	TPPercent     string `json:"tp_percent"`
	SLPercent     string `json:"sl_percent"`
	TPSLOrderType string `json:"tp_sl_order_type"`
	UseAllMoney   string `json:"use_all_money"`
	TotalUSDT     string `json:"total_usdt,omitempty"`

	// EMA and EntryLimit ride along in the alert payload but do not
	// gate order placement.
	EMA        string `json:"ema,omitempty"`
	EntryLimit string `json:"entry_limit,omitempty"`

	TrailProfit            string `json:"trail_profit"`
	TrailProfitSlip        string `json:"trail_profit_slip"`
	TrailProfit1Percent    string `json:"trail_profit_1_percent"`
	TrailProfit2Percent    string `json:"trail_profit_2_percent"`
	TrailProfit2Activation string `json:"trail_profit_2_activation"`
	TrailProfit3Percent    string `json:"trail_profit_3_percent"`
	TrailProfit3Activation string `json:"trail_profit_3_activation"`

	TrailStopCallback   string `json:"trail_stop_callback"`
	TrailStopActivation string `json:"trail_stop_activation"`
	BoolTrailStop       string `json:"bool_trail_stop"`
}

// Response is the webhook reply body.
type Response struct {
	CancelLastOrder bool   `json:"cancelLastOrder"`
	ClosedPosition  bool   `json:"closedPosition"`
	CreateOrderRes  bool   `json:"createOrderRes"`
	Msg             string `json:"msg"`
}

// parseFloat reads a string-encoded number, defaulting to zero on any
// malformed or absent field.
func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

func parseBool(s string) bool {
	return s == "true"
}
