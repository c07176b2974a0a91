package usecase

import "strings"

// NormalizeSymbol maps an external signal spelling to the venue's
// canonical perpetual-swap instrument id:
//
//	BINANCE:BTCUSDT.P -> BTC-USDT-SWAP
//
// It strips any "prefix:" segment and a trailing ".P", then splits base
// from the USDT quote. Anything else passes through unchanged. The
// function is pure and total: any input maps to some output.
func NormalizeSymbol(s string) string {
	if idx := strings.Index(s, ":"); idx != -1 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(s, ".P")

	// Already-canonical ids (BTC-USDT-SWAP) contain separators and must
	// pass through untouched, or normalization would not be idempotent.
	if !strings.Contains(s, "-") && strings.Contains(s, "USDT") {
		base := strings.ReplaceAll(s, "USDT", "")
		return base + "-USDT-SWAP"
	}
	return s
}
