package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vitos/okx_trade_hook/internal/domain"
)

// ContractSizer converts coin quantities to contract counts using
// cached instrument metadata. The cache is filled once at startup from
// the SWAP and FUTURES categories and shared by the order handler and
// the monitor.
type ContractSizer struct {
	gateway domain.Gateway

	mu          sync.RWMutex
	instruments map[string]domain.Instrument
}

func NewContractSizer(gateway domain.Gateway) *ContractSizer {
	return &ContractSizer{
		gateway:     gateway,
		instruments: make(map[string]domain.Instrument),
	}
}

// LoadInstruments fetches and caches SWAP and FUTURES metadata. Both
// categories must load; a partial cache would silently misprice the
// missing category's requests.
func (s *ContractSizer) LoadInstruments(ctx context.Context) error {
	merged := make(map[string]domain.Instrument)
	for _, category := range []string{"SWAP", "FUTURES"} {
		instruments, err := s.gateway.GetInstruments(ctx, category)
		if err != nil {
			return fmt.Errorf("load %s instruments: %w", category, err)
		}
		for _, inst := range instruments {
			merged[strings.ToUpper(inst.InstID)] = inst
		}
	}

	s.mu.Lock()
	s.instruments = merged
	s.mu.Unlock()
	return nil
}

// Instrument returns cached metadata for an instrument id.
func (s *ContractSizer) Instrument(instID string) (domain.Instrument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instruments[strings.ToUpper(instID)]
	return inst, ok
}

// PricePrecision returns the number of decimal places of an
// instrument's tick size, for formatting trigger prices.
func (s *ContractSizer) PricePrecision(instID string) int {
	inst, ok := s.Instrument(instID)
	if !ok {
		return 0
	}
	if idx := strings.Index(inst.TickSize, "."); idx != -1 {
		for i, digit := range inst.TickSize[idx+1:] {
			if digit != '0' {
				return i + 1
			}
		}
	}
	return 0
}

// QuantityToContracts converts a coin quantity to a contract count.
//
// Linear (USDT-margined) contracts divide by face value only. Inverse
// (coin-margined, "-USD-" quote) contracts additionally scale by price;
// for market orders the live mark price replaces the reference price.
// The result truncates toward zero so rounding can never size a larger
// position than the quantity funds.
func (s *ContractSizer) QuantityToContracts(ctx context.Context, instID string, quantity, referencePrice float64, orderKind string) (int64, error) {
	instID = strings.ToUpper(instID)
	inst, ok := s.Instrument(instID)
	if !ok || inst.FaceValue == 0 {
		return 0, fmt.Errorf("%s: %w", instID, domain.ErrInstrumentNotFound)
	}

	sz := decimal.NewFromFloat(quantity).Div(decimal.NewFromFloat(inst.FaceValue))

	parts := strings.Split(instID, "-")
	if len(parts) >= 2 && parts[1] == "USD" {
		price := referencePrice
		if strings.EqualFold(orderKind, "market") {
			markPrice, err := s.gateway.GetMarkPrice(ctx, instID)
			if err != nil {
				return 0, err
			}
			price = markPrice
		}
		sz = sz.Mul(decimal.NewFromFloat(price))
	}

	return sz.IntPart(), nil
}

// TargetPrices computes take-profit and stop-loss targets from
// percentage offsets around the entry price.
func TargetPrices(entryPrice float64, side domain.Side, tpPercent, slPercent float64) (tp, sl float64) {
	if side == domain.SideBuy {
		return entryPrice * (1 + tpPercent), entryPrice * (1 - slPercent)
	}
	return entryPrice * (1 - tpPercent), entryPrice * (1 + slPercent)
}
