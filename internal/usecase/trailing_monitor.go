package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/okx_trade_hook/internal/domain"
)

// TrailingMonitor watches one account's open positions and manages
// their exits: tiered stop-loss escalation by default, or a callback
// trailing stop when the position entered with bool_trail_stop set.
// It polls the venue forever at a fixed interval; every venue or
// store failure is retried implicitly on the next tick.
type TrailingMonitor struct {
	acct     *Account
	interval time.Duration
}

func NewTrailingMonitor(acct *Account, interval time.Duration) *TrailingMonitor {
	return &TrailingMonitor{acct: acct, interval: interval}
}

// Run polls until the context is cancelled.
func (m *TrailingMonitor) Run(ctx context.Context) {
	m.acct.Logger.Info("trailing monitor started",
		zap.String("account", m.acct.Name),
		zap.Duration("interval", m.interval))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		m.RunOnce(ctx)
		select {
		case <-ctx.Done():
			m.acct.Logger.Info("trailing monitor stopped", zap.String("account", m.acct.Name))
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs one full iteration over the account's positions. A
// panic in position handling is contained here so one bad record can
// never kill the monitor goroutine.
func (m *TrailingMonitor) RunOnce(ctx context.Context) {
	acct := m.acct
	start := time.Now()
	defer func() {
		acct.Metrics.RecordMonitorIteration(acct.Name, time.Since(start))
		if r := recover(); r != nil {
			acct.Logger.Error("monitor iteration panicked",
				zap.String("account", acct.Name),
				zap.Any("panic", r))
			acct.notify("Monitor panic", fmt.Sprintf("%s: %v", acct.Name, r))
		}
	}()

	positions, err := acct.Gateway.GetPositions(ctx, "")
	if err != nil {
		acct.Logger.Warn("monitor: get positions failed",
			zap.String("account", acct.Name), zap.Error(err))
		acct.Metrics.RecordVenueError("GetPositions")
		return
	}
	if len(positions) == 0 {
		return
	}

	records, err := acct.Store.Load(ctx, acct.Key)
	if err != nil {
		acct.Logger.Error("monitor: load symbol records failed",
			zap.String("account", acct.Name), zap.Error(err))
		return
	}

	for _, pos := range positions {
		if pos.Contracts == 0 {
			continue
		}
		rec, ok := records[pos.InstID]
		if !ok {
			// Position opened outside the bot; leave it alone.
			acct.Logger.Debug("monitor: no record for position",
				zap.String("account", acct.Name),
				zap.String("symbol", pos.InstID))
			continue
		}

		// The venue reports the P/L ratio scaled by leverage; normalize
		// it back to a price-move ratio.
		lev := rec.Leverage
		if lev == 0 {
			lev = pos.Leverage
		}
		if lev == 0 {
			lev = 1
		}
		profitRatio := pos.UplRatio / float64(lev)

		if rec.BoolTrailStop {
			m.trailByCallback(ctx, records, pos, rec, profitRatio)
		} else {
			m.escalateStop(ctx, records, pos, rec, profitRatio)
		}
	}
}

// escalateStop tightens the position's protective stop-loss when a
// profit tier is reached: amend the resting protective order in place,
// or recreate it when the original was consumed (the entry's attached
// leg disappears if the entry order was cancelled or replaced).
func (m *TrailingMonitor) escalateStop(ctx context.Context, records map[string]*domain.SymbolRecord, pos domain.Position, rec *domain.SymbolRecord, profitRatio float64) {
	acct := m.acct
	tier, percent := rec.TierFor(profitRatio)
	if tier == 0 {
		return
	}

	trigger := rec.StopTrigger(percent, pos.Long())
	log := acct.Logger.With(
		zap.String("account", acct.Name),
		zap.String("symbol", pos.InstID),
		zap.Int("tier", tier),
		zap.Float64("profitRatio", profitRatio),
		zap.Float64("trigger", trigger))
	log.Info("profit tier reached")

	if rec.AttachOID != "" {
		po, err := acct.Gateway.GetProtectiveOrder(ctx, rec.AttachOID)
		if err == nil {
			if err := acct.Gateway.AmendProtectiveStop(ctx, pos.InstID, rec.AttachOID, trigger); err != nil {
				log.Error("amend protective stop failed", zap.Error(err))
				acct.Metrics.RecordVenueError("AmendProtectiveStop")
				acct.notify("Stop escalation failed",
					fmt.Sprintf("%s %s tier %d: %s", acct.Name, pos.InstID, tier, domain.VenueMessage(err)))
				return
			}
			log.Info("protective stop amended", zap.Float64("previousTrigger", po.SLTriggerPx))
			m.commitTier(ctx, records, pos.InstID, rec, tier, trigger)
			return
		}
		log.Info("protective order not found, recreating", zap.Error(err))
	}

	m.recreateProtectiveOrder(ctx, records, pos, rec, tier, trigger, log)
}

// recreateProtectiveOrder cancels the stale entry order and places a
// fresh standalone OCO with the escalated stop.
func (m *TrailingMonitor) recreateProtectiveOrder(ctx context.Context, records map[string]*domain.SymbolRecord, pos domain.Position, rec *domain.SymbolRecord, tier int, trigger float64, log *zap.Logger) {
	acct := m.acct

	if rec.OrdID != "" {
		if err := acct.Gateway.CancelOrder(ctx, pos.InstID, rec.OrdID); err != nil {
			// Usually the order already filled; carry on and place the
			// protective order anyway.
			log.Info("cancel stale entry order", zap.String("ordId", rec.OrdID), zap.Error(err))
		}
		rec.OrdID = ""
	}

	tpTrigger := float64(domain.MarketPriceSentinel)
	tpOrd := float64(domain.MarketPriceSentinel)
	if rec.TPSLOrderType == domain.TPSLLimit && rec.TPPrice > 0 {
		tpTrigger = rec.TPPrice
		tpOrd = rec.TPPrice
	}

	clOrdID := newClientOrderID()
	entrySide := domain.SideBuy
	if !pos.Long() {
		entrySide = domain.SideSell
	}
	_, err := acct.Gateway.PlaceProtectiveOrder(ctx, domain.ProtectiveOrderRequest{
		InstID:      pos.InstID,
		TdMode:      TdModeCross,
		Side:        entrySide.Opposite(),
		Size:        math.Abs(pos.Contracts),
		ClOrdID:     clOrdID,
		TPTriggerPx: tpTrigger,
		TPOrdPx:     tpOrd,
		SLTriggerPx: trigger,
		SLOrdPx:     domain.MarketPriceSentinel,
	})
	if err != nil {
		log.Error("recreate protective order failed", zap.Error(err))
		acct.Metrics.RecordVenueError("PlaceProtectiveOrder")
		acct.notify("Stop escalation failed",
			fmt.Sprintf("%s %s tier %d: %s", acct.Name, pos.InstID, tier, domain.VenueMessage(err)))
		return
	}

	rec.AttachOID = clOrdID
	log.Info("protective order recreated", zap.String("clOrdId", clOrdID))
	m.commitTier(ctx, records, pos.InstID, rec, tier, trigger)
}

// commitTier records the escalation so the tier never re-fires, then
// persists and announces it.
func (m *TrailingMonitor) commitTier(ctx context.Context, records map[string]*domain.SymbolRecord, symbol string, rec *domain.SymbolRecord, tier int, trigger float64) {
	acct := m.acct
	rec.TrailProfitType = tier
	if err := acct.Store.Save(ctx, acct.Key, records); err != nil {
		acct.Logger.Error("monitor: save symbol records failed",
			zap.String("account", acct.Name),
			zap.String("symbol", symbol),
			zap.Error(err))
	}
	acct.Metrics.RecordStopEscalation(symbol, tier)
	acct.notify("Stop-loss escalated",
		fmt.Sprintf("%s %s tier %d, stop moved to %v", acct.Name, symbol, tier, trigger))
}

// trailByCallback implements the callback trailing stop: once profit
// crosses the activation ratio the monitor tracks the best price seen
// and closes the position at market when price retraces from the
// extremum by more than the callback fraction.
func (m *TrailingMonitor) trailByCallback(ctx context.Context, records map[string]*domain.SymbolRecord, pos domain.Position, rec *domain.SymbolRecord, profitRatio float64) {
	acct := m.acct
	if !rec.ActiveTrailStop {
		if profitRatio <= rec.TrailStopActivation {
			return
		}
		// Latched: the trail keeps running even if profit later dips
		// back under the activation ratio.
		rec.ActiveTrailStop = true
		if err := acct.Store.Save(ctx, acct.Key, records); err != nil {
			acct.Logger.Error("monitor: save symbol records failed",
				zap.String("account", acct.Name),
				zap.String("symbol", pos.InstID),
				zap.Error(err))
		}
		acct.Logger.Info("callback trailing activated",
			zap.String("account", acct.Name),
			zap.String("symbol", pos.InstID),
			zap.Float64("profitRatio", profitRatio))
	}

	mark, err := acct.Gateway.GetMarkPrice(ctx, pos.InstID)
	if err != nil {
		acct.Logger.Warn("monitor: get mark price failed",
			zap.String("account", acct.Name),
			zap.String("symbol", pos.InstID),
			zap.Error(err))
		acct.Metrics.RecordVenueError("GetMarkPrice")
		return
	}

	var retrace float64
	if pos.Long() {
		if mark > rec.TrailStopHighestPrice {
			rec.TrailStopHighestPrice = mark
			m.saveExtremum(ctx, records, pos.InstID)
			return
		}
		retrace = (rec.TrailStopHighestPrice - mark) / mark
	} else {
		if rec.TrailStopLowestPrice == 0 {
			// Records written before short trailing existed.
			rec.TrailStopLowestPrice = domain.TrailStopLowestInit
		}
		if mark < rec.TrailStopLowestPrice {
			rec.TrailStopLowestPrice = mark
			m.saveExtremum(ctx, records, pos.InstID)
			return
		}
		retrace = (mark - rec.TrailStopLowestPrice) / rec.TrailStopLowestPrice
	}

	if retrace <= rec.TrailStopCallback {
		return
	}

	log := acct.Logger.With(
		zap.String("account", acct.Name),
		zap.String("symbol", pos.InstID),
		zap.Float64("mark", mark),
		zap.Float64("retrace", retrace))
	if err := acct.Gateway.ClosePosition(ctx, pos.InstID, TdModeCross); err != nil {
		log.Error("trailing close failed", zap.Error(err))
		acct.Metrics.RecordVenueError("ClosePosition")
		acct.notify("Trailing close failed",
			fmt.Sprintf("%s %s: %s", acct.Name, pos.InstID, domain.VenueMessage(err)))
		return
	}
	log.Info("position closed by trailing stop")
	acct.Metrics.RecordTrailingClose(pos.InstID)
	acct.notify("Trailing stop closed position",
		fmt.Sprintf("%s %s at %v (retrace %.4f)", acct.Name, pos.InstID, mark, retrace))
}

func (m *TrailingMonitor) saveExtremum(ctx context.Context, records map[string]*domain.SymbolRecord, symbol string) {
	if err := m.acct.Store.Save(ctx, m.acct.Key, records); err != nil {
		m.acct.Logger.Error("monitor: save symbol records failed",
			zap.String("account", m.acct.Name),
			zap.String("symbol", symbol),
			zap.Error(err))
	}
}
