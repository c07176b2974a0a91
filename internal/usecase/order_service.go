package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitos/okx_trade_hook/internal/domain"
)

// Messages returned to the webhook caller. The wording is part of the
// contract: alert authors match on it.
const (
	msgMissingSide     = "Please specify side parameter"
	msgMissingPrice    = "Please specify price parameter"
	msgMissingLeverage = "Please specify leverage parameter"
	msgAmountTooSmall  = "Amount is too small. Please increase amount."
	msgOrderCreated    = "create order successfully"
)

// balanceReserve keeps a margin buffer when sizing off the whole
// available balance, so fees and a small adverse move cannot reject
// the order.
const balanceReserve = 0.95

// OrderService turns webhook signals into venue orders for one
// account.
type OrderService struct {
	acct *Account
}

func NewOrderService(acct *Account) *OrderService {
	return &OrderService{acct: acct}
}

// HandleSignal runs one instruction end to end and always returns a
// response body; venue failures surface in Msg rather than as errors.
func (s *OrderService) HandleSignal(ctx context.Context, sig Signal) Response {
	action := strings.ToLower(sig.Action)
	if action == "" {
		// Legacy alerts carry close/cancel in the side field.
		action = strings.ToLower(sig.Side)
	}

	switch action {
	case "buy", "sell":
		return s.openPosition(ctx, domain.Side(action), sig)
	case "close":
		return s.closePosition(ctx, sig)
	case "cancel":
		return s.cancelLastOrder(ctx, sig)
	default:
		s.acct.Metrics.RecordSignal(action, "rejected")
		return Response{Msg: msgMissingSide}
	}
}

func (s *OrderService) openPosition(ctx context.Context, side domain.Side, sig Signal) Response {
	var resp Response
	acct := s.acct
	symbol := NormalizeSymbol(sig.Symbol)
	price := parseFloat(sig.Price)
	leverage := parseInt(sig.Leverage)
	log := acct.Logger.With(
		zap.String("account", acct.Name),
		zap.String("symbol", symbol),
		zap.String("side", string(side)))

	// Entry price feeds target computation and balance sizing; a signal
	// without one cannot be priced.
	if price <= 0 {
		log.Info("signal missing price", zap.String("raw", sig.Price))
		acct.Metrics.RecordSignal(string(side), "rejected")
		resp.Msg = msgMissingPrice
		return resp
	}

	records, err := acct.Store.Load(ctx, acct.Key)
	if err != nil {
		log.Error("load symbol records failed", zap.Error(err))
		acct.Metrics.RecordSignal(string(side), "error")
		resp.Msg = err.Error()
		return resp
	}
	rec, ok := records[symbol]
	if !ok {
		rec = &domain.SymbolRecord{}
		records[symbol] = rec
	}

	if leverage > 0 && leverage != rec.Leverage {
		if err := acct.Gateway.SetLeverage(ctx, symbol, leverage, TdModeCross); err != nil {
			// Not fatal: the venue keeps the previous leverage and the
			// order still goes through.
			log.Warn("set leverage failed", zap.Int("leverage", leverage), zap.Error(err))
			acct.Metrics.RecordVenueError("SetLeverage")
		} else {
			rec.Leverage = leverage
		}
	}

	var posContracts float64
	positions, err := acct.Gateway.GetPositions(ctx, symbol)
	if err != nil {
		log.Warn("get positions failed", zap.Error(err))
		acct.Metrics.RecordVenueError("GetPositions")
	} else if len(positions) > 0 {
		posContracts = positions[0].Contracts
	}

	// A signal in the direction of the open position is a duplicate,
	// never a scale-in.
	if (side == domain.SideBuy && posContracts > 0) || (side == domain.SideSell && posContracts < 0) {
		log.Info("position already open in the same direction",
			zap.Float64("contracts", posContracts))
		acct.Metrics.RecordSignal(string(side), "duplicate")
		resp.Msg = fmt.Sprintf("position already open in the same direction (%v contracts)", math.Abs(posContracts))
		return resp
	}

	// Opposite-direction position: this signal is a reversal, close the
	// old position first.
	if posContracts != 0 {
		if err := acct.Gateway.ClosePosition(ctx, symbol, TdModeCross); err != nil {
			log.Error("close opposing position failed", zap.Error(err))
			acct.Metrics.RecordVenueError("ClosePosition")
			acct.notify("Close position failed", fmt.Sprintf("%s %s: %s", acct.Name, symbol, domain.VenueMessage(err)))
		} else {
			log.Info("closed opposing position", zap.Float64("contracts", posContracts))
			resp.ClosedPosition = true
		}
	}

	s.cancelStaleOrders(ctx, symbol, rec, log)

	quantity := parseFloat(sig.Quantity)
	if parseBool(sig.UseAllMoney) {
		if leverage <= 0 {
			log.Info("use_all_money signal missing leverage", zap.String("raw", sig.Leverage))
			acct.Metrics.RecordSignal(string(side), "rejected")
			resp.Msg = msgMissingLeverage
			return resp
		}
		avail, err := acct.Gateway.GetBalance(ctx, "USDT")
		if err != nil {
			log.Error("get balance failed", zap.Error(err))
			acct.Metrics.RecordVenueError("GetBalance")
			resp.Msg = domain.VenueMessage(err)
			return resp
		}
		quantity = avail * balanceReserve * float64(leverage) / price
	}

	sz, err := acct.Sizer.QuantityToContracts(ctx, symbol, quantity, price, sig.OrderType)
	if err != nil {
		log.Error("contract sizing failed", zap.Float64("quantity", quantity), zap.Error(err))
		acct.Metrics.RecordSignal(string(side), "error")
		resp.Msg = err.Error()
		return resp
	}
	if sz < 1 {
		log.Info("order below minimum size", zap.Float64("quantity", quantity))
		acct.Metrics.RecordSignal(string(side), "too_small")
		resp.Msg = msgAmountTooSmall
		return resp
	}

	tp, sl := TargetPrices(price, side, parseFloat(sig.TPPercent), parseFloat(sig.SLPercent))
	tpslType := domain.TPSLOrderType(sig.TPSLOrderType)
	tpOrdPx := float64(domain.MarketPriceSentinel)
	if tpslType == domain.TPSLLimit {
		tpOrdPx = tp
	}

	attachID := newClientOrderID()
	res, err := acct.Gateway.PlaceOrder(ctx, domain.OrderRequest{
		InstID:        symbol,
		TdMode:        TdModeCross,
		Side:          side,
		OrdType:       sig.OrderType,
		Price:         price,
		Size:          sz,
		TPTriggerPx:   tp,
		TPOrdPx:       tpOrdPx,
		SLTriggerPx:   sl,
		SLOrdPx:       domain.MarketPriceSentinel,
		AttachClOrdID: attachID,
	})
	if err != nil {
		log.Error("place order failed", zap.Int64("size", sz), zap.Error(err))
		acct.Metrics.RecordVenueError("PlaceOrder")
		acct.Metrics.RecordSignal(string(side), "error")
		acct.notify("Create order failed", fmt.Sprintf("%s %s %s: %s", acct.Name, symbol, side, domain.VenueMessage(err)))
		resp.Msg = domain.VenueMessage(err)
		return resp
	}

	log.Info("order placed",
		zap.String("ordId", res.OrdID),
		zap.Int64("size", sz),
		zap.Float64("price", price),
		zap.Float64("tp", tp),
		zap.Float64("sl", sl))
	acct.SetLastOrder(res.OrdID)
	acct.Metrics.RecordOrderPlaced(symbol, string(side))
	acct.Metrics.RecordSignal(string(side), "placed")

	rec.EntryPrice = price
	rec.TPPrice = tp
	rec.SLPrice = sl
	rec.OrdID = res.OrdID
	rec.AttachOID = attachID
	rec.TPSLOrderType = tpslType
	rec.TrailProfit = parseFloat(sig.TrailProfit)
	rec.TrailProfitSlip = parseFloat(sig.TrailProfitSlip)
	rec.TrailProfit1Percent = parseFloat(sig.TrailProfit1Percent)
	rec.TrailProfit2Percent = parseFloat(sig.TrailProfit2Percent)
	rec.TrailProfit2Activation = parseFloat(sig.TrailProfit2Activation)
	rec.TrailProfit3Percent = parseFloat(sig.TrailProfit3Percent)
	rec.TrailProfit3Activation = parseFloat(sig.TrailProfit3Activation)
	rec.TrailStopCallback = parseFloat(sig.TrailStopCallback)
	rec.TrailStopActivation = parseFloat(sig.TrailStopActivation)
	rec.BoolTrailStop = parseBool(sig.BoolTrailStop)
	rec.ResetTrailing()
	if err := acct.Store.Save(ctx, acct.Key, records); err != nil {
		// The order is live either way; a lost record only disables
		// trailing for this position.
		log.Error("save symbol records failed", zap.Error(err))
		acct.notify("Record save failed", fmt.Sprintf("%s %s: %s", acct.Name, symbol, err))
	}

	acct.notify("Order placed", fmt.Sprintf("%s %s %s sz=%d px=%v", acct.Name, symbol, side, sz, price))
	resp.CreateOrderRes = true
	resp.Msg = msgOrderCreated
	return resp
}

// cancelStaleOrders removes the previous entry order and its protective
// order before a new entry goes in. Failures are logged only: the most
// common cause is an order that already filled or expired.
func (s *OrderService) cancelStaleOrders(ctx context.Context, symbol string, rec *domain.SymbolRecord, log *zap.Logger) {
	acct := s.acct
	if rec.OrdID != "" {
		if err := acct.Gateway.CancelOrder(ctx, symbol, rec.OrdID); err != nil {
			log.Info("cancel stale entry order", zap.String("ordId", rec.OrdID), zap.Error(err))
		}
		rec.OrdID = ""
	}
	if rec.AttachOID != "" {
		algoID := rec.AttachOID
		if po, err := acct.Gateway.GetProtectiveOrder(ctx, rec.AttachOID); err == nil {
			algoID = po.AlgoID
		}
		if err := acct.Gateway.CancelProtectiveOrder(ctx, symbol, algoID); err != nil {
			log.Info("cancel stale protective order", zap.String("algoId", algoID), zap.Error(err))
		}
		rec.AttachOID = ""
	}
}

func (s *OrderService) closePosition(ctx context.Context, sig Signal) Response {
	var resp Response
	acct := s.acct
	symbol := NormalizeSymbol(sig.Symbol)

	if err := acct.Gateway.ClosePosition(ctx, symbol, TdModeCross); err != nil {
		acct.Logger.Error("close position failed",
			zap.String("account", acct.Name),
			zap.String("symbol", symbol),
			zap.Error(err))
		acct.Metrics.RecordVenueError("ClosePosition")
		acct.Metrics.RecordSignal("close", "error")
		acct.notify("Close position failed", fmt.Sprintf("%s %s: %s", acct.Name, symbol, domain.VenueMessage(err)))
		resp.Msg = domain.VenueMessage(err)
		return resp
	}

	acct.Logger.Info("position closed by signal",
		zap.String("account", acct.Name),
		zap.String("symbol", symbol))
	acct.Metrics.RecordSignal("close", "closed")
	acct.notify("Position closed", fmt.Sprintf("%s %s closed by signal", acct.Name, symbol))
	resp.ClosedPosition = true
	return resp
}

func (s *OrderService) cancelLastOrder(ctx context.Context, sig Signal) Response {
	var resp Response
	acct := s.acct
	symbol := NormalizeSymbol(sig.Symbol)

	ordID := acct.LastOrder()
	if ordID == "" {
		acct.Metrics.RecordSignal("cancel", "noop")
		resp.Msg = "no order to cancel"
		return resp
	}

	if err := acct.Gateway.CancelOrder(ctx, symbol, ordID); err != nil {
		acct.Logger.Error("cancel order failed",
			zap.String("account", acct.Name),
			zap.String("symbol", symbol),
			zap.String("ordId", ordID),
			zap.Error(err))
		acct.Metrics.RecordVenueError("CancelOrder")
		acct.Metrics.RecordSignal("cancel", "error")
		resp.Msg = domain.VenueMessage(err)
		return resp
	}

	acct.Logger.Info("order cancelled by signal",
		zap.String("account", acct.Name),
		zap.String("ordId", ordID))
	acct.Metrics.RecordSignal("cancel", "cancelled")
	resp.CancelLastOrder = true
	return resp
}

// newClientOrderID builds a venue-safe client order id: OKX allows up
// to 32 alphanumeric characters.
func newClientOrderID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
