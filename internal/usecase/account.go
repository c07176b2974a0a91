package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/okx_trade_hook/internal/domain"
	"github.com/vitos/okx_trade_hook/internal/metrics"
	"github.com/vitos/okx_trade_hook/internal/notify"
)

// TdModeCross is the only margin mode the bot trades in.
const TdModeCross = "cross"

const notifyTimeout = 10 * time.Second

// Account bundles everything one trading account needs: its venue
// gateway, record store, contract sizer and notification channel. The
// order service and trailing monitor for the account share one
// instance.
type Account struct {
	Key      string
	Name     string
	Gateway  domain.Gateway
	Store    domain.RecordStore
	Sizer    *ContractSizer
	Notifier notify.Notifier
	Logger   *zap.Logger
	Metrics  *metrics.Recorder

	mu        sync.Mutex
	lastOrdID string
}

// SetLastOrder remembers the most recently placed entry order so a
// later "cancel" instruction can target it.
func (a *Account) SetLastOrder(ordID string) {
	a.mu.Lock()
	a.lastOrdID = ordID
	a.mu.Unlock()
}

// LastOrder returns the most recently placed entry order id, or the
// empty string when no order has been placed since startup.
func (a *Account) LastOrder() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastOrdID
}

// notify pushes a message on a best-effort basis. Delivery failures
// are logged and never surfaced to the caller.
func (a *Account) notify(title, message string) {
	if a.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := a.Notifier.Notify(ctx, title, message); err != nil {
		a.Logger.Warn("notification delivery failed",
			zap.String("account", a.Name),
			zap.String("title", title),
			zap.Error(err))
	}
}
