package domain

import "context"

// Gateway executes venue operations for one account. Every call is
// synchronous; a non-success venue response surfaces as *VenueError and
// a transport failure as a plain error. The gateway never retries —
// retry policy lives with the callers (the monitor re-attempts on its
// next poll).
type Gateway interface {
	// GetPositions returns open positions, optionally filtered by
	// instrument id (empty instID means all).
	GetPositions(ctx context.Context, instID string) ([]Position, error)
	// GetBalance returns the available balance of the given currency.
	GetBalance(ctx context.Context, ccy string) (float64, error)
	// GetInstruments returns instrument metadata for a category
	// ("SWAP" or "FUTURES").
	GetInstruments(ctx context.Context, category string) ([]Instrument, error)
	// GetMarkPrice returns the current mark price of a swap instrument.
	GetMarkPrice(ctx context.Context, instID string) (float64, error)

	SetLeverage(ctx context.Context, instID string, leverage int, tdMode string) error
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	CancelOrder(ctx context.Context, instID, ordID string) error
	ClosePosition(ctx context.Context, instID, tdMode string) error

	PlaceProtectiveOrder(ctx context.Context, req ProtectiveOrderRequest) (algoID string, err error)
	// GetProtectiveOrder looks a resting OCO order up by its
	// client-assigned id.
	GetProtectiveOrder(ctx context.Context, clOrdID string) (*ProtectiveOrder, error)
	CancelProtectiveOrder(ctx context.Context, instID, algoID string) error
	AmendProtectiveStop(ctx context.Context, instID, clOrdID string, newSLTriggerPx float64) error
}

// RecordStore persists the per-account symbol record set. Load and Save
// each run inside their own transaction; callers treat load-mutate-save
// as the unit of work and accept that a monitor iteration and an inbound
// order may interleave (record fields are monotonic by design).
type RecordStore interface {
	Load(ctx context.Context, accountKey string) (map[string]*SymbolRecord, error)
	Save(ctx context.Context, accountKey string, records map[string]*SymbolRecord) error
}
