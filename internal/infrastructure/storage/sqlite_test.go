package storage_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitos/okx_trade_hook/internal/domain"
	"github.com/vitos/okx_trade_hook/internal/infrastructure/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadUnknownAccount(t *testing.T) {
	store := newTestStore(t)

	records, err := store.Load(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	records := map[string]*domain.SymbolRecord{
		"ETH-USDT-SWAP": {
			Leverage:            10,
			EntryPrice:          50000,
			TPPrice:             51500,
			SLPrice:             48500,
			OrdID:               "ord-1",
			AttachOID:           "attach-1",
			TrailProfit:         0.05,
			TrailProfit1Percent: 0.01,
			TrailProfitType:     2,
		},
		"BTC-USDT-SWAP": {
			Leverage:             5,
			EntryPrice:           90000,
			BoolTrailStop:        true,
			TrailStopActivation:  0.01,
			TrailStopCallback:    0.005,
			ActiveTrailStop:      true,
			TrailStopLowestPrice: domain.TrailStopLowestInit,
		},
	}
	require.NoError(t, store.Save(ctx, "acct-1", records))

	loaded, err := store.Load(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, records["ETH-USDT-SWAP"].TPPrice, loaded["ETH-USDT-SWAP"].TPPrice)
	assert.Equal(t, records["ETH-USDT-SWAP"].TrailProfitType, loaded["ETH-USDT-SWAP"].TrailProfitType)
	assert.True(t, loaded["BTC-USDT-SWAP"].ActiveTrailStop)
	assert.Equal(t, float64(domain.TrailStopLowestInit), loaded["BTC-USDT-SWAP"].TrailStopLowestPrice)
}

func TestSaveReplacesRecordSet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "acct-1", map[string]*domain.SymbolRecord{
		"ETH-USDT-SWAP": {EntryPrice: 50000},
		"BTC-USDT-SWAP": {EntryPrice: 90000},
	}))
	require.NoError(t, store.Save(ctx, "acct-1", map[string]*domain.SymbolRecord{
		"ETH-USDT-SWAP": {EntryPrice: 51000},
	}))

	loaded, err := store.Load(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 51000.0, loaded["ETH-USDT-SWAP"].EntryPrice)
}

func TestAccountsAreIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "acct-1", map[string]*domain.SymbolRecord{
		"ETH-USDT-SWAP": {EntryPrice: 50000},
	}))
	require.NoError(t, store.Save(ctx, "acct-2", map[string]*domain.SymbolRecord{
		"ETH-USDT-SWAP": {EntryPrice: 60000},
	}))

	first, err := store.Load(ctx, "acct-1")
	require.NoError(t, err)
	second, err := store.Load(ctx, "acct-2")
	require.NoError(t, err)
	assert.Equal(t, 50000.0, first["ETH-USDT-SWAP"].EntryPrice)
	assert.Equal(t, 60000.0, second["ETH-USDT-SWAP"].EntryPrice)
}

// Rows written by the previous deployment predate the tier-2/3 and
// callback-trailing fields; they must load with those features off.
func TestLoadLegacyRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	legacy := `{"ETH-USDT-SWAP":{"leverage":10,"entry_price":50000,"tp_price":51500,"sl_price":48500,` +
		`"ord_id":"ord-1","trail_profit":0.05,"trail_profit_slip":0.001,"trail_profit_1_percent":0.01}}`
	raw := map[string]*domain.SymbolRecord{}
	require.NoError(t, json.Unmarshal([]byte(legacy), &raw))
	require.NoError(t, store.Save(ctx, "acct-1", raw))

	loaded, err := store.Load(ctx, "acct-1")
	require.NoError(t, err)
	rec := loaded["ETH-USDT-SWAP"]
	require.NotNil(t, rec)
	assert.Equal(t, 0.05, rec.TrailProfit)
	assert.Zero(t, rec.TrailProfit2Activation)
	assert.Zero(t, rec.TrailProfit3Activation)
	assert.False(t, rec.BoolTrailStop)

	// Missing higher tiers never fire.
	tier, _ := rec.TierFor(0.50)
	assert.Equal(t, 1, tier)
}
