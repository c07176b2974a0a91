package usecase_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/vitos/okx_trade_hook/internal/domain"
	"github.com/vitos/okx_trade_hook/internal/metrics"
	"github.com/vitos/okx_trade_hook/internal/usecase"
)

// mockGateway is an in-memory venue: positions, balance and protective
// orders live in maps, and every mutating call is recorded for
// assertions. ClosePosition removes the position, so a monitor loop
// sees the same position disappear the way it would on the real venue.
type mockGateway struct {
	mu sync.Mutex

	positions    []domain.Position
	positionsErr error
	balance      float64
	instruments  []domain.Instrument
	markPrices   []float64
	markIdx      int

	protective map[string]*domain.ProtectiveOrder
	nextAlgoID int
	nextOrdID  int

	placedOrders     []domain.OrderRequest
	placedProtective []domain.ProtectiveOrderRequest
	amendedStops     []float64
	cancelledOrders  []string
	cancelledAlgos   []string
	closedInstIDs    []string
	leverageSet      int

	placeOrderErr      error
	placeProtectiveErr error
	closeErr           error
	amendErr           error
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		protective: make(map[string]*domain.ProtectiveOrder),
	}
}

func (m *mockGateway) GetPositions(ctx context.Context, instID string) ([]domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.positionsErr != nil {
		return nil, m.positionsErr
	}
	if instID == "" {
		return append([]domain.Position(nil), m.positions...), nil
	}
	var out []domain.Position
	for _, p := range m.positions {
		if p.InstID == instID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockGateway) GetBalance(ctx context.Context, ccy string) (float64, error) {
	return m.balance, nil
}

func (m *mockGateway) GetInstruments(ctx context.Context, category string) ([]domain.Instrument, error) {
	return m.instruments, nil
}

func (m *mockGateway) GetMarkPrice(ctx context.Context, instID string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.markPrices) == 0 {
		return 0, fmt.Errorf("no mark price configured")
	}
	px := m.markPrices[m.markIdx]
	if m.markIdx < len(m.markPrices)-1 {
		m.markIdx++
	}
	return px, nil
}

func (m *mockGateway) SetLeverage(ctx context.Context, instID string, leverage int, tdMode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leverageSet = leverage
	return nil
}

func (m *mockGateway) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.placeOrderErr != nil {
		return domain.OrderResult{}, m.placeOrderErr
	}
	m.placedOrders = append(m.placedOrders, req)
	m.nextOrdID++
	if req.AttachClOrdID != "" {
		m.nextAlgoID++
		m.protective[req.AttachClOrdID] = &domain.ProtectiveOrder{
			AlgoID:      fmt.Sprintf("algo-%d", m.nextAlgoID),
			ClOrdID:     req.AttachClOrdID,
			InstID:      req.InstID,
			TPTriggerPx: req.TPTriggerPx,
			SLTriggerPx: req.SLTriggerPx,
		}
	}
	return domain.OrderResult{OrdID: fmt.Sprintf("ord-%d", m.nextOrdID)}, nil
}

func (m *mockGateway) CancelOrder(ctx context.Context, instID, ordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelledOrders = append(m.cancelledOrders, ordID)
	return nil
}

func (m *mockGateway) ClosePosition(ctx context.Context, instID, tdMode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closeErr != nil {
		return m.closeErr
	}
	m.closedInstIDs = append(m.closedInstIDs, instID)
	kept := m.positions[:0]
	for _, p := range m.positions {
		if p.InstID != instID {
			kept = append(kept, p)
		}
	}
	m.positions = kept
	return nil
}

func (m *mockGateway) PlaceProtectiveOrder(ctx context.Context, req domain.ProtectiveOrderRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.placeProtectiveErr != nil {
		return "", m.placeProtectiveErr
	}
	m.placedProtective = append(m.placedProtective, req)
	m.nextAlgoID++
	algoID := fmt.Sprintf("algo-%d", m.nextAlgoID)
	m.protective[req.ClOrdID] = &domain.ProtectiveOrder{
		AlgoID:      algoID,
		ClOrdID:     req.ClOrdID,
		InstID:      req.InstID,
		TPTriggerPx: req.TPTriggerPx,
		SLTriggerPx: req.SLTriggerPx,
	}
	return algoID, nil
}

func (m *mockGateway) GetProtectiveOrder(ctx context.Context, clOrdID string) (*domain.ProtectiveOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	po, ok := m.protective[clOrdID]
	if !ok {
		return nil, &domain.VenueError{Op: "GetProtectiveOrder", Code: "51603", Msg: "order does not exist"}
	}
	cp := *po
	return &cp, nil
}

func (m *mockGateway) CancelProtectiveOrder(ctx context.Context, instID, algoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelledAlgos = append(m.cancelledAlgos, algoID)
	for id, po := range m.protective {
		if po.AlgoID == algoID {
			delete(m.protective, id)
		}
	}
	return nil
}

func (m *mockGateway) AmendProtectiveStop(ctx context.Context, instID, clOrdID string, newSLTriggerPx float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.amendErr != nil {
		return m.amendErr
	}
	po, ok := m.protective[clOrdID]
	if !ok {
		return &domain.VenueError{Op: "AmendProtectiveStop", Code: "51603", Msg: "order does not exist"}
	}
	po.SLTriggerPx = newSLTriggerPx
	m.amendedStops = append(m.amendedStops, newSLTriggerPx)
	return nil
}

// memStore keeps records per account in memory, deep-copying on both
// Load and Save so only a Save call makes mutations durable.
type memStore struct {
	mu    sync.Mutex
	data  map[string][]byte
	saves int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Load(ctx context.Context, accountKey string) (map[string]*domain.SymbolRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make(map[string]*domain.SymbolRecord)
	if raw, ok := s.data[accountKey]; ok {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *memStore) Save(ctx context.Context, accountKey string, records map[string]*domain.SymbolRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}
	s.data[accountKey] = raw
	s.saves++
	return nil
}

// newTestAccount wires a full account over the mocks, with the sizer
// cache preloaded from the gateway's instrument list.
func newTestAccount(t *testing.T, gw *mockGateway, store *memStore) *usecase.Account {
	t.Helper()
	sizer := usecase.NewContractSizer(gw)
	if len(gw.instruments) > 0 {
		if err := sizer.LoadInstruments(context.Background()); err != nil {
			t.Fatalf("LoadInstruments failed: %v", err)
		}
	}
	return &usecase.Account{
		Key:     "test-key",
		Name:    "test",
		Gateway: gw,
		Store:   store,
		Sizer:   sizer,
		Logger:  zap.NewNop(),
		Metrics: metrics.NewRecorder(),
	}
}
