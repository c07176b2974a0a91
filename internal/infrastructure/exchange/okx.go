package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/vitos/okx_trade_hook/internal/domain"
)

const OKXBaseURL = "https://www.okx.com"

// OKXAdapter implements domain.Gateway against the OKX v5 REST API for
// a single account. Calls are rate-limited client-side; OKX throttles
// per endpoint and a burst of monitor iterations must not trip it.
type OKXAdapter struct {
	apiKey     string
	apiSecret  string
	passphrase string
	baseURL    string
	simulated  bool
	client     *http.Client
	limiter    *rate.Limiter
}

func NewOKXAdapter(apiKey, apiSecret, passphrase, baseURL string, simulated bool) *OKXAdapter {
	if baseURL == "" {
		baseURL = OKXBaseURL
	}
	return &OKXAdapter{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		passphrase: passphrase,
		baseURL:    baseURL,
		simulated:  simulated,
		client:     &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
	}
}

// --- REST plumbing ---

func (o *OKXAdapter) sign(timestamp, method, path string, body []byte) string {
	// timestamp + method + requestPath + body, HMAC-SHA256, base64
	h := hmac.New(sha256.New, []byte(o.apiSecret))
	h.Write([]byte(timestamp + method + path))
	h.Write(body)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func (o *OKXAdapter) sendRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, o.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	req.Header.Set("OK-ACCESS-KEY", o.apiKey)
	req.Header.Set("OK-ACCESS-SIGN", o.sign(timestamp, method, path, body))
	req.Header.Set("OK-ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("OK-ACCESS-PASSPHRASE", o.passphrase)
	req.Header.Set("Content-Type", "application/json")
	if o.simulated {
		req.Header.Set("x-simulated-trading", "1")
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("okx http %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// envelope is the common OKX v5 response wrapper.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// call sends the request and unwraps the envelope, converting a
// non-success code into *domain.VenueError.
func (o *OKXAdapter) call(ctx context.Context, op, method, path string, payload any) (json.RawMessage, error) {
	respBody, err := o.sendRequest(ctx, method, path, payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if env.Code != "0" {
		msg := env.Msg
		// Trade endpoints bury the useful message per order item.
		if s := itemMessage(env.Data); s != "" {
			msg = s
		}
		return nil, &domain.VenueError{Op: op, Code: env.Code, Msg: msg}
	}
	return env.Data, nil
}

func itemMessage(data json.RawMessage) string {
	var items []struct {
		SCode string `json:"sCode"`
		SMsg  string `json:"sMsg"`
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return ""
	}
	for _, it := range items {
		if it.SCode != "" && it.SCode != "0" {
			return it.SMsg
		}
	}
	return ""
}

// --- Gateway implementation ---

func (o *OKXAdapter) GetPositions(ctx context.Context, instID string) ([]domain.Position, error) {
	path := "/api/v5/account/positions"
	if instID != "" {
		path += "?instId=" + instID
	}
	data, err := o.call(ctx, "GetPositions", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		InstID   string `json:"instId"`
		Pos      string `json:"pos"`
		AvgPx    string `json:"avgPx"`
		UplRatio string `json:"uplRatio"`
		Lever    string `json:"lever"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("GetPositions: decode data: %w", err)
	}

	positions := make([]domain.Position, 0, len(raw))
	for _, p := range raw {
		pos, _ := strconv.ParseFloat(p.Pos, 64)
		avg, _ := strconv.ParseFloat(p.AvgPx, 64)
		upl, _ := strconv.ParseFloat(p.UplRatio, 64)
		lever, _ := strconv.Atoi(p.Lever)
		positions = append(positions, domain.Position{
			InstID:    p.InstID,
			Contracts: pos,
			AvgPrice:  avg,
			UplRatio:  upl,
			Leverage:  lever,
		})
	}
	return positions, nil
}

func (o *OKXAdapter) GetBalance(ctx context.Context, ccy string) (float64, error) {
	data, err := o.call(ctx, "GetBalance", http.MethodGet, "/api/v5/account/balance?ccy="+ccy, nil)
	if err != nil {
		return 0, err
	}

	var raw []struct {
		Details []struct {
			Ccy      string `json:"ccy"`
			AvailBal string `json:"availBal"`
		} `json:"details"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, fmt.Errorf("GetBalance: decode data: %w", err)
	}
	for _, acct := range raw {
		for _, d := range acct.Details {
			if d.Ccy == ccy {
				return strconv.ParseFloat(d.AvailBal, 64)
			}
		}
	}
	return 0, fmt.Errorf("GetBalance: no %s balance in response", ccy)
}

func (o *OKXAdapter) GetInstruments(ctx context.Context, category string) ([]domain.Instrument, error) {
	data, err := o.call(ctx, "GetInstruments", http.MethodGet, "/api/v5/public/instruments?instType="+category, nil)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		InstID string `json:"instId"`
		CtVal  string `json:"ctVal"`
		TickSz string `json:"tickSz"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("GetInstruments: decode data: %w", err)
	}

	instruments := make([]domain.Instrument, 0, len(raw))
	for _, i := range raw {
		faceValue, _ := strconv.ParseFloat(i.CtVal, 64)
		instruments = append(instruments, domain.Instrument{
			InstID:    i.InstID,
			FaceValue: faceValue,
			TickSize:  i.TickSz,
		})
	}
	return instruments, nil
}

func (o *OKXAdapter) GetMarkPrice(ctx context.Context, instID string) (float64, error) {
	path := "/api/v5/public/mark-price?instType=SWAP&instId=" + instID
	data, err := o.call(ctx, "GetMarkPrice", http.MethodGet, path, nil)
	if err != nil {
		return 0, err
	}

	var raw []struct {
		MarkPx string `json:"markPx"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, fmt.Errorf("GetMarkPrice: decode data: %w", err)
	}
	if len(raw) == 0 {
		return 0, fmt.Errorf("GetMarkPrice: empty data for %s", instID)
	}
	return strconv.ParseFloat(raw[0].MarkPx, 64)
}

func (o *OKXAdapter) SetLeverage(ctx context.Context, instID string, leverage int, tdMode string) error {
	payload := map[string]string{
		"instId":  instID,
		"lever":   strconv.Itoa(leverage),
		"mgnMode": tdMode,
	}
	_, err := o.call(ctx, "SetLeverage", http.MethodPost, "/api/v5/account/set-leverage", payload)
	return err
}

func (o *OKXAdapter) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	attach := []map[string]string{{
		"tpTriggerPx":       formatPx(req.TPTriggerPx),
		"tpOrdPx":           formatPx(req.TPOrdPx),
		"slTriggerPx":       formatPx(req.SLTriggerPx),
		"slOrdPx":           formatPx(req.SLOrdPx),
		"attachAlgoClOrdId": req.AttachClOrdID,
	}}
	payload := map[string]any{
		"instId":         req.InstID,
		"tdMode":         req.TdMode,
		"side":           string(req.Side),
		"ordType":        req.OrdType,
		"px":             formatPx(req.Price),
		"sz":             strconv.FormatInt(req.Size, 10),
		"attachAlgoOrds": attach,
	}

	data, err := o.call(ctx, "PlaceOrder", http.MethodPost, "/api/v5/trade/order", payload)
	if err != nil {
		return domain.OrderResult{}, err
	}

	var raw []struct {
		OrdID string `json:"ordId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil || len(raw) == 0 {
		return domain.OrderResult{}, fmt.Errorf("PlaceOrder: decode data: %w", err)
	}
	return domain.OrderResult{OrdID: raw[0].OrdID}, nil
}

func (o *OKXAdapter) CancelOrder(ctx context.Context, instID, ordID string) error {
	payload := map[string]string{"instId": instID, "ordId": ordID}
	_, err := o.call(ctx, "CancelOrder", http.MethodPost, "/api/v5/trade/cancel-order", payload)
	return err
}

func (o *OKXAdapter) ClosePosition(ctx context.Context, instID, tdMode string) error {
	payload := map[string]any{
		"instId":  instID,
		"mgnMode": tdMode,
		"autoCxl": true,
	}
	_, err := o.call(ctx, "ClosePosition", http.MethodPost, "/api/v5/trade/close-position", payload)
	return err
}

func (o *OKXAdapter) PlaceProtectiveOrder(ctx context.Context, req domain.ProtectiveOrderRequest) (string, error) {
	payload := map[string]string{
		"instId":      req.InstID,
		"tdMode":      req.TdMode,
		"side":        string(req.Side),
		"ordType":     "oco",
		"algoClOrdId": req.ClOrdID,
		"sz":          strconv.FormatFloat(req.Size, 'f', -1, 64),
		"tpTriggerPx": formatPx(req.TPTriggerPx),
		"tpOrdPx":     formatPx(req.TPOrdPx),
		"slTriggerPx": formatPx(req.SLTriggerPx),
		"slOrdPx":     formatPx(req.SLOrdPx),
	}

	data, err := o.call(ctx, "PlaceProtectiveOrder", http.MethodPost, "/api/v5/trade/order-algo", payload)
	if err != nil {
		return "", err
	}

	var raw []struct {
		AlgoID string `json:"algoId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil || len(raw) == 0 {
		return "", fmt.Errorf("PlaceProtectiveOrder: decode data: %w", err)
	}
	return raw[0].AlgoID, nil
}

func (o *OKXAdapter) GetProtectiveOrder(ctx context.Context, clOrdID string) (*domain.ProtectiveOrder, error) {
	path := "/api/v5/trade/order-algo?algoClOrdId=" + clOrdID
	data, err := o.call(ctx, "GetProtectiveOrder", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		AlgoID      string `json:"algoId"`
		AlgoClOrdID string `json:"algoClOrdId"`
		InstID      string `json:"instId"`
		TPTriggerPx string `json:"tpTriggerPx"`
		SLTriggerPx string `json:"slTriggerPx"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("GetProtectiveOrder: decode data: %w", err)
	}
	if len(raw) == 0 {
		return nil, &domain.VenueError{Op: "GetProtectiveOrder", Code: "51603", Msg: "order does not exist"}
	}

	tp, _ := strconv.ParseFloat(raw[0].TPTriggerPx, 64)
	sl, _ := strconv.ParseFloat(raw[0].SLTriggerPx, 64)
	return &domain.ProtectiveOrder{
		AlgoID:      raw[0].AlgoID,
		ClOrdID:     raw[0].AlgoClOrdID,
		InstID:      raw[0].InstID,
		TPTriggerPx: tp,
		SLTriggerPx: sl,
	}, nil
}

func (o *OKXAdapter) CancelProtectiveOrder(ctx context.Context, instID, algoID string) error {
	payload := []map[string]string{{"algoId": algoID, "instId": instID}}
	_, err := o.call(ctx, "CancelProtectiveOrder", http.MethodPost, "/api/v5/trade/cancel-algos", payload)
	return err
}

func (o *OKXAdapter) AmendProtectiveStop(ctx context.Context, instID, clOrdID string, newSLTriggerPx float64) error {
	payload := map[string]string{
		"instId":         instID,
		"algoClOrdId":    clOrdID,
		"newSlTriggerPx": formatPx(newSLTriggerPx),
	}
	_, err := o.call(ctx, "AmendProtectiveStop", http.MethodPost, "/api/v5/trade/amend-algos", payload)
	return err
}

// formatPx renders a price for the wire. The -1 sentinel must survive
// as exactly "-1" so the venue reads it as "market on trigger".
func formatPx(px float64) string {
	return strconv.FormatFloat(px, 'f', -1, 64)
}
