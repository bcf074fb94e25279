package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"volatility_bot/internal/models"
)

// Client — публичный market data OKX (REST + WebSocket), ключи не нужны.
type Client struct {
	http     *http.Client
	wsDialer *websocket.Dialer
	restURL  string
	wsURL    string

	// вызывается при подключении/обрыве WS
	onConnState func(connected bool)
}

func NewClient(restURL, wsURL string, timeout time.Duration) *Client {
	return &Client{
		http:     &http.Client{Timeout: timeout},
		wsDialer: &websocket.Dialer{HandshakeTimeout: timeout},
		restURL:  strings.TrimRight(restURL, "/"),
		wsURL:    wsURL,
	}
}

func (c *Client) OnConnState(fn func(connected bool)) { c.onConnState = fn }

type candlesResponse struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data [][]string `json:"data"`
}

// GetCandles — последние limit свечей по времени, включая формирующуюся.
// OKX отдаёт newest-first, разворачиваем и выкидываем дубли.
func (c *Client) GetCandles(ctx context.Context, inst models.InstrumentID, timeframe string, limit int) ([]models.Bar, error) {
	if limit <= 0 {
		limit = 100
	}
	bar, err := okxBar(timeframe)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/api/v5/market/candles?instId=%s&bar=%s&limit=%d",
		c.restURL, url.QueryEscape(inst.String()), url.QueryEscape(bar), limit,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(b))
	}

	var r candlesResponse
	if err := sonic.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode candles: %w", err)
	}
	if r.Code != "0" {
		return nil, fmt.Errorf("okx candles error: code=%s msg=%s", r.Code, r.Msg)
	}

	out := make([]models.Bar, 0, len(r.Data))
	for i := len(r.Data) - 1; i >= 0; i-- {
		b, _, err := parseRow(r.Data[i])
		if err != nil {
			continue
		}
		if n := len(out); n > 0 && !b.Time.After(out[n-1].Time) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// FetchBars — контракт фида: упорядоченная серия без дублей.
func (c *Client) FetchBars(ctx context.Context, inst models.InstrumentID, timeframe string, count int) (models.BarSeries, error) {
	bars, err := c.GetCandles(ctx, inst, timeframe, count)
	if err != nil {
		return models.BarSeries{}, fmt.Errorf("fetch %s %s: %w", inst, timeframe, err)
	}
	return models.NewBarSeries(inst, timeframe, bars)
}
