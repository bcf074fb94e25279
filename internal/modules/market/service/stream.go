package service

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"volatility_bot/internal/models"
	"volatility_bot/pkg/logger"
)

const (
	wsPingInterval   = 20 * time.Second
	wsReconnectDelay = time.Second
)

// Candle — одна свеча из WS, Confirmed=false для формирующейся.
type Candle struct {
	Instrument models.InstrumentID
	Bar        models.Bar
	Confirmed  bool
}

type wsFrame struct {
	Arg struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Event string     `json:"event"`
	Msg   string     `json:"msg"`
	Data  [][]string `json:"data"`
}

// StreamCandles — один WebSocket на таймфрейм со всеми инструментами в args.
// Переподключается до отмены ctx, канал закрывается на выходе.
func (c *Client) StreamCandles(ctx context.Context, insts []models.InstrumentID, timeframe string) <-chan Candle {
	ch := make(chan Candle)

	go func() {
		defer close(ch)

		if len(insts) == 0 {
			return
		}
		bar, err := okxBar(timeframe)
		if err != nil {
			logger.Error("[WS] %v", err)
			return
		}
		channel := "candle" + bar

		args := make([]map[string]string, 0, len(insts))
		for _, id := range insts {
			args = append(args, map[string]string{
				"channel": channel,
				"instId":  id.String(),
			})
		}

		for {
			if err := c.streamOnce(ctx, channel, args, ch); err != nil {
				logger.Warn("[WS] %s: %v", channel, err)
			}
			c.connState(false)

			select {
			case <-ctx.Done():
				return
			case <-time.After(wsReconnectDelay):
			}
		}
	}()

	return ch
}

func (c *Client) connState(up bool) {
	if c.onConnState != nil {
		c.onConnState(up)
	}
}

func (c *Client) streamOnce(ctx context.Context, channel string, args []map[string]string, out chan<- Candle) error {
	logger.Info("[WS] connect %s %d symbols", channel, len(args))
	conn, _, err := c.wsDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"op": "subscribe", "args": args}); err != nil {
		return err
	}
	c.connState(true)

	done := make(chan struct{})
	defer close(done)

	// без ping OKX рвёт соединение с 4004; ReadMessage разблокирует закрытие conn по ctx
	go func() {
		t := time.NewTicker(wsPingInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(time.Second))
				_ = conn.Close()
				return
			case <-done:
				return
			case <-t.C:
				if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		candles, ok := decodeFrame(msg, channel)
		if !ok {
			continue
		}
		for _, cd := range candles {
			select {
			case out <- cd:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// decodeFrame разбирает push OKX; pong, события подписки и битые строки пропускаются.
func decodeFrame(msg []byte, channel string) ([]Candle, bool) {
	if string(msg) == "pong" {
		return nil, false
	}

	var f wsFrame
	if err := sonic.Unmarshal(msg, &f); err != nil {
		return nil, false
	}
	if f.Event == "error" {
		logger.Warn("[WS] okx error: %s", f.Msg)
		return nil, false
	}
	if f.Arg.Channel != channel || len(f.Data) == 0 {
		return nil, false
	}

	out := make([]Candle, 0, len(f.Data))
	for _, row := range f.Data {
		bar, confirmed, err := parseRow(row)
		if err != nil {
			continue
		}
		out = append(out, Candle{
			Instrument: models.InstrumentID(f.Arg.InstID),
			Bar:        bar,
			Confirmed:  confirmed,
		})
	}
	return out, len(out) > 0
}
