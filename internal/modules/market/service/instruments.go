package service

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"

	"volatility_bot/internal/models"
)

type instrumentsResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		InstID string `json:"instId"`
		State  string `json:"state"`
	} `json:"data"`
}

// LiveSwaps — все бессрочные свопы OKX в состоянии live.
func (c *Client) LiveSwaps(ctx context.Context) (map[models.InstrumentID]bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.restURL+"/api/v5/public/instruments?instType=SWAP", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(b))
	}

	var payload instrumentsResponse
	if err := sonic.Unmarshal(b, &payload); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if payload.Code != "0" {
		return nil, fmt.Errorf("okx error %s: %s", payload.Code, payload.Msg)
	}

	out := make(map[models.InstrumentID]bool, len(payload.Data))
	for _, d := range payload.Data {
		if d.State == "" || d.State == "live" {
			out[models.InstrumentID(d.InstID)] = true
		}
	}
	return out, nil
}

// Unknown — инструменты из списка, которых нет среди живых свопов.
func (c *Client) Unknown(ctx context.Context, insts []models.InstrumentID) ([]models.InstrumentID, error) {
	live, err := c.LiveSwaps(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.InstrumentID
	for _, inst := range insts {
		if !live[inst] {
			out = append(out, inst)
		}
	}
	return out, nil
}
