package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"volatility_bot/internal/models"
)

func timeframeToDuration(tf string) time.Duration {
	switch tf {
	case "1m":
		return time.Minute
	case "3m":
		return 3 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1H", "1h":
		return time.Hour
	case "4H", "4h":
		return 4 * time.Hour
	case "1D", "1d":
		return 24 * time.Hour
	default:
		return 0
	}
}

// okxBar приводит таймфрейм к написанию OKX: 1h -> 1H, 1d -> 1D.
func okxBar(tf string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(tf)) {
	case "1m", "3m", "5m", "15m", "30m":
		return strings.ToLower(strings.TrimSpace(tf)), nil
	case "60m", "1h":
		return "1H", nil
	case "2h":
		return "2H", nil
	case "4h":
		return "4H", nil
	case "6h":
		return "6H", nil
	case "12h":
		return "12H", nil
	case "1d":
		return "1D", nil
	case "1w":
		return "1W", nil
	}
	return "", fmt.Errorf("unsupported timeframe for OKX bar: %q", tf)
}

// parseRow: [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm].
// confirm берём из последнего элемента, строки короче 5 отбрасываем.
func parseRow(row []string) (bar models.Bar, confirmed bool, err error) {
	if len(row) < 5 {
		return models.Bar{}, false, fmt.Errorf("short candle row: %d fields", len(row))
	}

	tsMs, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return models.Bar{}, false, fmt.Errorf("candle ts %q: %w", row[0], err)
	}

	var px [4]float64
	for i := range px {
		px[i], err = strconv.ParseFloat(row[i+1], 64)
		if err != nil {
			return models.Bar{}, false, fmt.Errorf("candle field %d %q: %w", i+1, row[i+1], err)
		}
	}
	if px[3] <= 0 {
		return models.Bar{}, false, fmt.Errorf("non-positive close %v", px[3])
	}

	var vol float64
	if len(row) >= 6 {
		vol, _ = strconv.ParseFloat(row[5], 64)
	}

	bar = models.Bar{
		Time:   time.UnixMilli(tsMs).UTC(),
		Open:   px[0],
		High:   px[1],
		Low:    px[2],
		Close:  px[3],
		Volume: vol,
	}
	return bar, len(row) >= 9 && row[len(row)-1] == "1", nil
}
