package service

import (
	"fmt"
	"strings"

	"volatility_bot/internal/models"
	"volatility_bot/internal/notify"
)

func formatStatus(st models.Stats, positions []models.Position) string {
	var b strings.Builder
	b.WriteString("📊 Статус\n\n")
	b.WriteString(notify.StatsText(st))
	if len(positions) > 0 {
		b.WriteString("\n\n")
		b.WriteString(formatPositions(positions))
	}
	return b.String()
}

func formatPositions(positions []models.Position) string {
	if len(positions) == 0 {
		return "📭 Открытых позиций нет"
	}

	var b strings.Builder
	b.WriteString("📂 Открытые позиции:\n")
	for _, p := range positions {
		fmt.Fprintf(&b, "- %s [%s] @ %s margin=$%s SL=%s TP1=%s TP2=%s",
			p.Instrument, strings.ToUpper(string(p.Side)), px(p.EntryPrice), f2(p.Margin),
			px(p.StopLoss), px(p.TP1), px(p.TP2))
		if p.PartialTaken {
			b.WriteString(" ½")
		}
		if p.TrailingStop != nil {
			fmt.Fprintf(&b, " trail=%s", px(*p.TrailingStop))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatIndicators(inst models.InstrumentID, f models.DerivedFrame) string {
	return fmt.Sprintf(
		"📉 %s (%s)\n\n"+
			"Close: %s\n"+
			"Basis: %s\n"+
			"Полоса: %s … %s\n"+
			"Сглаж.: %s … %s\n"+
			"Зона покупки: %s … %s\n"+
			"Зона продажи: %s … %s\n"+
			"ADX: %s (+DI %s / -DI %s)\n"+
			"ATR: %s",
		inst, f.Time.UTC().Format("2006-01-02 15:04"),
		px(f.Close),
		px(f.Basis),
		px(f.Lower), px(f.Upper),
		px(f.SmoothLower), px(f.SmoothUpper),
		px(f.BottomZone.Bottom), px(f.BottomZone.Top),
		px(f.TopZone.Bottom), px(f.TopZone.Top),
		f2(f.ADX), f2(f.PlusDI), f2(f.MinusDI),
		px(f.ATR),
	)
}

func f2(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func px(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
