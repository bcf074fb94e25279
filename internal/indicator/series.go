package indicator

import "math"

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// rollingMean — простое скользящее среднее. Окно с хотя бы одним NaN даёт NaN.
func rollingMean(x []float64, window int) []float64 {
	out := nanSeries(len(x))
	for i := window - 1; i < len(x); i++ {
		sum := 0.0
		for _, v := range x[i-window+1 : i+1] {
			sum += v
		}
		out[i] = sum / float64(window)
	}
	return out
}

// rollingStd — стандартное отклонение генеральной совокупности (делитель window).
func rollingStd(x []float64, window int) []float64 {
	mean := rollingMean(x, window)
	out := nanSeries(len(x))
	for i := window - 1; i < len(x); i++ {
		if math.IsNaN(mean[i]) {
			continue
		}
		ss := 0.0
		for _, v := range x[i-window+1 : i+1] {
			d := v - mean[i]
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(window))
	}
	return out
}

// wilder — сглаживание Уайлдера (RMA) начиная с индекса start:
// первое значение = SMA первых length точек, дальше (prev*(length-1) + x) / length.
func wilder(x []float64, length, start int) []float64 {
	out := nanSeries(len(x))
	seed := start + length - 1
	if start < 0 || seed >= len(x) {
		return out
	}

	sum := 0.0
	for _, v := range x[start : seed+1] {
		sum += v
	}
	out[seed] = sum / float64(length)
	for i := seed + 1; i < len(x); i++ {
		out[i] = (out[i-1]*float64(length-1) + x[i]) / float64(length)
	}
	return out
}

// trueRange определён с индекса 1: нужен предыдущий close.
func trueRange(high, low, closes []float64) []float64 {
	out := nanSeries(len(closes))
	for i := 1; i < len(closes); i++ {
		out[i] = math.Max(high[i]-low[i], math.Max(
			math.Abs(high[i]-closes[i-1]),
			math.Abs(low[i]-closes[i-1]),
		))
	}
	return out
}

// directional возвращает +DM и -DM, определённые с индекса 1.
func directional(high, low []float64) (plus, minus []float64) {
	plus, minus = nanSeries(len(high)), nanSeries(len(high))
	for i := 1; i < len(high); i++ {
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		plus[i], minus[i] = 0, 0
		if up > down && up > 0 {
			plus[i] = up
		}
		if down > up && down > 0 {
			minus[i] = down
		}
	}
	return plus, minus
}
