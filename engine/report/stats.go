package report

import (
	"math"
	"sort"
)

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := make([]float64, len(xs))
	copy(s, xs)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 0 {
		return (s[mid-1] + s[mid]) / 2
	}
	return s[mid]
}

// stddev is the population standard deviation.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// pearson is the Pearson correlation coefficient. Fewer than two pairs
// or zero variance on either side yields 0.
func pearson(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return 0
	}
	mx, my := mean(xs), mean(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	return sxy / math.Sqrt(sxx*syy)
}

// rankedCounts sorts map entries by count descending; ties break on the
// smaller name so rankings are deterministic.
func rankedCounts(m map[string]int) []NamedCount {
	out := make([]NamedCount, 0, len(m))
	for name, n := range m {
		out = append(out, NamedCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// rankedValues sorts map entries by value descending; ties break on the
// smaller name.
func rankedValues(m map[string]float64) []NamedValue {
	out := make([]NamedValue, 0, len(m))
	for name, v := range m {
		out = append(out, NamedValue{Name: name, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// minValue picks the lowest-valued entry from a descending ranking,
// preferring the smallest name among equal values.
func minValue(ranked []NamedValue) NamedValue {
	if len(ranked) == 0 {
		return NamedValue{}
	}
	i := len(ranked) - 1
	for i > 0 && ranked[i-1].Value == ranked[i].Value {
		i--
	}
	return ranked[i]
}

// topCounts keeps the n highest-count entries as a map.
func topCounts(m map[string]int, n int) map[string]int {
	ranked := rankedCounts(m)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make(map[string]int, len(ranked))
	for _, e := range ranked {
		out[e.Name] = e.Count
	}
	return out
}

// topValues keeps the n highest-valued entries as a map.
func topValues(m map[string]float64, n int) map[string]float64 {
	ranked := rankedValues(m)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make(map[string]float64, len(ranked))
	for _, e := range ranked {
		out[e.Name] = e.Value
	}
	return out
}
