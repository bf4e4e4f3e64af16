package report

import (
	"math"
	"testing"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMean_Median(t *testing.T) {
	if got := mean(nil); got != 0 {
		t.Errorf("mean(nil) = %v", got)
	}
	if got := mean([]float64{1, 2, 3}); !near(got, 2) {
		t.Errorf("mean = %v", got)
	}
	if got := median([]float64{3, 1, 2}); !near(got, 2) {
		t.Errorf("odd median = %v", got)
	}
	if got := median([]float64{4, 1, 3, 2}); !near(got, 2.5) {
		t.Errorf("even median = %v", got)
	}
	if got := median(nil); got != 0 {
		t.Errorf("median(nil) = %v", got)
	}
}

func TestStddev_Population(t *testing.T) {
	// Population stddev of 2,4,4,4,5,5,7,9 is exactly 2.
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if got := stddev(xs); !near(got, 2) {
		t.Errorf("stddev = %v, want 2", got)
	}
	if got := stddev([]float64{5, 5, 5}); !near(got, 0) {
		t.Errorf("constant stddev = %v", got)
	}
}

func TestPearson(t *testing.T) {
	xs := []float64{1, 2, 3, 4}
	if got := pearson(xs, []float64{2, 4, 6, 8}); !near(got, 1) {
		t.Errorf("perfect positive = %v", got)
	}
	if got := pearson(xs, []float64{8, 6, 4, 2}); !near(got, -1) {
		t.Errorf("perfect negative = %v", got)
	}
	if got := pearson(xs, []float64{3, 3, 3, 3}); got != 0 {
		t.Errorf("zero variance = %v, want 0", got)
	}
	if got := pearson([]float64{1}, []float64{2}); got != 0 {
		t.Errorf("single pair = %v, want 0", got)
	}
}

func TestRankedCounts_TieBreak(t *testing.T) {
	ranked := rankedCounts(map[string]int{"beta": 3, "alpha": 3, "gamma": 5})
	if ranked[0].Name != "gamma" {
		t.Fatalf("first = %s", ranked[0].Name)
	}
	// Equal counts order alphabetically.
	if ranked[1].Name != "alpha" || ranked[2].Name != "beta" {
		t.Errorf("tie order = %s, %s", ranked[1].Name, ranked[2].Name)
	}
}

func TestMinValue_PrefersSmallestName(t *testing.T) {
	ranked := rankedValues(map[string]float64{"a": 0.5, "zz": -0.2, "bb": -0.2})
	got := minValue(ranked)
	if got.Name != "bb" || !near(got.Value, -0.2) {
		t.Errorf("minValue = %+v", got)
	}
	if got := minValue(nil); got != (NamedValue{}) {
		t.Errorf("minValue(nil) = %+v", got)
	}
}

func TestTopCounts_Caps(t *testing.T) {
	m := map[string]int{"a": 1, "b": 2, "c": 3, "d": 4}
	top := topCounts(m, 2)
	if len(top) != 2 {
		t.Fatalf("len = %d", len(top))
	}
	if top["d"] != 4 || top["c"] != 3 {
		t.Errorf("top = %v", top)
	}
}
