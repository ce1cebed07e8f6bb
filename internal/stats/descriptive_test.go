package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestMeanAndVariance(t *testing.T) {
	t.Parallel()

	x := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if got := Mean(x); !almostEqual(got, 5, 1e-12) {
		t.Fatalf("Mean want=5 got=%v", got)
	}
	// 样本方差 (ddof=1)
	if got := SampleVariance(x); !almostEqual(got, 32.0/7, 1e-12) {
		t.Fatalf("SampleVariance want=%v got=%v", 32.0/7, got)
	}
	if got := SampleSD(x); !almostEqual(got, math.Sqrt(32.0/7), 1e-12) {
		t.Fatalf("SampleSD got=%v", got)
	}
}

func TestVarianceUndefinedBelowTwo(t *testing.T) {
	t.Parallel()

	if got := SampleVariance([]float64{3}); !math.IsNaN(got) {
		t.Fatalf("n=1 variance want=NaN got=%v", got)
	}
	if got := SampleSD(nil); !math.IsNaN(got) {
		t.Fatalf("n=0 sd want=NaN got=%v", got)
	}
}

func TestMedian(t *testing.T) {
	t.Parallel()

	if got := Median([]float64{3, 1, 2}); got != 2 {
		t.Fatalf("odd median want=2 got=%v", got)
	}
	if got := Median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Fatalf("even median want=2.5 got=%v", got)
	}
}

func TestSkewnessMatchesSpreadsheetSKEW(t *testing.T) {
	t.Parallel()

	// SKEW(3,4,5,2,3,4,5,6,4,7) = 0.359543
	x := []float64{3, 4, 5, 2, 3, 4, 5, 6, 4, 7}
	if got := Skewness(x); !almostEqual(got, 0.3595430714067974, 1e-9) {
		t.Fatalf("Skewness got=%v", got)
	}
	if got := Skewness([]float64{1, 2}); !math.IsNaN(got) {
		t.Fatalf("n=2 skewness want=NaN got=%v", got)
	}
}

func TestKurtosisMatchesSpreadsheetKURT(t *testing.T) {
	t.Parallel()

	// KURT(3,4,5,2,3,4,5,6,4,7) = -0.151799637
	x := []float64{3, 4, 5, 2, 3, 4, 5, 6, 4, 7}
	if got := Kurtosis(x); !almostEqual(got, -0.1517996372084, 1e-9) {
		t.Fatalf("Kurtosis got=%v", got)
	}
	if got := Kurtosis([]float64{1, 2, 3}); !math.IsNaN(got) {
		t.Fatalf("n=3 kurtosis want=NaN got=%v", got)
	}
}

func TestPearsonPerfectAndUndefined(t *testing.T) {
	t.Parallel()

	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 6, 8, 10}
	if got := Pearson(x, y); !almostEqual(got, 1, 1e-12) {
		t.Fatalf("perfect correlation want=1 got=%v", got)
	}
	inv := []float64{10, 8, 6, 4, 2}
	if got := Pearson(x, inv); !almostEqual(got, -1, 1e-12) {
		t.Fatalf("perfect inverse want=-1 got=%v", got)
	}
	if got := Pearson([]float64{1, 2}, []float64{3, 4}); !math.IsNaN(got) {
		t.Fatalf("n=2 correlation want=NaN got=%v", got)
	}
	// 零方差
	if got := Pearson([]float64{1, 1, 1}, []float64{1, 2, 3}); !math.IsNaN(got) {
		t.Fatalf("zero variance correlation want=NaN got=%v", got)
	}
}

func TestFisherZ(t *testing.T) {
	t.Parallel()

	if got := FisherZ(0); got != 0 {
		t.Fatalf("FisherZ(0) want=0 got=%v", got)
	}
	// FISHER(0.5) = 0.549306
	if got := FisherZ(0.5); !almostEqual(got, 0.5493061443340549, 1e-12) {
		t.Fatalf("FisherZ(0.5) got=%v", got)
	}
}

func TestStandardError(t *testing.T) {
	t.Parallel()

	x := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	want := math.Sqrt(32.0/7) / math.Sqrt(8)
	if got := StandardError(x); !almostEqual(got, want, 1e-12) {
		t.Fatalf("StandardError want=%v got=%v", want, got)
	}
}
