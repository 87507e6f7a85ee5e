package encode

import (
	"math"
	"reflect"
	"testing"
)

func collectCombs(n, t int) [][]int {
	var out [][]int
	it := newCombIter(n, t)
	for pick, ok := it.next(); ok; pick, ok = it.next() {
		out = append(out, append([]int(nil), pick...))
	}
	return out
}

func TestCombIter_Lexicographic(t *testing.T) {
	got := collectCombs(4, 2)
	want := [][]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestCombIter_Degenerate(t *testing.T) {
	// t == 0 yields exactly one empty combination
	got := collectCombs(3, 0)
	if len(got) != 1 || len(got[0]) != 0 {
		t.Errorf("expected a single empty combination, got %v", got)
	}

	// t > n yields none
	if got := collectCombs(2, 3); got != nil {
		t.Errorf("expected no combinations, got %v", got)
	}

	// t == n yields the full set
	got = collectCombs(3, 3)
	if !reflect.DeepEqual(got, [][]int{{0, 1, 2}}) {
		t.Errorf("expected the full set, got %v", got)
	}
}

func TestCombIter_CountMatchesBinomial(t *testing.T) {
	for n := 0; n <= 8; n++ {
		for k := 0; k <= n+1; k++ {
			if got, want := uint64(len(collectCombs(n, k))), combinationCount(n, k); got != want {
				t.Errorf("C(%d,%d): iterator yielded %d, count says %d", n, k, got, want)
			}
		}
	}
}

func TestCombinationCount(t *testing.T) {
	cases := []struct {
		n, t int
		want uint64
	}{
		{20, 10, 184756},
		{5, 0, 1},
		{0, 0, 1},
		{3, 5, 0},
		{52, 5, 2598960},
	}
	for _, tc := range cases {
		if got := combinationCount(tc.n, tc.t); got != tc.want {
			t.Errorf("C(%d,%d): expected %d, got %d", tc.n, tc.t, tc.want, got)
		}
	}

	if got := combinationCount(100, 50); got != math.MaxUint64 {
		t.Errorf("expected saturation for C(100,50), got %d", got)
	}
}
