package projection

import (
	"math"
	"testing"

	"github.com/wellslab/s4m-api/internal/frame"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRankTransform(t *testing.T) {
	m := frame.NewMatrix([]string{"g1", "g2", "g3"}, []string{"s1"})
	m.Values[0][0] = 10
	m.Values[1][0] = 30
	m.Values[2][0] = 20

	out := RankTransform(m)
	// Descending scaled ranks: the largest value maps to 1, the smallest to
	// 1/3.
	if !almostEqual(out.Values[1][0], 1.0) {
		t.Fatalf("rank of 30: want=1 got=%v", out.Values[1][0])
	}
	if !almostEqual(out.Values[2][0], 2.0/3.0) {
		t.Fatalf("rank of 20: want=2/3 got=%v", out.Values[2][0])
	}
	if !almostEqual(out.Values[0][0], 1.0/3.0) {
		t.Fatalf("rank of 10: want=1/3 got=%v", out.Values[0][0])
	}
}

func TestRankTransformTies(t *testing.T) {
	m := frame.NewMatrix([]string{"g1", "g2", "g3", "g4"}, []string{"s1"})
	m.Values[0][0] = 5
	m.Values[1][0] = 3
	m.Values[2][0] = 3
	m.Values[3][0] = 1

	out := RankTransform(m)
	// The tied 3s share position (2+3)/2 = 2.5, scaled to (4-2.5+1)/4.
	if !almostEqual(out.Values[0][0], 1.0) {
		t.Fatalf("rank of 5: want=1 got=%v", out.Values[0][0])
	}
	if !almostEqual(out.Values[1][0], 0.625) || !almostEqual(out.Values[2][0], 0.625) {
		t.Fatalf("tied ranks: want=0.625 got=%v %v", out.Values[1][0], out.Values[2][0])
	}
	if !almostEqual(out.Values[3][0], 0.25) {
		t.Fatalf("rank of 1: want=0.25 got=%v", out.Values[3][0])
	}
}

func TestRankTransformMissingValues(t *testing.T) {
	m := frame.NewMatrix([]string{"g1", "g2", "g3", "g4"}, []string{"s1"})
	m.Values[0][0] = 5
	m.Values[1][0] = 3
	m.Values[2][0] = math.NaN()
	m.Values[3][0] = math.NaN()

	out := RankTransform(m)
	// Missing values rank below every real value, tied among themselves:
	// position 2 + (2+1)/2 = 3.5, scaled to (4-3.5+1)/4 = 0.375.
	if !almostEqual(out.Values[0][0], 1.0) || !almostEqual(out.Values[1][0], 0.75) {
		t.Fatalf("real ranks: got %v %v", out.Values[0][0], out.Values[1][0])
	}
	for _, i := range []int{2, 3} {
		if math.IsNaN(out.Values[i][0]) {
			t.Fatalf("missing values must not stay NaN")
		}
		if !almostEqual(out.Values[i][0], 0.375) {
			t.Fatalf("missing rank: want=0.375 got=%v", out.Values[i][0])
		}
	}
}

func TestRankTransformPerColumn(t *testing.T) {
	m := frame.NewMatrix([]string{"g1", "g2"}, []string{"s1", "s2"})
	m.Values[0][0] = 1
	m.Values[0][1] = 9
	m.Values[1][0] = 2
	m.Values[1][1] = 4

	out := RankTransform(m)
	// Columns rank independently: g1 is lowest in s1 but highest in s2.
	if !almostEqual(out.Values[0][0], 0.5) || !almostEqual(out.Values[0][1], 1.0) {
		t.Fatalf("g1 ranks: got %v %v", out.Values[0][0], out.Values[0][1])
	}
}

func TestRankTransformEmpty(t *testing.T) {
	m := frame.NewMatrix(nil, []string{"s1"})
	out := RankTransform(m)
	if out.NRows() != 0 {
		t.Fatalf("empty input should stay empty, got %d rows", out.NRows())
	}
}
