package placement

import (
	"testing"

	"github.com/fbecker/strategraph/pkg/geometry"
)

func TestArrangementSquareGrid(t *testing.T) {
	area := geometry.Rect{X: 0, Y: 0, Width: 1000, Height: 600}

	got := Arrangement(4, area, nil)
	want := []geometry.Point{
		{X: 240, Y: 160},
		{X: 520, Y: 160},
		{X: 240, Y: 320},
		{X: 520, Y: 320},
	}

	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestArrangementRaggedLastRow(t *testing.T) {
	area := geometry.Rect{X: 0, Y: 0, Width: 1000, Height: 600}

	got := Arrangement(5, area, nil)
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}

	// 5 nodes arrange as 3 columns by 2 rows; the last row holds two.
	rows := map[float64]int{}
	for _, p := range got {
		rows[p.Y]++
	}
	if len(rows) != 2 {
		t.Errorf("distinct rows = %d, want 2", len(rows))
	}
}

func TestArrangementEmpty(t *testing.T) {
	if got := Arrangement(0, geometry.Rect{Width: 100, Height: 100}, nil); got != nil {
		t.Errorf("Arrangement(0) = %v, want nil", got)
	}
}

func TestArrangementSingle(t *testing.T) {
	area := geometry.Rect{X: 0, Y: 0, Width: 1000, Height: 600}

	got := Arrangement(1, area, nil)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	// One node centers on the area.
	want := geometry.Point{X: 380, Y: 240}
	if got[0] != want {
		t.Errorf("position = %v, want %v", got[0], want)
	}
}
