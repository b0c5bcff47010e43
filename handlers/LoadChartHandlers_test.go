package handlers

import (
	"testing"

	"liftplanner/models"
)

func chartPoints(craneID string, triples [][3]float64) []models.LoadChartPoint {
	out := make([]models.LoadChartPoint, 0, len(triples))
	for _, tr := range triples {
		out = append(out, models.LoadChartPoint{
			CraneID:    craneID,
			Radius:     tr[0],
			Capacity:   tr[1],
			BoomLength: tr[2],
		})
	}
	return out
}

func cellAt(t *testing.T, m models.LoadChartMatrix, radius, boomLength float64) models.MatrixCell {
	t.Helper()
	for i, r := range m.Radii {
		if !nearlyEqual(r, radius) {
			continue
		}
		for j, b := range m.BoomLengths {
			if nearlyEqual(b, boomLength) {
				return m.Cells[i][j]
			}
		}
	}
	t.Fatalf("no cell at (%v, %v)", radius, boomLength)
	return models.MatrixCell{}
}

// Every (radius, boomLength) combination receives exactly one class; the
// evaluator is total over the axes product, not just over existing points.
func TestMatrixExhaustive(t *testing.T) {
	points := chartPoints("test", [][3]float64{
		{3, 35, 9.2},
		{6, 28, 15},
		{10, 20, 22},
		{14, 12, 30},
	})

	m := BuildLoadChartMatrix("test", points, 10, 6, 15)

	if len(m.Radii) != 4 || len(m.BoomLengths) != 4 {
		t.Fatalf("axes = %d x %d, want 4 x 4", len(m.Radii), len(m.BoomLengths))
	}
	if len(m.Cells) != len(m.Radii) {
		t.Fatalf("rows = %d, want %d", len(m.Cells), len(m.Radii))
	}
	valid := map[string]bool{
		models.CellNotApplicable: true,
		models.CellExactMatch:    true,
		models.CellSufficient:    true,
		models.CellInsufficient:  true,
	}
	for i, row := range m.Cells {
		if len(row) != len(m.BoomLengths) {
			t.Fatalf("row %d has %d cells, want %d", i, len(row), len(m.BoomLengths))
		}
		for _, cell := range row {
			if !valid[cell.Class] {
				t.Errorf("cell (%v, %v) has unknown class %q", cell.Radius, cell.BoomLength, cell.Class)
			}
		}
	}
}

func TestMatrixClassificationPrecedence(t *testing.T) {
	points := chartPoints("test", [][3]float64{
		{6, 28, 15},  // at lift radius, enough capacity
		{6, 5, 22},   // at lift radius, too weak
		{10, 20, 22}, // beyond lift radius, enough capacity
		{10, 2, 30},  // beyond lift radius, too weak
		{3, 35, 9.2}, // below lift radius
	})

	m := BuildLoadChartMatrix("test", points, 10, 6, 15)

	if got := cellAt(t, m, 6, 15).Class; got != models.CellExactMatch {
		t.Errorf("cell at lift radius with capacity = %q, want %q", got, models.CellExactMatch)
	}
	if got := cellAt(t, m, 6, 22).Class; got != models.CellInsufficient {
		t.Errorf("weak cell at lift radius = %q, want %q", got, models.CellInsufficient)
	}
	if got := cellAt(t, m, 10, 22).Class; got != models.CellSufficient {
		t.Errorf("strong cell beyond lift radius = %q, want %q", got, models.CellSufficient)
	}
	if got := cellAt(t, m, 10, 30).Class; got != models.CellInsufficient {
		t.Errorf("weak cell beyond lift radius = %q, want %q", got, models.CellInsufficient)
	}
	// Radius below the lift radius never applies, regardless of capacity.
	if got := cellAt(t, m, 3, 9.2).Class; got != models.CellNotApplicable {
		t.Errorf("cell below lift radius = %q, want %q", got, models.CellNotApplicable)
	}
	// Boom length below the requirement never applies either; (10, 9.2) also
	// has no data, both rules agree here.
	if got := cellAt(t, m, 10, 9.2).Class; got != models.CellNotApplicable {
		t.Errorf("cell with short boom = %q, want %q", got, models.CellNotApplicable)
	}
	if !m.HasMatch {
		t.Error("HasMatch = false, want true")
	}
}

func TestMatrixMissingDataCell(t *testing.T) {
	// (6, 30) and (14, 15) exist on the axes but have no point.
	points := chartPoints("test", [][3]float64{
		{6, 28, 15},
		{14, 12, 30},
	})

	m := BuildLoadChartMatrix("test", points, 10, 6, 15)

	cell := cellAt(t, m, 6, 30)
	if cell.Class != models.CellNotApplicable {
		t.Errorf("no-data cell = %q, want %q", cell.Class, models.CellNotApplicable)
	}
	if cell.Capacity != nil {
		t.Errorf("no-data cell carries capacity %v", *cell.Capacity)
	}
}

// Single point far below the requirement: everything not-applicable and no
// match, never an error.
func TestMatrixNoMatchingData(t *testing.T) {
	points := chartPoints("liebherr-ltm1030", [][3]float64{{3, 35, 9.2}})

	m := BuildLoadChartMatrix("liebherr-ltm1030", points, 35, 26, 30)

	if m.HasMatch {
		t.Error("HasMatch = true, want false")
	}
	if got := cellAt(t, m, 3, 9.2).Class; got != models.CellNotApplicable {
		t.Errorf("cell = %q, want %q", got, models.CellNotApplicable)
	}
}

func TestMatrixEmptyChart(t *testing.T) {
	m := BuildLoadChartMatrix("test", nil, 10, 6, 15)
	if len(m.Radii) != 0 || len(m.BoomLengths) != 0 || len(m.Cells) != 0 {
		t.Errorf("empty chart produced non-empty matrix: %+v", m)
	}
	if m.HasMatch {
		t.Error("HasMatch = true for empty chart")
	}
}

func TestMatrixDuplicatePointsLastWriteWins(t *testing.T) {
	points := chartPoints("test", [][3]float64{
		{6, 5, 15},
		{6, 28, 15}, // same position, later value wins
	})

	m := BuildLoadChartMatrix("test", points, 10, 6, 15)

	cell := cellAt(t, m, 6, 15)
	if cell.Capacity == nil || *cell.Capacity != 28 {
		t.Errorf("capacity = %v, want last written 28", cell.Capacity)
	}
	if cell.Class != models.CellExactMatch {
		t.Errorf("class = %q, want %q", cell.Class, models.CellExactMatch)
	}
}

func TestValidateChartPoint(t *testing.T) {
	crane := sampleCatalog()[0] // envelope: boom [9.2, 30], radius [3, 26], capacity 35

	valid := models.LoadChartPoint{Radius: 10, Capacity: 20, BoomLength: 15}
	if err := validateChartPoint(valid, crane); err != nil {
		t.Errorf("valid point rejected: %v", err)
	}

	tests := []struct {
		name  string
		point models.LoadChartPoint
	}{
		{"radius below envelope", models.LoadChartPoint{Radius: 2, Capacity: 20, BoomLength: 15}},
		{"radius above envelope", models.LoadChartPoint{Radius: 27, Capacity: 20, BoomLength: 15}},
		{"boom below envelope", models.LoadChartPoint{Radius: 10, Capacity: 20, BoomLength: 9}},
		{"boom above envelope", models.LoadChartPoint{Radius: 10, Capacity: 20, BoomLength: 31}},
		{"capacity above crane max", models.LoadChartPoint{Radius: 10, Capacity: 36, BoomLength: 15}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validateChartPoint(tt.point, crane); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
