package handlers

import (
	"strings"
	"testing"
)

func TestParseLoadChartCSV(t *testing.T) {
	csv := `radius,capacity,boomLength
3,35,9.2
6,28,15
10,20,22
`
	points, result, err := ParseLoadChartCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseLoadChartCSV: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("got %d points, want 3", len(points))
	}
	if result.ImportedRows != 3 || result.SkippedRows != 0 || result.Duplicates != 0 {
		t.Errorf("result = %+v, want 3 imported, 0 skipped, 0 duplicates", result)
	}
	if points[0].Radius != 3 || points[0].Capacity != 35 || points[0].BoomLength != 9.2 {
		t.Errorf("first point = %+v", points[0])
	}
}

func TestParseLoadChartCSVHeaderCaseAndOrder(t *testing.T) {
	csv := `BoomLength, RADIUS ,Capacity
15,6,28
`
	points, _, err := ParseLoadChartCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseLoadChartCSV: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("got %d points, want 1", len(points))
	}
	p := points[0]
	if p.Radius != 6 || p.Capacity != 28 || p.BoomLength != 15 {
		t.Errorf("columns mapped wrong: %+v", p)
	}
}

func TestParseLoadChartCSVSkipsBadRows(t *testing.T) {
	csv := `radius,capacity,boomLength
6,28,15
abc,28,15
10,-5,22
10,0,22
14,12,30
`
	points, result, err := ParseLoadChartCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseLoadChartCSV: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if result.ImportedRows != 2 || result.SkippedRows != 3 {
		t.Errorf("result = %+v, want 2 imported, 3 skipped", result)
	}
}

func TestParseLoadChartCSVSkipsRaggedRows(t *testing.T) {
	csv := `radius,capacity,boomLength
6,28
10,20,22
`
	points, result, err := ParseLoadChartCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseLoadChartCSV: %v", err)
	}
	if len(points) != 1 || result.SkippedRows != 1 {
		t.Errorf("got %d points, %d skipped; want 1 and 1", len(points), result.SkippedRows)
	}
}

func TestParseLoadChartCSVDropsDuplicateTriples(t *testing.T) {
	csv := `radius,capacity,boomLength
6,28,15
6,28,15
6,5,15
`
	points, result, err := ParseLoadChartCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseLoadChartCSV: %v", err)
	}
	// Same triple is a duplicate; same position with a different capacity is
	// kept and resolved later by the matrix builder.
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if result.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", result.Duplicates)
	}
}

func TestParseLoadChartCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"missing column", "radius,capacity\n6,28\n"},
		{"empty file", ""},
		{"no valid rows", "radius,capacity,boomLength\nabc,def,ghi\n"},
		{"header only", "radius,capacity,boomLength\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ParseLoadChartCSV(strings.NewReader(tt.csv)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
