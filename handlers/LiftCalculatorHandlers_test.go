package handlers

import (
	"math"
	"testing"

	"liftplanner/models"
)

const geomTolerance = 0.05

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestComputeBoomAngle(t *testing.T) {
	tests := []struct {
		name       string
		liftHeight float64
		liftRadius float64
		want       float64
	}{
		{"worked example", 20, 15, 53.1301},
		{"forty five degrees", 10, 10, 45},
		{"flat lift", 0, 12, 0},
		{"both zero degenerate case", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBoomAngle(tt.liftHeight, tt.liftRadius)
			if !almostEqual(got, tt.want, geomTolerance) {
				t.Errorf("ComputeBoomAngle(%v, %v) = %v, want %v", tt.liftHeight, tt.liftRadius, got, tt.want)
			}
		})
	}
}

// Larger radius at fixed height must never increase the required angle.
func TestBoomAngleMonotonicInRadius(t *testing.T) {
	height := 20.0
	prev := ComputeBoomAngle(height, 1)
	for radius := 2.0; radius <= 50; radius += 0.5 {
		angle := ComputeBoomAngle(height, radius)
		if angle > prev {
			t.Fatalf("angle increased from %v to %v at radius %v", prev, angle, radius)
		}
		prev = angle
	}
}

func TestComputeMinBoomLength(t *testing.T) {
	got, err := ComputeMinBoomLength(15, 53.1301)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(got, 25.0, geomTolerance) {
		t.Errorf("ComputeMinBoomLength(15, 53.13) = %v, want ~25.0", got)
	}

	// Boom must always be at least as long as the radius.
	for angle := 0.0; angle < 89.0; angle += 5 {
		l, err := ComputeMinBoomLength(10, angle)
		if err != nil {
			t.Fatalf("unexpected error at angle %v: %v", angle, err)
		}
		if l < 10 {
			t.Errorf("boom length %v shorter than radius at angle %v", l, angle)
		}
	}
}

func TestComputeMinBoomLengthRejectsSteepAngles(t *testing.T) {
	for _, angle := range []float64{89.9, 90, 95} {
		if _, err := ComputeMinBoomLength(10, angle); err == nil {
			t.Errorf("expected error at angle %v", angle)
		} else if !models.IsValidation(err) {
			t.Errorf("expected validation error at angle %v, got %T", angle, err)
		}
	}
	if _, err := ComputeMinBoomLength(10, -1); err == nil {
		t.Error("expected error for negative angle")
	}
}

func TestComputeTotalLoad(t *testing.T) {
	cases := [][3]float64{
		{2, 0.5, 2.5},
		{0, 0, 0},
		{10.25, 0.75, 11},
	}
	for _, c := range cases {
		if got := ComputeTotalLoad(c[0], c[1]); got != c[0]+c[1] {
			t.Errorf("ComputeTotalLoad(%v, %v) = %v, want %v", c[0], c[1], got, c[2])
		}
	}
}

func TestSolveLiftUsesBindingAngle(t *testing.T) {
	// Obstruction closer than the lift point: clearing the edge dominates.
	req := models.LiftRequirement{
		BuildingHeight:    20,
		CraneEdgeDistance: 10,
		LiftRadius:        15,
		RequiredLoad:      2,
		LiftTackle:        0.5,
	}
	res, err := SolveLift(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	obstructionAngle := ComputeBoomAngle(req.BuildingHeight, req.CraneEdgeDistance)
	if !almostEqual(res.BoomAngle, obstructionAngle, geomTolerance) {
		t.Errorf("BoomAngle = %v, want obstruction angle %v", res.BoomAngle, obstructionAngle)
	}
	if res.TotalLoad != 2.5 {
		t.Errorf("TotalLoad = %v, want 2.5", res.TotalLoad)
	}
	if res.MinBoomLength <= req.LiftRadius {
		t.Errorf("MinBoomLength %v must exceed lift radius %v", res.MinBoomLength, req.LiftRadius)
	}
	if res.MinVerticalHeight < req.BuildingHeight-geomTolerance {
		t.Errorf("MinVerticalHeight %v must reach building height %v", res.MinVerticalHeight, req.BuildingHeight)
	}

	// Obstruction further than the lift radius: the lift angle is binding.
	req.CraneEdgeDistance = 30
	res, err = SolveLift(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	liftAngle := ComputeBoomAngle(req.BuildingHeight, req.LiftRadius)
	if !almostEqual(res.BoomAngle, liftAngle, geomTolerance) {
		t.Errorf("BoomAngle = %v, want lift angle %v", res.BoomAngle, liftAngle)
	}
	if !almostEqual(res.MinBoomLength, 25.0, 0.2) {
		t.Errorf("MinBoomLength = %v, want ~25.0", res.MinBoomLength)
	}
	if !almostEqual(res.MinVerticalHeight, 20.0, 0.2) {
		t.Errorf("MinVerticalHeight = %v, want ~20.0", res.MinVerticalHeight)
	}
}

func TestSolveLiftValidation(t *testing.T) {
	base := models.LiftRequirement{
		BuildingHeight:    20,
		CraneEdgeDistance: 10,
		LiftRadius:        15,
		RequiredLoad:      2,
		LiftTackle:        0.5,
	}

	tests := []struct {
		name   string
		mutate func(*models.LiftRequirement)
	}{
		{"zero lift radius", func(r *models.LiftRequirement) { r.LiftRadius = 0 }},
		{"negative load", func(r *models.LiftRequirement) { r.RequiredLoad = -1 }},
		{"negative height", func(r *models.LiftRequirement) { r.BuildingHeight = -0.1 }},
		{"NaN distance", func(r *models.LiftRequirement) { r.CraneEdgeDistance = math.NaN() }},
		{"infinite tackle", func(r *models.LiftRequirement) { r.LiftTackle = math.Inf(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			if _, err := SolveLift(req); err == nil {
				t.Error("expected validation error")
			} else if !models.IsValidation(err) {
				t.Errorf("expected validation error, got %T", err)
			}
		})
	}
}

// Steep geometry (obstruction nearly under the boom tip) must surface a
// validation error, never Inf or NaN.
func TestSolveLiftSteepGeometry(t *testing.T) {
	req := models.LiftRequirement{
		BuildingHeight:    1000,
		CraneEdgeDistance: 0,
		LiftRadius:        1,
		RequiredLoad:      1,
	}
	_, err := SolveLift(req)
	if err == nil {
		t.Fatal("expected error for near-vertical geometry")
	}
	if !models.IsValidation(err) {
		t.Errorf("expected validation error, got %T: %v", err, err)
	}
}

// Rounding belongs at the presentation boundary; the solver must hand back
// unrounded values so chained computation keeps full precision.
func TestRoundingDeferredToDisplay(t *testing.T) {
	req := models.LiftRequirement{
		BuildingHeight:    17,
		CraneEdgeDistance: 9,
		LiftRadius:        13,
		RequiredLoad:      3.33,
		LiftTackle:        0.44,
	}
	res, err := SolveLift(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The vertical height must follow from the unrounded boom length.
	wantHeight := res.MinBoomLength * math.Sin(res.BoomAngle*math.Pi/180)
	if res.MinVerticalHeight != wantHeight {
		t.Errorf("MinVerticalHeight = %v, want chained value %v", res.MinVerticalHeight, wantHeight)
	}

	disp := RoundResultForDisplay(res)
	if disp.TotalLoad != 3.8 {
		t.Errorf("display TotalLoad = %v, want 3.8", disp.TotalLoad)
	}
	for _, v := range []float64{disp.BoomAngle, disp.MinBoomLength, disp.MinVerticalHeight, disp.TotalLoad} {
		if round1(v) != v {
			t.Errorf("display value %v not rounded to one decimal", v)
		}
	}
}
