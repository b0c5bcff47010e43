package handlers

import (
	"liftplanner/models"
	"liftplanner/storage"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ---------- Utility ----------

// MaxBoomAngleDeg is the practical ceiling for a boom angle. cos(angle)
// approaches zero at 90°, so the minimum boom length blows up to infinity;
// anything at or above this value is rejected as invalid input.
const MaxBoomAngleDeg = 89.9

const degPerRad = 180.0 / math.Pi

// round1 rounds for display only. Chained computation always uses the
// unrounded intermediate values.
func round1(x float64) float64 { return math.Round(x*10) / 10.0 }

func toRadians(deg float64) float64 { return deg * math.Pi / 180.0 }

// ---------- Geometry Engine ----------

// ComputeBoomAngle returns the boom angle in degrees needed to reach
// liftHeight at liftRadius. Both zero is the accepted degenerate case and
// yields 0, not an error.
func ComputeBoomAngle(liftHeight, liftRadius float64) float64 {
	return math.Atan2(liftHeight, liftRadius) * degPerRad
}

// ComputeMinBoomLength returns the shortest boom that reaches liftRadius at
// the given angle.
func ComputeMinBoomLength(liftRadius, boomAngleDeg float64) (float64, error) {
	if boomAngleDeg >= MaxBoomAngleDeg {
		return 0, &models.ValidationError{Field: "boom_angle", Reason: "angle at or above practical ceiling of 89.9 degrees"}
	}
	if boomAngleDeg < 0 {
		return 0, &models.ValidationError{Field: "boom_angle", Reason: "angle must not be negative"}
	}
	return liftRadius / math.Cos(toRadians(boomAngleDeg)), nil
}

// ComputeVerticalHeight returns the height the boom tip reaches.
func ComputeVerticalHeight(boomLength, boomAngleDeg float64) float64 {
	return boomLength * math.Sin(toRadians(boomAngleDeg))
}

// ComputeTotalLoad returns the load the crane actually carries: the payload
// plus rigging tackle.
func ComputeTotalLoad(requiredLoad, liftTackle float64) float64 {
	return requiredLoad + liftTackle
}

func validateRequirement(req models.LiftRequirement) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"building_height", req.BuildingHeight},
		{"crane_edge_distance", req.CraneEdgeDistance},
		{"lift_radius", req.LiftRadius},
		{"required_load", req.RequiredLoad},
		{"lift_tackle", req.LiftTackle},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return &models.ValidationError{Field: f.name, Reason: "must be a finite number"}
		}
		if f.value < 0 {
			return &models.ValidationError{Field: f.name, Reason: "must not be negative"}
		}
	}
	if req.LiftRadius == 0 {
		return &models.ValidationError{Field: "lift_radius", Reason: "must be greater than zero"}
	}
	return nil
}

// ---------- Composite sizing ----------

// SolveLift sizes the lift: the boom must clear the obstruction edge AND
// reach the lift point at the building height, so the larger of the two
// angles is binding. Returned values are unrounded.
func SolveLift(req models.LiftRequirement) (models.LiftResult, error) {
	if err := validateRequirement(req); err != nil {
		return models.LiftResult{}, err
	}

	obstructionAngle := ComputeBoomAngle(req.BuildingHeight, req.CraneEdgeDistance)
	liftAngle := ComputeBoomAngle(req.BuildingHeight, req.LiftRadius)
	requiredAngle := math.Max(obstructionAngle, liftAngle)

	minBoomLength, err := ComputeMinBoomLength(req.LiftRadius, requiredAngle)
	if err != nil {
		return models.LiftResult{}, err
	}

	return models.LiftResult{
		BoomAngle:         requiredAngle,
		MinBoomLength:     minBoomLength,
		MinVerticalHeight: ComputeVerticalHeight(minBoomLength, requiredAngle),
		TotalLoad:         ComputeTotalLoad(req.RequiredLoad, req.LiftTackle),
	}, nil
}

// RoundResultForDisplay rounds every result field to one decimal. This is
// the presentation boundary; nothing downstream may feed these values back
// into a formula.
func RoundResultForDisplay(res models.LiftResult) models.LiftResult {
	return models.LiftResult{
		BoomAngle:         round1(res.BoomAngle),
		MinBoomLength:     round1(res.MinBoomLength),
		MinVerticalHeight: round1(res.MinVerticalHeight),
		TotalLoad:         round1(res.TotalLoad),
	}
}

// SolveLiftHandler godoc
// @Summary      Size a lift and list suitable cranes
// @Description  Computes boom angle, minimum boom length and vertical clearance from the raw measurements, then filters the crane catalog against the result.
// @Tags         calculator
// @Accept       json
// @Produce      json
// @Param        body  body      models.LiftRequirement  true  "Lift measurements (meters/tons)"
// @Success      200   {object}  models.SolveResponse
// @Failure      400   {object}  models.ErrorResponse
// @Failure      500   {object}  models.ErrorResponse
// @Router       /api/solve [post]
func SolveLiftHandler(c *gin.Context) {
	var req models.LiftRequirement

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: " + err.Error()})
		return
	}

	result, err := SolveLift(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	catalog, err := FetchCraneCatalog(storage.GetGormDB())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load crane catalog"})
		return
	}

	// Filter on the unrounded values, round only for the response body.
	suitable := FindSuitableCranes(result.TotalLoad, req.LiftRadius, result.MinBoomLength, catalog)

	c.JSON(http.StatusOK, models.SolveResponse{
		Requirement:    req,
		Result:         RoundResultForDisplay(result),
		SuitableCranes: suitable,
	})
}
