package handlers

import (
	"errors"
	"liftplanner/models"
	"liftplanner/storage"
	"math"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func nearlyEqual(a, b float64) bool { return math.Abs(a-b) <= 1e-6 }

// chartKey identifies one cell position of a chart.
type chartKey struct {
	radius     float64
	boomLength float64
}

// ---------- Matrix Evaluator ----------

// BuildLoadChartMatrix evaluates a crane's chart against a sized lift. Rows
// are the distinct sorted radii, columns the distinct sorted boom lengths.
// Classification precedence per cell:
//  1. requirement not reached at this cell (boom too short or radius short
//     of the lift radius) -> not applicable
//  2. no data point at this position -> not applicable
//  3. capacity sufficient at exactly the lift radius -> exact match
//  4. capacity sufficient -> sufficient
//  5. otherwise insufficient
//
// The function is total over the point set and never mutates it. Duplicate
// points at the same position resolve last-write-wins.
func BuildLoadChartMatrix(craneID string, points []models.LoadChartPoint, totalLoad, liftRadius, minBoomLength float64) models.LoadChartMatrix {
	radiiSet := map[float64]bool{}
	boomSet := map[float64]bool{}
	capacities := map[chartKey]float64{}
	for _, p := range points {
		radiiSet[p.Radius] = true
		boomSet[p.BoomLength] = true
		capacities[chartKey{p.Radius, p.BoomLength}] = p.Capacity
	}

	radii := make([]float64, 0, len(radiiSet))
	for r := range radiiSet {
		radii = append(radii, r)
	}
	sort.Float64s(radii)

	boomLengths := make([]float64, 0, len(boomSet))
	for b := range boomSet {
		boomLengths = append(boomLengths, b)
	}
	sort.Float64s(boomLengths)

	matrix := models.LoadChartMatrix{
		CraneID:     craneID,
		Radii:       radii,
		BoomLengths: boomLengths,
		Cells:       make([][]models.MatrixCell, len(radii)),
	}

	for i, radius := range radii {
		row := make([]models.MatrixCell, len(boomLengths))
		for j, boomLength := range boomLengths {
			cell := models.MatrixCell{Radius: radius, BoomLength: boomLength}

			capacity, hasData := capacities[chartKey{radius, boomLength}]
			if hasData {
				v := capacity
				cell.Capacity = &v
			}

			switch {
			case boomLength < minBoomLength || radius < liftRadius:
				cell.Class = models.CellNotApplicable
			case !hasData:
				cell.Class = models.CellNotApplicable
			case nearlyEqual(radius, liftRadius) && capacity >= totalLoad:
				cell.Class = models.CellExactMatch
				matrix.HasMatch = true
			case capacity >= totalLoad:
				cell.Class = models.CellSufficient
				matrix.HasMatch = true
			default:
				cell.Class = models.CellInsufficient
			}
			row[j] = cell
		}
		matrix.Cells[i] = row
	}
	return matrix
}

// FetchLoadChart reads every point of one crane's chart.
func FetchLoadChart(db *gorm.DB, craneID string) ([]models.LoadChartPoint, error) {
	var points []models.LoadChartPoint
	if err := db.Where("crane_id = ?", craneID).Find(&points).Error; err != nil {
		return nil, err
	}
	return points, nil
}

// validateChartPoint checks a point against its crane's envelope.
func validateChartPoint(p models.LoadChartPoint, crane models.CraneModel) error {
	spec := crane.Specifications
	if p.Radius < spec.MinRadius || p.Radius > spec.MaxRadius {
		return &models.ValidationError{Field: "radius", Reason: "outside the crane's radius range"}
	}
	if p.BoomLength < spec.MinBoomLength || p.BoomLength > spec.MaxBoomLength {
		return &models.ValidationError{Field: "boom_length", Reason: "outside the crane's boom length range"}
	}
	if p.Capacity > crane.Capacity {
		return &models.ValidationError{Field: "capacity", Reason: "exceeds the crane's maximum capacity"}
	}
	return nil
}

// ---------- Handlers ----------

type matrixRequest struct {
	CraneIDs      []string `json:"crane_ids"`
	TotalLoad     float64  `json:"total_load"`
	LiftRadius    float64  `json:"lift_radius"`
	MinBoomLength float64  `json:"min_boom_length"`
}

// GetLoadChart godoc
// @Summary      Get a crane's load chart
// @Tags         load-charts
// @Produce      json
// @Param        crane_id  path      string  true  "Crane slug"
// @Success      200       {object}  models.LoadChart
// @Failure      404       {object}  models.ErrorResponse
// @Router       /api/cranes/{crane_id}/load-chart [get]
func GetLoadChart(c *gin.Context) {
	craneID := c.Param("crane_id")
	db := storage.GetGormDB()

	var crane models.CraneModel
	if err := db.Where("crane_id = ?", craneID).First(&crane).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "crane not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	points, err := FetchLoadChart(db, craneID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chart"})
		return
	}
	c.JSON(http.StatusOK, models.LoadChart{CraneID: craneID, Points: points})
}

// ReplaceLoadChart godoc
// @Summary      Replace a crane's load chart (admin only)
// @Tags         load-charts
// @Accept       json
// @Produce      json
// @Param        crane_id  path      string            true  "Crane slug"
// @Param        body      body      models.LoadChart  true  "Chart points"
// @Success      200       {object}  models.LoadChart
// @Failure      400       {object}  models.ErrorResponse
// @Failure      404       {object}  models.ErrorResponse
// @Router       /api/cranes/{crane_id}/load-chart [put]
func ReplaceLoadChart(c *gin.Context) {
	craneID := c.Param("crane_id")
	db := storage.GetGormDB()

	var crane models.CraneModel
	if err := db.Where("crane_id = ?", craneID).First(&crane).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "crane not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var chart models.LoadChart
	if err := c.ShouldBindJSON(&chart); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: " + err.Error()})
		return
	}
	for _, p := range chart.Points {
		if err := validateChartPoint(p, crane); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("crane_id = ?", craneID).Delete(&models.LoadChartPoint{}).Error; err != nil {
			return err
		}
		for i := range chart.Points {
			chart.Points[i].ID = 0
			chart.Points[i].CraneID = craneID
		}
		if len(chart.Points) == 0 {
			return nil
		}
		return tx.Create(&chart.Points).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to replace chart: " + err.Error()})
		return
	}

	chart.CraneID = craneID
	c.JSON(http.StatusOK, chart)
}

// EvaluateMatrices godoc
// @Summary      Evaluate load-chart matrices for a set of cranes
// @Description  Classifies every chart cell of the given cranes against the sized lift for visual comparison.
// @Tags         load-charts
// @Accept       json
// @Produce      json
// @Param        body  body      object  true  "crane_ids plus total_load, lift_radius, min_boom_length"
// @Success      200   {object}  models.MatrixResponse
// @Failure      400   {object}  models.ErrorResponse
// @Router       /api/matrices [post]
func EvaluateMatrices(c *gin.Context) {
	var req matrixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: " + err.Error()})
		return
	}
	if len(req.CraneIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "crane_ids must be provided"})
		return
	}
	if req.LiftRadius <= 0 || req.TotalLoad < 0 || req.MinBoomLength < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "total_load, lift_radius and min_boom_length must be valid"})
		return
	}

	db := storage.GetGormDB()
	matrices := make([]models.LoadChartMatrix, 0, len(req.CraneIDs))
	for _, craneID := range req.CraneIDs {
		points, err := FetchLoadChart(db, craneID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chart for " + craneID})
			return
		}
		matrices = append(matrices, BuildLoadChartMatrix(craneID, points, req.TotalLoad, req.LiftRadius, req.MinBoomLength))
	}

	c.JSON(http.StatusOK, models.MatrixResponse{Matrices: matrices})
}
