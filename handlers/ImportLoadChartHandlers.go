package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"liftplanner/models"
	"liftplanner/storage"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// pointTriple keys a chart row for exact-duplicate detection.
type pointTriple struct {
	radius     float64
	capacity   float64
	boomLength float64
}

// ParseLoadChartCSV reads tabular chart data with one header row and the
// columns radius, capacity, boomLength (any order). Rows with non-numeric or
// non-positive values are skipped and counted, never a hard parse error;
// exact duplicate triples are dropped. Only an unreadable header or a file
// with zero valid rows fails the import.
func ParseLoadChartCSV(r io.Reader) ([]models.LoadChartPoint, *models.ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %v", err)
	}

	columnIndices := make(map[string]int)
	for i, col := range header {
		columnIndices[strings.ToLower(strings.TrimSpace(col))] = i
	}

	requiredColumns := []string{"radius", "capacity", "boomlength"}
	for _, col := range requiredColumns {
		if _, exists := columnIndices[col]; !exists {
			return nil, nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	result := &models.ImportResult{}
	seen := make(map[pointTriple]bool)
	var points []models.LoadChartPoint

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A ragged row is a bad row, not a failed import.
			result.SkippedRows++
			continue
		}

		parseField := func(name string) (float64, bool) {
			idx := columnIndices[name]
			if idx >= len(record) {
				return 0, false
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
			if err != nil || v <= 0 {
				return 0, false
			}
			return v, true
		}

		radius, ok1 := parseField("radius")
		capacity, ok2 := parseField("capacity")
		boomLength, ok3 := parseField("boomlength")
		if !ok1 || !ok2 || !ok3 {
			result.SkippedRows++
			continue
		}

		triple := pointTriple{radius, capacity, boomLength}
		if seen[triple] {
			result.Duplicates++
			continue
		}
		seen[triple] = true

		points = append(points, models.LoadChartPoint{
			Radius:     radius,
			Capacity:   capacity,
			BoomLength: boomLength,
		})
	}

	result.ImportedRows = len(points)
	if len(points) == 0 {
		return nil, result, fmt.Errorf("no valid rows in CSV (%d skipped)", result.SkippedRows)
	}
	return points, result, nil
}

// ImportLoadChartCSV godoc
// @Summary      Import a crane's load chart from CSV (admin only)
// @Description  Expects columns radius, capacity, boomLength with one header row. Invalid rows are skipped and counted; points outside the crane's envelope count as skipped too.
// @Tags         import
// @Accept       multipart/form-data
// @Produce      json
// @Param        crane_id  path      string  true  "Crane slug"
// @Param        file      formData  file    true  "CSV file"
// @Success      200  {object}  models.ImportResult
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/cranes/{crane_id}/load-chart/import [post]
func ImportLoadChartCSV(c *gin.Context) {
	craneID := c.Param("crane_id")
	db := storage.GetGormDB()

	var crane models.CraneModel
	if err := db.Where("crane_id = ?", craneID).First(&crane).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "crane not found"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file not found"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to open file"})
		return
	}
	defer src.Close()

	points, result, err := ParseLoadChartCSV(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result.CraneID = craneID

	// Points outside the crane's envelope are dropped like bad rows.
	valid := points[:0]
	for _, p := range points {
		if validateChartPoint(p, crane) != nil {
			result.SkippedRows++
			result.ImportedRows--
			continue
		}
		valid = append(valid, p)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("crane_id = ?", craneID).Delete(&models.LoadChartPoint{}).Error; err != nil {
			return err
		}
		for i := range valid {
			valid[i].CraneID = craneID
		}
		if len(valid) == 0 {
			return nil
		}
		return tx.Create(&valid).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store chart: " + err.Error()})
		return
	}

	if caller, ok := CurrentUser(c); ok {
		go notifyImportFinished(storage.GetDB(), caller.ID, *result)
	}
	c.JSON(http.StatusOK, result)
}
