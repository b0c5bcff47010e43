package handlers

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"liftplanner/models"
	"liftplanner/storage"
	"liftplanner/utils"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// DownloadLoadChartTemplate serves an empty CSV template matching the
// import format.
func DownloadLoadChartTemplate(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename=load_chart_template.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	header := []string{"radius", "capacity", "boomLength"}
	if err := writer.Write(header); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV header"})
		return
	}

	sampleRow := []string{"3", "35", "9.2"}
	if err := writer.Write(sampleRow); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing sample row"})
		return
	}
}

// ExportLoadChartCSV godoc
// @Summary      Export a crane's load chart as CSV
// @Tags         export
// @Produce      text/csv
// @Param        crane_id  path  string  true  "Crane slug"
// @Success      200  {file}  file  "CSV file"
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/cranes/{crane_id}/load-chart/export [get]
func ExportLoadChartCSV(c *gin.Context) {
	craneID := c.Param("crane_id")
	db := storage.GetGormDB()

	var crane models.CraneModel
	if err := db.Where("crane_id = ?", craneID).First(&crane).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "crane not found"})
		return
	}

	points, err := FetchLoadChart(db, craneID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chart"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment;filename=%s_load_chart.csv", craneID))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	if err := writer.Write([]string{"radius", "capacity", "boomLength"}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV header"})
		return
	}
	for _, p := range points {
		row := []string{
			strconv.FormatFloat(p.Radius, 'f', -1, 64),
			strconv.FormatFloat(p.Capacity, 'f', -1, 64),
			strconv.FormatFloat(p.BoomLength, 'f', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV row"})
			return
		}
	}
}

// ExportCalculationsXLSX godoc
// @Summary      Export the caller's calculations as a spreadsheet
// @Tags         export
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200  {file}  file  "XLSX file"
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/calculations/export [get]
func ExportCalculationsXLSX(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		ctx, cancel := utils.GetSlowQueryContext(c.Request.Context())
		defer cancel()

		rows, err := db.QueryContext(ctx, `
			SELECT id, project_name, project_location, project_date,
			       building_height, crane_edge_distance, lift_radius, required_load, lift_tackle,
			       boom_angle, min_boom_length, min_vertical_height, total_load, created_at
			FROM calculation
			WHERE user_id = $1
			ORDER BY created_at DESC`, caller.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		defer rows.Close()

		f := excelize.NewFile()
		sheet := "Calculations"
		f.SetSheetName("Sheet1", sheet)

		headers := []string{"ID", "Project", "Location", "Date",
			"Building Height (m)", "Edge Distance (m)", "Lift Radius (m)", "Required Load (t)", "Lift Tackle (t)",
			"Boom Angle (deg)", "Min Boom Length (m)", "Vertical Clearance (m)", "Total Load (t)", "Created"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
		}

		rowIdx := 2
		for rows.Next() {
			var id, projectName, projectLocation string
			var projectDate models.DateOnly
			var createdAt time.Time
			var vals [9]float64
			if err := rows.Scan(&id, &projectName, &projectLocation, &projectDate,
				&vals[0], &vals[1], &vals[2], &vals[3], &vals[4],
				&vals[5], &vals[6], &vals[7], &vals[8], &createdAt); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}

			record := []interface{}{id, projectName, projectLocation, projectDate.Format("2006-01-02")}
			for i, v := range vals {
				// Derived figures are display values: one decimal.
				if i >= 5 {
					v = round1(v)
				}
				record = append(record, v)
			}
			record = append(record, createdAt.Format("2006-01-02 15:04"))

			for i, v := range record {
				cell, _ := excelize.CoordinatesToCellName(i+1, rowIdx)
				f.SetCellValue(sheet, cell, v)
			}
			rowIdx++
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment;filename=calculations.xlsx")
		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write spreadsheet"})
			return
		}
	}
}
