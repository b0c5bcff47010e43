package handlers

import (
	"database/sql"
	"fmt"
	"liftplanner/models"
	"liftplanner/services"
	"liftplanner/storage"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BuildReportView projects a calculation into the flat view model the
// external renderers (PDF, HTML page, QR payload) consume. Pure projection;
// no computation happens here or downstream.
func BuildReportView(calc models.Calculation, ownerName string, craneNames []string) models.ReportView {
	imageURLs := make([]string, 0, len(calc.Images))
	imageCaptions := make([]string, 0, len(calc.Images))
	for _, img := range calc.Images {
		imageURLs = append(imageURLs, img.URL)
		imageCaptions = append(imageCaptions, img.Caption)
	}

	rounded := RoundResultForDisplay(calc.LiftResult)

	return models.ReportView{
		CalculationID:     calc.ID,
		ProjectName:       calc.ProjectName,
		ProjectLocation:   calc.ProjectLocation,
		ProjectDate:       calc.ProjectDate.Format("2006-01-02"),
		OwnerName:         ownerName,
		BuildingHeight:    calc.BuildingHeight,
		CraneEdgeDistance: calc.CraneEdgeDistance,
		LiftRadius:        calc.LiftRadius,
		RequiredLoad:      calc.RequiredLoad,
		LiftTackle:        calc.LiftTackle,
		BoomAngle:         rounded.BoomAngle,
		MinBoomLength:     rounded.MinBoomLength,
		MinVerticalHeight: rounded.MinVerticalHeight,
		TotalLoad:         rounded.TotalLoad,
		CraneNames:        craneNames,
		LogoURL:           calc.LogoURL,
		ImageURLs:         imageURLs,
		ImageCaptions:     imageCaptions,
		IsPublic:          calc.IsPublic,
		GeneratedAt:       time.Now().UTC(),
	}
}

// fetchReportView loads a calculation with its owner and crane display
// names and builds the view model. The owner id rides along so callers can
// enforce visibility without re-fetching the calculation.
func fetchReportView(db *sql.DB, id string) (*models.ReportView, int, error) {
	calc, err := FetchCalculation(db, id)
	if err != nil {
		return nil, 0, err
	}

	var ownerName string
	err = db.QueryRow(`SELECT CONCAT(first_name, ' ', last_name) FROM users WHERE id = $1`, calc.UserID).Scan(&ownerName)
	if err != nil && err != sql.ErrNoRows {
		return nil, 0, fmt.Errorf("%w: %v", models.ErrTransientStore, err)
	}

	craneNames := make([]string, 0, len(calc.SelectedCranes))
	gdb := storage.GetGormDB()
	for _, craneID := range calc.SelectedCranes {
		var crane models.CraneModel
		if err := gdb.Where("crane_id = ?", craneID).First(&crane).Error; err != nil {
			// A crane removed from the catalog keeps its slug in old reports.
			craneNames = append(craneNames, craneID)
			continue
		}
		craneNames = append(craneNames, crane.Manufacturer+" "+crane.Model)
	}

	view := BuildReportView(*calc, ownerName, craneNames)
	return &view, calc.UserID, nil
}

// reportForRequest loads the report view for the :id path param and enforces
// visibility: public reports are world-readable, private ones require the
// owner or an admin. On failure the response has already been written.
func reportForRequest(db *sql.DB, c *gin.Context) (*models.ReportView, bool) {
	view, ownerID, err := fetchReportView(db, c.Param("id"))
	if err != nil {
		c.JSON(lifecycleStatus(err), gin.H{"error": err.Error()})
		return nil, false
	}

	caller, authed := CurrentUser(c)
	if !canViewReport(caller, authed, view.IsPublic, ownerID) {
		c.JSON(http.StatusForbidden, gin.H{"error": models.ErrForbidden.Error()})
		return nil, false
	}
	return view, true
}

// canViewReport reports whether a caller may read a report in any rendering
// (view model, PDF, QR). Public reports are world-readable; private ones are
// limited to the owner and admins.
func canViewReport(caller models.User, authenticated, isPublic bool, ownerID int) bool {
	if isPublic {
		return true
	}
	return authenticated && canMutate(caller, ownerID)
}

// GetReportView godoc
// @Summary      Get the rendering-agnostic report view model
// @Tags         reports
// @Produce      json
// @Param        id   path      string  true  "Calculation ID"
// @Success      200  {object}  models.ReportView
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/reports/{id} [get]
func GetReportView(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, ok := reportForRequest(db, c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// GenerateReportPDF godoc
// @Summary      Render a calculation as a PDF report
// @Tags         reports
// @Param        id   path  string  true  "Calculation ID"
// @Success      200  "PDF file"
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/reports/{id}/pdf [get]
func GenerateReportPDF(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, ok := reportForRequest(db, c)
		if !ok {
			return
		}

		titleCaser := cases.Title(language.Und)

		pdf := gofpdf.New("P", "mm", "A4", "")
		pdf.AddPage()
		pdf.SetMargins(10, 10, 10)

		// --- Header ---
		pdf.SetFont("Arial", "B", 18)
		pdf.Cell(190, 10, "CRANE LIFT REPORT")
		pdf.Ln(12)

		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(190, 8, titleCaser.String(view.ProjectName))
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(95, 6, fmt.Sprintf("Location: %s", view.ProjectLocation))
		pdf.Cell(95, 6, fmt.Sprintf("Date: %s", view.ProjectDate))
		pdf.Ln(6)
		pdf.Cell(95, 6, fmt.Sprintf("Prepared by: %s", view.OwnerName))
		pdf.Ln(10)

		// --- Measurements ---
		pdf.SetFont("Arial", "B", 11)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(95, 8, "Measurement", "1", 0, "L", true, 0, "")
		pdf.CellFormat(95, 8, "Value", "1", 1, "L", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		measurements := []struct {
			label string
			value string
		}{
			{"Building height", fmt.Sprintf("%.1f m", view.BuildingHeight)},
			{"Crane-to-obstruction distance", fmt.Sprintf("%.1f m", view.CraneEdgeDistance)},
			{"Lift radius", fmt.Sprintf("%.1f m", view.LiftRadius)},
			{"Required load", fmt.Sprintf("%.1f t", view.RequiredLoad)},
			{"Lift tackle", fmt.Sprintf("%.1f t", view.LiftTackle)},
		}
		for _, m := range measurements {
			pdf.CellFormat(95, 8, m.label, "1", 0, "L", false, 0, "")
			pdf.CellFormat(95, 8, m.value, "1", 1, "L", false, 0, "")
		}
		pdf.Ln(5)

		// --- Results ---
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(95, 8, "Computed requirement", "1", 0, "L", true, 0, "")
		pdf.CellFormat(95, 8, "Value", "1", 1, "L", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		results := []struct {
			label string
			value string
		}{
			{"Boom angle", fmt.Sprintf("%.1f deg", view.BoomAngle)},
			{"Minimum boom length", fmt.Sprintf("%.1f m", view.MinBoomLength)},
			{"Vertical clearance", fmt.Sprintf("%.1f m", view.MinVerticalHeight)},
			{"Total load", fmt.Sprintf("%.1f t", view.TotalLoad)},
		}
		for _, r := range results {
			pdf.CellFormat(95, 8, r.label, "1", 0, "L", false, 0, "")
			pdf.CellFormat(95, 8, r.value, "1", 1, "L", false, 0, "")
		}
		pdf.Ln(8)

		// --- Selected cranes ---
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(190, 8, "Selected cranes:")
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 10)
		if len(view.CraneNames) == 0 {
			pdf.Cell(190, 6, "No crane selected.")
			pdf.Ln(6)
		}
		for _, name := range view.CraneNames {
			pdf.Cell(190, 6, "- "+name)
			pdf.Ln(6)
		}

		// --- Attachments ---
		if len(view.ImageURLs) > 0 {
			pdf.Ln(4)
			pdf.SetFont("Arial", "B", 11)
			pdf.Cell(190, 8, "Attachments:")
			pdf.Ln(8)
			pdf.SetFont("Arial", "", 10)
			for i, url := range view.ImageURLs {
				caption := ""
				if i < len(view.ImageCaptions) {
					caption = view.ImageCaptions[i]
				}
				pdf.Cell(190, 6, fmt.Sprintf("%s (%s)", caption, url))
				pdf.Ln(6)
			}
		}

		// --- Footer ---
		pdf.SetY(-20)
		pdf.SetFont("Arial", "I", 8)
		pdf.Cell(190, 6, "Estimates for crane selection only. Not a load-certified engineering calculation.")
		pdf.Ln(5)
		pdf.Cell(190, 6, "Generated on: "+view.GeneratedAt.Format("2006-01-02 15:04:05"))

		c.Header("Content-Type", "application/pdf")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=lift_report_%s.pdf", view.CalculationID))
		if err := pdf.Output(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate PDF"})
			return
		}
	}
}

type shareRequest struct {
	Email string `json:"email"`
}

// ShareReportHandler godoc
// @Summary      Email a report link to a recipient
// @Tags         reports
// @Accept       json
// @Produce      json
// @Param        id    path      string  true  "Calculation ID"
// @Param        body  body      object  true  "Recipient email"
// @Success      200   {object}  models.ErrorResponse
// @Failure      400   {object}  models.ErrorResponse
// @Failure      403   {object}  models.ErrorResponse
// @Router       /api/reports/{id}/share [post]
func ShareReportHandler(db *sql.DB, email *services.EmailService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		var req shareRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "recipient email is required"})
			return
		}

		calc, err := FetchCalculation(db, c.Param("id"))
		if err != nil {
			c.JSON(lifecycleStatus(err), gin.H{"error": err.Error()})
			return
		}
		if !canMutate(caller, calc.UserID) {
			c.JSON(http.StatusForbidden, gin.H{"error": models.ErrForbidden.Error()})
			return
		}

		view, _, err := fetchReportView(db, calc.ID)
		if err != nil {
			c.JSON(lifecycleStatus(err), gin.H{"error": err.Error()})
			return
		}

		senderName := caller.FirstName + " " + caller.LastName
		if err := email.ShareReport(req.Email, *view, senderName); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send email: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "report shared"})
	}
}
