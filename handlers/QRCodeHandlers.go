package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

// addLabel draws regular text onto the image at the given position.
func addLabel(img *image.RGBA, x, y int, label string) {
	col := color.RGBA{0, 0, 0, 255}
	point := fixed.Point26_6{
		X: fixed.Int26_6(x * 64),
		Y: fixed.Int26_6(y * 64),
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: inconsolata.Regular8x16,
		Dot:  point,
	}
	d.DrawString(label)
}

// addLabelBold draws bold text for field labels.
func addLabelBold(img *image.RGBA, x, y int, label string) {
	col := color.RGBA{30, 30, 30, 255}
	point := fixed.Point26_6{
		X: fixed.Int26_6(x * 64),
		Y: fixed.Int26_6(y * 64),
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: inconsolata.Bold8x16,
		Dot:  point,
	}
	d.DrawString(label)
}

// GenerateReportQRCode godoc
// @Summary      Generate a share QR code for a calculation as JPEG
// @Description  The QR payload is the calculation id plus its public flag; scanners resolve it against the report endpoint.
// @Tags         qr
// @Param        id   path      string  true  "Calculation ID"
// @Success      200  {file}    file  "JPEG image"
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/reports/{id}/qr [get]
func GenerateReportQRCode(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		calc, err := FetchCalculation(db, c.Param("id"))
		if err != nil {
			c.JSON(lifecycleStatus(err), gin.H{"error": err.Error()})
			return
		}

		caller, authed := CurrentUser(c)
		if !canViewReport(caller, authed, calc.IsPublic, calc.UserID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not the owner of this calculation"})
			return
		}

		qrData := struct {
			ID       string `json:"id"`
			IsPublic bool   `json:"is_public"`
		}{
			ID:       calc.ID,
			IsPublic: calc.IsPublic,
		}
		jsonData, err := json.Marshal(qrData)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to marshal QR payload"})
			return
		}

		qr, err := qrcode.New(string(jsonData), qrcode.Medium)
		if err != nil {
			c.String(http.StatusInternalServerError, "QR code generation failed")
			return
		}

		qrImg := qr.Image(512)

		qrSize := qrImg.Bounds().Dy()
		padding := 30
		lineHeight := 28
		textAreaHeight := 4*lineHeight + padding
		totalHeight := qrSize + padding + textAreaHeight

		combinedImg := image.NewRGBA(image.Rect(0, 0, qrSize, totalHeight))
		draw.Draw(combinedImg, combinedImg.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

		qrRect := image.Rect(0, 0, qrSize, qrSize)
		draw.Draw(combinedImg, qrRect, qrImg, image.Point{}, draw.Src)

		// Separator line between the QR code and the caption block.
		separatorY := qrSize + padding/2
		for x := 0; x < qrSize; x++ {
			combinedImg.Set(x, separatorY, color.RGBA{200, 200, 200, 255})
		}

		startY := qrSize + padding + lineHeight
		xPos := 20

		rounded := RoundResultForDisplay(calc.LiftResult)

		projectDisplay := calc.ProjectName
		if len(projectDisplay) > 30 {
			projectDisplay = projectDisplay[:27] + "..."
		}

		addLabelBold(combinedImg, xPos, startY, "Project:")
		addLabel(combinedImg, xPos+140, startY, projectDisplay)

		addLabelBold(combinedImg, xPos, startY+lineHeight, "Date:")
		addLabel(combinedImg, xPos+140, startY+lineHeight, calc.ProjectDate.Format("2006-01-02"))

		addLabelBold(combinedImg, xPos, startY+2*lineHeight, "Total Load:")
		addLabel(combinedImg, xPos+140, startY+2*lineHeight, fmt.Sprintf("%.1f t", rounded.TotalLoad))

		addLabelBold(combinedImg, xPos, startY+3*lineHeight, "Min Boom:")
		addLabel(combinedImg, xPos+140, startY+3*lineHeight, fmt.Sprintf("%.1f m", rounded.MinBoomLength))

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, combinedImg, nil); err != nil {
			c.String(http.StatusInternalServerError, "JPEG encoding failed")
			return
		}

		c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
	}
}
