package handlers

import (
	"errors"
	"liftplanner/models"
	"liftplanner/repository"
	"liftplanner/storage"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ---------- Suitability Filter ----------

// FindSuitableCranes returns every catalog entry whose envelope covers the
// computed requirement, sorted ascending by capacity. An empty result is a
// valid answer, not an error; the caller renders a "no suitable crane" state.
func FindSuitableCranes(totalLoad, liftRadius, minBoomLength float64, catalog []models.CraneModel) []models.CraneModel {
	suitable := []models.CraneModel{}
	for _, crane := range catalog {
		if crane.Capacity < totalLoad {
			continue
		}
		if crane.Specifications.MaxBoomLength < minBoomLength {
			continue
		}
		if crane.Specifications.MaxRadius < liftRadius || crane.Specifications.MinRadius > liftRadius {
			continue
		}
		suitable = append(suitable, crane)
	}
	sort.SliceStable(suitable, func(i, j int) bool {
		return suitable[i].Capacity < suitable[j].Capacity
	})
	return suitable
}

// FetchCraneCatalog reads the whole catalog in one bulk query. The catalog
// is small and read-mostly, so no pagination.
func FetchCraneCatalog(db *gorm.DB) ([]models.CraneModel, error) {
	var catalog []models.CraneModel
	if err := db.Order("capacity asc").Find(&catalog).Error; err != nil {
		return nil, err
	}
	return catalog, nil
}

func validateCraneModel(crane models.CraneModel) error {
	spec := crane.Specifications
	if crane.Capacity < 0 || spec.MinBoomLength < 0 || spec.MinRadius < 0 {
		return &models.ValidationError{Field: "specifications", Reason: "values must not be negative"}
	}
	if spec.MinBoomLength > spec.MaxBoomLength {
		return &models.ValidationError{Field: "boom_length", Reason: "min_boom_length exceeds max_boom_length"}
	}
	if spec.MinRadius > spec.MaxRadius {
		return &models.ValidationError{Field: "radius", Reason: "min_radius exceeds max_radius"}
	}
	if crane.Manufacturer == "" || crane.Model == "" {
		return &models.ValidationError{Field: "model", Reason: "manufacturer and model are required"}
	}
	return nil
}

// ---------- Catalog handlers ----------

// ListCranes godoc
// @Summary      List the crane catalog
// @Tags         cranes
// @Produce      json
// @Success      200  {array}   models.CraneModel
// @Failure      500  {object}  models.ErrorResponse
// @Router       /api/cranes [get]
func ListCranes(c *gin.Context) {
	catalog, err := FetchCraneCatalog(storage.GetGormDB())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load crane catalog"})
		return
	}
	c.JSON(http.StatusOK, catalog)
}

// GetCrane godoc
// @Summary      Get one crane by its slug
// @Tags         cranes
// @Produce      json
// @Param        crane_id  path      string  true  "Crane slug"
// @Success      200       {object}  models.CraneModel
// @Failure      404       {object}  models.ErrorResponse
// @Router       /api/cranes/{crane_id} [get]
func GetCrane(c *gin.Context) {
	craneID := c.Param("crane_id")

	var crane models.CraneModel
	err := storage.GetGormDB().Where("crane_id = ?", craneID).First(&crane).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "crane not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, crane)
}

// CreateCrane godoc
// @Summary      Create a catalog entry (admin only)
// @Tags         cranes
// @Accept       json
// @Produce      json
// @Param        body  body      models.CraneModel  true  "Crane model"
// @Success      201   {object}  models.CraneModel
// @Failure      400   {object}  models.ErrorResponse
// @Failure      403   {object}  models.ErrorResponse
// @Router       /api/cranes [post]
func CreateCrane(c *gin.Context) {
	var crane models.CraneModel
	if err := c.ShouldBindJSON(&crane); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err := validateCraneModel(crane); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if crane.CraneID == "" {
		crane.CraneID = repository.GenerateCraneSlug(crane.Manufacturer, crane.Model)
	}

	if err := storage.GetGormDB().Create(&crane).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create crane: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, crane)
}

// UpdateCrane godoc
// @Summary      Update a catalog entry (admin only)
// @Tags         cranes
// @Accept       json
// @Produce      json
// @Param        crane_id  path      string             true  "Crane slug"
// @Param        body      body      models.CraneModel  true  "Crane model"
// @Success      200       {object}  models.CraneModel
// @Failure      400       {object}  models.ErrorResponse
// @Failure      404       {object}  models.ErrorResponse
// @Router       /api/cranes/{crane_id} [put]
func UpdateCrane(c *gin.Context) {
	craneID := c.Param("crane_id")

	var crane models.CraneModel
	db := storage.GetGormDB()
	if err := db.Where("crane_id = ?", craneID).First(&crane).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "crane not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var update models.CraneModel
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: " + err.Error()})
		return
	}

	// The slug is the stable key; it never changes on update.
	update.ID = crane.ID
	update.CraneID = crane.CraneID
	if err := validateCraneModel(update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := db.Model(&crane).Select("manufacturer", "model", "capacity",
		"min_boom_length", "max_boom_length", "min_radius", "max_radius").
		Updates(&update).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update crane: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, update)
}

// DeleteCrane godoc
// @Summary      Delete a catalog entry and its load chart (admin only)
// @Tags         cranes
// @Produce      json
// @Param        crane_id  path      string  true  "Crane slug"
// @Success      200       {object}  models.ErrorResponse
// @Failure      404       {object}  models.ErrorResponse
// @Router       /api/cranes/{crane_id} [delete]
func DeleteCrane(c *gin.Context) {
	craneID := c.Param("crane_id")

	db := storage.GetGormDB()
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("crane_id = ?", craneID).Delete(&models.CraneModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("crane_id = ?", craneID).Delete(&models.LoadChartPoint{}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "crane not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete crane: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "crane deleted"})
}
