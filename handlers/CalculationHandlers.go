package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"liftplanner/models"
	"liftplanner/storage"
	"liftplanner/utils"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CurrentUser returns the authenticated user placed on the context by the
// auth middleware. The role claim is resolved once at authentication time;
// handlers never re-derive it.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get("currentUser")
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

func canMutate(caller models.User, ownerID int) bool {
	return caller.ID == ownerID || caller.Role == models.RoleAdmin
}

// ---------- Lifecycle core ----------

// CreateCalculation persists a new calculation inside a single transaction:
// it locks the owner's stats row, enforces the free-tier cap, increments both
// counters and inserts the document. Either everything commits or nothing
// does; two concurrent creates for the same user serialize on the row lock.
func CreateCalculation(db *sql.DB, owner models.User, calc *models.Calculation) error {
	result, err := SolveLift(calc.LiftRequirement)
	if err != nil {
		return err
	}
	calc.LiftResult = result

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransientStore, err)
	}
	defer tx.Rollback()

	var role string
	if err := tx.QueryRow(`SELECT role FROM users WHERE id = $1`, owner.ID).Scan(&role); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("owner: %w", models.ErrNotFound)
		}
		return fmt.Errorf("%w: %v", models.ErrTransientStore, err)
	}

	if _, err := tx.Exec(`INSERT INTO user_stats (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, owner.ID); err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransientStore, err)
	}

	var total int
	err = tx.QueryRow(`SELECT total_calculations FROM user_stats WHERE user_id = $1 FOR UPDATE`, owner.ID).Scan(&total)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransientStore, err)
	}

	if role == models.RoleFree && total >= models.FreeTierLimit {
		return models.ErrQuotaExceeded
	}

	calc.ID = uuid.NewString()
	calc.UserID = owner.ID
	now := time.Now().UTC()
	calc.CreatedAt = now
	calc.UpdatedAt = now

	_, err = tx.Exec(`
		INSERT INTO calculation (
			id, user_id, project_name, project_location, project_date,
			building_height, crane_edge_distance, lift_radius, required_load, lift_tackle,
			boom_angle, min_boom_length, min_vertical_height, total_load,
			selected_cranes, logo_url, images, is_public, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		calc.ID, calc.UserID, calc.ProjectName, calc.ProjectLocation, calc.ProjectDate,
		calc.BuildingHeight, calc.CraneEdgeDistance, calc.LiftRadius, calc.RequiredLoad, calc.LiftTackle,
		calc.BoomAngle, calc.MinBoomLength, calc.MinVerticalHeight, calc.TotalLoad,
		pq.StringArray(calc.SelectedCranes), calc.LogoURL, calc.Images, calc.IsPublic, calc.CreatedAt, calc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransientStore, err)
	}

	_, err = tx.Exec(`
		UPDATE user_stats
		SET total_calculations = total_calculations + 1,
		    existing_calculations = existing_calculations + 1,
		    updated_at = NOW()
		WHERE user_id = $1`, owner.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransientStore, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransientStore, err)
	}
	return nil
}

// UpdateCalculation overwrites a saved calculation in place. No quota
// charge; unspecified metadata (owner, created_at) is preserved and
// updated_at is stamped. The lift result is re-derived from the submitted
// measurements so the stored document stays internally consistent.
func UpdateCalculation(db *sql.DB, caller models.User, calc *models.Calculation) error {
	result, err := SolveLift(calc.LiftRequirement)
	if err != nil {
		return err
	}
	calc.LiftResult = result

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransientStore, err)
	}
	defer tx.Rollback()

	var ownerID int
	if err := tx.QueryRow(`SELECT user_id FROM calculation WHERE id = $1 FOR UPDATE`, calc.ID).Scan(&ownerID); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("calculation %s: %w", calc.ID, models.ErrNotFound)
		}
		return fmt.Errorf("%w: %v", models.ErrTransientStore, err)
	}
	if !canMutate(caller, ownerID) {
		return models.ErrForbidden
	}

	calc.UserID = ownerID
	calc.UpdatedAt = time.Now().UTC()
	_, err = tx.Exec(`
		UPDATE calculation SET
			project_name = $2, project_location = $3, project_date = $4,
			building_height = $5, crane_edge_distance = $6, lift_radius = $7,
			required_load = $8, lift_tackle = $9,
			boom_angle = $10, min_boom_length = $11, min_vertical_height = $12, total_load = $13,
			selected_cranes = $14, logo_url = $15, images = $16, is_public = $17, updated_at = $18
		WHERE id = $1`,
		calc.ID, calc.ProjectName, calc.ProjectLocation, calc.ProjectDate,
		calc.BuildingHeight, calc.CraneEdgeDistance, calc.LiftRadius,
		calc.RequiredLoad, calc.LiftTackle,
		calc.BoomAngle, calc.MinBoomLength, calc.MinVerticalHeight, calc.TotalLoad,
		pq.StringArray(calc.SelectedCranes), calc.LogoURL, calc.Images, calc.IsPublic, calc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransientStore, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransientStore, err)
	}
	return nil
}

// DeleteCalculation removes a calculation and decrements the live counter in
// the same transaction, so a crash can never leave the stats inconsistent.
// The lifetime counter is never decremented.
func DeleteCalculation(db *sql.DB, caller models.User, id string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransientStore, err)
	}
	defer tx.Rollback()

	var ownerID int
	if err := tx.QueryRow(`SELECT user_id FROM calculation WHERE id = $1 FOR UPDATE`, id).Scan(&ownerID); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("calculation %s: %w", id, models.ErrNotFound)
		}
		return fmt.Errorf("%w: %v", models.ErrTransientStore, err)
	}
	if !canMutate(caller, ownerID) {
		return models.ErrForbidden
	}

	if _, err := tx.Exec(`DELETE FROM calculation WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransientStore, err)
	}

	_, err = tx.Exec(`
		UPDATE user_stats
		SET existing_calculations = GREATEST(existing_calculations - 1, 0),
		    updated_at = NOW()
		WHERE user_id = $1`, ownerID)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransientStore, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransientStore, err)
	}
	return nil
}

// FetchCalculation reads one calculation row.
func FetchCalculation(db *sql.DB, id string) (*models.Calculation, error) {
	var calc models.Calculation
	err := db.QueryRow(`
		SELECT id, user_id, project_name, project_location, project_date,
		       building_height, crane_edge_distance, lift_radius, required_load, lift_tackle,
		       boom_angle, min_boom_length, min_vertical_height, total_load,
		       selected_cranes, logo_url, images, is_public, created_at, updated_at
		FROM calculation WHERE id = $1`, id).Scan(
		&calc.ID, &calc.UserID, &calc.ProjectName, &calc.ProjectLocation, &calc.ProjectDate,
		&calc.BuildingHeight, &calc.CraneEdgeDistance, &calc.LiftRadius, &calc.RequiredLoad, &calc.LiftTackle,
		&calc.BoomAngle, &calc.MinBoomLength, &calc.MinVerticalHeight, &calc.TotalLoad,
		&calc.SelectedCranes, &calc.LogoURL, &calc.Images, &calc.IsPublic, &calc.CreatedAt, &calc.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("calculation %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrTransientStore, err)
	}
	return &calc, nil
}

func lifecycleStatus(err error) int {
	switch {
	case models.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrQuotaExceeded), errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrTransientStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ---------- Handlers ----------

// SaveCalculationHandler godoc
// @Summary      Save a lift calculation
// @Description  Without an id a new record is created, which consumes one quota unit for free-tier accounts. With an id the record is updated in place, free of charge.
// @Tags         calculations
// @Accept       json
// @Produce      json
// @Param        body  body      models.Calculation  true  "Calculation"
// @Success      200   {object}  models.Calculation
// @Success      201   {object}  models.Calculation
// @Failure      400   {object}  models.ErrorResponse
// @Failure      403   {object}  models.ErrorResponse
// @Router       /api/calculations [post]
func SaveCalculationHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		var calc models.Calculation
		if err := c.ShouldBindJSON(&calc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: " + err.Error()})
			return
		}

		if calc.ID == "" {
			if err := CreateCalculation(db, caller, &calc); err != nil {
				status := lifecycleStatus(err)
				if errors.Is(err, models.ErrQuotaExceeded) {
					c.JSON(status, gin.H{
						"error":   err.Error(),
						"upgrade": "upgrade to premium for unlimited calculations",
					})
					return
				}
				c.JSON(status, gin.H{"error": err.Error()})
				return
			}
			go notifyQuotaUsage(db, caller)
			c.JSON(http.StatusCreated, calc)
			return
		}

		if err := UpdateCalculation(db, caller, &calc); err != nil {
			c.JSON(lifecycleStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, calc)
	}
}

// GetCalculationHandler godoc
// @Summary      Get one calculation
// @Tags         calculations
// @Produce      json
// @Param        id   path      string  true  "Calculation ID"
// @Success      200  {object}  models.Calculation
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/calculations/{id} [get]
func GetCalculationHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		calc, err := FetchCalculation(db, c.Param("id"))
		if err != nil {
			c.JSON(lifecycleStatus(err), gin.H{"error": err.Error()})
			return
		}
		if !calc.IsPublic && !canMutate(caller, calc.UserID) {
			c.JSON(http.StatusForbidden, gin.H{"error": models.ErrForbidden.Error()})
			return
		}
		c.JSON(http.StatusOK, calc)
	}
}

// ListCalculationsHandler godoc
// @Summary      List the caller's calculations, newest first
// @Tags         calculations
// @Produce      json
// @Success      200  {array}   models.CalculationListItem
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/calculations [get]
func ListCalculationsHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		ctx, cancel := utils.GetFastQueryContext(c.Request.Context())
		defer cancel()

		rows, err := db.QueryContext(ctx, `
			SELECT id, project_name, total_load, min_boom_length, created_at, is_public
			FROM calculation
			WHERE user_id = $1
			ORDER BY created_at DESC`, caller.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		defer rows.Close()

		items := []models.CalculationListItem{}
		for rows.Next() {
			var item models.CalculationListItem
			var createdAt time.Time
			if err := rows.Scan(&item.ID, &item.ProjectName, &item.TotalLoad, &item.MinBoomLength, &createdAt, &item.IsPublic); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			item.CreatedAt = createdAt.Format(time.RFC3339)
			items = append(items, item)
		}
		c.JSON(http.StatusOK, items)
	}
}

// DeleteCalculationHandler godoc
// @Summary      Delete a calculation
// @Description  Frees one live-count unit. The lifetime counter is unaffected.
// @Tags         calculations
// @Produce      json
// @Param        id   path      string  true  "Calculation ID"
// @Success      200  {object}  models.ErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/calculations/{id} [delete]
func DeleteCalculationHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		if err := DeleteCalculation(db, caller, c.Param("id")); err != nil {
			c.JSON(lifecycleStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "calculation deleted"})
	}
}

// CalculationMatricesHandler godoc
// @Summary      Evaluate matrices for a saved calculation's selected cranes
// @Tags         calculations
// @Produce      json
// @Param        id   path      string  true  "Calculation ID"
// @Success      200  {object}  models.MatrixResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/calculations/{id}/matrices [get]
func CalculationMatricesHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		calc, err := FetchCalculation(db, c.Param("id"))
		if err != nil {
			c.JSON(lifecycleStatus(err), gin.H{"error": err.Error()})
			return
		}
		if !calc.IsPublic && !canMutate(caller, calc.UserID) {
			c.JSON(http.StatusForbidden, gin.H{"error": models.ErrForbidden.Error()})
			return
		}

		gdb := storage.GetGormDB()
		matrices := make([]models.LoadChartMatrix, 0, len(calc.SelectedCranes))
		for _, craneID := range calc.SelectedCranes {
			points, err := FetchLoadChart(gdb, craneID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chart for " + craneID})
				return
			}
			matrices = append(matrices, BuildLoadChartMatrix(craneID, points, calc.TotalLoad, calc.LiftRadius, calc.MinBoomLength))
		}

		c.JSON(http.StatusOK, models.MatrixResponse{CalculationID: calc.ID, Matrices: matrices})
	}
}
