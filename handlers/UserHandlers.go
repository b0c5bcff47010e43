package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"liftplanner/models"
	"liftplanner/storage"
	"liftplanner/utils"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// RegisterUserHandler creates a new account on the free tier.
// @Summary Register user
// @Description Create a new user account with the free role
// @Tags Users
// @Accept json
// @Produce json
// @Param request body models.User true "New user"
// @Success 201 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/register [post]
func RegisterUserHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email     string `json:"email" binding:"required,email"`
			Password  string `json:"password" binding:"required,min=8"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			Company   string `json:"company"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		hashed, err := utils.HashPassword(input.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}

		var user models.User
		err = db.QueryRow(`
			INSERT INTO users (email, password, first_name, last_name, company, role)
			VALUES (LOWER($1), $2, $3, $4, $5, $6)
			RETURNING id, email, first_name, last_name, company, role, suspended, created_at, updated_at`,
			strings.TrimSpace(input.Email), hashed, input.FirstName, input.LastName, input.Company, models.RoleFree,
		).Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.Company, &user.Role, &user.Suspended, &user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user", "details": err.Error()})
			return
		}

		// Seed the quota counters so the first save never races the insert.
		if _, err := db.Exec(`INSERT INTO user_stats (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, user.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initialize user stats"})
			return
		}

		c.JSON(http.StatusCreated, user)
	}
}

// GetUserHandler retrieves user information by ID
// @Summary Get user by ID
// @Description Retrieve user information; callers may only read themselves unless admin
// @Tags Users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/users/{id} [get]
func GetUserHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}

		if caller.ID != id && caller.Role != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only view your own account"})
			return
		}

		var user models.User
		err = db.QueryRow(`
			SELECT id, email, first_name, last_name, company, role, suspended, created_at, updated_at
			FROM users WHERE id = $1`, id,
		).Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.Company, &user.Role, &user.Suspended, &user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, user)
	}
}

// GetUserPreferencesHandler returns the caller's preferences
// @Summary Get preferences
// @Description Get the authenticated user's preferences
// @Tags Users
// @Produce json
// @Success 200 {object} models.UserPreferences
// @Failure 401 {object} models.ErrorResponse
// @Router /api/preferences [get]
func GetUserPreferencesHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		var prefs models.UserPreferences
		err := db.QueryRow(`
			SELECT id, role, units, language, company_logo, email_reports, push_enabled
			FROM users WHERE id = $1`, caller.ID,
		).Scan(&prefs.UserID, &prefs.Role, &prefs.Units, &prefs.Language, &prefs.CompanyLogo, &prefs.EmailReports, &prefs.PushEnabled)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch preferences", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, prefs)
	}
}

// UpdateUserPreferencesHandler overwrites the caller's preferences in one statement.
// The role field in the payload is ignored; role changes go through the admin route.
// @Summary Update preferences
// @Description Update the authenticated user's preferences in bulk
// @Tags Users
// @Accept json
// @Produce json
// @Param request body models.UserPreferences true "Preferences"
// @Success 200 {object} models.UserPreferences
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/preferences [put]
func UpdateUserPreferencesHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		var prefs models.UserPreferences
		if err := c.ShouldBindJSON(&prefs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		switch prefs.Units {
		case "", "metric", "imperial":
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "units must be metric or imperial"})
			return
		}
		if prefs.Units == "" {
			prefs.Units = "metric"
		}
		if prefs.Language == "" {
			prefs.Language = "en"
		}

		_, err := db.Exec(`
			UPDATE users
			SET units = $1, language = $2, company_logo = $3, email_reports = $4, push_enabled = $5, updated_at = NOW()
			WHERE id = $6`,
			prefs.Units, prefs.Language, prefs.CompanyLogo, prefs.EmailReports, prefs.PushEnabled, caller.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update preferences", "details": err.Error()})
			return
		}

		prefs.UserID = caller.ID
		prefs.Role = caller.Role
		c.JSON(http.StatusOK, prefs)
	}
}

// SetUserRoleHandler changes a user's role. Admin only.
// @Summary Set user role
// @Description Change a user's subscription role (free, premium, admin)
// @Tags Users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body map[string]string true "New role"
// @Success 200 {object} utils.Response
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/users/{id}/role [put]
func SetUserRoleHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}

		var input struct {
			Role string `json:"role" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}

		switch input.Role {
		case models.RoleFree, models.RolePremium, models.RoleAdmin:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role: " + input.Role})
			return
		}

		result, err := db.Exec(`UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`, input.Role, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role", "details": err.Error()})
			return
		}
		if n, _ := result.RowsAffected(); n == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Role updated successfully", "role": input.Role})
	}
}

// SuspendUserHandler toggles the suspended flag on an account. Admin only.
// All sessions are dropped when suspending.
// @Summary Suspend or unsuspend user
// @Tags Users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body map[string]bool true "Suspended flag"
// @Success 200 {object} utils.Response
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/users/{id}/suspend [put]
func SuspendUserHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}

		var input struct {
			Suspended *bool `json:"suspended" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}

		result, err := db.Exec(`UPDATE users SET suspended = $1, updated_at = NOW() WHERE id = $2`, *input.Suspended, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user", "details": err.Error()})
			return
		}
		if n, _ := result.RowsAffected(); n == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		if *input.Suspended {
			_ = storage.DeleteSession(db, id)
		}

		c.JSON(http.StatusOK, gin.H{"message": "User updated successfully", "suspended": *input.Suspended})
	}
}

// GetUserStatsHandler returns the caller's calculation counters and the
// remaining free-tier allowance.
// @Summary Get usage stats
// @Tags Users
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} models.ErrorResponse
// @Router /api/stats [get]
func GetUserStatsHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		var stats models.UserStats
		err := db.QueryRow(`
			SELECT user_id, total_calculations, existing_calculations, updated_at
			FROM user_stats WHERE user_id = $1`, caller.ID,
		).Scan(&stats.UserID, &stats.TotalCalculations, &stats.ExistingCalculations, &stats.UpdatedAt)
		if err != nil && err != sql.ErrNoRows {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats", "details": err.Error()})
			return
		}
		stats.UserID = caller.ID

		remaining := -1 // unlimited
		if caller.Role == models.RoleFree {
			remaining = models.FreeTierLimit - stats.TotalCalculations
			if remaining < 0 {
				remaining = 0
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"stats":     stats,
			"role":      caller.Role,
			"remaining": remaining,
		})
	}
}

// RegisterPushTokenHandler stores the device push token used for quota and
// import notifications.
// @Summary Register push token
// @Tags Users
// @Accept json
// @Produce json
// @Param request body map[string]string true "Push token"
// @Success 200 {object} utils.Response
// @Failure 400 {object} models.ErrorResponse
// @Router /api/push-token [post]
func RegisterPushTokenHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		var input struct {
			Token string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}

		_, err := db.Exec(`UPDATE users SET push_token = $1, push_enabled = TRUE, updated_at = NOW() WHERE id = $2`, input.Token, caller.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save push token", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Push token registered"})
	}
}
