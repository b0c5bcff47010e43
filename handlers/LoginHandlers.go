package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"liftplanner/models"
	"liftplanner/storage"
	"liftplanner/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const maxActiveSessions = 3

// LoginHandler handles user authentication
// @Summary Login user
// @Description Authenticate user and return session token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/login [post]
func LoginHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// A still-valid access token lets the client resume without
		// re-entering credentials.
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if token != "" {
			parsedToken, err := utils.ValidateJWT(token)
			// If token validation fails, fall through to email/password login
			// so users with expired tokens can still log in with credentials.
			if err == nil && parsedToken.Valid {
				claims, ok := parsedToken.Claims.(jwt.MapClaims)
				if !ok {
					c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims structure"})
					return
				}

				email, ok := claims["email"].(string)
				if !ok || email == "" {
					c.JSON(http.StatusUnauthorized, gin.H{"error": "Email claim missing or invalid"})
					return
				}

				user, err := storage.GetUserByEmail(db, email)
				if err != nil {
					c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
					return
				}

				if user.Suspended {
					c.JSON(http.StatusForbidden, gin.H{"error": "Account is suspended"})
					return
				}

				c.JSON(http.StatusOK, gin.H{
					"message":      "User successfully logged in via token",
					"access_token": token,
					"role":         user.Role,
					"user": gin.H{
						"id":    user.ID,
						"email": user.Email,
					},
				})
				return
			}
		}

		var loginData struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
			IP       string `json:"ip"`
		}

		if err := c.ShouldBindJSON(&loginData); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}

		user, err := storage.GetUserByEmail(db, loginData.Email)
		if err != nil || !utils.ValidatePassword(user.Password, loginData.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		if user.Suspended {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is suspended"})
			return
		}

		sessionCount, err := storage.GetUserSessionCount(db, user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check active sessions"})
			return
		}
		if sessionCount >= maxActiveSessions {
			c.JSON(http.StatusConflict, gin.H{
				"error":           "Maximum number of devices reached",
				"max_devices":     maxActiveSessions,
				"active_sessions": sessionCount,
			})
			return
		}

		accessToken, err := utils.GenerateJWT(user.Email, user.Role)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate access token"})
			return
		}

		refreshToken, err := utils.GenerateRefreshToken(user.Email, accessToken)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
			return
		}

		session := &models.Session{
			UserID:                user.ID,
			SessionID:             accessToken,
			HostName:              user.Email,
			IPAddress:             loginData.IP,
			Timestamp:             time.Now(),
			ExpiresAt:             time.Now().Add(15 * time.Minute),
			RefreshToken:          refreshToken,
			RefreshTokenExpiresAt: time.Now().Add(15 * 24 * time.Hour),
		}

		if err := storage.SaveSession(db, session, true); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session", "details": err.Error()})
			return
		}

		_ = storage.TouchUserAccess(db, user.ID)

		user.Password = ""
		c.JSON(http.StatusOK, models.LoginResponse{
			Token:        accessToken,
			RefreshToken: refreshToken,
			User:         *user,
		})
	}
}

// sessionOwnerOrAdmin parses the user_id path param and checks that the
// authenticated caller may act on that user's sessions. Tokens are bearer
// credentials, so session rows are visible to their owner and admins only.
func sessionOwnerOrAdmin(c *gin.Context) (int, bool) {
	caller, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return 0, false
	}

	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return 0, false
	}

	if !canMutate(caller, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only access your own sessions"})
		return 0, false
	}
	return userID, true
}

// GetSessionHandler retrieves session metadata for a user
// @Summary Get session by user ID
// @Description Retrieve the latest session's device metadata for a user. Owner or admin only; the session token is never included.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param user_id path int true "User ID"
// @Success 200 {object} models.Session
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/session/{user_id} [get]
func GetSessionHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionOwnerOrAdmin(c)
		if !ok {
			return
		}

		session, err := storage.GetSession(db, userID)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch session"})
			return
		}

		c.JSON(http.StatusOK, session)
	}
}

// DeleteSessionHandler logs out all devices for a user
// @Summary Delete session
// @Description Delete all sessions for a user (logout everywhere). Owner or admin only.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param user_id path int true "User ID"
// @Success 200 {object} utils.Response
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /api/session/{user_id} [delete]
func DeleteSessionHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionOwnerOrAdmin(c)
		if !ok {
			return
		}

		if err := storage.DeleteSession(db, userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
	}
}

// GetActiveDevicesHandler returns all active devices for the authenticated user
// @Summary Get active devices
// @Description Get list of all active devices/sessions for the current user
// @Tags Authentication
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} models.ErrorResponse
// @Router /api/active-devices [get]
func GetActiveDevicesHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		devices, err := storage.GetActiveDevices(db, caller.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get active devices", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":        "Active devices retrieved successfully",
			"active_devices": devices,
			"device_count":   len(devices),
		})
	}
}

// LogoutDeviceHandler logs out a specific device. Devices are addressed by
// the digest returned from GetActiveDevicesHandler, never by the raw token,
// and the lookup is scoped to the caller's own sessions.
// @Summary Logout specific device
// @Description Logout a specific device by providing its device_id from the active-devices listing
// @Tags Authentication
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param request body map[string]string true "Device ID to logout"
// @Success 200 {object} utils.Response
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/logout-device [post]
func LogoutDeviceHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		var requestData struct {
			DeviceID string `json:"device_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&requestData); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		sessionID, err := storage.FindSessionByDigest(db, caller.ID, requestData.DeviceID)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify session", "details": err.Error()})
			return
		}

		if err := storage.DeleteSessionByID(db, sessionID, caller.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout device", "details": err.Error()})
			return
		}
		_ = storage.DeleteRefreshToken(db, sessionID)

		c.JSON(http.StatusOK, gin.H{
			"message":   "Device logged out successfully",
			"device_id": requestData.DeviceID,
		})
	}
}

// RefreshTokenHandler handles refresh token requests to get new access tokens
// @Summary Refresh access token
// @Description Exchange refresh token for a new access token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body object true "Refresh token request" SchemaExample({"refresh_token": "string"})
// @Success 200 {object} object "New access token"
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/refresh-token [post]
func RefreshTokenHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var refreshRequest struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}

		if err := c.ShouldBindJSON(&refreshRequest); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Refresh token is required"})
			return
		}

		parsedToken, err := utils.ValidateJWT(refreshRequest.RefreshToken)
		if err != nil || !parsedToken.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
			return
		}

		claims, ok := parsedToken.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims structure"})
			return
		}

		tokenType, ok := claims["type"].(string)
		if !ok || tokenType != "refresh" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token type"})
			return
		}

		email, ok := claims["email"].(string)
		if !ok || email == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Email claim missing or invalid"})
			return
		}

		user, err := storage.GetUserByEmail(db, email)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}

		if user.Suspended {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is suspended"})
			return
		}

		// Look the session up by refresh token rather than session_id, since
		// the session_id rotates on every refresh. Only the refresh expiry
		// matters here, the 15-minute access expiry has usually passed.
		var refreshTokenExpiresAt time.Time
		err = db.QueryRow(`
			SELECT refresh_token_expires_at FROM session
			WHERE refresh_token = $1 AND user_id = $2 AND refresh_token_expires_at > NOW()`,
			refreshRequest.RefreshToken, user.ID).Scan(&refreshTokenExpiresAt)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not found, expired, or refresh token mismatch"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify session", "details": err.Error()})
			}
			return
		}

		newAccessToken, err := utils.GenerateJWT(user.Email, user.Role)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate access token"})
			return
		}

		// Rotate the refresh token only when it is about to expire, otherwise
		// keep it until it actually does.
		now := time.Now()
		refreshTokenExpiresSoon := refreshTokenExpiresAt.Sub(now) < 24*time.Hour
		newRefreshToken := refreshRequest.RefreshToken
		newRefreshTokenExpiresAt := refreshTokenExpiresAt
		if refreshTokenExpiresSoon {
			newRefreshToken, err = utils.GenerateRefreshToken(user.Email, newAccessToken)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
				return
			}
			newRefreshTokenExpiresAt = now.Add(15 * 24 * time.Hour)
		}

		var result sql.Result
		var updateErr error
		if refreshTokenExpiresSoon {
			result, updateErr = db.Exec(`
				UPDATE session
				SET session_id = $1, expires_at = $2, timestp = $3, refresh_token = $4, refresh_token_expires_at = $5
				WHERE refresh_token = $6 AND user_id = $7`,
				newAccessToken, now.Add(15*time.Minute), now, newRefreshToken, newRefreshTokenExpiresAt, refreshRequest.RefreshToken, user.ID)
		} else {
			result, updateErr = db.Exec(`
				UPDATE session
				SET session_id = $1, expires_at = $2, timestp = $3
				WHERE refresh_token = $4 AND user_id = $5`,
				newAccessToken, now.Add(15*time.Minute), now, refreshRequest.RefreshToken, user.ID)
		}
		if updateErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update session", "details": updateErr.Error()})
			return
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify session update", "details": err.Error()})
			return
		}
		if rowsAffected == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session update failed - no matching session found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":       "Token refreshed successfully",
			"access_token":  newAccessToken,
			"refresh_token": newRefreshToken,
			"role":          user.Role,
			"expires_in":    900,
		})
	}
}
