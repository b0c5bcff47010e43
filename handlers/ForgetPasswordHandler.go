package handlers

import (
	"database/sql"
	"liftplanner/services"
	"liftplanner/storage"
	"liftplanner/utils"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ForgetPasswordHandler godoc
// @Summary      Request a password reset link
// @Description  Always answers 200 so the endpoint does not reveal which emails are registered.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      object  true  "{\"email\":\"user@example.com\"}"
// @Success      200   {object}  object
// @Failure      400   {object}  models.ErrorResponse
// @Router       /api/forgot-password [post]
func ForgetPasswordHandler(db *sql.DB, email *services.EmailService) gin.HandlerFunc {
	return func(c *gin.Context) {
		type Request struct {
			Email string `json:"email" binding:"required,email"`
		}
		var req Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "a valid email is required"})
			return
		}

		var userID int
		err := db.QueryRow(`SELECT id FROM users WHERE LOWER(email) = LOWER($1) AND NOT suspended`, req.Email).Scan(&userID)
		if err == sql.ErrNoRows {
			// Same answer as the happy path.
			c.JSON(http.StatusOK, gin.H{"message": "if the account exists, a reset link has been sent"})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		token := uuid.NewString()
		expiry := time.Now().Add(15 * time.Minute)
		if _, err := db.Exec(`UPDATE users SET reset_token = $1, reset_token_expiry = $2 WHERE id = $3`, token, expiry, userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save reset token"})
			return
		}

		if err := email.SendPasswordReset(req.Email, token); err != nil {
			log.Printf("password reset: email to user %d failed: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send reset email"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "if the account exists, a reset link has been sent"})
	}
}

// ResetPasswordHandler godoc
// @Summary      Set a new password with a reset token
// @Description  Consumes the token and revokes every active session of the account.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        token  path      string  true  "Reset token"
// @Param        body   body      object  true  "{\"new_password\":\"...\"}"
// @Success      200    {object}  object
// @Failure      400    {object}  models.ErrorResponse
// @Router       /api/reset-password/{token} [post]
func ResetPasswordHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
			return
		}

		type Request struct {
			NewPassword string `json:"new_password" binding:"required,min=8"`
		}
		var req Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
			return
		}

		var userID int
		var expiry time.Time
		err := db.QueryRow(`SELECT id, reset_token_expiry FROM users WHERE reset_token = $1`, token).Scan(&userID, &expiry)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired token"})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if time.Now().After(expiry) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token has expired"})
			return
		}

		hashed, err := utils.HashPassword(req.NewPassword)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
			return
		}

		_, err = db.Exec(`
			UPDATE users SET password = $1, reset_token = NULL, reset_token_expiry = NULL, updated_at = NOW()
			WHERE id = $2`, hashed, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update password"})
			return
		}

		// A reset means the old credentials may be compromised.
		if err := storage.DeleteSession(db, userID); err != nil {
			log.Printf("password reset: session revocation for user %d failed: %v", userID, err)
		}

		c.JSON(http.StatusOK, gin.H{"message": "password reset successful"})
	}
}

// ChangePasswordHandler godoc
// @Summary      Change the authenticated user's password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      object  true  "{\"old_password\":\"...\",\"new_password\":\"...\"}"
// @Success      200   {object}  object
// @Failure      400   {object}  models.ErrorResponse
// @Failure      401   {object}  models.ErrorResponse
// @Router       /api/change-password [post]
func ChangePasswordHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		type Request struct {
			OldPassword string `json:"old_password" binding:"required"`
			NewPassword string `json:"new_password" binding:"required,min=8"`
		}
		var req Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "old and new password are required, new password at least 8 characters"})
			return
		}

		var currentHash string
		err := db.QueryRow(`SELECT password FROM users WHERE id = $1`, caller.ID).Scan(&currentHash)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if !utils.ValidatePassword(currentHash, req.OldPassword) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "old password is incorrect"})
			return
		}

		hashed, err := utils.HashPassword(req.NewPassword)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
			return
		}
		if _, err := db.Exec(`UPDATE users SET password = $1, updated_at = NOW() WHERE id = $2`, hashed, caller.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update password"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "password changed"})
	}
}
