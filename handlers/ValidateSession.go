package handlers

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"liftplanner/models"
	"liftplanner/storage"
	"liftplanner/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func bearerToken(c *gin.Context) string {
	token := strings.TrimSpace(c.GetHeader("Authorization"))
	const bearerPrefix = "Bearer "
	if strings.HasPrefix(token, bearerPrefix) {
		token = strings.TrimSpace(strings.TrimPrefix(token, bearerPrefix))
	}
	return token
}

// AuthMiddleware validates the bearer token against the session table and
// places the owning user on the context under "currentUser". The role travels
// with the user from here on.
func AuthMiddleware(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionToken := bearerToken(c)
		if sessionToken == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing Authorization header"})
			return
		}

		parsedToken, err := utils.ValidateJWT(sessionToken)
		if err != nil || !parsedToken.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		user, err := storage.GetUserBySessionID(db, sessionToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}

		user.Password = ""
		c.Set("currentUser", *user)
		c.Next()
	}
}

// OptionalAuth resolves the caller when a valid bearer token is present but
// lets anonymous requests through. Used on shared report routes where
// visibility depends on the is_public flag.
func OptionalAuth(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionToken := bearerToken(c)
		if sessionToken != "" {
			if parsedToken, err := utils.ValidateJWT(sessionToken); err == nil && parsedToken.Valid {
				if user, err := storage.GetUserBySessionID(db, sessionToken); err == nil {
					user.Password = ""
					c.Set("currentUser", *user)
				}
			}
		}
		c.Next()
	}
}

// AdminOnly gates catalog and user management mutations. Must run after
// AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if caller.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// ValidateSession validates user session
// @Summary Validate session
// @Description Validate user session token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/validate-session [post]
func ValidateSession(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionToken := bearerToken(c)
		if sessionToken == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing Authorization header"})
			return
		}

		// Validate JWT (checks signature and expiration)
		parsedToken, err := utils.ValidateJWT(sessionToken)
		if err != nil || !parsedToken.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		claims, ok := parsedToken.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		exp, ok := claims["exp"].(float64)
		if !ok || time.Now().Unix() > int64(exp) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			return
		}

		// Ensure session exists and is not expired in DB
		var sessionHost string
		var expiresAt time.Time
		err = db.QueryRow("SELECT host_name, expires_at FROM session WHERE session_id = $1 AND expires_at > NOW()", sessionToken).
			Scan(&sessionHost, &expiresAt)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}

		var role string
		err = db.QueryRow("SELECT role FROM users WHERE LOWER(email) = LOWER($1)", sessionHost).Scan(&role)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":    "Session validated",
			"session_id": sessionToken,
			"host_name":  sessionHost,
			"role":       role,
			"expires_at": expiresAt,
		})
	}
}
