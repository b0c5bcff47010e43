package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"liftplanner/models"
	"liftplanner/utils"

	"github.com/gin-gonic/gin"
)

// saveNotification records an in-app copy of a push event so users who have
// push disabled still see it in their inbox.
func saveNotification(db *sql.DB, userID int, title, body, action string) error {
	_, err := db.Exec(`
		INSERT INTO notification (user_id, title, body, action)
		VALUES ($1, $2, $3, $4)`, userID, title, body, action)
	return err
}

// ListNotificationsHandler godoc
// @Summary      List the caller's notifications, newest first
// @Tags         notifications
// @Produce      json
// @Success      200  {array}   models.Notification
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/notifications [get]
func ListNotificationsHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		ctx, cancel := utils.GetFastQueryContext(c.Request.Context())
		defer cancel()

		rows, err := db.QueryContext(ctx, `
			SELECT id, title, body, action, read, created_at
			FROM notification
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT 100`, caller.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		defer rows.Close()

		items := []models.Notification{}
		for rows.Next() {
			var n models.Notification
			var createdAt time.Time
			if err := rows.Scan(&n.ID, &n.Title, &n.Body, &n.Action, &n.Read, &createdAt); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			n.UserID = caller.ID
			n.CreatedAt = createdAt
			items = append(items, n)
		}
		c.JSON(http.StatusOK, items)
	}
}

// MarkNotificationReadHandler godoc
// @Summary      Mark one notification as read
// @Tags         notifications
// @Produce      json
// @Param        id   path      int  true  "Notification ID"
// @Success      200  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/notifications/{id}/read [post]
func MarkNotificationReadHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		res, err := db.Exec(`
			UPDATE notification SET read = TRUE
			WHERE id = $1 AND user_id = $2`, c.Param("id"), caller.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "marked as read"})
	}
}
