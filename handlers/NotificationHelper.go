package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"liftplanner/models"
	"liftplanner/services"
	"log"
)

// Global push service - set from main.go. Nil when push is disabled.
var GlobalPushService *services.PushService

// SetPushService sets the global push service
func SetPushService(push *services.PushService) {
	GlobalPushService = push
}

// deliver writes the inbox row and, when push is configured, sends the same
// message to the user's device. Fire-and-forget; failures are logged, never
// surfaced to the request that triggered them.
func deliver(db *sql.DB, userID int, title, body, action string) {
	if err := saveNotification(db, userID, title, body, action); err != nil {
		log.Printf("notification: inbox write failed for user %d: %v", userID, err)
	}
	if GlobalPushService == nil {
		return
	}
	err := GlobalPushService.SendToUser(context.Background(), userID, title, body,
		map[string]string{"action": action})
	if err != nil {
		log.Printf("notification: push failed for user %d: %v", userID, err)
	}
}

// notifyQuotaUsage warns a free-tier user when they are one calculation away
// from the lifetime cap.
func notifyQuotaUsage(db *sql.DB, user models.User) {
	if user.Role != models.RoleFree {
		return
	}

	var total int
	if err := db.QueryRow(`SELECT total_calculations FROM user_stats WHERE user_id = $1`, user.ID).Scan(&total); err != nil {
		log.Printf("quota notification: stats lookup failed for user %d: %v", user.ID, err)
		return
	}
	if total != models.FreeTierLimit-1 {
		return
	}

	deliver(db, user.ID,
		"Almost at your limit",
		fmt.Sprintf("You have used %d of %d free calculations. Upgrade to keep saving lifts.", total, models.FreeTierLimit),
		"/upgrade")
}

// notifyImportFinished tells the admin who started a chart import that it
// completed, with the skip counts they need to review.
func notifyImportFinished(db *sql.DB, userID int, result models.ImportResult) {
	body := fmt.Sprintf("%s: %d rows imported, %d skipped", result.CraneID, result.ImportedRows, result.SkippedRows)
	deliver(db, userID, "Load chart import finished", body, "/cranes/"+result.CraneID)
}
