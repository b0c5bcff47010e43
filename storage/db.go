package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"liftplanner/models"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

var db *sql.DB

func InitDB() *sql.DB {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")

	connStr := fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=%s sslmode=disable",
		user, password, dbname, host, port)

	var err error
	db, err = sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Pool sizing for a light single-instance deployment
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	return db
}

func GetDB() *sql.DB {
	return db
}

// EnsureCoreTables creates the auth and calculation tables the raw SQL layer
// depends on. The crane catalog tables are migrated separately through gorm.
func EnsureCoreTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			company TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'free',
			suspended BOOLEAN NOT NULL DEFAULT FALSE,
			units TEXT NOT NULL DEFAULT 'metric',
			language TEXT NOT NULL DEFAULT 'en',
			company_logo TEXT NOT NULL DEFAULT '',
			email_reports BOOLEAN NOT NULL DEFAULT TRUE,
			push_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			push_token TEXT NOT NULL DEFAULT '',
			reset_token TEXT,
			reset_token_expiry TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			first_access TIMESTAMPTZ,
			last_access TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS session (
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			session_id TEXT NOT NULL PRIMARY KEY,
			host_name TEXT NOT NULL DEFAULT '',
			ip_address TEXT NOT NULL DEFAULT '',
			timestp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at TIMESTAMPTZ NOT NULL,
			refresh_token TEXT,
			refresh_token_expires_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS user_stats (
			user_id INTEGER NOT NULL PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			total_calculations INTEGER NOT NULL DEFAULT 0,
			existing_calculations INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS calculation (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			project_name TEXT NOT NULL DEFAULT '',
			project_location TEXT NOT NULL DEFAULT '',
			project_date DATE,
			building_height DOUBLE PRECISION NOT NULL DEFAULT 0,
			crane_edge_distance DOUBLE PRECISION NOT NULL DEFAULT 0,
			lift_radius DOUBLE PRECISION NOT NULL DEFAULT 0,
			required_load DOUBLE PRECISION NOT NULL DEFAULT 0,
			lift_tackle DOUBLE PRECISION NOT NULL DEFAULT 0,
			boom_angle DOUBLE PRECISION NOT NULL DEFAULT 0,
			min_boom_length DOUBLE PRECISION NOT NULL DEFAULT 0,
			min_vertical_height DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_load DOUBLE PRECISION NOT NULL DEFAULT 0,
			selected_cranes TEXT[] NOT NULL DEFAULT '{}',
			logo_url TEXT NOT NULL DEFAULT '',
			images JSONB NOT NULL DEFAULT '[]',
			is_public BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS calculation_user_created_idx ON calculation (user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS notification (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL DEFAULT '',
			read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS notification_user_created_idx ON notification (user_id, created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to ensure core tables: %v", err)
		}
	}
	return nil
}

// SaveSession saves a new session for a user, handling multiple device support.
// If allowMultipleSessions is false, all existing sessions are removed first so
// the new login becomes the only active device.
func SaveSession(db *sql.DB, session *models.Session, allowMultipleSessions bool) error {
	if !allowMultipleSessions {
		deleteAllQuery := `DELETE FROM session WHERE user_id = $1`
		_, err := db.Exec(deleteAllQuery, session.UserID)
		if err != nil {
			return fmt.Errorf("failed to delete all user sessions: %v", err)
		}
	}

	insertQuery := `INSERT INTO session (user_id, session_id, host_name, ip_address, timestp, expires_at, refresh_token, refresh_token_expires_at)
                    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := db.Exec(insertQuery, session.UserID, session.SessionID, session.HostName, session.IPAddress, session.Timestamp, session.ExpiresAt, session.RefreshToken, session.RefreshTokenExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert new session: %v", err)
	}
	return nil
}

// SaveRefreshToken stores a refresh token in the session table bound to a session.
// This allows each device/session to have its own refresh token.
func SaveRefreshToken(db *sql.DB, userID int, sessionID string, refreshToken string, expiresAt time.Time) error {
	updateQuery := `UPDATE session SET refresh_token = $1, refresh_token_expires_at = $2 WHERE session_id = $3 AND user_id = $4`

	result, err := db.Exec(updateQuery, refreshToken, expiresAt, sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to save refresh token: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %v", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("session not found for session_id: %s and user_id: %d", sessionID, userID)
	}

	return nil
}

// GetRefreshTokenBySession retrieves a refresh token for a specific session
func GetRefreshTokenBySession(db *sql.DB, sessionID string) (string, error) {
	var refreshToken string
	err := db.QueryRow(`
		SELECT refresh_token FROM session
		WHERE session_id = $1 AND refresh_token_expires_at > NOW()`, sessionID).Scan(&refreshToken)
	if err != nil {
		return "", fmt.Errorf("refresh token not found: %v", err)
	}
	return refreshToken, nil
}

// DeleteRefreshToken removes a refresh token for a session (for logout)
func DeleteRefreshToken(db *sql.DB, sessionID string) error {
	_, err := db.Exec(`UPDATE session SET refresh_token = NULL, refresh_token_expires_at = NULL WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %v", err)
	}
	return nil
}

// GetSession returns the most recent active session's metadata. The session
// token itself is never read here; it must not travel back to clients.
func GetSession(db *sql.DB, userID int) (*models.Session, error) {
	var session models.Session
	query := `
		SELECT user_id, host_name, ip_address, timestp, expires_at
		FROM session
		WHERE user_id = $1 AND expires_at > NOW()
		ORDER BY timestp DESC
		LIMIT 1`
	err := db.QueryRow(query, userID).Scan(&session.UserID, &session.HostName, &session.IPAddress, &session.Timestamp, &session.ExpiresAt)
	return &session, err
}

func DeleteSession(db *sql.DB, userID int) error {
	query := `DELETE FROM session WHERE user_id = $1`
	_, err := db.Exec(query, userID)
	return err
}

// GetUserSessionCount returns the number of active sessions for a user
func GetUserSessionCount(db *sql.DB, userID int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM session WHERE user_id = $1 AND expires_at > NOW()`
	err := db.QueryRow(query, userID).Scan(&count)
	return count, err
}

// GetActiveDevices returns active device information for a user. Devices are
// keyed by a digest of the session token so the token itself never leaves
// the server.
func GetActiveDevices(db *sql.DB, userID int) ([]map[string]interface{}, error) {
	query := `SELECT md5(session_id), ip_address, timestp, expires_at
              FROM session
              WHERE user_id = $1 AND expires_at > NOW()
              ORDER BY timestp DESC`

	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []map[string]interface{}
	for rows.Next() {
		var deviceID, ipAddress string
		var timestamp, expiresAt time.Time
		err := rows.Scan(&deviceID, &ipAddress, &timestamp, &expiresAt)
		if err != nil {
			return nil, err
		}
		devices = append(devices, map[string]interface{}{
			"device_id":  deviceID,
			"ip_address": ipAddress,
			"login_time": timestamp,
			"expires_at": expiresAt,
		})
	}

	return devices, nil
}

// FindSessionByDigest resolves a device digest from GetActiveDevices back to
// the stored token, scoped to one user's sessions.
func FindSessionByDigest(db *sql.DB, userID int, digest string) (string, error) {
	var sessionID string
	err := db.QueryRow(`SELECT session_id FROM session WHERE user_id = $1 AND md5(session_id) = $2`,
		userID, digest).Scan(&sessionID)
	return sessionID, err
}

// DeleteSessionByID deletes a specific session by session_id
func DeleteSessionByID(db *sql.DB, sessionID string, userID int) error {
	query := `DELETE FROM session WHERE session_id = $1 AND user_id = $2`
	result, err := db.Exec(query, sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %v", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("session not found or already deleted")
	}

	return nil
}

func GetUserByEmail(db *sql.DB, email string) (*models.User, error) {
	var user models.User
	query := `SELECT id, email, password, first_name, last_name, company, role, suspended FROM users WHERE LOWER(email) = LOWER($1)`

	err := db.QueryRow(query, email).Scan(&user.ID, &user.Email, &user.Password, &user.FirstName, &user.LastName, &user.Company, &user.Role, &user.Suspended)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user with email %s not found", email)
		}
		return nil, fmt.Errorf("failed to query user: %v", err)
	}

	return &user, nil
}

func CleanupExpiredSessions(db *sql.DB) error {
	threshold := time.Now().Add(-24 * time.Hour)
	_, err := db.Exec("DELETE FROM session WHERE expires_at < $1", threshold)
	return err
}

// GetUserBySessionID retrieves the user owning the given session. The role is
// read here once so downstream handlers never re-resolve it per request.
func GetUserBySessionID(db *sql.DB, sessionID string) (*models.User, error) {
	query := `
		SELECT u.id, u.email, u.first_name, u.last_name, u.company, u.role,
			   u.suspended, u.created_at, u.updated_at, u.first_access, u.last_access
		FROM session s
		JOIN users u ON s.user_id = u.id
		WHERE s.session_id = $1 AND s.expires_at > NOW()
	`

	var user models.User
	var firstAccess, lastAccess sql.NullTime

	err := db.QueryRow(query, sessionID).Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.Company, &user.Role, &user.Suspended,
		&user.CreatedAt, &user.UpdatedAt, &firstAccess, &lastAccess,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("user not found for the given session ID")
		}
		return nil, err
	}
	if user.Suspended {
		return nil, errors.New("account suspended")
	}

	if firstAccess.Valid {
		user.FirstAccess = firstAccess.Time
	}
	if lastAccess.Valid {
		user.LastAccess = lastAccess.Time
	}

	return &user, nil
}

// TouchUserAccess stamps first_access on the first login and last_access on
// every login.
func TouchUserAccess(db *sql.DB, userID int) error {
	_, err := db.Exec(`
		UPDATE users
		SET first_access = COALESCE(first_access, NOW()), last_access = NOW()
		WHERE id = $1`, userID)
	return err
}
