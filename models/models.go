package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// User roles. Free-tier users are capped at FreeTierLimit saved calculations
// over the account lifetime; premium and admin are uncapped.
const (
	RoleFree    = "free"
	RolePremium = "premium"
	RoleAdmin   = "admin"
)

// FreeTierLimit is the lifetime number of calculations a free account may create.
const FreeTierLimit = 10

type User struct {
	ID          int       `json:"id" example:"1"`
	Email       string    `json:"email" example:"user@example.com"`
	Password    string    `json:"password" example:""`
	FirstName   string    `json:"first_name" example:"John"`
	LastName    string    `json:"last_name" example:"Doe"`
	Company     string    `json:"company" example:"Acme Rigging BV"`
	Role        string    `json:"role" example:"free"`
	Suspended   bool      `json:"suspended" example:"false"`
	CreatedAt   time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt   time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
	FirstAccess time.Time `json:"first_access,omitempty" example:"2024-01-15T10:30:00Z"`
	LastAccess  time.Time `json:"last_access,omitempty" example:"2024-01-15T10:30:00Z"`
}

// UserPreferences carries the per-user settings the clients may change in
// bulk. The role field is read-only for non-admin callers.
type UserPreferences struct {
	UserID       int    `json:"user_id" example:"1"`
	Role         string `json:"role" example:"free"`
	Units        string `json:"units" example:"metric"`
	Language     string `json:"language" example:"en"`
	CompanyLogo  string `json:"company_logo" example:""`
	EmailReports bool   `json:"email_reports" example:"true"`
	PushEnabled  bool   `json:"push_enabled" example:"false"`
}

// UserStats holds the two quota counters. TotalCalculations counts every
// create over the account lifetime and is never decremented;
// ExistingCalculations is the current live count and never goes below zero.
type UserStats struct {
	UserID               int       `json:"user_id" example:"1"`
	TotalCalculations    int       `json:"total_calculations" example:"3"`
	ExistingCalculations int       `json:"existing_calculations" example:"2"`
	UpdatedAt            time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

type Session struct {
	UserID                int       `json:"user_id" example:"1"`
	SessionID             string    `json:"-"`
	HostName              string    `json:"host_name" example:"user@example.com"`
	IPAddress             string    `json:"ip_address" example:"203.0.113.4"`
	Timestamp             time.Time `json:"timestamp" example:"2024-01-15T10:30:00Z"`
	ExpiresAt             time.Time `json:"expires_at" example:"2024-01-16T10:30:00Z"`
	RefreshToken          string    `json:"-"`
	RefreshTokenExpiresAt time.Time `json:"-"`
}

// Notification is the in-app copy of a push event.
type Notification struct {
	ID        int       `json:"id" example:"12"`
	UserID    int       `json:"user_id" example:"1"`
	Title     string    `json:"title" example:"Almost at your limit"`
	Body      string    `json:"body" example:"You have used 9 of 10 free calculations."`
	Action    string    `json:"action" example:"/upgrade"`
	Read      bool      `json:"read" example:"false"`
	CreatedAt time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

type LoginRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:""`
}

type LoginResponse struct {
	Token        string `json:"token" example:""`
	RefreshToken string `json:"refresh_token" example:""`
	User         User   `json:"user"`
}

type DateOnly struct {
	time.Time
}

const dateFormat = "2006-01-02"

func (d *DateOnly) UnmarshalJSON(data []byte) error {
	parsedTime, err := time.Parse(`"`+dateFormat+`"`, string(data))
	if err != nil {
		return err
	}
	d.Time = parsedTime
	return nil
}

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format(dateFormat))
}

// Scan implements the Scanner interface for DateOnly type
func (d *DateOnly) Scan(value interface{}) error {
	if value == nil {
		d.Time = time.Time{}
		return nil
	}
	switch v := value.(type) {
	case time.Time:
		d.Time = time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, v.Location())
		return nil
	default:
		return fmt.Errorf("cannot scan type %T into DateOnly", v)
	}
}

// Value implements driver.Valuer for database/sql
func (d DateOnly) Value() (driver.Value, error) {
	return d.Time, nil
}
