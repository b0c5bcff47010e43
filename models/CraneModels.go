package models

import (
	"time"

	_ "github.com/lib/pq"
)

// CraneSpecifications is the physical envelope of a crane model.
// All values are meters; min values must not exceed their max counterpart.
type CraneSpecifications struct {
	MinBoomLength float64 `json:"min_boom_length" gorm:"column:min_boom_length" example:"9.2"`
	MaxBoomLength float64 `json:"max_boom_length" gorm:"column:max_boom_length" example:"30"`
	MinRadius     float64 `json:"min_radius" gorm:"column:min_radius" example:"3"`
	MaxRadius     float64 `json:"max_radius" gorm:"column:max_radius" example:"26"`
}

// CraneModel represents one catalog entry, keyed by the crane_id slug
// (manufacturer + model). Only administrators may create or edit entries.
type CraneModel struct {
	ID             int                 `json:"id" gorm:"primaryKey;autoIncrement" example:"1"`
	CraneID        string              `json:"crane_id" gorm:"column:crane_id;uniqueIndex;size:120" example:"liebherr-ltm1030"`
	Manufacturer   string              `json:"manufacturer" gorm:"column:manufacturer" example:"Liebherr"`
	Model          string              `json:"model" gorm:"column:model" example:"LTM 1030"`
	Capacity       float64             `json:"capacity" gorm:"column:capacity" example:"35"`
	Specifications CraneSpecifications `json:"specifications" gorm:"embedded"`
	CreatedAt      time.Time           `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt      time.Time           `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// TableName keeps the table name singular-free and explicit.
func (CraneModel) TableName() string {
	return "crane_model"
}

// LoadChartPoint is one rated point of a crane's safe-load envelope.
// Units: radius and boom length in meters, capacity in tons.
type LoadChartPoint struct {
	ID         int     `json:"id" gorm:"primaryKey;autoIncrement" example:"1"`
	CraneID    string  `json:"crane_id" gorm:"column:crane_id;index;size:120" example:"liebherr-ltm1030"`
	Radius     float64 `json:"radius" gorm:"column:radius" example:"3"`
	Capacity   float64 `json:"capacity" gorm:"column:capacity" example:"35"`
	BoomLength float64 `json:"boom_length" gorm:"column:boom_length" example:"9.2"`
}

func (LoadChartPoint) TableName() string {
	return "load_chart_point"
}

// LoadChart groups the points of a single crane. The point order carries no
// meaning; the matrix evaluator sorts the distinct axes itself.
type LoadChart struct {
	CraneID string           `json:"crane_id" example:"liebherr-ltm1030"`
	Points  []LoadChartPoint `json:"points"`
}
