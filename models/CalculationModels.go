package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// LiftRequirement holds the raw measurements the user enters. Lengths are in
// meters, loads in tons; everything must be finite and non-negative, and the
// lift radius must be strictly positive.
type LiftRequirement struct {
	BuildingHeight    float64 `json:"building_height" example:"20"`
	CraneEdgeDistance float64 `json:"crane_edge_distance" example:"10"`
	LiftRadius        float64 `json:"lift_radius" example:"15"`
	RequiredLoad      float64 `json:"required_load" example:"2"`
	LiftTackle        float64 `json:"lift_tackle" example:"0.5"`
}

// LiftResult is what the sizing algorithm derives from a LiftRequirement.
// Values are unrounded; rounding to one decimal happens at the presentation
// boundary only.
type LiftResult struct {
	BoomAngle         float64 `json:"boom_angle" example:"53.1"`
	MinBoomLength     float64 `json:"min_boom_length" example:"25.1"`
	MinVerticalHeight float64 `json:"min_vertical_height" example:"20.1"`
	TotalLoad         float64 `json:"total_load" example:"2.5"`
}

// CalculationImage is one photo attached to a saved calculation.
type CalculationImage struct {
	ID      string `json:"id" example:"f3b9c1de"`
	URL     string `json:"url" example:"/uploads/site-access.jpg"`
	Caption string `json:"caption" example:"Site access from the north"`
}

// ImageList stores attachments as a jsonb column.
type ImageList []CalculationImage

// Value implements driver.Valuer for database/sql
func (l ImageList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements the Scanner interface for ImageList
func (l *ImageList) Scan(value interface{}) error {
	if value == nil {
		*l = ImageList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan type %T into ImageList", v)
	}
}

// Calculation is the persisted lift report. It is exclusively owned by
// UserID; only the owner or an administrator may mutate or delete it.
type Calculation struct {
	ID              string         `json:"id" example:"6f1c2a34-9a1b-4c56-8d2e-0b7f3a4c5d6e"`
	UserID          int            `json:"user_id" example:"1"`
	ProjectName     string         `json:"project_name" example:"Harbour tower lift"`
	ProjectLocation string         `json:"project_location" example:"Rotterdam"`
	ProjectDate     DateOnly       `json:"project_date" example:"2024-03-12"`
	LiftRequirement                // embedded, flattened into json
	LiftResult                     // embedded, flattened into json
	SelectedCranes  pq.StringArray `json:"selected_cranes" swaggertype:"array,string" example:"liebherr-ltm1030"`
	LogoURL         string         `json:"logo_url,omitempty" example:""`
	Images          ImageList      `json:"images"`
	IsPublic        bool           `json:"is_public" example:"false"`
	CreatedAt       time.Time      `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt       time.Time      `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// MatrixCell classification values, in precedence order.
const (
	CellNotApplicable = "not_applicable"
	CellExactMatch    = "exact_match_sufficient"
	CellSufficient    = "sufficient"
	CellInsufficient  = "insufficient"
)

// MatrixCell is one evaluated cell of a load-chart comparison matrix.
// Capacity is nil when the chart has no data point at this (radius, boom
// length) position.
type MatrixCell struct {
	Radius     float64  `json:"radius" example:"3"`
	BoomLength float64  `json:"boom_length" example:"9.2"`
	Capacity   *float64 `json:"capacity,omitempty" example:"35"`
	Class      string   `json:"class" example:"sufficient"`
}

// LoadChartMatrix is the full evaluation of one crane's chart against a
// requirement: rows indexed by distinct sorted radii, columns by distinct
// sorted boom lengths.
type LoadChartMatrix struct {
	CraneID     string         `json:"crane_id" example:"liebherr-ltm1030"`
	Radii       []float64      `json:"radii"`
	BoomLengths []float64      `json:"boom_lengths"`
	Cells       [][]MatrixCell `json:"cells"`
	HasMatch    bool           `json:"has_match" example:"true"`
}

// ReportView is the flat, rendering-agnostic projection handed to the PDF,
// HTML and QR renderers. No computation happens downstream of it.
type ReportView struct {
	CalculationID     string    `json:"calculation_id" example:"6f1c2a34-9a1b-4c56-8d2e-0b7f3a4c5d6e"`
	ProjectName       string    `json:"project_name" example:"Harbour tower lift"`
	ProjectLocation   string    `json:"project_location" example:"Rotterdam"`
	ProjectDate       string    `json:"project_date" example:"2024-03-12"`
	OwnerName         string    `json:"owner_name" example:"John Doe"`
	BuildingHeight    float64   `json:"building_height" example:"20"`
	CraneEdgeDistance float64   `json:"crane_edge_distance" example:"10"`
	LiftRadius        float64   `json:"lift_radius" example:"15"`
	RequiredLoad      float64   `json:"required_load" example:"2"`
	LiftTackle        float64   `json:"lift_tackle" example:"0.5"`
	BoomAngle         float64   `json:"boom_angle" example:"53.1"`
	MinBoomLength     float64   `json:"min_boom_length" example:"25.1"`
	MinVerticalHeight float64   `json:"min_vertical_height" example:"20.1"`
	TotalLoad         float64   `json:"total_load" example:"2.5"`
	CraneNames        []string  `json:"crane_names" example:"Liebherr LTM 1030"`
	LogoURL           string    `json:"logo_url,omitempty" example:""`
	ImageURLs         []string  `json:"image_urls"`
	ImageCaptions     []string  `json:"image_captions"`
	IsPublic          bool      `json:"is_public" example:"false"`
	GeneratedAt       time.Time `json:"generated_at" example:"2024-01-15T10:30:00Z"`
}
