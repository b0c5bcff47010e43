package models

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

// ImportResult reports the outcome of a load-chart ingestion. One bad row
// never fails the whole import; it is skipped and counted instead.
type ImportResult struct {
	CraneID      string `json:"crane_id" example:"liebherr-ltm1030"`
	ImportedRows int    `json:"imported_rows" example:"42"`
	SkippedRows  int    `json:"skipped_rows" example:"2"`
	Duplicates   int    `json:"duplicates" example:"1"`
}

// SolveResponse is the calculator output: the sized lift plus every catalog
// crane whose envelope covers it, ascending by capacity. Result values are
// rounded to one decimal for display; the suitability filter ran on the
// unrounded values.
type SolveResponse struct {
	Requirement    LiftRequirement `json:"requirement"`
	Result         LiftResult      `json:"result"`
	SuitableCranes []CraneModel    `json:"suitable_cranes"`
}

// MatrixResponse bundles the evaluated matrices for the cranes a user
// selected on one calculation.
type MatrixResponse struct {
	CalculationID string            `json:"calculation_id" example:"6f1c2a34-9a1b-4c56-8d2e-0b7f3a4c5d6e"`
	Matrices      []LoadChartMatrix `json:"matrices"`
}

// CalculationListItem is the trimmed row returned by the list endpoint.
type CalculationListItem struct {
	ID            string  `json:"id" example:"6f1c2a34-9a1b-4c56-8d2e-0b7f3a4c5d6e"`
	ProjectName   string  `json:"project_name" example:"Harbour tower lift"`
	TotalLoad     float64 `json:"total_load" example:"2.5"`
	MinBoomLength float64 `json:"min_boom_length" example:"25.1"`
	CreatedAt     string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
	IsPublic      bool    `json:"is_public" example:"false"`
}
