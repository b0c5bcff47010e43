package handlers

import (
	"testing"
	"time"

	"liftplanner/models"

	"github.com/lib/pq"
)

func TestBuildReportView(t *testing.T) {
	calc := models.Calculation{
		ID:              "calc-1",
		ProjectName:     "warehouse extension",
		ProjectLocation: "Rotterdam",
		ProjectDate:     models.DateOnly{Time: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
		LiftRequirement: models.LiftRequirement{
			BuildingHeight:    20,
			CraneEdgeDistance: 10,
			LiftRadius:        15,
			RequiredLoad:      3.5,
			LiftTackle:        0.27,
		},
		LiftResult: models.LiftResult{
			BoomAngle:         53.13010235415598,
			MinBoomLength:     25.04,
			MinVerticalHeight: 20.03,
			TotalLoad:         3.77,
		},
		SelectedCranes: pq.StringArray{"liebherr-ltm1030"},
		Images: models.ImageList{
			{URL: "https://cdn.example.com/site.jpg", Caption: "Site overview"},
			{URL: "https://cdn.example.com/access.jpg", Caption: "Access road"},
		},
		LogoURL:  "https://cdn.example.com/logo.png",
		IsPublic: true,
	}

	view := BuildReportView(calc, "Jane Rigger", []string{"Liebherr LTM 1030"})

	if view.CalculationID != "calc-1" || view.OwnerName != "Jane Rigger" {
		t.Errorf("identity fields: %+v", view)
	}
	if view.ProjectDate != "2026-03-14" {
		t.Errorf("ProjectDate = %q, want 2026-03-14", view.ProjectDate)
	}

	// Inputs pass through untouched, results are display-rounded.
	if view.RequiredLoad != 3.5 || view.LiftTackle != 0.27 {
		t.Errorf("inputs were altered: %+v", view)
	}
	if view.BoomAngle != 53.1 {
		t.Errorf("BoomAngle = %v, want 53.1", view.BoomAngle)
	}
	if view.TotalLoad != 3.8 {
		t.Errorf("TotalLoad = %v, want 3.8", view.TotalLoad)
	}

	if len(view.CraneNames) != 1 || view.CraneNames[0] != "Liebherr LTM 1030" {
		t.Errorf("CraneNames = %v", view.CraneNames)
	}
	if len(view.ImageURLs) != 2 || view.ImageURLs[1] != "https://cdn.example.com/access.jpg" {
		t.Errorf("ImageURLs = %v", view.ImageURLs)
	}
	if len(view.ImageCaptions) != 2 || view.ImageCaptions[0] != "Site overview" {
		t.Errorf("ImageCaptions = %v", view.ImageCaptions)
	}
	if !view.IsPublic {
		t.Error("IsPublic lost in projection")
	}
	if view.GeneratedAt.IsZero() {
		t.Error("GeneratedAt not set")
	}
}

// Every rendering of a report (view model, PDF, QR payload) goes through the
// same visibility rule: anonymous callers see public reports only.
func TestCanViewReport(t *testing.T) {
	owner := models.User{ID: 7, Role: models.RoleFree}
	other := models.User{ID: 8, Role: models.RolePremium}
	admin := models.User{ID: 9, Role: models.RoleAdmin}

	tests := []struct {
		name     string
		caller   models.User
		authed   bool
		isPublic bool
		want     bool
	}{
		{"anonymous public", models.User{}, false, true, true},
		{"anonymous private", models.User{}, false, false, false},
		{"owner private", owner, true, false, true},
		{"non-owner private", other, true, false, false},
		{"admin private", admin, true, false, true},
		{"non-owner public", other, true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canViewReport(tt.caller, tt.authed, tt.isPublic, owner.ID); got != tt.want {
				t.Errorf("canViewReport(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestBuildReportViewNoImagesNoCranes(t *testing.T) {
	calc := models.Calculation{ID: "calc-2", ProjectDate: models.DateOnly{Time: time.Now()}}

	view := BuildReportView(calc, "", nil)

	if view.ImageURLs == nil || len(view.ImageURLs) != 0 {
		t.Errorf("ImageURLs = %v, want empty non-nil slice", view.ImageURLs)
	}
	if len(view.CraneNames) != 0 {
		t.Errorf("CraneNames = %v, want empty", view.CraneNames)
	}
}
