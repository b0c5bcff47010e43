package handlers

import (
	"sort"
	"testing"

	"liftplanner/models"
)

func sampleCatalog() []models.CraneModel {
	return []models.CraneModel{
		{
			CraneID:      "liebherr-ltm1030",
			Manufacturer: "Liebherr",
			Model:        "LTM 1030",
			Capacity:     35,
			Specifications: models.CraneSpecifications{
				MinBoomLength: 9.2, MaxBoomLength: 30,
				MinRadius: 3, MaxRadius: 26,
			},
		},
		{
			CraneID:      "liebherr-ltm1050",
			Manufacturer: "Liebherr",
			Model:        "LTM 1050",
			Capacity:     50,
			Specifications: models.CraneSpecifications{
				MinBoomLength: 11.5, MaxBoomLength: 38,
				MinRadius: 3, MaxRadius: 36,
			},
		},
		{
			CraneID:      "tadano-gr250",
			Manufacturer: "Tadano",
			Model:        "GR 250",
			Capacity:     25,
			Specifications: models.CraneSpecifications{
				MinBoomLength: 9, MaxBoomLength: 31,
				MinRadius: 2.5, MaxRadius: 24,
			},
		},
		{
			CraneID:      "terex-ac100",
			Manufacturer: "Terex",
			Model:        "AC 100",
			Capacity:     100,
			Specifications: models.CraneSpecifications{
				MinBoomLength: 11, MaxBoomLength: 50,
				MinRadius: 12, MaxRadius: 48,
			},
		},
	}
}

func craneIDs(cranes []models.CraneModel) []string {
	out := make([]string, 0, len(cranes))
	for _, c := range cranes {
		out = append(out, c.CraneID)
	}
	return out
}

func TestFindSuitableCranesSampleScenario(t *testing.T) {
	got := FindSuitableCranes(35, 26, 30, sampleCatalog())

	ids := craneIDs(got)
	found := false
	for _, id := range ids {
		if id == "liebherr-ltm1030" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected liebherr-ltm1030 in result, got %v", ids)
	}
	for _, c := range got {
		if c.Capacity < 35 {
			t.Errorf("crane %s with capacity %v below required load 35 included", c.CraneID, c.Capacity)
		}
	}
	for _, id := range ids {
		if id == "tadano-gr250" {
			t.Error("tadano-gr250 must be excluded (capacity 25 < 35)")
		}
	}
}

// Every returned crane satisfies all four inclusion inequalities and every
// excluded crane fails at least one.
func TestFindSuitableCranesInclusionRule(t *testing.T) {
	catalog := sampleCatalog()
	totalLoad, liftRadius, minBoomLength := 30.0, 20.0, 28.0

	got := FindSuitableCranes(totalLoad, liftRadius, minBoomLength, catalog)

	included := map[string]bool{}
	for _, c := range got {
		included[c.CraneID] = true
		if c.Capacity < totalLoad ||
			c.Specifications.MaxBoomLength < minBoomLength ||
			c.Specifications.MaxRadius < liftRadius ||
			c.Specifications.MinRadius > liftRadius {
			t.Errorf("crane %s included but violates an inclusion inequality", c.CraneID)
		}
	}
	for _, c := range catalog {
		if included[c.CraneID] {
			continue
		}
		ok := c.Capacity >= totalLoad &&
			c.Specifications.MaxBoomLength >= minBoomLength &&
			c.Specifications.MaxRadius >= liftRadius &&
			c.Specifications.MinRadius <= liftRadius
		if ok {
			t.Errorf("crane %s excluded but satisfies every inclusion inequality", c.CraneID)
		}
	}
}

func TestFindSuitableCranesSortedByCapacity(t *testing.T) {
	got := FindSuitableCranes(1, 15, 12, sampleCatalog())
	if len(got) < 2 {
		t.Fatalf("expected several suitable cranes, got %d", len(got))
	}
	if !sort.SliceIsSorted(got, func(i, j int) bool { return got[i].Capacity < got[j].Capacity }) {
		t.Errorf("result not sorted ascending by capacity: %v", craneIDs(got))
	}
}

func TestFindSuitableCranesEmptyResult(t *testing.T) {
	got := FindSuitableCranes(500, 26, 30, sampleCatalog())
	if got == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(got) != 0 {
		t.Errorf("expected no suitable cranes, got %v", craneIDs(got))
	}
}

func TestValidateCraneModel(t *testing.T) {
	valid := sampleCatalog()[0]
	if err := validateCraneModel(valid); err != nil {
		t.Errorf("valid crane rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*models.CraneModel)
	}{
		{"negative capacity", func(c *models.CraneModel) { c.Capacity = -1 }},
		{"min boom above max", func(c *models.CraneModel) { c.Specifications.MinBoomLength = 40 }},
		{"min radius above max", func(c *models.CraneModel) { c.Specifications.MinRadius = 30 }},
		{"negative radius", func(c *models.CraneModel) { c.Specifications.MinRadius = -2 }},
		{"missing manufacturer", func(c *models.CraneModel) { c.Manufacturer = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crane := sampleCatalog()[0]
			tt.mutate(&crane)
			if err := validateCraneModel(crane); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
