package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"

	"liftplanner/models"
)

func TestLifecycleStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &models.ValidationError{Field: "lift_radius", Reason: "must be positive"}, http.StatusBadRequest},
		{"quota", models.ErrQuotaExceeded, http.StatusForbidden},
		{"forbidden", models.ErrForbidden, http.StatusForbidden},
		{"not found", fmt.Errorf("calculation x: %w", models.ErrNotFound), http.StatusNotFound},
		{"transient store", fmt.Errorf("%w: connection refused", models.ErrTransientStore), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lifecycleStatus(tt.err); got != tt.want {
				t.Errorf("lifecycleStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestCanMutate(t *testing.T) {
	owner := models.User{ID: 7, Role: models.RoleFree}
	other := models.User{ID: 8, Role: models.RolePremium}
	admin := models.User{ID: 9, Role: models.RoleAdmin}

	if !canMutate(owner, 7) {
		t.Error("owner denied")
	}
	if canMutate(other, 7) {
		t.Error("non-owner allowed")
	}
	if !canMutate(admin, 7) {
		t.Error("admin denied")
	}
}

// ---------- Database-backed lifecycle tests ----------

// testDB connects to the database named by TEST_DATABASE_URL, or skips.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *sql.DB, role string) models.User {
	t.Helper()
	email := fmt.Sprintf("test-%s@example.com", uuid.NewString())
	var id int
	err := db.QueryRow(`
		INSERT INTO users (email, password, first_name, last_name, role)
		VALUES ($1, 'x', 'Test', 'User', $2)
		RETURNING id`, email, role).Scan(&id)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() {
		db.Exec(`DELETE FROM calculation WHERE user_id = $1`, id)
		db.Exec(`DELETE FROM user_stats WHERE user_id = $1`, id)
		db.Exec(`DELETE FROM users WHERE id = $1`, id)
	})
	return models.User{ID: id, Email: email, Role: role}
}

func testCalculation(name string) models.Calculation {
	return models.Calculation{
		ProjectName: name,
		LiftRequirement: models.LiftRequirement{
			BuildingHeight:    20,
			CraneEdgeDistance: 10,
			LiftRadius:        15,
			RequiredLoad:      2,
			LiftTackle:        0.5,
		},
	}
}

func userStats(t *testing.T, db *sql.DB, userID int) models.UserStats {
	t.Helper()
	var s models.UserStats
	err := db.QueryRow(`
		SELECT total_calculations, existing_calculations
		FROM user_stats WHERE user_id = $1`, userID).
		Scan(&s.TotalCalculations, &s.ExistingCalculations)
	if err != nil {
		t.Fatalf("read stats: %v", err)
	}
	return s
}

func TestCreateCalculationCountsLifetimeAndLive(t *testing.T) {
	db := testDB(t)
	owner := createTestUser(t, db, models.RoleFree)

	var created []string
	for i := 0; i < 3; i++ {
		calc := testCalculation(fmt.Sprintf("project %d", i))
		if err := CreateCalculation(db, owner, &calc); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if calc.ID == "" || calc.BoomAngle == 0 {
			t.Fatalf("create %d left calc unpopulated: %+v", i, calc)
		}
		created = append(created, calc.ID)
	}

	if err := DeleteCalculation(db, owner, created[0]); err != nil {
		t.Fatalf("delete: %v", err)
	}

	s := userStats(t, db, owner.ID)
	if s.TotalCalculations != 3 {
		t.Errorf("total_calculations = %d, want 3 (delete must not refund)", s.TotalCalculations)
	}
	if s.ExistingCalculations != 2 {
		t.Errorf("existing_calculations = %d, want 2", s.ExistingCalculations)
	}

	if _, err := FetchCalculation(db, created[0]); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("deleted calculation still readable: %v", err)
	}
}

func TestCreateCalculationQuotaUnderConcurrency(t *testing.T) {
	db := testDB(t)
	owner := createTestUser(t, db, models.RoleFree)

	// Burn the quota down to one remaining slot.
	if _, err := db.Exec(`
		INSERT INTO user_stats (user_id, total_calculations, existing_calculations)
		VALUES ($1, $2, 0)`, owner.ID, models.FreeTierLimit-1); err != nil {
		t.Fatalf("seed stats: %v", err)
	}

	const workers = 5
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			calc := testCalculation(fmt.Sprintf("race %d", i))
			errs[i] = CreateCalculation(db, owner, &calc)
		}(i)
	}
	wg.Wait()

	var successes, quotaErrs int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, models.ErrQuotaExceeded):
			quotaErrs++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 || quotaErrs != workers-1 {
		t.Errorf("got %d successes, %d quota errors; want 1 and %d", successes, quotaErrs, workers-1)
	}

	if s := userStats(t, db, owner.ID); s.TotalCalculations != models.FreeTierLimit {
		t.Errorf("total_calculations = %d, want %d", s.TotalCalculations, models.FreeTierLimit)
	}
}

func TestCreateCalculationPremiumUnlimited(t *testing.T) {
	db := testDB(t)
	owner := createTestUser(t, db, models.RolePremium)

	if _, err := db.Exec(`
		INSERT INTO user_stats (user_id, total_calculations, existing_calculations)
		VALUES ($1, $2, 0)`, owner.ID, models.FreeTierLimit*10); err != nil {
		t.Fatalf("seed stats: %v", err)
	}

	calc := testCalculation("premium project")
	if err := CreateCalculation(db, owner, &calc); err != nil {
		t.Fatalf("premium create blocked: %v", err)
	}
}

func TestUpdateCalculationOwnership(t *testing.T) {
	db := testDB(t)
	owner := createTestUser(t, db, models.RoleFree)
	stranger := createTestUser(t, db, models.RolePremium)
	admin := createTestUser(t, db, models.RoleAdmin)

	calc := testCalculation("original")
	if err := CreateCalculation(db, owner, &calc); err != nil {
		t.Fatalf("create: %v", err)
	}
	before := userStats(t, db, owner.ID)

	calc.ProjectName = "hijacked"
	if err := UpdateCalculation(db, stranger, &calc); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("stranger update: %v, want ErrForbidden", err)
	}

	calc.ProjectName = "renamed"
	calc.LiftRadius = 18
	if err := UpdateCalculation(db, owner, &calc); err != nil {
		t.Fatalf("owner update: %v", err)
	}
	stored, err := FetchCalculation(db, calc.ID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if stored.ProjectName != "renamed" || stored.LiftRadius != 18 {
		t.Errorf("update not applied: %+v", stored)
	}
	if stored.UserID != owner.ID {
		t.Errorf("ownership changed to %d", stored.UserID)
	}

	// Updates never touch the quota.
	after := userStats(t, db, owner.ID)
	if after.TotalCalculations != before.TotalCalculations {
		t.Errorf("update changed total_calculations: %d -> %d", before.TotalCalculations, after.TotalCalculations)
	}

	if err := DeleteCalculation(db, stranger, calc.ID); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("stranger delete: %v, want ErrForbidden", err)
	}
	if err := DeleteCalculation(db, admin, calc.ID); err != nil {
		t.Errorf("admin delete: %v", err)
	}
}
