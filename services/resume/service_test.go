package resume

import (
	"path/filepath"
	"testing"

	"streamvault/internal/database"
	"streamvault/models"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	db, err := database.NewDB(database.Config{DatabasePath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("creating test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewService(db.Resume)
}

func TestSetAndGet(t *testing.T) {
	svc := setupService(t)

	if err := svc.Set(42, models.KindVOD, 620.5, 7200); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	pos, err := svc.Get(42, models.KindVOD)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if pos == nil {
		t.Fatal("expected a stored position")
	}
	if pos.PositionSecs != 620.5 || pos.DurationSecs != 7200 {
		t.Errorf("stored position = %+v", pos)
	}
}

func TestSet_OverwritesPrevious(t *testing.T) {
	svc := setupService(t)

	if err := svc.Set(1, models.KindVOD, 100, 7200); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := svc.Set(1, models.KindVOD, 250, 7200); err != nil {
		t.Fatalf("second Set failed: %v", err)
	}

	pos, _ := svc.Get(1, models.KindVOD)
	if pos == nil || pos.PositionSecs != 250 {
		t.Errorf("expected position 250, got %+v", pos)
	}
}

func TestSet_NearEndClearsPosition(t *testing.T) {
	svc := setupService(t)

	if err := svc.Set(1, models.KindVOD, 3000, 7200); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := svc.Set(1, models.KindVOD, 7190, 7200); err != nil {
		t.Fatalf("near-end Set failed: %v", err)
	}

	pos, err := svc.Get(1, models.KindVOD)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if pos != nil {
		t.Errorf("expected cleared position, got %+v", pos)
	}
}

func TestSet_RejectsInvalidInput(t *testing.T) {
	svc := setupService(t)

	if err := svc.Set(1, "bogus", 10, 100); err == nil {
		t.Error("expected error for invalid kind")
	}
	if err := svc.Set(1, models.KindVOD, -5, 100); err == nil {
		t.Error("expected error for negative position")
	}
}

func TestGet_AbsentReturnsNil(t *testing.T) {
	svc := setupService(t)

	pos, err := svc.Get(99, models.KindSeries)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if pos != nil {
		t.Errorf("expected nil for absent position, got %+v", pos)
	}
}

func TestClear_IsIdempotent(t *testing.T) {
	svc := setupService(t)

	if err := svc.Set(5, models.KindVOD, 10, 100); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := svc.Clear(5, models.KindVOD); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if err := svc.Clear(5, models.KindVOD); err != nil {
		t.Fatalf("second Clear failed: %v", err)
	}

	pos, _ := svc.Get(5, models.KindVOD)
	if pos != nil {
		t.Errorf("expected no position after Clear, got %+v", pos)
	}
}
