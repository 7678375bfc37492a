package memory

import (
	"context"
	"errors"
	"testing"

	"trs-pricer/internal/domain"
	"trs-pricer/internal/storage"
)

func makeProfile(runID string, periods ...int) []*domain.ProfilePoint {
	points := make([]*domain.ProfilePoint, len(periods))
	for i, p := range periods {
		points[i] = &domain.ProfilePoint{
			RunID:                    runID,
			Period:                   p,
			TimeOffsetYears:          float64(p) / 4,
			ExpectedPositiveExposure: float64(p) * 100,
			MeanNetCashFlow:          -float64(p),
		}
	}
	return points
}

func TestProfileStore_InsertBulkAndGet(t *testing.T) {
	store := NewProfileStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, makeProfile("run1", 3, 1, 2)); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, makeProfile("run2", 1)); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRunID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 points, got %d", len(got))
	}
	for i, p := range got {
		if p.Period != i+1 {
			t.Errorf("point %d has period %d", i, p.Period)
		}
	}
}

func TestProfileStore_DuplicateFailsWholeBatch(t *testing.T) {
	store := NewProfileStore()
	ctx := context.Background()

	_ = store.InsertBulk(ctx, makeProfile("run1", 1))

	err := store.InsertBulk(ctx, makeProfile("run1", 2, 1))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}
	got, _ := store.GetByRunID(ctx, "run1")
	if len(got) != 1 {
		t.Errorf("batch partially applied: %d points", len(got))
	}

	err = store.InsertBulk(ctx, makeProfile("run2", 1, 1))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}
}

func TestProfileStore_InvalidInput(t *testing.T) {
	store := NewProfileStore()
	err := store.InsertBulk(context.Background(), makeProfile("run1", 0))
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestProfileStore_EmptyRun(t *testing.T) {
	store := NewProfileStore()
	got, err := store.GetByRunID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no points, got %d", len(got))
	}
}
