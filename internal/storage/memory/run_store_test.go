package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trs-pricer/internal/domain"
	"trs-pricer/internal/storage"
)

func makeRun(id, ticker string, created time.Time) *domain.RunRecord {
	seed := uint64(42)
	return &domain.RunRecord{
		RunID:       id,
		InputHash:   "hash-" + id,
		ExecutionID: "exec-" + id,
		CreatedAt:   created,
		Params: domain.TradeParameters{
			Ticker:           ticker,
			Notional:         1_000_000,
			InitialPrice:     100,
			BenchmarkRate:    0.05,
			Tenor:            1,
			PaymentFrequency: 4,
			NumSimulations:   100,
			Volatility:       0.2,
			Seed:             &seed,
		},
		Summary: domain.SummaryStatistics{
			PathCount:               100,
			NPVMean:                 1234.5,
			MeanNetCashFlowByPeriod: []float64{1, 2, 3, 4},
		},
	}
}

func TestRunStore_InsertAndGet(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	r := makeRun("run1", "AAPL", time.Unix(1700000000, 0))
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Params.Ticker != "AAPL" {
		t.Errorf("Ticker mismatch: got %s, want AAPL", got.Params.Ticker)
	}
	if *got.Params.Seed != 42 {
		t.Errorf("Seed mismatch: got %d, want 42", *got.Params.Seed)
	}
	if got.Summary.NPVMean != 1234.5 {
		t.Errorf("NPVMean mismatch: got %v", got.Summary.NPVMean)
	}
}

func TestRunStore_CopiesOnInsertAndGet(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	r := makeRun("run1", "AAPL", time.Unix(1700000000, 0))
	_ = store.Insert(ctx, r)

	*r.Params.Seed = 7
	r.Summary.MeanNetCashFlowByPeriod[0] = 99

	got, _ := store.GetByID(ctx, "run1")
	if *got.Params.Seed != 42 {
		t.Errorf("stored seed mutated through caller pointer: %d", *got.Params.Seed)
	}
	if got.Summary.MeanNetCashFlowByPeriod[0] != 1 {
		t.Errorf("stored slice mutated through caller: %v", got.Summary.MeanNetCashFlowByPeriod)
	}

	got.Summary.MeanNetCashFlowByPeriod[1] = 99
	again, _ := store.GetByID(ctx, "run1")
	if again.Summary.MeanNetCashFlowByPeriod[1] != 2 {
		t.Errorf("stored slice mutated through returned record")
	}
}

func TestRunStore_DuplicateKey(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	r := makeRun("run1", "AAPL", time.Unix(1700000000, 0))
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	err := store.Insert(ctx, r)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestRunStore_InvalidInput(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.RunRecord{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty id, got %v", err)
	}
}

func TestRunStore_NotFound(t *testing.T) {
	store := NewRunStore()
	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRunStore_GetByTickerAndList(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()
	base := time.Unix(1700000000, 0)

	_ = store.Insert(ctx, makeRun("c", "AAPL", base.Add(2*time.Hour)))
	_ = store.Insert(ctx, makeRun("a", "AAPL", base))
	_ = store.Insert(ctx, makeRun("b", "MSFT", base.Add(time.Hour)))

	byTicker, err := store.GetByTicker(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetByTicker failed: %v", err)
	}
	if len(byTicker) != 2 || byTicker[0].RunID != "a" || byTicker[1].RunID != "c" {
		t.Errorf("unexpected GetByTicker order: %v", runIDs(byTicker))
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if got := runIDs(all); len(got) != 3 || got[0] != "c" || got[1] != "b" || got[2] != "a" {
		t.Errorf("unexpected List order: %v", got)
	}

	limited, _ := store.List(ctx, 1)
	if len(limited) != 1 || limited[0].RunID != "c" {
		t.Errorf("unexpected limited List: %v", runIDs(limited))
	}
}

func TestRunStore_ConcurrentInsert(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Insert(ctx, makeRun("same", "AAPL", time.Unix(0, 0)))
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, storage.ErrDuplicateKey):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != 9 {
		t.Errorf("expected 1 success and 9 duplicates, got %d and %d", ok, dup)
	}
}

func runIDs(runs []*domain.RunRecord) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.RunID
	}
	return ids
}
