package cart

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/solmercado/storefront-core/pkg/kv"
	"github.com/solmercado/storefront-core/pkg/logger"
)

func newTestStore(t *testing.T, storage kv.Store) *Store {
	t.Helper()
	if storage == nil {
		storage = kv.NewMemory()
	}
	store, err := NewStore(StoreParams{
		Storage: storage,
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func snapshot(id, name string, price int64, salePrice *int64) ProductSnapshot {
	snap := ProductSnapshot{
		ID:      id,
		Name:    name,
		Price:   decimal.NewFromInt(price),
		InStock: true,
	}
	if salePrice != nil {
		sale := decimal.NewFromInt(*salePrice)
		snap.SalePrice = &sale
	}
	return snap
}

func int64Ptr(v int64) *int64 { return &v }

func TestAddItemIncrementsExistingLine(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, nil)
	ctx := context.Background()

	store.AddItem(ctx, snapshot("42", "Mug", 10, nil), 1)
	store.AddItem(ctx, snapshot("42", "Mug", 10, nil), 1)

	lines := store.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected a single line, got %d", len(lines))
	}
	if lines[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", lines[0].Quantity)
	}
}

func TestAddItemClampsQuantityFloor(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, nil)
	store.AddItem(context.Background(), snapshot("1", "Plate", 5, nil), -3)

	if got := store.Quantity("1"); got != 1 {
		t.Fatalf("expected clamped quantity 1, got %d", got)
	}
}

func TestAddItemPreservesAddedAt(t *testing.T) {
	t.Parallel()

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	current := first
	store := newTestStore(t, nil)
	store.now = func() time.Time { return current }

	ctx := context.Background()
	store.AddItem(ctx, snapshot("7", "Bowl", 3, nil), 1)
	current = first.Add(time.Hour)
	store.AddItem(ctx, snapshot("7", "Bowl", 3, nil), 2)

	lines := store.Lines()
	if !lines[0].AddedAt.Equal(first) {
		t.Fatalf("addedAt must be set once; got %v", lines[0].AddedAt)
	}
}

func TestUpdateQuantityFloorRemoves(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, nil)
	ctx := context.Background()
	store.AddItem(ctx, snapshot("9", "Vase", 12, nil), 2)

	store.UpdateQuantity(ctx, "9", 0)
	if store.Contains("9") {
		t.Fatal("quantity 0 must remove the line")
	}

	store.AddItem(ctx, snapshot("9", "Vase", 12, nil), 2)
	store.UpdateQuantity(ctx, "9", -5)
	if store.Contains("9") {
		t.Fatal("negative quantity must remove the line")
	}
}

func TestRemoveItemIsNoOpWhenAbsent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, nil)
	store.RemoveItem(context.Background(), "ghost")
	if got := len(store.Lines()); got != 0 {
		t.Fatalf("expected empty cart, got %d lines", got)
	}
}

func TestTotalPriceUsesSalePriceWhenPresent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, nil)
	ctx := context.Background()
	store.AddItem(ctx, snapshot("1", "Lamp", 10, int64Ptr(8)), 2)
	store.AddItem(ctx, snapshot("2", "Cord", 5, nil), 3)

	want := decimal.NewFromInt(31)
	if got := store.TotalPrice(); !got.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, got)
	}
	if got := store.TotalItems(); got != 5 {
		t.Fatalf("expected 5 items, got %d", got)
	}
}

func TestLinesOrderedByNumericProductID(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, nil)
	ctx := context.Background()
	store.AddItem(ctx, snapshot("10", "Ten", 1, nil), 1)
	store.AddItem(ctx, snapshot("2", "Two", 1, nil), 1)
	store.AddItem(ctx, snapshot("1", "One", 1, nil), 1)

	lines := store.Lines()
	got := []string{lines[0].ProductID, lines[1].ProductID, lines[2].ProductID}
	want := []string{"1", "2", "10"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestRoundTripPersistence(t *testing.T) {
	t.Parallel()

	storage := kv.NewMemory()
	ctx := context.Background()

	first := newTestStore(t, storage)
	first.AddItem(ctx, snapshot("3", "Rug", 40, nil), 2)
	first.AddItem(ctx, snapshot("1", "Mat", 15, nil), 1)
	first.SetOpen(true)

	// Simulate a process restart by rebuilding from the same storage.
	second := newTestStore(t, storage)
	if err := second.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	lines := second.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines after reload, got %d", len(lines))
	}
	if lines[0].ProductID != "1" || lines[1].ProductID != "3" {
		t.Fatalf("unexpected order after reload: %s, %s", lines[0].ProductID, lines[1].ProductID)
	}
	if lines[0].Quantity != 1 || lines[1].Quantity != 2 {
		t.Fatal("quantities must survive the round trip")
	}
	if second.IsOpen() {
		t.Fatal("transient open flag must not be persisted")
	}
}

func TestLoadDiscardsCorruptPayload(t *testing.T) {
	t.Parallel()

	storage := kv.NewMemory()
	ctx := context.Background()
	if err := storage.Set(ctx, StorageKey, "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	store := newTestStore(t, storage)
	if err := store.Load(ctx); err != nil {
		t.Fatalf("load should tolerate corrupt payloads: %v", err)
	}
	if got := len(store.Lines()); got != 0 {
		t.Fatalf("expected empty cart, got %d lines", got)
	}
}

func TestReplaceSwapsWholeSequence(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, nil)
	ctx := context.Background()
	store.AddItem(ctx, snapshot("99", "LocalOnly", 4, nil), 1)

	server := []Line{
		{ProductID: "5", Product: snapshot("5", "Server", 6, nil), Quantity: 4},
	}
	store.Replace(ctx, server)

	lines := store.Lines()
	if len(lines) != 1 || lines[0].ProductID != "5" || lines[0].Quantity != 4 {
		t.Fatalf("expected server view to replace local lines, got %+v", lines)
	}
	if store.Contains("99") {
		t.Fatal("local-only line must be gone after replace")
	}
}

func TestSubscribeFiresOnMutation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, nil)
	fired := 0
	store.Subscribe(func() { fired++ })

	ctx := context.Background()
	store.AddItem(ctx, snapshot("1", "A", 1, nil), 1)
	store.UpdateQuantity(ctx, "1", 3)
	store.RemoveItem(ctx, "1")

	if fired != 3 {
		t.Fatalf("expected 3 notifications, got %d", fired)
	}
}
