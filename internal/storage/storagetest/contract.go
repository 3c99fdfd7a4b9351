// Package storagetest содержит общий набор проверок контракта OrderSource,
// который прогоняется для каждого варианта хранилища.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
)

// SourceFactory создаёт чистое хранилище для одного подтеста.
type SourceFactory func(t *testing.T) domain.OrderSource

// SampleOrder возвращает несохранённый заказ с тремя позициями (включая дубликат).
func SampleOrder() *domain.Order {
	order := domain.NewOrder("customer-1", "USD")
	order.AddItem(domain.Item{SKU: "sku-1", Title: "Widget", PriceMinor: 1000})
	order.AddItem(domain.Item{SKU: "sku-2", Title: "Gadget", PriceMinor: 550})
	order.AddItem(domain.Item{SKU: "sku-1", Title: "Widget", PriceMinor: 1000})
	return order
}

// RequireSameOrder сравнивает заказы по наблюдаемым атрибутам.
func RequireSameOrder(t *testing.T, want, got *domain.Order) {
	t.Helper()

	if got == nil {
		t.Fatal("expected order, got nil")
	}
	if got.ID != want.ID || got.CustomerID != want.CustomerID || got.Currency != want.Currency {
		t.Fatalf("unexpected order header: want=%s/%s/%s got=%s/%s/%s",
			want.ID, want.CustomerID, want.Currency, got.ID, got.CustomerID, got.Currency)
	}

	wantItems, gotItems := want.Items(), got.Items()
	if len(wantItems) != len(gotItems) {
		t.Fatalf("unexpected items count: want=%d got=%d", len(wantItems), len(gotItems))
	}
	for i := range wantItems {
		if wantItems[i] != gotItems[i] {
			t.Fatalf("item %d mismatch: want=%+v got=%+v", i, wantItems[i], gotItems[i])
		}
	}
	if want.CalculateTotalSum() != got.CalculateTotalSum() {
		t.Fatalf("total mismatch: want=%d got=%d", want.CalculateTotalSum(), got.CalculateTotalSum())
	}
}

// RequireSameTimestamps сверяет время создания и изменения с точностью до момента.
func RequireSameTimestamps(t *testing.T, want, got *domain.Order) {
	t.Helper()

	if !want.CreatedAt.Equal(got.CreatedAt) || !want.UpdatedAt.Equal(got.UpdatedAt) {
		t.Fatalf("timestamps mismatch: want created=%v updated=%v, got created=%v updated=%v",
			want.CreatedAt, want.UpdatedAt, got.CreatedAt, got.UpdatedAt)
	}
}

// RunOrderSourceContract проверяет общий контракт load/save/update/delete.
func RunOrderSourceContract(t *testing.T, newSource SourceFactory) {
	t.Helper()

	t.Run("save then load returns same order", func(t *testing.T) {
		ctx := testContext(t)
		source := newSource(t)
		order := SampleOrder()

		id, err := source.Save(ctx, order)
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if id == "" || order.ID != id {
			t.Fatalf("expected saved id to be assigned, got id=%q order.ID=%q", id, order.ID)
		}

		loaded, err := source.Load(ctx, id)
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		RequireSameOrder(t, order, loaded)
	})

	t.Run("save sets timestamps on the caller's order", func(t *testing.T) {
		ctx := testContext(t)
		source := newSource(t)
		order := SampleOrder()

		id, err := source.Save(ctx, order)
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if order.CreatedAt.IsZero() || order.UpdatedAt.IsZero() {
			t.Fatalf("expected save to set timestamps, got created=%v updated=%v", order.CreatedAt, order.UpdatedAt)
		}

		loaded, err := source.Load(ctx, id)
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		RequireSameTimestamps(t, order, loaded)
	})

	t.Run("save keeps preset timestamps", func(t *testing.T) {
		ctx := testContext(t)
		source := newSource(t)
		order := SampleOrder()
		preset := time.Date(2024, time.March, 1, 10, 30, 0, 0, time.UTC)
		order.CreatedAt = preset
		order.UpdatedAt = preset.Add(time.Hour)

		id, err := source.Save(ctx, order)
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if !order.CreatedAt.Equal(preset) || !order.UpdatedAt.Equal(preset.Add(time.Hour)) {
			t.Fatalf("preset timestamps changed: created=%v updated=%v", order.CreatedAt, order.UpdatedAt)
		}

		loaded, err := source.Load(ctx, id)
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		RequireSameTimestamps(t, order, loaded)
	})

	t.Run("update bumps updated_at", func(t *testing.T) {
		ctx := testContext(t)
		source := newSource(t)
		order := SampleOrder()

		id, err := source.Save(ctx, order)
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
		createdAt, savedAt := order.CreatedAt, order.UpdatedAt

		time.Sleep(5 * time.Millisecond)
		order.AddItem(domain.Item{SKU: "sku-4", Title: "Sprocket", PriceMinor: 25})
		if err := source.Update(ctx, order); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if !order.UpdatedAt.After(savedAt) {
			t.Fatalf("expected updated_at after %v, got %v", savedAt, order.UpdatedAt)
		}
		if !order.CreatedAt.Equal(createdAt) {
			t.Fatalf("created_at changed on update: %v -> %v", createdAt, order.CreatedAt)
		}

		loaded, err := source.Load(ctx, id)
		if err != nil {
			t.Fatalf("load after update failed: %v", err)
		}
		RequireSameTimestamps(t, order, loaded)
	})

	t.Run("save empty order", func(t *testing.T) {
		ctx := testContext(t)
		source := newSource(t)
		order := domain.NewOrder("customer-empty", "EUR")

		id, err := source.Save(ctx, order)
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
		loaded, err := source.Load(ctx, id)
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if loaded.ItemCount() != 0 || loaded.CalculateTotalSum() != 0 {
			t.Fatalf("expected empty order, got %d items", loaded.ItemCount())
		}
	})

	t.Run("save assigns new id every time", func(t *testing.T) {
		ctx := testContext(t)
		source := newSource(t)
		order := SampleOrder()

		first, err := source.Save(ctx, order)
		if err != nil {
			t.Fatalf("first save failed: %v", err)
		}
		second, err := source.Save(ctx, order)
		if err != nil {
			t.Fatalf("second save failed: %v", err)
		}
		if first == second {
			t.Fatalf("expected distinct ids, got %q twice", first)
		}
		if _, err := source.Load(ctx, first); err != nil {
			t.Fatalf("first copy must stay loadable: %v", err)
		}
	})

	t.Run("load missing returns not found", func(t *testing.T) {
		ctx := testContext(t)
		source := newSource(t)

		_, err := source.Load(ctx, "missing-order")
		if !errors.Is(err, domain.ErrOrderNotFound) {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
	})

	t.Run("update overwrites stored state", func(t *testing.T) {
		ctx := testContext(t)
		source := newSource(t)
		order := SampleOrder()

		id, err := source.Save(ctx, order)
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}

		loaded, err := source.Load(ctx, id)
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		loaded.DeleteItem(domain.Item{SKU: "sku-2", Title: "Gadget", PriceMinor: 550})
		loaded.AddItem(domain.Item{SKU: "sku-3", Title: "Gizmo", PriceMinor: 1})
		loaded.CustomerID = "customer-2"

		if err := source.Update(ctx, loaded); err != nil {
			t.Fatalf("update failed: %v", err)
		}

		updated, err := source.Load(ctx, id)
		if err != nil {
			t.Fatalf("load after update failed: %v", err)
		}
		RequireSameOrder(t, loaded, updated)
		if updated.CalculateTotalSum() != 2001 {
			t.Fatalf("expected total 2001 after update, got %d", updated.CalculateTotalSum())
		}
	})

	t.Run("update unknown returns not found", func(t *testing.T) {
		ctx := testContext(t)
		source := newSource(t)
		order := SampleOrder()
		order.ID = "unknown-order"

		if err := source.Update(ctx, order); !errors.Is(err, domain.ErrOrderNotFound) {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
		if _, err := source.Load(ctx, order.ID); !errors.Is(err, domain.ErrOrderNotFound) {
			t.Fatalf("update of unknown order must not create it, got %v", err)
		}
	})

	t.Run("delete removes order and is idempotent", func(t *testing.T) {
		ctx := testContext(t)
		source := newSource(t)
		order := SampleOrder()

		id, err := source.Save(ctx, order)
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if err := source.Delete(ctx, order); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if _, err := source.Load(ctx, id); !errors.Is(err, domain.ErrOrderNotFound) {
			t.Fatalf("expected ErrOrderNotFound after delete, got %v", err)
		}
		if err := source.Delete(ctx, order); err != nil {
			t.Fatalf("second delete must succeed, got %v", err)
		}
	})

	t.Run("delete unknown succeeds without effect", func(t *testing.T) {
		ctx := testContext(t)
		source := newSource(t)
		kept := SampleOrder()

		id, err := source.Save(ctx, kept)
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}

		ghost := domain.NewOrder("customer-1", "USD")
		ghost.ID = "ghost-order"
		if err := source.Delete(ctx, ghost); err != nil {
			t.Fatalf("delete unknown must succeed, got %v", err)
		}
		if _, err := source.Load(ctx, id); err != nil {
			t.Fatalf("unrelated order must survive, got %v", err)
		}
	})
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
