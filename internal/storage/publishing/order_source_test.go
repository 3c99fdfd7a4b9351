package publishing_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
	"github.com/vladislavdragonenkov/ordersource/internal/metrics"
	"github.com/vladislavdragonenkov/ordersource/internal/storage/memory"
	"github.com/vladislavdragonenkov/ordersource/internal/storage/publishing"
	"github.com/vladislavdragonenkov/ordersource/internal/storage/storagetest"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, event domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) recorded() []domain.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.OrderEvent(nil), p.events...)
}

func quietLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger.WithField("component", "test")
}

func TestPublishingOrderSourceContract(t *testing.T) {
	storagetest.RunOrderSourceContract(t, func(t *testing.T) domain.OrderSource {
		return publishing.New(memory.NewOrderSource(), &recordingPublisher{}, nil, quietLogger())
	})
}

func TestPublishingOrderSource_EmitsEventsInOrder(t *testing.T) {
	ctx := context.Background()
	publisher := &recordingPublisher{}
	source := publishing.New(memory.NewOrderSource(), publisher, nil, quietLogger())

	order := storagetest.SampleOrder()
	id, err := source.Save(ctx, order)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := source.Load(ctx, id); err != nil {
		t.Fatalf("load: %v", err)
	}
	order.AddItem(domain.Item{SKU: "sku-3", PriceMinor: 1})
	if err := source.Update(ctx, order); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := source.Delete(ctx, order); err != nil {
		t.Fatalf("delete: %v", err)
	}

	events := publisher.recorded()
	want := []domain.EventType{domain.EventTypeOrderSaved, domain.EventTypeOrderUpdated, domain.EventTypeOrderDeleted}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, event := range events {
		if event.EventType != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], event.EventType)
		}
		if event.OrderID != id {
			t.Fatalf("event %d: expected order id %s, got %s", i, id, event.OrderID)
		}
	}
	if events[0].TotalMinor != 2550 || events[1].TotalMinor != 2551 {
		t.Fatalf("unexpected totals: %d, %d", events[0].TotalMinor, events[1].TotalMinor)
	}
	if events[2].Items != nil {
		t.Fatalf("delete event should not carry items")
	}
}

func TestPublishingOrderSource_NoEventOnFailure(t *testing.T) {
	ctx := context.Background()
	publisher := &recordingPublisher{}
	source := publishing.New(memory.NewOrderSource(), publisher, nil, quietLogger())

	missing := storagetest.SampleOrder()
	missing.ID = "missing"
	if err := source.Update(ctx, missing); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := len(publisher.recorded()); got != 0 {
		t.Fatalf("expected no events, got %d", got)
	}
}

func TestPublishingOrderSource_PublishFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	publisher := &recordingPublisher{err: errors.New("broker down")}
	m := metrics.NewSourceMetricsWithRegisterer(prometheus.NewRegistry())
	inner := memory.NewOrderSource()
	source := publishing.New(inner, publisher, m, quietLogger())

	order := storagetest.SampleOrder()
	id, err := source.Save(ctx, order)
	if err != nil {
		t.Fatalf("save should succeed despite publish failure: %v", err)
	}
	if _, err := inner.Load(ctx, id); err != nil {
		t.Fatalf("order must be persisted: %v", err)
	}
	if got := len(publisher.recorded()); got != 1 {
		t.Fatalf("expected one publish attempt, got %d", got)
	}
}
