package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
	"github.com/vladislavdragonenkov/ordersource/internal/storage/memory"
	"github.com/vladislavdragonenkov/ordersource/internal/storage/publishing"
)

type fakeEventProducer struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	closed int
}

func (p *fakeEventProducer) PublishOrderEvent(_ context.Context, event domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakeEventProducer) Close() error {
	p.closed++
	return nil
}

func stubEventProducer(t *testing.T, producer eventProducer, err error) *[][]string {
	t.Helper()

	var calls [][]string
	previous := newEventProducer
	newEventProducer = func(brokers []string, topic string) (eventProducer, error) {
		calls = append(calls, append([]string{topic}, brokers...))
		if err != nil {
			return nil, err
		}
		return producer, nil
	}
	t.Cleanup(func() { newEventProducer = previous })
	return &calls
}

func TestAttachEventPublishing_NoBrokers(t *testing.T) {
	calls := stubEventProducer(t, &fakeEventProducer{}, nil)
	deps := &runtimeDependencies{source: memory.NewOrderSource()}

	if deps.attachEventPublishing(DefaultConfig(), nil, log.WithField("test", "kafka")) {
		t.Fatal("publishing must stay disabled without brokers")
	}
	if len(*calls) != 0 || len(deps.closers) != 0 {
		t.Fatal("producer must not be created without brokers")
	}
}

func TestAttachEventPublishing_WrapsSource(t *testing.T) {
	producer := &fakeEventProducer{}
	calls := stubEventProducer(t, producer, nil)

	cfg := DefaultConfig()
	cfg.KafkaBrokers = []string{"broker1:9092"}
	deps := &runtimeDependencies{source: memory.NewOrderSource()}

	if !deps.attachEventPublishing(cfg, nil, log.WithField("test", "kafka")) {
		t.Fatal("expected publishing to be enabled")
	}
	if _, ok := deps.source.(*publishing.OrderSource); !ok {
		t.Fatalf("expected publishing layer on top, got %T", deps.source)
	}
	if got := (*calls)[0]; got[0] != "ordersource.order.events" || got[1] != "broker1:9092" {
		t.Fatalf("unexpected producer args: %v", got)
	}

	order := domain.NewOrder("customer-1", "USD")
	if _, err := deps.source.Save(context.Background(), order); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(producer.events) != 1 || producer.events[0].EventType != domain.EventTypeOrderSaved {
		t.Fatalf("unexpected events: %+v", producer.events)
	}

	deps.Close(log.WithField("test", "kafka"))
	if producer.closed != 1 {
		t.Fatalf("producer closed %d times, want 1", producer.closed)
	}
}

func TestAttachEventPublishing_ProducerFailure(t *testing.T) {
	stubEventProducer(t, nil, errors.New("no brokers"))

	cfg := DefaultConfig()
	cfg.KafkaBrokers = []string{"127.0.0.1:1"}
	base := memory.NewOrderSource()
	deps := &runtimeDependencies{source: base}

	if deps.attachEventPublishing(cfg, nil, log.WithField("test", "kafka")) {
		t.Fatal("publishing must stay disabled when producer fails")
	}
	if deps.source != base || len(deps.closers) != 0 {
		t.Fatal("stack must stay unchanged when producer fails")
	}
}

func TestNewEventProducer_UnreachableBrokers(t *testing.T) {
	producer, err := newEventProducer([]string{"127.0.0.1:1"}, "ordersource.order.events")
	if err == nil {
		_ = producer.Close()
		t.Fatal("expected error for unreachable brokers")
	}
	if producer != nil {
		t.Fatal("expected nil producer on error")
	}
}
