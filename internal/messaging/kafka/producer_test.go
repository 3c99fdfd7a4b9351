package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
)

func sampleEvent(eventType domain.EventType) domain.OrderEvent {
	order := domain.RestoreOrder("order-123", "cust-1", "USD", time.Time{}, time.Time{}, []domain.Item{
		{SKU: "sku-1", PriceMinor: 1000},
		{SKU: "sku-2", PriceMinor: 550},
	})
	return domain.NewOrderEvent(eventType, order)
}

func TestProducer_PublishOrderEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := newProducer(mockProducer, "")

	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != TopicOrderEvents {
			return fmt.Errorf("unexpected topic %s", msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "order-123" {
			return fmt.Errorf("unexpected key %s", key)
		}
		if value, ok := producerHeader(msg, HeaderEventType); !ok || value != string(domain.EventTypeOrderSaved) {
			return fmt.Errorf("unexpected event type header %q", value)
		}

		raw, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var event domain.OrderEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			return err
		}
		if event.TotalMinor != 1550 || event.ItemCount != 2 {
			return fmt.Errorf("unexpected payload: %+v", event)
		}
		return nil
	})

	if err := producer.PublishOrderEvent(context.Background(), sampleEvent(domain.EventTypeOrderSaved)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishOrderEvent_CustomTopic(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := newProducer(mockProducer, "custom.events")

	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "custom.events" {
			return fmt.Errorf("unexpected topic %s", msg.Topic)
		}
		return nil
	})

	if err := producer.PublishOrderEvent(context.Background(), sampleEvent(domain.EventTypeOrderDeleted)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishOrderEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := &Producer{
		sync:   mockProducer,
		topic:  TopicOrderEvents,
		logger: log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := producer.PublishOrderEvent(context.Background(), sampleEvent(domain.EventTypeOrderUpdated))
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected ErrOutOfBrokers, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishOrderEvent_CanceledContext(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := newProducer(mockProducer, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := producer.PublishOrderEvent(ctx, sampleEvent(domain.EventTypeOrderSaved)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}
