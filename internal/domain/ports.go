package domain

import (
	"context"
	"time"
)

// OrderSource описывает хранилище заказов. Любой вариант хранилища обязан
// реализовать все четыре операции с одинаковой семантикой.
type OrderSource interface {
	// Load возвращает заказ по идентификатору или ErrOrderNotFound.
	Load(ctx context.Context, id string) (*Order, error)
	// Save присваивает заказу новый идентификатор, сохраняет его и возвращает идентификатор.
	Save(ctx context.Context, order *Order) (string, error)
	// Update перезаписывает состояние заказа или возвращает ErrOrderNotFound.
	Update(ctx context.Context, order *Order) error
	// Delete удаляет заказ; удаление отсутствующего заказа не считается ошибкой.
	Delete(ctx context.Context, order *Order) error
}

// IDGenerator выдаёт новые идентификаторы заказов.
type IDGenerator func() string

// EventType определяет тип события изменения заказа.
type EventType string

const (
	EventTypeOrderSaved   EventType = "order.saved"
	EventTypeOrderUpdated EventType = "order.updated"
	EventTypeOrderDeleted EventType = "order.deleted"
)

// OrderEvent — снимок заказа после успешной записи в хранилище.
type OrderEvent struct {
	EventType  EventType `json:"event_type"`
	OrderID    string    `json:"order_id"`
	CustomerID string    `json:"customer_id"`
	Currency   string    `json:"currency"`
	TotalMinor int64     `json:"total_minor"`
	ItemCount  int       `json:"item_count"`
	Items      []Item    `json:"items,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewOrderEvent собирает событие по текущему состоянию заказа.
func NewOrderEvent(eventType EventType, order *Order) OrderEvent {
	return OrderEvent{
		EventType:  eventType,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Currency:   order.Currency,
		TotalMinor: order.CalculateTotalSum(),
		ItemCount:  order.ItemCount(),
		Items:      order.Items(),
		Timestamp:  time.Now().UTC(),
	}
}

// EventPublisher публикует события изменения заказов во внешнюю шину.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}
