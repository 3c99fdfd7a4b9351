package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
)

// Топики событий заказов.
const (
	TopicOrderEvents     = "ordersource.order.events"
	TopicDeadLetterQueue = "ordersource.order.events.dlq"
)

// Заголовки сообщений.
const (
	HeaderEventType     = "x-event-type"
	HeaderOriginalTopic = "x-original-topic"
	HeaderReason        = "x-quarantine-reason"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
	HeaderAttempts      = "x-attempts"
)

// DeadLetter — исходное сообщение и причина, по которой его не удалось обработать.
type DeadLetter struct {
	OriginalTopic     string `json:"original_topic"`
	OriginalPartition int32  `json:"original_partition"`
	OriginalOffset    int64  `json:"original_offset"`
	OriginalKey       string `json:"original_key"`
	OriginalValue     string `json:"original_value"`
	Reason            string `json:"reason"`
	ErrorMessage      string `json:"error_message"`
	FailedAt          string `json:"failed_at"`
	Attempts          int    `json:"attempts"`
}

// ParseOrderEvent декодирует событие заказа; событие без типа или идентификатора заказа отклоняется.
func ParseOrderEvent(message *sarama.ConsumerMessage) (*domain.OrderEvent, error) {
	var event domain.OrderEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order event: %w", err)
	}
	if event.EventType == "" || event.OrderID == "" {
		return nil, fmt.Errorf("order event without type or order id at offset %d", message.Offset)
	}
	return &event, nil
}
