package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
)

// orderSourceInMemory — простая in-memory реализация OrderSource.
type orderSourceInMemory struct {
	mu     sync.RWMutex
	items  map[string]*domain.Order
	nextID domain.IDGenerator
	now    func() time.Time
}

// Option настраивает in-memory хранилище.
type Option func(*orderSourceInMemory)

// WithIDGenerator подменяет генератор идентификаторов (по умолчанию uuid).
func WithIDGenerator(gen domain.IDGenerator) Option {
	return func(s *orderSourceInMemory) {
		if gen != nil {
			s.nextID = gen
		}
	}
}

// NewOrderSource возвращает in-memory хранилище для локальной разработки и тестов.
func NewOrderSource(opts ...Option) domain.OrderSource {
	s := &orderSourceInMemory{
		items:  make(map[string]*domain.Order),
		nextID: uuid.NewString,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load возвращает копию заказа или ErrOrderNotFound.
func (s *orderSourceInMemory) Load(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.items[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return order.Clone(), nil
}

// Save присваивает заказу новый идентификатор и сохраняет копию.
func (s *orderSourceInMemory) Save(_ context.Context, order *domain.Order) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	order.ID = s.nextID()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = now
	}
	// Храним копию, чтобы вызывающий код не мог менять состояние хранилища.
	s.items[order.ID] = order.Clone()
	return order.ID, nil
}

// Update перезаписывает заказ, если он уже есть в хранилище.
func (s *orderSourceInMemory) Update(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.CreatedAt = current.CreatedAt
	order.UpdatedAt = s.now()
	s.items[order.ID] = order.Clone()
	return nil
}

// Delete удаляет заказ; отсутствие записи не считается ошибкой.
func (s *orderSourceInMemory) Delete(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, order.ID)
	return nil
}

var _ domain.OrderSource = (*orderSourceInMemory)(nil)
