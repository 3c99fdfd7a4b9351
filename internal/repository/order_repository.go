// Package repository связывает вызывающий код с одним хранилищем заказов,
// выбранным при конструировании.
package repository

import (
	"context"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
)

// OrderRepository передаёт операции хранилищу без изменений.
type OrderRepository struct {
	source domain.OrderSource
}

// NewOrderRepository привязывает репозиторий к хранилищу. nil — ошибка программиста.
func NewOrderRepository(source domain.OrderSource) *OrderRepository {
	if source == nil {
		panic("repository: order source is nil")
	}
	return &OrderRepository{source: source}
}

// Load возвращает заказ или ошибку хранилища как есть.
func (r *OrderRepository) Load(ctx context.Context, id string) (*domain.Order, error) {
	return r.source.Load(ctx, id)
}

// Save сохраняет заказ и возвращает новый идентификатор.
func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) (string, error) {
	return r.source.Save(ctx, order)
}

// Update перезаписывает заказ.
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	return r.source.Update(ctx, order)
}

// Delete удаляет заказ.
func (r *OrderRepository) Delete(ctx context.Context, order *domain.Order) error {
	return r.source.Delete(ctx, order)
}

var _ domain.OrderSource = (*OrderRepository)(nil)
