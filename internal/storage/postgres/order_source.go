package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

// ErrDuplicateOrderID возвращается, если генератор выдал уже занятый идентификатор.
var ErrDuplicateOrderID = errors.New("order id already exists")

type orderSource struct {
	db     *sql.DB
	nextID domain.IDGenerator
	now    func() time.Time
}

// Option настраивает PostgreSQL-хранилище.
type Option func(*orderSource)

// WithIDGenerator подменяет генератор идентификаторов (по умолчанию uuid).
func WithIDGenerator(gen domain.IDGenerator) Option {
	return func(s *orderSource) {
		if gen != nil {
			s.nextID = gen
		}
	}
}

// NewOrderSource создаёт PostgreSQL-реализацию OrderSource.
func NewOrderSource(store *Store, opts ...Option) domain.OrderSource {
	s := &orderSource{
		db:     store.DB(),
		nextID: uuid.NewString,
		// PostgreSQL хранит микросекунды, округляем заранее, чтобы Load возвращал то же значение.
		now: func() time.Time { return time.Now().UTC().Round(time.Microsecond) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *orderSource) Load(ctx context.Context, id string) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		orderID, customerID, currency string
		createdAt, updatedAt          time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, customer_id, currency, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&orderID, &customerID, &currency, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	items, err := s.loadItems(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return domain.RestoreOrder(orderID, customerID, currency, createdAt.UTC(), updatedAt.UTC(), items), nil
}

func (s *orderSource) Save(ctx context.Context, order *domain.Order) (id string, err error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	id = s.nextID()
	now := s.now()
	createdAt, updatedAt := order.CreatedAt, order.UpdatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_id, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, order.CustomerID, order.Currency, createdAt, updatedAt); err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicateOrderID
		}
		return "", fmt.Errorf("insert order: %w", err)
	}

	if err = insertItems(ctx, tx, id, order.Items()); err != nil {
		return "", err
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit save order: %w", err)
	}

	order.ID = id
	order.CreatedAt = createdAt
	order.UpdatedAt = updatedAt
	return id, nil
}

func (s *orderSource) Update(ctx context.Context, order *domain.Order) (err error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	updatedAt := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var createdAt time.Time
	err = tx.QueryRowContext(ctx, `
		UPDATE orders
		SET customer_id = $1,
		    currency = $2,
		    updated_at = $3
		WHERE id = $4
		RETURNING created_at
	`, order.CustomerID, order.Currency, updatedAt, order.ID).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("update order: %w", err)
	}

	// Список позиций заменяется целиком, порядок задаётся position.
	if _, err = tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, order.ID); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	if err = insertItems(ctx, tx, order.ID, order.Items()); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update order: %w", err)
	}

	order.CreatedAt = createdAt.UTC()
	order.UpdatedAt = updatedAt
	return nil
}

func (s *orderSource) Delete(ctx context.Context, order *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// Позиции удаляются каскадно; отсутствие строки не ошибка.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, order.ID); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

func (s *orderSource) loadItems(ctx context.Context, orderID string) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, title, price_minor
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.SKU, &item.Title, &item.PriceMinor); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

func insertItems(ctx context.Context, tx *sql.Tx, orderID string, items []domain.Item) error {
	for position, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, sku, title, price_minor)
			VALUES ($1, $2, $3, $4, $5)
		`, orderID, position, item.SKU, item.Title, item.PriceMinor); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderSource = (*orderSource)(nil)
