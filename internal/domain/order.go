package domain

import (
	"slices"
	"time"
)

// Item представляет одну позицию заказа.
type Item struct {
	// SKU — внешний идентификатор товара.
	SKU string `json:"sku"`
	// Title — человекочитаемое название позиции.
	Title string `json:"title"`
	// PriceMinor — цена позиции в минимальных денежных единицах (например, копейки).
	PriceMinor int64 `json:"price_minor"`
}

// Order агрегирует позиции заказа. Итоговая сумма и количество позиций
// не хранятся отдельно и всегда вычисляются по текущему списку.
type Order struct {
	ID         string
	CustomerID string
	Currency   string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	items []Item
}

// NewOrder создаёт пустой заказ без идентификатора.
func NewOrder(customerID, currency string) *Order {
	return &Order{
		CustomerID: customerID,
		Currency:   currency,
	}
}

// RestoreOrder восстанавливает заказ из сохранённого состояния.
func RestoreOrder(id, customerID, currency string, createdAt, updatedAt time.Time, items []Item) *Order {
	return &Order{
		ID:         id,
		CustomerID: customerID,
		Currency:   currency,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
		items:      slices.Clone(items),
	}
}

// AddItem добавляет позицию в конец списка. Дубликаты допускаются.
func (o *Order) AddItem(item Item) {
	o.items = append(o.items, item)
}

// DeleteItem удаляет первое вхождение позиции и сообщает, было ли что удалять.
func (o *Order) DeleteItem(item Item) bool {
	idx := slices.Index(o.items, item)
	if idx < 0 {
		return false
	}
	o.items = slices.Delete(o.items, idx, idx+1)
	return true
}

// CalculateTotalSum возвращает сумму цен всех позиций.
func (o *Order) CalculateTotalSum() int64 {
	var total int64
	for _, item := range o.items {
		total += item.PriceMinor
	}
	return total
}

// ItemCount возвращает количество позиций.
func (o *Order) ItemCount() int {
	return len(o.items)
}

// Items возвращает копию списка позиций.
func (o *Order) Items() []Item {
	return slices.Clone(o.items)
}

// Clone возвращает независимую копию заказа.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.items = slices.Clone(o.items)
	return &clone
}

// Validate проверяет базовые инварианты заказа на границе API и возвращает список замечаний.
func (o *Order) Validate() []error {
	var errs []error

	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if o.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	for _, item := range o.items {
		if item.SKU == "" {
			errs = append(errs, ErrItemSKURequired)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}

	return errs
}
