package domain

import "errors"

var (
	// ErrOrderNotFound возвращается, если в хранилище нет заказа с таким идентификатором.
	ErrOrderNotFound = errors.New("order not found")
	// ErrTransportFailure — удалённое хранилище недоступно или ответило неожиданно.
	ErrTransportFailure = errors.New("order source transport failure")
	// Ошибка отсутствующего идентификатора заказа.
	ErrOrderIDRequired = errors.New("order id is required")
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = errors.New("currency is required")
	// Ошибка отсутствующего SKU у позиции.
	ErrItemSKURequired = errors.New("item sku is required")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
)

// IsNotFound проверяет, что ошибка означает отсутствие заказа.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound)
}

// IsTransportFailure проверяет, что ошибка вызвана транспортом удалённого хранилища.
func IsTransportFailure(err error) bool {
	return errors.Is(err, ErrTransportFailure)
}
