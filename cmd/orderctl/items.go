package main

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
)

var errItemFormat = errors.New("item must look like sku:title:price")

var maxPriceMinor = decimal.NewFromInt(math.MaxInt64)

// parseItem разбирает позицию вида sku:title:price.
// Цена указывается в основных единицах (12.50), заголовок может содержать двоеточия.
func parseItem(raw string) (domain.Item, error) {
	first := strings.Index(raw, ":")
	last := strings.LastIndex(raw, ":")
	if first < 0 || first == last {
		return domain.Item{}, fmt.Errorf("%w: %q", errItemFormat, raw)
	}

	sku := strings.TrimSpace(raw[:first])
	if sku == "" {
		return domain.Item{}, domain.ErrItemSKURequired
	}

	price, err := decimal.NewFromString(strings.TrimSpace(raw[last+1:]))
	if err != nil {
		return domain.Item{}, fmt.Errorf("%w: price: %v", errItemFormat, err)
	}
	minor := price.Shift(2)
	switch {
	case minor.IsNegative():
		return domain.Item{}, domain.ErrItemPriceInvalid
	case !minor.IsInteger():
		return domain.Item{}, fmt.Errorf("%w: price %s has more than two decimal places", errItemFormat, price)
	case minor.GreaterThan(maxPriceMinor):
		return domain.Item{}, fmt.Errorf("%w: price %s is too large", errItemFormat, price)
	}

	return domain.Item{
		SKU:        sku,
		Title:      strings.TrimSpace(raw[first+1 : last]),
		PriceMinor: minor.IntPart(),
	}, nil
}
