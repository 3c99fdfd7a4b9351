package ordersourcev1

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
)

// ErrInvalidPayload — Struct не соответствует формату заказа.
var ErrInvalidPayload = errors.New("invalid order payload")

const (
	fieldID         = "id"
	fieldCustomerID = "customer_id"
	fieldCurrency   = "currency"
	fieldCreatedAt  = "created_at"
	fieldUpdatedAt  = "updated_at"
	fieldItems      = "items"
	fieldSKU        = "sku"
	fieldTitle      = "title"
	fieldPriceMinor = "price_minor"
)

// OrderToStruct упаковывает заказ в google.protobuf.Struct.
// Цена передаётся строкой: number в Struct — это double.
func OrderToStruct(order *domain.Order) *structpb.Struct {
	items := order.Items()
	list := make([]*structpb.Value, 0, len(items))
	for _, item := range items {
		list = append(list, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			fieldSKU:        structpb.NewStringValue(item.SKU),
			fieldTitle:      structpb.NewStringValue(item.Title),
			fieldPriceMinor: structpb.NewStringValue(strconv.FormatInt(item.PriceMinor, 10)),
		}}))
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldID:         structpb.NewStringValue(order.ID),
		fieldCustomerID: structpb.NewStringValue(order.CustomerID),
		fieldCurrency:   structpb.NewStringValue(order.Currency),
		fieldCreatedAt:  structpb.NewStringValue(formatTime(order.CreatedAt)),
		fieldUpdatedAt:  structpb.NewStringValue(formatTime(order.UpdatedAt)),
		fieldItems:      structpb.NewListValue(&structpb.ListValue{Values: list}),
	}}
}

// OrderFromStruct восстанавливает заказ из Struct.
// Отсутствующие поля трактуются как пустые, неверные типы — как ErrInvalidPayload.
func OrderFromStruct(s *structpb.Struct) (*domain.Order, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: empty struct", ErrInvalidPayload)
	}
	fields := s.GetFields()

	id, err := stringField(fields, fieldID)
	if err != nil {
		return nil, err
	}
	customerID, err := stringField(fields, fieldCustomerID)
	if err != nil {
		return nil, err
	}
	currency, err := stringField(fields, fieldCurrency)
	if err != nil {
		return nil, err
	}
	createdAt, err := timeField(fields, fieldCreatedAt)
	if err != nil {
		return nil, err
	}
	updatedAt, err := timeField(fields, fieldUpdatedAt)
	if err != nil {
		return nil, err
	}

	var items []domain.Item
	if raw, ok := fields[fieldItems]; ok {
		list, ok := raw.GetKind().(*structpb.Value_ListValue)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a list", ErrInvalidPayload, fieldItems)
		}
		for i, value := range list.ListValue.GetValues() {
			item, err := itemFromValue(value)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			items = append(items, item)
		}
	}

	return domain.RestoreOrder(id, customerID, currency, createdAt, updatedAt, items), nil
}

func itemFromValue(value *structpb.Value) (domain.Item, error) {
	obj, ok := value.GetKind().(*structpb.Value_StructValue)
	if !ok {
		return domain.Item{}, fmt.Errorf("%w: item must be an object", ErrInvalidPayload)
	}
	fields := obj.StructValue.GetFields()

	sku, err := stringField(fields, fieldSKU)
	if err != nil {
		return domain.Item{}, err
	}
	title, err := stringField(fields, fieldTitle)
	if err != nil {
		return domain.Item{}, err
	}
	rawPrice, err := stringField(fields, fieldPriceMinor)
	if err != nil {
		return domain.Item{}, err
	}
	var price int64
	if rawPrice != "" {
		price, err = strconv.ParseInt(rawPrice, 10, 64)
		if err != nil {
			return domain.Item{}, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, fieldPriceMinor, err)
		}
	}

	return domain.Item{SKU: sku, Title: title, PriceMinor: price}, nil
}

func stringField(fields map[string]*structpb.Value, name string) (string, error) {
	raw, ok := fields[name]
	if !ok {
		return "", nil
	}
	switch kind := raw.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue, nil
	case *structpb.Value_NullValue:
		return "", nil
	default:
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidPayload, name)
	}
}

func timeField(fields map[string]*structpb.Value, name string) (time.Time, error) {
	raw, err := stringField(fields, name)
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, name, err)
	}
	return ts.UTC(), nil
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339Nano)
}
