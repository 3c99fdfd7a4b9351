// Package viewer отображает заказ в двух представлениях: текстовый чек и структурированный YAML.
package viewer

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
)

// ErrNilOrder возвращается при попытке отобразить nil.
var ErrNilOrder = errors.New("viewer: order is nil")

// minorUnitExp — масштаб минимальной денежной единицы (две цифры после запятой).
const minorUnitExp = -2

// Printer печатает заказ в виде текстового чека.
type Printer interface {
	PrintOrder(w io.Writer, order *domain.Order) error
}

// Shower выводит структурированное представление заказа.
type Shower interface {
	ShowOrder(w io.Writer, order *domain.Order) error
}

// OrderViewer реализует оба представления. Заказ не изменяется.
type OrderViewer struct{}

// New возвращает OrderViewer.
func New() OrderViewer {
	return OrderViewer{}
}

// PrintOrder пишет выровненный текстовый чек.
func (OrderViewer) PrintOrder(w io.Writer, order *domain.Order) error {
	if order == nil {
		return ErrNilOrder
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Order:\t%s\n", order.ID)
	fmt.Fprintf(tw, "Customer:\t%s\n", order.CustomerID)
	fmt.Fprintf(tw, "Currency:\t%s\n", order.Currency)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "SKU\tTITLE\tPRICE")
	for _, item := range order.Items() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", item.SKU, item.Title, FormatMoney(item.PriceMinor))
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Items:\t%d\n", order.ItemCount())
	fmt.Fprintf(tw, "Total:\t%s %s\n", FormatMoney(order.CalculateTotalSum()), order.Currency)

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("print order: %w", err)
	}
	return nil
}

type itemView struct {
	SKU   string `yaml:"sku"`
	Title string `yaml:"title"`
	Price string `yaml:"price"`
}

type orderView struct {
	ID         string     `yaml:"id"`
	CustomerID string     `yaml:"customer_id"`
	Currency   string     `yaml:"currency"`
	Items      []itemView `yaml:"items"`
	ItemCount  int        `yaml:"item_count"`
	Total      string     `yaml:"total"`
}

// ShowOrder пишет заказ YAML-документом.
func (OrderViewer) ShowOrder(w io.Writer, order *domain.Order) error {
	if order == nil {
		return ErrNilOrder
	}

	items := order.Items()
	view := orderView{
		ID:         order.ID,
		CustomerID: order.CustomerID,
		Currency:   order.Currency,
		Items:      make([]itemView, 0, len(items)),
		ItemCount:  order.ItemCount(),
		Total:      FormatMoney(order.CalculateTotalSum()),
	}
	for _, item := range items {
		view.Items = append(view.Items, itemView{
			SKU:   item.SKU,
			Title: item.Title,
			Price: FormatMoney(item.PriceMinor),
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(view); err != nil {
		return fmt.Errorf("show order: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("show order: %w", err)
	}
	return nil
}

// FormatMoney переводит сумму в минимальных единицах в строку с двумя знаками после запятой.
func FormatMoney(minor int64) string {
	return decimal.New(minor, minorUnitExp).StringFixed(2)
}

var (
	_ Printer = OrderViewer{}
	_ Shower  = OrderViewer{}
)
