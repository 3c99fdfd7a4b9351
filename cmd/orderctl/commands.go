package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
	"github.com/vladislavdragonenkov/ordersource/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ordersource/internal/repository"
	"github.com/vladislavdragonenkov/ordersource/internal/storage/remote"
	"github.com/vladislavdragonenkov/ordersource/internal/version"
	"github.com/vladislavdragonenkov/ordersource/internal/viewer"
)

const (
	envTarget     = "ORDERSOURCE_TARGET"
	defaultTarget = "localhost:50051"
)

var errItemNotInOrder = errors.New("item is not in the order")

// sourceOpener открывает хранилище по адресу сервиса и возвращает функцию закрытия.
type sourceOpener func(target string, timeout time.Duration) (domain.OrderSource, func() error, error)

// watchOptions задаёт подписку на события заказов.
type watchOptions struct {
	brokers []string
	group   string
	topic   string
	// quarantine отправляет нераспознанные сообщения в DLQ вместо пропуска.
	quarantine bool
}

// eventWatcher читает события заказов до отмены ctx.
type eventWatcher func(ctx context.Context, opts watchOptions, handle func(domain.OrderEvent)) error

type dependencies struct {
	openSource sourceOpener
	watch      eventWatcher
}

func defaultDependencies() dependencies {
	return dependencies{
		openSource: openRemoteSource,
		watch:      watchKafka,
	}
}

func openRemoteSource(target string, timeout time.Duration) (domain.OrderSource, func() error, error) {
	client, err := remote.Dial(target,
		[]grpc.DialOption{grpc.WithUserAgent(version.UserAgent("orderctl"))},
		remote.WithCallTimeout(timeout),
	)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

func watchKafka(ctx context.Context, opts watchOptions, handle func(domain.OrderEvent)) error {
	logger := log.WithField("component", "orderctl-watch")

	var dlq *kafka.Producer
	if opts.quarantine {
		producer, err := kafka.NewProducer(opts.brokers, kafka.TopicDeadLetterQueue)
		if err != nil {
			return err
		}
		defer func() { _ = producer.Close() }()
		dlq = producer
	}

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:    opts.brokers,
		GroupID:    opts.group,
		Topic:      opts.topic,
		Quarantine: dlq,
	}, func(_ context.Context, event domain.OrderEvent) error {
		handle(event)
		return nil
	}, logger)
	if err != nil {
		return err
	}
	return consumer.Run(ctx)
}

type cli struct {
	deps    dependencies
	target  string
	timeout time.Duration
	view    viewer.OrderViewer
}

func newRootCmd(deps dependencies) *cobra.Command {
	c := &cli{deps: deps, view: viewer.New()}

	target := os.Getenv(envTarget)
	if target == "" {
		target = defaultTarget
	}

	root := &cobra.Command{
		Use:          "orderctl",
		Short:        "Работа с заказами через сервис OrderSource",
		Version:      version.GetVersion(),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.target, "target", target, "gRPC address of the OrderSource service (env "+envTarget+")")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 5*time.Second, "per-call timeout")

	root.AddCommand(
		c.newCreateCmd(),
		c.newPrintCmd(),
		c.newShowCmd(),
		c.newAddItemCmd(),
		c.newDeleteItemCmd(),
		c.newDeleteCmd(),
		c.newWatchCmd(),
	)
	return root
}

// withRepository открывает хранилище на время одной команды.
func (c *cli) withRepository(fn func(repo *repository.OrderRepository) error) error {
	source, closeFn, err := c.deps.openSource(c.target, c.timeout)
	if err != nil {
		return err
	}
	defer func() {
		if closeFn != nil {
			_ = closeFn()
		}
	}()
	return fn(repository.NewOrderRepository(source))
}

func (c *cli) newCreateCmd() *cobra.Command {
	var (
		customer string
		currency string
		items    []string
	)

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Создать заказ",
		Example: "  orderctl create --customer c-1 --currency USD --item SKU-1:Book:12.50",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			order := domain.NewOrder(strings.TrimSpace(customer), strings.ToUpper(strings.TrimSpace(currency)))
			for _, raw := range items {
				item, err := parseItem(raw)
				if err != nil {
					return err
				}
				order.AddItem(item)
			}
			if errs := order.Validate(); len(errs) > 0 {
				return errors.Join(errs...)
			}

			return c.withRepository(func(repo *repository.OrderRepository) error {
				id, err := repo.Save(cmd.Context(), order)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&customer, "customer", "", "customer id")
	cmd.Flags().StringVar(&currency, "currency", "", "currency code")
	cmd.Flags().StringArrayVar(&items, "item", nil, "item as sku:title:price, repeatable")
	_ = cmd.MarkFlagRequired("customer")
	_ = cmd.MarkFlagRequired("currency")
	return cmd
}

func (c *cli) newPrintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "print <id>",
		Short: "Вывести заказ таблицей",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.render(cmd.Context(), args[0], cmd.OutOrStdout(), c.view.PrintOrder)
		},
	}
}

func (c *cli) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Вывести заказ в YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.render(cmd.Context(), args[0], cmd.OutOrStdout(), c.view.ShowOrder)
		},
	}
}

func (c *cli) render(ctx context.Context, id string, w io.Writer, fn func(io.Writer, *domain.Order) error) error {
	return c.withRepository(func(repo *repository.OrderRepository) error {
		order, err := repo.Load(ctx, id)
		if err != nil {
			return err
		}
		return fn(w, order)
	})
}

func (c *cli) newAddItemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-item <id> <sku:title:price>",
		Short: "Добавить позицию в заказ",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := parseItem(args[1])
			if err != nil {
				return err
			}
			return c.modify(cmd, args[0], func(order *domain.Order) error {
				order.AddItem(item)
				return nil
			})
		},
	}
}

func (c *cli) newDeleteItemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-item <id> <sku:title:price>",
		Short: "Удалить позицию из заказа",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := parseItem(args[1])
			if err != nil {
				return err
			}
			return c.modify(cmd, args[0], func(order *domain.Order) error {
				if !order.DeleteItem(item) {
					return fmt.Errorf("%w: %s", errItemNotInOrder, args[1])
				}
				return nil
			})
		},
	}
}

// modify загружает заказ, применяет изменение и сохраняет результат.
func (c *cli) modify(cmd *cobra.Command, id string, change func(*domain.Order) error) error {
	ctx := cmd.Context()
	return c.withRepository(func(repo *repository.OrderRepository) error {
		order, err := repo.Load(ctx, id)
		if err != nil {
			return err
		}
		if err := change(order); err != nil {
			return err
		}
		if err := repo.Update(ctx, order); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d items, total %s %s\n",
			order.ID, order.ItemCount(), viewer.FormatMoney(order.CalculateTotalSum()), order.Currency)
		return err
	})
}

func (c *cli) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Удалить заказ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRepository(func(repo *repository.OrderRepository) error {
				order, err := repo.Load(cmd.Context(), args[0])
				if errors.Is(err, domain.ErrOrderNotFound) {
					// Удаление отсутствующего заказа не ошибка, но и удалять нечего.
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: not found, nothing to delete\n", args[0])
					return err
				}
				if err != nil {
					return err
				}
				return repo.Delete(cmd.Context(), order)
			})
		},
	}
}

func (c *cli) newWatchCmd() *cobra.Command {
	opts := watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Следить за событиями заказов в Kafka",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(opts.brokers) == 0 {
				return errors.New("at least one --brokers address is required")
			}
			out := cmd.OutOrStdout()
			return c.deps.watch(cmd.Context(), opts, func(event domain.OrderEvent) {
				_, _ = fmt.Fprintln(out, formatEvent(event))
			})
		},
	}
	cmd.Flags().StringSliceVar(&opts.brokers, "brokers", nil, "kafka brokers, comma separated")
	cmd.Flags().StringVar(&opts.group, "group", "orderctl", "consumer group id")
	cmd.Flags().StringVar(&opts.topic, "topic", kafka.TopicOrderEvents, "events topic")
	cmd.Flags().BoolVar(&opts.quarantine, "dlq", false, "send malformed events to "+kafka.TopicDeadLetterQueue)
	return cmd
}

func formatEvent(event domain.OrderEvent) string {
	return fmt.Sprintf("%s\t%s\t%s\titems=%d\ttotal=%s %s",
		event.Timestamp.UTC().Format(time.RFC3339),
		event.EventType,
		event.OrderID,
		event.ItemCount,
		viewer.FormatMoney(event.TotalMinor),
		event.Currency,
	)
}
