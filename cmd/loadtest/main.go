// Command loadtest гоняет сценарии Save/Load/Update/Delete против сервиса OrderSource
// и печатает сводку задержек по операциям.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"google.golang.org/grpc"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
	"github.com/vladislavdragonenkov/ordersource/internal/metrics"
	"github.com/vladislavdragonenkov/ordersource/internal/storage/remote"
	"github.com/vladislavdragonenkov/ordersource/internal/version"
)

type loadMode string

const (
	modeSave      loadMode = "save"
	modeSaveLoad  loadMode = "save-load"
	modeLifecycle loadMode = "lifecycle"
)

const scenarioName = "scenario"

type config struct {
	addr        string
	total       int
	duration    time.Duration
	concurrency int
	connections int
	timeout     time.Duration
	mode        loadMode
	currency    string
	items       int
	seed        uint64
	outputPath  string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type operationReport struct {
	Calls     int64            `json:"calls"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Results   map[string]int64 `json:"results"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt       time.Time                  `json:"started_at"`
	DurationSeconds float64                    `json:"duration_seconds"`
	Mode            loadMode                   `json:"mode"`
	Scenarios       int64                      `json:"scenarios"`
	Failed          int64                      `json:"failed"`
	ErrorRate       float64                    `json:"error_rate"`
	RPS             float64                    `json:"rps"`
	Operations      map[string]operationReport `json:"operations"`
}

type operationStats struct {
	calls     int64
	failed    int64
	results   map[string]int64
	latencies []float64
}

// collector копит результаты вызовов по операциям; безопасен для конкурентного использования.
type collector struct {
	mu  sync.Mutex
	ops map[string]*operationStats
}

func newCollector() *collector {
	return &collector{ops: make(map[string]*operationStats)}
}

func (c *collector) record(operation string, latency time.Duration, err error) {
	result := resultOf(err)

	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.ops[operation]
	if !ok {
		stats = &operationStats{results: make(map[string]int64)}
		c.ops[operation] = stats
	}
	stats.calls++
	if err != nil {
		stats.failed++
	}
	stats.results[result]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) buildReport(mode loadMode, startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Mode:            mode,
		Operations:      make(map[string]operationReport, len(c.ops)),
	}

	for name, stats := range c.ops {
		results := make(map[string]int64, len(stats.results))
		for k, v := range stats.results {
			results[k] = v
		}
		result.Operations[name] = operationReport{
			Calls:     stats.calls,
			Failed:    stats.failed,
			ErrorRate: ratio(stats.failed, stats.calls),
			Results:   results,
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}

	if scenario, ok := result.Operations[scenarioName]; ok {
		result.Scenarios = scenario.Calls
		result.Failed = scenario.Failed
		result.ErrorRate = scenario.ErrorRate
	}
	if duration > 0 {
		result.RPS = float64(result.Scenarios) / duration.Seconds()
	}
	return result
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, domain.ErrOrderNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, domain.ErrTransportFailure):
		return metrics.ResultTransportFailure
	default:
		return metrics.ResultError
	}
}

func parseConfig(args []string) (config, error) {
	var (
		cfg       config
		modeValue string
	)

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.addr, "addr", "localhost:50051", "gRPC target address")
	fs.IntVar(&cfg.total, "total", 400, "scenarios to run; with -duration acts as an upper bound when > 0")
	fs.DurationVar(&cfg.duration, "duration", 0, "optional time-based run duration")
	fs.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	fs.IntVar(&cfg.connections, "connections", 8, "number of gRPC client connections")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-call timeout")
	fs.StringVar(&modeValue, "mode", string(modeLifecycle), "load mode: save | save-load | lifecycle")
	fs.StringVar(&cfg.currency, "currency", "USD", "order currency")
	fs.IntVar(&cfg.items, "items", 3, "items per generated order")
	fs.Uint64Var(&cfg.seed, "seed", 0, "fake data seed (0 = time based)")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	switch loadMode(strings.TrimSpace(modeValue)) {
	case modeSave, modeSaveLoad, modeLifecycle:
		cfg.mode = loadMode(strings.TrimSpace(modeValue))
	default:
		return cfg, fmt.Errorf("unsupported mode: %s", modeValue)
	}

	switch {
	case cfg.duration < 0:
		return cfg, errors.New("duration must be >= 0")
	case cfg.duration == 0 && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when duration is not set")
	case cfg.concurrency <= 0:
		return cfg, errors.New("concurrency must be > 0")
	case cfg.connections <= 0:
		return cfg, errors.New("connections must be > 0")
	case cfg.timeout <= 0:
		return cfg, errors.New("timeout must be > 0")
	case cfg.items < 0:
		return cfg, errors.New("items must be >= 0")
	case strings.TrimSpace(cfg.currency) == "":
		return cfg, errors.New("currency is required")
	}

	if cfg.seed == 0 {
		cfg.seed = uint64(time.Now().UnixNano())
	}
	return cfg, nil
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(2)
	}

	clients := make([]*remote.OrderSource, 0, cfg.connections)
	sources := make([]domain.OrderSource, 0, cfg.connections)
	for i := 0; i < cfg.connections; i++ {
		client, dialErr := remote.Dial(cfg.addr,
			[]grpc.DialOption{grpc.WithUserAgent(version.UserAgent("loadtest"))},
			remote.WithCallTimeout(cfg.timeout),
		)
		if dialErr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to create grpc client: %v\n", dialErr)
			os.Exit(1)
		}
		clients = append(clients, client)
		sources = append(sources, client)
	}

	result := run(context.Background(), cfg, sources)
	for _, client := range clients {
		_ = client.Close()
	}
	printReport(os.Stdout, result)

	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}
	if result.Failed > 0 {
		os.Exit(1)
	}
}

// run распределяет сценарии по воркерам и возвращает сводку.
func run(ctx context.Context, cfg config, sources []domain.OrderSource) report {
	startedAt := time.Now()
	col := newCollector()

	jobs := make(chan int, cfg.concurrency*2)
	var wg sync.WaitGroup
	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		wg.Add(1)
		source := sources[workerID%len(sources)]
		faker := gofakeit.New(cfg.seed + uint64(workerID))
		go func() {
			defer wg.Done()
			for range jobs {
				_ = runScenario(ctx, source, cfg, faker, col)
			}
		}()
	}

	dispatchJobs(ctx, jobs, cfg)
	wg.Wait()

	return col.buildReport(cfg.mode, startedAt, time.Since(startedAt))
}

func dispatchJobs(ctx context.Context, jobs chan<- int, cfg config) {
	defer close(jobs)

	var deadline <-chan time.Time
	if cfg.duration > 0 {
		timer := time.NewTimer(cfg.duration)
		defer timer.Stop()
		deadline = timer.C
	}

	for i := 0; cfg.total <= 0 || i < cfg.total; i++ {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case jobs <- i:
		}
	}
}

// timed выполняет одну операцию хранилища и записывает её результат.
func timed(col *collector, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	col.record(operation, time.Since(start), err)
	return err
}

func runScenario(ctx context.Context, source domain.OrderSource, cfg config, faker *gofakeit.Faker, col *collector) (err error) {
	start := time.Now()
	defer func() { col.record(scenarioName, time.Since(start), err) }()

	order := fakeOrder(faker, cfg)

	var id string
	if err = timed(col, "save", func() (saveErr error) {
		id, saveErr = source.Save(ctx, order)
		return saveErr
	}); err != nil {
		return err
	}
	if cfg.mode == modeSave {
		return nil
	}

	var loaded *domain.Order
	if err = timed(col, "load", func() (loadErr error) {
		loaded, loadErr = source.Load(ctx, id)
		return loadErr
	}); err != nil {
		return err
	}
	if loaded.CalculateTotalSum() != order.CalculateTotalSum() {
		return fmt.Errorf("order %s: total %d, want %d", id, loaded.CalculateTotalSum(), order.CalculateTotalSum())
	}
	if cfg.mode == modeSaveLoad {
		return nil
	}

	loaded.AddItem(fakeItem(faker))
	if err = timed(col, "update", func() error { return source.Update(ctx, loaded) }); err != nil {
		return err
	}
	return timed(col, "delete", func() error { return source.Delete(ctx, loaded) })
}

func fakeOrder(faker *gofakeit.Faker, cfg config) *domain.Order {
	order := domain.NewOrder(faker.UUID(), cfg.currency)
	for i := 0; i < cfg.items; i++ {
		order.AddItem(fakeItem(faker))
	}
	return order
}

func fakeItem(faker *gofakeit.Faker) domain.Item {
	return domain.Item{
		SKU:        strings.ToUpper(faker.LetterN(8)),
		Title:      faker.ProductName(),
		PriceMinor: int64(faker.IntRange(1, 500000)),
	}
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}

	// #nosec G304 -- путь задаётся явно флагом -output.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(w io.Writer, result report) {
	_, _ = fmt.Fprintf(w, "mode=%s scenarios=%d failed=%d error_rate=%.4f duration=%.2fs rps=%.2f\n",
		result.Mode, result.Scenarios, result.Failed, result.ErrorRate, result.DurationSeconds, result.RPS)

	names := make([]string, 0, len(result.Operations))
	for name := range result.Operations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		op := result.Operations[name]
		_, _ = fmt.Fprintf(w, "%s: calls=%d failed=%d p50=%.2fms p95=%.2fms p99=%.2fms max=%.2fms\n",
			name, op.Calls, op.Failed, op.LatencyMs.P50, op.LatencyMs.P95, op.LatencyMs.P99, op.LatencyMs.Max)
	}
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

// percentile считает перцентиль с линейной интерполяцией по отсортированной выборке.
func percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func ratio(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}
