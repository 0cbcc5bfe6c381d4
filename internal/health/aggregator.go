package health

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/resilience-control-plane/internal/domain"
	"github.com/xela07ax/resilience-control-plane/internal/infra"
	"github.com/xela07ax/resilience-control-plane/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Aggregator запускает пробы параллельно и собирает композитный документ.
// Сам агрегатор никогда не падает: любой сбой попадает в документ.
type Aggregator struct {
	service      string
	probes       []Probe
	probeTimeout time.Duration
	downstream   []infra.DownstreamConfig
	fetchTimeout time.Duration
	client       *http.Client
	now          func() time.Time
	logger       *zap.Logger
	metrics      *telemetry.Metrics
}

type AggregatorOption func(*Aggregator)

// WithDownstream добавляет сервисы, чье время ответа учитывается в /health/deep.
func WithDownstream(ds []infra.DownstreamConfig, fetchTimeout time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		a.downstream = ds
		if fetchTimeout > 0 {
			a.fetchTimeout = fetchTimeout
		}
	}
}

// WithHTTPClient подменяет HTTP-клиент для опроса зависимых сервисов.
func WithHTTPClient(c *http.Client) AggregatorOption {
	return func(a *Aggregator) { a.client = c }
}

func NewAggregator(service string, probes []Probe, probeTimeout time.Duration, logger *zap.Logger, metrics *telemetry.Metrics, opts ...AggregatorOption) *Aggregator {
	if metrics == nil {
		metrics = telemetry.NewMetrics(nil)
	}
	a := &Aggregator{
		service:      service,
		probes:       probes,
		probeTimeout: probeTimeout,
		fetchTimeout: 10 * time.Second,
		client:       &http.Client{},
		now:          time.Now,
		logger:       logger.Named("health-aggregator"),
		metrics:      metrics,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Service — имя сервиса, о котором собирается документ.
func (a *Aggregator) Service() string { return a.service }

// Check — документ по прямым зависимостям (GET /health).
func (a *Aggregator) Check(ctx context.Context) domain.HealthDocument {
	start := a.now()
	results := a.runProbes(ctx)
	return a.compose(start, results, nil)
}

// DeepCheck — то же плюс опрос зависимых сервисов и разбивка задержек
// по компонентам (GET /health/deep).
func (a *Aggregator) DeepCheck(ctx context.Context) domain.HealthDocument {
	start := a.now()

	var g errgroup.Group
	var probeRes []namedResult
	remoteRes := make([]namedResult, len(a.downstream))

	g.Go(func() error {
		probeRes = a.runProbes(ctx)
		return nil
	})
	for i, ds := range a.downstream {
		g.Go(func() error {
			rr := FetchDocument(ctx, a.client, ds.Name, ds.URL, a.fetchTimeout)
			remoteRes[i] = namedResult{name: ds.Name, result: rr.Document.ProbeResult}
			return nil
		})
	}
	_ = g.Wait()

	results := append(probeRes, remoteRes...)
	latency := &domain.LatencyAttribution{Components: make(map[string]int64, len(results))}
	for _, r := range results {
		latency.Components[r.name] = r.result.DurationMs
	}

	doc := a.compose(start, results, latency)
	doc.Latency.TotalMs = a.now().Sub(start).Milliseconds()
	return doc
}

type namedResult struct {
	name   string
	result domain.ProbeResult
}

// runProbes запускает все пробы одновременно; каждая ограничена своим таймаутом
// и не влияет на соседние.
func (a *Aggregator) runProbes(ctx context.Context) []namedResult {
	out := make([]namedResult, len(a.probes))

	var g errgroup.Group
	for i, p := range a.probes {
		g.Go(func() error {
			res := Run(ctx, p, a.probeTimeout)
			a.metrics.ProbeDuration.
				WithLabelValues(p.Name(), strconv.FormatBool(res.Healthy)).
				Observe(float64(res.DurationMs) / 1000)
			out[i] = namedResult{name: p.Name(), result: res}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (a *Aggregator) compose(start time.Time, results []namedResult, latency *domain.LatencyAttribution) domain.HealthDocument {
	deps := make(map[string]domain.ProbeResult, len(results))
	checks := make(domain.Checks, 0, len(results))
	var failed []string

	for _, r := range results {
		deps[r.name] = r.result
		status := domain.CheckOK
		if !r.result.Healthy {
			status = domain.CheckFailed
			failed = append(failed, r.name)
		}
		checks = append(checks, domain.Check{Name: r.name, Status: status})
	}

	var pr domain.ProbeResult
	if len(failed) == 0 {
		pr = domain.HealthyResult(checks, nil)
	} else {
		pr = domain.UnhealthyResult("unhealthy dependencies: "+strings.Join(failed, ", "), checks, nil)
		a.logger.Warn("service unhealthy", zap.Strings("failed", failed))
	}

	doc := domain.HealthDocument{
		ProbeResult:  pr.WithDuration(a.now().Sub(start)),
		Service:      a.service,
		RunID:        uuid.NewString(),
		Timestamp:    start,
		Dependencies: deps,
		Latency:      latency,
	}
	return doc
}
