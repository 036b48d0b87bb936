package marketdata

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"RailScan/internal/domain/models"
	"RailScan/internal/domain/repository"
	"RailScan/internal/service/metrics"
	"RailScan/internal/service/ratelimit"
	"RailScan/internal/services/features"
	"RailScan/pkg/logger"

	"github.com/sony/gobreaker"
)

var (
	// ErrNoData means a source answered but had no usable bars.
	ErrNoData = errors.New("marketdata: no data")
	// ErrInvalidSymbol means the ticker is empty or malformed.
	ErrInvalidSymbol = errors.New("marketdata: invalid symbol")

	symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-^=]{0,19}$`)
)

// LoaderConfig tunes retries and breaker behaviour.
type LoaderConfig struct {
	Retries             int
	RetryDelay          time.Duration
	BreakerMaxRequests  uint32
	BreakerInterval     time.Duration
	BreakerTimeout      time.Duration
	ConsecutiveFailures uint32
}

// Loader fetches daily bars from a primary source with retries, then from
// fallbacks, then from the archive. Each source sits behind its own circuit
// breaker and shares a per-source rate limiter.
type Loader struct {
	primary   repository.BarSource
	fallbacks []repository.BarSource
	archive   repository.BarArchive
	limiter   *ratelimit.Limiter
	breakers  map[string]*gobreaker.CircuitBreaker
	cfg       LoaderConfig
	log       *logger.Logger
	now       func() time.Time
}

// NewLoader wires the sources. archive and limiter may be nil.
func NewLoader(primary repository.BarSource, fallbacks []repository.BarSource, archive repository.BarArchive,
	limiter *ratelimit.Limiter, cfg LoaderConfig, lgr *logger.Logger) *Loader {
	if cfg.Retries < 1 {
		cfg.Retries = 1
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if lgr == nil {
		lgr = logger.Nop()
	}
	metrics.Register()

	l := &Loader{
		primary:   primary,
		fallbacks: fallbacks,
		archive:   archive,
		limiter:   limiter,
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
		cfg:       cfg,
		log:       lgr,
		now:       time.Now,
	}
	for _, src := range append([]repository.BarSource{primary}, fallbacks...) {
		l.breakers[src.Name()] = l.newBreaker(src.Name())
	}
	return l
}

func (l *Loader) newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: l.cfg.BreakerMaxRequests,
		Interval:    l.cfg.BreakerInterval,
		Timeout:     l.cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= l.cfg.ConsecutiveFailures
		},
		// an empty answer is not a provider outage
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoData) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			l.log.Warn("marketdata: breaker state change",
				logger.String("source", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})
}

// NormalizeSymbol trims and upper-cases a ticker and checks its shape.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || !symbolPattern.MatchString(s) {
		return "", fmt.Errorf("%q: %w", symbol, ErrInvalidSymbol)
	}
	return s, nil
}

// Load returns cleaned, date-ascending daily bars for symbol.
func (l *Loader) Load(ctx context.Context, symbol string, period repository.Period) (models.PriceSeries, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	var errs []error
	bars, err := l.fetchWithRetry(ctx, l.primary, sym, period)
	if err == nil {
		return l.keep(ctx, sym, bars), nil
	}
	errs = append(errs, err)

	for _, src := range l.fallbacks {
		if ctx.Err() != nil {
			break
		}
		bars, err = l.fetch(ctx, src, sym, period)
		if err == nil {
			l.log.Info("marketdata: served by fallback",
				logger.String("symbol", sym),
				logger.String("source", src.Name()),
			)
			return l.keep(ctx, sym, bars), nil
		}
		errs = append(errs, err)
	}

	if l.archive != nil && ctx.Err() == nil {
		from := repository.PeriodStart(l.now().UTC(), period)
		archived, err := l.archive.LoadBars(ctx, sym, from)
		if err == nil && len(archived) > 0 {
			l.log.Warn("marketdata: served from archive", logger.String("symbol", sym), logger.Int("bars", len(archived)))
			return features.CleanBars(archived), nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	return nil, fmt.Errorf("%s: %w: %w", sym, ErrNoData, errors.Join(errs...))
}

func (l *Loader) fetchWithRetry(ctx context.Context, src repository.BarSource, symbol string, period repository.Period) (models.PriceSeries, error) {
	var err error
	for i := 1; i <= l.cfg.Retries; i++ {
		var bars models.PriceSeries
		bars, err = l.fetch(ctx, src, symbol, period)
		if err == nil {
			return bars, nil
		}
		if errors.Is(err, ErrNoData) || errors.Is(err, gobreaker.ErrOpenState) || i == l.cfg.Retries {
			break
		}
		l.log.Debug("marketdata: retrying",
			logger.String("symbol", symbol),
			logger.String("source", src.Name()),
			logger.Int("attempt", i),
			logger.Error(err),
		)
		select {
		case <-time.After(l.cfg.RetryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, err
}

func (l *Loader) fetch(ctx context.Context, src repository.BarSource, symbol string, period repository.Period) (models.PriceSeries, error) {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx, src.Name()); err != nil {
			return nil, fmt.Errorf("%s rate limit: %w", src.Name(), err)
		}
	}

	start := time.Now()
	out, err := l.breakers[src.Name()].Execute(func() (interface{}, error) {
		return src.FetchDaily(ctx, symbol, period)
	})
	metrics.ProviderLatency.WithLabelValues(src.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ProviderRequests.WithLabelValues(src.Name(), "error").Inc()
		return nil, err
	}
	bars := features.CleanBars(out.(models.PriceSeries))
	if len(bars) == 0 {
		metrics.ProviderRequests.WithLabelValues(src.Name(), "empty").Inc()
		return nil, fmt.Errorf("%s %s: %w", src.Name(), symbol, ErrNoData)
	}
	metrics.ProviderRequests.WithLabelValues(src.Name(), "ok").Inc()
	return bars, nil
}

// keep writes fresh bars to the archive; failures are only logged.
func (l *Loader) keep(ctx context.Context, symbol string, bars models.PriceSeries) models.PriceSeries {
	if l.archive != nil {
		if err := l.archive.SaveBars(ctx, symbol, bars); err != nil {
			l.log.Warn("marketdata: archive write failed", logger.String("symbol", symbol), logger.Error(err))
		}
	}
	return bars
}

// LastPrice returns the most recent positive close.
func LastPrice(series models.PriceSeries) (float64, bool) {
	last, ok := series.Last()
	if !ok || last.Close <= 0 {
		return 0, false
	}
	return last.Close, true
}
