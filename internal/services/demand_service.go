package services

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/oplens/stockcast/internal/forecast"
	"github.com/oplens/stockcast/internal/models"
	"github.com/oplens/stockcast/internal/timeseries"
)

// ErrNoData is surfaced to the caller when no stock movements exist at all
// for the requested scope and period. Unlike an unavailable forecast it is
// a user-visible condition: the caller shows a not-enough-data notification
// instead of an empty result.
var ErrNoData = timeseries.ErrNoData

// BucketExtractor is the data source contract of the pipeline: grouped
// totals per truncated date for the request's filters.
type BucketExtractor interface {
	FetchDemandBuckets(ctx context.Context, req models.ForecastRequest) ([]models.RawBucket, error)
}

// SeriesCache stores assembled demand series keyed by request digest.
type SeriesCache interface {
	Get(ctx context.Context, key string) (*models.DemandSeries, bool)
	Set(ctx context.Context, key string, series models.DemandSeries)
}

// DemandService runs the demand pipeline: extract grouped movement totals,
// normalize them onto a regular bucket grid, forecast future buckets and
// assemble the combined series. One synchronous computation per call, no
// state shared between requests beyond the result cache.
type DemandService struct {
	extractor BucketExtractor
	engine    *forecast.Engine
	cache     SeriesCache
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewDemandService creates the pipeline service. The cache may be nil, in
// which case every request is computed from scratch.
func NewDemandService(extractor BucketExtractor, engine *forecast.Engine, cache SeriesCache, logger *slog.Logger) *DemandService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DemandService{
		extractor: extractor,
		engine:    engine,
		cache:     cache,
		logger:    logger,
		tracer:    otel.Tracer("stockcast/demand"),
	}
}

// ComputeSeries runs one full computation for a validated request and
// returns the assembled series in ascending date order. A failed model fit
// degrades to a history-only series; ErrNoData aborts before forecasting.
func (s *DemandService) ComputeSeries(ctx context.Context, req models.ForecastRequest) (*models.DemandSeries, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "DemandService.ComputeSeries",
		trace.WithAttributes(
			attribute.String("demand.method", string(req.Method)),
			attribute.String("demand.interval", string(req.Interval)),
			attribute.Int("demand.periods", req.PredictedPeriods),
		))
	defer span.End()

	cacheKey := req.CacheKey()
	if s.cache != nil && cacheKey != "" && !req.SkipCache {
		if cached, found := s.cache.Get(ctx, cacheKey); found {
			span.SetAttributes(attribute.Bool("demand.cache_hit", true))
			return cached, nil
		}
	}

	buckets, err := s.extractor.FetchDemandBuckets(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to extract demand buckets: %w", err)
	}

	series, err := timeseries.Normalize(buckets, req.Interval, req.DateStart, req.DateEnd)
	if err != nil {
		return nil, err
	}

	result := s.engine.Forecast(series.Values(), forecast.Params{
		Method:    req.Method,
		Periods:   req.PredictedPeriods,
		Lags:      req.Lags,
		P:         req.P,
		D:         req.D,
		Q:         req.Q,
		SeasonalP: req.SeasonalP,
		SeasonalD: req.SeasonalD,
		SeasonalQ: req.SeasonalQ,
		Seasons:   req.Seasons,
	})

	assembled := assembleRecords(series, result)
	if s.cache != nil && cacheKey != "" {
		s.cache.Set(ctx, cacheKey, assembled)
	}

	s.logger.Debug("demand series computed",
		"history_buckets", series.Len(),
		"forecast_points", len(result.Points),
		"forecast_available", result.Available)

	return &assembled, nil
}

// assembleRecords merges history and forecast into the canonical ascending
// output. Forecast buckets continue the grid immediately after the last
// historical bucket; an unavailable forecast yields history only.
func assembleRecords(series timeseries.Series, result forecast.Result) models.DemandSeries {
	records := make([]models.DemandRecord, 0, series.Len()+len(result.Points))
	for _, b := range series.Buckets {
		records = append(records, models.DemandRecord{
			Date:     b.BucketStart,
			Quantity: b.Quantity,
		})
	}

	if result.Available {
		cur := series.End()
		for _, quantity := range result.Points {
			cur = timeseries.Next(cur, series.Interval)
			records = append(records, models.DemandRecord{
				Date:       cur,
				Quantity:   quantity,
				IsForecast: true,
			})
		}
	}

	return models.DemandSeries{
		Records:           records,
		ForecastAvailable: result.Available,
	}
}
