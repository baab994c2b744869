// Package services implements the core aggregation logic of the weather gateway.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/revlabs/weather-gateway/internal/core/domain"
	"github.com/revlabs/weather-gateway/internal/core/ports"
	"github.com/revlabs/weather-gateway/internal/export"
)

type weatherService struct {
	geocoder  ports.GeocodingClient
	forecasts ports.ForecastClient
	cache     ports.WeatherCache
	logs      ports.LogStore
	store     ports.ObjectStore
	logger    *zap.Logger
}

// NewWeatherService creates the aggregation service. The log store and object
// store may be nil when the corresponding backends are disabled; request
// logging then becomes a no-op and CSV uploads are skipped.
func NewWeatherService(
	geocoder ports.GeocodingClient,
	forecasts ports.ForecastClient,
	cache ports.WeatherCache,
	logs ports.LogStore,
	store ports.ObjectStore,
	logger *zap.Logger,
) ports.WeatherService {
	return &weatherService{
		geocoder:  geocoder,
		forecasts: forecasts,
		cache:     cache,
		logs:      logs,
		store:     store,
		logger:    logger,
	}
}

func (s *weatherService) GetWeather(ctx context.Context, query domain.WeatherQuery, meta domain.RequestMeta, upload bool) (*domain.WeatherReport, error) {
	if err := query.Validate(); err != nil {
		return nil, &domain.WeatherError{
			Code:    domain.ErrCodeInvalidRequest,
			Message: "invalid weather query",
			Cause:   err,
		}
	}

	items, err := s.aggregate(ctx, query.Cities, query.Units)

	if err != nil {
		return nil, err
	}

	report := &domain.WeatherReport{Items: items}

	if upload {
		if url, err := s.uploadCSV(ctx, items, query.Units); err != nil {
			// Uploads are best-effort: the report is still served, just
			// without a csv_url.
			s.logger.Warn("csv upload failed",
				zap.String("units", string(query.Units)),
				zap.Error(err))
		} else {
			report.CSVURL = url
		}
	}

	s.saveLog(ctx, query, meta, report, upload)

	s.logger.Info("weather aggregated",
		zap.Int("cities", len(query.Cities)),
		zap.String("units", string(query.Units)),
		zap.Bool("upload", upload))

	return report, nil
}

// aggregate serves each city from the cache where possible and fetches the
// rest concurrently. Results keep the input order: every fetch writes into
// the slot reserved for its city, so no slot is written twice. A single
// failed city fails the whole batch and cancels its siblings.
func (s *weatherService) aggregate(ctx context.Context, cities []string, units domain.Units) ([]domain.WeatherItem, error) {
	items := make([]domain.WeatherItem, len(cities))

	type fetchJob struct {
		idx  int
		city string
	}

	var misses []fetchJob

	for i, city := range cities {
		item, err := s.cache.Get(ctx, city, units)

		if err == nil {
			items[i] = *item
			continue
		}

		if !errors.Is(err, ports.ErrCacheMiss) {
			s.logger.Warn("cache lookup failed",
				zap.String("city", city),
				zap.Error(err))
		}

		misses = append(misses, fetchJob{idx: i, city: city})
	}

	s.logger.Debug("cache partition",
		zap.Int("hits", len(cities)-len(misses)),
		zap.Int("misses", len(misses)))

	if len(misses) == 0 {
		return items, nil
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, job := range misses {
		job := job

		g.Go(func() error {
			item, err := s.fetchCity(gctx, job.city, units)

			if err != nil {
				return err
			}

			items[job.idx] = *item

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return items, nil
}

// fetchCity resolves coordinates, fetches conditions and caches the
// normalized result. Cache writes are best-effort.
func (s *weatherService) fetchCity(ctx context.Context, city string, units domain.Units) (*domain.WeatherItem, error) {
	lat, lon, err := s.geocoder.Resolve(ctx, city)

	if err != nil {
		s.logger.Error("failed to resolve city",
			zap.String("city", city),
			zap.Error(err))

		return nil, err
	}

	obs, err := s.forecasts.FetchCurrent(ctx, lat, lon, units)

	if err != nil {
		s.logger.Error("failed to fetch conditions",
			zap.String("city", city),
			zap.Float64("latitude", lat),
			zap.Float64("longitude", lon),
			zap.Error(err))

		return nil, err
	}

	item := Normalize(city, obs)

	if err := s.cache.Set(ctx, city, units, item); err != nil {
		s.logger.Warn("cache store failed",
			zap.String("city", city),
			zap.Error(err))
	}

	return &item, nil
}

func (s *weatherService) uploadCSV(ctx context.Context, items []domain.WeatherItem, units domain.Units) (string, error) {
	if s.store == nil {
		return "", errors.New("object store is not configured")
	}

	body, err := export.MarshalCSV(items)

	if err != nil {
		return "", fmt.Errorf("failed to render csv: %w", err)
	}

	key := fmt.Sprintf("reports/weather_%s.csv", units)

	return s.store.Upload(ctx, key, body, "text/csv")
}

// saveLog persists the served request. Failures are logged and swallowed so
// a broken log store never breaks the weather path.
func (s *weatherService) saveLog(ctx context.Context, query domain.WeatherQuery, meta domain.RequestMeta, report *domain.WeatherReport, upload bool) {
	if s.logs == nil {
		return
	}

	data := map[string]interface{}{
		"items": report.Items,
	}

	if upload {
		data["csv_url"] = report.CSVURL
	}

	entry := domain.RequestLog{
		UserAgent: meta.UserAgent,
		Host:      meta.Host,
		Params: map[string]interface{}{
			"cities": query.Cities,
			"units":  string(query.Units),
		},
		Data: data,
	}

	if err := s.logs.SaveLog(ctx, entry); err != nil {
		s.logger.Warn("request log write failed", zap.Error(err))
	}
}

func (s *weatherService) QueryLogs(ctx context.Context, start, end time.Time) ([]domain.RequestLog, error) {
	if s.logs == nil {
		return nil, &domain.WeatherError{
			Code:    domain.ErrCodeInternal,
			Message: "request log store is not configured",
		}
	}

	logs, err := s.logs.QueryLogs(ctx, start, end)

	if err != nil {
		s.logger.Error("failed to query request logs", zap.Error(err))

		return nil, &domain.WeatherError{
			Code:    domain.ErrCodeInternal,
			Message: "failed to query request logs",
			Cause:   err,
		}
	}

	return logs, nil
}
