// Package rainlog reads and writes rainfall logs through the rainlogger
// API and aggregates them into daily and monthly totals.
package rainlog

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kroma-labs/rainlogger-go/httpclient"
)

const (
	rainlogPath = "/v1/rainlogger/rainlog"
	filtersPath = rainlogPath + "/filters"
	deletePath  = rainlogPath + "/delete/"

	// Filter reads are idempotent and retried by default.
	defaultFilterRetries    = 3
	defaultFilterRetryDelay = 2 * time.Second

	defaultSummaryConcurrency = 4
)

// Service talks to the rainlogger API.
type Service struct {
	client  *httpclient.Client
	baseURL string
	logger  zerolog.Logger

	filterRetries      int
	filterRetryDelay   time.Duration
	summaryConcurrency int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithFilterRetry overrides the retry count and base delay of filter
// reads (default 3 retries, 2s).
func WithFilterRetry(retries int, delay time.Duration) Option {
	return func(s *Service) {
		s.filterRetries = retries
		s.filterRetryDelay = delay
	}
}

// WithSummaryConcurrency bounds how many locations MonthlySummary fetches
// at once.
func WithSummaryConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.summaryConcurrency = n
		}
	}
}

// NewService creates a Service against baseURL (BASE_URL_RAINLOGGER).
func NewService(client *httpclient.Client, baseURL string, opts ...Option) *Service {
	s := &Service{
		client:             client,
		baseURL:            baseURL,
		logger:             zerolog.Nop(),
		filterRetries:      defaultFilterRetries,
		filterRetryDelay:   defaultFilterRetryDelay,
		summaryConcurrency: defaultSummaryConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetRainLogs fetches the logs of a location between two dates, inclusive.
func (s *Service) GetRainLogs(
	ctx context.Context,
	dateFrom, dateTo, location string,
	realReading bool,
) (Envelope[ListData], error) {
	params := map[string]string{
		"dateFrom":    dateFrom,
		"dateTo":      dateTo,
		"location":    location,
		"realReading": strconv.FormatBool(realReading),
	}
	return s.filter(ctx, "rainlog.GetRainLogs", params)
}

// GetRainLogsByDay fetches the logs of a location on one day.
func (s *Service) GetRainLogsByDay(
	ctx context.Context,
	date, location string,
	realReading bool,
) (Envelope[ListData], error) {
	params := map[string]string{
		"date":        date,
		"location":    location,
		"realReading": strconv.FormatBool(realReading),
	}
	return s.filter(ctx, "rainlog.GetRainLogsByDay", params)
}

// Month validates f and fetches the logs of its month.
func (s *Service) Month(ctx context.Context, f MonthFilter) ([]RainLog, error) {
	if err := Validate(f); err != nil {
		return nil, err
	}
	from, to := MonthRange(f.Year, f.Month)
	env, err := s.GetRainLogs(ctx, from, to, f.Location, f.RealReading)
	if err != nil {
		return nil, err
	}
	return env.Data.RainLogs, nil
}

// Day validates f and fetches the logs of its day.
func (s *Service) Day(ctx context.Context, f DayFilter) ([]RainLog, error) {
	if err := Validate(f); err != nil {
		return nil, err
	}
	env, err := s.GetRainLogsByDay(ctx, f.Date[:len(DateLayout)], f.Location, f.RealReading)
	if err != nil {
		return nil, err
	}
	return env.Data.RainLogs, nil
}

// Create validates and stores a new log. It returns the log as stored.
func (s *Service) Create(ctx context.Context, in NewRainLog) (RainLog, error) {
	if err := Validate(in); err != nil {
		return RainLog{}, err
	}

	env, err := httpclient.Post[Envelope[ItemData]](ctx, s.client, s.baseURL, rainlogPath, in,
		httpclient.WithOperation("rainlog.Create"),
	)
	if err != nil {
		return RainLog{}, err
	}

	s.logger.Info().
		Str("id", env.Data.RainLog.ID).
		Str("location", in.Location).
		Float64("measurement", in.Measurement).
		Msg("rainlog created")
	return env.Data.RainLog, nil
}

// Update validates and applies a change to an existing log.
func (s *Service) Update(ctx context.Context, in Update) (RainLog, error) {
	if err := Validate(in); err != nil {
		return RainLog{}, err
	}

	env, err := httpclient.Put[Envelope[ItemData]](ctx, s.client, s.baseURL, rainlogPath, in,
		httpclient.WithOperation("rainlog.Update"),
	)
	if err != nil {
		return RainLog{}, err
	}

	s.logger.Info().Str("id", in.ID).Msg("rainlog updated")
	return env.Data.RainLog, nil
}

// Delete removes a log.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return &ValidationError{Errors: []FieldError{{Field: "_id", Err: ErrIDRequired}}}
	}

	_, err := httpclient.Delete[struct{}](ctx, s.client, s.baseURL, deletePath+url.PathEscape(id),
		httpclient.WithOperation("rainlog.Delete"),
	)
	if err != nil {
		return err
	}

	s.logger.Info().Str("id", id).Msg("rainlog deleted")
	return nil
}

// MonthlySummary fetches one month for several locations concurrently and
// summarizes each. Results follow the order of locations. The first
// failure cancels the remaining fetches and is returned.
func (s *Service) MonthlySummary(
	ctx context.Context,
	year int,
	month time.Month,
	locations []string,
	realReading bool,
) ([]LocationSummary, error) {
	out := make([]LocationSummary, len(locations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.summaryConcurrency)

	for i, location := range locations {
		g.Go(func() error {
			logs, err := s.Month(gctx, MonthFilter{
				Year:        year,
				Month:       month,
				Location:    location,
				RealReading: realReading,
			})
			if err != nil {
				return err
			}
			out[i] = Summarize(location, logs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) filter(ctx context.Context, op string, params map[string]string) (Envelope[ListData], error) {
	env, err := httpclient.Get[Envelope[ListData]](ctx, s.client, s.baseURL, filtersPath, params,
		httpclient.WithOperation(op),
		httpclient.WithRetries(s.filterRetries),
		httpclient.WithRetryDelay(s.filterRetryDelay),
	)
	if err != nil {
		return Envelope[ListData]{}, err
	}

	s.logger.Debug().
		Str("operation", op).
		Int("count", len(env.Data.RainLogs)).
		Msg("rainlogs fetched")
	return env, nil
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return httpclient.IsStatus(err, http.StatusNotFound)
}
