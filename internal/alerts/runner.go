package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/i474232898/weather-alert-notifier/internal/notify"
	"github.com/i474232898/weather-alert-notifier/internal/observability"
	"github.com/i474232898/weather-alert-notifier/internal/subscriber"
	"github.com/i474232898/weather-alert-notifier/internal/weather"
)

var (
	// ErrDirectory wraps a failure to list subscribers; it aborts the run.
	ErrDirectory = errors.New("subscriber directory unavailable")
	// ErrRunInProgress is returned when RunOnce is called while another run is executing.
	ErrRunInProgress = errors.New("alert run already in progress")
)

// Settings is the alert configuration, fixed at startup.
type Settings struct {
	Enabled                bool
	PrecipitationThreshold float64
	SevereCodes            string // raw comma-separated list; parsed every run
	ForecastHours          int
	Workers                int
	CallTimeout            time.Duration
}

// DefaultSettings mirrors the documented configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		Enabled:                true,
		PrecipitationThreshold: 20.0,
		SevereCodes:            "95,96,99",
		ForecastHours:          weather.DefaultForecastHours,
		Workers:                4,
		CallTimeout:            5 * time.Second,
	}
}

// Recorder receives every finished run summary.
type Recorder interface {
	Save(summary RunSummary)
}

// Option customises a Runner.
type Option func(*Runner)

// WithClock sets the time source used for run timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithRecorder stores finished summaries (e.g. in run history).
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// Runner executes alert evaluation passes over all subscribers.
// It keeps no state between runs apart from the in-progress flag.
type Runner struct {
	settings  Settings
	directory subscriber.Directory
	provider  weather.Provider
	sender    notify.Sender
	logger    logrus.FieldLogger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	recorder  Recorder

	running atomic.Bool
}

// NewRunner creates a Runner. Zero Workers, ForecastHours or CallTimeout fall
// back to DefaultSettings values.
func NewRunner(
	settings Settings,
	directory subscriber.Directory,
	provider weather.Provider,
	sender notify.Sender,
	logger logrus.FieldLogger,
	metrics *observability.Metrics,
	opts ...Option,
) *Runner {
	def := DefaultSettings()
	if settings.Workers <= 0 {
		settings.Workers = def.Workers
	}
	if settings.ForecastHours <= 0 {
		settings.ForecastHours = def.ForecastHours
	}
	if settings.CallTimeout <= 0 {
		settings.CallTimeout = def.CallTimeout
	}
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}

	r := &Runner{
		settings:  settings,
		directory: directory,
		provider:  provider,
		sender:    sender,
		logger:    logger.WithField("component", "alerts"),
		metrics:   metrics,
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Thresholds parses the configured severe codes and returns the thresholds
// for one run. A malformed code list is logged and treated as empty.
func (r *Runner) Thresholds() Thresholds {
	codes, err := ParseSevereCodes(r.settings.SevereCodes)
	if err != nil {
		r.logger.WithError(err).Warn("malformed severe weather codes; treating as empty")
		codes = map[int]struct{}{}
	}
	return Thresholds{
		Enabled:                r.settings.Enabled,
		SevereCodes:            codes,
		PrecipitationThreshold: r.settings.PrecipitationThreshold,
	}
}

// RunOnce performs one full evaluation pass. The returned error is non-nil
// only when the run could not start (ErrRunInProgress) or the subscriber
// directory failed (wraps ErrDirectory); per-subscriber failures are
// reported in the summary.
func (r *Runner) RunOnce(ctx context.Context) (RunSummary, error) {
	summary := RunSummary{ID: uuid.NewString(), StartedAt: r.clock.Now().UTC()}

	if !r.settings.Enabled {
		r.logger.Debug("weather alerts disabled; skipping run")
		r.metrics.Runs.WithLabelValues("disabled").Inc()
		summary.Disabled = true
		summary.FinishedAt = summary.StartedAt
		summary.tally()
		return summary, nil
	}

	if !r.running.CAS(false, true) {
		r.metrics.Runs.WithLabelValues("rejected").Inc()
		return RunSummary{}, ErrRunInProgress
	}
	defer r.running.Store(false)

	r.metrics.RunInProgress.Set(1)
	defer r.metrics.RunInProgress.Set(0)

	log := r.logger.WithField("run_id", summary.ID)
	log.Info("running weather alert check")

	thresholds := r.Thresholds()

	subs, err := r.directory.ListAll(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrDirectory, err)
		log.WithError(err).Error("weather alert run aborted")
		summary.Error = err.Error()
		r.finish(&summary, "aborted")
		return summary, err
	}

	summary.Outcomes = r.processAll(ctx, log, thresholds, subs)
	result := "completed"
	if ctx.Err() != nil {
		result = "cancelled"
	}
	r.finish(&summary, result)

	log.WithFields(logrus.Fields{
		"subscribers": len(subs),
		"sent":        summary.Counts[StatusSent],
		"not_sent":    summary.Counts[StatusNotSent],
		"no_alert":    summary.Counts[StatusNoAlert],
		"skipped":     summary.Counts[StatusSkipped],
		"failed":      summary.Counts[StatusFailed],
		"duration":    summary.Duration().String(),
	}).Info("weather alert run complete")

	return summary, nil
}

// Running reports whether a run is executing.
func (r *Runner) Running() bool {
	return r.running.Load()
}

func (r *Runner) finish(summary *RunSummary, result string) {
	summary.FinishedAt = r.clock.Now().UTC()
	summary.tally()

	r.metrics.Runs.WithLabelValues(result).Inc()
	r.metrics.RunDuration.Observe(summary.Duration().Seconds())
	r.metrics.LastRun.Set(float64(summary.FinishedAt.Unix()))
	for status, n := range summary.Counts {
		r.metrics.Outcomes.WithLabelValues(string(status)).Add(float64(n))
	}

	if r.recorder != nil {
		r.recorder.Save(*summary)
	}
}

// processAll fans subscribers out over a bounded worker pool. Each goroutine
// writes only its own slot of the result slice.
func (r *Runner) processAll(ctx context.Context, log logrus.FieldLogger, t Thresholds, subs []subscriber.Subscriber) []Outcome {
	outcomes := make([]Outcome, len(subs))
	sem := make(chan struct{}, r.settings.Workers)

	var wg sync.WaitGroup
	for i, sub := range subs {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			for j := i; j < len(subs); j++ {
				outcomes[j] = Outcome{
					SubscriberID: subs[j].ID,
					Email:        subs[j].Email,
					Status:       StatusSkipped,
					Reason:       "run cancelled",
				}
			}
			log.WithFields(logrus.Fields{"remaining": len(subs) - i, "error": ctx.Err()}).
				Warn("weather alert run cancelled; remaining subscribers skipped")
			break
		}

		wg.Add(1)
		go func(i int, sub subscriber.Subscriber) {
			defer wg.Done()
			defer func() { <-sem }()

			out := r.process(ctx, t, sub)
			outcomes[i] = out

			entry := log.WithFields(logrus.Fields{"subscriber_id": sub.ID, "email": sub.Email})
			switch out.Status {
			case StatusFailed:
				entry.WithError(out.Err).Error("failed to check/send alert")
			case StatusSkipped:
				entry.WithField("reason", out.Reason).Debug("subscriber skipped")
			}
		}(i, sub)
	}
	wg.Wait()

	return outcomes
}

// process evaluates a single subscriber. Errors and panics end up in the outcome.
func (r *Runner) process(ctx context.Context, t Thresholds, sub subscriber.Subscriber) (out Outcome) {
	out = Outcome{SubscriberID: sub.ID, Email: sub.Email}

	defer func() {
		if p := recover(); p != nil {
			out.Status = StatusFailed
			out.Err = fmt.Errorf("panic: %v", p)
			out.Reason = out.Err.Error()
		}
	}()

	fail := func(err error) Outcome {
		out.Status = StatusFailed
		out.Err = err
		out.Reason = err.Error()
		return out
	}

	if reason := sub.SkipReason(); reason != "" {
		out.Status = StatusSkipped
		out.Reason = reason
		return out
	}
	lat, lon := *sub.Latitude, *sub.Longitude

	current, err := r.fetchCurrent(ctx, lat, lon)
	if errors.Is(err, weather.ErrNoData) {
		out.Status = StatusSkipped
		out.Reason = "no current weather"
		return out
	}
	if err != nil {
		return fail(fmt.Errorf("fetch current weather: %w", err))
	}

	// A successful response without hourly data is an empty series; a failed
	// fetch fails the subscriber.
	forecast, err := r.fetchForecast(ctx, lat, lon)
	if err != nil {
		return fail(fmt.Errorf("fetch hourly forecast: %w", err))
	}

	decision := Evaluate(current, forecast, t)
	if !decision.Alert {
		out.Status = StatusNoAlert
		return out
	}
	out.Message = decision.Message

	sendCtx, cancel := context.WithTimeout(ctx, r.settings.CallTimeout)
	defer cancel()

	if r.sender.Send(sendCtx, sub.Phone, decision.Message) {
		out.Status = StatusSent
	} else {
		out.Status = StatusNotSent
		out.Reason = "sender did not accept message"
	}
	return out
}

func (r *Runner) fetchCurrent(ctx context.Context, lat, lon float64) (weather.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.settings.CallTimeout)
	defer cancel()
	return r.provider.Current(ctx, lat, lon)
}

func (r *Runner) fetchForecast(ctx context.Context, lat, lon float64) (weather.ForecastSeries, error) {
	ctx, cancel := context.WithTimeout(ctx, r.settings.CallTimeout)
	defer cancel()
	return r.provider.HourlyForecast(ctx, lat, lon, r.settings.ForecastHours)
}
