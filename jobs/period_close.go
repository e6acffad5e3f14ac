package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/closure"
	jobmetrics "github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/jobs"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

const (
	// TaskPeriodClose freezes an open period into the archive.
	TaskPeriodClose = "periods:close"
)

// PeriodClosePayload names the period to close, e.g. "2026-08-H1". When empty
// the job closes the period that ended right before the run.
type PeriodClosePayload struct {
	Period string `json:"period"`
}

// CloseService describes the behaviour required to archive a period.
type CloseService interface {
	ClosePeriod(ctx context.Context, period shared.Period) (closure.Manifest, error)
}

// PeriodCloseJob coordinates the closure workflow.
type PeriodCloseJob struct {
	Service CloseService
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewPeriodCloseJob constructs the job handler.
func NewPeriodCloseJob(service CloseService, logger *slog.Logger, metrics *jobmetrics.Metrics) *PeriodCloseJob {
	return &PeriodCloseJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// NewPeriodCloseTask creates an Asynq task that archives the given period.
func NewPeriodCloseTask(period string) (*asynq.Task, error) {
	body, err := json.Marshal(PeriodClosePayload{Period: period})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPeriodClose, body, asynq.Queue(QueueDefault)), nil
}

// Handle executes the period close job.
func (j *PeriodCloseJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("period close: dependencies not configured")
	}
	var payload PeriodClosePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskPeriodClose)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	period, err := j.resolvePeriod(payload.Period)
	if err != nil {
		// A malformed period never becomes valid on retry.
		j.log().Error("resolve period", slog.String("period", payload.Period), slog.Any("error", err))
		resultErr = err
		return asynq.SkipRetry
	}

	start := j.now()
	manifest, err := j.Service.ClosePeriod(ctx, period)
	if err != nil {
		if errors.Is(err, closure.ErrClosureInProgress) {
			j.log().Info("closure already running", slog.String("period", period.String()))
			return nil
		}
		resultErr = err
		j.log().Error("close period", slog.String("period", period.String()), slog.Any("error", err))
		return resultErr
	}

	j.metrics().AddArchived("archived", manifest.Records)
	j.metrics().AddArchived("skipped", len(manifest.Skipped))
	j.log().Info("period archived",
		slog.String("period", period.String()),
		slog.Int("models", len(manifest.Archived)),
		slog.Int("records", manifest.Records),
		slog.Int("skipped", len(manifest.Skipped)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

// resolvePeriod parses the payload period, falling back to the period that
// contained yesterday. Scheduled on the 1st and 16th that is the half that
// just ended.
func (j *PeriodCloseJob) resolvePeriod(raw string) (shared.Period, error) {
	if raw != "" {
		return shared.ParsePeriod(raw)
	}
	return shared.PeriodContaining(j.now().AddDate(0, 0, -1)), nil
}

func (j *PeriodCloseJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *PeriodCloseJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPeriodClose))
	}
	return slog.Default().With(slog.String("job", TaskPeriodClose))
}

func (j *PeriodCloseJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *PeriodCloseJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
