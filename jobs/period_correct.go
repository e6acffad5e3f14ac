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
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/rates"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

const (
	// TaskPeriodCorrect rewrites the frozen rates of an archived period.
	TaskPeriodCorrect = "periods:correct"
)

// PeriodCorrectPayload carries a retroactive rate correction. The actor fields
// identify who requested the correction at the API surface; the capability
// check already happened there.
type PeriodCorrectPayload struct {
	Period    string    `json:"period"`
	Rates     rates.Set `json:"rates"`
	ActorID   int64     `json:"actor_id"`
	ActorName string    `json:"actor_name"`
	ModelIDs  []int64   `json:"model_ids,omitempty"`
}

// CorrectionService describes the behaviour required to correct archived rates.
type CorrectionService interface {
	CorrectPeriodRates(ctx context.Context, in closure.CorrectionInput) (closure.CorrectionResult, error)
}

// PeriodCorrectJob coordinates the correction workflow.
type PeriodCorrectJob struct {
	Service CorrectionService
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewPeriodCorrectJob constructs the job handler.
func NewPeriodCorrectJob(service CorrectionService, logger *slog.Logger, metrics *jobmetrics.Metrics) *PeriodCorrectJob {
	return &PeriodCorrectJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// NewPeriodCorrectTask creates an Asynq task for a retroactive rate correction.
func NewPeriodCorrectTask(payload PeriodCorrectPayload) (*asynq.Task, error) {
	if payload.Period == "" {
		return nil, errors.New("period correct: period required")
	}
	if err := payload.Rates.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPeriodCorrect, body, asynq.Queue(QueueDefault)), nil
}

// Handle executes the period correction job.
func (j *PeriodCorrectJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("period correct: dependencies not configured")
	}
	var payload PeriodCorrectPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskPeriodCorrect)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	period, err := shared.ParsePeriod(payload.Period)
	if err != nil {
		j.log().Error("resolve period", slog.String("period", payload.Period), slog.Any("error", err))
		resultErr = err
		return asynq.SkipRetry
	}

	start := j.now()
	result, err := j.Service.CorrectPeriodRates(ctx, closure.CorrectionInput{
		Period:   period,
		NewRates: payload.Rates,
		Actor: shared.Actor{
			ID:           payload.ActorID,
			Name:         payload.ActorName,
			Capabilities: []string{shared.CapClosureEdit},
		},
		ModelFilter: payload.ModelIDs,
	})
	if err != nil {
		resultErr = err
		j.log().Error("correct period rates", slog.String("period", period.String()), slog.Any("error", err))
		return resultErr
	}

	j.log().Info("period rates corrected",
		slog.String("period", period.String()),
		slog.Int("updated", result.UpdatedCount),
		slog.Int("candidates", result.TotalCandidates),
		slog.Int("failed", len(result.Errors)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *PeriodCorrectJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *PeriodCorrectJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPeriodCorrect))
	}
	return slog.Default().With(slog.String("job", TaskPeriodCorrect))
}

func (j *PeriodCorrectJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *PeriodCorrectJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
