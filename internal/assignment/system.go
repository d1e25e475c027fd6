package assignment

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// System defines the public contract for bulk assignment operations.
type System interface {
	Handler(maxBodySize int64) *Handler

	// Assign validates cmd and runs it as a new batch.
	Assign(ctx context.Context, cmd Command) (*BatchReport, error)
	// Run processes requests as a new batch. observe receives each result as
	// soon as it is final.
	Run(ctx context.Context, requests []Request, observe func(Result)) (*BatchReport, error)
	// Latest returns the most recent batch, or ErrNoBatch.
	Latest() (*BatchReport, error)
	// Clear discards the most recent batch.
	Clear()
	// RetryFailed re-runs the unsuccessful items of the most recent batch.
	RetryFailed(ctx context.Context) (*BatchReport, error)
}

// BatchReport is the outcome of one batch run.
type BatchReport struct {
	ID          uuid.UUID  `json:"id"`
	RetryOf     *uuid.UUID `json:"retryOf,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt time.Time  `json:"completedAt"`
	Results     []Result   `json:"results"`
	Summary     Summary    `json:"summary"`

	requests []Request
}

// Failed returns the requests whose results were not successful, in order.
func (b *BatchReport) Failed() []Request {
	var failed []Request
	for i, r := range b.Results {
		if !r.Success && i < len(b.requests) {
			failed = append(failed, b.requests[i])
		}
	}
	return failed
}

type service struct {
	orchestrator *Orchestrator
	timeout      time.Duration
	logger       *slog.Logger

	run    sync.Mutex
	mu     sync.RWMutex
	latest *BatchReport
}

// New creates the assignment system. A positive timeout bounds each batch.
func New(cms CMS, opts Options, timeout time.Duration, logger *slog.Logger) System {
	logger = logger.With("system", "assignment")
	return &service{
		orchestrator: NewOrchestrator(cms, opts, logger),
		timeout:      timeout,
		logger:       logger,
	}
}

func (s *service) Handler(maxBodySize int64) *Handler {
	return NewHandler(s, s.logger, maxBodySize)
}

func (s *service) Assign(ctx context.Context, cmd Command) (*BatchReport, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return s.Run(ctx, cmd.Requests(), nil)
}

func (s *service) Run(ctx context.Context, requests []Request, observe func(Result)) (*BatchReport, error) {
	return s.execute(ctx, requests, observe, nil)
}

func (s *service) Latest() (*BatchReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, ErrNoBatch
	}
	return s.latest, nil
}

func (s *service) Clear() {
	s.mu.Lock()
	s.latest = nil
	s.mu.Unlock()
	s.logger.Info("latest batch cleared")
}

func (s *service) RetryFailed(ctx context.Context) (*BatchReport, error) {
	latest, err := s.Latest()
	if err != nil {
		return nil, err
	}

	failed := latest.Failed()
	if len(failed) == 0 {
		return nil, ErrNothingToRetry
	}

	id := latest.ID
	return s.execute(ctx, failed, nil, &id)
}

func (s *service) execute(
	ctx context.Context,
	requests []Request,
	observe func(Result),
	retryOf *uuid.UUID,
) (*BatchReport, error) {
	if !s.run.TryLock() {
		return nil, ErrBatchRunning
	}
	defer s.run.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report := &BatchReport{
		ID:        uuid.New(),
		RetryOf:   retryOf,
		StartedAt: time.Now().UTC(),
		requests:  slices.Clone(requests),
	}

	s.logger.Info("batch started", "batch", report.ID, "items", len(requests))

	results, err := s.orchestrator.Run(ctx, requests, observe)
	if err != nil {
		return nil, err
	}

	report.Results = results
	report.Summary = Summarize(results)
	report.CompletedAt = time.Now().UTC()

	s.mu.Lock()
	s.latest = report
	s.mu.Unlock()

	return report, nil
}
