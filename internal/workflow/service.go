// Package workflow composes the feedback loop with persistence, events,
// metrics, and the downstream render/publish stages. This is the only
// package that knows about all of them; the loop core stays pure.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/veldt-labs/shortcycle/internal/db"
	"github.com/veldt-labs/shortcycle/internal/events"
	"github.com/veldt-labs/shortcycle/internal/logging"
	"github.com/veldt-labs/shortcycle/internal/loop"
	"github.com/veldt-labs/shortcycle/internal/metadata"
	"github.com/veldt-labs/shortcycle/internal/metrics"
	"github.com/veldt-labs/shortcycle/internal/models"
	"github.com/veldt-labs/shortcycle/internal/producer"
	"github.com/veldt-labs/shortcycle/internal/uploader"
)

// Params wires a Service. Runs, Proposer, and Reviewer are required; the
// rest are optional stages and sinks.
type Params struct {
	Runs      *db.RunRepository
	Publisher events.Publisher
	Metrics   *metrics.Metrics

	Proposer loop.Proposer
	Reviewer loop.Reviewer
	Enricher metadata.Enricher
	Producer producer.Producer
	Uploader uploader.Uploader

	MaxAttempts int
	Constraints models.Constraints
	Privacy     string
}

// Service runs the full pipeline: negotiate a storyboard, enrich metadata,
// render, publish, and record everything that happened.
type Service struct {
	runs      *db.RunRepository
	publisher events.Publisher
	metrics   *metrics.Metrics

	proposer loop.Proposer
	reviewer loop.Reviewer
	enricher metadata.Enricher
	producer producer.Producer
	uploader uploader.Uploader

	maxAttempts int
	constraints models.Constraints
	privacy     string

	logger zerolog.Logger
}

// NewService validates the params and builds a service.
func NewService(p Params) (*Service, error) {
	if p.Runs == nil {
		return nil, errors.New("run repository is required")
	}
	if p.Proposer == nil || p.Reviewer == nil {
		return nil, errors.New("proposer and reviewer are required")
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = loop.DefaultMaxAttempts
	}
	if p.Publisher == nil {
		p.Publisher = events.NewInMemoryPublisher()
	}

	return &Service{
		runs:        p.Runs,
		publisher:   p.Publisher,
		metrics:     p.Metrics,
		proposer:    p.Proposer,
		reviewer:    p.Reviewer,
		enricher:    p.Enricher,
		producer:    p.Producer,
		uploader:    p.Uploader,
		maxAttempts: p.MaxAttempts,
		constraints: p.Constraints,
		privacy:     uploader.NormalizePrivacy(p.Privacy),
		logger:      logging.Component("workflow"),
	}, nil
}

// RunPipeline executes the whole pipeline for one topic. The returned run
// always reflects the persisted terminal state; the error reports what cut
// the pipeline short, if anything.
func (s *Service) RunPipeline(ctx context.Context, topic string) (*models.Run, error) {
	started := time.Now()

	run := &models.Run{
		Topic:       topic,
		Status:      models.RunStatusRunning,
		MaxAttempts: s.maxAttempts,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run record: %w", err)
	}

	logger := s.logger.With().Str("run_id", run.ID).Str("topic", topic).Logger()
	ctx = logging.WithContext(ctx, logger)

	s.publisher.Publish(ctx, events.NewRunEvent(run.ID, models.EventTypeRunStarted, nil))

	controller := loop.NewController(
		&observedProposer{next: s.proposer, service: s, runID: run.ID, topic: topic},
		&observedReviewer{next: s.reviewer, service: s, runID: run.ID},
		nil,
		loop.Config{MaxAttempts: s.maxAttempts, Constraints: s.constraints},
	)

	result, loopErr := controller.Run(ctx, topic)
	if loopErr != nil {
		return s.finishUnapproved(ctx, run, loopErr, started)
	}

	s.persistRounds(ctx, run.ID, result.History)
	run.Attempts = result.Attempts
	run.ApprovedPrompt = result.ApprovedCandidate
	run.FinalScore = result.FinalScore

	meta, enriched := metadata.EnrichOrFallback(ctx, s.enricher, topic, result.ApprovedCandidate)
	run.Metadata = &meta
	metaEvent := models.EventTypeMetadataEnriched
	if !enriched {
		metaEvent = models.EventTypeMetadataDefault
	}
	s.publisher.Publish(ctx, events.NewRunEvent(run.ID, metaEvent, meta))

	if err := s.renderAndPublish(ctx, run); err != nil {
		return s.failRun(ctx, run, err, started)
	}

	now := time.Now().UTC()
	run.Status = models.RunStatusApproved
	run.FinishedAt = &now
	if err := s.runs.Update(ctx, run); err != nil {
		logger.Error().Err(err).Msg("persisting approved run failed")
	}

	s.publisher.Publish(ctx, events.NewRunEvent(run.ID, models.EventTypeRunApproved, models.RunFinishedPayload{
		Status:     models.RunStatusApproved,
		Attempts:   run.Attempts,
		FinalScore: run.FinalScore,
	}))
	if s.metrics != nil {
		s.metrics.ObserveRun(models.RunStatusApproved, run.Attempts, time.Since(started))
	}

	logger.Info().Int("attempts", run.Attempts).Int("score", run.FinalScore).Msg("run approved")
	return run, nil
}

// renderAndPublish runs the optional produce and upload stages.
func (s *Service) renderAndPublish(ctx context.Context, run *models.Run) error {
	if s.producer == nil {
		return nil
	}

	render, err := s.producer.Produce(ctx, run.ApprovedPrompt, s.constraints)
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	run.VideoPath = render.VideoPath
	s.publisher.Publish(ctx, events.NewRunEvent(run.ID, models.EventTypeVideoRendered, map[string]string{
		"video_path": render.VideoPath,
	}))

	if s.uploader == nil {
		return nil
	}

	meta := models.Metadata{}
	if run.Metadata != nil {
		meta = *run.Metadata
	}
	upload, err := s.uploader.Upload(ctx, render.VideoPath, meta, s.privacy)
	if s.metrics != nil {
		s.metrics.ObserveUpload(err == nil)
	}
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	run.WatchURL = upload.WatchURL
	s.publisher.Publish(ctx, events.NewRunEvent(run.ID, models.EventTypeVideoUploaded, map[string]string{
		"watch_url": upload.WatchURL,
	}))
	return nil
}

// finishUnapproved records a loop that ended without an approval, keeping
// exhaustion and collaborator failure distinguishable.
func (s *Service) finishUnapproved(ctx context.Context, run *models.Run, loopErr error, started time.Time) (*models.Run, error) {
	var exhausted *loop.ExhaustedError
	if errors.As(loopErr, &exhausted) {
		s.persistRounds(ctx, run.ID, exhausted.History)
		run.Attempts = len(exhausted.History)

		now := time.Now().UTC()
		run.Status = models.RunStatusExhausted
		run.Error = loopErr.Error()
		run.FinishedAt = &now
		if err := s.runs.Update(ctx, run); err != nil {
			s.logger.Error().Err(err).Str("run_id", run.ID).Msg("persisting exhausted run failed")
		}

		s.publisher.Publish(ctx, events.NewRunEvent(run.ID, models.EventTypeRunExhausted, models.RunFinishedPayload{
			Status:   models.RunStatusExhausted,
			Attempts: run.Attempts,
			Error:    loopErr.Error(),
		}))
		if s.metrics != nil {
			s.metrics.ObserveRun(models.RunStatusExhausted, run.Attempts, time.Since(started))
		}
		return run, loopErr
	}

	var collab *loop.CollaboratorError
	if errors.As(loopErr, &collab) {
		s.persistRounds(ctx, run.ID, collab.History)
		run.Attempts = collab.Round
		if s.metrics != nil {
			s.metrics.ObserveCollaboratorError(string(collab.Role))
		}
	}
	return s.failRun(ctx, run, loopErr, started)
}

// failRun records a terminal failure.
func (s *Service) failRun(ctx context.Context, run *models.Run, cause error, started time.Time) (*models.Run, error) {
	now := time.Now().UTC()
	run.Status = models.RunStatusFailed
	run.Error = cause.Error()
	run.FinishedAt = &now
	if err := s.runs.Update(ctx, run); err != nil {
		s.logger.Error().Err(err).Str("run_id", run.ID).Msg("persisting failed run failed")
	}

	s.publisher.Publish(ctx, events.NewRunEvent(run.ID, models.EventTypeRunFailed, models.RunFinishedPayload{
		Status:   models.RunStatusFailed,
		Attempts: run.Attempts,
		Error:    cause.Error(),
	}))
	if s.metrics != nil {
		s.metrics.ObserveRun(models.RunStatusFailed, run.Attempts, time.Since(started))
	}
	return run, cause
}

func (s *Service) persistRounds(ctx context.Context, runID string, history []models.Round) {
	for _, round := range history {
		if err := s.runs.AppendRound(ctx, runID, round); err != nil {
			s.logger.Error().Err(err).Str("run_id", runID).Int("iteration", round.Iteration).
				Msg("persisting round failed")
		}
	}
}

// observedProposer publishes a round.proposed event for each candidate.
type observedProposer struct {
	next    loop.Proposer
	service *Service
	runID   string
	topic   string
	round   int
}

func (p *observedProposer) Propose(ctx context.Context, topic, input, priorFeedback string) (string, error) {
	p.round++
	candidate, err := p.next.Propose(ctx, topic, input, priorFeedback)
	if err != nil {
		return "", err
	}
	p.service.publisher.Publish(ctx, events.NewRunEvent(p.runID, models.EventTypeRoundProposed, models.RoundProposedPayload{
		Iteration:      p.round,
		CandidateChars: len(candidate),
		Revision:       input != topic,
	}))
	return candidate, nil
}

// observedReviewer publishes a round.reviewed event and feeds the verdict
// metric for each judgment.
type observedReviewer struct {
	next    loop.Reviewer
	service *Service
	runID   string
	round   int
}

func (r *observedReviewer) Review(ctx context.Context, candidate string, constraints models.Constraints) (models.Judgment, error) {
	r.round++
	judgment, err := r.next.Review(ctx, candidate, constraints)
	if err != nil {
		return models.Judgment{}, err
	}
	r.service.publisher.Publish(ctx, events.NewRunEvent(r.runID, models.EventTypeRoundReviewed, models.RoundReviewedPayload{
		Iteration: r.round,
		Status:    judgment.Status,
		Score:     judgment.Score,
		Feedback:  judgment.Feedback,
	}))
	if r.service.metrics != nil {
		r.service.metrics.ObserveRound(judgment.Status)
	}
	return judgment, nil
}
