package workflow

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/veldt-labs/shortcycle/internal/models"
)

// BatchResult pairs a topic with its run outcome.
type BatchResult struct {
	Topic string
	Run   *models.Run
	Err   error
}

// RunBatch executes the pipeline for several topics with bounded
// concurrency. Individual run failures do not cancel the batch; every topic
// gets a result. Results are returned in input order.
func (s *Service) RunBatch(ctx context.Context, topics []string, concurrency int) []BatchResult {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]BatchResult, len(topics))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, topic := range topics {
		i, topic := i, topic
		g.Go(func() error {
			run, err := s.RunPipeline(ctx, topic)
			mu.Lock()
			results[i] = BatchResult{Topic: topic, Run: run, Err: err}
			mu.Unlock()
			// Per-topic errors are carried in the result, not the group.
			return nil
		})
	}

	_ = g.Wait()
	return results
}
