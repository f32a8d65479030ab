package cli

import (
	"net/http"
	"time"

	"github.com/veldt-labs/shortcycle/internal/a2a"
	"github.com/veldt-labs/shortcycle/internal/agents"
	"github.com/veldt-labs/shortcycle/internal/db"
	"github.com/veldt-labs/shortcycle/internal/events"
	"github.com/veldt-labs/shortcycle/internal/llm"
	"github.com/veldt-labs/shortcycle/internal/logging"
	"github.com/veldt-labs/shortcycle/internal/loop"
	"github.com/veldt-labs/shortcycle/internal/metadata"
	"github.com/veldt-labs/shortcycle/internal/metrics"
	"github.com/veldt-labs/shortcycle/internal/models"
	"github.com/veldt-labs/shortcycle/internal/producer"
	"github.com/veldt-labs/shortcycle/internal/uploader"
	"github.com/veldt-labs/shortcycle/internal/workflow"
)

// constraints derives the loop constraints from the loaded config.
func constraints() models.Constraints {
	return models.Constraints{
		DurationSeconds: cfg.Loop.DurationSeconds,
		Style:           cfg.Loop.Style,
	}
}

// localLLM builds the LLM client when an API key is configured.
func localLLM() (*llm.Client, error) {
	return llm.NewClient(cfg.LLM.ClientConfig())
}

// buildService composes the workflow service from config: remote agents
// where URLs are set, in-process agents otherwise.
func buildService(database *db.DB) (*workflow.Service, *metrics.Metrics, error) {
	var proposer loop.Proposer
	var reviewer loop.Reviewer
	var enricher metadata.Enricher

	needLocal := cfg.Agents.PlannerURL == "" || cfg.Agents.ReviewerURL == ""

	var client *llm.Client
	if needLocal || cfg.LLM.APIKey != "" {
		c, err := localLLM()
		if err != nil {
			if needLocal {
				return nil, nil, err
			}
			// Remote-only setups can run without a local LLM; enrichment
			// falls back to defaults.
			client = nil
		} else {
			client = c
		}
	}

	if cfg.Agents.PlannerURL != "" {
		proposer = a2a.NewRemotePlanner(a2a.NewClient(cfg.Agents.PlannerURL, cfg.Agents.TaskTimeout), constraints())
	} else {
		proposer = agents.NewPlanner(client, constraints())
	}

	if cfg.Agents.ReviewerURL != "" {
		reviewer = a2a.NewRemoteReviewer(a2a.NewClient(cfg.Agents.ReviewerURL, cfg.Agents.TaskTimeout))
	} else {
		reviewer = agents.NewReviewer(client)
	}

	if client != nil {
		enricher = agents.NewPlanner(client, constraints())
	}

	var prod producer.Producer
	if cfg.Producer.Enabled {
		if cfg.Agents.ProducerURL != "" {
			prod = producer.NewRemoteProducer(a2a.NewClient(cfg.Agents.ProducerURL, cfg.Agents.TaskTimeout), cfg.Producer.OutputDir)
		} else {
			prod = producer.NewCommandProducer(cfg.Producer.Command, cfg.Producer.OutputDir, cfg.Producer.Timeout)
		}
	}

	var up uploader.Uploader
	if cfg.Uploader.Enabled {
		if cfg.Agents.UploaderURL != "" {
			up = uploader.NewRemoteUploader(a2a.NewClient(cfg.Agents.UploaderURL, cfg.Agents.TaskTimeout))
		} else {
			up = uploader.NewDryRunUploader()
		}
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		serveMetrics(m)
	}

	publisher := events.NewInMemoryPublisher(events.WithRepository(db.NewEventRepository(database)))

	svc, err := workflow.NewService(workflow.Params{
		Runs:        db.NewRunRepository(database),
		Publisher:   publisher,
		Metrics:     m,
		Proposer:    proposer,
		Reviewer:    reviewer,
		Enricher:    enricher,
		Producer:    prod,
		Uploader:    up,
		MaxAttempts: cfg.Loop.MaxAttempts,
		Constraints: constraints(),
		Privacy:     cfg.Uploader.Privacy,
	})
	if err != nil {
		return nil, nil, err
	}
	return svc, m, nil
}

// serveMetrics exposes /metrics in the background for the lifetime of the
// process.
func serveMetrics(m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error().Err(err).Str("addr", cfg.Metrics.Addr).Msg("metrics listener failed")
		}
	}()
}
