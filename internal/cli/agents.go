package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/veldt-labs/shortcycle/internal/a2a"
	"github.com/veldt-labs/shortcycle/internal/agents"
	"github.com/veldt-labs/shortcycle/internal/models"
	"github.com/veldt-labs/shortcycle/internal/producer"
	"github.com/veldt-labs/shortcycle/internal/uploader"
)

var agentAddr string

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Run and inspect standalone pipeline agents",
}

var agentsServeCmd = &cobra.Command{
	Use:   "serve [planner|reviewer|producer|uploader...]",
	Short: "Serve pipeline roles as standalone HTTP agents",
	Long: `Serve exposes pipeline roles over the agent protocol so the
orchestrator can run against remote agents instead of in-process ones.
Each agent publishes its card at /a2a/agent_card and accepts tasks at
/a2a/tasks. With no arguments, every role that is configured gets served.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		roles := args
		if len(roles) == 0 {
			roles = []string{"planner", "reviewer", "uploader"}
			if cfg.Producer.Command != "" {
				roles = append(roles, "producer")
			}
		}
		if agentAddr != "" && len(roles) > 1 {
			return fmt.Errorf("--addr only applies when serving a single role")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		for _, arg := range roles {
			role := strings.ToLower(arg)
			server, addr, err := buildAgentServer(role)
			if err != nil {
				return err
			}
			if agentAddr != "" {
				addr = agentAddr
			}

			fmt.Printf("Serving %s agent on %s\n", role, addr)
			g.Go(func() error {
				return server.ListenAndServe(ctx, addr)
			})
		}
		return g.Wait()
	},
}

var agentsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Health-check the configured remote agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		targets := []struct {
			role string
			url  string
		}{
			{"planner", cfg.Agents.PlannerURL},
			{"reviewer", cfg.Agents.ReviewerURL},
			{"producer", cfg.Agents.ProducerURL},
			{"uploader", cfg.Agents.UploaderURL},
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "ROLE\tURL\tSTATUS")
		for _, t := range targets {
			if t.url == "" {
				fmt.Fprintf(w, "%s\t-\tlocal\n", t.role)
				continue
			}
			client := a2a.NewClient(t.url, 10*time.Second)
			status := "unreachable"
			if client.Health(cmd.Context()) {
				status = "healthy"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.role, t.url, status)
		}
		return w.Flush()
	},
}

// buildAgentServer assembles the card and task handler for one role.
func buildAgentServer(role string) (*a2a.Server, string, error) {
	switch role {
	case "planner":
		client, err := localLLM()
		if err != nil {
			return nil, "", err
		}
		card := a2a.NewAgentCard(
			"shortcycle-planner",
			"Drafts vertical video storyboards and revises them from reviewer feedback",
			"",
			a2a.AgentSkill{ID: a2a.SkillPlan, Name: "Plan storyboard", Description: "Generate or revise a video storyboard for a topic"},
		)
		return a2a.NewServer(card, plannerHandler(client)), ":8301", nil

	case "reviewer":
		client, err := localLLM()
		if err != nil {
			return nil, "", err
		}
		card := a2a.NewAgentCard(
			"shortcycle-reviewer",
			"Reviews storyboards against format, duration, and atmosphere requirements",
			"",
			a2a.AgentSkill{ID: a2a.SkillReview, Name: "Review storyboard", Description: "Judge a storyboard and return a verdict with feedback"},
		)
		return a2a.NewServer(card, reviewerHandler(client)), ":8302", nil

	case "producer":
		if cfg.Producer.Command == "" {
			return nil, "", fmt.Errorf("producer agent requires producer.command in config")
		}
		card := a2a.NewAgentCard(
			"shortcycle-producer",
			"Renders approved storyboards into video files",
			"",
			a2a.AgentSkill{ID: a2a.SkillProduce, Name: "Produce video", Description: "Render a storyboard prompt to a video file"},
		)
		return a2a.NewServer(card, producerHandler()), ":8303", nil

	case "uploader":
		card := a2a.NewAgentCard(
			"shortcycle-uploader",
			"Publishes rendered videos with their metadata",
			"",
			a2a.AgentSkill{ID: a2a.SkillUpload, Name: "Upload video", Description: "Upload a rendered video with publish metadata"},
		)
		return a2a.NewServer(card, uploaderHandler()), ":8304", nil

	default:
		return nil, "", fmt.Errorf("unknown agent role %q (want planner, reviewer, producer, or uploader)", role)
	}
}

func plannerHandler(client agents.Completer) a2a.TaskHandler {
	return func(ctx context.Context, task a2a.Task) (map[string]any, error) {
		topic := taskString(task, "topic")
		if topic == "" {
			return nil, fmt.Errorf("task input missing topic")
		}

		constraints := constraints()
		if d := taskInt(task, "video_duration"); d > 0 {
			constraints.DurationSeconds = d
		}

		input := topic
		if feedback := taskString(task, "feedback"); feedback != "" {
			input = feedback
		}

		planner := agents.NewPlanner(client, constraints)
		prompt, err := planner.Propose(ctx, topic, input, "")
		if err != nil {
			return nil, err
		}
		return map[string]any{"prompt": prompt}, nil
	}
}

func reviewerHandler(client agents.Completer) a2a.TaskHandler {
	return func(ctx context.Context, task a2a.Task) (map[string]any, error) {
		prompt := taskString(task, "prompt")
		if prompt == "" {
			return nil, fmt.Errorf("task input missing prompt")
		}

		constraints := constraints()
		if d := taskInt(task, "expected_duration"); d > 0 {
			constraints.DurationSeconds = d
		}

		judgment, err := agents.NewReviewer(client).Review(ctx, prompt, constraints)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"status":   string(judgment.Status),
			"feedback": judgment.Feedback,
			"score":    judgment.Score,
		}, nil
	}
}

func producerHandler() a2a.TaskHandler {
	return func(ctx context.Context, task a2a.Task) (map[string]any, error) {
		prompt := taskString(task, "prompt")
		if prompt == "" {
			return nil, fmt.Errorf("task input missing prompt")
		}

		outputDir := cfg.Producer.OutputDir
		if dir := taskString(task, "output_dir"); dir != "" {
			outputDir = dir
		}

		constraints := constraints()
		if d := taskInt(task, "video_duration"); d > 0 {
			constraints.DurationSeconds = d
		}

		prod := producer.NewCommandProducer(cfg.Producer.Command, outputDir, cfg.Producer.Timeout)
		result, err := prod.Produce(ctx, prompt, constraints)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"video_path":          result.VideoPath,
			"original_video_path": result.SourcePath,
		}, nil
	}
}

func uploaderHandler() a2a.TaskHandler {
	return func(ctx context.Context, task a2a.Task) (map[string]any, error) {
		videoPath := taskString(task, "video_path")
		if videoPath == "" {
			return nil, fmt.Errorf("task input missing video_path")
		}

		meta := models.Metadata{}
		if raw, ok := task.Input["youtube_metadata"].(map[string]any); ok {
			if v, ok := raw["title"].(string); ok {
				meta.Title = v
			}
			if v, ok := raw["description"].(string); ok {
				meta.Description = v
			}
			if tags, ok := raw["tags"].([]any); ok {
				for _, tag := range tags {
					if s, ok := tag.(string); ok {
						meta.Tags = append(meta.Tags, s)
					}
				}
			}
		}

		privacy := uploader.NormalizePrivacy(taskString(task, "privacy_status"))

		result, err := uploader.NewDryRunUploader().Upload(ctx, videoPath, meta, privacy)
		if err != nil {
			return nil, err
		}
		return map[string]any{"youtube_url": result.WatchURL}, nil
	}
}

func taskString(task a2a.Task, key string) string {
	if v, ok := task.Input[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func taskInt(task a2a.Task, key string) int {
	switch v := task.Input[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func init() {
	agentsServeCmd.Flags().StringVar(&agentAddr, "addr", "", "listen address (defaults per role)")

	agentsCmd.AddCommand(agentsServeCmd)
	agentsCmd.AddCommand(agentsStatusCmd)
	rootCmd.AddCommand(agentsCmd)
}
