package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/veldt-labs/shortcycle/internal/logging"
	"github.com/veldt-labs/shortcycle/internal/loop"
	"github.com/veldt-labs/shortcycle/internal/models"
	"github.com/veldt-labs/shortcycle/internal/uploader"
	"github.com/veldt-labs/shortcycle/internal/workflow"
)

var (
	runMaxAttempts int
	runDuration    int
	runStyle       string
	runProduce     bool
	runUpload      bool
	runPrivacy     string
	runConcurrency int
)

var runCmd = &cobra.Command{
	Use:   "run <topic> [topic...]",
	Short: "Run the storyboard pipeline for one or more topics",
	Long: `Run drives the full pipeline for each topic: the planner drafts a
storyboard, the reviewer critiques it, and the two negotiate until the
storyboard is approved or the attempt budget runs out. Approved runs are
enriched with publishing metadata and, when enabled, rendered and uploaded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyRunFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}

		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		svc, _, err := buildService(database)
		if err != nil {
			return err
		}

		logger := logging.Component("cli")
		logger.Info().
			Int("topics", len(args)).
			Int("max_attempts", cfg.Loop.MaxAttempts).
			Int("concurrency", runConcurrency).
			Msg("starting pipeline")

		results := svc.RunBatch(cmd.Context(), args, runConcurrency)

		failed := 0
		for _, res := range results {
			printResult(res)
			if res.Err != nil {
				failed++
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d runs did not complete", failed, len(results))
		}
		return nil
	},
}

// applyRunFlags overlays explicitly set flags onto the loaded config.
func applyRunFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("max-attempts") {
		cfg.Loop.MaxAttempts = runMaxAttempts
	}
	if cmd.Flags().Changed("duration") {
		cfg.Loop.DurationSeconds = runDuration
	}
	if cmd.Flags().Changed("style") {
		cfg.Loop.Style = runStyle
	}
	if cmd.Flags().Changed("produce") {
		cfg.Producer.Enabled = runProduce
	}
	if cmd.Flags().Changed("upload") {
		cfg.Uploader.Enabled = runUpload
	}
	if cmd.Flags().Changed("privacy") {
		cfg.Uploader.Privacy = uploader.NormalizePrivacy(runPrivacy)
	}
}

// printResult writes a human-readable summary for one topic's run.
func printResult(res workflow.BatchResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "Topic:\t%s\n", res.Topic)

	if res.Run == nil {
		fmt.Fprintf(w, "Status:\tfailed\n")
		if res.Err != nil {
			fmt.Fprintf(w, "Outcome:\t%s\n", loop.Describe(nil, res.Err))
		}
		fmt.Fprintln(w)
		return
	}

	run := res.Run
	fmt.Fprintf(w, "Run:\t%s\n", run.ID)
	fmt.Fprintf(w, "Status:\t%s\n", run.Status)
	if res.Err != nil {
		fmt.Fprintf(w, "Outcome:\t%s\n", loop.Describe(nil, res.Err))
	}
	fmt.Fprintf(w, "Attempts:\t%d/%d\n", run.Attempts, run.MaxAttempts)

	switch {
	case run.Status == models.RunStatusApproved:
		fmt.Fprintf(w, "Score:\t%d\n", run.FinalScore)
		if run.Metadata != nil {
			fmt.Fprintf(w, "Title:\t%s\n", run.Metadata.Title)
		}
		if run.VideoPath != "" {
			fmt.Fprintf(w, "Video:\t%s\n", run.VideoPath)
		}
		if run.WatchURL != "" {
			fmt.Fprintf(w, "Watch:\t%s\n", run.WatchURL)
		}
	case run.Error != "":
		fmt.Fprintf(w, "Error:\t%s\n", run.Error)
	}

	fmt.Fprintln(w)
}

func init() {
	runCmd.Flags().IntVar(&runMaxAttempts, "max-attempts", 0, "maximum planner/reviewer rounds before giving up")
	runCmd.Flags().IntVar(&runDuration, "duration", 0, "target video duration in seconds")
	runCmd.Flags().StringVar(&runStyle, "style", "", "storyboard style hint")
	runCmd.Flags().BoolVar(&runProduce, "produce", false, "render approved storyboards to video")
	runCmd.Flags().BoolVar(&runUpload, "upload", false, "upload rendered videos")
	runCmd.Flags().StringVar(&runPrivacy, "privacy", "", "upload privacy (public, unlisted, private)")
	runCmd.Flags().IntVarP(&runConcurrency, "concurrency", "c", 1, "number of topics processed in parallel")

	rootCmd.AddCommand(runCmd)
}
