package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/veldt-labs/shortcycle/internal/db"
	"github.com/veldt-labs/shortcycle/internal/models"
)

var (
	runsStatus string
	runsLimit  int
	showEvents bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded pipeline runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		var status *models.RunStatus
		if runsStatus != "" {
			s := models.RunStatus(runsStatus)
			status = &s
		}

		runs, err := db.NewRunRepository(database).List(cmd.Context(), status, runsLimit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTOPIC\tSTATUS\tATTEMPTS\tSCORE\tCREATED")
		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d\t%s\n",
				shortID(run.ID),
				truncate(run.Topic, 40),
				run.Status,
				run.Attempts,
				run.MaxAttempts,
				run.FinalScore,
				run.CreatedAt.Format("2006-01-02 15:04"),
			)
		}
		return w.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run with its negotiation rounds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		repo := db.NewRunRepository(database)
		run, err := repo.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintf(w, "ID:\t%s\n", run.ID)
		fmt.Fprintf(w, "Topic:\t%s\n", run.Topic)
		fmt.Fprintf(w, "Status:\t%s\n", run.Status)
		fmt.Fprintf(w, "Attempts:\t%d/%d\n", run.Attempts, run.MaxAttempts)
		fmt.Fprintf(w, "Created:\t%s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
		if run.FinishedAt != nil {
			fmt.Fprintf(w, "Finished:\t%s\n", run.FinishedAt.Format("2006-01-02 15:04:05"))
		}
		if run.Status == models.RunStatusApproved {
			fmt.Fprintf(w, "Score:\t%d\n", run.FinalScore)
		}
		if run.Metadata != nil {
			fmt.Fprintf(w, "Title:\t%s\n", run.Metadata.Title)
			fmt.Fprintf(w, "Tags:\t%s\n", strings.Join(run.Metadata.Tags, ", "))
		}
		if run.VideoPath != "" {
			fmt.Fprintf(w, "Video:\t%s\n", run.VideoPath)
		}
		if run.WatchURL != "" {
			fmt.Fprintf(w, "Watch:\t%s\n", run.WatchURL)
		}
		if run.Error != "" {
			fmt.Fprintf(w, "Error:\t%s\n", run.Error)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		rounds, err := repo.Rounds(cmd.Context(), run.ID)
		if err != nil {
			return err
		}
		if len(rounds) > 0 {
			fmt.Println("\nRounds:")
			for _, round := range rounds {
				fmt.Printf("  %d. %s (score %d)\n", round.Iteration, round.Judgment.Status, round.Judgment.Score)
				if round.Judgment.Feedback != "" {
					fmt.Printf("     %s\n", truncate(round.Judgment.Feedback, 100))
				}
			}
		}

		if !showEvents {
			return nil
		}

		eventsList, err := db.NewEventRepository(database).ListByEntity(cmd.Context(), models.EntityTypeRun, run.ID, 100)
		if err != nil {
			return err
		}
		if len(eventsList) > 0 {
			fmt.Println("\nEvents:")
			for _, ev := range eventsList {
				fmt.Printf("  %s  %s\n", ev.Timestamp.Format("15:04:05"), ev.Type)
			}
		}
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	runsListCmd.Flags().StringVar(&runsStatus, "status", "", "filter by status (running, approved, exhausted, failed)")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to show")
	runsShowCmd.Flags().BoolVar(&showEvents, "events", false, "include the run's event history")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
