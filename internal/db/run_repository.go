package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veldt-labs/shortcycle/internal/models"
)

// Run repository errors.
var (
	ErrRunNotFound = errors.New("run not found")
	ErrInvalidRun  = errors.New("invalid run")
)

// RunRepository handles run and round persistence.
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new RunRepository.
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run. A missing ID is generated; a missing status
// defaults to running.
func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	if run.Topic == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidRun)
	}
	if run.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1", ErrInvalidRun)
	}

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Status == "" {
		run.Status = models.RunStatusRunning
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	} else {
		run.CreatedAt = run.CreatedAt.UTC()
	}

	metadataJSON, err := marshalMetadata(run.Metadata)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, topic, status, attempts, max_attempts, approved_prompt,
			final_score, error, metadata_json, video_path, watch_url,
			created_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Topic,
		string(run.Status),
		run.Attempts,
		run.MaxAttempts,
		nullString(run.ApprovedPrompt),
		run.FinalScore,
		nullString(run.Error),
		metadataJSON,
		nullString(run.VideoPath),
		nullString(run.WatchURL),
		run.CreatedAt.Format(time.RFC3339),
		nullTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of an existing run.
func (r *RunRepository) Update(ctx context.Context, run *models.Run) error {
	if run.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRun)
	}

	metadataJSON, err := marshalMetadata(run.Metadata)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE runs SET
			status = ?, attempts = ?, approved_prompt = ?, final_score = ?,
			error = ?, metadata_json = ?, video_path = ?, watch_url = ?,
			finished_at = ?
		WHERE id = ?
	`,
		string(run.Status),
		run.Attempts,
		nullString(run.ApprovedPrompt),
		run.FinalScore,
		nullString(run.Error),
		metadataJSON,
		nullString(run.VideoPath),
		nullString(run.WatchURL),
		nullTime(run.FinishedAt),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run rows affected: %w", err)
	}
	if affected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Get retrieves a run by ID.
func (r *RunRepository) Get(ctx context.Context, id string) (*models.Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, topic, status, attempts, max_attempts, approved_prompt,
		       final_score, error, metadata_json, video_path, watch_url,
		       created_at, finished_at
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

// List retrieves runs ordered newest first, optionally filtered by status.
func (r *RunRepository) List(ctx context.Context, status *models.RunStatus, limit int) ([]*models.Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, topic, status, attempts, max_attempts, approved_prompt,
		       final_score, error, metadata_json, video_path, watch_url,
		       created_at, finished_at
		FROM runs`
	args := []any{}
	if status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// AppendRound records one loop round for a run.
func (r *RunRepository) AppendRound(ctx context.Context, runID string, round models.Round) error {
	if runID == "" {
		return fmt.Errorf("%w: run id is required", ErrInvalidRun)
	}
	if round.Iteration < 1 {
		return fmt.Errorf("%w: round iteration must be at least 1", ErrInvalidRun)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rounds (run_id, iteration, candidate, status, score, feedback, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		round.Iteration,
		round.Candidate,
		string(round.Judgment.Status),
		round.Judgment.Score,
		nullString(round.Judgment.Feedback),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}
	return nil
}

// Rounds retrieves the recorded rounds of a run in iteration order.
func (r *RunRepository) Rounds(ctx context.Context, runID string) ([]models.Round, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT iteration, candidate, status, score, feedback
		FROM rounds WHERE run_id = ? ORDER BY iteration
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()

	var rounds []models.Round
	for rows.Next() {
		var round models.Round
		var status string
		var feedback sql.NullString
		if err := rows.Scan(&round.Iteration, &round.Candidate, &status, &round.Judgment.Score, &feedback); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		round.Judgment.Status = models.JudgmentStatus(status)
		round.Judgment.Feedback = feedback.String
		rounds = append(rounds, round)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rounds: %w", err)
	}
	return rounds, nil
}

func scanRun(scan func(...any) error) (*models.Run, error) {
	var run models.Run
	var status, createdAt string
	var approvedPrompt, errText, metadataJSON, videoPath, watchURL, finishedAt sql.NullString

	if err := scan(
		&run.ID,
		&run.Topic,
		&status,
		&run.Attempts,
		&run.MaxAttempts,
		&approvedPrompt,
		&run.FinalScore,
		&errText,
		&metadataJSON,
		&videoPath,
		&watchURL,
		&createdAt,
		&finishedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	run.Status = models.RunStatus(status)
	run.ApprovedPrompt = approvedPrompt.String
	run.Error = errText.String
	run.VideoPath = videoPath.String
	run.WatchURL = watchURL.String

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		run.CreatedAt = t
	}
	if finishedAt.Valid {
		if t, err := time.Parse(time.RFC3339, finishedAt.String); err == nil {
			run.FinishedAt = &t
		}
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		var meta models.Metadata
		if err := json.Unmarshal([]byte(metadataJSON.String), &meta); err != nil {
			return nil, fmt.Errorf("decode run metadata: %w", err)
		}
		run.Metadata = &meta
	}

	return &run, nil
}

func marshalMetadata(meta *models.Metadata) (*string, error) {
	if meta == nil {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode run metadata: %w", err)
	}
	s := string(data)
	return &s, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
