package producer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/veldt-labs/shortcycle/internal/logging"
	"github.com/veldt-labs/shortcycle/internal/models"
)

const defaultRenderTimeout = 15 * time.Minute

// CommandProducer renders by running a user-supplied shell command. The
// prompt, duration, and output directory are passed through environment
// variables; the command prints the rendered file path as its last stdout
// line.
//
// Exposed variables:
//
//	SHORTCYCLE_PROMPT      the approved storyboard prompt
//	SHORTCYCLE_DURATION    target duration in seconds (empty when unset)
//	SHORTCYCLE_OUTPUT_DIR  directory the command should write into
type CommandProducer struct {
	command   string
	outputDir string
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewCommandProducer builds a producer around a shell command.
func NewCommandProducer(command, outputDir string, timeout time.Duration) *CommandProducer {
	if outputDir == "" {
		outputDir = "output"
	}
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	return &CommandProducer{
		command:   command,
		outputDir: outputDir,
		timeout:   timeout,
		logger:    logging.Component("producer"),
	}
}

func (p *CommandProducer) Produce(ctx context.Context, prompt string, constraints models.Constraints) (RenderResult, error) {
	if strings.TrimSpace(p.command) == "" {
		return RenderResult{}, errors.New("render command is empty")
	}
	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return RenderResult{}, fmt.Errorf("create output dir: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "bash", "-lc", p.command)
	cmd.Env = append(os.Environ(),
		"SHORTCYCLE_PROMPT="+prompt,
		"SHORTCYCLE_DURATION="+durationEnv(constraints),
		"SHORTCYCLE_OUTPUT_DIR="+p.outputDir,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	p.logger.Info().Str("output_dir", p.outputDir).Msg("running render command")

	err := cmd.Run()
	if runCtx.Err() != nil {
		return RenderResult{}, fmt.Errorf("render command timed out after %s", p.timeout)
	}
	if err != nil {
		return RenderResult{}, fmt.Errorf("render command failed (exit %d): %s", exitCodeFromError(err), firstLines(stderr.String(), 5))
	}

	videoPath := lastLine(stdout.String())
	if videoPath == "" {
		return RenderResult{}, errors.New("render command produced no output path on stdout")
	}
	if _, statErr := os.Stat(videoPath); statErr != nil {
		return RenderResult{}, fmt.Errorf("render command reported %q but the file is not readable: %w", videoPath, statErr)
	}

	return RenderResult{VideoPath: videoPath}, nil
}

func durationEnv(constraints models.Constraints) string {
	if constraints.DurationSeconds <= 0 {
		return ""
	}
	return strconv.Itoa(constraints.DurationSeconds)
}

func exitCodeFromError(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

func firstLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
