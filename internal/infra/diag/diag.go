// Package diag runs the fleet diagnostic script. The status page consumes a
// short-budget machine-readable summary; the diagnose endpoint runs the full
// check with a generous budget.
package diag

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/airglowhq/airglow-status-backend/internal/infra/probe"
)

const (
	// SummaryTimeout is deliberately short so a slow diagnostic check can
	// never hold up the status page.
	SummaryTimeout = 2 * time.Second

	// FullTimeout bounds an on-demand full diagnostic run.
	FullTimeout = 60 * time.Second
)

// Summary is the diagnostic-counts fragment.
type Summary struct {
	Available       bool     `json:"available"`
	Warnings        int      `json:"warnings"`
	Errors          int      `json:"errors"`
	WarningMessages []string `json:"warning_messages,omitempty"`
	ErrorMessages   []string `json:"error_messages,omitempty"`
}

// Result is the outcome of a full diagnostic run, mirroring what the
// diagnose endpoint returns to clients.
type Result struct {
	Success    bool   `json:"success"`
	Output     string `json:"output"`
	Error      string `json:"error,omitempty"`
	ReturnCode int    `json:"returncode"`
}

// Checker runs the diagnostic script.
type Checker struct {
	runner     probe.Runner
	scriptPath string
}

// NewChecker creates a Checker for the script at scriptPath.
func NewChecker(runner probe.Runner, scriptPath string) *Checker {
	return &Checker{runner: runner, scriptPath: scriptPath}
}

// Summarize runs the script in machine-readable mode under the short budget
// and returns the counts fragment. Any failure degrades to an unavailable
// summary.
func (c *Checker) Summarize(ctx context.Context) Summary {
	if _, err := os.Stat(c.scriptPath); err != nil {
		return Summary{}
	}

	outcome, err := c.runner.Run(ctx, SummaryTimeout, "bash", c.scriptPath, "--json")
	if err != nil {
		log.Debug().Err(err).Msg("Diagnostic summary unavailable")
		return Summary{}
	}

	return ParseSummary(outcome.Stdout)
}

// ParseSummary decodes the script's JSON mode output. When the JSON is
// unusable it falls back to counting [WARN] / [ERROR] prefixed lines.
func ParseSummary(output string) Summary {
	var payload struct {
		Warnings        int      `json:"warnings"`
		Errors          int      `json:"errors"`
		WarningMessages []string `json:"warning_messages"`
		ErrorMessages   []string `json:"error_messages"`
	}
	if err := json.Unmarshal([]byte(output), &payload); err == nil {
		return Summary{
			Available:       true,
			Warnings:        payload.Warnings,
			Errors:          payload.Errors,
			WarningMessages: payload.WarningMessages,
			ErrorMessages:   payload.ErrorMessages,
		}
	}

	return scanPrefixes(output)
}

// scanPrefixes is the fallback for script builds without the JSON mode. The
// summary only counts as available when at least one recognized report line
// is present; arbitrary output is not a diagnostic report.
func scanPrefixes(output string) Summary {
	summary := Summary{}
	recognized := 0
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "[WARN]"):
			recognized++
			summary.Warnings++
			summary.WarningMessages = append(summary.WarningMessages, strings.TrimSpace(strings.TrimPrefix(trimmed, "[WARN]")))
		case strings.HasPrefix(trimmed, "[ERROR]"):
			recognized++
			summary.Errors++
			summary.ErrorMessages = append(summary.ErrorMessages, strings.TrimSpace(strings.TrimPrefix(trimmed, "[ERROR]")))
		case strings.HasPrefix(trimmed, "[OK]"):
			recognized++
		}
	}
	summary.Available = recognized > 0
	return summary
}

// RunFull executes the full diagnostic check.
func (c *Checker) RunFull(ctx context.Context) Result {
	if _, err := os.Stat(c.scriptPath); err != nil {
		return Result{Error: "Diagnostic script not found", ReturnCode: -1}
	}

	outcome, err := c.runner.Run(ctx, FullTimeout, "bash", c.scriptPath)
	if errors.Is(err, probe.ErrTimedOut) {
		return Result{Error: "Diagnostic check timed out", ReturnCode: -1}
	}
	if err != nil {
		log.Error().Err(err).Msg("Diagnostic run failed")
		return Result{Error: "An error occurred while running diagnostics", ReturnCode: -1}
	}

	result := Result{
		Success:    outcome.ExitCode == 0,
		Output:     outcome.Stdout,
		ReturnCode: outcome.ExitCode,
	}
	if outcome.ExitCode != 0 {
		result.Error = outcome.Stderr
	}
	return result
}
