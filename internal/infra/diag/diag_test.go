package diag

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/airglowhq/airglow-status-backend/internal/infra/probe"
)

type fakeRunner struct {
	outcome probe.Outcome
	err     error
	args    []string
}

func (f *fakeRunner) Run(ctx context.Context, timeout time.Duration, command string, args ...string) (probe.Outcome, error) {
	f.args = append([]string{command}, args...)
	return f.outcome, f.err
}

func writeScript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "diagnose.sh")
	if err := os.WriteFile(path, []byte("#!/bin/bash\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseSummary_JSONMode(t *testing.T) {
	got := ParseSummary(`{"warnings": 2, "errors": 1, "warning_messages": ["a", "b"], "error_messages": ["c"]}`)

	want := Summary{
		Available:       true,
		Warnings:        2,
		Errors:          1,
		WarningMessages: []string{"a", "b"},
		ErrorMessages:   []string{"c"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseSummary = %+v, want %+v", got, want)
	}
}

func TestParseSummary_PrefixFallback(t *testing.T) {
	output := `Checking containers...
[WARN] ledfx audio device not configured
[ERROR] shairport-sync container not running
[WARN] no active streams
done
`
	got := ParseSummary(output)

	if !got.Available {
		t.Error("Available = false")
	}
	if got.Warnings != 2 || got.Errors != 1 {
		t.Errorf("counts = (%d warnings, %d errors), want (2, 1)", got.Warnings, got.Errors)
	}
	if got.ErrorMessages[0] != "shairport-sync container not running" {
		t.Errorf("ErrorMessages[0] = %q", got.ErrorMessages[0])
	}
}

func TestParseSummary_EmptyOutput(t *testing.T) {
	got := ParseSummary("")
	if got.Available {
		t.Error("Available = true for empty output")
	}
}

func TestParseSummary_UnrecognizedOutputUnavailable(t *testing.T) {
	got := ParseSummary("bash: /usr/local/lib/fleet.sh: No such file or directory\n")
	if got.Available {
		t.Error("Available = true for output with no report lines")
	}
	if got.Warnings != 0 || got.Errors != 0 {
		t.Errorf("counts = (%d, %d), want (0, 0)", got.Warnings, got.Errors)
	}
}

func TestParseSummary_CleanRunWithOKLines(t *testing.T) {
	got := ParseSummary("[OK] containers running\n[OK] avahi reachable\n")
	if !got.Available {
		t.Error("Available = false for a clean report")
	}
	if got.Warnings != 0 || got.Errors != 0 {
		t.Errorf("counts = (%d, %d), want (0, 0)", got.Warnings, got.Errors)
	}
}

func TestSummarize_ScriptMissing(t *testing.T) {
	runner := &fakeRunner{}
	c := NewChecker(runner, filepath.Join(t.TempDir(), "missing.sh"))

	got := c.Summarize(context.Background())
	if got.Available {
		t.Error("Available = true for missing script")
	}
	if runner.args != nil {
		t.Error("runner was invoked for a missing script")
	}
}

func TestSummarize_TimeoutDegrades(t *testing.T) {
	runner := &fakeRunner{err: probe.ErrTimedOut}
	c := NewChecker(runner, writeScript(t))

	got := c.Summarize(context.Background())
	if got.Available {
		t.Error("Available = true after timeout")
	}
}

func TestSummarize_PassesJSONFlag(t *testing.T) {
	runner := &fakeRunner{outcome: probe.Outcome{Stdout: `{"warnings":0,"errors":0}`}}
	script := writeScript(t)
	c := NewChecker(runner, script)

	c.Summarize(context.Background())
	want := []string{"bash", script, "--json"}
	if !reflect.DeepEqual(runner.args, want) {
		t.Errorf("invoked %v, want %v", runner.args, want)
	}
}

func TestRunFull(t *testing.T) {
	tests := []struct {
		name    string
		outcome probe.Outcome
		err     error
		want    Result
	}{
		{
			name:    "success",
			outcome: probe.Outcome{Stdout: "all good\n"},
			want:    Result{Success: true, Output: "all good\n"},
		},
		{
			name:    "failure carries stderr",
			outcome: probe.Outcome{ExitCode: 2, Stdout: "partial", Stderr: "broken"},
			want:    Result{Output: "partial", Error: "broken", ReturnCode: 2},
		},
		{
			name: "timeout",
			err:  probe.ErrTimedOut,
			want: Result{Error: "Diagnostic check timed out", ReturnCode: -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{outcome: tt.outcome, err: tt.err}
			c := NewChecker(runner, writeScript(t))

			got := c.RunFull(context.Background())
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("RunFull = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRunFull_ScriptMissing(t *testing.T) {
	c := NewChecker(&fakeRunner{}, filepath.Join(t.TempDir(), "missing.sh"))

	got := c.RunFull(context.Background())
	if got.Success || !strings.Contains(got.Error, "not found") {
		t.Errorf("RunFull = %+v, want script-not-found error", got)
	}
}
