// Package runtime queries and controls the fleet's containers through the
// docker CLI. Results degrade to "not running" when the runtime is absent or
// slow; nothing here is fatal.
package runtime

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/airglowhq/airglow-status-backend/internal/infra/probe"
)

const (
	// QueryTimeout bounds control-plane queries (ps, exec for version).
	QueryTimeout = 5 * time.Second

	// ActionTimeout bounds mutating actions (restart).
	ActionTimeout = 30 * time.Second
)

var versionRe = regexp.MustCompile(`(\d+\.\d+\.\d+)`)

// Docker is the docker CLI adapter.
type Docker struct {
	runner probe.Runner
}

// NewDocker creates a Docker adapter over the given command runner.
func NewDocker(runner probe.Runner) *Docker {
	return &Docker{runner: runner}
}

// IsRunning reports whether the named container is currently running. Any
// probe failure reads as not running.
func (d *Docker) IsRunning(ctx context.Context, name string) bool {
	outcome, err := d.runner.Run(ctx, QueryTimeout, "docker",
		"ps", "--format", "{{.Names}}", "--filter", fmt.Sprintf("name=^%s$", name))
	if err != nil {
		log.Warn().Err(err).Str("container", name).Msg("Container status check failed")
		return false
	}
	if outcome.ExitCode != 0 {
		return false
	}

	for _, line := range strings.Split(outcome.Stdout, "\n") {
		if strings.TrimSpace(line) == name {
			return true
		}
	}
	return false
}

// ExecInContainer runs argv inside the named container.
func (d *Docker) ExecInContainer(ctx context.Context, name string, argv []string, timeout time.Duration) (probe.Outcome, error) {
	args := append([]string{"exec", name}, argv...)
	return d.runner.Run(ctx, timeout, "docker", args...)
}

// ShairportVersion extracts the shairport-sync version ("4.3.2") from
// `shairport-sync -V` inside its container. Empty when unavailable.
func (d *Docker) ShairportVersion(ctx context.Context, container string) string {
	outcome, err := d.ExecInContainer(ctx, container, []string{"shairport-sync", "-V"}, QueryTimeout)
	if err != nil || outcome.ExitCode != 0 {
		return ""
	}

	firstLine, _, _ := strings.Cut(outcome.Stdout, "\n")
	if match := versionRe.FindStringSubmatch(firstLine); match != nil {
		return match[1]
	}
	return ""
}

// Restart restarts the named container.
func (d *Docker) Restart(ctx context.Context, name string) error {
	outcome, err := d.runner.Run(ctx, ActionTimeout, "docker", "restart", name)
	if err != nil {
		return fmt.Errorf("restart %s: %w", name, err)
	}
	if outcome.ExitCode != 0 {
		return fmt.Errorf("restart %s: exit %d: %s", name, outcome.ExitCode, strings.TrimSpace(outcome.Stderr))
	}
	return nil
}
