// Package pulse reads PulseAudio state through pactl inside the LedFX
// container: whether a server is up, how many playback streams exist, and
// whether the Shairport Sync stream is connected and corked (paused).
//
// The cork check is a substring heuristic over `pactl list sink-inputs`
// output. When neither "Corked: yes" nor "Corked: no" appears, the cork state
// keeps its default, which can report stale state; this mirrors the known
// coarse behavior of the dashboard and is deliberate.
package pulse

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/airglowhq/airglow-status-backend/internal/infra/probe"
)

// DefaultClientName is the sink-input client name shairport-sync registers.
const DefaultClientName = "Shairport Sync"

// QueryTimeout bounds each pactl invocation.
const QueryTimeout = 5 * time.Second

// Executor runs a command inside a container. Satisfied by runtime.Docker.
type Executor interface {
	ExecInContainer(ctx context.Context, name string, argv []string, timeout time.Duration) (probe.Outcome, error)
}

// Status is the audio-routing fragment.
type Status struct {
	Available          bool   `json:"available"`
	Server             string `json:"server,omitempty"`
	ShairportConnected bool   `json:"shairport_connected"`
	ShairportCorked    bool   `json:"shairport_corked"`
	ActiveStreams      int    `json:"active_streams"`
}

// Monitor probes the sound server of one container.
type Monitor struct {
	exec       Executor
	container  string
	clientName string
}

// NewMonitor creates a Monitor that runs pactl inside container and looks for
// clientName among the sink inputs.
func NewMonitor(exec Executor, container, clientName string) *Monitor {
	if clientName == "" {
		clientName = DefaultClientName
	}
	return &Monitor{exec: exec, container: container, clientName: clientName}
}

// Status collects the audio-routing fragment. Every pactl failure degrades to
// the zero fragment; nothing propagates.
func (m *Monitor) Status(ctx context.Context) Status {
	var status Status

	info, err := m.exec.ExecInContainer(ctx, m.container, []string{"pactl", "info"}, QueryTimeout)
	if err != nil || info.ExitCode != 0 {
		log.Debug().Err(err).Str("container", m.container).Msg("pactl info unavailable")
		return status
	}

	if server := parseServerString(info.Stdout); server != "" {
		status.Server = server
		status.Available = true
	}

	short, err := m.exec.ExecInContainer(ctx, m.container, []string{"pactl", "list", "sink-inputs", "short"}, QueryTimeout)
	if err == nil && short.ExitCode == 0 {
		status.ActiveStreams = countStreams(short.Stdout)
	}

	full, err := m.exec.ExecInContainer(ctx, m.container, []string{"pactl", "list", "sink-inputs"}, QueryTimeout)
	if err == nil && full.ExitCode == 0 && strings.Contains(full.Stdout, m.clientName) {
		status.ShairportConnected = true
		if strings.Contains(full.Stdout, "Corked: yes") {
			status.ShairportCorked = true
		} else if strings.Contains(full.Stdout, "Corked: no") {
			status.ShairportCorked = false
		}
	}

	return status
}

// parseServerString pulls the value of the "Server String" line from
// `pactl info` output.
func parseServerString(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "Server String") {
			_, value, found := strings.Cut(line, ":")
			if found {
				return strings.TrimSpace(value)
			}
		}
	}
	return ""
}

// countStreams counts non-blank lines of `pactl list sink-inputs short`.
func countStreams(output string) int {
	count := 0
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}
