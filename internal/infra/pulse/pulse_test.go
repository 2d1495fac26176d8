package pulse

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/airglowhq/airglow-status-backend/internal/infra/probe"
)

const pactlInfo = `Server String: unix:/tmp/pulse/native
Library Protocol Version: 35
Server Protocol Version: 35
Server Name: pulseaudio
Default Sink: auto_null
`

const sinkInputsFull = `Sink Input #12
	Driver: protocol-native.c
	Corked: no
	Properties:
		application.name = "Shairport Sync"
		media.name = "Shairport Sync Stream"
`

type fakeExec struct {
	outputs map[string]probe.Outcome
	err     error
}

func (f *fakeExec) ExecInContainer(ctx context.Context, name string, argv []string, timeout time.Duration) (probe.Outcome, error) {
	if f.err != nil {
		return probe.Outcome{}, f.err
	}
	return f.outputs[strings.Join(argv, " ")], nil
}

func TestStatus_FullyConnected(t *testing.T) {
	exec := &fakeExec{outputs: map[string]probe.Outcome{
		"pactl info":                   {Stdout: pactlInfo},
		"pactl list sink-inputs short": {Stdout: "12\t1\t34\tprotocol-native.c\tfloat32le 2ch 44100Hz\n"},
		"pactl list sink-inputs":       {Stdout: sinkInputsFull},
	}}

	status := NewMonitor(exec, "ledfx", "").Status(context.Background())

	if !status.Available {
		t.Error("Available = false")
	}
	if status.Server != "unix:/tmp/pulse/native" {
		t.Errorf("Server = %q", status.Server)
	}
	if status.ActiveStreams != 1 {
		t.Errorf("ActiveStreams = %d, want 1", status.ActiveStreams)
	}
	if !status.ShairportConnected {
		t.Error("ShairportConnected = false")
	}
	if status.ShairportCorked {
		t.Error("ShairportCorked = true, want false (Corked: no)")
	}
}

func TestStatus_CorkedStream(t *testing.T) {
	corked := strings.Replace(sinkInputsFull, "Corked: no", "Corked: yes", 1)
	exec := &fakeExec{outputs: map[string]probe.Outcome{
		"pactl info":                   {Stdout: pactlInfo},
		"pactl list sink-inputs short": {Stdout: "12\t...\n"},
		"pactl list sink-inputs":       {Stdout: corked},
	}}

	status := NewMonitor(exec, "ledfx", "").Status(context.Background())
	if !status.ShairportCorked {
		t.Error("ShairportCorked = false, want true")
	}
}

func TestStatus_NoCorkMarkerLeavesDefault(t *testing.T) {
	noMarker := strings.Replace(sinkInputsFull, "	Corked: no\n", "", 1)
	exec := &fakeExec{outputs: map[string]probe.Outcome{
		"pactl info":                   {Stdout: pactlInfo},
		"pactl list sink-inputs short": {Stdout: ""},
		"pactl list sink-inputs":       {Stdout: noMarker},
	}}

	status := NewMonitor(exec, "ledfx", "").Status(context.Background())
	if !status.ShairportConnected {
		t.Error("ShairportConnected = false")
	}
	if status.ShairportCorked {
		t.Error("ShairportCorked = true, want the default when no marker is present")
	}
}

func TestStatus_PactlUnavailable(t *testing.T) {
	exec := &fakeExec{err: probe.ErrTimedOut}

	status := NewMonitor(exec, "ledfx", "").Status(context.Background())
	if status.Available || status.ShairportConnected || status.ActiveStreams != 0 {
		t.Errorf("status = %+v, want zero fragment", status)
	}
}

func TestStatus_NonZeroExit(t *testing.T) {
	exec := &fakeExec{outputs: map[string]probe.Outcome{
		"pactl info": {ExitCode: 1, Stderr: "Connection refused"},
	}}

	status := NewMonitor(exec, "ledfx", "").Status(context.Background())
	if status.Available {
		t.Error("Available = true after pactl failure")
	}
}

func TestParseServerString(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"present", pactlInfo, "unix:/tmp/pulse/native"},
		{"absent", "Server Name: pulseaudio\n", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseServerString(tt.output); got != tt.want {
				t.Errorf("parseServerString = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCountStreams(t *testing.T) {
	if got := countStreams("12\ta\n13\tb\n\n"); got != 2 {
		t.Errorf("countStreams = %d, want 2", got)
	}
	if got := countStreams(""); got != 0 {
		t.Errorf("countStreams = %d, want 0", got)
	}
}
