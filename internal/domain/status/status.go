// Package status assembles one point-in-time snapshot of the whole fleet.
// Every source is re-probed on every request; nothing is cached between
// requests, so recomputation is the only consistency mechanism.
package status

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/airglowhq/airglow-status-backend/internal/domain/airplay"
	"github.com/airglowhq/airglow-status-backend/internal/infra/diag"
	"github.com/airglowhq/airglow-status-backend/internal/infra/ledfx"
	"github.com/airglowhq/airglow-status-backend/internal/infra/pulse"
)

// Fleet container names.
const (
	ContainerLedFX     = "ledfx"
	ContainerShairport = "shairport-sync"
)

// ContainerStatus is one container's fragment.
type ContainerStatus struct {
	Running      bool   `json:"running"`
	Version      string `json:"version,omitempty"`
	OriginalName string `json:"original_name"`
}

// AudioStatus is the audio-routing fragment plus LedFX's own streaming
// indicator, which is exposed separately rather than folded into the
// sound-server checks.
type AudioStatus struct {
	pulse.Status
	LedfxStreamingFlag bool `json:"ledfx_streaming_flag"`
}

// Snapshot is the aggregate of all fragments for one request. It is built
// once, never mutated, and has no identity beyond the response carrying it.
type Snapshot struct {
	ID               string                      `json:"id"`
	GeneratedAt      time.Time                   `json:"generated_at"`
	Containers       map[string]ContainerStatus  `json:"containers"`
	LedFX            ledfx.InfoStatus            `json:"ledfx"`
	LedFXAudioDevice ledfx.AudioDeviceStatus     `json:"ledfx_audio_device"`
	Virtuals         ledfx.VirtualsStatus        `json:"virtuals"`
	Devices          ledfx.DevicesStatus         `json:"devices"`
	Audio            AudioStatus                 `json:"audio"`
	AirPlay          airplay.AdvertisementStatus `json:"airplay"`
	Diagnostics      diag.Summary                `json:"diagnostics"`
}

// LedFXAPI is the LedFX REST surface the aggregator consumes.
type LedFXAPI interface {
	Info(ctx context.Context) ledfx.InfoStatus
	Virtuals(ctx context.Context) ledfx.VirtualsStatus
	Devices(ctx context.Context) ledfx.DevicesStatus
	AudioDevice(ctx context.Context) ledfx.AudioDeviceStatus
	StreamingFlag(ctx context.Context) bool
}

// ContainerRuntime is the container-runtime surface the aggregator consumes.
type ContainerRuntime interface {
	IsRunning(ctx context.Context, name string) bool
	ShairportVersion(ctx context.Context, container string) string
}

// AudioMonitor provides the sound-server fragment.
type AudioMonitor interface {
	Status(ctx context.Context) pulse.Status
}

// AdvertChecker provides the AirPlay advertisement fragment.
type AdvertChecker interface {
	Check(ctx context.Context) airplay.AdvertisementStatus
}

// DiagSummarizer provides the diagnostic-counts fragment.
type DiagSummarizer interface {
	Summarize(ctx context.Context) diag.Summary
}

// Aggregator fans out to every source adapter and assembles the snapshot.
type Aggregator struct {
	ledfx   LedFXAPI
	runtime ContainerRuntime
	audio   AudioMonitor
	airplay AdvertChecker
	diag    DiagSummarizer
}

// NewAggregator wires the aggregator to its source adapters.
func NewAggregator(api LedFXAPI, runtime ContainerRuntime, audio AudioMonitor, advert AdvertChecker, diagnostics DiagSummarizer) *Aggregator {
	return &Aggregator{
		ledfx:   api,
		runtime: runtime,
		audio:   audio,
		airplay: advert,
		diag:    diagnostics,
	}
}

// Collect probes every source concurrently and returns the assembled
// snapshot. Each adapter degrades internally, so a dead dependency costs its
// own fragment and nothing else, and total latency is bounded by the slowest
// single adapter rather than the sum.
func (a *Aggregator) Collect(ctx context.Context) Snapshot {
	start := time.Now()
	snapshot := Snapshot{
		ID:          uuid.New().String(),
		GeneratedAt: start.UTC(),
	}

	var (
		ledfxRunning     bool
		shairportRunning bool
		shairportVersion string
	)

	var wg sync.WaitGroup
	run := func(f func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}

	run(func() { ledfxRunning = a.runtime.IsRunning(ctx, ContainerLedFX) })
	run(func() {
		shairportRunning = a.runtime.IsRunning(ctx, ContainerShairport)
		if shairportRunning {
			shairportVersion = a.runtime.ShairportVersion(ctx, ContainerShairport)
		}
	})
	run(func() { snapshot.LedFX = a.ledfx.Info(ctx) })
	run(func() { snapshot.Virtuals = a.ledfx.Virtuals(ctx) })
	run(func() { snapshot.Devices = a.ledfx.Devices(ctx) })
	run(func() { snapshot.LedFXAudioDevice = a.ledfx.AudioDevice(ctx) })
	run(func() {
		snapshot.Audio.Status = a.audio.Status(ctx)
		snapshot.Audio.LedfxStreamingFlag = a.ledfx.StreamingFlag(ctx)
	})
	run(func() { snapshot.AirPlay = a.airplay.Check(ctx) })
	run(func() { snapshot.Diagnostics = a.diag.Summarize(ctx) })

	wg.Wait()

	ledfxVersion := ""
	if ledfxRunning && snapshot.LedFX.Connected {
		ledfxVersion = snapshot.LedFX.Version
	}
	snapshot.Containers = map[string]ContainerStatus{
		"ledfx": {
			Running:      ledfxRunning,
			Version:      ledfxVersion,
			OriginalName: ContainerLedFX,
		},
		"shairport_sync": {
			Running:      shairportRunning,
			Version:      shairportVersion,
			OriginalName: ContainerShairport,
		},
	}

	log.Debug().
		Str("snapshot_id", snapshot.ID).
		Dur("elapsed", time.Since(start)).
		Msg("Status snapshot collected")
	return snapshot
}
