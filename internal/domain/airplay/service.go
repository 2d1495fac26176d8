// Package airplay checks whether the configured AirPlay name is actually
// being advertised on the network, by browsing both AirPlay service types and
// matching the configured name against what resolved.
package airplay

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/airglowhq/airglow-status-backend/internal/domain/discovery"
	"github.com/airglowhq/airglow-status-backend/internal/domain/identity"
	"github.com/airglowhq/airglow-status-backend/internal/infra/probe"
)

// BrowseTimeout bounds one avahi-browse pass. Browsing has to wait out the
// mDNS query interval, so it gets more room than control-plane probes.
const BrowseTimeout = 10 * time.Second

// maxCandidateNames caps how many observed names a no-match error reports.
const maxCandidateNames = 5

// ContainerChecker reports whether a container is running.
type ContainerChecker interface {
	IsRunning(ctx context.Context, name string) bool
}

// NameSource provides the configured AirPlay display name.
type NameSource interface {
	DeviceName() string
}

// AdvertisementStatus is the outcome of matching the configured name against
// the discovered devices.
type AdvertisementStatus struct {
	Configured     bool     `json:"configured"`
	ConfiguredName string   `json:"configured_name,omitempty"`
	Advertising    bool     `json:"advertising"`
	CandidateNames []string `json:"candidate_names,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// Service performs advertisement checks and device listing.
type Service struct {
	runner    probe.Runner
	checker   ContainerChecker
	names     NameSource
	container string
	lanPrefix string
}

// NewService creates the advertisement checker. container is the container
// that owns the advertisement (shairport-sync); lanPrefix is the preferred
// IPv4 prefix for merged addresses.
func NewService(runner probe.Runner, checker ContainerChecker, names NameSource, container, lanPrefix string) *Service {
	return &Service{
		runner:    runner,
		checker:   checker,
		names:     names,
		container: container,
		lanPrefix: lanPrefix,
	}
}

// Check verifies the configured name is advertised. It never returns an
// error: every failure mode is folded into the status fragment.
func (s *Service) Check(ctx context.Context) AdvertisementStatus {
	name := s.names.DeviceName()
	if name == "" {
		return AdvertisementStatus{Error: "no AirPlay name configured"}
	}

	status := AdvertisementStatus{Configured: true, ConfiguredName: name}

	if !s.checker.IsRunning(ctx, s.container) {
		status.Error = fmt.Sprintf("%s container is not running", s.container)
		return status
	}

	audio, video := s.browseBoth(ctx)
	devices := append(audio, video...)

	candidates := make([]identity.Candidate, 0, len(devices))
	for _, d := range devices {
		candidates = append(candidates, identity.Candidate{DisplayName: d.DisplayName, Hostname: d.Hostname})
	}

	status.CandidateNames = candidateNames(devices)
	if identity.MatchesAny(name, candidates) {
		status.Advertising = true
		return status
	}

	if len(devices) == 0 {
		status.Error = fmt.Sprintf("no AirPlay advertisements found for %q; discovery returned no devices", name)
	} else {
		status.Error = fmt.Sprintf("no advertisement matching %q; saw: %s",
			name, strings.Join(status.CandidateNames, ", "))
	}
	return status
}

// Devices returns the combined device-listing view from both browse passes.
func (s *Service) Devices(ctx context.Context) []discovery.CombinedDevice {
	audio, video := s.browseBoth(ctx)
	return discovery.Combine(audio, video)
}

// browseBoth runs the audio and video browses concurrently, so the total
// wait is one browse timeout rather than two.
func (s *Service) browseBoth(ctx context.Context) (audio, video []discovery.Device) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		audio = s.browse(ctx, discovery.ServiceAirPlayAudio)
	}()
	go func() {
		defer wg.Done()
		video = s.browse(ctx, discovery.ServiceAirPlayVideo)
	}()
	wg.Wait()
	return audio, video
}

// browse runs one avahi-browse pass and merges the parsed records. Failures
// read as an empty result.
func (s *Service) browse(ctx context.Context, serviceType discovery.ServiceType) []discovery.Device {
	outcome, err := s.runner.Run(ctx, BrowseTimeout, "avahi-browse", "-rtp", string(serviceType))
	if err != nil {
		log.Debug().Err(err).Str("service", string(serviceType)).Msg("avahi-browse failed")
		return nil
	}
	if outcome.ExitCode != 0 {
		log.Debug().Int("exit", outcome.ExitCode).Str("service", string(serviceType)).Msg("avahi-browse returned non-zero")
		return nil
	}

	return discovery.Merge(discovery.ParseBrowseOutput(outcome.Stdout), s.lanPrefix)
}

// candidateNames collects up to maxCandidateNames distinct observed names
// for diagnostics.
func candidateNames(devices []discovery.Device) []string {
	seen := make(map[string]bool)
	names := make([]string, 0, maxCandidateNames)
	for _, d := range devices {
		name := d.DisplayName
		if name == "" {
			name = d.Hostname
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
		if len(names) == maxCandidateNames {
			break
		}
	}
	return names
}
