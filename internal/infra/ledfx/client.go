// Package ledfx is a client for the LedFX REST API. Every query degrades to a
// disconnected result on timeout, non-200 status, or malformed JSON; callers
// always get a usable value.
package ledfx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is where the LedFX container listens.
	DefaultBaseURL = "http://localhost:8888"

	// DefaultTimeout for control-plane API queries.
	DefaultTimeout = 5 * time.Second
)

// Client queries the LedFX HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option is a functional option for configuring the client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a LedFX API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// InfoStatus is the /api/info fragment.
type InfoStatus struct {
	Connected bool                   `json:"connected"`
	Version   string                 `json:"version,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// VirtualState is the dashboard-relevant subset of one virtual's state.
type VirtualState struct {
	Active    bool   `json:"active"`
	Streaming bool   `json:"streaming"`
	Effect    string `json:"effect"`
	Paused    bool   `json:"paused"`
}

// VirtualsStatus is the /api/virtuals fragment.
type VirtualsStatus struct {
	Connected bool                    `json:"connected"`
	Virtuals  map[string]VirtualState `json:"virtuals"`
	Paused    bool                    `json:"paused"`
}

// DeviceState is the dashboard-relevant subset of one LED device's state.
type DeviceState struct {
	Online bool                   `json:"online"`
	Type   string                 `json:"type"`
	Config map[string]interface{} `json:"config"`
}

// DevicesStatus is the /api/devices fragment.
type DevicesStatus struct {
	Connected bool                   `json:"connected"`
	Devices   map[string]DeviceState `json:"devices"`
}

// AudioDeviceStatus maps LedFX's configured and active audio capture device
// indexes to their device names.
type AudioDeviceStatus struct {
	ConfiguredIndex  *int              `json:"configured_index"`
	ConfiguredDevice string            `json:"configured_device,omitempty"`
	ActiveIndex      *int              `json:"active_index"`
	ActiveDevice     string            `json:"active_device,omitempty"`
	AvailableDevices map[string]string `json:"available_devices"`
}

// Info queries /api/info.
func (c *Client) Info(ctx context.Context) InfoStatus {
	var payload struct {
		Version string `json:"version"`
	}
	raw, err := c.get(ctx, "/api/info", &payload)
	if err != nil {
		return InfoStatus{}
	}

	version := payload.Version
	if version == "" {
		version = "unknown"
	}
	return InfoStatus{Connected: true, Version: version, Data: raw}
}

// Virtuals queries /api/virtuals.
func (c *Client) Virtuals(ctx context.Context) VirtualsStatus {
	var payload struct {
		Virtuals map[string]struct {
			Active    bool            `json:"active"`
			Streaming bool            `json:"streaming"`
			Effect    json.RawMessage `json:"effect"`
		} `json:"virtuals"`
		Paused bool `json:"paused"`
	}
	if _, err := c.get(ctx, "/api/virtuals", &payload); err != nil {
		return VirtualsStatus{Virtuals: map[string]VirtualState{}}
	}

	virtuals := make(map[string]VirtualState, len(payload.Virtuals))
	for id, v := range payload.Virtuals {
		virtuals[id] = VirtualState{
			Active:    v.Active,
			Streaming: v.Streaming,
			Effect:    effectType(v.Effect),
			Paused:    payload.Paused,
		}
	}
	return VirtualsStatus{Connected: true, Virtuals: virtuals, Paused: payload.Paused}
}

// Devices queries /api/devices.
func (c *Client) Devices(ctx context.Context) DevicesStatus {
	var payload struct {
		Devices map[string]struct {
			Online bool                   `json:"online"`
			Type   string                 `json:"type"`
			Config map[string]interface{} `json:"config"`
		} `json:"devices"`
	}
	if _, err := c.get(ctx, "/api/devices", &payload); err != nil {
		return DevicesStatus{Devices: map[string]DeviceState{}}
	}

	devices := make(map[string]DeviceState, len(payload.Devices))
	for id, d := range payload.Devices {
		deviceType := d.Type
		if deviceType == "" {
			deviceType = "unknown"
		}
		devices[id] = DeviceState{Online: d.Online, Type: deviceType, Config: d.Config}
	}
	return DevicesStatus{Connected: true, Devices: devices}
}

// AudioDevice resolves the configured and active audio capture devices by
// joining /api/audio/devices with the index stored in /api/config.
func (c *Client) AudioDevice(ctx context.Context) AudioDeviceStatus {
	empty := AudioDeviceStatus{AvailableDevices: map[string]string{}}

	var audioDevices struct {
		Devices           map[string]string `json:"devices"`
		ActiveDeviceIndex *int              `json:"active_device_index"`
	}
	if _, err := c.get(ctx, "/api/audio/devices", &audioDevices); err != nil {
		return empty
	}

	var config struct {
		Audio struct {
			AudioDevice *int `json:"audio_device"`
		} `json:"audio"`
	}
	if _, err := c.get(ctx, "/api/config", &config); err != nil {
		return empty
	}

	status := AudioDeviceStatus{
		ConfiguredIndex:  config.Audio.AudioDevice,
		ActiveIndex:      audioDevices.ActiveDeviceIndex,
		AvailableDevices: audioDevices.Devices,
	}
	if status.AvailableDevices == nil {
		status.AvailableDevices = map[string]string{}
	}
	status.ConfiguredDevice = deviceName(status.AvailableDevices, status.ConfiguredIndex)
	status.ActiveDevice = deviceName(status.AvailableDevices, status.ActiveIndex)
	return status
}

// StreamingFlag reports whether any virtual currently carries the API-level
// streaming indicator. This is LedFX's own view and may lag audio reality, so
// it is exposed as a separate signal rather than folded into other checks.
func (c *Client) StreamingFlag(ctx context.Context) bool {
	status := c.Virtuals(ctx)
	if !status.Connected {
		return false
	}
	for _, v := range status.Virtuals {
		if v.Streaming {
			return true
		}
	}
	return false
}

// get fetches and decodes one endpoint. It also returns the raw decoded body
// for callers that pass through untyped data.
func (c *Client) get(ctx context.Context, path string, out interface{}) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("LedFX API unreachable")
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Debug().Int("status", resp.StatusCode).Str("path", path).Msg("LedFX API non-200")
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		log.Debug().Err(err).Str("path", path).Msg("LedFX API returned malformed JSON")
		return nil, fmt.Errorf("parse response: %w", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return raw, nil
}

// effectType digs the effect type out of a virtual's effect object. LedFX
// sends either an object or an empty value here.
func effectType(raw json.RawMessage) string {
	var effect struct {
		Type string `json:"type"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &effect) != nil || effect.Type == "" {
		return "none"
	}
	return effect.Type
}

func deviceName(devices map[string]string, index *int) string {
	if index == nil {
		return ""
	}
	if name, ok := devices[fmt.Sprintf("%d", *index)]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (index %d)", *index)
}
