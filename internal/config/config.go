// Package config owns the persisted hook configuration (ledfx-hooks.yaml)
// and read-only access to the shairport-sync device name. The YAML file is
// the single source of truth; shairport-sync.conf is never edited, and the
// legacy ledfx-hooks.conf format is read once for migration only.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultDir is where the fleet's config files are mounted.
	DefaultDir = "/configs"

	hooksYAMLName     = "ledfx-hooks.yaml"
	hooksLegacyName   = "ledfx-hooks.conf"
	shairportConfName = "shairport-sync.conf"
)

var (
	legacyVirtualIDsRe = regexp.MustCompile(`VIRTUAL_IDS="([^"]*)"`)
	shairportNameRe    = regexp.MustCompile(`(?m)^\s*name\s*=\s*"([^"]*)"`)
)

// HookVirtual selects one LedFX virtual for a hook, with a repeat count.
type HookVirtual struct {
	ID      string `yaml:"id" json:"id"`
	Repeats int    `yaml:"repeats" json:"repeats"`
}

// Hook configures one of the playback hooks (stream start or stream end).
type Hook struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	AllVirtuals bool          `yaml:"all_virtuals" json:"all_virtuals"`
	Virtuals    []HookVirtual `yaml:"virtuals" json:"virtuals"`
}

// LedFXEndpoint is the LedFX connection the hooks talk to. It is fixed to
// localhost and kept in the file only for the hook scripts' benefit.
type LedFXEndpoint struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// HooksConfig is the full hook configuration.
type HooksConfig struct {
	LedFX LedFXEndpoint `yaml:"ledfx" json:"ledfx"`
	Start Hook          `yaml:"-" json:"start"`
	End   Hook          `yaml:"-" json:"end"`
}

// diskConfig is the on-disk YAML shape. Optional booleans are pointers so a
// file written before the all_virtuals flag existed can be told apart from an
// explicit false.
type diskConfig struct {
	LedFX LedFXEndpoint `yaml:"ledfx"`
	Hooks struct {
		Start diskHook `yaml:"start"`
		End   diskHook `yaml:"end"`
	} `yaml:"hooks"`
}

type diskHook struct {
	Enabled     *bool         `yaml:"enabled"`
	AllVirtuals *bool         `yaml:"all_virtuals"`
	Virtuals    []HookVirtual `yaml:"virtuals"`
}

// Store reads and writes the hook configuration under one directory.
type Store struct {
	mu  sync.RWMutex
	dir string
}

// NewStore creates a Store rooted at dir (DefaultDir when empty).
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{dir: dir}
}

// Load reads the current hook configuration: the YAML file when present,
// the legacy conf as a migration fallback, defaults otherwise.
func (s *Store) Load() (HooksConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	yamlPath := filepath.Join(s.dir, hooksYAMLName)
	if data, err := os.ReadFile(yamlPath); err == nil {
		return parseYAML(data)
	}

	legacyPath := filepath.Join(s.dir, hooksLegacyName)
	if data, err := os.ReadFile(legacyPath); err == nil {
		log.Debug().Str("path", legacyPath).Msg("Falling back to legacy hook config format")
		return parseLegacy(string(data)), nil
	}

	return Defaults(), nil
}

// Save writes the configuration in the YAML format. The legacy format is
// never written back.
func (s *Store) Save(cfg HooksConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The endpoint is fixed; whatever the caller sent, persist the known
	// good values so hook scripts cannot be pointed elsewhere.
	cfg.LedFX = LedFXEndpoint{Host: "localhost", Port: 8888}

	var disk diskConfig
	disk.LedFX = cfg.LedFX
	disk.Hooks.Start = toDiskHook(cfg.Start)
	disk.Hooks.End = toDiskHook(cfg.End)

	data, err := yaml.Marshal(&disk)
	if err != nil {
		return fmt.Errorf("encode hook config: %w", err)
	}

	path := filepath.Join(s.dir, hooksYAMLName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write hook config: %w", err)
	}
	return nil
}

// DeviceName reads the advertised AirPlay name from shairport-sync.conf.
// Empty when the file or the name directive is absent.
func (s *Store) DeviceName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.dir, shairportConfName))
	if err != nil {
		log.Debug().Err(err).Msg("shairport-sync.conf not readable")
		return ""
	}

	if match := shairportNameRe.FindStringSubmatch(string(data)); match != nil {
		return match[1]
	}
	return ""
}

// Defaults is the configuration used when no file exists yet.
func Defaults() HooksConfig {
	return HooksConfig{
		LedFX: LedFXEndpoint{Host: "localhost", Port: 8888},
		Start: Hook{Enabled: true, AllVirtuals: true, Virtuals: []HookVirtual{}},
		End:   Hook{Enabled: true, AllVirtuals: true, Virtuals: []HookVirtual{}},
	}
}

func parseYAML(data []byte) (HooksConfig, error) {
	var disk diskConfig
	if err := yaml.Unmarshal(data, &disk); err != nil {
		return HooksConfig{}, fmt.Errorf("parse hook config: %w", err)
	}

	cfg := HooksConfig{
		LedFX: disk.LedFX,
		Start: fromDiskHook(disk.Hooks.Start),
		End:   fromDiskHook(disk.Hooks.End),
	}
	if cfg.LedFX.Host == "" {
		cfg.LedFX.Host = "localhost"
	}
	if cfg.LedFX.Port == 0 {
		cfg.LedFX.Port = 8888
	}
	return cfg, nil
}

// fromDiskHook resolves optional fields: enabled defaults to true, and a
// missing all_virtuals flag is inferred from an empty virtuals list for
// files written before the flag existed.
func fromDiskHook(d diskHook) Hook {
	hook := Hook{Enabled: true, Virtuals: d.Virtuals}
	if hook.Virtuals == nil {
		hook.Virtuals = []HookVirtual{}
	}
	if d.Enabled != nil {
		hook.Enabled = *d.Enabled
	}
	if d.AllVirtuals != nil {
		hook.AllVirtuals = *d.AllVirtuals
	} else {
		hook.AllVirtuals = len(hook.Virtuals) == 0
	}
	return hook
}

func toDiskHook(h Hook) diskHook {
	enabled := h.Enabled
	allVirtuals := h.AllVirtuals
	virtuals := h.Virtuals
	if virtuals == nil {
		virtuals = []HookVirtual{}
	}
	return diskHook{Enabled: &enabled, AllVirtuals: &allVirtuals, Virtuals: virtuals}
}

// parseLegacy converts the old ledfx-hooks.conf VIRTUAL_IDS="a,b" format.
// Both hooks share the one list; an empty list means all virtuals.
func parseLegacy(data string) HooksConfig {
	virtuals := []HookVirtual{}
	if match := legacyVirtualIDsRe.FindStringSubmatch(data); match != nil {
		for _, id := range strings.Split(match[1], ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				virtuals = append(virtuals, HookVirtual{ID: id, Repeats: 1})
			}
		}
	}

	hook := Hook{
		Enabled:     true,
		AllVirtuals: len(virtuals) == 0,
		Virtuals:    virtuals,
	}
	return HooksConfig{
		LedFX: LedFXEndpoint{Host: "localhost", Port: 8888},
		Start: hook,
		End:   hook,
	}
}
