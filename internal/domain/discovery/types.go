// Package discovery parses avahi-browse output for the AirPlay service types
// and merges repeated sightings into per-device records.
package discovery

// ServiceType is an mDNS service type this product browses for.
type ServiceType string

const (
	// ServiceAirPlayAudio is the RAOP (AirPlay audio) service type.
	ServiceAirPlayAudio ServiceType = "_raop._tcp"

	// ServiceAirPlayVideo is the AirPlay (video/screen) service type.
	ServiceAirPlayVideo ServiceType = "_airplay._tcp"
)

// Device is one endpoint found during a browse pass. Devices are rebuilt from
// scratch on every browse and never persisted.
type Device struct {
	DisplayName     string   `json:"name"`
	Hostname        string   `json:"hostname,omitempty"`
	ServiceType     string   `json:"serviceType"`
	Interface       string   `json:"interface,omitempty"`
	Protocol        string   `json:"protocol,omitempty"`
	Address         string   `json:"address,omitempty"`
	Port            int      `json:"port,omitempty"`
	FirmwareVersion string   `json:"firmwareVersion,omitempty"`
	FeatureFlags    string   `json:"features,omitempty"`
	RawRecords      []string `json:"-"`
}

// CombinedDevice is the device-listing view built by combining the audio and
// video sightings of one host. It is derived for display only and plays no
// part in identity matching.
type CombinedDevice struct {
	DisplayName string   `json:"name"`
	Hostname    string   `json:"hostname,omitempty"`
	Address     string   `json:"address,omitempty"`
	AirPlay1    bool     `json:"airplay1"`
	AirPlay2    bool     `json:"airplay2"`
	Versions    string   `json:"versions"`
	RawRecords  []string `json:"-"`
}
