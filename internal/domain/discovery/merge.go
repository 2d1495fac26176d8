package discovery

import (
	"strings"
)

// DefaultLANPrefix is the IPv4 prefix preferred when a device advertises on
// several interfaces.
const DefaultLANPrefix = "192.168."

// mergeKey identifies one physical endpoint within a browse pass. Keying on
// the hostname is preferred; name-keyed entries exist only for records that
// resolved without a hostname, and the kind tag keeps the two styles from
// colliding.
type mergeKey struct {
	kind    keyKind
	value   string
	service string
}

type keyKind int

const (
	keyHostname keyKind = iota
	keyDisplayName
)

func keyFor(d Device) mergeKey {
	key := mergeKey{service: strings.ToLower(d.ServiceType)}
	if d.Hostname != "" {
		key.kind = keyHostname
		key.value = strings.ToLower(d.Hostname)
	} else {
		key.kind = keyDisplayName
		key.value = strings.ToLower(d.DisplayName)
	}
	return key
}

// Merge de-duplicates provisional devices from one browse pass. Repeated
// sightings of the same (hostname, service type) pair fold into one device:
// raw records accumulate, the address is upgraded only by a strictly better
// candidate, and firmware/feature metadata keep their first-seen values.
// Devices with neither an address nor a hostname are dropped.
//
// The final membership does not depend on input order; order influences only
// which duplicate is seen first, and the address ranking resolves those ties
// the same way regardless.
func Merge(devices []Device, lanPrefix string) []Device {
	if lanPrefix == "" {
		lanPrefix = DefaultLANPrefix
	}

	merged := make(map[mergeKey]*Device)
	order := make([]mergeKey, 0, len(devices))

	for _, d := range devices {
		key := keyFor(d)

		existing, found := merged[key]
		if !found {
			copied := d
			copied.RawRecords = append([]string(nil), d.RawRecords...)
			merged[key] = &copied
			order = append(order, key)
			continue
		}

		existing.RawRecords = append(existing.RawRecords, d.RawRecords...)

		if addressRank(d.Address, lanPrefix) > addressRank(existing.Address, lanPrefix) {
			existing.Address = d.Address
			existing.Interface = d.Interface
			existing.Protocol = d.Protocol
			if d.Port != 0 {
				existing.Port = d.Port
			}
		}

		if existing.FirmwareVersion == "" {
			existing.FirmwareVersion = d.FirmwareVersion
		}
		if existing.FeatureFlags == "" {
			existing.FeatureFlags = d.FeatureFlags
		}
	}

	result := make([]Device, 0, len(order))
	for _, key := range order {
		d := merged[key]
		if d.Address == "" && d.Hostname == "" {
			continue
		}
		result = append(result, *d)
	}
	return result
}

// addressRank orders candidate addresses: private-LAN IPv4 beats any other
// IPv4, IPv4 beats IPv6, any address beats none. A selected private-LAN
// address can never be displaced.
func addressRank(address, lanPrefix string) int {
	switch {
	case address == "":
		return 0
	case strings.Contains(address, ":"):
		return 1
	case strings.HasPrefix(address, lanPrefix):
		return 3
	default:
		return 2
	}
}

// ServiceLabel names a service type for display.
func ServiceLabel(serviceType string) string {
	switch ServiceType(strings.ToLower(serviceType)) {
	case ServiceAirPlayAudio:
		return "AirPlay Audio"
	case ServiceAirPlayVideo:
		return "AirPlay Video"
	default:
		return serviceType
	}
}

// Combine folds the merged audio and video browse results into the
// device-listing view: one entry per host, capability flags for each service
// type seen, and a human version label.
func Combine(audio, video []Device) []CombinedDevice {
	combined := make(map[string]*CombinedDevice)
	order := make([]string, 0)

	add := func(d Device, isAudio bool) {
		key := strings.ToLower(d.Hostname)
		if key == "" {
			key = strings.ToLower(d.DisplayName)
		}

		entry, found := combined[key]
		if !found {
			entry = &CombinedDevice{
				DisplayName: d.DisplayName,
				Hostname:    d.Hostname,
				Address:     d.Address,
			}
			combined[key] = entry
			order = append(order, key)
		}

		if isAudio {
			entry.AirPlay2 = true
		} else {
			entry.AirPlay1 = true
		}
		if entry.Address == "" {
			entry.Address = d.Address
		}
		if entry.Hostname == "" {
			entry.Hostname = d.Hostname
		}
		entry.RawRecords = append(entry.RawRecords, d.RawRecords...)
	}

	for _, d := range audio {
		add(d, true)
	}
	for _, d := range video {
		add(d, false)
	}

	result := make([]CombinedDevice, 0, len(order))
	for _, key := range order {
		entry := combined[key]
		entry.Versions = versionLabel(entry.AirPlay2, entry.AirPlay1)
		result = append(result, *entry)
	}
	return result
}

func versionLabel(audio, video bool) string {
	labels := make([]string, 0, 2)
	if audio {
		labels = append(labels, "AirPlay 2")
	}
	if video {
		labels = append(labels, "AirPlay Video")
	}
	return strings.Join(labels, ", ")
}
