package discovery

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// avahi-browse -p emits one event per line, semicolon-delimited. Only "="
// events carry a fully resolved record:
//
//	=;eth0;IPv4;D6BF5E\064Living\032Room;_raop._tcp;local;livingroom.local;192.168.2.10;7000;"fv=1.2"
//
// "+" (seen) and "-" (removed) events carry no address and are ignored.
const resolvedFieldCount = 10

var (
	escapeRe   = regexp.MustCompile(`\\(\d{3})`)
	firmwareRe = regexp.MustCompile(`"fv=([^"]+)"`)
	featuresRe = regexp.MustCompile(`"ft=([^"]+)"`)
)

// ParseBrowseOutput parses raw avahi-browse -rtp output into provisional
// devices, one per resolved line. Malformed lines are skipped, never fatal.
func ParseBrowseOutput(output string) []Device {
	devices := make([]Device, 0)

	for _, line := range strings.Split(output, "\n") {
		if !strings.HasPrefix(line, "=") {
			continue
		}

		parts := strings.Split(line, ";")
		if len(parts) < resolvedFieldCount {
			log.Debug().Int("fields", len(parts)).Msg("Skipping short resolved record")
			continue
		}

		iface := parts[1]
		protocol := parts[2]
		rawName := parts[3]
		serviceType := parts[4]
		hostname := parts[6]
		address := parts[7]
		port, _ := strconv.Atoi(parts[8])
		txt := strings.Join(parts[9:], ";")

		devices = append(devices, Device{
			DisplayName:     displayName(rawName, hostname),
			Hostname:        hostname,
			ServiceType:     serviceType,
			Interface:       iface,
			Protocol:        protocol,
			Address:         address,
			Port:            port,
			FirmwareVersion: txtValue(firmwareRe, txt),
			FeatureFlags:    txtValue(featuresRe, txt),
			RawRecords:      []string{line},
		})
	}

	return devices
}

// DecodeServiceName resolves avahi's \NNN decimal escapes (\064 = '@',
// \032 = ' ', \126 = '~', and so on) to their byte values. Avahi escapes
// each byte of a multi-byte UTF-8 sequence separately, so the replacement
// must be the raw byte, not the codepoint; adjacent escapes then reassemble
// into the original UTF-8 text.
func DecodeServiceName(raw string) string {
	return escapeRe.ReplaceAllStringFunc(raw, func(esc string) string {
		n, err := strconv.Atoi(esc[1:])
		if err != nil || n < 0 || n > 255 {
			return esc
		}
		return string([]byte{byte(n)})
	})
}

// displayName derives the human device name from a raw advertised name.
// AirPlay advertisements conventionally look like "112233445566@Name"; the
// identifier prefix before the '@' is noise. Names with no separator are used
// whole, and an empty decode falls back to the hostname's first label with
// hyphens read as spaces.
func displayName(rawName, hostname string) string {
	decoded := DecodeServiceName(rawName)

	name := decoded
	if at := strings.Index(decoded, "@"); at >= 0 {
		name = decoded[at+1:]
	}
	name = strings.TrimSpace(name)

	if name == "" && hostname != "" {
		label, _, _ := strings.Cut(hostname, ".")
		name = strings.ReplaceAll(label, "-", " ")
	}

	return name
}

// txtValue extracts one quoted key=value token from the TXT field. Absence is
// normal: not every receiver advertises firmware or feature records.
func txtValue(re *regexp.Regexp, txt string) string {
	match := re.FindStringSubmatch(txt)
	if match == nil {
		return ""
	}
	return match[1]
}
