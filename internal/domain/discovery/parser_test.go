package discovery

import (
	"testing"
)

func TestParseBrowseOutput_ResolvedRecord(t *testing.T) {
	output := `+;eth0;IPv4;D6BF5E\064Living\032Room;_raop._tcp;local
=;eth0;IPv4;D6BF5E\064Living\032Room;_raop._tcp;local;livingroom.local;192.168.2.10;7000;"fv=1.2"`

	devices := ParseBrowseOutput(output)
	if len(devices) != 1 {
		t.Fatalf("got %d devices, want 1", len(devices))
	}

	d := devices[0]
	if d.DisplayName != "Living Room" {
		t.Errorf("DisplayName = %q, want %q", d.DisplayName, "Living Room")
	}
	if d.Hostname != "livingroom.local" {
		t.Errorf("Hostname = %q, want %q", d.Hostname, "livingroom.local")
	}
	if d.Address != "192.168.2.10" {
		t.Errorf("Address = %q, want %q", d.Address, "192.168.2.10")
	}
	if d.Port != 7000 {
		t.Errorf("Port = %d, want 7000", d.Port)
	}
	if d.FirmwareVersion != "1.2" {
		t.Errorf("FirmwareVersion = %q, want %q", d.FirmwareVersion, "1.2")
	}
	if d.ServiceType != "_raop._tcp" {
		t.Errorf("ServiceType = %q, want %q", d.ServiceType, "_raop._tcp")
	}
	if len(d.RawRecords) != 1 {
		t.Errorf("RawRecords has %d entries, want 1", len(d.RawRecords))
	}
}

func TestParseBrowseOutput_SkipsUnresolvedAndShortLines(t *testing.T) {
	output := `+;eth0;IPv4;Bedroom;_raop._tcp;local
-;eth0;IPv4;Bedroom;_raop._tcp;local
=;eth0;IPv4;too-short
=;eth0;IPv4;AABBCC\064Bedroom;_raop._tcp;local;bedroom.local;192.168.2.20;7000;"am=AppleTV"`

	devices := ParseBrowseOutput(output)
	if len(devices) != 1 {
		t.Fatalf("got %d devices, want 1", len(devices))
	}
	if devices[0].DisplayName != "Bedroom" {
		t.Errorf("DisplayName = %q, want %q", devices[0].DisplayName, "Bedroom")
	}
	// No fv/ft tokens in the TXT field.
	if devices[0].FirmwareVersion != "" || devices[0].FeatureFlags != "" {
		t.Errorf("metadata = (%q, %q), want empty", devices[0].FirmwareVersion, devices[0].FeatureFlags)
	}
}

func TestParseBrowseOutput_Empty(t *testing.T) {
	if got := ParseBrowseOutput(""); len(got) != 0 {
		t.Errorf("got %d devices from empty output, want 0", len(got))
	}
}

func TestParseBrowseOutput_FeatureFlags(t *testing.T) {
	output := `=;wlan0;IPv6;AABBCC\064Kitchen;_airplay._tcp;local;kitchen.local;fe80::1;7000;"ft=0x4A7FDFD5,0xBC157FDE" "fv=p20.78000.12"`

	devices := ParseBrowseOutput(output)
	if len(devices) != 1 {
		t.Fatalf("got %d devices, want 1", len(devices))
	}
	if devices[0].FeatureFlags != "0x4A7FDFD5,0xBC157FDE" {
		t.Errorf("FeatureFlags = %q", devices[0].FeatureFlags)
	}
	if devices[0].FirmwareVersion != "p20.78000.12" {
		t.Errorf("FirmwareVersion = %q", devices[0].FirmwareVersion)
	}
}

func TestDecodeServiceName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"at and space", `D6BF5E\064Living\032Room`, "D6BF5E@Living Room"},
		{"tilde and parens", `Caf\126\040TV\041`, "Caf~(TV)"},
		{"utf8 bytes reassemble", `Caf\195\169`, "Café"},
		{"utf8 three byte sequence", `\226\152\134\032Lounge`, "☆ Lounge"},
		{"no escapes", "Bedroom", "Bedroom"},
		{"out of range left alone", `Bad\999Esc`, `Bad\999Esc`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeServiceName(tt.raw); got != tt.want {
				t.Errorf("DecodeServiceName(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDisplayName_Fallbacks(t *testing.T) {
	tests := []struct {
		name     string
		rawName  string
		hostname string
		want     string
	}{
		{"prefix stripped", `D6BF5E\064Living\032Room`, "livingroom.local", "Living Room"},
		{"no separator uses whole name", `Office\032Speaker`, "office.local", "Office Speaker"},
		{"non-ascii name decoded", `AABBCC\064Caf\195\169`, "cafe.local", "Café"},
		{"empty name falls back to hostname label", `AABBCC\064`, "living-room.local", "living room"},
		{"empty name empty hostname", `\064`, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := displayName(tt.rawName, tt.hostname); got != tt.want {
				t.Errorf("displayName(%q, %q) = %q, want %q", tt.rawName, tt.hostname, got, tt.want)
			}
		})
	}
}
