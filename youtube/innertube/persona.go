package innertube

import (
	"strings"
)

// Persona identifies the InnerTube client a catalog request impersonates.
// Different personas see different format sets and permissions; none is
// guaranteed to succeed for a given video.
type Persona string

const (
	// PersonaWeb is the desktop web player, the default persona.
	PersonaWeb Persona = "WEB"
	// PersonaAndroid is the Android app client.
	PersonaAndroid Persona = "ANDROID"
	// PersonaIOS is the iOS app client.
	PersonaIOS Persona = "IOS"
	// PersonaTV is the living-room HTML5 client.
	PersonaTV Persona = "TVHTML5"
)

// DefaultOrder is the persona order used when iterating catalog attempts.
var DefaultOrder = []Persona{PersonaWeb, PersonaAndroid, PersonaIOS, PersonaTV}

// personaVersions carries the pinned client version sent for each persona.
// The WEB version may be superseded by the one scraped from the site.
var personaVersions = map[Persona]string{
	PersonaWeb:     defaultClientVersion,
	PersonaAndroid: "20.10.38",
	PersonaIOS:     "20.10.4",
	PersonaTV:      "7.20250312.16.00",
}

// code returns the numeric X-YouTube-Client-Name value for the persona.
func (p Persona) code() string {
	switch Persona(strings.ToUpper(string(p))) {
	case PersonaWeb:
		return "1"
	case PersonaAndroid:
		return "3"
	case PersonaIOS:
		return "5"
	case PersonaTV:
		return "7"
	default:
		return ""
	}
}

// version returns the client version for the persona, defaulting to the
// desktop web version for unknown personas.
func (p Persona) version() string {
	if v, ok := personaVersions[Persona(strings.ToUpper(string(p)))]; ok {
		return v
	}
	return defaultClientVersion
}

// context builds the "client" object of the InnerTube request context and the
// request User-Agent matching the persona's identity.
func (p Persona) context(version string) (map[string]any, string) {
	client := map[string]any{
		"clientName":    string(p),
		"clientVersion": version,
	}
	switch Persona(strings.ToUpper(string(p))) {
	case PersonaAndroid:
		client["androidSdkVersion"] = 30
		client["osName"] = "Android"
		client["osVersion"] = "11"
		ua := "com.google.android.youtube/" + version + " (Linux; U; Android 11) gzip"
		client["userAgent"] = ua
		return client, ua
	case PersonaIOS:
		client["deviceMake"] = "Apple"
		client["deviceModel"] = "iPhone16,2"
		client["osName"] = "iPhone"
		client["osVersion"] = "18.3.2.22D82"
		ua := "com.google.ios.youtube/" + version + " (iPhone16,2; U; CPU iOS 18_3_2 like Mac OS X;)"
		client["userAgent"] = ua
		return client, ua
	case PersonaTV:
		client["clientScreen"] = "TVHTML5"
		return client, userAgentValue
	default:
		return client, userAgentValue
	}
}
