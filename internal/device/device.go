// Package device derives a coarse device fingerprint from request headers.
// It never calls out to a third party.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// Class is the coarse form factor of the requesting device.
type Class string

const (
	ClassMobile  Class = "mobile"
	ClassTablet  Class = "tablet"
	ClassDesktop Class = "desktop"
	ClassUnknown Class = "unknown"
)

// Request headers the web client sets alongside User-Agent.
const (
	HeaderScreenResolution = "X-Screen-Resolution"
	HeaderTimezone         = "X-Timezone"
)

// Info is the forensic device snapshot attached to audit entries.
type Info struct {
	Platform         string `json:"platform,omitempty"`
	Browser          string `json:"browser,omitempty"`
	ScreenResolution string `json:"screen_resolution,omitempty"`
	Timezone         string `json:"timezone,omitempty"`
	Class            Class  `json:"class,omitempty"`
	UserAgent        string `json:"user_agent,omitempty"`
	IP               string `json:"ip,omitempty"`
}

// FromRequest builds Info from r's headers. ip is supplied by the caller
// because proxy trust is a transport concern.
func FromRequest(r *http.Request, ip string) Info {
	if r == nil {
		return Info{Class: ClassUnknown, IP: ip}
	}
	info := Parse(r.UserAgent())
	info.ScreenResolution = clip(r.Header.Get(HeaderScreenResolution), 32)
	info.Timezone = clip(r.Header.Get(HeaderTimezone), 64)
	info.IP = ip
	return info
}

// Parse classifies a User-Agent string.
func Parse(userAgent string) Info {
	ua := strings.ToLower(userAgent)
	return Info{
		Platform:  platform(ua),
		Browser:   browser(ua),
		Class:     classify(ua),
		UserAgent: clip(userAgent, 512),
	}
}

// Fingerprint hashes the stable device attributes. IP is excluded.
func (i Info) Fingerprint() string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		i.Platform, i.Browser, i.ScreenResolution, i.Timezone, string(i.Class),
	}, "|")))
	return hex.EncodeToString(sum[:8])
}

func platform(ua string) string {
	switch {
	case ua == "":
		return "unknown"
	case strings.Contains(ua, "android"):
		return "android"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ipod"):
		return "ios"
	case strings.Contains(ua, "windows"):
		return "windows"
	case strings.Contains(ua, "mac os"), strings.Contains(ua, "macintosh"):
		return "macos"
	case strings.Contains(ua, "cros"):
		return "chromeos"
	case strings.Contains(ua, "linux"):
		return "linux"
	default:
		return "other"
	}
}

// browser checks the most specific tokens first: Edge and Opera also carry "chrome".
func browser(ua string) string {
	switch {
	case ua == "":
		return "unknown"
	case strings.Contains(ua, "edg/"), strings.Contains(ua, "edge/"):
		return "edge"
	case strings.Contains(ua, "opr/"), strings.Contains(ua, "opera"):
		return "opera"
	case strings.Contains(ua, "firefox/"), strings.Contains(ua, "fxios/"):
		return "firefox"
	case strings.Contains(ua, "chrome/"), strings.Contains(ua, "crios/"):
		return "chrome"
	case strings.Contains(ua, "safari/"):
		return "safari"
	default:
		return "other"
	}
}

func classify(ua string) Class {
	switch {
	case ua == "":
		return ClassUnknown
	case strings.Contains(ua, "ipad"), strings.Contains(ua, "tablet"),
		strings.Contains(ua, "android") && !strings.Contains(ua, "mobile"):
		return ClassTablet
	case strings.Contains(ua, "mobi"), strings.Contains(ua, "iphone"), strings.Contains(ua, "ipod"):
		return ClassMobile
	default:
		return ClassDesktop
	}
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
