// Package device derives audit-friendly device descriptions from User-Agent strings.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mssola/useragent"
)

// ParseUserAgent turns a raw User-Agent header into a short display name
// such as "Chrome on Mac OS X" for audit payloads and session views.
func ParseUserAgent(rawUA string) string {
	if strings.TrimSpace(rawUA) == "" {
		return "Unknown Device"
	}

	ua := useragent.New(rawUA)

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}

	osName := ua.OSInfo().Name
	if osName == "" {
		osName = ua.Platform()
	}
	if osName == "" {
		osName = "Unknown OS"
	}

	return strings.TrimSpace(browser + " on " + osName)
}

// Fingerprint computes a stable identifier for the joining device. Only the
// browser major version participates, so routine browser updates do not
// change the fingerprint while switching browsers or machines does.
// Returns "" for an empty User-Agent.
func Fingerprint(rawUA string) string {
	if strings.TrimSpace(rawUA) == "" {
		return ""
	}

	ua := useragent.New(rawUA)
	browser, version := ua.Browser()
	major := version
	if idx := strings.Index(version, "."); idx != -1 {
		major = version[:idx]
	}

	seed := strings.Join([]string{browser, major, ua.OS(), ua.Platform()}, "|")
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}
