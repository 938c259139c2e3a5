// Package useragent parses HTTP User-Agent strings into the device signals
// the segment evaluator targets: device type, operating system and browser.
package useragent

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Device type values produced by Parse.
const (
	DeviceTypeMobile  = "mobile"
	DeviceTypeTablet  = "tablet"
	DeviceTypeDesktop = "desktop"
	DeviceTypeBot     = "bot"
	DeviceTypeUnknown = "unknown"
)

// UserAgent contains the parsed information from a user agent string.
type UserAgent struct {
	raw        string
	deviceType string
	os         string
	browser    string
	browserVer string
}

// String returns the raw user agent string.
func (ua UserAgent) String() string { return ua.raw }

// DeviceType returns mobile, tablet, desktop, bot or unknown.
func (ua UserAgent) DeviceType() string { return ua.deviceType }

// OS returns the operating system name.
func (ua UserAgent) OS() string { return ua.os }

// Browser returns the browser name.
func (ua UserAgent) Browser() string { return ua.browser }

// BrowserVersion returns the browser version as present in the agent string.
func (ua UserAgent) BrowserVersion() string { return ua.browserVer }

// IsBot reports whether the user agent identifies an automated client.
func (ua UserAgent) IsBot() bool { return ua.deviceType == DeviceTypeBot }

// IsMobile reports whether the user agent identifies a mobile device.
func (ua UserAgent) IsMobile() bool { return ua.deviceType == DeviceTypeMobile }

var (
	botPattern    = regexp.MustCompile(`(?i)(bot|crawler|spider|slurp|curl/|wget/|python-requests|headless)`)
	tabletPattern = regexp.MustCompile(`(?i)(ipad|tablet|kindle|silk|playbook)`)
	mobilePattern = regexp.MustCompile(`(?i)(mobile|iphone|ipod|windows phone|blackberry|opera mini)`)

	// Order matters: engines masquerade as each other, so the more specific
	// tokens come before the ones they embed (Edge before Chrome, Chrome
	// before Safari).
	browserPatterns = []struct {
		name string
		re   *regexp.Regexp
	}{
		{"edge", regexp.MustCompile(`(?i)edg(?:e|a|ios)?/([\d.]+)`)},
		{"opera", regexp.MustCompile(`(?i)(?:opera|opr)[/ ]([\d.]+)`)},
		{"samsung internet", regexp.MustCompile(`(?i)samsungbrowser/([\d.]+)`)},
		{"chrome", regexp.MustCompile(`(?i)(?:chrome|crios)/([\d.]+)`)},
		{"firefox", regexp.MustCompile(`(?i)(?:firefox|fxios)/([\d.]+)`)},
		{"safari", regexp.MustCompile(`(?i)version/([\d.]+).*safari`)},
		{"internet explorer", regexp.MustCompile(`(?i)(?:msie |rv:)([\d.]+)`)},
	}

	osPatterns = []struct {
		name string
		re   *regexp.Regexp
	}{
		{"windows", regexp.MustCompile(`(?i)windows nt`)},
		{"ios", regexp.MustCompile(`(?i)(iphone|ipad|ipod)`)},
		{"mac os", regexp.MustCompile(`(?i)mac os x`)},
		{"android", regexp.MustCompile(`(?i)android`)},
		{"chrome os", regexp.MustCompile(`(?i)cros`)},
		{"linux", regexp.MustCompile(`(?i)linux`)},
	}

	titleCaser = cases.Title(language.English)
)

// Parse extracts device, OS and browser information from a user agent
// string. It never fails; unrecognized agents come back as unknown.
func Parse(raw string) UserAgent {
	ua := UserAgent{
		raw:        raw,
		deviceType: DeviceTypeUnknown,
	}
	if strings.TrimSpace(raw) == "" {
		return ua
	}

	switch {
	case botPattern.MatchString(raw):
		ua.deviceType = DeviceTypeBot
	case tabletPattern.MatchString(raw):
		ua.deviceType = DeviceTypeTablet
	case mobilePattern.MatchString(raw):
		ua.deviceType = DeviceTypeMobile
	default:
		ua.deviceType = DeviceTypeDesktop
	}

	for _, p := range osPatterns {
		if p.re.MatchString(raw) {
			ua.os = titleCaser.String(p.name)
			break
		}
	}

	for _, p := range browserPatterns {
		if m := p.re.FindStringSubmatch(raw); m != nil {
			ua.browser = titleCaser.String(p.name)
			ua.browserVer = m[1]
			break
		}
	}

	return ua
}
