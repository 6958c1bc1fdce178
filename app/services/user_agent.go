package services

import "strings"

// Device types
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"

	UnknownLabel = "Unknown"
)

// ClientInfo is the coarse classification of a user agent string.
type ClientInfo struct {
	DeviceType string
	Browser    string
	OS         string
}

type uaRule struct {
	label   string
	match   []string
	exclude []string
}

func (r uaRule) matches(ua string) bool {
	for _, x := range r.exclude {
		if strings.Contains(ua, x) {
			return false
		}
	}
	for _, m := range r.match {
		if strings.Contains(ua, m) {
			return true
		}
	}
	return false
}

func firstMatch(rules []uaRule, ua string) string {
	for _, r := range rules {
		if r.matches(ua) {
			return r.label
		}
	}
	return UnknownLabel
}

// Order matters: more specific browsers embed the tokens of generic ones.
var browserRules = []uaRule{
	{label: "Microsoft Edge", match: []string{"edg/", "edga/", "edgios/", "edge/"}},
	{label: "Opera", match: []string{"opr/", "opera"}},
	{label: "Samsung Browser", match: []string{"samsungbrowser"}},
	{label: "Firefox", match: []string{"firefox", "fxios"}},
	{label: "Chrome", match: []string{"chrome", "crios", "chromium"}},
	{label: "Safari", match: []string{"safari"}},
	{label: "Internet Explorer", match: []string{"msie", "trident"}},
}

var osRules = []uaRule{
	{label: "Windows 10/11", match: []string{"windows nt 10"}},
	{label: "Windows 8.1", match: []string{"windows nt 6.3"}},
	{label: "Windows 8", match: []string{"windows nt 6.2"}},
	{label: "Windows 7", match: []string{"windows nt 6.1"}},
	{label: "Windows Vista", match: []string{"windows nt 6.0"}},
	{label: "Windows XP", match: []string{"windows nt 5.1"}},
	{label: "Windows", match: []string{"windows"}},
	{label: "iOS", match: []string{"iphone", "ipad", "ipod"}},
	{label: "Android", match: []string{"android"}},
	{label: "Chrome OS", match: []string{"cros "}},
	{label: "macOS", match: []string{"macintosh", "mac os x"}},
	{label: "Linux", match: []string{"linux"}},
}

var (
	botMarkers    = []string{"bot", "crawler", "spider", "slurp", "facebookexternalhit"}
	tabletMarkers = []string{"tablet", "ipad", "kindle", "silk/"}
	mobileMarkers = []string{"mobile", "android", "iphone", "ipod", "windows phone", "blackberry", "opera mini"}
)

// DetectClient classifies a user agent. Matching is case insensitive.
func DetectClient(userAgent string) ClientInfo {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" || ua == "unknown" {
		return ClientInfo{DeviceType: DeviceUnknown, Browser: UnknownLabel, OS: UnknownLabel}
	}
	return ClientInfo{
		DeviceType: detectDeviceType(ua),
		Browser:    firstMatch(browserRules, ua),
		OS:         firstMatch(osRules, ua),
	}
}

func detectDeviceType(ua string) string {
	if containsAny(ua, botMarkers) {
		return DeviceBot
	}
	// Android tablets omit the "mobile" token.
	if containsAny(ua, tabletMarkers) || (strings.Contains(ua, "android") && !strings.Contains(ua, "mobile")) {
		return DeviceTablet
	}
	if containsAny(ua, mobileMarkers) {
		return DeviceMobile
	}
	return DeviceDesktop
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
