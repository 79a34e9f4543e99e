package useragent

import "strings"

// Agent is the coarse client description stored with a scan.
type Agent struct {
	Device  string
	OS      string
	Browser string
}

type rule struct {
	token string
	name  string
}

// Order matters: the first matching token wins.
var (
	osRules = []rule{
		{"iphone", "iOS"}, {"ipad", "iOS"}, {"android", "Android"},
		{"windows", "Windows"}, {"mac os x", "macOS"}, {"cros", "ChromeOS"}, {"linux", "Linux"},
	}
	browserRules = []rule{
		{"edg/", "Edge"}, {"opr/", "Opera"}, {"samsungbrowser", "Samsung Internet"},
		{"crios", "Chrome"}, {"chrome/", "Chrome"}, {"fxios", "Firefox"}, {"firefox/", "Firefox"},
		{"safari/", "Safari"},
	}
)

// Parse classifies a User-Agent header. Unknown parts are left empty.
func Parse(header string) Agent {
	ua := strings.ToLower(header)
	if ua == "" {
		return Agent{}
	}

	a := Agent{
		OS:      match(ua, osRules),
		Browser: match(ua, browserRules),
	}
	switch {
	case strings.Contains(ua, "bot") || strings.Contains(ua, "spider") || strings.Contains(ua, "crawl"):
		a.Device = "bot"
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		a.Device = "tablet"
	case strings.Contains(ua, "mobi") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android"):
		a.Device = "mobile"
	default:
		a.Device = "desktop"
	}
	return a
}

func match(ua string, rules []rule) string {
	for _, r := range rules {
		if strings.Contains(ua, r.token) {
			return r.name
		}
	}
	return ""
}
