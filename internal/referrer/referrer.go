// Package referrer classifies raw Referer headers into a canonical source
// name and a traffic medium.
package referrer

import (
	"net/url"
	"strings"
)

const (
	MediumDirect  = "direct"
	MediumSearch  = "search"
	MediumSocial  = "social"
	MediumUnknown = "unknown"
)

var mediums = map[string]string{
	"google":     MediumSearch,
	"bing":       MediumSearch,
	"yahoo":      MediumSearch,
	"duckduckgo": MediumSearch,
	"baidu":      MediumSearch,
	"yandex":     MediumSearch,
	"ecosia":     MediumSearch,
	"facebook":   MediumSocial,
	"twitter":    MediumSocial,
	"x":          MediumSocial,
	"t":          MediumSocial, // t.co
	"instagram":  MediumSocial,
	"linkedin":   MediumSocial,
	"reddit":     MediumSocial,
	"pinterest":  MediumSocial,
	"tiktok":     MediumSocial,
	"youtube":    MediumSocial,
}

// Parse derives (name, medium) from a raw Referer value. An empty referrer
// is direct traffic; a referrer that cannot be parsed degrades to an empty
// name with the unknown medium, never an error.
func Parse(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", MediumDirect
	}

	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "", MediumUnknown
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")

	name := sourceName(host)
	if medium, ok := mediums[name]; ok {
		return name, medium
	}
	return host, MediumUnknown
}

// sourceName reduces a host to its registrable label, so google.co.jp and
// google.com both classify as "google".
func sourceName(host string) string {
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return host
	}
	candidate := labels[len(labels)-2]
	// Two-label public suffixes such as co.uk or com.br.
	if len(labels) >= 3 && (candidate == "co" || candidate == "com" || candidate == "net" || candidate == "org") {
		candidate = labels[len(labels)-3]
	}
	return candidate
}
