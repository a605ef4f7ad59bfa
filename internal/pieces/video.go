package pieces

import (
	"net/url"
	"regexp"
	"strings"

	"killay/domain/catalog"
)

var (
	youtubeIDPattern = regexp.MustCompile(`(?:[?&]v=|youtu\.be/|/embed/|/shorts/|/live/)([A-Za-z0-9_-]+)`)
	vimeoIDPattern   = regexp.MustCompile(`vimeo\.com/(?:.*/)?(\d+)`)
)

var providerHosts = map[string]catalog.ProviderName{
	"youtube.com":          catalog.ProviderYoutube,
	"youtu.be":             catalog.ProviderYoutube,
	"youtube-nocookie.com": catalog.ProviderYoutube,
	"vimeo.com":            catalog.ProviderVimeo,
	"player.vimeo.com":     catalog.ProviderVimeo,
}

// parseVideoURL accepts absolute http(s) URLs only
func parseVideoURL(raw string) (*url.URL, bool) {
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	return u, true
}

// DetectProvider maps a video URL to its player by host name
func DetectProvider(raw string) (catalog.ProviderName, bool) {
	u, ok := parseVideoURL(raw)
	if !ok {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	name, known := providerHosts[host]
	return name, known
}

// EmbedID extracts the player id from a video URL, falling back to the URL itself
func EmbedID(provider catalog.ProviderName, raw string) string {
	pattern := youtubeIDPattern
	if provider == catalog.ProviderVimeo {
		pattern = vimeoIDPattern
	}
	if m := pattern.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return raw
}
