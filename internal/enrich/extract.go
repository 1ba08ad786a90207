// Package enrich discovers social-media profile links for stored
// initiatives, from source contact tags and from their public websites.
package enrich

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// platformPatterns match canonical profile URLs in page bodies. Only the
// first match per platform is kept. Regex scraping is deliberately crude;
// failures degrade to no links, never to an error.
var platformPatterns = map[string]*regexp.Regexp{
	"facebook":  regexp.MustCompile(`(?i)https?://(?:www\.)?facebook\.com/[A-Za-z0-9_.-]+`),
	"instagram": regexp.MustCompile(`(?i)https?://(?:www\.)?instagram\.com/[A-Za-z0-9_.]+`),
	"twitter":   regexp.MustCompile(`(?i)https?://(?:www\.)?(?:twitter|x)\.com/[A-Za-z0-9_]+`),
	"linkedin":  regexp.MustCompile(`(?i)https?://(?:[a-z]{2}\.|www\.)?linkedin\.com/(?:company|in)/[A-Za-z0-9_\-.]+`),
	"youtube":   regexp.MustCompile(`(?i)https?://(?:www\.)?youtube\.com/(?:channel/|c/|user/|@)[A-Za-z0-9_\-.]+`),
	"tiktok":    regexp.MustCompile(`(?i)https?://(?:www\.)?tiktok\.com/@[A-Za-z0-9_.]+`),
}

// maxBodyBytes caps how much of a page the extractor reads.
const maxBodyBytes = 512 * 1024

// ExtractorOptions configures the website scrape strategy.
type ExtractorOptions struct {
	Timeout   time.Duration
	UserAgent string
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Extractor pulls social links from initiative websites. All of its
// failures are soft: a fetch error yields an empty result for that site.
type Extractor struct {
	client    *http.Client
	userAgent string
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ExtractorOptions) *Extractor {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "initiative-cli/1.0 (+https://github.com/transition-map/initiative-cli)"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Extractor{client: client, userAgent: ua}
}

// FromWebsite fetches the site once and scans the body for profile URLs.
// Network errors, timeouts, and non-2xx responses all return an empty map.
func (e *Extractor) FromWebsite(ctx context.Context, websiteURL string) map[string]string {
	log := zap.L().With(zap.String("component", "enrich.extractor"), zap.String("website", websiteURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, websiteURL, nil)
	if err != nil {
		log.Debug("invalid website url", zap.Error(err))
		return nil
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		log.Debug("website fetch failed", zap.Error(err))
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug("website returned non-2xx", zap.Int("status", resp.StatusCode))
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.Debug("website read failed", zap.Error(err))
		return nil
	}

	return scanBody(string(body))
}

// scanBody applies each platform pattern and keeps the first match,
// normalized.
func scanBody(body string) map[string]string {
	var links map[string]string
	for platform, re := range platformPatterns {
		match := re.FindString(body)
		if match == "" {
			continue
		}
		normalized := NormalizeSocialURL(platform, match)
		if normalized == "" {
			continue
		}
		if links == nil {
			links = make(map[string]string)
		}
		links[platform] = normalized
	}
	return links
}

// FromTags reads contact fields off a raw source tag map. Both the
// "contact:"-prefixed keys and their bare aliases are recognized.
func FromTags(tags map[string]string) map[string]string {
	var links map[string]string
	for platform := range platformPatterns {
		value := tags["contact:"+platform]
		if value == "" {
			value = tags[platform]
		}
		normalized := NormalizeSocialURL(platform, value)
		if normalized == "" {
			continue
		}
		if links == nil {
			links = make(map[string]string)
		}
		links[platform] = normalized
	}
	return links
}

// Merge combines tag-derived and website-derived links; website values win
// on collision since they are generally more current.
func Merge(fromTags, fromWebsite map[string]string) map[string]string {
	if len(fromTags) == 0 {
		return fromWebsite
	}
	merged := make(map[string]string, len(fromTags)+len(fromWebsite))
	for k, v := range fromTags {
		merged[k] = v
	}
	for k, v := range fromWebsite {
		merged[k] = v
	}
	return merged
}

// NormalizeSocialURL canonicalizes a raw tag or scraped value into an
// absolute profile URL. Empty input yields "". Absolute http(s) URLs pass
// through unchanged; anything else is treated as a handle: a leading "@"
// is stripped and the platform's canonical template applied. LinkedIn
// distinguishes company pages from personal profiles.
func NormalizeSocialURL(platform, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}

	handle := strings.TrimPrefix(raw, "@")
	if handle == "" {
		return ""
	}

	switch platform {
	case "facebook":
		return "https://www.facebook.com/" + handle
	case "instagram":
		return "https://www.instagram.com/" + handle
	case "twitter":
		return "https://twitter.com/" + handle
	case "linkedin":
		if strings.HasPrefix(handle, "company/") {
			return "https://www.linkedin.com/" + handle
		}
		return "https://www.linkedin.com/in/" + handle
	case "youtube":
		return "https://www.youtube.com/@" + handle
	case "tiktok":
		return "https://www.tiktok.com/@" + handle
	default:
		return ""
	}
}
