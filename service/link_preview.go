package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"toolx/config"
	"toolx/entity"
	"toolx/pkg/logger"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// ErrBlockedAddress is returned when a preview target resolves to a loopback, private or
// otherwise internal address.
var ErrBlockedAddress = errors.New("target address is not allowed")

// UpstreamError reports a preview target that answered with a non-2xx status
type UpstreamError struct {
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("preview target returned status %d", e.Status)
}

// favicon link rels, most preferred first
var iconRels = []string{"icon", "shortcut icon", "apple-touch-icon"}

// LinkPreviewService fetches a page server-side and extracts its title, description, image,
// site name and favicon.
type LinkPreviewService struct {
	client   *retryablehttp.Client
	maxBytes int64
	logger   *logger.Logger
}

// NewLinkPreviewService creates a link preview service. Unless cfg.AllowPrivate is set,
// connections to internal addresses are refused at dial time, redirects included.
func NewLinkPreviewService(cfg config.LinkPreview, logger *logger.Logger) *LinkPreviewService {
	client := newRetryableClient(cfg.Timeout, 1)

	if !cfg.AllowPrivate {
		if transport, ok := client.HTTPClient.Transport.(*http.Transport); ok {
			dialer := &net.Dialer{
				Timeout:   cfg.Timeout,
				KeepAlive: 30 * time.Second,
				Control:   refuseInternal,
			}
			transport.DialContext = dialer.DialContext
		}

		checkRetry := client.CheckRetry
		client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
			if errors.Is(err, ErrBlockedAddress) {
				return false, nil
			}
			return checkRetry(ctx, resp, err)
		}
	}

	return &LinkPreviewService{client: client, maxBytes: cfg.MaxBytes, logger: logger}
}

// refuseInternal runs after DNS resolution, so address is the IP actually dialed.
func refuseInternal(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return ErrBlockedAddress
	}
	return nil
}

// ParsePreviewURL validates a user supplied preview target.
func ParsePreviewURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &entity.ValidationError{Reason: "url is required"}
	}

	target, err := url.Parse(raw)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return nil, &entity.ValidationError{Reason: "invalid url"}
	}
	return target, nil
}

// Preview fetches rawURL and builds its preview card.
func (s *LinkPreviewService) Preview(ctx context.Context, rawURL string) (*entity.LinkPreview, error) {
	target, err := ParsePreviewURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, &entity.ValidationError{Reason: "invalid url"}
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("User-Agent", "ToolXLinkPreview/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warnw("Link preview fetch failed", "url", target.String(), "error", err)
		return nil, fmt.Errorf("failed to fetch %s: %w", target.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Status: resp.StatusCode}
	}

	// relative links resolve against the page actually served, after redirects
	page := target
	if resp.Request != nil && resp.Request.URL != nil {
		page = resp.Request.URL
	}

	var body io.Reader = resp.Body
	if s.maxBytes > 0 {
		body = io.LimitReader(resp.Body, s.maxBytes)
	}
	body, err = charset.NewReader(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}

	tags := scanHead(body)

	preview := &entity.LinkPreview{
		OK:          true,
		URL:         target.String(),
		Title:       firstNonEmpty(tags.meta["og:title"], tags.meta["twitter:title"], tags.title),
		Description: firstNonEmpty(tags.meta["og:description"], tags.meta["twitter:description"], tags.meta["description"]),
		Image:       absolutize(page, firstNonEmpty(tags.meta["og:image"], tags.meta["twitter:image"])),
		SiteName:    firstNonEmpty(tags.meta["og:site_name"], target.Hostname()),
	}

	icon := ""
	for _, rel := range iconRels {
		if href := tags.icons[rel]; href != "" {
			icon = href
			break
		}
	}
	if icon == "" {
		icon = (&url.URL{Scheme: target.Scheme, Host: target.Host, Path: "/favicon.ico"}).String()
	}
	preview.Favicon = absolutize(page, icon)

	return preview, nil
}

type headTags struct {
	title string
	meta  map[string]string
	icons map[string]string
}

// scanHead tokenizes the document until the body starts, keeping the first value seen for
// every meta key and icon rel. Meta keys come from property, falling back to name.
func scanHead(r io.Reader) headTags {
	tags := headTags{meta: map[string]string{}, icons: map[string]string{}}
	z := html.NewTokenizer(r)

	for {
		switch z.Next() {
		case html.ErrorToken:
			return tags
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "head" {
				return tags
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "body":
				return tags
			case "title":
				if tags.title == "" && z.Next() == html.TextToken {
					tags.title = strings.TrimSpace(string(z.Text()))
				}
			case "meta":
				attrs := readAttrs(z, hasAttr)
				key := strings.ToLower(firstNonEmpty(attrs["property"], attrs["name"]))
				content := strings.TrimSpace(attrs["content"])
				if key != "" && content != "" {
					if _, seen := tags.meta[key]; !seen {
						tags.meta[key] = content
					}
				}
			case "link":
				attrs := readAttrs(z, hasAttr)
				rel := strings.ToLower(strings.Join(strings.Fields(attrs["rel"]), " "))
				href := strings.TrimSpace(attrs["href"])
				if rel != "" && href != "" {
					if _, seen := tags.icons[rel]; !seen {
						tags.icons[rel] = href
					}
				}
			}
		}
	}
}

func readAttrs(z *html.Tokenizer, more bool) map[string]string {
	attrs := map[string]string{}
	for more {
		var key, val []byte
		key, val, more = z.TagAttr()
		attrs[strings.ToLower(string(key))] = string(val)
	}
	return attrs
}

// absolutize resolves ref against page. data: URLs pass through; unparsable refs become "".
func absolutize(page *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(ref), "data:") {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return page.ResolveReference(parsed).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
