// Package preview fetches a short summary of a product page for display
// while the workflow analysis is still running.
package preview

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/leadscout/backend/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	userAgent      = "LeadScout-Preview/1.0"
	maxBodySize    = 2 * 1024 * 1024
	maxDescription = 300
	maxTitle       = 150
)

var errBlockedAddress = errors.New("address is not publicly routable")

type Fetcher struct {
	timeout   time.Duration
	logger    *logrus.Logger
	titles    *TextCleaner
	summaries *TextCleaner
	// control vets every dialed address, redirects included.
	control func(network, address string, c syscall.RawConn) error
}

func NewFetcher(timeout time.Duration, logger *logrus.Logger) *Fetcher {
	return &Fetcher{
		timeout:   timeout,
		logger:    logger,
		titles:    NewTextCleaner(maxTitle),
		summaries: NewTextCleaner(maxDescription),
		control:   refusePrivate,
	}
}

// refusePrivate rejects loopback, private, link-local (cloud metadata
// included), multicast and unspecified destinations.
func refusePrivate(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	ip = ip.Unmap()
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() || ip.IsUnspecified() {
		return fmt.Errorf("%s: %w", ip, errBlockedAddress)
	}
	return nil
}

func (f *Fetcher) transport() *http.Transport {
	dialer := &net.Dialer{
		Timeout: f.timeout,
		Control: f.control,
	}
	return &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   f.timeout,
		ResponseHeaderTimeout: f.timeout,
		MaxIdleConns:          1,
		IdleConnTimeout:       30 * time.Second,
	}
}

// Fetch loads the page head and extracts title, description, image and icon.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*models.ProductPreview, error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("unsupported product URL %q", pageURL)
	}

	var (
		preview    models.ProductPreview
		visitError error
	)

	// Create a new collector for each page to avoid state issues
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.MaxDepth(1),
		colly.MaxBodySize(maxBodySize),
	)
	c.SetRequestTimeout(f.timeout)
	c.WithTransport(f.transport())

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	c.OnHTML("head", func(e *colly.HTMLElement) {
		preview.Title = f.titles.Clean(firstNonEmpty(
			e.ChildAttr(`meta[property="og:title"]`, "content"),
			e.ChildText("title"),
		))
		preview.Description = f.summaries.Clean(firstNonEmpty(
			e.ChildAttr(`meta[property="og:description"]`, "content"),
			e.ChildAttr(`meta[name="description"]`, "content"),
			e.ChildAttr(`meta[name="twitter:description"]`, "content"),
		))
		preview.SiteName = f.titles.Clean(e.ChildAttr(`meta[property="og:site_name"]`, "content"))

		if image := e.ChildAttr(`meta[property="og:image"]`, "content"); image != "" {
			preview.Image = e.Request.AbsoluteURL(image)
		}

		icon := firstNonEmpty(
			e.ChildAttr(`link[rel="icon"]`, "href"),
			e.ChildAttr(`link[rel="shortcut icon"]`, "href"),
			e.ChildAttr(`link[rel="apple-touch-icon"]`, "href"),
		)
		if icon == "" {
			icon = "/favicon.ico"
		}
		preview.Favicon = e.Request.AbsoluteURL(icon)
	})

	c.OnError(func(r *colly.Response, err error) {
		visitError = err
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("failed to visit page: %w", err)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if visitError != nil {
		return nil, fmt.Errorf("processing error: %w", visitError)
	}
	if preview.Title == "" && preview.Description == "" {
		return nil, fmt.Errorf("no preview content on %s", pageURL)
	}

	f.logger.WithFields(logrus.Fields{
		"url":             pageURL,
		"title":           preview.Title,
		"has_description": preview.Description != "",
		"has_image":       preview.Image != "",
	}).Debug("Preview extracted")

	return &preview, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
