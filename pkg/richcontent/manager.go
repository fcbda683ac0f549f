// Package richcontent turns a source page URL into preview metadata
// (title, description, image) read from the page's HTML.
package richcontent

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ai-chatbot-be/internal/constant"
	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/pkg/logger"
	"ai-chatbot-be/pkg/cache"

	"golang.org/x/net/html"
)

const (
	DefaultTTL = 24 * time.Hour

	maxBodyBytes = 2 << 20
)

type Manager struct {
	store  *cache.Store
	client *http.Client
	ttl    time.Duration
	log    logger.ILogger
	now    func() time.Time
}

func NewManager(store *cache.Store, client *http.Client, ttl time.Duration, log logger.ILogger) *Manager {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{
		store:  store,
		client: client,
		ttl:    ttl,
		log:    log,
		now:    time.Now,
	}
}

// GetPageMetadata returns cached metadata for pageURL, fetching and caching
// it when missing. A page that cannot be fetched yields (nil, nil).
func (m *Manager) GetPageMetadata(ctx context.Context, pageURL string) (*entity.RichContent, error) {
	var cached entity.RichContent
	found, err := m.store.GetJSON(ctx, pageURL, &cached)
	if err != nil {
		m.log.Warn("RICHCONTENT", "Cache read failed, fetching page", map[string]interface{}{
			"url":   pageURL,
			"error": err.Error(),
		})
	}
	if found {
		return &cached, nil
	}

	rich, err := m.fetch(ctx, pageURL)
	if err != nil || rich == nil {
		return nil, nil
	}

	// The cache only saves refetches; a failed write still returns the page.
	if err := m.store.SaveJSON(ctx, pageURL, rich, m.ttl); err != nil {
		m.log.Warn("RICHCONTENT", "Failed to cache page metadata", map[string]interface{}{
			"url":   pageURL,
			"error": err.Error(),
		})
	}
	return rich, nil
}

func (m *Manager) fetch(ctx context.Context, pageURL string) (*entity.RichContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	rich, err := ExtractMetadata(pageURL, io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	rich.Timestamp = m.now().UTC()
	return rich, nil
}

// ExtractMetadata reads og:title, og:description and og:image from an HTML
// document. Missing values fall back to <title>, the description meta tag
// and the first image inside a <figure>.
func ExtractMetadata(pageURL string, r io.Reader) (*entity.RichContent, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var (
		ogTitle, ogDescription, ogImage string
		title, description, figureImage string
		inFigure                        int
	)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				content := attr(n, "content")
				switch attr(n, "property") {
				case "og:title":
					ogTitle = firstNonEmpty(ogTitle, content)
				case "og:description":
					ogDescription = firstNonEmpty(ogDescription, content)
				case "og:image":
					ogImage = firstNonEmpty(ogImage, content)
				case "description":
					description = firstNonEmpty(description, content)
				}
				if attr(n, "name") == "description" {
					description = firstNonEmpty(description, content)
				}
			case "title":
				if title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "img":
				if inFigure > 0 && figureImage == "" {
					figureImage = attr(n, "src")
				}
			case "figure":
				inFigure++
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c)
				}
				inFigure--
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	rich := &entity.RichContent{
		Type:        constant.RichContentTypeURL,
		Target:      pageURL,
		Title:       firstNonEmpty(ogTitle, title),
		Description: firstNonEmpty(ogDescription, description),
		Image:       ogImage,
	}
	if rich.Image == "" && figureImage != "" {
		rich.Image = resolveAgainstOrigin(pageURL, figureImage)
	}
	return rich, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveAgainstOrigin joins src with the scheme and host of pageURL.
func resolveAgainstOrigin(pageURL, src string) string {
	page, err := url.Parse(pageURL)
	if err != nil || page.Scheme == "" || page.Host == "" {
		return src
	}
	origin := &url.URL{Scheme: page.Scheme, Host: page.Host, Path: "/"}
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	return origin.ResolveReference(ref).String()
}
