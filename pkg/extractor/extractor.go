// Package extractor turns raw HTML into the structured page record persisted
// for retrieval ingestion.
package extractor

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/markusmobius/go-trafilatura"
	"github.com/sirupsen/logrus"

	"github.com/ragsmith/ragsmith/internal/models"
)

// Elements with no textual value for retrieval, removed before extraction.
const strippedElements = "script, style, nav, footer, iframe, noscript"

// Extractor extracts structured content from parsed HTML documents.
type Extractor struct {
	targetHost string
	logger     *logrus.Logger
}

// New creates an Extractor classifying links against targetHost.
func New(targetHost string, logger *logrus.Logger) *Extractor {
	return &Extractor{targetHost: targetHost, logger: logger}
}

// Parse builds a navigable document from raw markup.
func Parse(htmlContent string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}

// Extract produces a page record from doc. The document is mutated: stripped
// elements are removed before any extraction happens.
func (e *Extractor) Extract(doc *goquery.Document, pageURL string) (*models.Page, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}

	doc.Find(strippedElements).Remove()

	page := &models.Page{
		URL:       pageURL,
		Title:     strings.TrimSpace(doc.Find("title").First().Text()),
		Metadata:  map[string]string{},
		Timestamp: time.Now(),
	}

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		// property is the fallback key only when name is absent entirely;
		// a present-but-empty name skips the tag.
		name, ok := s.Attr("name")
		if !ok {
			name = s.AttrOr("property", "")
		}
		if name == "" {
			return
		}
		page.Metadata[name] = s.AttrOr("content", "")
	})

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		page.Headers = append(page.Headers, models.Header{
			Level: int(tag[1] - '0'),
			Text:  strings.TrimSpace(s.Text()),
		})
	})

	page.MainContent = e.mainContent(doc)
	page.Links = e.links(doc, base)

	return page, nil
}

// mainContent renders the first of main, article, body to a markdown-like
// text representation. If rendering yields nothing, trafilatura's content
// text serves as fallback.
func (e *Extractor) mainContent(doc *goquery.Document) string {
	var sel *goquery.Selection
	for _, tag := range []string{"main", "article", "body"} {
		if s := doc.Find(tag).First(); s.Length() > 0 {
			sel = s
			break
		}
	}
	if sel == nil {
		return ""
	}

	content := renderMarkdown(sel.Nodes[0])
	if strings.TrimSpace(content) != "" {
		return content
	}

	raw, err := doc.Html()
	if err != nil {
		return ""
	}
	result, err := trafilatura.Extract(strings.NewReader(raw), trafilatura.Options{})
	if err != nil || result == nil {
		e.logger.Debugf("Fallback content extraction produced nothing: %v", err)
		return ""
	}
	return result.ContentText
}

// links resolves every anchor href against the page URL and classifies it. A
// link is internal only when its host exactly matches the crawl target and
// the resolved URL carries no fragment marker.
func (e *Extractor) links(doc *goquery.Document, base *url.URL) []models.Link {
	var links []models.Link
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)

		linkType := models.LinkExternal
		if abs.Host == e.targetHost && !strings.Contains(abs.String(), "#") {
			linkType = models.LinkInternal
		}

		links = append(links, models.Link{
			URL:   abs.String(),
			Text:  strings.TrimSpace(s.Text()),
			Title: s.AttrOr("title", ""),
			Type:  linkType,
		})
	})
	return links
}
