package models

import "time"

// LinkType classifies a link relative to the crawl's target host.
type LinkType string

const (
	// LinkInternal marks a link whose host exactly matches the crawl target
	// and whose URL carries no fragment.
	LinkInternal LinkType = "internal"
	// LinkExternal marks every other link, including same-host URLs with a
	// fragment.
	LinkExternal LinkType = "external"
)

// Link is a hyperlink extracted from a page, resolved to absolute form.
type Link struct {
	URL   string   `json:"url"`
	Text  string   `json:"text"`
	Title string   `json:"title"`
	Type  LinkType `json:"type"`
}

// Header is a document heading (h1-h6), recorded in document order.
type Header struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Page is the structured record produced for one crawled URL. It is
// immutable once the extraction pipeline hands it to storage.
type Page struct {
	URL         string            `json:"url"`
	Title       string            `json:"title"`
	MainContent string            `json:"main_content"`
	Metadata    map[string]string `json:"metadata"`
	Timestamp   time.Time         `json:"timestamp"`
	Links       []Link            `json:"links"`
	Headers     []Header          `json:"headers"`
	RAGContent  string            `json:"rag_content"`
}

// InternalLinks returns the subset of links classified as internal.
func (p *Page) InternalLinks() []Link {
	var links []Link
	for _, l := range p.Links {
		if l.Type == LinkInternal {
			links = append(links, l)
		}
	}
	return links
}

// IndexEntry summarizes one page inside the crawl index.
type IndexEntry struct {
	URL      string            `json:"url"`
	Title    string            `json:"title"`
	Filename string            `json:"filename"`
	Headers  []Header          `json:"headers"`
	Metadata map[string]string `json:"metadata"`
}

// Index is the aggregate record written once per crawl, after draining.
type Index struct {
	BaseURL         string       `json:"base_url"`
	TotalPages      int          `json:"total_pages"`
	ScrapeTimestamp time.Time    `json:"scrape_timestamp"`
	Pages           []IndexEntry `json:"pages"`
}

// Statistics reports crawl bookkeeping after completion. TotalPages counts
// every dispatched URL, including ones that failed or were blocked by robots
// policy; FailedURLs lists dispatched URLs with no artifact on disk.
type Statistics struct {
	TotalPages       int      `json:"total_pages"`
	FailedURLs       []string `json:"failed_urls"`
	TotalContentSize int64    `json:"total_content_size"`
}
