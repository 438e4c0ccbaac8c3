// Package robots answers whether a URL may be fetched under the target
// site's robots exclusion policy.
package robots

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
)

const agent = "*"

// Gate holds the robots policy for one crawl target. The policy is fetched
// once at construction; after that Allowed performs read-only checks and is
// safe for concurrent use.
type Gate struct {
	enabled bool
	group   *robotstxt.Group
	logger  *logrus.Logger
}

// NewGate fetches and parses robots.txt for the host of baseURL. A fetch or
// parse failure degrades to fail-open with a logged warning. When enabled is
// false the gate allows everything and performs no network call.
func NewGate(ctx context.Context, client *http.Client, baseURL string, enabled bool, logger *logrus.Logger) (*Gate, error) {
	g := &Gate{enabled: enabled, logger: logger}
	if !enabled {
		return g, nil
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building robots.txt request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		logger.Warnf("Could not fetch robots.txt from %s: %v", robotsURL, err)
		return g, nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		logger.Warnf("Could not parse robots.txt from %s: %v", robotsURL, err)
		return g, nil
	}

	g.group = data.FindGroup(agent)
	logger.Infof("Successfully parsed robots.txt from %s", robotsURL)
	return g, nil
}

// Allowed reports whether rawURL may be fetched. Disabled or degraded gates
// always answer true.
func (g *Gate) Allowed(rawURL string) bool {
	if !g.enabled || g.group == nil {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return g.group.Test(path)
}
