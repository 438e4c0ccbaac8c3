// Package storage persists page artifacts and the crawl index, and computes
// crawl statistics from the artifact directory.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ragsmith/ragsmith/internal/models"
)

// Store writes one JSON artifact per page into a host-specific directory.
type Store struct {
	outputDir string
	logger    *logrus.Logger
}

// New creates the output directory for host under outputRoot. The host is
// folded into a filesystem-safe directory name.
func New(outputRoot, host string, logger *logrus.Logger) (*Store, error) {
	hostDir := strings.NewReplacer(":", "_", "/", "_").Replace(host)
	dir := filepath.Join(outputRoot, hostDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Store{outputDir: dir, logger: logger}, nil
}

// OutputDir returns the directory artifacts are written to.
func (s *Store) OutputDir() string {
	return s.outputDir
}

// Filename derives the artifact name for a URL: the first 16 hex characters
// of the URL's SHA-256 digest plus a .json suffix. Deterministic and
// content-independent; collisions are negligible and unhandled.
func Filename(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:16] + ".json"
}

// SavePage writes one page record as an indented JSON artifact.
func (s *Store) SavePage(page *models.Page) error {
	data, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling page %s: %w", page.URL, err)
	}
	path := filepath.Join(s.outputDir, Filename(page.URL))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing artifact for %s: %w", page.URL, err)
	}
	return nil
}

// SaveIndex writes index.json summarizing every successfully extracted page,
// in completion-insertion order.
func (s *Store) SaveIndex(baseURL string, pages []*models.Page) error {
	index := models.Index{
		BaseURL:         baseURL,
		TotalPages:      len(pages),
		ScrapeTimestamp: time.Now(),
		Pages:           make([]models.IndexEntry, 0, len(pages)),
	}
	for _, p := range pages {
		index.Pages = append(index.Pages, models.IndexEntry{
			URL:      p.URL,
			Title:    p.Title,
			Filename: Filename(p.URL),
			Headers:  p.Headers,
			Metadata: p.Metadata,
		})
	}

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.outputDir, "index.json"), data, 0o644); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

// Statistics computes crawl bookkeeping from the visited set snapshot and
// the artifact directory's current contents. TotalContentSize sums every
// .json artifact present, artifacts of earlier runs included.
func (s *Store) Statistics(visited []string) (*models.Statistics, error) {
	stats := &models.Statistics{TotalPages: len(visited)}

	for _, u := range visited {
		if _, err := os.Stat(filepath.Join(s.outputDir, Filename(u))); err != nil {
			stats.FailedURLs = append(stats.FailedURLs, u)
		}
	}

	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		return nil, fmt.Errorf("reading output directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.TotalContentSize += info.Size()
	}

	return stats, nil
}
