package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragsmith/ragsmith/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestFilename(t *testing.T) {
	name := Filename("https://example.com/page")

	assert.Len(t, name, 21, "16 hex characters plus .json")
	assert.True(t, strings.HasSuffix(name, ".json"))
	assert.Equal(t, name, Filename("https://example.com/page"), "derivation is deterministic")
	assert.NotEqual(t, name, Filename("https://example.com/page2"))
}

func TestFilenameCollisionFree(t *testing.T) {
	seen := make(map[string]string)
	for i := 0; i < 10000; i++ {
		u := fmt.Sprintf("https://example.com/section-%d/page?id=%d", i%37, i)
		name := Filename(u)
		if prev, ok := seen[name]; ok {
			t.Fatalf("collision between %s and %s", prev, u)
		}
		seen[name] = u
	}
}

func TestStoreDirectoryPerHost(t *testing.T) {
	root := t.TempDir()
	s, err := New(root, "site.test:8080", testLogger())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "site.test_8080"), s.OutputDir())
	info, err := os.Stat(s.OutputDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSavePageAndIndex(t *testing.T) {
	s, err := New(t.TempDir(), "site.test", testLogger())
	require.NoError(t, err)

	page := &models.Page{
		URL:         "https://site.test/",
		Title:       "Home",
		MainContent: "# Welcome",
		RAGContent:  "Welcome",
		Metadata:    map[string]string{"description": "home page"},
		Headers:     []models.Header{{Level: 1, Text: "Welcome"}},
		Links: []models.Link{
			{URL: "https://site.test/about", Text: "About", Type: models.LinkInternal},
		},
		Timestamp: time.Now(),
	}

	require.NoError(t, s.SavePage(page))

	data, err := os.ReadFile(filepath.Join(s.OutputDir(), Filename(page.URL)))
	require.NoError(t, err)

	var got models.Page
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, page.URL, got.URL)
	assert.Equal(t, page.Title, got.Title)
	assert.Equal(t, page.Metadata, got.Metadata)
	assert.Equal(t, page.Links, got.Links)

	require.NoError(t, s.SaveIndex("https://site.test/", []*models.Page{page}))

	data, err = os.ReadFile(filepath.Join(s.OutputDir(), "index.json"))
	require.NoError(t, err)

	var index models.Index
	require.NoError(t, json.Unmarshal(data, &index))
	assert.Equal(t, "https://site.test/", index.BaseURL)
	assert.Equal(t, 1, index.TotalPages)
	require.Len(t, index.Pages, 1)
	assert.Equal(t, Filename(page.URL), index.Pages[0].Filename)
	assert.Equal(t, page.Headers, index.Pages[0].Headers)
}

func TestStatistics(t *testing.T) {
	s, err := New(t.TempDir(), "site.test", testLogger())
	require.NoError(t, err)

	saved := &models.Page{URL: "https://site.test/ok", Metadata: map[string]string{}}
	require.NoError(t, s.SavePage(saved))

	visited := []string{"https://site.test/ok", "https://site.test/failed"}
	stats, err := s.Statistics(visited)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalPages, "visited count includes failures")
	assert.Equal(t, []string{"https://site.test/failed"}, stats.FailedURLs)
	assert.Greater(t, stats.TotalContentSize, int64(0))
}
