package httpcache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmrecipe/file"
)

const (
	bodySuffix = ".body"
	metaSuffix = ".json"
)

// Meta is written after the body and marks the entry as complete.
type Meta struct {
	URL         string    `json:"url"`
	Status      int       `json:"status,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
	BuildID     string    `json:"build_id,omitempty"`
	Size        int       `json:"size"`
	// Error is set for negatively cached fetches. Such entries have no body.
	Error string `json:"error,omitempty"`
}

type Entry struct {
	Meta Meta
	Body []byte
}

// Stats summarizes the cache directory.
type Stats struct {
	Dir     string `json:"dir"`
	Entries int    `json:"entries"`
	Errors  int    `json:"errors"`
	Bytes   int64  `json:"bytes"`
}

// DiskCache stores one body and one meta file per URL, named by Key. Entries
// are replaced wholesale, never edited.
type DiskCache struct {
	dir    string
	maxAge time.Duration
	now    func() time.Time
}

// NewDiskCache returns a cache rooted at dir. maxAge 0 disables expiry.
func NewDiskCache(dir string, maxAge time.Duration) *DiskCache {
	return &DiskCache{dir: dir, maxAge: maxAge, now: time.Now}
}

func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) paths(rawURL string) (body, meta string) {
	key := Key(rawURL)
	return filepath.Join(c.dir, key+bodySuffix), filepath.Join(c.dir, key+metaSuffix)
}

// Get returns the complete entry for rawURL. Missing, unreadable and expired
// entries are misses.
func (c *DiskCache) Get(rawURL string) (*Entry, bool) {
	bodyPath, metaPath := c.paths(rawURL)
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, false
	}
	var meta Meta
	if err := json.Unmarshal(raw, &meta); err != nil || meta.URL != rawURL {
		return nil, false
	}
	if c.maxAge > 0 && c.now().Sub(meta.FetchedAt) > c.maxAge {
		return nil, false
	}
	if meta.Error != "" {
		return &Entry{Meta: meta}, true
	}
	body, err := os.ReadFile(bodyPath)
	if err != nil || len(body) != meta.Size {
		return nil, false
	}
	return &Entry{Meta: meta, Body: body}, true
}

// Put stores a successful response. The body lands first so a reader that
// finds the meta file always finds the matching body.
func (c *DiskCache) Put(rawURL string, body []byte, meta Meta) error {
	bodyPath, metaPath := c.paths(rawURL)
	meta.URL = rawURL
	meta.Size = len(body)
	meta.Error = ""
	if meta.FetchedAt.IsZero() {
		meta.FetchedAt = c.now().UTC()
	}
	if err := file.AtomicWriteFile(bodyPath, body); err != nil {
		return errors.Wrapf(err, "failed to cache body for %s", rawURL)
	}
	return c.writeMeta(metaPath, meta)
}

// PutError records a failed fetch so later runs do not retry it.
func (c *DiskCache) PutError(rawURL string, message string) error {
	bodyPath, metaPath := c.paths(rawURL)
	meta := Meta{URL: rawURL, FetchedAt: c.now().UTC(), Error: message}
	if err := c.writeMeta(metaPath, meta); err != nil {
		return err
	}
	if err := os.Remove(bodyPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to drop stale body for %s", rawURL)
	}
	return nil
}

func (c *DiskCache) writeMeta(path string, meta Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode cache metadata")
	}
	if err := file.AtomicWriteFile(path, data); err != nil {
		return errors.Wrapf(err, "failed to cache metadata for %s", meta.URL)
	}
	return nil
}

// Stats counts entries by reading every meta file.
func (c *DiskCache) Stats() (Stats, error) {
	stats := Stats{Dir: c.dir}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, errors.Wrapf(err, "failed to read cache dir %s", c.dir)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), metaSuffix) {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(c.dir, e.Name()))
		if err != nil {
			continue
		}
		var meta Meta
		if json.Unmarshal(raw, &meta) != nil {
			continue
		}
		if meta.Error != "" {
			stats.Errors++
		} else {
			stats.Entries++
		}
	}
	bodies, err := file.WalkDirStats(c.dir, func(name string) bool { return strings.HasSuffix(name, bodySuffix) })
	if err != nil {
		return stats, err
	}
	stats.Bytes = bodies.Bytes
	return stats, nil
}

// Clear removes every entry and returns how many files were deleted.
func (c *DiskCache) Clear() (int, error) {
	return file.RemoveDirContents(c.dir)
}
