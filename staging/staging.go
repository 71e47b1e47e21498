// Package staging keeps previously fetched pages on disk, tagged with the
// build that wrote them, so repeated runs over the same URLs stay offline.
package staging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmrecipe/buildid"
	"github.com/mensylisir/xmrecipe/file"
	"github.com/mensylisir/xmrecipe/httpcache"
)

const (
	htmlSuffix = ".html"
	metaSuffix = ".json"
)

// Entry describes one staged page.
type Entry struct {
	URL      string     `json:"url"`
	BuildID  buildid.ID `json:"build_id"`
	StagedAt time.Time  `json:"staged_at"`
	Size     int        `json:"size"`
	Path     string     `json:"-"`
}

// Store is a staging directory. Entries are addressed by httpcache.Key.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) paths(url string) (html, meta string) {
	key := httpcache.Key(url)
	return filepath.Join(s.dir, key+htmlSuffix), filepath.Join(s.dir, key+metaSuffix)
}

// Put stages html for url under id and returns the staged file path. html
// must already be UTF-8; Import is the entry point for raw files.
func (s *Store) Put(url string, html []byte, id buildid.ID) (string, error) {
	if _, err := httpcache.ValidateURL(url); err != nil {
		return "", err
	}
	htmlPath, metaPath := s.paths(url)
	if err := file.AtomicWriteFile(htmlPath, html); err != nil {
		return "", errors.Wrapf(err, "failed to stage %s", url)
	}
	entry := Entry{URL: url, BuildID: id, StagedAt: time.Now().UTC(), Size: len(html)}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to encode staging metadata")
	}
	if err := file.AtomicWriteFile(metaPath, data); err != nil {
		return "", errors.Wrapf(err, "failed to stage metadata for %s", url)
	}
	return htmlPath, nil
}

// Lookup returns the staged file for url when it was written by build id.
// Entries from another build are misses.
func (s *Store) Lookup(url string, id buildid.ID) (Entry, bool) {
	htmlPath, metaPath := s.paths(url)
	entry, err := readMeta(metaPath)
	if err != nil || entry.URL != url || entry.BuildID != id {
		return Entry{}, false
	}
	info, err := os.Stat(htmlPath)
	if err != nil || info.Size() != int64(entry.Size) {
		return Entry{}, false
	}
	entry.Path = htmlPath
	return entry, true
}

// Import stages an existing HTML file for url. src may be a file or a
// directory, in which case the newest unstaged .html or .htm file is used.
// The file is converted to UTF-8 before it is staged.
func (s *Store) Import(src, url string, id buildid.ID) (string, error) {
	path := src
	if ok, _ := file.IsDir(src); ok {
		found, err := s.newestUnstaged(src)
		if err != nil {
			return "", err
		}
		path = found
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", path)
	}
	page, err := httpcache.DecodeHTML(data, "")
	if err != nil {
		return "", errors.Wrapf(err, "failed to decode %s", path)
	}
	return s.Put(url, []byte(page), id)
}

func (s *Store) newestUnstaged(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", dir)
	}
	var newest string
	var newestMod time.Time
	for _, e := range entries {
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if e.IsDir() || (ext != ".html" && ext != ".htm") {
			continue
		}
		sidecar := filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name))+metaSuffix)
		if ok, _ := file.PathExists(sidecar); ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest, newestMod = filepath.Join(dir, name), info.ModTime()
		}
	}
	if newest == "" {
		return "", errors.Errorf("no .html or .htm file found in %s", dir)
	}
	return newest, nil
}

// List returns every staged entry, oldest first.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read staging dir %s", s.dir)
	}
	var out []Entry
	for _, e := range dirEntries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), metaSuffix) {
			continue
		}
		entry, err := readMeta(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		entry.Path = filepath.Join(s.dir, strings.TrimSuffix(e.Name(), metaSuffix)+htmlSuffix)
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StagedAt.Before(out[j].StagedAt) })
	return out, nil
}

// Clear empties the staging directory. Runs never call it.
func (s *Store) Clear() (int, error) {
	return file.RemoveDirContents(s.dir)
}

func readMeta(path string) (Entry, error) {
	var entry Entry
	raw, err := os.ReadFile(path)
	if err != nil {
		return entry, err
	}
	err = json.Unmarshal(raw, &entry)
	return entry, err
}
