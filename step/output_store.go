package step

import (
	"encoding/json"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmrecipe/cache"
	"github.com/mensylisir/xmrecipe/file"
	"github.com/mensylisir/xmrecipe/httpcache"
)

// OutputStore keeps step outputs for the rest of a chain.
type OutputStore interface {
	Put(stepName string, output any) error
	Get(stepName string) (any, bool)
	// Steps lists the step names with a stored output, sorted.
	Steps() []string
}

// MemoryOutputStore keeps outputs for the lifetime of one chain.
type MemoryOutputStore struct {
	outputs *cache.Cache[string, any]
}

func NewMemoryOutputStore() *MemoryOutputStore {
	return &MemoryOutputStore{outputs: cache.NewCache[string, any]()}
}

func (s *MemoryOutputStore) Put(stepName string, output any) error {
	s.outputs.Set(stepName, output)
	return nil
}

func (s *MemoryOutputStore) Get(stepName string) (any, bool) {
	return s.outputs.Get(stepName)
}

func (s *MemoryOutputStore) Steps() []string {
	names := s.outputs.Keys()
	sort.Strings(names)
	return names
}

// FileOutputStore mirrors every output to
// <runDir>/urls/<slug>/<step>/output.json so a run can be inspected later.
type FileOutputStore struct {
	*MemoryOutputStore
	dir string
}

func NewFileOutputStore(runDir, url string) *FileOutputStore {
	return &FileOutputStore{
		MemoryOutputStore: NewMemoryOutputStore(),
		dir:               filepath.Join(runDir, "urls", httpcache.SlugifyURL(url)),
	}
}

func (s *FileOutputStore) Dir() string { return s.dir }

// Path is the output file of stepName.
func (s *FileOutputStore) Path(stepName string) string {
	return filepath.Join(s.dir, stepName, "output.json")
}

func (s *FileOutputStore) Put(stepName string, output any) error {
	_ = s.MemoryOutputStore.Put(stepName, output)
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to encode output of %s", stepName)
	}
	return file.AtomicWriteFile(s.Path(stepName), data)
}

// OutputAs reads a stored output as T. Values of another type, such as
// maps decoded from JSON, are converted through JSON.
func OutputAs[T any](store OutputStore, stepName string) (T, bool) {
	var zero T
	if store == nil {
		return zero, false
	}
	raw, ok := store.Get(stepName)
	if !ok || raw == nil {
		return zero, false
	}
	if typed, ok := raw.(T); ok {
		return typed, true
	}
	if ptr, ok := raw.(*T); ok && ptr != nil {
		return *ptr, true
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return zero, false
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, false
	}
	return out, true
}
