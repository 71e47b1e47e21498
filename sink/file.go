package sink

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmrecipe/file"
	"github.com/mensylisir/xmrecipe/httpcache"
)

// FileSink writes one JSON document per recipe into dir, named after the
// slugified source url and the recipe id. Re-saving overwrites the same
// file; recipes with different ids never share one.
type FileSink struct {
	dir string
}

var (
	_ Sink    = (*FileSink)(nil)
	_ Catalog = (*FileSink)(nil)
)

type fileDoc struct {
	ID string `json:"id"`
	RecipeContent
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

func (s *FileSink) Dir() string { return s.dir }

// Path returns the file a recipe is written to.
func (s *FileSink) Path(recipe RecipeContent) string {
	name := RecipeID(recipe)
	if recipe.SourceURL != "" {
		name = httpcache.SlugifyURL(recipe.SourceURL) + "_" + name
	}
	return filepath.Join(s.dir, name+".json")
}

func (s *FileSink) Save(ctx context.Context, recipe RecipeContent) (SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return SaveResult{}, err
	}
	if err := validate(recipe); err != nil {
		return SaveResult{}, err
	}
	id := RecipeID(recipe)
	doc := fileDoc{ID: id, RecipeContent: recipe}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return SaveResult{}, errors.Wrap(err, "failed to encode recipe")
	}
	path := s.Path(recipe)
	if err := file.AtomicWriteFile(path, data); err != nil {
		return SaveResult{}, errors.Wrapf(err, "failed to write %s", path)
	}
	return result(id, recipe), nil
}

// IDs reads the id of every recipe file in dir. A missing dir holds none.
func (s *FileSink) IDs(ctx context.Context) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", s.dir)
	}
	ids := make([]string, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := readDoc(path)
		if err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileSink) Load(ctx context.Context, id string) (RecipeContent, bool, error) {
	if err := ctx.Err(); err != nil {
		return RecipeContent{}, false, err
	}
	// Files are named <slug>_<id>.json, or <id>.json without a source url.
	paths, err := filepath.Glob(filepath.Join(s.dir, "*"+id+".json"))
	if err != nil {
		return RecipeContent{}, false, errors.Wrapf(err, "failed to look up %s", id)
	}
	for _, path := range paths {
		doc, err := readDoc(path)
		if err != nil {
			return RecipeContent{}, false, err
		}
		if doc.ID == id {
			return doc.RecipeContent, true, nil
		}
	}
	return RecipeContent{}, false, nil
}

func readDoc(path string) (fileDoc, error) {
	var doc fileDoc
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, errors.Wrapf(err, "failed to read %s", path)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, errors.Wrapf(err, "corrupt recipe file %s", path)
	}
	return doc, nil
}
