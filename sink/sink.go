// Package sink persists extracted recipes. The chain only sees the Sink
// interface; the CLI writes files and a server-style deployment writes to
// redis.
package sink

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmrecipe/config"
	"github.com/mensylisir/xmrecipe/extract"
)

// RecipeContent is what save_recipe hands to a sink.
type RecipeContent struct {
	Title        string               `json:"title"`
	Description  string               `json:"description,omitempty"`
	Ingredients  []extract.Ingredient `json:"ingredients"`
	Instructions string               `json:"instructions"`
	SourceURL    string               `json:"source_url,omitempty"`
	SourceName   string               `json:"source_name,omitempty"`
	Tags         []string             `json:"tags,omitempty"`
	ImageURLs    []string             `json:"image_urls,omitempty"`
	PhotoIDs     []string             `json:"photo_ids,omitempty"`
}

// SaveResult identifies a stored recipe.
type SaveResult struct {
	ID       string   `json:"id"`
	PhotoIDs []string `json:"photo_ids"`
}

// Sink stores recipes. Saving the same content twice must leave a single
// record behind.
type Sink interface {
	Save(ctx context.Context, recipe RecipeContent) (SaveResult, error)
}

// Catalog is implemented by sinks that can read back what they stored.
type Catalog interface {
	// IDs lists stored recipe ids in ascending order.
	IDs(ctx context.Context) ([]string, error)
	// Load returns the recipe stored under id. ok is false when id is unknown.
	Load(ctx context.Context, id string) (recipe RecipeContent, ok bool, err error)
}

// RecipeID derives a stable identifier from the source url, or from the
// title when the recipe has no source.
func RecipeID(recipe RecipeContent) string {
	seed := recipe.SourceURL
	if seed == "" {
		seed = "title:" + recipe.Title
	}
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:8])
}

func validate(recipe RecipeContent) error {
	if recipe.Title == "" {
		return errors.New("recipe has no title")
	}
	if recipe.Instructions == "" {
		return errors.New("recipe has no instructions")
	}
	return nil
}

func result(id string, recipe RecipeContent) SaveResult {
	photoIDs := recipe.PhotoIDs
	if photoIDs == nil {
		photoIDs = []string{}
	}
	return SaveResult{ID: id, PhotoIDs: photoIDs}
}

// New builds the sink selected by spec.
func New(spec config.SinkSpec) (Sink, error) {
	switch spec.Type {
	case "", config.SinkTypeFile:
		return NewFileSink(spec.Dir), nil
	case config.SinkTypeRedis:
		return NewRedisSink(spec.Redis)
	default:
		return nil, errors.Errorf("unsupported sink type %q", spec.Type)
	}
}
