// Package recipe holds the concrete steps of the recipe chain:
// fetch_html → extract_recipe → fetch_images → save_recipe → enrich.
package recipe

import (
	"github.com/mensylisir/xmrecipe/extract"
)

// HTML sources reported by fetch_html.
const (
	SourceStaged  = "staged"
	SourceCache   = "cache"
	SourceNetwork = "network"
)

// FetchHTMLOutput is the output of fetch_html.
type FetchHTMLOutput struct {
	URL         string `json:"url"`
	HTML        string `json:"html"`
	ContentType string `json:"content_type,omitempty"`
	Source      string `json:"source"`
	Size        int    `json:"size"`
}

// ExtractOutput is the output of extract_recipe.
type ExtractOutput = extract.Result

// FailedImage records one image that could not be stored.
type FailedImage struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// FetchImagesOutput is the output of fetch_images and its no-op variant.
type FetchImagesOutput struct {
	PhotoIDs   []string      `json:"photo_ids"`
	FailedURLs []FailedImage `json:"failed_urls,omitempty"`
	Skipped    bool          `json:"skipped,omitempty"`
}

// SaveOutput is the output of save_recipe.
type SaveOutput struct {
	RecipeID string   `json:"recipe_id"`
	Title    string   `json:"title"`
	PhotoIDs []string `json:"photo_ids"`
}
