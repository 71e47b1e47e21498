// Package extract pulls a structured recipe out of an HTML page, trying
// JSON-LD first and schema.org microdata second.
package extract

import (
	"github.com/pkg/errors"
)

var (
	ErrNoRecipe     = errors.New("no recipe found")
	ErrInvalidJSON  = errors.New("invalid JSON-LD")
	ErrMissingField = errors.New("missing required field")
)

func missingField(name string) error {
	return errors.Wrap(ErrMissingField, name)
}

func invalidJSON(reason string) error {
	return errors.Wrap(ErrInvalidJSON, reason)
}

// RawRecipe holds the page's recipe fields as text blobs, not yet parsed.
type RawRecipe struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	// Ingredients is newline separated, one ingredient per line.
	Ingredients string `json:"ingredients"`
	// Instructions separates steps with a blank line.
	Instructions string   `json:"instructions"`
	ImageURLs    []string `json:"image_urls"`
	SourceURL    string   `json:"source_url"`
	SourceName   string   `json:"source_name,omitempty"`
}

// Method names an extraction strategy.
type Method string

const (
	MethodJSONLD    Method = "json_ld"
	MethodMicrodata Method = "microdata"
)

// Methods lists strategies in the order they are tried.
var Methods = []Method{MethodJSONLD, MethodMicrodata}

// Attempt records the outcome of one strategy.
type Attempt struct {
	Method  Method `json:"method"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Result is what the extract_recipe step emits.
type Result struct {
	RawRecipe   RawRecipe       `json:"raw_recipe"`
	MethodUsed  Method          `json:"method_used"`
	AllAttempts []Attempt       `json:"all_attempts"`
	Ingredients IngredientStats `json:"ingredient_stats"`
}
